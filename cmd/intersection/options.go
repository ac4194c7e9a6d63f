package main

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/multierr"

	"github.com/anggasct/trafficflow/pkg/allocator"
	logutil "github.com/anggasct/trafficflow/pkg/logging"
	"github.com/anggasct/trafficflow/pkg/scheduler"
	"github.com/anggasct/trafficflow/pkg/signal"
)

const (
	statusFormatText = "text"
	statusFormatJSON = "json"
)

// Options contains the command-line configuration of the intersection controller.
type Options struct {
	//
	// Timing.
	//
	TickInterval  time.Duration // Wall-clock length of one tick.
	DefaultYellow int           // Yellow duration in ticks.
	DefaultRed    int           // Red countdown after a reset or during an interrupt.
	DefaultGreen  []int         // Post-reset green split; its sum is the budget.
	//
	// Allocation.
	//
	MinGreen        int     // Lower clamp of an allocated green.
	MaxGreen        int     // Upper clamp of an allocated green.
	EmergencyWeight float64 // Weight multiplier of a direction with an emergency vehicle.
	InitialWaiting  []int   // Waiting vehicles per direction at startup.
	//
	// Diagnostics.
	//
	LogVerbosity   int    // Number for the log level verbosity.
	LogDevelopment bool   // Human-readable console logs.
	MetricsAddr    string // Address of the Prometheus endpoint; empty disables it.
	StatusFormat   string // "text" or "json".
	StatusEvery    int    // Print a status line every N ticks; 0 disables.

	// internal
	defaultGreen   [signal.NumDirections]int
	initialWaiting [signal.NumDirections]int
}

// NewOptions returns a new Options struct initialized with default values.
func NewOptions() *Options {
	return &Options{
		TickInterval:    time.Second,
		DefaultYellow:   5,
		DefaultRed:      150,
		DefaultGreen:    append([]int(nil), allocator.DefaultGreen[:]...),
		MinGreen:        5,
		MaxGreen:        30,
		EmergencyWeight: 5,
		InitialWaiting:  []int{0, 0, 0, 0},
		LogVerbosity:    logutil.DEFAULT,
		MetricsAddr:     ":9090",
		StatusFormat:    statusFormatText,
		StatusEvery:     1,
	}
}

// AddFlags binds the Options fields to command-line flags on the given FlagSet.
func (opts *Options) AddFlags(fs *pflag.FlagSet) {
	if fs == nil {
		fs = pflag.CommandLine
	}

	fs.DurationVar(&opts.TickInterval, "tick-interval", opts.TickInterval,
		"Wall-clock length of one tick.")
	fs.IntVar(&opts.DefaultYellow, "yellow", opts.DefaultYellow,
		"Yellow duration in ticks.")
	fs.IntVar(&opts.DefaultRed, "red", opts.DefaultRed,
		"Red countdown shown to idle directions after a reset or during an interrupt.")
	fs.IntSliceVar(&opts.DefaultGreen, "default-green", opts.DefaultGreen,
		"Green time per direction (right,down,left,up) when nobody is waiting.")
	fs.IntVar(&opts.MinGreen, "min-green", opts.MinGreen,
		"Minimum allocated green time.")
	fs.IntVar(&opts.MaxGreen, "max-green", opts.MaxGreen,
		"Maximum allocated green time, except for the direction absorbing rounding drift.")
	fs.Float64Var(&opts.EmergencyWeight, "emergency-weight", opts.EmergencyWeight,
		"Weight multiplier of a direction with a waiting emergency vehicle.")
	fs.IntSliceVar(&opts.InitialWaiting, "waiting", opts.InitialWaiting,
		"Waiting vehicles per direction (right,down,left,up) at startup.")
	fs.IntVarP(&opts.LogVerbosity, "v", "v", opts.LogVerbosity,
		"Number for the log level verbosity.")
	fs.BoolVar(&opts.LogDevelopment, "log-development", opts.LogDevelopment,
		"Use human-readable console logs.")
	fs.StringVar(&opts.MetricsAddr, "metrics-addr", opts.MetricsAddr,
		"Address of the Prometheus metrics endpoint. Empty disables it.")
	fs.StringVar(&opts.StatusFormat, "status-format", opts.StatusFormat,
		"Status line format: text or json.")
	fs.IntVar(&opts.StatusEvery, "status-every", opts.StatusEvery,
		"Print a status line every N ticks. 0 disables periodic status.")
}

// Complete performs post-processing of parsed command-line arguments.
func (opts *Options) Complete() error {
	if err := toDirections("default-green", opts.DefaultGreen, &opts.defaultGreen); err != nil {
		return err
	}
	return toDirections("waiting", opts.InitialWaiting, &opts.initialWaiting)
}

// Validate checks the Options for invalid or conflicting values.
func (opts *Options) Validate() error {
	var errs error
	if opts.StatusFormat != statusFormatText && opts.StatusFormat != statusFormatJSON {
		errs = multierr.Append(errs, fmt.Errorf("invalid value %q for flag %q: must be %q or %q",
			opts.StatusFormat, "status-format", statusFormatText, statusFormatJSON))
	}
	if opts.StatusEvery < 0 {
		errs = multierr.Append(errs, fmt.Errorf("invalid value %d for flag %q: must be >= 0", opts.StatusEvery, "status-every"))
	}
	if opts.LogVerbosity < 0 {
		errs = multierr.Append(errs, fmt.Errorf("invalid value %d for flag %q: must be >= 0", opts.LogVerbosity, "v"))
	}
	if err := (signal.DemandSnapshot{WaitingCounts: opts.initialWaiting}).Validate(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("invalid value for flag %q: %w", "waiting", err))
	}
	if _, err := opts.AllocatorConfig(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if _, err := opts.SchedulerConfig(); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

// AllocatorConfig builds the allocator tunables.
func (opts *Options) AllocatorConfig() (*allocator.Config, error) {
	return allocator.NewConfig(
		allocator.WithMinGreen(opts.MinGreen),
		allocator.WithMaxGreen(opts.MaxGreen),
		allocator.WithEmergencyWeightMultiplier(opts.EmergencyWeight),
		allocator.WithDefaultGreen(opts.defaultGreen),
	)
}

// SchedulerConfig builds the scheduler timing configuration.
func (opts *Options) SchedulerConfig() (*scheduler.Config, error) {
	return scheduler.NewConfig(
		scheduler.WithDefaultGreen(opts.defaultGreen),
		scheduler.WithDefaultYellow(opts.DefaultYellow),
		scheduler.WithDefaultRed(opts.DefaultRed),
		scheduler.WithTickInterval(opts.TickInterval),
	)
}

// InitialDemand returns the startup demand snapshot.
func (opts *Options) InitialDemand() signal.DemandSnapshot {
	return signal.DemandSnapshot{WaitingCounts: opts.initialWaiting}
}

func toDirections(flag string, values []int, out *[signal.NumDirections]int) error {
	if len(values) != signal.NumDirections {
		return fmt.Errorf("invalid value %v for flag %q: need exactly %d comma-separated values", values, flag, signal.NumDirections)
	}
	copy(out[:], values)
	return nil
}
