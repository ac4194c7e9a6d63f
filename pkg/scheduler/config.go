package scheduler

import (
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/anggasct/trafficflow/pkg/allocator"
	"github.com/anggasct/trafficflow/pkg/signal"
)

const (
	// defaultYellow is the yellow duration, in ticks, of every direction.
	defaultYellow = 5
	// defaultRed is the red countdown shown to idle directions after a reset or an interrupt.
	defaultRed = 150
	// defaultTickInterval is the wall-clock length of one time unit.
	defaultTickInterval = time.Second
)

// DefaultStopLines are the stop-line coordinates of the reference intersection
// layout, indexed by direction.
var DefaultStopLines = [signal.NumDirections]float64{580, 320, 810, 545}

// Config holds the timing configuration of the `Scheduler`.
type Config struct {
	// DefaultGreen is the green time each direction gets after a full reset,
	// before the allocator has seen any demand. Its sum is the green budget.
	// Optional: Defaults to `allocator.DefaultGreen` (10 per direction).
	DefaultGreen [signal.NumDirections]int

	// DefaultYellow is the yellow duration in ticks.
	// Optional: Defaults to `defaultYellow` (5).
	DefaultYellow int

	// DefaultRed is the red countdown given to idle directions on reset and
	// while an interrupt holds another direction green.
	// Optional: Defaults to `defaultRed` (150).
	DefaultRed int

	// TickInterval is the wall-clock duration of one tick in `Run`.
	// Optional: Defaults to `defaultTickInterval` (1 second).
	TickInterval time.Duration

	// StopLines is the stop-line coordinate published with every phase change.
	// Optional: Defaults to `DefaultStopLines`.
	StopLines [signal.NumDirections]float64
}

// ConfigOption is a functional option for configuring the Scheduler.
type ConfigOption func(*Config)

// NewConfig creates a new Config with the given options, applying defaults and validation.
func NewConfig(opts ...ConfigOption) (*Config, error) {
	c := &Config{
		DefaultGreen:  allocator.DefaultGreen,
		DefaultYellow: defaultYellow,
		DefaultRed:    defaultRed,
		TickInterval:  defaultTickInterval,
		StopLines:     DefaultStopLines,
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// WithDefaultGreen sets the post-reset green split.
func WithDefaultGreen(greens [signal.NumDirections]int) ConfigOption {
	return func(c *Config) {
		c.DefaultGreen = greens
	}
}

// WithDefaultYellow sets the yellow duration.
func WithDefaultYellow(ticks int) ConfigOption {
	return func(c *Config) {
		c.DefaultYellow = ticks
	}
}

// WithDefaultRed sets the default red countdown.
func WithDefaultRed(ticks int) ConfigOption {
	return func(c *Config) {
		c.DefaultRed = ticks
	}
}

// WithTickInterval sets the wall-clock tick length.
func WithTickInterval(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.TickInterval = d
	}
}

// WithStopLines sets the stop-line coordinates.
func WithStopLines(lines [signal.NumDirections]float64) ConfigOption {
	return func(c *Config) {
		c.StopLines = lines
	}
}

// validate checks the configuration for validity.
func (c *Config) validate() error {
	var errs error
	for i, g := range c.DefaultGreen {
		if g <= 0 {
			errs = multierr.Append(errs, signal.NewConfigurationError("scheduler",
				fmt.Sprintf("DefaultGreen[%s] must be positive, but got %d", signal.Direction(i), g)))
		}
	}
	if c.DefaultYellow <= 0 {
		errs = multierr.Append(errs, signal.NewConfigurationError("scheduler",
			fmt.Sprintf("DefaultYellow must be positive, but got %d", c.DefaultYellow)))
	}
	if c.DefaultRed < 0 {
		errs = multierr.Append(errs, signal.NewConfigurationError("scheduler",
			fmt.Sprintf("DefaultRed cannot be negative, but got %d", c.DefaultRed)))
	}
	if c.TickInterval <= 0 {
		errs = multierr.Append(errs, signal.NewConfigurationError("scheduler",
			fmt.Sprintf("TickInterval must be positive, but got %v", c.TickInterval)))
	}
	return errs
}
