package allocator

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/anggasct/trafficflow/pkg/signal"
)

const (
	// defaultMinGreen is the shortest green a direction can be allocated.
	defaultMinGreen = 5
	// defaultMaxGreen is the longest green a direction can be allocated before drift correction.
	defaultMaxGreen = 30
	// defaultEmergencyWeightMultiplier boosts the weight of a direction with a waiting emergency vehicle.
	defaultEmergencyWeightMultiplier = 5.0
)

// DefaultGreen is the equal split used when nothing is waiting. Its sum is the
// green-time budget.
var DefaultGreen = [signal.NumDirections]int{10, 10, 10, 10}

// Config holds the tunables of the `Allocator`.
type Config struct {
	// MinGreen is the lower clamp applied to every proportional share.
	// Optional: Defaults to `defaultMinGreen` (5).
	MinGreen int

	// MaxGreen is the upper clamp applied to every proportional share. The
	// drift recipient may still exceed it.
	// Optional: Defaults to `defaultMaxGreen` (30).
	MaxGreen int

	// EmergencyWeightMultiplier scales the weight of directions with a waiting
	// emergency vehicle. It boosts but does not guarantee domination.
	// Optional: Defaults to `defaultEmergencyWeightMultiplier` (5).
	EmergencyWeightMultiplier float64

	// DefaultGreen is returned unchanged when nothing is waiting; its sum is
	// the budget every allocation conserves.
	// Optional: Defaults to `DefaultGreen` (10 per direction).
	DefaultGreen [signal.NumDirections]int
}

// ConfigOption is a functional option for configuring the Allocator.
type ConfigOption func(*Config)

// NewConfig creates a new Config with the given options, applying defaults and validation.
func NewConfig(opts ...ConfigOption) (*Config, error) {
	c := &Config{
		MinGreen:                  defaultMinGreen,
		MaxGreen:                  defaultMaxGreen,
		EmergencyWeightMultiplier: defaultEmergencyWeightMultiplier,
		DefaultGreen:              DefaultGreen,
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// WithMinGreen sets the lower clamp.
func WithMinGreen(n int) ConfigOption {
	return func(c *Config) {
		c.MinGreen = n
	}
}

// WithMaxGreen sets the upper clamp.
func WithMaxGreen(n int) ConfigOption {
	return func(c *Config) {
		c.MaxGreen = n
	}
}

// WithEmergencyWeightMultiplier sets the emergency weight multiplier.
func WithEmergencyWeightMultiplier(m float64) ConfigOption {
	return func(c *Config) {
		c.EmergencyWeightMultiplier = m
	}
}

// WithDefaultGreen sets the default split, and with it the budget.
func WithDefaultGreen(greens [signal.NumDirections]int) ConfigOption {
	return func(c *Config) {
		c.DefaultGreen = greens
	}
}

// Budget returns the total green time conserved by every allocation.
func (c *Config) Budget() int {
	total := 0
	for _, g := range c.DefaultGreen {
		total += g
	}
	return total
}

// validate checks the configuration for validity.
func (c *Config) validate() error {
	var errs error
	if c.MinGreen < 0 {
		errs = multierr.Append(errs, signal.NewConfigurationError("allocator",
			fmt.Sprintf("MinGreen cannot be negative, but got %d", c.MinGreen)))
	}
	if c.MaxGreen < c.MinGreen {
		errs = multierr.Append(errs, signal.NewConfigurationError("allocator",
			fmt.Sprintf("MaxGreen (%d) must not be below MinGreen (%d)", c.MaxGreen, c.MinGreen)))
	}
	if c.EmergencyWeightMultiplier <= 0 {
		errs = multierr.Append(errs, signal.NewConfigurationError("allocator",
			fmt.Sprintf("EmergencyWeightMultiplier must be positive, but got %v", c.EmergencyWeightMultiplier)))
	}
	for i, g := range c.DefaultGreen {
		if g <= 0 {
			errs = multierr.Append(errs, signal.NewConfigurationError("allocator",
				fmt.Sprintf("DefaultGreen[%s] must be positive, but got %d", signal.Direction(i), g)))
		}
	}
	if errs != nil {
		return errs
	}

	// The clamps must leave room for a split of the budget.
	budget := c.Budget()
	if c.MinGreen*signal.NumDirections > budget {
		errs = multierr.Append(errs, signal.NewConfigurationError("allocator",
			fmt.Sprintf("MinGreen (%d) for %d directions exceeds the budget (%d)", c.MinGreen, signal.NumDirections, budget)))
	}
	if c.MaxGreen*signal.NumDirections < budget {
		errs = multierr.Append(errs, signal.NewConfigurationError("allocator",
			fmt.Sprintf("MaxGreen (%d) for %d directions cannot cover the budget (%d)", c.MaxGreen, signal.NumDirections, budget)))
	}
	return errs
}
