// Package trafficflow controls the signals of a single four-way intersection.
// It splits a fixed green budget across the approaches in proportion to the
// vehicles waiting on each, rotates green through them with a yellow
// clearance, and lets an emergency vehicle or an operator preempt the
// rotation.
package trafficflow

import (
	"github.com/anggasct/trafficflow/pkg/allocator"
	"github.com/anggasct/trafficflow/pkg/demand"
	"github.com/anggasct/trafficflow/pkg/observers"
	"github.com/anggasct/trafficflow/pkg/scheduler"
	"github.com/anggasct/trafficflow/pkg/signal"
)

// Data model
type (
	// Direction identifies one intersection approach
	Direction = signal.Direction

	// Phase is the signal shown to a single direction
	Phase = signal.Phase

	// Mode is the scheduler-wide operating state
	Mode = signal.Mode

	// SignalState holds the live countdowns of one direction
	SignalState = signal.SignalState

	// DemandSnapshot is the waiting-vehicle picture read at a scheduling decision
	DemandSnapshot = signal.DemandSnapshot

	// PhaseEvent is published whenever a direction changes phase
	PhaseEvent = signal.PhaseEvent

	// DisplayState is the read-only view handed to renderers
	DisplayState = signal.DisplayState
)

// Controller types
type (
	// Scheduler drives the signal phases of the intersection
	Scheduler = scheduler.Scheduler

	// SchedulerConfig holds the timing configuration of a Scheduler
	SchedulerConfig = scheduler.Config

	// State is the full scheduler state
	State = scheduler.State

	// Allocator splits the green budget across directions
	Allocator = allocator.Allocator

	// AllocatorConfig holds the allocation tunables
	AllocatorConfig = allocator.Config

	// DemandBoard is a thread-safe demand feed
	DemandBoard = demand.Board

	// SchedulerOption configures a Scheduler at construction
	SchedulerOption = scheduler.Option

	// DemandSource supplies demand snapshots to the scheduler
	DemandSource = scheduler.DemandSource
)

// Observer types
type (
	// Observer receives phase changes
	Observer = scheduler.Observer

	// ExtendedObserver receives mode changes, allocations, ticks and errors as well
	ExtendedObserver = scheduler.ExtendedObserver

	// BaseObserver is a no-op ExtendedObserver to embed
	BaseObserver = scheduler.BaseObserver

	// LoggingObserver logs scheduler activity through logr
	LoggingObserver = observers.LoggingObserver

	// MetricsObserver exports scheduler activity as Prometheus metrics
	MetricsObserver = observers.MetricsObserver

	// ValidationObserver checks the phase stream for safety violations
	ValidationObserver = observers.ValidationObserver
)

// Re-export constants
const (
	NumDirections = signal.NumDirections

	NoDirection = signal.NoDirection
	Right       = signal.Right
	Down        = signal.Down
	Left        = signal.Left
	Up          = signal.Up

	Red    = signal.Red
	Yellow = signal.Yellow
	Green  = signal.Green

	ModeNormal           = signal.ModeNormal
	ModeEmergencyPreempt = signal.ModeEmergencyPreempt
	ModeManualOverride   = signal.ModeManualOverride
)

// Re-export constructors
var (
	// NewScheduler creates a scheduler over a demand source
	NewScheduler = scheduler.New

	// NewSchedulerConfig builds a validated timing configuration
	NewSchedulerConfig = scheduler.NewConfig

	// NewAllocator creates an allocator from a validated configuration
	NewAllocator = allocator.New

	// NewAllocatorConfig builds validated allocation tunables
	NewAllocatorConfig = allocator.NewConfig

	// WithAllocator replaces the default allocator
	WithAllocator = scheduler.WithAllocator

	// WithClock sets the clock driving Run
	WithClock = scheduler.WithClock

	// WithLogger sets the scheduler logger
	WithLogger = scheduler.WithLogger

	// WithObserver registers an observer at construction
	WithObserver = scheduler.WithObserver

	// NewDemandBoard creates an empty demand board
	NewDemandBoard = demand.NewBoard

	// ParseDirection accepts a direction name or index
	ParseDirection = signal.ParseDirection

	// Directions returns all approaches in rotation order
	Directions = signal.Directions

	// NewLoggingObserver creates a logging observer on the default process logger
	NewLoggingObserver = observers.NewDefaultLoggingObserver

	// NewCustomLoggingObserver creates a logging observer on the given logger
	NewCustomLoggingObserver = observers.NewLoggingObserver

	// NewMetricsObserver creates a Prometheus collector observer
	NewMetricsObserver = observers.NewMetricsObserver

	// NewValidationObserver creates a safety-checking observer
	NewValidationObserver = observers.NewValidationObserver
)

// NewDefaultScheduler creates a scheduler with the default timings, reading
// demand from the given source.
func NewDefaultScheduler(source DemandSource, opts ...SchedulerOption) (*Scheduler, error) {
	cfg, err := scheduler.NewConfig()
	if err != nil {
		return nil, err
	}
	return scheduler.New(*cfg, source, opts...)
}
