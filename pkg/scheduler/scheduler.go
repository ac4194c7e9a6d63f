// Package scheduler runs the signal phase state machine of a four-way
// intersection.
//
// The Scheduler rotates green through the four directions (green → yellow →
// red, then the next direction), sizing each green from the allocator at the
// moment the direction becomes active. Two interrupt classes suspend the
// rotation:
//
//   - Emergency preemption: a direction with a waiting emergency vehicle is
//     switched to green immediately and held there while the vehicle waits.
//   - Manual override: an operator-selected direction is held green, without
//     countdown, until the override is released.
//
// Manual override always takes precedence and can interrupt an emergency
// preemption. Once an interrupt is released the held direction runs one yellow
// phase, every direction is reset to its default timings and normal rotation
// resumes at direction 0.
//
// A single goroutine (`Run`) owns all signal state. Operators and the vehicle
// subsystem communicate with it through the override slot and the demand
// source; renderers read copies through `DisplayState`.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"

	"github.com/anggasct/trafficflow/pkg/allocator"
	logutil "github.com/anggasct/trafficflow/pkg/logging"
	"github.com/anggasct/trafficflow/pkg/signal"
)

// Allocator computes the green time of every direction from a demand snapshot.
type Allocator interface {
	Allocate(demand signal.DemandSnapshot) [signal.NumDirections]int
}

// DemandSource supplies the latest demand. Snapshot must be cheap and must not block.
type DemandSource interface {
	Snapshot() signal.DemandSnapshot
}

// ChangeNotifier is optionally implemented by a DemandSource whose emergency
// flags can change between ticks. The scheduler re-evaluates interrupts as soon
// as the channel fires instead of waiting for the next tick.
type ChangeNotifier interface {
	Changed() <-chan struct{}
}

var _ DemandSource = noDemand{}

type noDemand struct{}

func (noDemand) Snapshot() signal.DemandSnapshot { return signal.DemandSnapshot{} }

// State is the complete scheduling state. Exactly one direction (Current) is
// green or yellow; every other direction is red.
type State struct {
	Signals [signal.NumDirections]signal.SignalState
	Current signal.Direction
	Next    signal.Direction
	Phase   signal.Phase
	Mode    signal.Mode
	Tick    uint64
}

// PhaseOf returns the phase shown to dir.
func (st State) PhaseOf(dir signal.Direction) signal.Phase {
	if dir == st.Current {
		return st.Phase
	}
	return signal.Red
}

// Display converts the state into the renderer view.
func (st State) Display() signal.DisplayState {
	ds := signal.DisplayState{
		CurrentDirection: st.Current,
		Phase:            st.Phase,
		Mode:             st.Mode,
		Tick:             st.Tick,
	}
	for i, sig := range st.Signals {
		dir := signal.Direction(i)
		ds.AllocatedGreen[i] = sig.AllocatedGreen
		ds.Phases[i] = st.PhaseOf(dir)
		switch ds.Phases[i] {
		case signal.Green:
			ds.Countdown[i] = sig.RemainingGreen
		case signal.Yellow:
			ds.Countdown[i] = sig.RemainingYellow
		default:
			ds.Countdown[i] = sig.RemainingRed
		}
	}
	return ds
}

// Option is a function that applies a dependency override to a `Scheduler`.
type Option func(*Scheduler)

// WithAllocator replaces the default allocator.
func WithAllocator(a Allocator) Option {
	return func(s *Scheduler) {
		s.allocator = a
	}
}

// WithClock replaces the real clock, typically with a fake one in tests.
func WithClock(c clock.WithTicker) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger logr.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithObserver registers an observer before the scheduler starts.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		s.observers.AddObserver(o)
	}
}

// Scheduler is the phase state machine of one intersection.
type Scheduler struct {
	// --- Immutable dependencies (set at construction) ---

	config    Config
	allocator Allocator
	demand    DemandSource
	clock     clock.WithTicker
	logger    logr.Logger
	observers *ObserverManager

	// --- Scheduling state, written only while opMu is held ---

	// opMu serializes Start, Step and Interrupt including observer delivery,
	// so observers see events in order.
	opMu sync.Mutex
	// mu guards state for concurrent readers.
	mu         sync.RWMutex
	state      State
	started    bool
	lastDemand signal.DemandSnapshot
	pending    []func()

	// --- Control surface ---

	// override holds the requested direction, or signal.NoDirection.
	override atomic.Int32
	wake     chan struct{}
	running  atomic.Bool
}

// New creates a Scheduler. A nil demand source behaves as an empty intersection.
func New(config Config, demand DemandSource, opts ...Option) (*Scheduler, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	if demand == nil {
		demand = noDemand{}
	}

	s := &Scheduler{
		config:    config,
		demand:    demand,
		clock:     clock.RealClock{},
		logger:    logr.Discard(),
		observers: NewObserverManager(),
		wake:      make(chan struct{}, 1),
	}
	s.override.Store(int32(signal.NoDirection))

	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithName("signal-scheduler")

	if s.allocator == nil {
		cfg, err := allocator.NewConfig(allocator.WithDefaultGreen(config.DefaultGreen))
		if err != nil {
			return nil, err
		}
		s.allocator = allocator.New(cfg)
	}

	s.resetSignals()
	s.state.Current = signal.Right
	s.state.Next = signal.Down
	s.state.Phase = signal.Red
	s.state.Mode = signal.ModeNormal
	return s, nil
}

// AddObserver registers an observer.
func (s *Scheduler) AddObserver(o Observer) {
	s.observers.AddObserver(o)
}

// RemoveObserver unregisters an observer.
func (s *Scheduler) RemoveObserver(o Observer) {
	s.observers.RemoveObserver(o)
}

// Config returns the timing configuration.
func (s *Scheduler) Config() Config {
	return s.config
}

// Start puts direction 0 on green, or engages a pending override or
// emergency instead. It is idempotent; Run, Step and Interrupt call it
// implicitly.
func (s *Scheduler) Start() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	s.ensureStartedLocked()
	s.mu.Unlock()
	s.flush()
}

// Step advances the state machine by exactly one tick.
func (s *Scheduler) Step() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	s.ensureStartedLocked()
	s.tickLocked()
	display := s.state.Display()
	s.emit(func() { s.observers.NotifyTick(display) })
	s.mu.Unlock()
	s.flush()
}

// Interrupt re-evaluates override and emergency requests without advancing
// time. Run calls it whenever the override slot or the demand flags change.
func (s *Scheduler) Interrupt() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	s.ensureStartedLocked()
	s.evaluateInterruptsLocked()
	s.mu.Unlock()
	s.flush()
}

// Run drives the scheduler until ctx is cancelled: one Step per tick interval
// and an immediate Interrupt whenever the override slot or the demand source's
// emergency flags change. It returns nil on cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return signal.NewSchedulerError(signal.ErrCodeAlreadyRunning, "Run", "scheduler loop is already running")
	}
	defer s.running.Store(false)

	s.logger.Info("Starting signal scheduler loop", "tickInterval", s.config.TickInterval)
	defer s.logger.Info("Signal scheduler loop stopped")

	s.Start()

	ticker := s.clock.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	var demandChanged <-chan struct{}
	if n, ok := s.demand.(ChangeNotifier); ok {
		demandChanged = n.Changed()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			s.Step()
		case <-s.wake:
			s.Interrupt()
		case <-demandChanged:
			s.Interrupt()
		}
	}
}

// SetManualOverride requests that dir be held green until the override is
// cleared. Setting the direction that is already requested is a no-op.
func (s *Scheduler) SetManualOverride(dir signal.Direction) error {
	if !dir.Valid() {
		return signal.NewInvalidDirectionError(int(dir))
	}
	prev := signal.Direction(s.override.Swap(int32(dir)))
	if prev != dir {
		s.logger.Info("Manual override requested", "direction", dir, "previous", prev)
		s.signalWake()
	}
	return nil
}

// ClearManualOverride releases the override. Without an override it does nothing.
func (s *Scheduler) ClearManualOverride() {
	prev := signal.Direction(s.override.Swap(int32(signal.NoDirection)))
	if prev != signal.NoDirection {
		s.logger.Info("Manual override cleared", "direction", prev)
		s.signalWake()
	}
}

// ManualOverride returns the requested override direction, if any.
func (s *Scheduler) ManualOverride() (signal.Direction, bool) {
	dir := signal.Direction(s.override.Load())
	return dir, dir.Valid()
}

// DisplayState returns the renderer view as of the last completed operation.
func (s *Scheduler) DisplayState() signal.DisplayState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Display()
}

// Snapshot returns a copy of the full scheduling state.
func (s *Scheduler) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Scheduler) signalWake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// emit queues an observer notification for delivery once mu is released.
func (s *Scheduler) emit(fn func()) {
	s.pending = append(s.pending, fn)
}

// flush delivers queued notifications. Called with opMu held and mu released.
func (s *Scheduler) flush() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
}

func (s *Scheduler) ensureStartedLocked() {
	if s.started {
		return
	}
	s.started = true
	if s.engageInterruptLocked() {
		return
	}
	s.logger.V(logutil.VERBOSE).Info("Starting normal rotation", "direction", signal.Right)
	s.beginGreenLocked(signal.Right)
}
