package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/require"
	testclock "k8s.io/utils/clock/testing"

	"github.com/anggasct/trafficflow/pkg/demand"
	"github.com/anggasct/trafficflow/pkg/signal"
)

// TestObserver is a recording observer that captures every notification
type TestObserver struct {
	mutex       sync.RWMutex
	Phases      []signal.PhaseEvent
	Modes       []ModeEvent
	Allocations []AllocationEvent
	Ticks       []signal.DisplayState
	Errors      []error
}

type ModeEvent struct {
	From      signal.Mode
	To        signal.Mode
	Direction signal.Direction
}

type AllocationEvent struct {
	Demand signal.DemandSnapshot
	Green  [signal.NumDirections]int
}

var _ ExtendedObserver = (*TestObserver)(nil)

// NewTestObserver creates a new test observer
func NewTestObserver() *TestObserver {
	return &TestObserver{}
}

func (o *TestObserver) OnPhaseChange(event signal.PhaseEvent) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Phases = append(o.Phases, event)
}

func (o *TestObserver) OnModeChange(from, to signal.Mode, direction signal.Direction) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Modes = append(o.Modes, ModeEvent{From: from, To: to, Direction: direction})
}

func (o *TestObserver) OnAllocation(demand signal.DemandSnapshot, green [signal.NumDirections]int) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Allocations = append(o.Allocations, AllocationEvent{Demand: demand, Green: green})
}

func (o *TestObserver) OnTick(state signal.DisplayState) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Ticks = append(o.Ticks, state)
}

func (o *TestObserver) OnError(err error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Errors = append(o.Errors, err)
}

func (o *TestObserver) Reset() {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Phases = nil
	o.Modes = nil
	o.Allocations = nil
	o.Ticks = nil
	o.Errors = nil
}

func (o *TestObserver) PhaseEvents() []signal.PhaseEvent {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return append([]signal.PhaseEvent(nil), o.Phases...)
}

func (o *TestObserver) ModeEvents() []ModeEvent {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return append([]ModeEvent(nil), o.Modes...)
}

func (o *TestObserver) ErrorCount() int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return len(o.Errors)
}

func (o *TestObserver) TickCount() int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return len(o.Ticks)
}

// LastPhase returns the most recent phase event, or nil
func (o *TestObserver) LastPhase() *signal.PhaseEvent {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	if len(o.Phases) == 0 {
		return nil
	}
	event := o.Phases[len(o.Phases)-1]
	return &event
}

// newTestScheduler builds a scheduler with default timings on top of a fresh
// demand board, a fake clock and a recording observer.
func newTestScheduler(t *testing.T, opts ...Option) (*Scheduler, *demand.Board, *TestObserver, *testclock.FakeClock) {
	t.Helper()
	config, err := NewConfig()
	require.NoError(t, err)

	board := demand.NewBoard()
	observer := NewTestObserver()
	fakeClock := testclock.NewFakeClock(time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))

	base := []Option{
		WithLogger(testr.New(t)),
		WithClock(fakeClock),
		WithObserver(observer),
	}
	s, err := New(*config, board, append(base, opts...)...)
	require.NoError(t, err)
	return s, board, observer, fakeClock
}

// stepN advances the scheduler by n ticks
func stepN(s *Scheduler, n int) {
	for i := 0; i < n; i++ {
		s.Step()
	}
}

// yellowTicks steps until dir has shown yellow and moved on, returning the
// number of ticks that ended with dir on yellow
func yellowTicks(s *Scheduler, dir signal.Direction) int {
	n := 0
	for i := 0; i < 200; i++ {
		s.Step()
		st := s.Snapshot()
		if st.Current == dir && st.Phase == signal.Yellow {
			n++
			continue
		}
		if n > 0 {
			return n
		}
	}
	return n
}

// phaseTrace renders phase events as "direction phase" pairs
func phaseTrace(events []signal.PhaseEvent) []string {
	trace := make([]string, 0, len(events))
	for _, e := range events {
		trace = append(trace, e.Direction.String()+" "+e.Phase.String())
	}
	return trace
}

// stepUntil steps until cond holds, failing the test after limit ticks
func stepUntil(t *testing.T, s *Scheduler, limit int, cond func(State) bool) {
	t.Helper()
	for i := 0; i < limit; i++ {
		if cond(s.Snapshot()) {
			return
		}
		s.Step()
	}
	require.True(t, cond(s.Snapshot()), "condition not reached within %d ticks", limit)
}

// AssertActive checks the active direction, its phase and the mode
func AssertActive(t *testing.T, s *Scheduler, dir signal.Direction, phase signal.Phase, mode signal.Mode) {
	t.Helper()
	st := s.Snapshot()
	if st.Current != dir {
		t.Errorf("Expected current direction %s, got %s", dir, st.Current)
	}
	if st.Phase != phase {
		t.Errorf("Expected phase %s, got %s", phase, st.Phase)
	}
	if st.Mode != mode {
		t.Errorf("Expected mode %s, got %s", mode, st.Mode)
	}
}

// AssertSingleActive checks that at most one direction shows green or yellow
func AssertSingleActive(t *testing.T, st State) {
	t.Helper()
	active := 0
	for _, dir := range signal.Directions() {
		if st.PhaseOf(dir) != signal.Red {
			active++
		}
		sig := st.Signals[dir]
		if sig.RemainingRed < 0 || sig.RemainingYellow < 0 || sig.RemainingGreen < 0 {
			t.Errorf("Negative countdown on %s: %+v", dir, sig)
		}
	}
	if active > 1 {
		t.Errorf("Expected at most one active direction, got %d", active)
	}
}

// AssertDefaultTimings checks that every direction carries its default timing
func AssertDefaultTimings(t *testing.T, s *Scheduler) {
	t.Helper()
	st := s.Snapshot()
	config := s.Config()
	for _, dir := range signal.Directions() {
		sig := st.Signals[dir]
		if sig.AllocatedGreen != config.DefaultGreen[dir] {
			t.Errorf("Expected %s allocated green %d, got %d", dir, config.DefaultGreen[dir], sig.AllocatedGreen)
		}
		if sig.RemainingYellow != config.DefaultYellow {
			t.Errorf("Expected %s yellow %d, got %d", dir, config.DefaultYellow, sig.RemainingYellow)
		}
	}
}
