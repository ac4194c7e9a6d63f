package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anggasct/trafficflow/pkg/signal"
)

func TestManualOverride_SwitchesImmediatelyAndHolds(t *testing.T) {
	s, _, observer, _ := newTestScheduler(t)
	s.Start()

	// Three ticks into the green of direction 1.
	stepN(s, 15+3)
	AssertActive(t, s, signal.Down, signal.Green, signal.ModeNormal)
	require.Equal(t, 7, s.Snapshot().Signals[signal.Down].RemainingGreen)
	observer.Reset()

	require.NoError(t, s.SetManualOverride(signal.Up))
	s.Interrupt()
	AssertActive(t, s, signal.Up, signal.Green, signal.ModeManualOverride)

	st := s.Snapshot()
	assert.Equal(t, signal.Red, st.PhaseOf(signal.Down))
	for _, dir := range []signal.Direction{signal.Right, signal.Down, signal.Left} {
		assert.Equal(t, s.Config().DefaultRed, st.Signals[dir].RemainingRed)
	}

	events := observer.PhaseEvents()
	require.Len(t, events, 2)
	assert.Equal(t, signal.Down, events[0].Direction)
	assert.Equal(t, signal.Red, events[0].Phase)
	assert.Equal(t, signal.Up, events[1].Direction)
	assert.Equal(t, signal.Green, events[1].Phase)
	assert.Equal(t, []ModeEvent{{From: signal.ModeNormal, To: signal.ModeManualOverride, Direction: signal.Up}}, observer.ModeEvents())

	held := st.Signals[signal.Up].RemainingGreen
	stepN(s, 500)
	AssertActive(t, s, signal.Up, signal.Green, signal.ModeManualOverride)
	assert.Equal(t, held, s.Snapshot().Signals[signal.Up].RemainingGreen, "manual override holds without countdown")
}

func TestManualOverride_ClearResumesAtDirectionZero(t *testing.T) {
	s, _, observer, _ := newTestScheduler(t)
	s.Start()
	stepN(s, 18)

	require.NoError(t, s.SetManualOverride(signal.Up))
	s.Interrupt()
	stepN(s, 7)
	observer.Reset()

	s.ClearManualOverride()
	_, set := s.ManualOverride()
	assert.False(t, set)

	s.Interrupt()
	AssertActive(t, s, signal.Up, signal.Yellow, signal.ModeManualOverride)
	last := observer.LastPhase()
	require.NotNil(t, last)
	assert.Equal(t, signal.Yellow, last.Phase)
	assert.Equal(t, 545.0, last.StopLine)

	stepN(s, s.Config().DefaultYellow)
	AssertActive(t, s, signal.Right, signal.Green, signal.ModeNormal)
	assert.Equal(t, signal.Down, s.Snapshot().Next)
	AssertDefaultTimings(t, s)
	assert.Equal(t, 10, s.Snapshot().Signals[signal.Right].RemainingGreen)

	modes := observer.ModeEvents()
	require.Len(t, modes, 1)
	assert.Equal(t, ModeEvent{From: signal.ModeManualOverride, To: signal.ModeNormal, Direction: signal.Up}, modes[0])
}

func TestManualOverride_EngagesOnNextStepWithoutInterrupt(t *testing.T) {
	s, _, _, _ := newTestScheduler(t)
	s.Start()
	stepN(s, 2)

	require.NoError(t, s.SetManualOverride(signal.Left))
	s.Step()
	AssertActive(t, s, signal.Left, signal.Green, signal.ModeManualOverride)
}

func TestClearManualOverride_IsNoOpWithoutOverride(t *testing.T) {
	s, _, observer, _ := newTestScheduler(t)
	s.Start()
	stepN(s, 3)
	before := s.Snapshot()
	observer.Reset()

	s.ClearManualOverride()
	s.ClearManualOverride()
	assert.Len(t, s.wake, 0, "clearing nothing must not wake the loop")

	s.Interrupt()
	assert.Equal(t, before, s.Snapshot())
	assert.Empty(t, observer.PhaseEvents())
	assert.Empty(t, observer.ModeEvents())
}

func TestSetManualOverride_RejectsInvalidDirection(t *testing.T) {
	s, _, _, _ := newTestScheduler(t)

	err := s.SetManualOverride(signal.Direction(4))
	require.Error(t, err)
	assert.True(t, signal.IsDirectionError(err))
	assert.Equal(t, signal.ErrCodeInvalidDirection, signal.GetErrorCode(err))

	err = s.SetManualOverride(signal.NoDirection)
	require.Error(t, err)

	_, set := s.ManualOverride()
	assert.False(t, set)
}

func TestSetManualOverride_SameDirectionSignalsOnce(t *testing.T) {
	s, _, _, _ := newTestScheduler(t)

	require.NoError(t, s.SetManualOverride(signal.Down))
	<-s.wake
	require.NoError(t, s.SetManualOverride(signal.Down))
	assert.Len(t, s.wake, 0)

	dir, set := s.ManualOverride()
	assert.True(t, set)
	assert.Equal(t, signal.Down, dir)
}

func TestManualOverride_SwitchingDirectionRunsYellowThenEngagesNewDirection(t *testing.T) {
	s, _, _, _ := newTestScheduler(t)
	s.Start()

	require.NoError(t, s.SetManualOverride(signal.Down))
	s.Interrupt()
	AssertActive(t, s, signal.Down, signal.Green, signal.ModeManualOverride)

	require.NoError(t, s.SetManualOverride(signal.Left))
	s.Interrupt()
	AssertActive(t, s, signal.Down, signal.Yellow, signal.ModeManualOverride)

	stepN(s, s.Config().DefaultYellow)
	AssertActive(t, s, signal.Left, signal.Green, signal.ModeManualOverride)
}

func TestManualOverride_YellowIsNotInterrupted(t *testing.T) {
	s, board, _, _ := newTestScheduler(t)
	s.Start()

	require.NoError(t, s.SetManualOverride(signal.Down))
	s.Interrupt()
	s.ClearManualOverride()
	s.Interrupt()
	AssertActive(t, s, signal.Down, signal.Yellow, signal.ModeManualOverride)

	require.NoError(t, board.SetEmergency(signal.Up, true))
	require.NoError(t, s.SetManualOverride(signal.Left))
	s.Interrupt()
	s.Step()
	AssertActive(t, s, signal.Down, signal.Yellow, signal.ModeManualOverride)
	assert.Equal(t, s.Config().DefaultYellow-1, s.Snapshot().Signals[signal.Down].RemainingYellow)

	stepN(s, s.Config().DefaultYellow-1)
	AssertActive(t, s, signal.Left, signal.Green, signal.ModeManualOverride)
}

func TestEmergency_PreemptsHoldsAndResumes(t *testing.T) {
	s, board, observer, _ := newTestScheduler(t)
	require.NoError(t, board.Update(signal.DemandSnapshot{
		WaitingCounts: [signal.NumDirections]int{5, 5, 5, 5},
	}))
	s.Start()
	stepN(s, 3)
	observer.Reset()

	require.NoError(t, board.SetEmergency(signal.Left, true))
	s.Interrupt()
	AssertActive(t, s, signal.Left, signal.Green, signal.ModeEmergencyPreempt)

	st := s.Snapshot()
	assert.Equal(t, 25, st.Signals[signal.Left].AllocatedGreen)
	assert.Equal(t, 25, st.Signals[signal.Left].RemainingGreen)
	assert.Equal(t, s.Config().DefaultRed, st.Signals[signal.Right].RemainingRed)

	stepN(s, 40)
	AssertActive(t, s, signal.Left, signal.Green, signal.ModeEmergencyPreempt)
	assert.Equal(t, 0, s.Snapshot().Signals[signal.Left].RemainingGreen, "countdown clamps at zero while held")
	assert.Equal(t, s.Config().DefaultRed, s.Snapshot().Signals[signal.Up].RemainingRed)

	require.NoError(t, board.SetEmergency(signal.Left, false))
	s.Step()
	AssertActive(t, s, signal.Left, signal.Yellow, signal.ModeEmergencyPreempt)
	assert.Equal(t, s.Config().DefaultYellow, s.Snapshot().Signals[signal.Left].RemainingYellow,
		"the yellow begun by a tick runs its full length")

	stepN(s, s.Config().DefaultYellow-1)
	AssertActive(t, s, signal.Left, signal.Yellow, signal.ModeEmergencyPreempt)
	s.Step()
	AssertActive(t, s, signal.Right, signal.Green, signal.ModeNormal)
	AssertDefaultTimings(t, s)

	assert.Equal(t, []ModeEvent{
		{From: signal.ModeNormal, To: signal.ModeEmergencyPreempt, Direction: signal.Left},
		{From: signal.ModeEmergencyPreempt, To: signal.ModeNormal, Direction: signal.Left},
	}, observer.ModeEvents())
}

func TestEmergency_InterruptsYellowInProgress(t *testing.T) {
	s, board, _, _ := newTestScheduler(t)
	s.Start()
	stepN(s, 11)
	AssertActive(t, s, signal.Right, signal.Yellow, signal.ModeNormal)

	require.NoError(t, board.SetEmergency(signal.Up, true))
	s.Step()
	AssertActive(t, s, signal.Up, signal.Green, signal.ModeEmergencyPreempt)
	assert.Equal(t, signal.Red, s.Snapshot().PhaseOf(signal.Right))
}

func TestEmergency_LowestIndexWins(t *testing.T) {
	s, board, observer, _ := newTestScheduler(t)
	require.NoError(t, board.SetEmergency(signal.Up, true))
	require.NoError(t, board.SetEmergency(signal.Down, true))

	s.Start()
	AssertActive(t, s, signal.Down, signal.Green, signal.ModeEmergencyPreempt)

	// Once Down clears, the pending emergency on Up is served after the reset
	// without direction 0 flashing green in between.
	observer.Reset()
	require.NoError(t, board.SetEmergency(signal.Down, false))
	stepN(s, 1+s.Config().DefaultYellow)
	AssertActive(t, s, signal.Up, signal.Green, signal.ModeEmergencyPreempt)

	assert.Equal(t, []string{"down yellow", "down red", "up green"}, phaseTrace(observer.PhaseEvents()))
	assert.Equal(t, []ModeEvent{
		{From: signal.ModeEmergencyPreempt, To: signal.ModeNormal, Direction: signal.Down},
		{From: signal.ModeNormal, To: signal.ModeEmergencyPreempt, Direction: signal.Up},
	}, observer.ModeEvents())
}

func TestManualOverride_BeatsEmergency(t *testing.T) {
	s, board, observer, _ := newTestScheduler(t)
	s.Start()

	require.NoError(t, board.SetEmergency(signal.Left, true))
	s.Interrupt()
	AssertActive(t, s, signal.Left, signal.Green, signal.ModeEmergencyPreempt)
	observer.Reset()

	require.NoError(t, s.SetManualOverride(signal.Down))
	s.Interrupt()
	AssertActive(t, s, signal.Down, signal.Green, signal.ModeManualOverride)
	assert.Equal(t, []ModeEvent{
		{From: signal.ModeEmergencyPreempt, To: signal.ModeManualOverride, Direction: signal.Down},
	}, observer.ModeEvents())

	stepN(s, 20)
	AssertActive(t, s, signal.Down, signal.Green, signal.ModeManualOverride)

	// Releasing the override goes through the reset and picks the emergency up again.
	observer.Reset()
	s.ClearManualOverride()
	s.Interrupt()
	stepN(s, s.Config().DefaultYellow)
	AssertActive(t, s, signal.Left, signal.Green, signal.ModeEmergencyPreempt)
	assert.Equal(t, []string{"down yellow", "down red", "left green"}, phaseTrace(observer.PhaseEvents()))
}

func TestStart_PendingEmergencyEngagesWithoutGreenForDirectionZero(t *testing.T) {
	s, board, observer, _ := newTestScheduler(t)
	require.NoError(t, board.SetEmergency(signal.Up, true))

	s.Start()
	AssertActive(t, s, signal.Up, signal.Green, signal.ModeEmergencyPreempt)
	assert.Equal(t, []string{"up green"}, phaseTrace(observer.PhaseEvents()))
}

func TestEmergency_PolledSourceRunsFullYellow(t *testing.T) {
	source := &staticDemand{snapshot: signal.DemandSnapshot{
		WaitingCounts: [signal.NumDirections]int{5, 5, 5, 5},
	}}
	config, err := NewConfig()
	require.NoError(t, err)
	observer := NewTestObserver()
	s, err := New(*config, source, WithObserver(observer))
	require.NoError(t, err)

	s.Start()
	assert.Equal(t, config.DefaultYellow, yellowTicks(s, signal.Right), "normal rotation yellow")

	source.snapshot.EmergencyWaiting[signal.Left] = true
	s.Step()
	AssertActive(t, s, signal.Left, signal.Green, signal.ModeEmergencyPreempt)
	st := s.Snapshot()
	assert.Equal(t, st.Signals[signal.Left].AllocatedGreen, st.Signals[signal.Left].RemainingGreen,
		"the detecting tick does not count against the new green")

	stepN(s, 2)
	observer.Reset()
	source.snapshot.EmergencyWaiting[signal.Left] = false
	assert.Equal(t, config.DefaultYellow, yellowTicks(s, signal.Left), "emergency release yellow")
	AssertActive(t, s, signal.Right, signal.Green, signal.ModeNormal)

	events := observer.PhaseEvents()
	require.Equal(t, []string{"left yellow", "left red", "right green"}, phaseTrace(events))
	assert.Equal(t, uint64(config.DefaultYellow), events[1].Tick-events[0].Tick)
}

func TestManualOverride_ReleaseNoticedByTickRunsFullYellow(t *testing.T) {
	s, _, _, _ := newTestScheduler(t)
	s.Start()

	require.NoError(t, s.SetManualOverride(signal.Down))
	s.Step()
	AssertActive(t, s, signal.Down, signal.Green, signal.ModeManualOverride)
	stepN(s, 3)

	s.ClearManualOverride()
	assert.Equal(t, s.Config().DefaultYellow, yellowTicks(s, signal.Down))
	AssertActive(t, s, signal.Right, signal.Green, signal.ModeNormal)
}

func TestInterrupts_KeepSingleActiveDirection(t *testing.T) {
	s, board, _, _ := newTestScheduler(t)
	s.Start()

	script := map[int]func(){
		7:   func() { _ = board.SetEmergency(signal.Left, true) },
		30:  func() { _ = s.SetManualOverride(signal.Up) },
		45:  func() { _ = board.SetEmergency(signal.Left, false) },
		60:  func() { _ = s.SetManualOverride(signal.Right) },
		75:  func() { s.ClearManualOverride() },
		100: func() { _ = board.SetWaiting(signal.Down, 12) },
	}
	for i := 0; i < 200; i++ {
		if fn, ok := script[i]; ok {
			fn()
		}
		s.Step()
		AssertSingleActive(t, s.Snapshot())
	}
	assert.Equal(t, signal.ModeNormal, s.Snapshot().Mode)
}
