package scheduler

import (
	logutil "github.com/anggasct/trafficflow/pkg/logging"
	"github.com/anggasct/trafficflow/pkg/signal"
)

// All methods in this file require mu to be held for writing.

// resetSignals puts every direction back on its default timings.
func (s *Scheduler) resetSignals() {
	for i := range s.state.Signals {
		s.state.Signals[i] = signal.SignalState{
			Direction:       signal.Direction(i),
			RemainingRed:    s.config.DefaultRed,
			RemainingYellow: s.config.DefaultYellow,
			RemainingGreen:  s.config.DefaultGreen[i],
			AllocatedGreen:  s.config.DefaultGreen[i],
		}
	}
}

// tickLocked advances time by one unit. Interrupts are evaluated before the
// countdown so a request is honored within the tick it was observed in. A
// phase begun by that evaluation starts counting on the next tick.
func (s *Scheduler) tickLocked() {
	s.state.Tick++

	if s.state.Mode == signal.ModeNormal {
		for i := range s.state.Signals {
			if signal.Direction(i) != s.state.Current {
				s.state.Signals[i].RemainingRed = countDown(s.state.Signals[i].RemainingRed)
			}
		}
	}

	if !s.evaluateInterruptsLocked() {
		s.countDownActiveLocked()
	}

	if logger := s.logger.V(logutil.TRACE); logger.Enabled() {
		sig := s.state.Signals[s.state.Current]
		logger.Info("Tick", "tick", s.state.Tick, "mode", s.state.Mode, "direction", s.state.Current,
			"phase", s.state.Phase, "green", sig.RemainingGreen, "yellow", sig.RemainingYellow)
	}
}

func (s *Scheduler) countDownActiveLocked() {
	active := &s.state.Signals[s.state.Current]
	switch s.state.Phase {
	case signal.Green:
		// A manual override holds green without a countdown.
		if s.state.Mode == signal.ModeManualOverride {
			return
		}
		active.RemainingGreen = countDown(active.RemainingGreen)
		// An emergency holds green at zero until the vehicle is gone.
		if active.RemainingGreen == 0 && s.state.Mode == signal.ModeNormal {
			s.beginYellowLocked()
		}
	case signal.Yellow:
		active.RemainingYellow = countDown(active.RemainingYellow)
		if active.RemainingYellow > 0 {
			return
		}
		if s.state.Mode == signal.ModeNormal {
			s.advanceLocked()
		} else {
			s.resetAndResumeNormalLocked()
		}
	}
}

// evaluateInterruptsLocked applies the interrupt precedence: a manual override
// first, an emergency only when no override is set. The yellow phase that ends
// a manual override is never interrupted. It reports whether a new phase began.
func (s *Scheduler) evaluateInterruptsLocked() bool {
	override := signal.Direction(s.override.Load())

	switch s.state.Mode {
	case signal.ModeManualOverride:
		if s.state.Phase == signal.Green && override != s.state.Current {
			s.logger.Info("Releasing manual override", "direction", s.state.Current, "requested", override)
			s.beginYellowLocked()
			return true
		}
		return false
	case signal.ModeEmergencyPreempt:
		if override.Valid() {
			s.enterManualOverrideLocked(override)
			return true
		}
		if s.state.Phase == signal.Green && !s.readDemandLocked().HasEmergency(s.state.Current) {
			s.logger.Info("Emergency cleared", "direction", s.state.Current)
			s.beginYellowLocked()
			return true
		}
		return false
	default:
		return s.engageInterruptLocked()
	}
}

// engageInterruptLocked leaves normal rotation for a pending override or
// emergency, if there is one.
func (s *Scheduler) engageInterruptLocked() bool {
	if override := signal.Direction(s.override.Load()); override.Valid() {
		s.enterManualOverrideLocked(override)
		return true
	}
	demand := s.readDemandLocked()
	if dir, ok := demand.FirstEmergency(); ok {
		s.enterEmergencyLocked(dir, demand)
		return true
	}
	return false
}

// beginGreenLocked makes dir the active direction of the normal rotation. The
// allocator is consulted here, and idle reds are re-derived from the timing
// just committed to dir.
func (s *Scheduler) beginGreenLocked(dir signal.Direction) {
	green := s.allocateLocked(s.readDemandLocked())

	s.state.Current = dir
	s.state.Next = dir.Next()
	s.state.Phase = signal.Green

	idleRed := green[dir] + s.config.DefaultYellow
	for i := range s.state.Signals {
		sig := &s.state.Signals[i]
		if signal.Direction(i) == dir {
			sig.RemainingGreen = green[dir]
			sig.RemainingYellow = s.config.DefaultYellow
			sig.RemainingRed = 0
			continue
		}
		sig.RemainingRed = idleRed
	}

	s.logger.V(logutil.DEBUG).Info("Green", "direction", dir, "green", green[dir], "next", s.state.Next)
	s.emitPhaseLocked(dir, signal.Green)
}

func (s *Scheduler) beginYellowLocked() {
	dir := s.state.Current
	sig := &s.state.Signals[dir]
	sig.RemainingGreen = 0
	sig.RemainingYellow = s.config.DefaultYellow
	s.state.Phase = signal.Yellow

	s.logger.V(logutil.DEBUG).Info("Yellow", "direction", dir, "mode", s.state.Mode, "stopLine", s.config.StopLines[dir])
	s.emitPhaseLocked(dir, signal.Yellow)
}

// advanceLocked ends the yellow of the active direction and hands green to the
// next one in the rotation.
func (s *Scheduler) advanceLocked() {
	dir := s.state.Current
	s.state.Signals[dir].RemainingYellow = s.config.DefaultYellow
	s.state.Phase = signal.Red
	s.emitPhaseLocked(dir, signal.Red)

	s.beginGreenLocked(s.state.Next)
}

func (s *Scheduler) enterEmergencyLocked(dir signal.Direction, demand signal.DemandSnapshot) {
	green := s.allocateLocked(demand)
	s.holdLocked(dir, signal.ModeEmergencyPreempt, green[dir])
}

func (s *Scheduler) enterManualOverrideLocked(dir signal.Direction) {
	s.holdLocked(dir, signal.ModeManualOverride, s.state.Signals[dir].AllocatedGreen)
}

// holdLocked switches straight to green for dir under an interrupt mode. Every
// other direction is forced to red on default timings.
func (s *Scheduler) holdLocked(dir signal.Direction, mode signal.Mode, green int) {
	prev, prevPhase, from := s.state.Current, s.state.Phase, s.state.Mode

	if prev != dir && prevPhase != signal.Red {
		s.state.Phase = signal.Red
		s.emitPhaseLocked(prev, signal.Red)
	}

	for i := range s.state.Signals {
		sig := &s.state.Signals[i]
		if signal.Direction(i) == dir {
			sig.RemainingGreen = green
			sig.RemainingYellow = s.config.DefaultYellow
			sig.RemainingRed = 0
			continue
		}
		sig.RemainingRed = s.config.DefaultRed
		sig.RemainingYellow = s.config.DefaultYellow
	}

	s.state.Current = dir
	s.state.Next = signal.Right
	s.state.Phase = signal.Green
	s.state.Mode = mode

	s.logger.Info("Interrupting rotation", "mode", mode, "from", from, "direction", dir, "previous", prev)
	if from != mode {
		s.emit(func() { s.observers.NotifyModeChange(from, mode, dir) })
	}
	s.emitPhaseLocked(dir, signal.Green)
}

// resetAndResumeNormalLocked is the single recovery path of both interrupt
// classes: all directions back to defaults, normal rotation from direction 0.
// A request already pending takes over before direction 0 is given green.
func (s *Scheduler) resetAndResumeNormalLocked() {
	held, from := s.state.Current, s.state.Mode

	s.state.Phase = signal.Red
	s.emitPhaseLocked(held, signal.Red)

	s.resetSignals()
	s.state.Mode = signal.ModeNormal
	s.logger.Info("Resuming normal rotation", "from", from, "held", held)
	s.emit(func() { s.observers.NotifyModeChange(from, signal.ModeNormal, held) })

	s.state.Current = signal.Right
	s.state.Next = signal.Down
	if s.engageInterruptLocked() {
		return
	}
	s.beginGreenLocked(signal.Right)
}

// readDemandLocked pulls a fresh snapshot. A malformed snapshot is reported and
// the last valid one is used instead.
func (s *Scheduler) readDemandLocked() signal.DemandSnapshot {
	demand := s.demand.Snapshot()
	if err := demand.Validate(); err != nil {
		s.logger.Error(err, "Rejected demand snapshot, reusing the last valid one")
		s.emit(func() { s.observers.NotifyError(err) })
		return s.lastDemand
	}
	s.lastDemand = demand
	return demand
}

// allocateLocked runs the allocator and caches every direction's share.
func (s *Scheduler) allocateLocked(demand signal.DemandSnapshot) [signal.NumDirections]int {
	green := s.allocator.Allocate(demand)
	for i := range s.state.Signals {
		s.state.Signals[i].AllocatedGreen = green[i]
	}
	s.emit(func() { s.observers.NotifyAllocation(demand, green) })
	return green
}

func (s *Scheduler) emitPhaseLocked(dir signal.Direction, phase signal.Phase) {
	event := signal.NewPhaseEvent(dir, phase, s.config.StopLines[dir], s.state.Mode, s.state.Tick, s.clock.Now())
	s.emit(func() { s.observers.NotifyPhaseChange(event) })
}

func countDown(v int) int {
	if v > 0 {
		return v - 1
	}
	return 0
}
