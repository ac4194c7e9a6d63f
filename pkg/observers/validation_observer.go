package observers

import (
	"fmt"
	"sync"

	"github.com/samber/lo"

	"github.com/anggasct/trafficflow/pkg/scheduler"
	"github.com/anggasct/trafficflow/pkg/signal"
)

var _ scheduler.ExtendedObserver = (*ValidationObserver)(nil)

// ValidationObserver checks the published phase stream for safety violations:
// disallowed phase transitions and more than one direction off red.
type ValidationObserver struct {
	scheduler.BaseObserver

	phases             [signal.NumDirections]signal.Phase
	served             [signal.NumDirections]bool
	allowedTransitions map[signal.Phase]map[signal.Phase]bool
	violations         []string
	mutex              sync.RWMutex
}

// NewValidationObserver creates a new validation observer with the default
// transition table: red → green, green → yellow or red, yellow → red or green.
// Green → red and yellow → green only happen when an interrupt takes over.
func NewValidationObserver() *ValidationObserver {
	o := &ValidationObserver{
		allowedTransitions: make(map[signal.Phase]map[signal.Phase]bool),
		violations:         make([]string, 0),
	}
	o.AddAllowedTransition(signal.Red, signal.Green)
	o.AddAllowedTransition(signal.Green, signal.Yellow)
	o.AddAllowedTransition(signal.Green, signal.Red)
	o.AddAllowedTransition(signal.Yellow, signal.Red)
	o.AddAllowedTransition(signal.Yellow, signal.Green)
	return o
}

// AddAllowedTransition adds an allowed transition
func (o *ValidationObserver) AddAllowedTransition(from, to signal.Phase) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if _, exists := o.allowedTransitions[from]; !exists {
		o.allowedTransitions[from] = make(map[signal.Phase]bool)
	}
	o.allowedTransitions[from][to] = true
}

// OnPhaseChange validates a phase change
func (o *ValidationObserver) OnPhaseChange(event signal.PhaseEvent) {
	if !event.Direction.Valid() {
		o.addViolation(fmt.Sprintf("Phase change for invalid direction %d", int(event.Direction)))
		return
	}

	o.mutex.Lock()
	defer o.mutex.Unlock()

	from := o.phases[event.Direction]
	// A phase re-announced under a new mode is not a transition.
	if from == event.Phase {
		return
	}
	if !o.allowedTransitions[from][event.Phase] {
		o.violations = append(o.violations, fmt.Sprintf(
			"Invalid transition of %s from %s to %s at tick %d", event.Direction, from, event.Phase, event.Tick))
	}

	o.phases[event.Direction] = event.Phase
	if event.Phase == signal.Green {
		o.served[event.Direction] = true
	}

	active := lo.CountBy(o.phases[:], func(p signal.Phase) bool { return p != signal.Red })
	if active > 1 {
		o.violations = append(o.violations, fmt.Sprintf(
			"%d directions off red after %s turned %s at tick %d", active, event.Direction, event.Phase, event.Tick))
	}
}

// OnTick validates the display state
func (o *ValidationObserver) OnTick(state signal.DisplayState) {
	for _, dir := range signal.Directions() {
		if state.Countdown[dir] < 0 {
			o.addViolation(fmt.Sprintf("Negative countdown %d for %s at tick %d", state.Countdown[dir], dir, state.Tick))
		}
	}
}

// OnError records errors as violations
func (o *ValidationObserver) OnError(err error) {
	o.addViolation(fmt.Sprintf("Error occurred: %v", err))
}

func (o *ValidationObserver) addViolation(message string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.violations = append(o.violations, message)
}

// GetViolations returns all validation violations
func (o *ValidationObserver) GetViolations() []string {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	result := make([]string, len(o.violations))
	copy(result, o.violations)
	return result
}

// GetUnservedDirections returns directions that never turned green
func (o *ValidationObserver) GetUnservedDirections() []signal.Direction {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	return lo.Filter(signal.Directions(), func(dir signal.Direction, _ int) bool {
		return !o.served[dir]
	})
}

// HasViolations returns whether any violations occurred
func (o *ValidationObserver) HasViolations() bool {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return len(o.violations) > 0
}

// Reset resets the validation state
func (o *ValidationObserver) Reset() {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.phases = [signal.NumDirections]signal.Phase{}
	o.served = [signal.NumDirections]bool{}
	o.violations = make([]string, 0)
}
