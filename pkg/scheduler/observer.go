package scheduler

import (
	"fmt"
	"sync"

	"github.com/anggasct/trafficflow/pkg/signal"
)

// Observer receives phase changes. The motion subsystem implements it to move
// the binding stop line of a direction when its phase turns yellow or red.
type Observer interface {
	// OnPhaseChange is called after a direction changes phase
	OnPhaseChange(event signal.PhaseEvent)
}

// ExtendedObserver provides additional optional observation methods
type ExtendedObserver interface {
	Observer

	// OnModeChange is called when the scheduler enters or leaves an interrupt
	OnModeChange(from, to signal.Mode, direction signal.Direction)

	// OnAllocation is called each time the allocator is consulted
	OnAllocation(demand signal.DemandSnapshot, green [signal.NumDirections]int)

	// OnTick is called at the end of every tick with the refreshed display state
	OnTick(state signal.DisplayState)

	// OnError is called for rejected demand and recovered observer panics
	OnError(err error)
}

type phaseChangeFunc struct {
	fn func(event signal.PhaseEvent)
}

func (o *phaseChangeFunc) OnPhaseChange(event signal.PhaseEvent) {
	o.fn(event)
}

// NewPhaseChangeObserver adapts a plain function to the Observer interface.
// The returned value can be passed to RemoveObserver.
func NewPhaseChangeObserver(fn func(event signal.PhaseEvent)) Observer {
	return &phaseChangeFunc{fn: fn}
}

// BaseObserver provides a default implementation with no-op methods
type BaseObserver struct{}

// OnPhaseChange implements the required Observer method
func (o *BaseObserver) OnPhaseChange(event signal.PhaseEvent) {}

// OnModeChange implements the optional ExtendedObserver method
func (o *BaseObserver) OnModeChange(from, to signal.Mode, direction signal.Direction) {}

// OnAllocation implements the optional ExtendedObserver method
func (o *BaseObserver) OnAllocation(demand signal.DemandSnapshot, green [signal.NumDirections]int) {}

// OnTick implements the optional ExtendedObserver method
func (o *BaseObserver) OnTick(state signal.DisplayState) {}

// OnError implements the optional ExtendedObserver method
func (o *BaseObserver) OnError(err error) {}

// ObserverManager manages a collection of observers
type ObserverManager struct {
	mutex     sync.RWMutex
	observers []Observer
}

// NewObserverManager creates a new observer manager
func NewObserverManager() *ObserverManager {
	return &ObserverManager{
		observers: make([]Observer, 0),
	}
}

// AddObserver adds an observer to the manager
func (om *ObserverManager) AddObserver(observer Observer) {
	om.mutex.Lock()
	defer om.mutex.Unlock()
	om.observers = append(om.observers, observer)
}

// RemoveObserver removes an observer from the manager
func (om *ObserverManager) RemoveObserver(observer Observer) {
	om.mutex.Lock()
	defer om.mutex.Unlock()
	for i, obs := range om.observers {
		if obs == observer {
			om.observers = append(om.observers[:i], om.observers[i+1:]...)
			break
		}
	}
}

func (om *ObserverManager) snapshot() []Observer {
	om.mutex.RLock()
	defer om.mutex.RUnlock()
	observers := make([]Observer, len(om.observers))
	copy(observers, om.observers)
	return observers
}

// guard runs fn and reports a panic to the observer's OnError, if it has one
func guard(observer Observer, method string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if extObs, ok := observer.(ExtendedObserver); ok {
				func() {
					defer func() { recover() }()
					extObs.OnError(fmt.Errorf("observer panic in %s: %v", method, r))
				}()
			}
		}
	}()
	fn()
}

// NotifyPhaseChange notifies all observers of a phase change
func (om *ObserverManager) NotifyPhaseChange(event signal.PhaseEvent) {
	for _, observer := range om.snapshot() {
		observer := observer
		guard(observer, "OnPhaseChange", func() { observer.OnPhaseChange(event) })
	}
}

// NotifyModeChange notifies all observers of a mode change
func (om *ObserverManager) NotifyModeChange(from, to signal.Mode, direction signal.Direction) {
	for _, observer := range om.snapshot() {
		if extObs, ok := observer.(ExtendedObserver); ok {
			guard(observer, "OnModeChange", func() { extObs.OnModeChange(from, to, direction) })
		}
	}
}

// NotifyAllocation notifies all observers of an allocation
func (om *ObserverManager) NotifyAllocation(demand signal.DemandSnapshot, green [signal.NumDirections]int) {
	for _, observer := range om.snapshot() {
		if extObs, ok := observer.(ExtendedObserver); ok {
			guard(observer, "OnAllocation", func() { extObs.OnAllocation(demand, green) })
		}
	}
}

// NotifyTick notifies all observers that a tick completed
func (om *ObserverManager) NotifyTick(state signal.DisplayState) {
	for _, observer := range om.snapshot() {
		if extObs, ok := observer.(ExtendedObserver); ok {
			guard(observer, "OnTick", func() { extObs.OnTick(state) })
		}
	}
}

// NotifyError notifies all observers of errors
func (om *ObserverManager) NotifyError(err error) {
	for _, observer := range om.snapshot() {
		if extObs, ok := observer.(ExtendedObserver); ok {
			func() {
				defer func() { recover() }()
				extObs.OnError(err)
			}()
		}
	}
}
