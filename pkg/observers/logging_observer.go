// Package observers provides observers for monitoring the signal scheduler
package observers

import (
	"github.com/go-logr/logr"

	logutil "github.com/anggasct/trafficflow/pkg/logging"
	"github.com/anggasct/trafficflow/pkg/scheduler"
	"github.com/anggasct/trafficflow/pkg/signal"
)

var _ scheduler.ExtendedObserver = (*LoggingObserver)(nil)

// LoggingObserver logs scheduler events. Mode changes are logged at the base
// level, phase changes at DEBUG, allocations at VERBOSE and ticks at TRACE.
type LoggingObserver struct {
	logger logr.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger logr.Logger, name string) *LoggingObserver {
	if name != "" {
		logger = logger.WithName(name)
	}
	return &LoggingObserver{logger: logger}
}

// OnPhaseChange logs phase changes
func (o *LoggingObserver) OnPhaseChange(event signal.PhaseEvent) {
	o.logger.V(logutil.DEBUG).Info("Phase change",
		"direction", event.Direction, "phase", event.Phase, "mode", event.Mode,
		"stopLine", event.StopLine, "binding", event.BindsStopLine(), "tick", event.Tick, "id", event.ID)
}

// OnModeChange logs entering and leaving interrupts
func (o *LoggingObserver) OnModeChange(from, to signal.Mode, direction signal.Direction) {
	o.logger.Info("Mode change", "from", from, "to", to, "direction", direction)
}

// OnAllocation logs allocator decisions
func (o *LoggingObserver) OnAllocation(demand signal.DemandSnapshot, green [signal.NumDirections]int) {
	o.logger.V(logutil.VERBOSE).Info("Green allocated",
		"waiting", demand.WaitingCounts, "emergency", demand.EmergencyWaiting, "green", green)
}

// OnTick logs the display state
func (o *LoggingObserver) OnTick(state signal.DisplayState) {
	o.logger.V(logutil.TRACE).Info("Tick",
		"tick", state.Tick, "direction", state.CurrentDirection, "phase", state.Phase, "countdown", state.Countdown)
}

// OnError logs errors
func (o *LoggingObserver) OnError(err error) {
	o.logger.Error(err, "Scheduler error")
}
