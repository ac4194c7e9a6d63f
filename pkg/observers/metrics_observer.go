package observers

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/anggasct/trafficflow/pkg/scheduler"
	"github.com/anggasct/trafficflow/pkg/signal"
)

const namespace = "trafficflow"

var (
	_ scheduler.ExtendedObserver = (*MetricsObserver)(nil)
	_ prometheus.Collector       = (*MetricsObserver)(nil)
)

// MetricsObserver exports scheduler activity as Prometheus metrics. It is a
// prometheus.Collector and can be registered on any registry.
type MetricsObserver struct {
	phaseChanges   *prometheus.CounterVec
	modeChanges    *prometheus.CounterVec
	allocatedGreen *prometheus.GaugeVec
	waiting        *prometheus.GaugeVec
	countdown      *prometheus.GaugeVec
	mode           *prometheus.GaugeVec
	ticks          prometheus.Counter
	errors         prometheus.Counter
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{
		phaseChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "phase_changes_total",
				Help:      "Count of phase changes per direction and target phase.",
			},
			[]string{"direction", "phase"},
		),
		modeChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mode_changes_total",
				Help:      "Count of scheduler mode changes.",
			},
			[]string{"from", "to"},
		),
		allocatedGreen: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "allocated_green_ticks",
				Help:      "Green time last allocated to each direction, in ticks.",
			},
			[]string{"direction"},
		),
		waiting: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "waiting_vehicles",
				Help:      "Vehicles waiting per direction at the last allocation.",
			},
			[]string{"direction"},
		),
		countdown: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "countdown_ticks",
				Help:      "Countdown displayed for each direction.",
			},
			[]string{"direction"},
		),
		mode: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "mode",
				Help:      "Set to 1 for the current scheduler mode.",
			},
			[]string{"mode"},
		),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Count of scheduler ticks.",
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Count of rejected demand snapshots and recovered observer panics.",
		}),
	}
}

func (o *MetricsObserver) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		o.phaseChanges, o.modeChanges, o.allocatedGreen, o.waiting, o.countdown, o.mode, o.ticks, o.errors,
	}
}

// Describe implements prometheus.Collector
func (o *MetricsObserver) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range o.collectors() {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector
func (o *MetricsObserver) Collect(ch chan<- prometheus.Metric) {
	for _, c := range o.collectors() {
		c.Collect(ch)
	}
}

// OnPhaseChange records phase changes
func (o *MetricsObserver) OnPhaseChange(event signal.PhaseEvent) {
	o.phaseChanges.WithLabelValues(event.Direction.String(), event.Phase.String()).Inc()
}

// OnModeChange records mode changes and flips the mode gauge
func (o *MetricsObserver) OnModeChange(from, to signal.Mode, direction signal.Direction) {
	o.modeChanges.WithLabelValues(from.String(), to.String()).Inc()
	o.setMode(to)
}

// OnAllocation records the allocator output and the demand it saw
func (o *MetricsObserver) OnAllocation(demand signal.DemandSnapshot, green [signal.NumDirections]int) {
	for _, dir := range signal.Directions() {
		o.allocatedGreen.WithLabelValues(dir.String()).Set(float64(green[dir]))
		o.waiting.WithLabelValues(dir.String()).Set(float64(demand.WaitingCounts[dir]))
	}
}

// OnTick records the displayed countdowns
func (o *MetricsObserver) OnTick(state signal.DisplayState) {
	o.ticks.Inc()
	for _, dir := range signal.Directions() {
		o.countdown.WithLabelValues(dir.String()).Set(float64(state.Countdown[dir]))
	}
	o.setMode(state.Mode)
}

// OnError records error metrics
func (o *MetricsObserver) OnError(err error) {
	o.errors.Inc()
}

func (o *MetricsObserver) setMode(current signal.Mode) {
	for _, m := range []signal.Mode{signal.ModeNormal, signal.ModeEmergencyPreempt, signal.ModeManualOverride} {
		v := 0.0
		if m == current {
			v = 1
		}
		o.mode.WithLabelValues(m.String()).Set(v)
	}
}

// Reset resets all labelled metrics
func (o *MetricsObserver) Reset() {
	o.phaseChanges.Reset()
	o.modeChanges.Reset()
	o.allocatedGreen.Reset()
	o.waiting.Reset()
	o.countdown.Reset()
	o.mode.Reset()
}
