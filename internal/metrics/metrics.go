// Package metrics exposes engine counters and gauges to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/ev-dashboard/internal/logic"
)

const namespace = "ev_dashboard"

// Metrics holds the collectors on a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	cycles      prometheus.Counter
	cycleTime   prometheus.Histogram
	readErrors  *prometheus.CounterVec
	redraws     *prometheus.CounterVec
	pulses      prometheus.Counter
	transitions *prometheus.CounterVec
	speed       prometheus.Gauge
	percent     prometheus.Gauge
	voltage     prometheus.Gauge
	current     prometheus.Gauge
	temperature prometheus.Gauge
	warnings    *prometheus.GaugeVec
	state       *prometheus.GaugeVec
	http        *prometheus.CounterVec
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "cycles_total",
			Help: "Update cycles run.",
		}),
		cycleTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "cycle_duration_seconds",
			Help:    "Time spent in one update cycle.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		readErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "read_errors_total",
			Help: "Sensor read failures by source.",
		}, []string{"source"}),
		redraws: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "redraws_total",
			Help: "Display regions redrawn.",
		}, []string{"region"}),
		pulses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "wheel_pulses_total",
			Help: "Wheel sensor pulses counted.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "events_total",
			Help: "Engine events by type.",
		}, []string{"type"}),
		speed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "speed_mph",
			Help: "Displayed speed.",
		}),
		percent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "battery_percent",
			Help: "Battery state of charge.",
		}),
		voltage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "battery_voltage_millivolts",
			Help: "Pack voltage.",
		}),
		current: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "battery_current_amperes",
			Help: "Pack current.",
		}),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "battery_temperature_celsius",
			Help: "Pack temperature.",
		}),
		warnings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "warning_active",
			Help: "1 while the warning latch is set.",
		}, []string{"warning"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "state",
			Help: "1 for the current display state.",
		}, []string{"state"}),
		http: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "Status server requests.",
		}, []string{"code", "method"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.cycles, m.cycleTime, m.readErrors, m.redraws, m.pulses, m.transitions,
		m.speed, m.percent, m.voltage, m.current, m.temperature,
		m.warnings, m.state, m.http,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecCycle records one finished cycle.
func (m *Metrics) RecCycle(d time.Duration) {
	if m == nil {
		return
	}
	m.cycles.Inc()
	m.cycleTime.Observe(d.Seconds())
}

// RecReadError counts a failed read from source.
func (m *Metrics) RecReadError(source string) {
	if m == nil {
		return
	}
	m.readErrors.WithLabelValues(source).Inc()
}

// RecRedraws counts each named region redrawn.
func (m *Metrics) RecRedraws(regions []string) {
	if m == nil {
		return
	}
	for _, r := range regions {
		m.redraws.WithLabelValues(r).Inc()
	}
}

// RecPulses adds wheel pulses.
func (m *Metrics) RecPulses(n uint32) {
	if m == nil || n == 0 {
		return
	}
	m.pulses.Add(float64(n))
}

// RecEvent counts one engine event.
func (m *Metrics) RecEvent(t logic.EventType) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(t)).Inc()
}

// RecHTTP counts one status server request.
func (m *Metrics) RecHTTP(code, method string) {
	if m == nil {
		return
	}
	m.http.WithLabelValues(code, method).Inc()
}

// SetSnapshot publishes the displayed values, latches and state.
func (m *Metrics) SetSnapshot(s *logic.Store, w logic.Warnings, state logic.State) {
	if m == nil {
		return
	}
	m.speed.Set(float64(s.SpeedMPH.Current))
	m.percent.Set(float64(s.Percent.Current))
	m.voltage.Set(float64(s.VoltageMV.Current))
	m.current.Set(float64(s.CurrentA.Current))
	m.temperature.Set(float64(s.TemperatureC.Current))

	for _, k := range logic.AllWarnings {
		m.warnings.WithLabelValues(k.String()).Set(boolFloat(w[k]))
	}
	for _, st := range []logic.State{logic.StateDischargingSpeed, logic.StateDischargingBattery, logic.StateCharging} {
		m.state.WithLabelValues(string(st)).Set(boolFloat(st == state))
	}
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
