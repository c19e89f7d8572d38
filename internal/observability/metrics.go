// Package observability exposes KPI and optimizer activity as Prometheus
// metrics.
package observability

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/taigrr/overfly/pkg/kpi"
	"github.com/taigrr/overfly/pkg/optimize"
)

// Collector bundles the planner metrics. It satisfies kpi.Recorder and
// planner.OptimizationRecorder.
type Collector struct {
	gatherer prometheus.Gatherer

	KPIComputations *prometheus.CounterVec
	KPIDurations    prometheus.Histogram

	PathLength prometheus.Gauge
	FlightTime prometheus.Gauge
	Energy     prometheus.Gauge
	Coverage   prometheus.Gauge
	Collisions prometheus.Gauge

	Optimizations         *prometheus.CounterVec
	OptimizationDurations prometheus.Histogram
}

// NewCollector registers the metrics against reg, defaulting to the global
// registry when nil. Registering twice against the same registry reuses
// the existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	var err error

	if c.KPIComputations, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "overfly_kpi_computations_total",
		Help: "Finished KPI computations, labeled by result status.",
	}, []string{"status"})); err != nil {
		return nil, err
	}
	if c.KPIDurations, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "overfly_kpi_duration_seconds",
		Help:    "KPI computation latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})); err != nil {
		return nil, err
	}

	gauges := []struct {
		dst  *prometheus.Gauge
		name string
		help string
	}{
		{&c.PathLength, "overfly_path_length_meters", "Length of the last computed path."},
		{&c.FlightTime, "overfly_flight_time_seconds", "Estimated flight time of the last computed path."},
		{&c.Energy, "overfly_energy_wh", "Estimated energy of the last computed path in watt-hours."},
		{&c.Coverage, "overfly_coverage_ratio", "Covered mesh area fraction of the last computed path."},
		{&c.Collisions, "overfly_collisions", "Collisions detected on the last computed path."},
	}
	for _, g := range gauges {
		if *g.dst, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: g.name,
			Help: g.help,
		})); err != nil {
			return nil, err
		}
	}

	if c.Optimizations, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "overfly_optimizations_total",
		Help: "Finished path optimizations, labeled by terminal state.",
	}, []string{"state"})); err != nil {
		return nil, err
	}
	if c.OptimizationDurations, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "overfly_optimization_duration_seconds",
		Help:    "Path optimization wall time in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	})); err != nil {
		return nil, err
	}
	return c, nil
}

// ObserveKPI records one finished computation.
func (c *Collector) ObserveKPI(m kpi.Metrics, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.KPIComputations.WithLabelValues(string(m.Status)).Inc()
	c.KPIDurations.Observe(elapsed.Seconds())
	if m.Status != kpi.StatusComplete {
		return
	}
	c.PathLength.Set(m.PathLength)
	c.FlightTime.Set(m.FlightTime)
	c.Energy.Set(m.Energy)
	c.Collisions.Set(float64(m.CollisionCount))
	if m.Coverage != nil {
		c.Coverage.Set(*m.Coverage)
	}
}

// ObserveOptimization records one optimizer run.
func (c *Collector) ObserveOptimization(state optimize.State, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.Optimizations.WithLabelValues(state.String()).Inc()
	if elapsed > 0 {
		c.OptimizationDurations.Observe(elapsed.Seconds())
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func register[T prometheus.Collector](reg prometheus.Registerer, col T) (T, error) {
	if err := reg.Register(col); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector already registered with incompatible type: %w", err)
		}
		var zero T
		return zero, err
	}
	return col, nil
}
