package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/DmytroBabenko/model-analyzer/internal/constants"
	"github.com/DmytroBabenko/model-analyzer/internal/generate"
)

var (
	runConfigsGenerated   *prometheus.CounterVec
	modelConfigsGenerated *prometheus.CounterVec
	earlyBackoffTotal     *prometheus.CounterVec
	measurementsTotal     prometheus.Counter
	bestThroughput        prometheus.Gauge

	// initOnce ensures InitMetrics is only executed once for thread safety
	initOnce sync.Once
	initErr  error
)

// InitMetrics registers all sweep metrics with the provided registry.
// This function is thread-safe and can be called multiple times; initialization
// will only occur once with the first call's registry.
func InitMetrics(registry prometheus.Registerer) error {
	initOnce.Do(func() {
		runConfigsGenerated = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: constants.RunConfigsGeneratedTotal,
				Help: "Total number of combined run configs yielded by the sweep",
			},
			[]string{constants.LabelPhase},
		)
		modelConfigsGenerated = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: constants.ModelConfigsGeneratedTotal,
				Help: "Total number of per-model configs generated, per model",
			},
			[]string{constants.LabelModelName},
		)
		earlyBackoffTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: constants.EarlyBackoffTotal,
				Help: "Total number of batch-size sub-axes pruned by early backoff, per model",
			},
			[]string{constants.LabelModelName},
		)
		measurementsTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: constants.MeasurementsTotal,
				Help: "Total number of throughput measurements fed back into the sweep",
			},
		)
		bestThroughput = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: constants.BestThroughput,
				Help: "Best throughput observed across the sweep so far",
			},
		)

		for _, c := range []prometheus.Collector{
			runConfigsGenerated, modelConfigsGenerated, earlyBackoffTotal,
			measurementsTotal, bestThroughput,
		} {
			if err := registry.Register(c); err != nil {
				initErr = fmt.Errorf("failed to register sweep metric: %w", err)
				return
			}
		}
	})

	return initErr
}

// InitMetricsAndEmitter registers metrics with Prometheus and creates a metrics emitter.
// This is a convenience function that handles both registration and emitter creation.
func InitMetricsAndEmitter(registry prometheus.Registerer) (*Emitter, error) {
	if err := InitMetrics(registry); err != nil {
		return nil, err
	}
	return NewEmitter(), nil
}

// Emitter handles emission of sweep metrics.
type Emitter struct{}

// NewEmitter creates a new metrics emitter.
func NewEmitter() *Emitter {
	return &Emitter{}
}

// EmitRunConfig records one yielded run config for the given sweep phase.
func (e *Emitter) EmitRunConfig(phase string) error {
	if runConfigsGenerated == nil {
		return fmt.Errorf("runConfigsGenerated metric not initialized")
	}
	runConfigsGenerated.With(prometheus.Labels{constants.LabelPhase: phase}).Inc()
	return nil
}

// EmitMeasurement records one throughput feedback value and refreshes the
// best-throughput gauge.
func (e *Emitter) EmitMeasurement(throughput, best float64) error {
	if measurementsTotal == nil || bestThroughput == nil {
		return fmt.Errorf("measurement metrics not initialized")
	}
	measurementsTotal.Inc()
	bestThroughput.Set(best)
	return nil
}

// EmitSweepStats publishes the per-model sweep counters, adding only the delta
// since the previous emission.
func (e *Emitter) EmitSweepStats(prev, cur []generate.ModelSweepStats) error {
	if modelConfigsGenerated == nil || earlyBackoffTotal == nil {
		return fmt.Errorf("sweep stats metrics not initialized")
	}
	for i, s := range cur {
		generated, backoffs := s.Generated, s.Backoffs
		if i < len(prev) && prev[i].ModelName == s.ModelName {
			generated -= prev[i].Generated
			backoffs -= prev[i].Backoffs
		}
		labels := prometheus.Labels{constants.LabelModelName: s.ModelName}
		if generated > 0 {
			modelConfigsGenerated.With(labels).Add(float64(generated))
		}
		if backoffs > 0 {
			earlyBackoffTotal.With(labels).Add(float64(backoffs))
		}
	}
	return nil
}
