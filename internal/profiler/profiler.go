/*
Copyright 2025 The Model Analyzer Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package profiler drives a run-config sweep end to end: it pulls
// configurations from the generator hierarchy, hands each one to an external
// measurement step, and feeds the resulting throughput back in before pulling
// the next. Measurement itself is a collaborator behind the Measurer
// interface; the profiler only enforces the pull/report handshake.
package profiler

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/DmytroBabenko/model-analyzer/internal/generate"
	"github.com/DmytroBabenko/model-analyzer/internal/logging"
	"github.com/DmytroBabenko/model-analyzer/internal/measurement"
	"github.com/DmytroBabenko/model-analyzer/internal/metrics"
	"github.com/DmytroBabenko/model-analyzer/internal/runconfig"
)

// Measurer profiles one run config and returns its measurement. A failed
// measurement is reported as an error; the sweep continues with no throughput
// signal for that config.
type Measurer interface {
	Measure(ctx context.Context, rc runconfig.RunConfig) (*measurement.RunConfigMeasurement, error)
}

// MeasurerFunc adapts a function to the Measurer interface.
type MeasurerFunc func(ctx context.Context, rc runconfig.RunConfig) (*measurement.RunConfigMeasurement, error)

// Measure implements Measurer.
func (f MeasurerFunc) Measure(ctx context.Context, rc runconfig.RunConfig) (*measurement.RunConfigMeasurement, error) {
	return f(ctx, rc)
}

// Report summarizes a completed sweep.
type Report struct {
	// TotalConfigs is the number of run configs profiled.
	TotalConfigs int
	// FailedMeasurements is the number of configs whose measurement errored.
	FailedMeasurements int
	// BestThroughput is the highest throughput observed, 0 when nothing
	// measured successfully.
	BestThroughput float64
	// BestConfig is the run config that produced BestThroughput; nil when
	// nothing measured successfully.
	BestConfig *runconfig.RunConfig
	// ModelSweeps carries the per-model generator counters.
	ModelSweeps []generate.ModelSweepStats
}

// Profiler runs the sweep loop.
type Profiler struct {
	gen      *generate.RunConfigGenerator
	measurer Measurer
	log      logr.Logger
	emitter  *metrics.Emitter
}

// NewProfiler wires a generator to a measurer. The emitter is optional; pass
// nil to skip metrics emission.
func NewProfiler(gen *generate.RunConfigGenerator, measurer Measurer, log logr.Logger, emitter *metrics.Emitter) *Profiler {
	return &Profiler{
		gen:      gen,
		measurer: measurer,
		log:      log,
		emitter:  emitter,
	}
}

// Profile runs the sweep to completion or until the context is canceled.
// Every yielded config is checked against the no-duplicates guarantee; a
// duplicate aborts the sweep because it indicates a generator defect, not a
// measurement problem.
func (p *Profiler) Profile(ctx context.Context) (*Report, error) {
	report := &Report{}
	seen := make(map[string]struct{})
	var prevStats []generate.ModelSweepStats

	for !p.gen.IsDone() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rc, err := p.gen.NextConfig()
		if err != nil {
			return nil, err
		}
		key := rc.Key()
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate run config emitted: %s", key)
		}
		seen[key] = struct{}{}
		report.TotalConfigs++

		phase := p.gen.Phase()
		p.log.V(logging.DEBUG).Info("profiling run config",
			"index", report.TotalConfigs, "phase", phase, "runConfig", key)

		m, err := p.measurer.Measure(ctx, rc)
		if err != nil {
			report.FailedMeasurements++
			p.log.Error(err, "measurement failed, continuing with no throughput signal",
				"runConfig", key)
			p.gen.SetLastResults(nil)
		} else {
			p.gen.SetLastResults([]*measurement.RunConfigMeasurement{m})
			if m.PerfThroughput() > report.BestThroughput {
				report.BestThroughput = m.PerfThroughput()
				best := rc
				report.BestConfig = &best
			}
		}

		if p.emitter != nil {
			_ = p.emitter.EmitRunConfig(phase)
			if m != nil {
				_ = p.emitter.EmitMeasurement(m.PerfThroughput(), report.BestThroughput)
			}
			cur := p.gen.Stats()
			_ = p.emitter.EmitSweepStats(prevStats, cur)
			prevStats = cur
		}
	}

	report.ModelSweeps = p.gen.Stats()
	p.log.Info("sweep complete",
		"totalConfigs", report.TotalConfigs,
		"failedMeasurements", report.FailedMeasurements,
		"bestThroughput", report.BestThroughput)
	return report, nil
}
