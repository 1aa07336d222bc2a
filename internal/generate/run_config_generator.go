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

package generate

import (
	"fmt"
	"sort"

	"github.com/go-logr/logr"

	"github.com/DmytroBabenko/model-analyzer/internal/logging"
	"github.com/DmytroBabenko/model-analyzer/internal/measurement"
	"github.com/DmytroBabenko/model-analyzer/internal/runconfig"
)

// phase is the combined sweep state. Transitions are monotonic:
// DEFAULT_SWEEP -> FULL_SWEEP -> EXHAUSTED.
type phase int

const (
	phaseDefaultSweep phase = iota
	phaseFullSweep
	phaseExhausted
)

func (p phase) String() string {
	switch p {
	case phaseDefaultSweep:
		return "DEFAULT_SWEEP"
	case phaseFullSweep:
		return "FULL_SWEEP"
	default:
		return "EXHAUSTED"
	}
}

// level is one model's slot in the nested composition. Its window accumulates
// every throughput reported since the level's generator last advanced; the
// window is owned exclusively by this boundary and cleared when consumed.
type level struct {
	spec   *ModelSearchSpec
	stats  *ModelSweepStats
	gen    *ModelRunConfigGenerator
	cur    runconfig.ModelRunConfig
	window []float64
}

// RunConfigGenerator composes one per-model generator per profiled model into
// a nested pipeline yielding combined run configs. The first declared model is
// the root (outermost) level and the last is the leaf; advancing a level by
// one value re-runs the complete sub-sweep of every level beneath it.
//
// The caller must report the measurements for each yielded config via
// SetLastResults before requesting the next one.
type RunConfigGenerator struct {
	levels []*level
	log    logr.Logger

	phase    phase
	started  bool
	prepared bool
	pending  runconfig.RunConfig
}

// NewRunConfigGenerator validates the specs, checks cross-model consistency
// eagerly, and builds the composed generator. A mismatched server environment
// fails with a ConfigurationConflictError before any config is produced.
func NewRunConfigGenerator(specs []*ModelSearchSpec, log logr.Logger) (*RunConfigGenerator, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("at least one model search spec is required")
	}
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return nil, err
		}
	}
	if err := validateServerEnvironments(specs); err != nil {
		return nil, err
	}

	g := &RunConfigGenerator{
		log:   log,
		phase: phaseDefaultSweep,
	}
	for _, spec := range specs {
		g.levels = append(g.levels, &level{
			spec:  spec,
			stats: &ModelSweepStats{ModelName: spec.ModelName},
		})
	}
	return g, nil
}

// validateServerEnvironments requires every model that declares a server
// environment to declare the same one, key for key.
func validateServerEnvironments(specs []*ModelSearchSpec) error {
	var ref *ModelSearchSpec
	for _, spec := range specs {
		if len(spec.ServerEnvironment) == 0 {
			continue
		}
		if ref == nil {
			ref = spec
			continue
		}
		if keys := environmentDiff(ref.ServerEnvironment, spec.ServerEnvironment); len(keys) > 0 {
			return &ConfigurationConflictError{
				Models: []string{ref.ModelName, spec.ModelName},
				Keys:   keys,
			}
		}
	}
	return nil
}

// environmentDiff returns the sorted keys on which two environments disagree,
// including keys present on only one side.
func environmentDiff(a, b map[string]string) []string {
	diff := make(map[string]struct{})
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			diff[k] = struct{}{}
		}
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			diff[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(diff))
	for k := range diff {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsDone reports whether every phase of every nested level is exhausted. Like
// NextConfig, it must only be called once the measurements for the previously
// yielded config have been reported.
func (g *RunConfigGenerator) IsDone() bool {
	g.prepare()
	return g.phase == phaseExhausted
}

// NextConfig yields the next combined run config, containing exactly one
// per-model sub-config for every profiled model in declared order. It fails
// with an ExhaustedError once IsDone is true.
func (g *RunConfigGenerator) NextConfig() (runconfig.RunConfig, error) {
	g.prepare()
	if g.phase == phaseExhausted {
		return runconfig.RunConfig{}, &ExhaustedError{Scope: "run config generator"}
	}
	g.prepared = false
	return g.pending, nil
}

// SetLastResults supplies the measurements gathered for the most recently
// yielded run config. The leaf generator consumes them immediately; every
// enclosing boundary buffers them until its own decision point. An empty batch
// is treated as no throughput signal.
func (g *RunConfigGenerator) SetLastResults(results []*measurement.RunConfigMeasurement) {
	if !g.started || g.phase == phaseExhausted {
		return
	}
	values := make([]float64, 0, len(results))
	for _, r := range results {
		if r != nil {
			values = append(values, r.PerfThroughput())
		}
	}

	leaf := g.levels[len(g.levels)-1]
	leaf.gen.RecordMeasurements(values)
	for _, lv := range g.levels[:len(g.levels)-1] {
		lv.window = append(lv.window, values...)
	}
}

// Phase names the current combined sweep phase.
func (g *RunConfigGenerator) Phase() string {
	return g.phase.String()
}

// Stats returns the per-model sweep counters accumulated so far, in declared
// model order.
func (g *RunConfigGenerator) Stats() []ModelSweepStats {
	out := make([]ModelSweepStats, len(g.levels))
	for i, lv := range g.levels {
		out[i] = *lv.stats
	}
	return out
}

// prepare computes the next pending run config, advancing levels bottom-up.
// Feeding a level its buffered window happens exactly when its child's
// sub-sweep has exhausted, which is the level's decision point.
func (g *RunConfigGenerator) prepare() {
	if g.prepared || g.phase == phaseExhausted {
		return
	}

	if !g.started {
		g.started = true
		g.startLevels(0)
		g.pending = g.combined()
		g.prepared = true
		g.log.V(logging.VERBOSE).Info("starting sweep", "phase", g.phase.String(), "models", len(g.levels))
		return
	}

	for i := len(g.levels) - 1; ; i-- {
		lv := g.levels[i]

		if i == len(g.levels)-1 {
			// The leaf was fed directly by SetLastResults.
			if lv.gen.HasNext() {
				lv.cur, _ = lv.gen.Next()
				g.pending = g.combined()
				g.prepared = true
				return
			}
		} else {
			// The child beneath this level exhausted its sub-sweep: hand this
			// level everything measured since it last advanced.
			lv.gen.RecordMeasurements(lv.window)
			lv.window = nil
			if lv.gen.HasNext() {
				lv.cur, _ = lv.gen.Next()
				g.startLevels(i + 1)
				g.pending = g.combined()
				g.prepared = true
				return
			}
		}

		if i > 0 {
			continue
		}

		// Every level is exhausted for the current phase.
		if g.phase == phaseDefaultSweep {
			g.phase = phaseFullSweep
			g.log.V(logging.VERBOSE).Info("default sweep complete", "phase", g.phase.String())
			g.startLevels(0)
			g.pending = g.combined()
			g.prepared = true
			return
		}
		g.phase = phaseExhausted
		g.log.V(logging.VERBOSE).Info("run config sweep exhausted")
		return
	}
}

// startLevels creates fresh generators for every level from the given index
// down and primes each with its first value. A fresh pass generator always has
// at least one value because every axis is non-empty.
func (g *RunConfigGenerator) startLevels(from int) {
	pass := PassDefault
	if g.phase == phaseFullSweep {
		pass = PassFull
	}
	for i := from; i < len(g.levels); i++ {
		lv := g.levels[i]
		lv.gen = NewModelRunConfigGenerator(lv.spec, pass, g.log)
		lv.gen.stats = lv.stats
		lv.window = nil
		lv.cur, _ = lv.gen.Next()
	}
}

// combined snapshots the current value of every level into one run config.
func (g *RunConfigGenerator) combined() runconfig.RunConfig {
	models := make([]runconfig.ModelRunConfig, len(g.levels))
	for i, lv := range g.levels {
		models[i] = lv.cur
	}
	return runconfig.NewRunConfig(models)
}
