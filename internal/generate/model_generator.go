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
	"github.com/go-logr/logr"
	"github.com/samber/lo"

	"github.com/DmytroBabenko/model-analyzer/internal/logging"
	"github.com/DmytroBabenko/model-analyzer/internal/runconfig"
)

// Pass selects which part of a model's search space a generator walks.
type Pass int

const (
	// PassAll walks the default pass followed by the full sweep. This is the
	// complete per-model sequence a standalone generator produces.
	PassAll Pass = iota
	// PassDefault walks only the default pass: the concurrency axis with the
	// baseline model config held fixed.
	PassDefault
	// PassFull walks only the full sweep: the concurrency axis crossed with
	// every non-baseline model-config variant.
	PassFull
)

// ModelSweepStats accumulates per-model sweep counters. A stats value survives
// generator re-creation, so the coordinator can account for a whole session.
type ModelSweepStats struct {
	ModelName string
	// Generated counts per-model configs handed out.
	Generated int
	// Backoffs counts batch-size sub-axes pruned early.
	Backoffs int
	// ResultBatches counts measurement batches consumed.
	ResultBatches int
}

// modelConfigStep is one value on the model-config axis. track groups the
// steps that share a (parameter set, instance count) pair; batch-size backoff
// is decided per track. The baseline entry carries track -1 and never backs
// off.
type modelConfigStep struct {
	config runconfig.ModelConfig
	track  int
}

// ModelRunConfigGenerator lazily produces the ordered per-model config
// sequence for one model. It is an explicit resumable state machine: Next
// returns a value and stores the cursor, and block-boundary decisions are
// deferred until the measurements for the finished block have been reported.
//
// Not safe for concurrent use; the sweep is a synchronous pull pipeline.
type ModelRunConfigGenerator struct {
	spec  *ModelSearchSpec
	pass  Pass
	log   logr.Logger
	stats *ModelSweepStats

	steps []modelConfigStep

	stepIdx   int
	concIdx   int
	blockDone bool
	exhausted bool

	// window holds every throughput reported since the current model-config
	// block started. Cleared at each block boundary.
	window      []float64
	bestByTrack map[int]float64
	skipTrack   map[int]bool
}

// NewModelRunConfigGenerator builds a generator over the given pass of the
// model's search space. The spec must already be validated.
func NewModelRunConfigGenerator(spec *ModelSearchSpec, pass Pass, log logr.Logger) *ModelRunConfigGenerator {
	g := &ModelRunConfigGenerator{
		spec:  spec,
		pass:  pass,
		log:   log,
		steps: buildModelConfigSteps(spec, pass),
	}
	g.Reset()
	return g
}

// buildModelConfigSteps lays out the model-config axis for a pass: the
// baseline entry first, then instance count (outer) crossed with batch size
// (inner) for each parameter combination.
func buildModelConfigSteps(spec *ModelSearchSpec, pass Pass) []modelConfigStep {
	var steps []modelConfigStep
	if pass != PassFull {
		steps = append(steps, modelConfigStep{config: spec.defaultConfig(), track: -1})
	}
	if pass == PassDefault {
		return steps
	}

	track := 0
	for _, params := range spec.parameterSets() {
		for _, instances := range spec.InstanceCounts {
			for _, batchSize := range spec.BatchSizes {
				steps = append(steps, modelConfigStep{
					config: runconfig.ModelConfig{
						InstanceCount: instances,
						MaxBatchSize:  batchSize,
						Parameters:    params.Clone(),
					},
					track: track,
				})
			}
			track++
		}
	}
	return steps
}

// Reset reinitializes the cursors to the first value. Idempotent and callable
// before first use; backoff bookkeeping is discarded.
func (g *ModelRunConfigGenerator) Reset() {
	g.stepIdx = 0
	g.concIdx = 0
	g.blockDone = false
	g.window = nil
	g.bestByTrack = make(map[int]float64)
	g.skipTrack = make(map[int]bool)
	g.exhausted = len(g.steps) == 0
}

// HasNext reports whether another per-model config remains. Calling it settles
// any pending block-boundary decision, so all measurements for the finished
// block must have been recorded first.
func (g *ModelRunConfigGenerator) HasNext() bool {
	g.settle()
	return !g.exhausted
}

// IsDone is true exactly when HasNext is false.
func (g *ModelRunConfigGenerator) IsDone() bool {
	return !g.HasNext()
}

// Next returns the next per-model config in sweep order and advances the
// cursor. It fails with an ExhaustedError once both passes are exhausted.
func (g *ModelRunConfigGenerator) Next() (runconfig.ModelRunConfig, error) {
	if !g.HasNext() {
		return runconfig.ModelRunConfig{}, &ExhaustedError{Scope: "model " + g.spec.ModelName}
	}

	cfg := runconfig.ModelRunConfig{
		ModelName:   g.spec.ModelName,
		Concurrency: g.spec.ConcurrencyValues[g.concIdx],
		ModelConfig: g.steps[g.stepIdx].config,
	}

	g.concIdx++
	if g.concIdx == len(g.spec.ConcurrencyValues) {
		// Block finished. The decision is settled on the next HasNext/Next,
		// after the caller has reported the block's measurements.
		g.blockDone = true
	}
	if g.stats != nil {
		g.stats.Generated++
	}
	return cfg, nil
}

// RecordMeasurements supplies every throughput gathered since the previous
// call. Batches are variable length and an empty batch is an absent signal,
// not an error.
func (g *ModelRunConfigGenerator) RecordMeasurements(throughputs []float64) {
	if g.stats != nil {
		g.stats.ResultBatches++
	}
	g.window = append(g.window, throughputs...)
}

// settle applies a pending block-boundary decision and positions the cursor on
// the next non-pruned model-config step.
func (g *ModelRunConfigGenerator) settle() {
	if !g.blockDone || g.exhausted {
		return
	}
	g.blockDone = false

	g.decideBackoff(g.steps[g.stepIdx])
	g.window = nil
	g.concIdx = 0

	g.stepIdx++
	for g.stepIdx < len(g.steps) && g.skipTrack[g.steps[g.stepIdx].track] {
		g.stepIdx++
	}
	if g.stepIdx >= len(g.steps) {
		g.exhausted = true
	}
}

// decideBackoff compares the finished block's best throughput against the best
// of earlier batch sizes on the same track. No improvement prunes the track's
// remaining, larger batch sizes. An empty window makes no decision either way.
func (g *ModelRunConfigGenerator) decideBackoff(step modelConfigStep) {
	if step.track < 0 || len(g.window) == 0 {
		return
	}
	blockMax := lo.Max(g.window)

	best, seen := g.bestByTrack[step.track]
	if seen && blockMax <= best {
		g.skipTrack[step.track] = true
		if g.stats != nil {
			g.stats.Backoffs++
		}
		g.log.V(logging.DEBUG).Info("early backoff on batch size axis",
			"model", g.spec.ModelName,
			"instanceCount", step.config.InstanceCount,
			"maxBatchSize", step.config.MaxBatchSize,
			"blockMax", blockMax,
			"previousBest", best)
		return
	}
	if !seen || blockMax > best {
		g.bestByTrack[step.track] = blockMax
	}
}
