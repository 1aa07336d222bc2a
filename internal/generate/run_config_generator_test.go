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
	"errors"
	"math"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DmytroBabenko/model-analyzer/internal/measurement"
	"github.com/DmytroBabenko/model-analyzer/internal/runconfig"
)

// autoSpec builds a fully automatic search spec with the given bounds.
func autoSpec(name string, maxConcurrency, maxInstanceCount, maxBatchSize int) *ModelSearchSpec {
	return &ModelSearchSpec{
		ModelName:         name,
		AutoSearch:        true,
		ConcurrencyValues: DoubledSequence(1, maxConcurrency),
		InstanceCounts:    LinearSequence(1, maxInstanceCount),
		BatchSizes:        DoubledSequence(1, maxBatchSize),
		DefaultConfig: runconfig.ModelConfig{
			InstanceCount: 1,
			MaxBatchSize:  8,
			IsDefault:     true,
		},
	}
}

// runSweep drives the generator to completion, feeding back one throughput
// value per yielded config.
func runSweep(t *testing.T, specs []*ModelSearchSpec, throughput func(i int) float64) ([]runconfig.RunConfig, *RunConfigGenerator) {
	t.Helper()

	gen, err := NewRunConfigGenerator(specs, logr.Discard())
	require.NoError(t, err)

	var configs []runconfig.RunConfig
	for i := 0; !gen.IsDone(); i++ {
		rc, err := gen.NextConfig()
		require.NoError(t, err)
		configs = append(configs, rc)
		gen.SetLastResults([]*measurement.RunConfigMeasurement{
			measurement.NewRunConfigMeasurement(throughput(i)),
		})
	}
	return configs, gen
}

// requireAllUnique asserts the no-duplicates guarantee and that every config
// carries one entry per profiled model.
func requireAllUnique(t *testing.T, configs []runconfig.RunConfig, models int) {
	t.Helper()
	seen := make(map[string]struct{}, len(configs))
	for _, rc := range configs {
		require.Equal(t, models, rc.Len())
		seen[rc.Key()] = struct{}{}
	}
	require.Len(t, seen, len(configs))
}

func increasing(i int) float64 { return float64(i + 1) }

func TestSingleModelDefaultBounds(t *testing.T) {
	// num_PAC = log2(1024)+1 = 11
	// num_MC  = 5 * (log2(128)+1) + 1 = 41
	spec := autoSpec("my-model", 1024, 5, 128)

	configs, _ := runSweep(t, []*ModelSearchSpec{spec}, increasing)

	assert.Len(t, configs, 11*41)
	requireAllUnique(t, configs, 1)
}

func TestTwoIdenticalAutoModels(t *testing.T) {
	// Per model: num_PAC = 2, non-default model configs = 2*2 = 4, so the
	// full sweep is 8 per model. Default phase 2*2 = 4, full phase 8*8 = 64.
	specs := []*ModelSearchSpec{
		autoSpec("my-model", 2, 2, 2),
		autoSpec("my-modelB", 2, 2, 2),
	}

	configs, gen := runSweep(t, specs, increasing)

	assert.Len(t, configs, 68)
	requireAllUnique(t, configs, 2)

	// Feedback routing: the leaf consumes one batch per experiment; the root
	// consumes one aggregated batch per completed leaf sub-sweep (2 default,
	// 8 full).
	stats := gen.Stats()
	assert.Equal(t, 68, stats[1].ResultBatches)
	assert.Equal(t, 10, stats[0].ResultBatches)
	assert.Equal(t, 68, stats[1].Generated)
	assert.Equal(t, 10, stats[0].Generated)
}

func TestTwoUnevenModels(t *testing.T) {
	// Model A: manual concurrency [1,2,3], automatic model configs (2*2).
	// Model B: automatic concurrency [1,2], manual model configs (2*3).
	// Default phase 3*2 = 6, full phase (3*4)*(2*6) = 144.
	modelA := autoSpec("my-model", 2, 2, 2)
	modelA.ConcurrencyValues = []int{1, 2, 3}

	modelB := &ModelSearchSpec{
		ModelName:         "my-modelB",
		ConcurrencyValues: DoubledSequence(1, 2),
		InstanceCounts:    []int{1, 2},
		BatchSizes:        []int{1, 4, 16},
		ParameterCombinations: ParameterCombinations([]ParameterAxis{
			{Name: "instance_group.kind", Values: []string{"KIND_GPU"}},
		}),
		DefaultConfig: runconfig.ModelConfig{InstanceCount: 1, MaxBatchSize: 8, IsDefault: true},
	}

	configs, _ := runSweep(t, []*ModelSearchSpec{modelA, modelB}, increasing)

	assert.Len(t, configs, 150)
	requireAllUnique(t, configs, 2)
}

func TestThreeUnevenModels(t *testing.T) {
	// Model A automatic: full sweep 2*4 = 8.
	// Model B automatic configs, manual concurrency [1,5,9]: full sweep 12.
	// Model C manual: concurrency [10,20], configs 3*2: full sweep 12.
	// Default phase 2*3*2 = 12, full phase 8*12*12 = 1152.
	modelA := autoSpec("my-model", 2, 2, 2)

	modelB := autoSpec("my-modelB", 2, 2, 2)
	modelB.ConcurrencyValues = []int{1, 5, 9}

	modelC := &ModelSearchSpec{
		ModelName:         "my-model3",
		ConcurrencyValues: []int{10, 20},
		InstanceCounts:    []int{1, 2, 3},
		BatchSizes:        []int{1, 64},
		ParameterCombinations: ParameterCombinations([]ParameterAxis{
			{Name: "instance_group.kind", Values: []string{"KIND_GPU"}},
		}),
		DefaultConfig: runconfig.ModelConfig{InstanceCount: 1, MaxBatchSize: 8, IsDefault: true},
	}

	configs, gen := runSweep(t, []*ModelSearchSpec{modelA, modelB, modelC}, increasing)

	assert.Len(t, configs, 1164)
	requireAllUnique(t, configs, 3)

	// Every boundary aggregates independently: the leaf sees every
	// experiment, the middle level one batch per leaf sub-sweep (6 default +
	// 96 full), the root one batch per middle sub-sweep (2 default + 8 full).
	stats := gen.Stats()
	assert.Equal(t, 1164, stats[2].ResultBatches)
	assert.Equal(t, 102, stats[1].ResultBatches)
	assert.Equal(t, 10, stats[0].ResultBatches)
}

func TestEarlyBackoffLeafModel(t *testing.T) {
	// Both models automatic with max batch size 8: per-model full sweep is
	// 2 * (2*4) = 16, so the undisturbed total is 4 + 16*16 = 260.
	//
	// Throughput doubles every step except experiments 6 and 7 (the leaf's
	// batch-size=2 block in its first full sub-sweep), which repeat the
	// batch-size=1 maximum. That prunes batch sizes 4 and 8 for instance
	// count 1 in that one sub-sweep: 2 batch sizes * 2 concurrencies = 4
	// configs fewer.
	specs := []*ModelSearchSpec{
		autoSpec("my-model", 2, 2, 8),
		autoSpec("my-modelB", 2, 2, 8),
	}

	throughput := func(i int) float64 {
		if i == 6 || i == 7 {
			return math.Pow(2, 5)
		}
		return math.Pow(2, float64(i))
	}

	configs, gen := runSweep(t, specs, throughput)

	assert.Len(t, configs, 256)
	requireAllUnique(t, configs, 2)

	stats := gen.Stats()
	assert.Equal(t, 1, stats[1].Backoffs)
	assert.Equal(t, 0, stats[0].Backoffs)
}

func TestEarlyBackoffRootModel(t *testing.T) {
	// Same shape as the leaf test, but the stall is arranged at the root:
	// experiments 36..67 (the root's batch-size=2 block, spanning two root
	// concurrencies and the leaf's full 16-config sub-sweep under each)
	// replay experiments 0..31. The root prunes batch sizes 4 and 8 for
	// instance count 1: 2 batch sizes * 2 concurrencies * 16 leaf configs =
	// 64 configs fewer.
	specs := []*ModelSearchSpec{
		autoSpec("my-model", 2, 2, 8),
		autoSpec("my-modelB", 2, 2, 8),
	}

	throughput := func(i int) float64 {
		if i >= 36 && i < 68 {
			i -= 36
		}
		return math.Pow(2, float64(i))
	}

	configs, gen := runSweep(t, specs, throughput)

	assert.Len(t, configs, 196)
	requireAllUnique(t, configs, 2)

	stats := gen.Stats()
	assert.Equal(t, 1, stats[0].Backoffs)
	assert.Equal(t, 0, stats[1].Backoffs)
}

func TestRootDecisionUsesWindowMaximum(t *testing.T) {
	// The root must decide on the maximum across its child's entire
	// sub-sweep, not the final measurement. Throughput rises by one per
	// experiment except experiment 67, the last value of the root's
	// batch-size=2 window (36..67), which drops to 1. The window maximum 66
	// still beats the previous window's 35, so nothing backs off and the
	// full 260 configs are generated.
	specs := []*ModelSearchSpec{
		autoSpec("my-model", 2, 2, 8),
		autoSpec("my-modelB", 2, 2, 8),
	}

	throughput := func(i int) float64 {
		if i == 67 {
			return 1
		}
		return float64(i)
	}

	configs, gen := runSweep(t, specs, throughput)

	assert.Len(t, configs, 260)
	requireAllUnique(t, configs, 2)
	for _, s := range gen.Stats() {
		assert.Zero(t, s.Backoffs)
	}
}

func TestEmptyResultsNeverBackOff(t *testing.T) {
	// No throughput signal at all: every decision point is skipped and the
	// sweep enumerates fully.
	specs := []*ModelSearchSpec{
		autoSpec("my-model", 2, 2, 2),
		autoSpec("my-modelB", 2, 2, 2),
	}

	gen, err := NewRunConfigGenerator(specs, logr.Discard())
	require.NoError(t, err)

	count := 0
	for !gen.IsDone() {
		_, err := gen.NextConfig()
		require.NoError(t, err)
		count++
		gen.SetLastResults(nil)
	}
	assert.Equal(t, 68, count)
}

func TestMatchingServerEnvironments(t *testing.T) {
	env := map[string]string{
		"LD_PRELOAD":      "fake_preload_1",
		"LD_LIBRARY_PATH": "fake_library_path_1",
	}
	modelA := autoSpec("my-model", 2, 2, 2)
	modelA.ServerEnvironment = env
	modelB := autoSpec("my-modelB", 2, 2, 2)
	modelB.ServerEnvironment = map[string]string{
		"LD_PRELOAD":      "fake_preload_1",
		"LD_LIBRARY_PATH": "fake_library_path_1",
	}

	configs, _ := runSweep(t, []*ModelSearchSpec{modelA, modelB}, increasing)
	assert.Len(t, configs, 68)
}

func TestMismatchedServerEnvironments(t *testing.T) {
	modelA := autoSpec("my-model", 2, 2, 2)
	modelA.ServerEnvironment = map[string]string{
		"LD_PRELOAD":      "fake_preload_1",
		"LD_LIBRARY_PATH": "fake_library_path_1",
	}
	modelB := autoSpec("my-modelB", 2, 2, 2)
	modelB.ServerEnvironment = map[string]string{
		"LD_PRELOAD":      "fake_preload_2",
		"LD_LIBRARY_PATH": "fake_library_path_2",
	}

	_, err := NewRunConfigGenerator([]*ModelSearchSpec{modelA, modelB}, logr.Discard())
	require.Error(t, err)

	var conflict *ConfigurationConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, []string{"my-model", "my-modelB"}, conflict.Models)
	assert.Equal(t, []string{"LD_LIBRARY_PATH", "LD_PRELOAD"}, conflict.Keys)
}

func TestNextConfigAfterExhaustion(t *testing.T) {
	spec := autoSpec("my-model", 2, 2, 2)

	_, gen := runSweep(t, []*ModelSearchSpec{spec}, increasing)
	require.True(t, gen.IsDone())

	_, err := gen.NextConfig()
	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
}

func TestDeclaredModelOrderIsPreserved(t *testing.T) {
	specs := []*ModelSearchSpec{
		autoSpec("first", 2, 1, 1),
		autoSpec("second", 2, 1, 1),
	}

	configs, _ := runSweep(t, specs, increasing)
	require.NotEmpty(t, configs)
	for _, rc := range configs {
		models := rc.ModelRunConfigs()
		require.Len(t, models, 2)
		assert.Equal(t, "first", models[0].ModelName)
		assert.Equal(t, "second", models[1].ModelName)
	}
}

func TestDefaultPhasePrecedesFullPhase(t *testing.T) {
	specs := []*ModelSearchSpec{
		autoSpec("my-model", 2, 2, 2),
		autoSpec("my-modelB", 2, 2, 2),
	}

	configs, _ := runSweep(t, specs, increasing)
	require.Len(t, configs, 68)

	// First 4 configs hold every model at its baseline; afterwards no
	// baseline entry appears again.
	for i, rc := range configs {
		for _, m := range rc.ModelRunConfigs() {
			if i < 4 {
				assert.True(t, m.ModelConfig.IsDefault, "config %d", i)
			} else {
				assert.False(t, m.ModelConfig.IsDefault, "config %d", i)
			}
		}
	}
}
