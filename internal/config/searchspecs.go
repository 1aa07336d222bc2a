package config

import (
	"sort"

	"github.com/DmytroBabenko/model-analyzer/internal/generate"
	"github.com/DmytroBabenko/model-analyzer/internal/runconfig"
)

// SearchSpecs resolves the profile into one fully-specified search spec per
// model, in declared order.
func (p *Profile) SearchSpecs() ([]*generate.ModelSearchSpec, error) {
	specs := make([]*generate.ModelSearchSpec, 0, len(p.ProfileModels))
	for i := range p.ProfileModels {
		spec, err := p.modelSearchSpec(&p.ProfileModels[i])
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func (p *Profile) modelSearchSpec(m *Model) (*generate.ModelSearchSpec, error) {
	baseline := runconfig.ModelConfig{
		InstanceCount: m.BaselineConfig.InstanceCount,
		MaxBatchSize:  m.BaselineConfig.MaxBatchSize,
		IsDefault:     true,
	}
	if baseline.InstanceCount <= 0 {
		baseline.InstanceCount = DefaultBaselineInstanceCount
	}
	if baseline.MaxBatchSize <= 0 {
		baseline.MaxBatchSize = DefaultBaselineMaxBatchSize
	}

	spec := &generate.ModelSearchSpec{
		ModelName:         m.Name,
		ServerEnvironment: m.ServerEnvironment,
		DefaultConfig:     baseline,
	}

	switch {
	case len(m.Parameters.Concurrency) > 0:
		spec.ConcurrencyValues = m.Parameters.Concurrency
		spec.DisableConcurrencySweep = len(m.Parameters.Concurrency) == 1
	case p.SearchDisable:
		spec.ConcurrencyValues = []int{1}
		spec.DisableConcurrencySweep = true
	default:
		spec.ConcurrencyValues = generate.DoubledSequence(1, p.MaxConcurrency)
	}

	mcp := m.ModelConfigParameters
	manual := len(mcp.MaxBatchSize) > 0 || len(mcp.InstanceGroup.Count) > 0 || len(mcp.DynamicBatching) > 0
	spec.AutoSearch = !p.SearchDisable && !manual

	switch {
	case manual:
		spec.InstanceCounts = mcp.InstanceGroup.Count
		if len(spec.InstanceCounts) == 0 {
			spec.InstanceCounts = []int{baseline.InstanceCount}
		}
		spec.BatchSizes = mcp.MaxBatchSize
		if len(spec.BatchSizes) == 0 {
			spec.BatchSizes = []int{baseline.MaxBatchSize}
		}
		spec.ParameterCombinations = generate.ParameterCombinations(parameterAxes(mcp))
	case p.SearchDisable:
		spec.InstanceCounts = []int{baseline.InstanceCount}
		spec.BatchSizes = []int{baseline.MaxBatchSize}
	default:
		spec.InstanceCounts = generate.LinearSequence(1, p.MaxInstanceCount)
		spec.BatchSizes = generate.DoubledSequence(1, p.MaxBatchSize)
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// parameterAxes collects the extra sweep axes beyond instance count and batch
// size. Dynamic-batching keys are sorted so the resolved axis order, and with
// it the sweep order, is deterministic.
func parameterAxes(mcp ModelConfigParameters) []generate.ParameterAxis {
	var axes []generate.ParameterAxis
	if mcp.InstanceGroup.Kind != "" {
		axes = append(axes, generate.ParameterAxis{
			Name:   "instance_group.kind",
			Values: []string{mcp.InstanceGroup.Kind},
		})
	}

	keys := make([]string, 0, len(mcp.DynamicBatching))
	for k := range mcp.DynamicBatching {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		axes = append(axes, generate.ParameterAxis{
			Name:   "dynamic_batching." + k,
			Values: mcp.DynamicBatching[k],
		})
	}
	return axes
}
