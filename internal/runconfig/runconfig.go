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

// Package runconfig holds the immutable data carriers produced by the run
// config generator hierarchy: one concrete serving configuration per profiled
// model, combined into a RunConfig. Identity is structural; callers deduplicate
// generated configs by Key().
package runconfig

import (
	"fmt"
	"strings"
)

// Parameter is one additional model-config setting swept by the user, such as
// an instance-group kind or a dynamic-batching option.
type Parameter struct {
	Name  string
	Value string
}

// ParameterSet is an ordered set of additional model-config settings. A nil
// set means the model config carries no extra parameters.
type ParameterSet []Parameter

// Clone returns an independent copy of the set.
func (ps ParameterSet) Clone() ParameterSet {
	if ps == nil {
		return nil
	}
	out := make(ParameterSet, len(ps))
	copy(out, ps)
	return out
}

// ModelConfig is one point on a model's model-config axis: an instance count,
// a maximum batch size, and any additional swept parameters. IsDefault marks
// the model's baseline (unmodified) configuration; a baseline entry is always
// distinct from a generated entry even when the numeric values coincide.
type ModelConfig struct {
	InstanceCount int
	MaxBatchSize  int
	Parameters    ParameterSet
	IsDefault     bool
}

// ModelRunConfig is one concrete per-model configuration: a model config
// variant paired with a client request concurrency.
type ModelRunConfig struct {
	ModelName   string
	Concurrency int
	ModelConfig ModelConfig
}

// Key returns a canonical structural identity for the per-model config.
func (c ModelRunConfig) Key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:c%d:i%d:b%d", c.ModelName, c.Concurrency,
		c.ModelConfig.InstanceCount, c.ModelConfig.MaxBatchSize)
	if c.ModelConfig.IsDefault {
		b.WriteString(":default")
	}
	for _, p := range c.ModelConfig.Parameters {
		fmt.Fprintf(&b, ":%s=%s", p.Name, p.Value)
	}
	return b.String()
}

// RunConfig is an ordered tuple of per-model configurations, one per profiled
// model, in declared model order. RunConfigs are immutable once constructed.
type RunConfig struct {
	models []ModelRunConfig
}

// NewRunConfig builds a RunConfig from per-model configs in declared order.
// The input slice is copied.
func NewRunConfig(models []ModelRunConfig) RunConfig {
	out := make([]ModelRunConfig, len(models))
	copy(out, models)
	return RunConfig{models: out}
}

// ModelRunConfigs returns a copy of the per-model configurations.
func (rc RunConfig) ModelRunConfigs() []ModelRunConfig {
	out := make([]ModelRunConfig, len(rc.models))
	copy(out, rc.models)
	return out
}

// Len returns the number of per-model configurations.
func (rc RunConfig) Len() int {
	return len(rc.models)
}

// Key returns a canonical structural identity for the combined config. Two
// RunConfigs are equal iff every per-model slot is equal, so equal configs
// always share a key.
func (rc RunConfig) Key() string {
	keys := make([]string, len(rc.models))
	for i, m := range rc.models {
		keys[i] = m.Key()
	}
	return strings.Join(keys, "|")
}

// String implements fmt.Stringer for log output.
func (rc RunConfig) String() string {
	return rc.Key()
}
