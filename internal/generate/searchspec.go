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

	"github.com/DmytroBabenko/model-analyzer/internal/runconfig"
)

// ModelSearchSpec is the fully resolved, per-model description of what to
// sweep. It is produced once by the config-ingestion layer (auto vs. manual
// already decided, bounds already defaulted) and read-only thereafter.
type ModelSearchSpec struct {
	// ModelName identifies the profiled model.
	ModelName string

	// AutoSearch is true unless the user disabled automatic search or
	// supplied manual model-config parameters.
	AutoSearch bool

	// ConcurrencyValues is the resolved concurrency axis: an explicit user
	// list, or a doubling sweep when searching automatically.
	ConcurrencyValues []int

	// InstanceCounts is the resolved instance-count axis.
	InstanceCounts []int

	// BatchSizes is the resolved max-batch-size axis.
	BatchSizes []int

	// ParameterCombinations is the cartesian product of any additional
	// user-supplied parameter lists. Empty when none were given.
	ParameterCombinations []runconfig.ParameterSet

	// ServerEnvironment holds environment variables the model's server
	// process requires. Models sharing a server process must agree on it.
	ServerEnvironment map[string]string

	// DisableConcurrencySweep is set when a manual concurrency list of size
	// one effectively removes the concurrency axis from the sweep.
	DisableConcurrencySweep bool

	// DefaultConfig is the model's baseline (unmodified) serving
	// configuration, measured during the default pass.
	DefaultConfig runconfig.ModelConfig
}

// Validate checks the non-empty axis invariants.
func (s *ModelSearchSpec) Validate() error {
	if s.ModelName == "" {
		return fmt.Errorf("model search spec has no model name")
	}
	if len(s.ConcurrencyValues) == 0 {
		return fmt.Errorf("model %s: concurrency axis is empty", s.ModelName)
	}
	if len(s.InstanceCounts) == 0 {
		return fmt.Errorf("model %s: instance count axis is empty", s.ModelName)
	}
	if len(s.BatchSizes) == 0 {
		return fmt.Errorf("model %s: batch size axis is empty", s.ModelName)
	}
	return nil
}

// parameterSets returns the parameter-combination axis, or a single empty set
// when the user supplied no additional parameters.
func (s *ModelSearchSpec) parameterSets() []runconfig.ParameterSet {
	if len(s.ParameterCombinations) == 0 {
		return []runconfig.ParameterSet{nil}
	}
	return s.ParameterCombinations
}

// defaultConfig returns the baseline entry with its marker forced on.
func (s *ModelSearchSpec) defaultConfig() runconfig.ModelConfig {
	cfg := s.DefaultConfig
	cfg.IsDefault = true
	cfg.Parameters = cfg.Parameters.Clone()
	return cfg
}
