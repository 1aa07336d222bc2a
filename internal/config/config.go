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

// Package config ingests the user's profile configuration and resolves it
// into fully-specified model search specs. All auto-vs-manual decisions and
// bound defaulting happen here; the generator core never sees raw user input.
//
// The YAML schema accepts models either as bare names or as per-model
// mappings, and most value positions accept a scalar or a list:
//
//	run_config_search_max_concurrency: 1024
//	profile_models:
//	  - my-model
//	  - my-other-model:
//	      parameters:
//	        concurrency: [1, 2, 3]
//	      model_config_parameters:
//	        max_batch_size: [1, 4, 16]
//	        instance_group:
//	          kind: KIND_GPU
//	          count: [1, 2]
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Search bound defaults, applied when the user leaves a bound unset.
const (
	DefaultMaxConcurrency   = 1024
	DefaultMaxInstanceCount = 5
	DefaultMaxBatchSize     = 128
)

// Baseline fallbacks used when a model does not describe its deployed
// configuration.
const (
	DefaultBaselineInstanceCount = 1
	DefaultBaselineMaxBatchSize  = 8
)

// Profile is the top-level profile configuration.
type Profile struct {
	SearchDisable    bool      `yaml:"run_config_search_disable"`
	MaxConcurrency   int       `yaml:"run_config_search_max_concurrency"`
	MaxInstanceCount int       `yaml:"run_config_search_max_instance_count"`
	MaxBatchSize     int       `yaml:"run_config_search_max_model_batch_size"`
	ProfileModels    ModelList `yaml:"profile_models"`
}

// Model is the per-model profile configuration.
type Model struct {
	Name                  string                `yaml:"-"`
	Parameters            ModelParameters       `yaml:"parameters"`
	ModelConfigParameters ModelConfigParameters `yaml:"model_config_parameters"`
	ServerEnvironment     map[string]string     `yaml:"server_environment"`
	BaselineConfig        BaselineConfig        `yaml:"baseline_config"`
}

// ModelParameters are client-side sweep parameters.
type ModelParameters struct {
	Concurrency IntList `yaml:"concurrency"`
}

// ModelConfigParameters are explicit server-side sweep lists. Supplying any of
// them switches the model from automatic to manual search.
type ModelConfigParameters struct {
	MaxBatchSize    IntList              `yaml:"max_batch_size"`
	InstanceGroup   InstanceGroup        `yaml:"instance_group"`
	DynamicBatching map[string]ValueList `yaml:"dynamic_batching"`
}

// InstanceGroup describes the swept instance-group shape. In YAML it may be a
// mapping or a sequence of mappings; only the first entry is considered.
type InstanceGroup struct {
	Kind  string  `yaml:"kind"`
	Count IntList `yaml:"count"`
}

// UnmarshalYAML accepts both the mapping and sequence-of-mappings forms.
func (ig *InstanceGroup) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		if len(node.Content) == 0 {
			return nil
		}
		node = node.Content[0]
	}
	type plain InstanceGroup
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*ig = InstanceGroup(p)
	return nil
}

// BaselineConfig describes the model's deployed (unmodified) configuration.
type BaselineConfig struct {
	InstanceCount int `yaml:"instance_count"`
	MaxBatchSize  int `yaml:"max_batch_size"`
}

// IntList is an ordered list of ints that also accepts a bare scalar.
type IntList []int

// UnmarshalYAML accepts `x: 4` and `x: [1, 2, 4]`.
func (l *IntList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v int
		if err := node.Decode(&v); err != nil {
			return err
		}
		*l = IntList{v}
		return nil
	case yaml.SequenceNode:
		var vs []int
		if err := node.Decode(&vs); err != nil {
			return err
		}
		*l = vs
		return nil
	default:
		return fmt.Errorf("line %d: expected scalar or sequence of ints", node.Line)
	}
}

// ValueList is an ordered list of scalar values kept in their raw YAML string
// form, so integer and string parameter values sweep uniformly.
type ValueList []string

// UnmarshalYAML accepts a scalar or a sequence of scalars.
func (l *ValueList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*l = ValueList{node.Value}
		return nil
	case yaml.SequenceNode:
		vs := make(ValueList, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: expected scalar sweep value", item.Line)
			}
			vs = append(vs, item.Value)
		}
		*l = vs
		return nil
	default:
		return fmt.Errorf("line %d: expected scalar or sequence", node.Line)
	}
}

// ModelList preserves the declared model order from either YAML form.
type ModelList []Model

// UnmarshalYAML accepts a sequence of names and/or single-key mappings, or a
// top-level mapping of name to model configuration.
func (ml *ModelList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			m, err := decodeModel(node.Content[i], node.Content[i+1])
			if err != nil {
				return err
			}
			*ml = append(*ml, m)
		}
		return nil
	case yaml.SequenceNode:
		for _, item := range node.Content {
			switch item.Kind {
			case yaml.ScalarNode:
				*ml = append(*ml, Model{Name: item.Value})
			case yaml.MappingNode:
				if len(item.Content) < 2 {
					return fmt.Errorf("line %d: empty profile model entry", item.Line)
				}
				m, err := decodeModel(item.Content[0], item.Content[1])
				if err != nil {
					return err
				}
				*ml = append(*ml, m)
			default:
				return fmt.Errorf("line %d: expected model name or mapping", item.Line)
			}
		}
		return nil
	default:
		return fmt.Errorf("line %d: profile_models must be a sequence or mapping", node.Line)
	}
}

func decodeModel(nameNode, valueNode *yaml.Node) (Model, error) {
	var m Model
	if valueNode.Tag != "!!null" {
		if err := valueNode.Decode(&m); err != nil {
			return Model{}, err
		}
	}
	m.Name = nameNode.Value
	return m, nil
}

// Load reads and parses a profile configuration file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile config: %w", err)
	}
	return Parse(data)
}

// Parse parses a profile configuration, applies defaults, and validates it.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile config: %w", err)
	}
	p.applyDefaults()
	if len(p.ProfileModels) == 0 {
		return nil, fmt.Errorf("profile config declares no profile_models")
	}
	return &p, nil
}

func (p *Profile) applyDefaults() {
	if p.MaxConcurrency <= 0 {
		p.MaxConcurrency = DefaultMaxConcurrency
	}
	if p.MaxInstanceCount <= 0 {
		p.MaxInstanceCount = DefaultMaxInstanceCount
	}
	if p.MaxBatchSize <= 0 {
		p.MaxBatchSize = DefaultMaxBatchSize
	}
}
