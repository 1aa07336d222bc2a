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
	"github.com/DmytroBabenko/model-analyzer/internal/runconfig"
)

// DoubledSequence returns start, start*2, start*4, ... for every value not
// exceeding max. Used for the automatic concurrency and batch-size axes.
func DoubledSequence(start, max int) []int {
	if start <= 0 || max < start {
		return nil
	}
	var out []int
	for v := start; v <= max; v *= 2 {
		out = append(out, v)
	}
	return out
}

// LinearSequence returns min..max inclusive. Used for the automatic
// instance-count axis.
func LinearSequence(min, max int) []int {
	if max < min {
		return nil
	}
	out := make([]int, 0, max-min+1)
	for v := min; v <= max; v++ {
		out = append(out, v)
	}
	return out
}

// ParameterAxis is one user-supplied list of values for an additional
// model-config setting.
type ParameterAxis struct {
	Name   string
	Values []string
}

// ParameterCombinations returns the cartesian product of the given axes as
// ordered parameter sets. Axis order is preserved and the first axis varies
// slowest. No axes yields nil.
func ParameterCombinations(axes []ParameterAxis) []runconfig.ParameterSet {
	if len(axes) == 0 {
		return nil
	}
	for _, axis := range axes {
		if len(axis.Values) == 0 {
			return nil
		}
	}

	sets := []runconfig.ParameterSet{nil}
	for _, axis := range axes {
		next := make([]runconfig.ParameterSet, 0, len(sets)*len(axis.Values))
		for _, base := range sets {
			for _, v := range axis.Values {
				set := make(runconfig.ParameterSet, len(base), len(base)+1)
				copy(set, base)
				set = append(set, runconfig.Parameter{Name: axis.Name, Value: v})
				next = append(next, set)
			}
		}
		sets = next
	}
	return sets
}
