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

/*
Package generate implements the run-config search engine: a lazily evaluated,
feedback-driven generator of serving configurations for one or more profiled
models.

# Overview

The caller repeatedly asks the RunConfigGenerator for the next combined
configuration, profiles it externally, and feeds the resulting throughput back
in before asking again:

	gen, err := generate.NewRunConfigGenerator(specs, logger)
	...
	for !gen.IsDone() {
		rc, err := gen.NextConfig()
		...
		m := profile(rc)
		gen.SetLastResults([]*measurement.RunConfigMeasurement{m})
	}

Configs are produced in a fixed, reproducible order for a given set of specs,
and no config is ever emitted twice.

# Per-model sweeps

A ModelRunConfigGenerator walks one model's search space as two passes:

 1. Default pass: the concurrency axis only, with the model's baseline
    (unmodified) configuration held fixed. This buys a cheap baseline
    throughput signal before committing to the full sweep.
 2. Full sweep: the concurrency axis crossed with every model-config variant
    (instance count x max batch size x extra parameter combinations).

The model-config axis is the outer loop and concurrency the inner loop, with
the baseline entry first. At the end of each model-config block the generator
takes the maximum throughput reported for that block and compares it against
the best maximum seen for earlier batch sizes under the same instance count.
No improvement means early backoff: the remaining, larger batch sizes for that
instance count are skipped. Instance count and concurrency always advance
normally.

# Multi-model composition

RunConfigGenerator nests one per-model generator per profiled model, first
declared model outermost (root), last declared model innermost (leaf).
Advancing a level by one value re-runs the complete sub-sweep of every level
beneath it, exactly like cartesian-product nesting. The combined sweep runs in
two phases: a default phase enumerating the product of every model's default
pass, then a full phase enumerating the product of every model's full sweep.

Throughput feedback is routed per nesting boundary: the leaf generator sees
every measurement as it arrives, while each parent is handed the accumulated
measurements of its child's entire sub-sweep in one batch when the child
exhausts. A parent's backoff decision therefore considers the maximum over the
whole window, so a late improvement inside the sub-sweep keeps the parent
exploring.

Nesting depth is a runtime parameter: levels are held in a slice and advanced
iteratively, not recursively.

# Errors

NewRunConfigGenerator fails eagerly with a ConfigurationConflictError when
models that declare a server environment disagree on it. Requesting a config
after the sweep is exhausted fails with an ExhaustedError; a missing or empty
measurement batch is never an error, only an absent improvement signal.
*/
package generate
