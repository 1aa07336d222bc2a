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

// model-analyzer sweeps serving configurations for one or more deployed
// models and reports the best-throughput configuration found.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "model-analyzer",
		Short:        "Performance-tuning sweeps for deployed inference-serving configurations",
		SilenceUsage: true,
	}
	root.AddCommand(newProfileCommand())
	return root
}
