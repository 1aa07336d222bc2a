// Package constants centralizes metric and label names shared between the
// metrics package and its consumers.
package constants

// Metric names.
const (
	RunConfigsGeneratedTotal   = "model_analyzer_run_configs_generated_total"
	ModelConfigsGeneratedTotal = "model_analyzer_model_configs_generated_total"
	EarlyBackoffTotal          = "model_analyzer_early_backoff_total"
	MeasurementsTotal          = "model_analyzer_measurements_total"
	BestThroughput             = "model_analyzer_best_throughput"
)

// Label names.
const (
	LabelModelName = "model_name"
	LabelPhase     = "phase"
)
