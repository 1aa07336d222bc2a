package generate

import (
	"fmt"
	"strings"
)

// ExhaustedError indicates a caller contract violation: another configuration
// was requested after the sweep reported done.
type ExhaustedError struct {
	// Scope names the generator that was over-driven, e.g. a model name or
	// "run config generator".
	Scope string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: sweep exhausted, no further run configs", e.Scope)
}

// ConfigurationConflictError indicates that two profiled models declare
// server environments that cannot coexist in a single server process. It is
// raised eagerly, before any configuration is generated.
type ConfigurationConflictError struct {
	// Models are the names of the conflicting models.
	Models []string
	// Keys are the environment variable names whose values disagree.
	Keys []string
}

func (e *ConfigurationConflictError) Error() string {
	return fmt.Sprintf(
		"conflicting server environments between models [%s]: differing keys [%s]",
		strings.Join(e.Models, ", "), strings.Join(e.Keys, ", "))
}
