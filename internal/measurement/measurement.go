// Package measurement defines the result object handed back to the generator
// hierarchy after one run config has been profiled. The generators only ever
// consume the throughput scalar; everything else a profiling step attaches is
// opaque to them.
package measurement

// RunConfigMeasurement is the outcome of profiling a single run config.
type RunConfigMeasurement struct {
	perfThroughput float64
	tags           map[string]string
}

// NewRunConfigMeasurement wraps a throughput scalar produced by the external
// measurement step.
func NewRunConfigMeasurement(perfThroughput float64) *RunConfigMeasurement {
	return &RunConfigMeasurement{perfThroughput: perfThroughput}
}

// PerfThroughput returns the measured throughput in inferences per second.
func (m *RunConfigMeasurement) PerfThroughput() float64 {
	return m.perfThroughput
}

// WithTag attaches an informational label to the measurement. Tags are carried
// for reporting only and never influence sweep decisions.
func (m *RunConfigMeasurement) WithTag(name, value string) *RunConfigMeasurement {
	if m.tags == nil {
		m.tags = make(map[string]string)
	}
	m.tags[name] = value
	return m
}

// Tag returns the value of an informational label, if present.
func (m *RunConfigMeasurement) Tag(name string) (string, bool) {
	v, ok := m.tags[name]
	return v, ok
}
