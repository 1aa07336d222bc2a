package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/DmytroBabenko/model-analyzer/internal/measurement"
	"github.com/DmytroBabenko/model-analyzer/internal/runconfig"
)

// httpMeasurer delegates each measurement to an external profiling service:
// one POST per run config, answered with the observed throughput.
type httpMeasurer struct {
	endpoint string
	client   *http.Client
}

func newHTTPMeasurer(endpoint string, timeout time.Duration) *httpMeasurer {
	return &httpMeasurer{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type modelPayload struct {
	Name          string            `json:"name"`
	Concurrency   int               `json:"concurrency"`
	InstanceCount int               `json:"instance_count"`
	MaxBatchSize  int               `json:"max_batch_size"`
	IsDefault     bool              `json:"is_default"`
	Parameters    map[string]string `json:"parameters,omitempty"`
}

type measureRequest struct {
	Models []modelPayload `json:"models"`
}

type measureResponse struct {
	PerfThroughput float64 `json:"perf_throughput"`
}

// Measure implements profiler.Measurer.
func (m *httpMeasurer) Measure(ctx context.Context, rc runconfig.RunConfig) (*measurement.RunConfigMeasurement, error) {
	payload := measureRequest{}
	for _, mrc := range rc.ModelRunConfigs() {
		mp := modelPayload{
			Name:          mrc.ModelName,
			Concurrency:   mrc.Concurrency,
			InstanceCount: mrc.ModelConfig.InstanceCount,
			MaxBatchSize:  mrc.ModelConfig.MaxBatchSize,
			IsDefault:     mrc.ModelConfig.IsDefault,
		}
		if len(mrc.ModelConfig.Parameters) > 0 {
			mp.Parameters = make(map[string]string, len(mrc.ModelConfig.Parameters))
			for _, p := range mrc.ModelConfig.Parameters {
				mp.Parameters[p.Name] = p.Value
			}
		}
		payload.Models = append(payload.Models, mp)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode run config: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("measurement request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("measurement endpoint returned %d: %s", resp.StatusCode, data)
	}

	var out measureResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode measurement response: %w", err)
	}
	return measurement.NewRunConfigMeasurement(out.PerfThroughput), nil
}

// enumerationMeasurer returns strictly increasing fake throughput so no sweep
// axis ever backs off. Used by --dry-run to print the complete search space.
type enumerationMeasurer struct {
	next float64
}

func newEnumerationMeasurer() *enumerationMeasurer {
	return &enumerationMeasurer{}
}

// Measure implements profiler.Measurer.
func (m *enumerationMeasurer) Measure(_ context.Context, _ runconfig.RunConfig) (*measurement.RunConfigMeasurement, error) {
	m.next++
	return measurement.NewRunConfigMeasurement(m.next), nil
}
