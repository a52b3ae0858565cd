package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type MetricsConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// InitMetrics wires the OpenTelemetry meter to the default prometheus
// registry. The HTTP layer exposes the registry on /metrics.
func InitMetrics(ctx context.Context, cfg MetricsConfig) (*PrometheusMetrics, error) {
	if !cfg.Enabled {
		return &PrometheusMetrics{}, nil
	}

	promExporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(promExporter),
	)

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = DefaultServiceName
	}
	meter := meterProvider.Meter(serviceName)

	m := &PrometheusMetrics{}

	m.engineDuration, err = meter.Float64Histogram(
		"scholarag_engine_run_duration_seconds",
		metric.WithDescription("Agent engine run duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine duration histogram: %w", err)
	}

	m.engineRunsTotal, err = meter.Int64Counter(
		"scholarag_engine_runs_total",
		metric.WithDescription("Total agent engine runs"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine runs counter: %w", err)
	}

	m.engineErrorsTotal, err = meter.Int64Counter(
		"scholarag_engine_errors_total",
		metric.WithDescription("Total agent engine errors"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine errors counter: %w", err)
	}

	m.engineIterations, err = meter.Int64Histogram(
		"scholarag_engine_iterations",
		metric.WithDescription("Router iterations per engine run"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine iterations histogram: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"scholarag_tool_execution_duration_seconds",
		metric.WithDescription("Tool execution duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool duration histogram: %w", err)
	}

	m.toolCallsTotal, err = meter.Int64Counter(
		"scholarag_tool_calls_total",
		metric.WithDescription("Total tool calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool calls counter: %w", err)
	}

	m.toolErrorsTotal, err = meter.Int64Counter(
		"scholarag_tool_errors_total",
		metric.WithDescription("Total tool errors"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool errors counter: %w", err)
	}

	m.llmDuration, err = meter.Float64Histogram(
		"scholarag_llm_request_duration_seconds",
		metric.WithDescription("LLM request duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm duration histogram: %w", err)
	}

	m.llmInputTokens, err = meter.Int64Counter(
		"scholarag_llm_tokens_input_total",
		metric.WithDescription("Total input tokens sent to the LLM"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm input tokens counter: %w", err)
	}

	m.llmOutputTokens, err = meter.Int64Counter(
		"scholarag_llm_tokens_output_total",
		metric.WithDescription("Total output tokens from the LLM"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm output tokens counter: %w", err)
	}

	m.llmErrorsTotal, err = meter.Int64Counter(
		"scholarag_llm_errors_total",
		metric.WithDescription("Total LLM errors"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm errors counter: %w", err)
	}

	m.searchDuration, err = meter.Float64Histogram(
		"scholarag_search_duration_seconds",
		metric.WithDescription("Hybrid search duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create search duration histogram: %w", err)
	}

	m.searchResults, err = meter.Int64Histogram(
		"scholarag_search_results",
		metric.WithDescription("Fused results per search"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create search results histogram: %w", err)
	}

	m.searchErrorsTotal, err = meter.Int64Counter(
		"scholarag_search_errors_total",
		metric.WithDescription("Total search errors"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create search errors counter: %w", err)
	}

	return m, nil
}
