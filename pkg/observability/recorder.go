package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	globalMetrics Metrics
	metricsMu     sync.RWMutex
)

type Metrics interface {
	RecordEngineRun(ctx context.Context, status string, duration time.Duration, iterations int, err error)
	RecordToolExecution(ctx context.Context, tool string, duration time.Duration, err error)
	RecordLLMCall(ctx context.Context, model string, duration time.Duration, inputTokens, outputTokens int, err error)
	RecordSearch(ctx context.Context, duration time.Duration, results int, err error)
}

type PrometheusMetrics struct {
	engineDuration    metric.Float64Histogram
	engineRunsTotal   metric.Int64Counter
	engineErrorsTotal metric.Int64Counter
	engineIterations  metric.Int64Histogram

	toolDuration    metric.Float64Histogram
	toolCallsTotal  metric.Int64Counter
	toolErrorsTotal metric.Int64Counter

	llmDuration     metric.Float64Histogram
	llmInputTokens  metric.Int64Counter
	llmOutputTokens metric.Int64Counter
	llmErrorsTotal  metric.Int64Counter

	searchDuration    metric.Float64Histogram
	searchResults     metric.Int64Histogram
	searchErrorsTotal metric.Int64Counter
}

func (m *PrometheusMetrics) RecordEngineRun(ctx context.Context, status string, duration time.Duration, iterations int, err error) {
	if m == nil || m.engineDuration == nil || m.engineRunsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("status", status),
	}

	m.engineDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.engineRunsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

	if iterations > 0 && m.engineIterations != nil {
		m.engineIterations.Record(ctx, int64(iterations))
	}

	if err != nil && m.engineErrorsTotal != nil {
		m.engineErrorsTotal.Add(ctx, 1)
	}
}

func (m *PrometheusMetrics) RecordToolExecution(ctx context.Context, tool string, duration time.Duration, err error) {
	if m == nil || m.toolDuration == nil || m.toolCallsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("tool", tool),
	}

	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.toolCallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

	if err != nil && m.toolErrorsTotal != nil {
		m.toolErrorsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func (m *PrometheusMetrics) RecordLLMCall(ctx context.Context, model string, duration time.Duration, inputTokens, outputTokens int, err error) {
	if m == nil || m.llmDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("model", model),
	}

	m.llmDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if inputTokens > 0 && m.llmInputTokens != nil {
		m.llmInputTokens.Add(ctx, int64(inputTokens), metric.WithAttributes(attrs...))
	}
	if outputTokens > 0 && m.llmOutputTokens != nil {
		m.llmOutputTokens.Add(ctx, int64(outputTokens), metric.WithAttributes(attrs...))
	}

	if err != nil && m.llmErrorsTotal != nil {
		m.llmErrorsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func (m *PrometheusMetrics) RecordSearch(ctx context.Context, duration time.Duration, results int, err error) {
	if m == nil || m.searchDuration == nil {
		return
	}

	m.searchDuration.Record(ctx, duration.Seconds())

	if m.searchResults != nil {
		m.searchResults.Record(ctx, int64(results))
	}

	if err != nil && m.searchErrorsTotal != nil {
		m.searchErrorsTotal.Add(ctx, 1)
	}
}

func SetGlobalMetrics(m Metrics) {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	globalMetrics = m
}

func GetGlobalMetrics() Metrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return globalMetrics
}
