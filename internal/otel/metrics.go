package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "screen-patrol"

// Metrics holds all OTEL metric instruments for screen-patrol.
// All counters are cumulative (monotonic) and safe for concurrent use.
type Metrics struct {
	// LLM token counters (partitioned by provider + model via attributes)
	InputTokens         metric.Int64Counter
	OutputTokens        metric.Int64Counter
	CacheReadTokens     metric.Int64Counter
	CacheCreationTokens metric.Int64Counter

	// Label cache counters
	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter

	// Screen counters
	Refreshes metric.Int64Counter // partitioned by outcome: ok, error
	Fields    metric.Int64Counter
	Labels    metric.Int64Counter // partitioned by source: pattern, llm
}

// NewMetrics creates all metric instruments. Returns no-op instruments
// when no MeterProvider is registered (safe to call unconditionally).
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.InputTokens, "llm.tokens.input", "Total LLM input tokens consumed", "{token}"},
		{&m.OutputTokens, "llm.tokens.output", "Total LLM output tokens consumed", "{token}"},
		{&m.CacheReadTokens, "llm.tokens.cache_read", "Total input tokens served from provider prompt cache", "{token}"},
		{&m.CacheCreationTokens, "llm.tokens.cache_creation", "Total input tokens used to create provider prompt cache entries", "{token}"},
		{&m.CacheHits, "screen_cache.hits", "Refreshes answered from the label cache (screen unchanged)", ""},
		{&m.CacheMisses, "screen_cache.misses", "Refreshes that had to reconstruct the screen", ""},
		{&m.Refreshes, "screen.refreshes", "Screen refreshes partitioned by outcome", ""},
		{&m.Fields, "screen.fields", "Fields reconstructed", "{field}"},
		{&m.Labels, "screen.labels", "Labels assigned partitioned by source", "{label}"},
	}
	for _, c := range counters {
		opts := []metric.Int64CounterOption{metric.WithDescription(c.desc)}
		if c.unit != "" {
			opts = append(opts, metric.WithUnit(c.unit))
		}
		counter, err := meter.Int64Counter(c.name, opts...)
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}
	return m, nil
}

// RecordTokens records LLM token usage on the metric counters.
func (m *Metrics) RecordTokens(ctx context.Context, provider, model string, input, output, cacheRead, cacheCreation int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("llm.provider", provider),
		attribute.String("llm.model", model),
	)
	m.InputTokens.Add(ctx, input, attrs)
	m.OutputTokens.Add(ctx, output, attrs)
	if cacheRead > 0 {
		m.CacheReadTokens.Add(ctx, cacheRead, attrs)
	}
	if cacheCreation > 0 {
		m.CacheCreationTokens.Add(ctx, cacheCreation, attrs)
	}
}

// RecordCacheHit records a label cache hit.
func (m *Metrics) RecordCacheHit(ctx context.Context) {
	if m == nil {
		return
	}
	m.CacheHits.Add(ctx, 1)
}

// RecordCacheMiss records a label cache miss.
func (m *Metrics) RecordCacheMiss(ctx context.Context) {
	if m == nil {
		return
	}
	m.CacheMisses.Add(ctx, 1)
}

// RecordRefresh records one screen refresh and, when it succeeded, the
// number of fields it produced.
func (m *Metrics) RecordRefresh(ctx context.Context, fields int, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Refreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("refresh.outcome", outcome)))
	if err == nil {
		m.Fields.Add(ctx, int64(fields))
	}
}

// RecordLabels records n labels assigned by source.
func (m *Metrics) RecordLabels(ctx context.Context, source string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.Labels.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("label.source", source),
	))
}
