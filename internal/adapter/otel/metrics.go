package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "annapurna"

// Metrics holds all Annapurna metric instruments.
type Metrics struct {
	ChatsServed      metric.Int64Counter
	CacheHits        metric.Int64Counter
	RateLimited      metric.Int64Counter
	UpstreamFailures metric.Int64Counter
	CircuitSkips     metric.Int64Counter
	ChatDuration     metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.ChatsServed, err = meter.Int64Counter("annapurna.chats.served",
		metric.WithDescription("Number of chat requests answered"))
	if err != nil {
		return nil, err
	}

	m.CacheHits, err = meter.Int64Counter("annapurna.cache.hits",
		metric.WithDescription("Number of responses served from cache"))
	if err != nil {
		return nil, err
	}

	m.RateLimited, err = meter.Int64Counter("annapurna.ratelimited",
		metric.WithDescription("Number of requests rejected by the rate limiter"))
	if err != nil {
		return nil, err
	}

	m.UpstreamFailures, err = meter.Int64Counter("annapurna.upstream.failures",
		metric.WithDescription("Number of failed LLM or web search calls"))
	if err != nil {
		return nil, err
	}

	m.CircuitSkips, err = meter.Int64Counter("annapurna.circuit.skips",
		metric.WithDescription("Number of upstream calls skipped while a circuit was open"))
	if err != nil {
		return nil, err
	}

	m.ChatDuration, err = meter.Float64Histogram("annapurna.chat.duration_seconds",
		metric.WithDescription("Chat request duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
