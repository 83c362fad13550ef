// Package observe provides application-wide observability primitives for
// VoiceScreen: OpenTelemetry metrics and the SDK provider setup that
// bridges them to a Prometheus /metrics endpoint.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all VoiceScreen
// metrics.
const meterName = "github.com/rehearsal-dev/voicescreen"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// ScoringDuration tracks per-answer scoring latency.
	ScoringDuration metric.Float64Histogram

	// QuestionGenDuration tracks question-set generation latency.
	QuestionGenDuration metric.Float64Histogram

	// UpstreamConnectDuration tracks connect/setup latency of the
	// conversational engine.
	UpstreamConnectDuration metric.Float64Histogram

	// FinalizeDuration tracks end-to-end session finalization latency.
	FinalizeDuration metric.Float64Histogram

	// --- Counters ---

	// SessionsTotal counts finished sessions. Use with attribute:
	//   attribute.String("result", "complete"|"error"|"abandoned")
	SessionsTotal metric.Int64Counter

	// TurnsTotal counts closed candidate turns. Use with attribute:
	//   attribute.String("outcome", "answered"|"no_speech"|"too_short")
	TurnsTotal metric.Int64Counter

	// AudioFrames counts audio messages relayed. Use with attribute:
	//   attribute.String("direction", "inbound"|"outbound")
	AudioFrames metric.Int64Counter

	// UpstreamErrors counts conversational-engine failures.
	UpstreamErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live interview sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline and LLM-call latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.ScoringDuration, err = m.Float64Histogram("voicescreen.scoring.duration",
		metric.WithDescription("Latency of a single answer-scoring call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.QuestionGenDuration, err = m.Float64Histogram("voicescreen.questions.duration",
		metric.WithDescription("Latency of question-set generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.UpstreamConnectDuration, err = m.Float64Histogram("voicescreen.upstream.connect.duration",
		metric.WithDescription("Latency of conversational-engine connect and setup."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.FinalizeDuration, err = m.Float64Histogram("voicescreen.finalize.duration",
		metric.WithDescription("End-to-end latency of session finalization."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.SessionsTotal, err = m.Int64Counter("voicescreen.sessions.total",
		metric.WithDescription("Finished interview sessions by result."),
	); err != nil {
		return nil, err
	}
	if met.TurnsTotal, err = m.Int64Counter("voicescreen.turns.total",
		metric.WithDescription("Closed candidate turns by outcome."),
	); err != nil {
		return nil, err
	}
	if met.AudioFrames, err = m.Int64Counter("voicescreen.audio.frames",
		metric.WithDescription("Audio messages relayed by direction."),
	); err != nil {
		return nil, err
	}
	if met.UpstreamErrors, err = m.Int64Counter("voicescreen.upstream.errors",
		metric.WithDescription("Conversational-engine failures."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("voicescreen.active_sessions",
		metric.WithDescription("Number of live interview sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("voicescreen.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordSessionEnd records a finished session with its result.
func (m *Metrics) RecordSessionEnd(ctx context.Context, result string) {
	m.SessionsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("result", result)),
	)
}

// RecordTurn records a closed candidate turn with its outcome.
func (m *Metrics) RecordTurn(ctx context.Context, outcome string) {
	m.TurnsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordAudioFrame records one relayed audio message.
func (m *Metrics) RecordAudioFrame(ctx context.Context, direction string) {
	m.AudioFrames.Add(ctx, 1,
		metric.WithAttributes(attribute.String("direction", direction)),
	)
}
