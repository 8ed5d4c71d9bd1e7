// Package metrics exposes the turn orchestrator's runtime behavior as
// Prometheus instruments, grounded on the observability package of the
// sibling voice-assistant repo in the retrieval pack
// (ent0n29-samantha/internal/observability/metrics.go).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/lokutor-ai/voiceturn/internal/turn"
)

// Metrics groups every Prometheus instrument fed by the turn orchestrator.
type Metrics struct {
	ActiveSessions    prometheus.Gauge
	TurnsTotal        *prometheus.CounterVec
	SegmentsTotal     *prometheus.CounterVec
	AudioChunksTotal  *prometheus.CounterVec
	FirstDeltaLatency prometheus.Histogram
	FirstAudioLatency prometheus.Histogram
	TurnTotalLatency  prometheus.Histogram
	InterruptLatency  prometheus.Histogram
	ProviderErrors    *prometheus.CounterVec
}

// New registers every instrument under namespace (e.g. "voiceturn") against
// reg. Pass prometheus.NewRegistry() in tests to avoid polluting the
// default global registry across test runs.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of currently connected voice sessions.",
		}),
		TurnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Turns completed by outcome.",
		}, []string{"outcome"}),
		SegmentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tts_segments_total",
			Help:      "Text segments synthesized by voice language.",
		}, []string{"language"}),
		AudioChunksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_chunks_total",
			Help:      "Binary audio frames sent by synthesizer backend.",
		}, []string{"backend"}),
		FirstDeltaLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "first_delta_latency_ms",
			Help:      "Latency to the first assistant_delta after user_text in milliseconds.",
			Buckets:   []float64{50, 100, 200, 300, 500, 700, 1000, 1500, 2500},
		}),
		FirstAudioLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "first_audio_latency_ms",
			Help:      "Latency to the first audio binary frame in milliseconds.",
			Buckets:   []float64{100, 200, 300, 500, 700, 900, 1200, 2000, 3500},
		}),
		TurnTotalLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_total_latency_ms",
			Help:      "Total turn latency from user_text to idle in milliseconds.",
			Buckets:   []float64{200, 500, 1000, 2000, 4000, 7000, 12000, 20000},
		}),
		InterruptLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "interrupt_latency_ms",
			Help:      "Time spent inside the strong-cancel grace window in milliseconds.",
			Buckets:   []float64{20, 50, 100, 150, 200, 250, 400},
		}),
		ProviderErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Generator/synthesizer errors by error type.",
		}, []string{"err_type"}),
	}
}

// ObserveTurn feeds one turn's finished Record into the histograms and
// counters above. Call once, after the turn reaches a terminal state.
func (m *Metrics) ObserveTurn(rec turn.Record) {
	m.TurnsTotal.WithLabelValues(rec.Outcome).Inc()

	if rec.FirstDeltaMs != nil {
		m.FirstDeltaLatency.Observe(float64(*rec.FirstDeltaMs))
	}
	if rec.FirstAudioMs != nil {
		m.FirstAudioLatency.Observe(float64(*rec.FirstAudioMs))
	}
	if rec.TotalMs != nil {
		m.TurnTotalLatency.Observe(float64(*rec.TotalMs))
	}
	if rec.InterruptMs != nil {
		m.InterruptLatency.Observe(float64(*rec.InterruptMs))
	}
	if rec.Outcome == turn.OutcomeError && rec.ErrType != "" {
		m.ProviderErrors.WithLabelValues(rec.ErrType).Inc()
	}
}
