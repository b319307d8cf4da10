package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	upstreamReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "manualrebuild",
			Name:      "upstream_requests_total",
			Help:      "Total upstream generateContent calls by route, model and result",
		},
		[]string{"route", "model", "result"},
	)

	upstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "manualrebuild",
			Name:      "upstream_request_duration_seconds",
			Help:      "Duration of upstream generateContent calls by route and model",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 90, 120},
		},
		[]string{"route", "model"},
	)

	reconstructReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "manualrebuild",
			Name:      "reconstruct_requests_total",
			Help:      "Reconstruct requests by outcome (success, invalid_request, configuration, upstream, unexpected)",
		},
		[]string{"outcome"},
	)

	upstreamTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "manualrebuild",
			Name:      "upstream_tokens_total",
			Help:      "Tokens reported by the provider, by model and direction",
		},
		[]string{"model", "direction"},
	)

	outputBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "manualrebuild",
			Name:      "reconstruct_output_bytes",
			Help:      "Size of generated text returned to callers",
			Buckets:   prometheus.ExponentialBuckets(1024, 2, 10),
		},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(upstreamReqs, upstreamLatency, reconstructReqs, upstreamTokens, outputBytes)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveUpstream(route, model, result string, dur time.Duration) {
	upstreamReqs.WithLabelValues(route, model, result).Inc()
	upstreamLatency.WithLabelValues(route, model).Observe(dur.Seconds())
}

func AddTokens(model string, in, out int) {
	if in > 0 {
		upstreamTokens.WithLabelValues(model, "in").Add(float64(in))
	}
	if out > 0 {
		upstreamTokens.WithLabelValues(model, "out").Add(float64(out))
	}
}

func IncReconstruct(outcome string) { reconstructReqs.WithLabelValues(outcome).Inc() }

func ObserveOutput(n int) { outputBytes.Observe(float64(n)) }
