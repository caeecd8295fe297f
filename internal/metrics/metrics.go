package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SponsorPagesFetched counts sponsorship listing pages by result.
	SponsorPagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sponsorgate_sponsor_pages_total",
		Help: "Sponsorship listing pages fetched from the platform, by result",
	}, []string{"result"})

	// SponsorChecks counts oracle decisions. "partial" means the listing was cut
	// short by an upstream failure.
	SponsorChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sponsorgate_sponsor_checks_total",
		Help: "Sponsorship checks by outcome",
	}, []string{"outcome"})

	CallbackOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sponsorgate_callback_outcomes_total",
		Help: "Authorization callbacks by result code",
	}, []string{"code"})

	SessionChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sponsorgate_session_checks_total",
		Help: "Session verifications by result code and token source",
	}, []string{"code", "source"})

	StreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sponsorgate_stream_requests_total",
		Help: "Streaming gate requests by kind and result code",
	}, []string{"kind", "code"})

	// UpstreamLatency tracks platform and storage round trips.
	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sponsorgate_upstream_duration_seconds",
		Help:    "Latency of calls to the identity platform and object storage",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"target"})
)

// IncSponsorPage records one listing page fetch.
func IncSponsorPage(ok bool) {
	result := "failure"
	if ok {
		result = "success"
	}
	SponsorPagesFetched.WithLabelValues(result).Inc()
}

func IncSponsorCheck(outcome string) {
	SponsorChecks.WithLabelValues(outcome).Inc()
}

func IncCallbackOutcome(code string) {
	CallbackOutcomes.WithLabelValues(code).Inc()
}

func IncSessionCheck(code, source string) {
	if source == "" {
		source = "none"
	}
	SessionChecks.WithLabelValues(code, source).Inc()
}

func IncStreamRequest(kind, code string) {
	StreamRequests.WithLabelValues(kind, code).Inc()
}

// ObserveUpstream records the latency of a call that started at start.
func ObserveUpstream(target string, start time.Time) {
	UpstreamLatency.WithLabelValues(target).Observe(time.Since(start).Seconds())
}
