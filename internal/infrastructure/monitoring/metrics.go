package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics manages the Prometheus metrics. All record methods are safe on a nil receiver so
// components can run without metrics in tests.
type Metrics struct {
	TokensIssued        *prometheus.CounterVec
	TokenVerifications  *prometheus.CounterVec
	PublicKeyFetches    *prometheus.CounterVec
	PublicKeyFetchTime  prometheus.Histogram
	AuthorizationDenied *prometheus.CounterVec
	RateLimitHits       *prometheus.CounterVec
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TokensIssued: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pokedex_auth_tokens_issued_total",
				Help: "Total number of token issue attempts.",
			},
			[]string{"result"},
		),
		TokenVerifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pokedex_auth_token_verifications_total",
				Help: "Total number of token verifications by outcome.",
			},
			[]string{"verifier", "result"},
		),
		PublicKeyFetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pokedex_auth_public_key_fetches_total",
				Help: "Total number of public key fetches from the issuer.",
			},
			[]string{"result"},
		),
		PublicKeyFetchTime: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pokedex_auth_public_key_fetch_seconds",
				Help:    "Latency of public key fetches.",
				Buckets: prometheus.DefBuckets,
			},
		),
		AuthorizationDenied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pokedex_auth_authorization_denied_total",
				Help: "Total number of requests rejected by the authentication or RBAC gates.",
			},
			[]string{"reason"},
		),
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pokedex_auth_rate_limit_hits_total",
				Help: "Total number of requests rejected by the rate limiter.",
			},
			[]string{"scope"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pokedex_auth_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pokedex_auth_http_request_duration_seconds",
				Help:    "Latency of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// RecordTokenIssue records the outcome of a token issue.
func (m *Metrics) RecordTokenIssue(success bool) {
	if m == nil {
		return
	}
	m.TokensIssued.WithLabelValues(result(success)).Inc()
}

// RecordTokenVerification records a verification outcome. verifier is "local" or "remote";
// outcome is "success" or an error code.
func (m *Metrics) RecordTokenVerification(verifier, outcome string) {
	if m == nil {
		return
	}
	m.TokenVerifications.WithLabelValues(verifier, outcome).Inc()
}

// RecordPublicKeyFetch records a fetch of the issuer's public key.
func (m *Metrics) RecordPublicKeyFetch(success bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.PublicKeyFetches.WithLabelValues(result(success)).Inc()
	m.PublicKeyFetchTime.Observe(duration.Seconds())
}

// RecordAuthorizationDenied records a rejected request. reason is an error code.
func (m *Metrics) RecordAuthorizationDenied(reason string) {
	if m == nil {
		return
	}
	m.AuthorizationDenied.WithLabelValues(reason).Inc()
}

// RecordRateLimitHit records a rate limit rejection.
func (m *Metrics) RecordRateLimitHit(scope string) {
	if m == nil {
		return
	}
	m.RateLimitHits.WithLabelValues(scope).Inc()
}

// RecordHTTPRequest records a completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
