package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/spec-kit/support-desk/internal/domain"
)

// Metrics groups the service's Prometheus collectors. A nil *Metrics is a no-op.
type Metrics struct {
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	httpErrors      *prometheus.CounterVec
	classifications *prometheus.CounterVec
	accessDenials   *prometheus.CounterVec
	emails          *prometheus.CounterVec
	rateLimitHits   *prometheus.CounterVec
}

// NewMetrics registers collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "support_desk_http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "support_desk_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"method", "path"}),
		httpErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "support_desk_http_errors_total",
			Help: "HTTP errors by domain code",
		}, []string{"method", "path", "code"}),
		classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "support_desk_classifications_total",
			Help: "Labels classified per resource and role tag",
		}, []string{"resource", "role"}),
		accessDenials: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "support_desk_access_denials_total",
			Help: "Department mismatch rejections per resource",
		}, []string{"resource"}),
		emails: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "support_desk_emails_total",
			Help: "Outbound emails by kind and outcome",
		}, []string{"kind", "outcome"}),
		rateLimitHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "support_desk_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter",
		}, []string{"bucket"}),
	}
}

// RecordRequest observes a completed HTTP request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError counts an error response by domain code.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.httpErrors.WithLabelValues(method, path, code).Inc()
}

// RecordClassification counts a routed resource.
func (m *Metrics) RecordClassification(resource string, role domain.RoleTag) {
	if m == nil {
		return
	}
	m.classifications.WithLabelValues(resource, string(role)).Inc()
}

// RecordAccessDenied counts a department mismatch.
func (m *Metrics) RecordAccessDenied(resource string) {
	if m == nil {
		return
	}
	m.accessDenials.WithLabelValues(resource).Inc()
}

// RecordEmail counts an email attempt.
func (m *Metrics) RecordEmail(kind string, err error) {
	if m == nil {
		return
	}
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	m.emails.WithLabelValues(kind, outcome).Inc()
}

// RecordRateLimited counts a rejected request.
func (m *Metrics) RecordRateLimited(bucket string) {
	if m == nil {
		return
	}
	m.rateLimitHits.WithLabelValues(bucket).Inc()
}
