package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AuthorizationDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrm_authorization_decisions_total",
		Help: "Total number of capability checks by capability and outcome.",
	}, []string{"capability", "allowed"})
	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrm_logins_total",
		Help: "Total number of login attempts by result.",
	}, []string{"result"})
	AccountMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrm_account_mutations_total",
		Help: "Total number of account mutations by operation and result.",
	}, []string{"operation", "result"})
	BackupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrm_backups_total",
		Help: "Total number of database backups by result.",
	}, []string{"result"})
	BackupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hrm_backup_duration_seconds",
		Help:    "Duration of database backup operations.",
		Buckets: prometheus.DefBuckets,
	})
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrm_http_requests_total",
		Help: "Total number of HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hrm_http_request_duration_seconds",
		Help:    "Duration of HTTP requests by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrm_events_published_total",
		Help: "Total number of events published on the in-process bus.",
	}, []string{"event_type"})
	EventHandlerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrm_event_handler_failures_total",
		Help: "Total number of failed or panicking event handlers.",
	}, []string{"event_type"})
	RevokedTokens = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hrm_revoked_tokens",
		Help: "Number of revoked session tokens not yet expired.",
	})
)

func RecordAuthorization(capability string, allowed bool) {
	AuthorizationDecisions.WithLabelValues(capability, strconv.FormatBool(allowed)).Inc()
}

func RecordMutation(operation string, err error) {
	AccountMutations.WithLabelValues(operation, result(err)).Inc()
}

func RecordRequest(method, route string, status int, elapsed time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func RecordBackup(started time.Time, err error) {
	BackupsTotal.WithLabelValues(result(err)).Inc()
	BackupDuration.Observe(time.Since(started).Seconds())
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
