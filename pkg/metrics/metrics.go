package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	SiteChecksTotal     *prometheus.CounterVec
	SiteCheckDuration   prometheus.Histogram
	AlertsTotal         *prometheus.CounterVec
	PDFDownloadsTotal   *prometheus.CounterVec
	SiteLogsTrimmed     prometheus.Counter
	MonitoringEnabled   prometheus.Gauge
)

func init() {
	Init(prometheus.NewRegistry())
}

// Init (re)creates every collector on the given registerer. main passes the
// default registerer; package init uses a private registry so tests and
// library users never hit duplicate registration.
func Init(reg prometheus.Registerer) {
	factory := promauto.With(reg)

	HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	SiteChecksTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_checks_total",
			Help: "Total number of site checks by result.",
		},
		[]string{"result"}, // up, error, skipped
	)

	SiteCheckDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "site_check_duration_seconds",
			Help:    "Duration of page scans.",
			Buckets: []float64{1, 2, 5, 10, 15, 30, 60},
		},
	)

	AlertsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_sent_total",
			Help: "Alerts handed to the notifier by type and delivery status.",
		},
		[]string{"type", "status"},
	)

	PDFDownloadsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdf_downloads_total",
			Help: "PDF attachment downloads by status.",
		},
		[]string{"status"},
	)

	SiteLogsTrimmed = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "site_logs_trimmed_total",
			Help: "Audit entries removed by retention trimming.",
		},
	)

	MonitoringEnabled = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "monitoring_enabled",
			Help: "1 when the scheduler is processing due sites.",
		},
	)
}
