// Package metrics exports pass results in the node-exporter textfile format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/tesso57/feedwatch/internal/application/usecase"
)

const namespace = "feedwatch"

// Recorder holds the gauges describing the most recent pass.
type Recorder struct {
	registry *prometheus.Registry

	newArticles  *prometheus.GaugeVec
	filtered     *prometheus.GaugeVec
	expired      *prometheus.GaugeVec
	failureCount *prometheus.GaugeVec
	feedUp       *prometheus.GaugeVec
	alerts       prometheus.Gauge
	notifyFailed prometheus.Gauge
	pruned       prometheus.Gauge
	lastPass     prometheus.Gauge
	duration     prometheus.Gauge
	success      prometheus.Gauge
}

// NewRecorder registers the pass metrics on a private registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		newArticles: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pass_new_articles",
			Help:      "Articles stored during the last pass",
		}, []string{"feed"}),
		filtered: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pass_filtered_articles",
			Help:      "Unseen articles rejected by the keyword filter during the last pass",
		}, []string{"feed"}),
		expired: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pass_expired_articles",
			Help:      "Unseen articles skipped for being older than the retention window during the last pass",
		}, []string{"feed"}),
		failureCount: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_consecutive_failures",
			Help:      "Consecutive fetch or parse failures of a feed",
		}, []string{"feed"}),
		feedUp: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_up",
			Help:      "Whether the feed was fetched and parsed in the last pass (1 = yes)",
		}, []string{"feed"}),
		alerts: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pass_alerts",
			Help:      "Feed health alerts raised during the last pass",
		}),
		notifyFailed: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pass_notification_failures",
			Help:      "Notifications that could not be delivered during the last pass",
		}),
		pruned: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pass_pruned_articles",
			Help:      "Articles removed by retention pruning during the last pass",
		}),
		lastPass: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_pass_timestamp_seconds",
			Help:      "Unix time the last pass finished",
		}),
		duration: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_pass_duration_seconds",
			Help:      "Wall time of the last pass",
		}),
		success: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_pass_success",
			Help:      "Whether the last pass finished without storage errors (1 = yes)",
		}),
	}
}

// Observe records a finished pass. passErr is the error returned by the pass.
func (r *Recorder) Observe(report usecase.PassReport, passErr error) {
	var alerts, notifyFailed int
	for _, f := range report.Feeds {
		r.newArticles.WithLabelValues(f.URL).Set(float64(f.NewArticles))
		r.filtered.WithLabelValues(f.URL).Set(float64(f.Filtered))
		r.expired.WithLabelValues(f.URL).Set(float64(f.Expired))
		r.failureCount.WithLabelValues(f.URL).Set(float64(f.FailureCount))
		r.feedUp.WithLabelValues(f.URL).Set(boolToFloat(!f.Failed))
		if f.Alerted {
			alerts++
		}
		if f.NotifyFailed {
			notifyFailed++
		}
	}
	r.alerts.Set(float64(alerts))
	r.notifyFailed.Set(float64(notifyFailed))
	r.pruned.Set(float64(report.Pruned))
	if !report.Finished.IsZero() {
		r.lastPass.Set(float64(report.Finished.Unix()))
		r.duration.Set(report.Finished.Sub(report.Started).Seconds())
	}
	r.success.Set(boolToFloat(passErr == nil))
}

// WriteFile atomically writes the metrics to path.
func (r *Recorder) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
