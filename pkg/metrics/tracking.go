package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// TrackingMetrics records location reporting outcomes.
type TrackingMetrics struct {
	reports  *prometheus.CounterVec
	distance prometheus.Histogram
}

// Report outcomes used as label values.
const (
	ReportOutcomeStored  = "stored"
	ReportOutcomeSkipped = "skipped"
	ReportOutcomeFailed  = "failed"
)

// NewTrackingMetrics registers the tracking metrics on the provided registerer.
func NewTrackingMetrics(reg prometheus.Registerer) *TrackingMetrics {
	if reg == nil {
		return &TrackingMetrics{}
	}
	reports := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "location_reports_total",
		Help: "Driver location reports by outcome.",
	}, []string{"outcome"})
	distance := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "location_report_distance_meters",
		Help:    "Distance moved between stored location reports.",
		Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 5000},
	})
	reg.MustRegister(reports, distance)
	return &TrackingMetrics{
		reports:  reports,
		distance: distance,
	}
}

// IncReport increments the reports counter for the given outcome.
func (t *TrackingMetrics) IncReport(outcome string) {
	if t == nil || t.reports == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	t.reports.WithLabelValues(outcome).Inc()
}

// ObserveDistance records the distance moved since the prior stored report.
func (t *TrackingMetrics) ObserveDistance(meters float64) {
	if t == nil || t.distance == nil {
		return
	}
	if meters < 0 {
		return
	}
	t.distance.Observe(meters)
}
