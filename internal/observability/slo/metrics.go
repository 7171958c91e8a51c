package slo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SLO targets define the service level objectives of the pipeline.
// The gauges below are compared against these targets in alerting rules.
const (
	// FeedAvailabilitySLO is the target share of configured sources that
	// crawl successfully in one cycle.
	FeedAvailabilitySLO = 0.95

	// DigestDeliverySLO is the target share of composed digest stories that
	// reach the chat backend.
	DigestDeliverySLO = 0.99
)

// SLO tracking metrics, updated at the end of the run they measure.
var (
	// SLOFeedAvailability tracks the share of sources whose last crawl
	// succeeded (0-1).
	SLOFeedAvailability = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_feed_availability_ratio",
			Help: "Share of feed sources crawled successfully in the last cycle (0-1), target: 0.95",
		},
	)

	// SLODigestDelivery tracks the share of composed stories delivered in
	// the last digest run (0-1).
	SLODigestDelivery = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_digest_delivery_ratio",
			Help: "Share of digest stories delivered in the last daily run (0-1), target: 0.99",
		},
	)
)

// UpdateFeedAvailability records the crawl availability of the cycle that
// just finished.
//
// Example calculation:
//
//	healthy := sourcesWithLastStatusOK()
//	slo.UpdateFeedAvailability(float64(healthy) / float64(totalSources))
func UpdateFeedAvailability(ratio float64) {
	SLOFeedAvailability.Set(ratio)
}

// UpdateDigestDelivery records the delivery ratio of the digest run that
// just finished. A run with no stories to send reports 1.
func UpdateDigestDelivery(ratio float64) {
	SLODigestDelivery.Set(ratio)
}
