// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes all application metrics including:
//   - Feed crawl metrics (duration, entries, errors per source)
//   - Pipeline run metrics (job outcomes, dedup counts, digest delivery)
//   - Content fetch metrics (full-article extraction outcomes)
//   - Database query metrics
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "github.com/ADEMSU/insight-flow-rss/internal/observability/metrics"
//
//	func crawlSource(name string) {
//	    start := time.Now()
//	    // ... fetch and filter the feed ...
//	    metrics.RecordFeedCrawl(name, time.Since(start), entriesFound, inWindow)
//	}
package metrics
