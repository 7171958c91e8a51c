package metrics

import (
	"time"
)

// RecordFeedCrawl records metrics for one successful feed crawl: duration,
// entries the feed returned, and candidates surviving the window filter.
func RecordFeedCrawl(sourceName string, duration time.Duration, entriesFound, inWindow int) {
	FeedCrawlDuration.WithLabelValues(sourceName).Observe(duration.Seconds())
	if inWindow > 0 {
		PostsFetchedTotal.WithLabelValues(sourceName).Add(float64(inWindow))
	}
}

// RecordFeedCrawlError records a failed crawl with its classified error type
// (http_<code>, connection_error, timeout, parse_error, fetch_failed).
func RecordFeedCrawlError(sourceName, errorType string) {
	FeedCrawlErrors.WithLabelValues(sourceName, errorType).Inc()
}

// UpdatePostsTotal updates the total count of posts in the database.
// This gauge should be updated periodically to reflect the current state.
func UpdatePostsTotal(count int) {
	PostsTotal.Set(float64(count))
}

// RecordContentFetchSuccess records a successful full-article content fetch.
func RecordContentFetchSuccess(duration time.Duration, size int) {
	ContentFetchAttemptsTotal.WithLabelValues("success").Inc()
	ContentFetchDuration.Observe(duration.Seconds())
	ContentFetchSize.Observe(float64(size))
}

// RecordContentFetchFailed records a failed full-article content fetch.
func RecordContentFetchFailed(duration time.Duration) {
	ContentFetchAttemptsTotal.WithLabelValues("failure").Inc()
	ContentFetchDuration.Observe(duration.Seconds())
}

// RecordContentFetchSkipped records a content fetch skipped because the feed
// body was already long enough.
func RecordContentFetchSkipped() {
	ContentFetchAttemptsTotal.WithLabelValues("skipped").Inc()
}

// RecordPipelineRun records one job execution. Job is "hourly" or "daily".
func RecordPipelineRun(job string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	PipelineRunsTotal.WithLabelValues(job, status).Inc()
	PipelineRunDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// RecordPostsDeduplicated records posts dropped by a deduplication pass.
func RecordPostsDeduplicated(removed int) {
	if removed > 0 {
		PostsDeduplicatedTotal.Add(float64(removed))
	}
}

// RecordDigestMessage records one digest delivery attempt outcome.
func RecordDigestMessage(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	DigestMessagesTotal.WithLabelValues(status).Inc()
}

// RecordDBQuery records the duration of a database query operation.
// Operation should describe the query type (e.g., "select_unchecked", "insert_batch").
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool statistics.
func UpdateDBConnectionStats(active, idle int) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
