package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordFeedCrawl(t *testing.T) {
	tests := []struct {
		name         string
		sourceName   string
		duration     time.Duration
		entriesFound int
		inWindow     int
	}{
		{
			name:         "successful crawl",
			sourceName:   "РБК",
			duration:     2 * time.Second,
			entriesFound: 40,
			inWindow:     12,
		},
		{
			name:         "empty feed",
			sourceName:   "Ведомости",
			duration:     500 * time.Millisecond,
			entriesFound: 0,
			inWindow:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordFeedCrawl(tt.sourceName, tt.duration, tt.entriesFound, tt.inWindow)
			})
		})
	}
}

func TestRecordFeedCrawlError(t *testing.T) {
	before := testutil.ToFloat64(FeedCrawlErrors.WithLabelValues("test-source", "timeout"))

	RecordFeedCrawlError("test-source", "timeout")
	RecordFeedCrawlError("test-source", "timeout")

	after := testutil.ToFloat64(FeedCrawlErrors.WithLabelValues("test-source", "timeout"))
	assert.Equal(t, before+2, after)
}

func TestRecordFeedCrawlError_TypeVariants(t *testing.T) {
	for _, errType := range []string{"http_503", "connection_error", "timeout", "parse_error", "fetch_failed"} {
		assert.NotPanics(t, func() {
			RecordFeedCrawlError("source", errType)
		})
	}
}

func TestUpdatePostsTotal(t *testing.T) {
	UpdatePostsTotal(1234)
	assert.Equal(t, 1234.0, testutil.ToFloat64(PostsTotal))

	UpdatePostsTotal(0)
	assert.Equal(t, 0.0, testutil.ToFloat64(PostsTotal))
}

func TestRecordContentFetch(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordContentFetchSuccess(800*time.Millisecond, 4096)
		RecordContentFetchFailed(12 * time.Second)
		RecordContentFetchSkipped()
	})
}

func TestRecordPipelineRun(t *testing.T) {
	beforeOK := testutil.ToFloat64(PipelineRunsTotal.WithLabelValues("hourly", "success"))
	beforeFail := testutil.ToFloat64(PipelineRunsTotal.WithLabelValues("daily", "failure"))

	RecordPipelineRun("hourly", true, 30*time.Second)
	RecordPipelineRun("daily", false, 2*time.Minute)

	assert.Equal(t, beforeOK+1, testutil.ToFloat64(PipelineRunsTotal.WithLabelValues("hourly", "success")))
	assert.Equal(t, beforeFail+1, testutil.ToFloat64(PipelineRunsTotal.WithLabelValues("daily", "failure")))
}

func TestRecordPostsDeduplicated(t *testing.T) {
	before := testutil.ToFloat64(PostsDeduplicatedTotal)

	RecordPostsDeduplicated(5)
	RecordPostsDeduplicated(0)
	RecordPostsDeduplicated(-3)

	assert.Equal(t, before+5, testutil.ToFloat64(PostsDeduplicatedTotal))
}

func TestRecordDigestMessage(t *testing.T) {
	before := testutil.ToFloat64(DigestMessagesTotal.WithLabelValues("success"))

	RecordDigestMessage(true)

	assert.Equal(t, before+1, testutil.ToFloat64(DigestMessagesTotal.WithLabelValues("success")))
	assert.NotPanics(t, func() { RecordDigestMessage(false) })
}

func TestRecordDBQuery(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		duration  time.Duration
	}{
		{name: "fast select", operation: "select_unchecked", duration: 2 * time.Millisecond},
		{name: "slow batch insert", operation: "insert_batch", duration: 600 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordDBQuery(tt.operation, tt.duration)
			})
		})
	}
}

func TestUpdateDBConnectionStats(t *testing.T) {
	UpdateDBConnectionStats(7, 3)

	assert.Equal(t, 7.0, testutil.ToFloat64(DBConnectionsActive))
	assert.Equal(t, 3.0, testutil.ToFloat64(DBConnectionsIdle))
}

func TestRecordOperationDuration(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordOperationDuration("ensure_partition", 15*time.Millisecond)
	})
}
