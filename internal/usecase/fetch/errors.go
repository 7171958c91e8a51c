// Package fetch implements the feed crawling use case: bounded-concurrency
// fetching across priority groups, per-source retry escalation, health
// accounting, and normalization of feed entries into article candidates.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"

	"github.com/ADEMSU/insight-flow-rss/internal/resilience/retry"
)

// Sentinel errors for fetch use case operations.
var (
	// ErrFeedFetchFailed indicates that fetching a feed from the source URL failed.
	ErrFeedFetchFailed = errors.New("failed to fetch feed from source")

	// ErrInvalidFeedFormat indicates that the feed content could not be parsed
	// as RSS or Atom.
	ErrInvalidFeedFormat = errors.New("invalid feed format")
)

// Error types recorded in the per-source health ledger. HTTP failures are
// rendered dynamically as "http_<code>".
const (
	errTypeTimeout     = "timeout"
	errTypeConnection  = "connection_error"
	errTypeParse       = "parse_error"
	errTypeFetchFailed = "fetch_failed"
)

// ClassifyError maps a fetch failure onto its health-ledger error type.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, ErrInvalidFeedFormat) {
		return errTypeParse
	}

	var httpErr *retry.HTTPError
	if errors.As(err, &httpErr) {
		return fmt.Sprintf("http_%d", httpErr.StatusCode)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errTypeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errTypeTimeout
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return errTypeConnection
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return errTypeConnection
	}

	return errTypeFetchFailed
}
