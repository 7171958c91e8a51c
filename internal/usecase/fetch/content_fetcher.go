package fetch

import (
	"context"
	"errors"
)

// ContentFetcher fetches the full article body for a candidate whose feed
// entry carried only a teaser. Implementations extract clean text from the
// article page and are responsible for SSRF protection, redirect and size
// limits, and timeouts. Callers fall back to the feed content on any error.
type ContentFetcher interface {
	FetchContent(ctx context.Context, url string) (string, error)
}

// Sentinel errors for content fetching. Callers only ever fall back, so
// these exist mainly for logging and tests.
var (
	// ErrInvalidURL indicates a malformed URL or a non-http(s) scheme.
	ErrInvalidURL = errors.New("invalid URL or unsupported scheme")

	// ErrPrivateIP indicates the URL resolves to a loopback, private, or
	// link-local address.
	ErrPrivateIP = errors.New("private IP access denied (SSRF prevention)")

	// ErrTooManyRedirects indicates the redirect chain exceeded the maximum.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrBodyTooLarge indicates the response body exceeded the size limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrTimeout indicates the request exceeded the configured timeout.
	ErrTimeout = errors.New("request timeout")

	// ErrReadabilityFailed indicates extraction found no readable article text.
	ErrReadabilityFailed = errors.New("content extraction failed")
)
