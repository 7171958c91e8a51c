// Package scraper provides the RSS/Atom feed fetcher.
// It uses the gofeed library to parse feed content with reliability patterns.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"

	"github.com/ADEMSU/insight-flow-rss/internal/resilience/circuitbreaker"
	"github.com/ADEMSU/insight-flow-rss/internal/resilience/retry"
	"github.com/ADEMSU/insight-flow-rss/internal/usecase/fetch"
)

const userAgent = "InsightFlowBot/1.0"

// RSSFetcher implements fetch.FeedFetcher using the gofeed library.
// One circuit breaker is shared across all feeds and sheds fetches when
// upstreams fail in bulk; retry policy is owned by the fetch service, which
// escalates attempts for unhealthy sources.
type RSSFetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
}

// NewRSSFetcher creates a new RSSFetcher with the given HTTP client.
func NewRSSFetcher(client *http.Client) *RSSFetcher {
	return &RSSFetcher{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
	}
}

// Fetch retrieves and parses one feed. The timeout covers the whole
// request-parse cycle; zero means the client's own timeout applies.
func (f *RSSFetcher) Fetch(ctx context.Context, feedURL string, timeout time.Duration) ([]fetch.FeedItem, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cbResult, err := f.circuitBreaker.Execute(func() (interface{}, error) {
		return f.doFetch(ctx, feedURL)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			slog.Warn("feed fetch circuit breaker open, request rejected",
				slog.String("service", "feed-fetch"),
				slog.String("url", feedURL),
				slog.String("state", f.circuitBreaker.State().String()))
		}
		return nil, err
	}

	return cbResult.([]fetch.FeedItem), nil
}

// doFetch performs the actual feed fetch and normalization.
func (f *RSSFetcher) doFetch(ctx context.Context, feedURL string) ([]fetch.FeedItem, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = userAgent
	fp.Client = f.client

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, wrapFetchError(err)
	}

	items := make([]fetch.FeedItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		pubAt, assumed := resolvePublished(it)
		html := richBody(it)

		items = append(items, fetch.FeedItem{
			Title:              it.Title,
			URL:                it.Link,
			Content:            ExtractText(html),
			HTMLContent:        html,
			PublishedAt:        pubAt,
			PublishedAtAssumed: assumed,
		})
	}

	return items, nil
}

// wrapFetchError translates gofeed failures into the error vocabulary the
// fetch service classifies: non-2xx responses become HTTPError, transport
// and context errors pass through, everything left is a parse failure.
func wrapFetchError(err error) error {
	var httpErr gofeed.HTTPError
	if errors.As(err, &httpErr) {
		return &retry.HTTPError{StatusCode: httpErr.StatusCode, Message: httpErr.Status}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", fetch.ErrInvalidFeedFormat, err)
}

// resolvePublished picks the entry timestamp: published, then updated, then
// the current time flagged as assumed.
func resolvePublished(it *gofeed.Item) (time.Time, bool) {
	if it.PublishedParsed != nil {
		return *it.PublishedParsed, false
	}
	if it.UpdatedParsed != nil {
		return *it.UpdatedParsed, false
	}
	return time.Now().UTC(), true
}

// richBody concatenates every body-ish field the entry carries, richest
// first, so truncated descriptions never shadow full content blocks.
func richBody(it *gofeed.Item) string {
	parts := make([]string, 0, 2)
	if strings.TrimSpace(it.Content) != "" {
		parts = append(parts, it.Content)
	}
	if strings.TrimSpace(it.Description) != "" && it.Description != it.Content {
		parts = append(parts, it.Description)
	}
	return strings.Join(parts, "\n")
}

// ExtractText strips markup from an HTML fragment, drops script and style
// subtrees, and collapses whitespace while keeping paragraph separators.
func ExtractText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		// Malformed fragment: fall back to the raw text.
		return collapseWhitespace(html)
	}
	doc.Find("script, style").Remove()

	var sb strings.Builder
	doc.Find("p, li, h1, h2, h3, h4, br").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	sb.WriteString(doc.Text())

	return collapseWhitespace(sb.String())
}

func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
