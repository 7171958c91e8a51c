// Package entity defines the core domain entities and validation logic for the
// pipeline. It contains the fundamental business objects such as Post and
// FeedSource, along with their validation rules and domain-specific errors.
package entity

import (
	"crypto/md5" //nolint:gosec // content addressing, not security
	"encoding/hex"
	"fmt"
	"time"
)

// HostType classifies the kind of platform a post originates from.
type HostType int

const (
	HostTypeOther HostType = iota
	HostTypeBlog
	HostTypeMicroblog
	HostTypeSocial
	HostTypeForum
	HostTypeMedia
	HostTypeReview
	HostTypeMessenger
)

// String returns the lowercase label used in logs and persisted rows.
func (t HostType) String() string {
	switch t {
	case HostTypeBlog:
		return "blog"
	case HostTypeMicroblog:
		return "microblog"
	case HostTypeSocial:
		return "social"
	case HostTypeForum:
		return "forum"
	case HostTypeMedia:
		return "media"
	case HostTypeReview:
		return "review"
	case HostTypeMessenger:
		return "messenger"
	default:
		return "other"
	}
}

// Relevance is the three-valued judgment asserted by the relevance stage.
type Relevance int

const (
	RelevanceUnknown Relevance = iota
	RelevanceTrue
	RelevanceFalse
)

func (r Relevance) String() string {
	switch r {
	case RelevanceTrue:
		return "true"
	case RelevanceFalse:
		return "false"
	default:
		return "unknown"
	}
}

// Post represents one ingested article and its lifecycle state.
// Lifecycle fields are monotone: they move from unset to set and are never
// cleared by normal pipeline operation.
type Post struct {
	ID          int64
	PostID      string
	SourceID    int64
	Title       string
	Content     string
	HTMLContent string
	URL         string
	BlogHost    string
	HostType    HostType
	PublishedOn time.Time
	// PublishedAtAssumed is set when the feed entry carried no parseable
	// timestamp and the fetch time was substituted.
	PublishedAtAssumed bool
	Simhash            string

	Relevance      Relevance
	RelevanceScore float64

	Category                 string
	Subcategory              string
	ClassificationConfidence float64

	Summary string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PostIDFromURL derives the stable post identifier from the canonical link.
func PostIDFromURL(link string) string {
	sum := md5.Sum([]byte(link)) //nolint:gosec
	return "rss_" + hex.EncodeToString(sum[:])
}

// PostIDFromFields derives a post identifier when the entry has no link.
func PostIDFromFields(sourceName, title string, publishedOn time.Time) string {
	key := sourceName + "|" + title + "|" + publishedOn.UTC().Format(time.RFC3339)
	sum := md5.Sum([]byte(key)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// Validate checks the structural invariants a post must satisfy before it is
// persisted or advanced through the pipeline.
func (p *Post) Validate() error {
	if p.PostID == "" {
		return &ValidationError{Field: "post_id", Message: "must not be empty"}
	}
	if p.URL == "" && p.Title == "" {
		return &ValidationError{Field: "url", Message: "post needs a url or a title"}
	}
	if p.PublishedOn.IsZero() {
		return &ValidationError{Field: "published_on", Message: "must be set"}
	}
	if p.RelevanceScore < 0 || p.RelevanceScore > 1 {
		return &ValidationError{Field: "relevance_score", Message: "must be within [0,1]"}
	}
	if p.Category != "" {
		if p.Relevance != RelevanceTrue {
			return fmt.Errorf("Validate: classified post %s is not relevant: %w", p.PostID, ErrLifecycleViolation)
		}
		if p.RelevanceScore < 0.7 {
			return fmt.Errorf("Validate: classified post %s has weak relevance %.2f: %w", p.PostID, p.RelevanceScore, ErrLifecycleViolation)
		}
	}
	if p.Summary != "" && p.Category == "" {
		return fmt.Errorf("Validate: summarized post %s is unclassified: %w", p.PostID, ErrLifecycleViolation)
	}
	return nil
}
