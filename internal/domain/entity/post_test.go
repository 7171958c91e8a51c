package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPostIDFromURL(t *testing.T) {
	id := PostIDFromURL("https://example.com/article/1")

	assert.True(t, len(id) == len("rss_")+32)
	assert.Equal(t, "rss_", id[:4])

	// Same link always yields the same identifier.
	assert.Equal(t, id, PostIDFromURL("https://example.com/article/1"))
	assert.NotEqual(t, id, PostIDFromURL("https://example.com/article/2"))
}

func TestPostIDFromFields(t *testing.T) {
	when := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	id := PostIDFromFields("Source A", "Title", when)
	assert.Len(t, id, 32)
	assert.Equal(t, id, PostIDFromFields("Source A", "Title", when))
	assert.NotEqual(t, id, PostIDFromFields("Source B", "Title", when))
}

func TestHostType_String(t *testing.T) {
	tests := []struct {
		hostType HostType
		want     string
	}{
		{HostTypeOther, "other"},
		{HostTypeBlog, "blog"},
		{HostTypeMicroblog, "microblog"},
		{HostTypeSocial, "social"},
		{HostTypeForum, "forum"},
		{HostTypeMedia, "media"},
		{HostTypeReview, "review"},
		{HostTypeMessenger, "messenger"},
		{HostType(99), "other"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.hostType.String())
	}
}

func TestRelevance_String(t *testing.T) {
	assert.Equal(t, "unknown", RelevanceUnknown.String())
	assert.Equal(t, "true", RelevanceTrue.String())
	assert.Equal(t, "false", RelevanceFalse.String())
}

func TestPost_Validate(t *testing.T) {
	base := func() *Post {
		return &Post{
			PostID:      "rss_abc",
			URL:         "https://example.com/1",
			Title:       "t",
			PublishedOn: time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
		}
	}

	t.Run("valid ingested post", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("missing post_id", func(t *testing.T) {
		p := base()
		p.PostID = ""
		var verr *ValidationError
		err := p.Validate()
		assert.Error(t, err)
		assert.True(t, errors.As(err, &verr))
		assert.Equal(t, "post_id", verr.Field)
	})

	t.Run("missing published_on", func(t *testing.T) {
		p := base()
		p.PublishedOn = time.Time{}
		assert.Error(t, p.Validate())
	})

	t.Run("score out of range", func(t *testing.T) {
		p := base()
		p.RelevanceScore = 1.5
		assert.Error(t, p.Validate())
	})

	t.Run("classification requires relevance", func(t *testing.T) {
		p := base()
		p.Category = "Политика"
		p.RelevanceScore = 0.9
		err := p.Validate()
		assert.ErrorIs(t, err, ErrLifecycleViolation)
	})

	t.Run("classification requires strong score", func(t *testing.T) {
		p := base()
		p.Relevance = RelevanceTrue
		p.RelevanceScore = 0.5
		p.Category = "Политика"
		assert.ErrorIs(t, p.Validate(), ErrLifecycleViolation)
	})

	t.Run("summary requires classification", func(t *testing.T) {
		p := base()
		p.Relevance = RelevanceTrue
		p.RelevanceScore = 0.9
		p.Summary = "итог"
		assert.ErrorIs(t, p.Validate(), ErrLifecycleViolation)
	})

	t.Run("fully advanced post", func(t *testing.T) {
		p := base()
		p.Relevance = RelevanceTrue
		p.RelevanceScore = 0.86
		p.Category = "Политика"
		p.Subcategory = "Выборы"
		p.ClassificationConfidence = 0.9
		p.Summary = "итог"
		assert.NoError(t, p.Validate())
	})
}
