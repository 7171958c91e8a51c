package llm

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ADEMSU/insight-flow-rss/internal/domain/entity"
)

const longEnough = "публикация о новых санкциях против банка, блокировке счетов и проверках комплаенс"

func relevancePost(id string) *entity.Post {
	return &entity.Post{PostID: id, Title: "санкции", Content: longEnough}
}

/* ─────────────────────────── CheckRelevance ─────────────────────────── */

func TestCheckRelevance(t *testing.T) {
	f := newFakeService(t, func(string) string {
		return "```json\n{\"relevant\": true, \"score\": 0.85, \"reason\": \"санкции\", \"matched_topics\": [\"санкции\"]}\n```"
	})
	c := newTestClient(t, f)

	results := c.CheckRelevance(context.Background(), []*entity.Post{relevancePost("p1"), relevancePost("p2")})

	require.Len(t, results, 2)
	assert.Equal(t, RelevanceResult{Relevant: true, Score: 0.85}, results["p1"])
	assert.Equal(t, RelevanceResult{Relevant: true, Score: 0.85}, results["p2"])
	assert.Equal(t, int64(2), f.requests.Load())
}

func TestCheckRelevance_ShortContentSkipsAPICall(t *testing.T) {
	f := newFakeService(t, func(string) string { return `{"relevant": true, "score": 1.0}` })
	c := newTestClient(t, f)

	short := &entity.Post{PostID: "p1", Title: "t", Content: "мало текста"}
	results := c.CheckRelevance(context.Background(), []*entity.Post{short})

	// Too-short content is a genuine negative verdict, not a failed check.
	require.Contains(t, results, "p1")
	assert.Equal(t, RelevanceResult{}, results["p1"])
	assert.Equal(t, int64(0), f.requests.Load(), "short posts must not hit the API")
}

func TestCheckRelevance_ClampsScore(t *testing.T) {
	f := newFakeService(t, func(string) string { return `{"relevant": true, "score": 3.5}` })
	c := newTestClient(t, f)

	results := c.CheckRelevance(context.Background(), []*entity.Post{relevancePost("p1")})
	assert.Equal(t, RelevanceResult{Relevant: true, Score: 1.0}, results["p1"])
}

func TestCheckRelevance_MalformedResponseLeavesPostUnchecked(t *testing.T) {
	f := newFakeService(t, func(string) string { return "не могу определить" })
	c := newTestClient(t, f)

	results := c.CheckRelevance(context.Background(), []*entity.Post{relevancePost("p1")})
	assert.NotContains(t, results, "p1", "an unparseable reply is not a verdict")
}

func TestCheckRelevance_BackendOutageLeavesPostsUnchecked(t *testing.T) {
	f := newFakeService(t, func(string) string { return "unused" })
	f.status.Store(http.StatusServiceUnavailable)
	c := newTestClient(t, f)

	results := c.CheckRelevance(context.Background(), []*entity.Post{relevancePost("p1"), relevancePost("p2")})

	assert.Empty(t, results, "an outage must not produce verdicts to persist")
	assert.Positive(t, f.requests.Load())
}

func TestCheckRelevance_FailedItemDoesNotAffectSiblings(t *testing.T) {
	f := newFakeService(t, func(prompt string) string {
		if strings.Contains(prompt, "сломанный пост") {
			return "мусор вместо JSON"
		}
		return `{"relevant": true, "score": 0.9}`
	})
	c := newTestClient(t, f)

	broken := &entity.Post{PostID: "bad", Title: "сломанный пост", Content: longEnough}
	results := c.CheckRelevance(context.Background(), []*entity.Post{relevancePost("good"), broken})

	require.Len(t, results, 1)
	assert.Equal(t, RelevanceResult{Relevant: true, Score: 0.9}, results["good"])
	assert.NotContains(t, results, "bad")
}

func TestCheckRelevance_Empty(t *testing.T) {
	f := newFakeService(t, func(string) string { return "{}" })
	c := newTestClient(t, f)

	assert.Empty(t, c.CheckRelevance(context.Background(), nil))
	assert.Equal(t, int64(0), f.requests.Load())
}

/* ─────────────────────────── StrictRecheck ─────────────────────────── */

func TestStrictRecheck_KeepsOnlyStrongVerdicts(t *testing.T) {
	f := newFakeService(t, func(prompt string) string {
		if strings.Contains(prompt, "слабый пост") {
			return `{"relevant": true, "score": 0.55}`
		}
		return `{"relevant": true, "score": 0.92}`
	})
	c := newTestClient(t, f)

	strong := relevancePost("strong")
	weak := &entity.Post{PostID: "weak", Title: "слабый пост", Content: longEnough}

	kept := c.StrictRecheck(context.Background(), []*entity.Post{strong, weak})

	require.Len(t, kept, 1)
	assert.Equal(t, "strong", kept[0].PostID)
}

func TestStrictRecheck_BoundaryScoreSurvives(t *testing.T) {
	f := newFakeService(t, func(string) string { return `{"relevant": true, "score": 0.7}` })
	c := newTestClient(t, f)

	kept := c.StrictRecheck(context.Background(), []*entity.Post{relevancePost("p1")})
	assert.Len(t, kept, 1)
}

func TestStrictRecheck_NegativeVerdictDropsDespiteScore(t *testing.T) {
	f := newFakeService(t, func(string) string { return `{"relevant": false, "score": 0.95}` })
	c := newTestClient(t, f)

	kept := c.StrictRecheck(context.Background(), []*entity.Post{relevancePost("p1")})
	assert.Empty(t, kept)
}

func TestStrictRecheck_AllFail(t *testing.T) {
	f := newFakeService(t, func(string) string { return "мусор" })
	c := newTestClient(t, f)

	kept := c.StrictRecheck(context.Background(), []*entity.Post{relevancePost("p1"), relevancePost("p2")})
	assert.Empty(t, kept)
}

func TestStrictRecheck_UsesStrictPrompt(t *testing.T) {
	var seen string
	f := newFakeService(t, func(prompt string) string {
		seen = prompt
		return `{"relevant": true, "score": 0.9}`
	})
	c := newTestClient(t, f)

	c.StrictRecheck(context.Background(), []*entity.Post{relevancePost("p1")})
	assert.Contains(t, seen, "СТРОГУЮ")
}
