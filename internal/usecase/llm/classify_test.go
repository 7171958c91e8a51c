package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ADEMSU/insight-flow-rss/internal/domain/entity"
)

func classifyPost(id string) *entity.Post {
	return &entity.Post{PostID: id, Title: "санкции против банка", Content: longEnough}
}

func TestClassify(t *testing.T) {
	f := newFakeService(t, func(string) string {
		return "```json\n{\"category\": \"Экономика\", \"subcategory\": \"Финансы и банки\", \"confidence\": 0.88}\n```"
	})
	c := newTestClient(t, f)

	results := c.Classify(context.Background(), []*entity.Post{classifyPost("p1")}, entity.DefaultTaxonomy())

	require.Len(t, results, 1)
	assert.Equal(t, Classification{
		Category:    "Экономика",
		Subcategory: "Финансы и банки",
		Confidence:  0.88,
	}, results["p1"])
}

func TestClassify_UnknownCategoryRejected(t *testing.T) {
	f := newFakeService(t, func(string) string {
		return `{"category": "Несуществующая категория", "subcategory": "x", "confidence": 0.9}`
	})
	c := newTestClient(t, f)

	results := c.Classify(context.Background(), []*entity.Post{classifyPost("p1")}, entity.DefaultTaxonomy())
	assert.Equal(t, Classification{}, results["p1"])
}

func TestClassify_UnknownSubcategoryBlanked(t *testing.T) {
	f := newFakeService(t, func(string) string {
		return `{"category": "Экономика", "subcategory": "Выдуманная подкатегория", "confidence": 0.9}`
	})
	c := newTestClient(t, f)

	results := c.Classify(context.Background(), []*entity.Post{classifyPost("p1")}, entity.DefaultTaxonomy())
	assert.Equal(t, Classification{
		Category:   "Экономика",
		Confidence: 0.9,
	}, results["p1"])
}

func TestClassify_ClampsConfidence(t *testing.T) {
	f := newFakeService(t, func(string) string {
		return `{"category": "Спорт", "subcategory": "Хоккей", "confidence": -2}`
	})
	c := newTestClient(t, f)

	results := c.Classify(context.Background(), []*entity.Post{classifyPost("p1")}, entity.DefaultTaxonomy())
	assert.Equal(t, Classification{
		Category:    "Спорт",
		Subcategory: "Хоккей",
		Confidence:  0.0,
	}, results["p1"])
}

func TestClassify_MalformedResponseYieldsSentinel(t *testing.T) {
	f := newFakeService(t, func(string) string { return "никакого JSON" })
	c := newTestClient(t, f)

	results := c.Classify(context.Background(), []*entity.Post{classifyPost("p1")}, entity.DefaultTaxonomy())
	assert.Equal(t, Classification{}, results["p1"])
}

func TestClassify_PromptListsTaxonomy(t *testing.T) {
	var seen string
	f := newFakeService(t, func(prompt string) string {
		seen = prompt
		return `{"category": "Спорт", "subcategory": "Хоккей", "confidence": 0.5}`
	})
	c := newTestClient(t, f)

	c.Classify(context.Background(), []*entity.Post{classifyPost("p1")}, entity.DefaultTaxonomy())
	assert.Contains(t, seen, "- Спорт: Футбол, Хоккей")
	assert.Contains(t, seen, "- Экономика: ")
}

func TestClassify_Empty(t *testing.T) {
	f := newFakeService(t, func(string) string { return "{}" })
	c := newTestClient(t, f)

	assert.Empty(t, c.Classify(context.Background(), nil, entity.DefaultTaxonomy()))
	assert.Equal(t, int64(0), f.requests.Load())
}
