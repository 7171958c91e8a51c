package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultTaxonomy(t *testing.T) {
	tax := DefaultTaxonomy()

	assert.Len(t, tax, 21)
	for category, subs := range tax {
		assert.NotEmpty(t, category)
		assert.NotEmpty(t, subs, "category %s has no subcategories", category)
	}
}

func TestTaxonomy_HasCategory(t *testing.T) {
	tax := DefaultTaxonomy()

	assert.True(t, tax.HasCategory("Политика"))
	assert.True(t, tax.HasCategory("Крипто и Web3"))
	assert.False(t, tax.HasCategory("Cooking"))
	assert.False(t, tax.HasCategory(""))
}

func TestTaxonomy_HasSubcategory(t *testing.T) {
	tax := DefaultTaxonomy()

	assert.True(t, tax.HasSubcategory("Политика", "Выборы"))
	assert.True(t, tax.HasSubcategory("Энергетика", "Нефть и газ"))

	// Subcategory of a different category does not match.
	assert.False(t, tax.HasSubcategory("Политика", "Футбол"))
	assert.False(t, tax.HasSubcategory("Политика", "Cooking"))
	assert.False(t, tax.HasSubcategory("Unknown", "Выборы"))
}
