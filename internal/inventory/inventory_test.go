package inventory_test

import (
	"testing"

	"autoparts/internal/inventory"
	"autoparts/internal/models"

	"github.com/stretchr/testify/assert"
)

func sample() []models.Part {
	return []models.Part{
		{ID: 1, Name: "Oil Filter", Price: 12.99, Stock: 45, Category: "filters"},
		{ID: 2, Name: "Brake Pads", Price: 89.99, Stock: 8, Category: "brakes"},
		{ID: 3, Name: "Air Filter", Price: 54.50, Stock: 0, Category: "filters"},
		{ID: 4, Name: "Spark Plug", Price: 7.25, Stock: 100, Category: "ignition"},
		{ID: 5, Name: "Cabin Filter", Price: 19.99, Stock: 3, Category: "filters"},
	}
}

func TestSummarizeSinglePart(t *testing.T) {
	stats := inventory.Summarize([]models.Part{{Name: "Oil Filter", Price: 12.99, Stock: 45, Category: "filters"}})
	assert.Equal(t, inventory.Stats{TotalParts: 1, TotalStock: 45, Categories: 1, TotalValue: 584.55}, stats)
	assert.Equal(t, "$584.55", stats.FormattedValue())
}

func TestSummarize(t *testing.T) {
	stats := inventory.Summarize(sample())
	assert.Equal(t, 5, stats.TotalParts)
	assert.Equal(t, 156, stats.TotalStock)
	assert.Equal(t, 3, stats.Categories)
	// 584.55 + 719.92 + 0 + 725.00 + 59.97
	assert.Equal(t, 2089.44, stats.TotalValue)
	assert.Equal(t, 1, stats.OutOfStock)
	assert.Equal(t, 2, stats.LowStock)
}

func TestSummarizeEmpty(t *testing.T) {
	stats := inventory.Summarize(nil)
	assert.Equal(t, inventory.Stats{}, stats)
	assert.Equal(t, "$0.00", stats.FormattedValue())
}

func TestStockBadges(t *testing.T) {
	cases := []struct {
		stock int
		text  string
		badge string
	}{
		{0, "Out of Stock", "bg-danger"},
		{1, "Low Stock (1)", "bg-warning text-dark"},
		{9, "Low Stock (9)", "bg-warning text-dark"},
		{10, "10 in stock", "bg-success"},
		{45, "45 in stock", "bg-success"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.text, inventory.StockText(tc.stock))
		assert.Equal(t, tc.badge, inventory.StockBadge(tc.stock))
	}
}

func TestCategoryBadge(t *testing.T) {
	assert.Equal(t, "bg-info", inventory.CategoryBadge("filters"))
	assert.Equal(t, "bg-danger", inventory.CategoryBadge("brakes"))
	assert.Equal(t, "bg-secondary", inventory.CategoryBadge("snacks"))
	assert.Contains(t, inventory.CategoryValues(), "accessories")
}

func TestGroupByCategory(t *testing.T) {
	groups := inventory.GroupByCategory(sample())
	if assert.Len(t, groups, 3) {
		assert.Equal(t, "filters", groups[0].Category)
		assert.Len(t, groups[0].Parts, 3)
		assert.Equal(t, "brakes", groups[1].Category)
		assert.Equal(t, "ignition", groups[2].Category)
	}
	assert.Empty(t, inventory.GroupByCategory(nil))
}

func TestRelatedAndFeatured(t *testing.T) {
	parts := sample()
	related := inventory.Related(parts[0], parts, 1)
	if assert.Len(t, related, 1) {
		assert.Equal(t, "Air Filter", related[0].Name)
	}
	assert.Len(t, inventory.Related(parts[0], parts, 10), 2)
	assert.Empty(t, inventory.Related(parts[3], parts, 4))

	assert.Len(t, inventory.Featured(parts), inventory.FeaturedCount)
	assert.Len(t, inventory.Featured(parts[:2]), 2)
	assert.Equal(t, []string{"brakes", "filters", "ignition"}, inventory.DistinctCategories(parts))
}
