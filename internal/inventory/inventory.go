// Package inventory derives dashboard figures and display badges from part
// listings. It holds no state and does no I/O.
package inventory

import (
	"fmt"
	"math"
	"sort"

	"autoparts/internal/models"
)

// LowStockThreshold is the stock level below which a part counts as low.
const LowStockThreshold = 10

// FeaturedCount is the number of parts shown on the home page.
const FeaturedCount = 4

// Category is a part category offered by the part form.
type Category struct {
	Value string
	Label string
	Badge string
}

// Categories lists the categories offered by the part form, in display order.
var Categories = []Category{
	{Value: "engine", Label: "Engine", Badge: "bg-success"},
	{Value: "brakes", Label: "Brakes", Badge: "bg-danger"},
	{Value: "suspension", Label: "Suspension", Badge: "bg-secondary"},
	{Value: "electrical", Label: "Electrical", Badge: "bg-primary"},
	{Value: "filters", Label: "Filters", Badge: "bg-info"},
	{Value: "ignition", Label: "Ignition", Badge: "bg-warning"},
	{Value: "exhaust", Label: "Exhaust", Badge: "bg-secondary"},
	{Value: "cooling", Label: "Cooling", Badge: "bg-info"},
	{Value: "transmission", Label: "Transmission", Badge: "bg-dark"},
	{Value: "accessories", Label: "Accessories", Badge: "bg-secondary"},
}

const defaultBadge = "bg-secondary"

// CategoryValues returns the value of every known category.
func CategoryValues() []string {
	values := make([]string, len(Categories))
	for i, c := range Categories {
		values[i] = c.Value
	}
	return values
}

// CategoryBadge returns the badge class of a category.
func CategoryBadge(category string) string {
	for _, c := range Categories {
		if c.Value == category {
			return c.Badge
		}
	}
	return defaultBadge
}

// StockBadge returns the badge class for a stock level.
func StockBadge(stock int) string {
	switch {
	case stock <= 0:
		return "bg-danger"
	case stock < LowStockThreshold:
		return "bg-warning text-dark"
	default:
		return "bg-success"
	}
}

// StockText describes a stock level.
func StockText(stock int) string {
	switch {
	case stock <= 0:
		return "Out of Stock"
	case stock < LowStockThreshold:
		return fmt.Sprintf("Low Stock (%d)", stock)
	default:
		return fmt.Sprintf("%d in stock", stock)
	}
}

// Stats are the dashboard figures of a part listing.
type Stats struct {
	TotalParts int     `json:"totalParts"`
	TotalStock int     `json:"totalStock"`
	Categories int     `json:"categories"`
	TotalValue float64 `json:"totalValue"`
	OutOfStock int     `json:"outOfStock"`
	LowStock   int     `json:"lowStock"`
}

// FormattedValue renders the total value as dollars.
func (s Stats) FormattedValue() string {
	return fmt.Sprintf("$%.2f", s.TotalValue)
}

// Summarize computes dashboard figures. The inventory value is summed in
// cents so it is exact to the cent.
func Summarize(parts []models.Part) Stats {
	stats := Stats{TotalParts: len(parts)}
	categories := map[string]struct{}{}
	var cents int64
	for _, p := range parts {
		stats.TotalStock += p.Stock
		categories[p.Category] = struct{}{}
		cents += int64(math.Round(p.Price*100)) * int64(p.Stock)
		switch {
		case p.Stock == 0:
			stats.OutOfStock++
		case p.Stock < LowStockThreshold:
			stats.LowStock++
		}
	}
	stats.Categories = len(categories)
	stats.TotalValue = float64(cents) / 100
	return stats
}

// Group is the parts of one category.
type Group struct {
	Category string
	Parts    []models.Part
}

// GroupByCategory groups parts by category. Groups keep the order in which
// their category first appears; parts keep their listing order.
func GroupByCategory(parts []models.Part) []Group {
	var groups []Group
	index := map[string]int{}
	for _, p := range parts {
		i, ok := index[p.Category]
		if !ok {
			i = len(groups)
			index[p.Category] = i
			groups = append(groups, Group{Category: p.Category})
		}
		groups[i].Parts = append(groups[i].Parts, p)
	}
	return groups
}

// Featured returns up to FeaturedCount parts for the home page.
func Featured(parts []models.Part) []models.Part {
	if len(parts) > FeaturedCount {
		return parts[:FeaturedCount]
	}
	return parts
}

// Related returns up to limit other parts of the same category as part.
func Related(part models.Part, parts []models.Part, limit int) []models.Part {
	var related []models.Part
	for _, p := range parts {
		if p.ID == part.ID || p.Category != part.Category {
			continue
		}
		related = append(related, p)
		if len(related) == limit {
			break
		}
	}
	return related
}

// DistinctCategories returns the sorted categories present in parts.
func DistinctCategories(parts []models.Part) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range parts {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	sort.Strings(out)
	return out
}
