package categorizer

import (
	"strings"

	"shopping-agent/internal/domain"
)

type rule struct {
	category domain.Category
	keywords []string
}

// table is evaluated top to bottom; the first match wins, so its order is part
// of the contract with existing clients.
var table = []rule{
	{domain.CategoryDairy, []string{"milk", "cheese", "yogurt", "butter", "eggs", "cream"}},
	{domain.CategoryProduce, []string{"apple", "banana", "orange", "lettuce", "tomato", "carrot", "onion", "potato"}},
	{domain.CategoryBakery, []string{"bread", "bagel", "croissant", "muffin", "cake"}},
	{domain.CategoryBeverages, []string{"coffee", "tea", "juice", "soda", "water"}},
	{domain.CategoryMeat, []string{"chicken", "beef", "pork", "fish", "bacon"}},
	{domain.CategorySnacks, []string{"chips", "cookies", "crackers", "chocolate"}},
	{domain.CategoryHousehold, []string{"soap", "shampoo", "toothpaste", "tissue", "cleaner"}},
}

// Categorize returns the category of the first table entry with a keyword
// contained in name, or other when nothing matches.
func Categorize(name string) domain.Category {
	lower := strings.ToLower(name)
	for _, r := range table {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.category
			}
		}
	}
	return domain.CategoryOther
}
