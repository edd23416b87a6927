package domain

// Category is the closed set of shopping list sections.
type Category string

const (
	CategoryDairy     Category = "dairy"
	CategoryProduce   Category = "produce"
	CategoryMeat      Category = "meat"
	CategoryBakery    Category = "bakery"
	CategoryBeverages Category = "beverages"
	CategorySnacks    Category = "snacks"
	CategoryHousehold Category = "household"
	CategoryOther     Category = "other"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryDairy,
	CategoryProduce,
	CategoryMeat,
	CategoryBakery,
	CategoryBeverages,
	CategorySnacks,
	CategoryHousehold,
	CategoryOther,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}
