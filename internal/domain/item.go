package domain

import (
	"strings"
	"time"
)

// Item is a single line of the shopping list.
type Item struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Quantity int       `json:"quantity"`
	Category Category  `json:"category"`
	AddedAt  time.Time `json:"addedAt"`
}

// NormalizeName returns the merge key form of an item name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SameName reports whether two item names refer to the same list entry.
func SameName(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}
