package domain

// Suggestion is an item the user might want to add.
type Suggestion struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Reason   string   `json:"reason"`
}
