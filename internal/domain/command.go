package domain

// Action is the coarse intent of a parsed command.
type Action string

const (
	ActionAdd     Action = "add"
	ActionRemove  Action = "remove"
	ActionSearch  Action = "search"
	ActionUnknown Action = "unknown"
)

// Valid reports whether a is one of the four supported actions.
func (a Action) Valid() bool {
	switch a {
	case ActionAdd, ActionRemove, ActionSearch, ActionUnknown:
		return true
	}
	return false
}

// ParsedItem is one item extracted from a command. A zero Quantity means the
// parser did not supply one; an empty Category means the same.
type ParsedItem struct {
	Name     string   `json:"name"`
	Quantity int      `json:"quantity,omitempty"`
	Category Category `json:"category,omitempty"`
}

// EffectiveQuantity returns the quantity to apply, defaulting to 1.
func (p ParsedItem) EffectiveQuantity() int {
	if p.Quantity < 1 {
		return 1
	}
	return p.Quantity
}

// ParsedCommand is the structured form of a free-text command.
type ParsedCommand struct {
	Action   Action       `json:"action"`
	Items    []ParsedItem `json:"items"`
	Response string       `json:"response"`
}
