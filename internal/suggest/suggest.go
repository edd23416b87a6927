package suggest

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"shopping-agent/internal/domain"
)

// MaxSuggestions bounds every response regardless of pool size.
const MaxSuggestions = 4

// Mode selects how candidates are picked after filtering.
type Mode string

const (
	// ModeOrdered returns the first remaining candidates in pool order.
	ModeOrdered Mode = "ordered"
	// ModeShuffled returns a random sample of the remaining candidates.
	ModeShuffled Mode = "shuffled"
)

// ParseMode validates a configured mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeOrdered, ModeShuffled:
		return m, nil
	}
	return "", fmt.Errorf("suggest: unknown mode %q", s)
}

// StaplesPool is the candidate pool used by the ordered variant.
var StaplesPool = []domain.Suggestion{
	{Name: "eggs", Category: domain.CategoryDairy, Reason: "Frequently purchased"},
	{Name: "bananas", Category: domain.CategoryProduce, Reason: "Popular fruit"},
	{Name: "coffee", Category: domain.CategoryBeverages, Reason: "Morning essential"},
	{Name: "cheese", Category: domain.CategoryDairy, Reason: "Cooking staple"},
	{Name: "yogurt", Category: domain.CategoryDairy, Reason: "Healthy snack"},
	{Name: "orange juice", Category: domain.CategoryBeverages, Reason: "Breakfast favorite"},
}

// SeasonalPool is the candidate pool used by the shuffled variant: common
// essentials followed by seasonal picks.
var SeasonalPool = []domain.Suggestion{
	{Name: "bread", Category: domain.CategoryBakery, Reason: "Frequently purchased"},
	{Name: "eggs", Category: domain.CategoryDairy, Reason: "Essential item"},
	{Name: "bananas", Category: domain.CategoryProduce, Reason: "Popular fruit"},
	{Name: "milk", Category: domain.CategoryDairy, Reason: "Daily essential"},
	{Name: "pumpkin", Category: domain.CategoryProduce, Reason: "Seasonal favorite"},
	{Name: "apples", Category: domain.CategoryProduce, Reason: "In season"},
	{Name: "hot chocolate", Category: domain.CategoryBeverages, Reason: "Winter special"},
}

// Engine derives suggestions from a static pool and the current list.
type Engine struct {
	mode    Mode
	pool    []domain.Suggestion
	limit   int
	shuffle func(n int, swap func(i, j int))
}

type Option func(*Engine)

// WithPool replaces the mode's default candidate pool.
func WithPool(pool []domain.Suggestion) Option {
	return func(e *Engine) {
		e.pool = append([]domain.Suggestion(nil), pool...)
	}
}

// WithLimit lowers the number of suggestions returned. Values outside
// 1..MaxSuggestions fall back to MaxSuggestions.
func WithLimit(n int) Option {
	return func(e *Engine) {
		e.limit = n
	}
}

// WithShuffle overrides the permutation used by ModeShuffled.
func WithShuffle(fn func(n int, swap func(i, j int))) Option {
	return func(e *Engine) {
		e.shuffle = fn
	}
}

func New(mode Mode, opts ...Option) (*Engine, error) {
	e := &Engine{mode: mode, limit: MaxSuggestions, shuffle: rand.Shuffle}
	switch mode {
	case ModeOrdered:
		e.pool = StaplesPool
	case ModeShuffled:
		e.pool = SeasonalPool
	default:
		return nil, fmt.Errorf("suggest: unknown mode %q", mode)
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.limit < 1 || e.limit > MaxSuggestions {
		e.limit = MaxSuggestions
	}
	if e.shuffle == nil {
		return nil, errors.New("suggest: shuffle must not be nil")
	}
	return e, nil
}

// Mode reports which variant the engine runs.
func (e *Engine) Mode() Mode {
	return e.mode
}

// Suggest returns up to the configured limit of pool entries whose names are
// not already on the list.
func (e *Engine) Suggest(current []domain.Item) []domain.Suggestion {
	have := make(map[string]struct{}, len(current))
	for _, it := range current {
		have[domain.NormalizeName(it.Name)] = struct{}{}
	}

	available := make([]domain.Suggestion, 0, len(e.pool))
	for _, s := range e.pool {
		if _, ok := have[domain.NormalizeName(s.Name)]; ok {
			continue
		}
		available = append(available, s)
	}

	if e.mode == ModeShuffled {
		e.shuffle(len(available), func(i, j int) {
			available[i], available[j] = available[j], available[i]
		})
	}
	if len(available) > e.limit {
		available = available[:e.limit]
	}
	return available
}
