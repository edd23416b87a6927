package store

import (
	"sync"

	"shopping-agent/internal/domain"
)

// ListStore holds the canonical shopping list and the history of added names.
// Every mutation runs through Update, which applies the change to a private
// copy under the write lock and publishes it only once the callback returns.
type ListStore struct {
	mu      sync.RWMutex
	items   []domain.Item
	history []string
}

type Option func(*ListStore)

// WithItems seeds the store with an initial list.
func WithItems(items ...domain.Item) Option {
	return func(s *ListStore) {
		s.items = append(s.items, items...)
	}
}

// WithHistory seeds the history sequence.
func WithHistory(names ...string) Option {
	return func(s *ListStore) {
		s.history = append(s.history, names...)
	}
}

func New(opts ...Option) *ListStore {
	s := &ListStore{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Items returns a copy of the current list in insertion order.
func (s *ListStore) Items() []domain.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneItems(s.items)
}

// History returns a copy of every name ever appended to the history.
func (s *ListStore) History() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.history))
	copy(out, s.history)
	return out
}

// Clear empties the list. History is kept.
func (s *ListStore) Clear() []domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	return []domain.Item{}
}

// Update runs fn against a transaction over a copy of the store and commits
// the result atomically. It returns the committed list.
func (s *ListStore) Update(fn func(tx *Tx)) []domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{items: cloneItems(s.items)}
	fn(tx)

	s.items = tx.items
	s.history = append(s.history, tx.history...)
	return cloneItems(s.items)
}

// Tx is a pending set of changes visible only to the Update callback.
type Tx struct {
	items   []domain.Item
	history []string
}

// Find returns the index of the item whose name matches case-insensitively.
func (tx *Tx) Find(name string) (int, bool) {
	for i, it := range tx.items {
		if domain.SameName(it.Name, name) {
			return i, true
		}
	}
	return -1, false
}

// Increment adds delta to the quantity of the item at index i.
func (tx *Tx) Increment(i, delta int) {
	tx.items[i].Quantity += delta
}

// Append adds a new item at the end of the list.
func (tx *Tx) Append(it domain.Item) {
	tx.items = append(tx.items, it)
}

// RemoveNamed drops every item whose name matches case-insensitively and
// returns how many were removed.
func (tx *Tx) RemoveNamed(name string) int {
	kept := tx.items[:0]
	removed := 0
	for _, it := range tx.items {
		if domain.SameName(it.Name, name) {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	tx.items = kept
	return removed
}

// AppendHistory records an added name.
func (tx *Tx) AppendHistory(name string) {
	tx.history = append(tx.history, name)
}

// Items returns the in-flight list.
func (tx *Tx) Items() []domain.Item {
	return cloneItems(tx.items)
}

func cloneItems(items []domain.Item) []domain.Item {
	out := make([]domain.Item, len(items))
	copy(out, items)
	return out
}
