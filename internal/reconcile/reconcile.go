package reconcile

import (
	"time"

	"github.com/google/uuid"

	"shopping-agent/internal/domain"
	"shopping-agent/internal/store"
)

// Store is the transactional surface the reconciler mutates.
type Store interface {
	Update(fn func(tx *store.Tx)) []domain.Item
}

// Reconciler applies parsed commands to a list store under the merge rules:
// adds accumulate quantity on a case-insensitive name match, removes drop every
// matching entry, and all other actions leave the list as is.
type Reconciler struct {
	newID func() string
	now   func() time.Time
}

type Option func(*Reconciler)

func WithIDGenerator(fn func() string) Option {
	return func(r *Reconciler) {
		r.newID = fn
	}
}

func WithClock(fn func() time.Time) Option {
	return func(r *Reconciler) {
		r.now = fn
	}
}

func New(opts ...Option) *Reconciler {
	r := &Reconciler{
		newID: uuid.NewString,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply reconciles cmd into s in a single transaction and returns the full
// resulting list.
func (r *Reconciler) Apply(s Store, cmd domain.ParsedCommand) []domain.Item {
	return s.Update(func(tx *store.Tx) {
		switch cmd.Action {
		case domain.ActionAdd:
			now := r.now().UTC()
			for _, it := range cmd.Items {
				r.add(tx, it, now)
			}
		case domain.ActionRemove:
			for _, it := range cmd.Items {
				name := domain.NormalizeName(it.Name)
				if name == "" {
					continue
				}
				tx.RemoveNamed(name)
			}
		}
	})
}

func (r *Reconciler) add(tx *store.Tx, it domain.ParsedItem, now time.Time) {
	name := domain.NormalizeName(it.Name)
	if name == "" {
		return
	}
	qty := it.EffectiveQuantity()
	if idx, ok := tx.Find(name); ok {
		tx.Increment(idx, qty)
		return
	}

	category := it.Category
	if !category.Valid() {
		category = domain.CategoryOther
	}
	tx.Append(domain.Item{
		ID:       r.newID(),
		Name:     name,
		Quantity: qty,
		Category: category,
		AddedAt:  now,
	})
	tx.AppendHistory(name)
}
