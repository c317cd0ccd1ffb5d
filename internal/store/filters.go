package store

import (
	"sync"

	"github.com/RegistryAccord/registryaccord-storefront-go/internal/model"
)

// Filters holds the browsing filter state.
type Filters struct {
	mu  sync.RWMutex
	f   model.ProductFilters
	obs observers
}

// NewFilters returns filters at their defaults.
func NewFilters() *Filters {
	return &Filters{f: model.DefaultFilters()}
}

// SetSearch replaces the free-text query.
func (s *Filters) SetSearch(q string) {
	s.update(func(f *model.ProductFilters) { f.Search = q })
}

// SetCategory replaces the category slug; "" means all categories.
func (s *Filters) SetCategory(slug string) {
	s.update(func(f *model.ProductFilters) { f.Category = slug })
}

// SetPriceRange replaces both bounds. min > max is accepted as given.
func (s *Filters) SetPriceRange(min, max float64) {
	s.update(func(f *model.ProductFilters) {
		f.MinPrice = min
		f.MaxPrice = max
	})
}

// Reset restores the defaults.
func (s *Filters) Reset() {
	s.update(func(f *model.ProductFilters) { *f = model.DefaultFilters() })
}

// Snapshot returns the current filter values.
func (s *Filters) Snapshot() model.ProductFilters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.f
}

// Subscribe registers fn to run after every filter change.
func (s *Filters) Subscribe(fn func()) (unsubscribe func()) {
	return s.obs.subscribe(fn)
}

func (s *Filters) update(fn func(*model.ProductFilters)) {
	s.mu.Lock()
	fn(&s.f)
	s.mu.Unlock()
	s.obs.notify()
}
