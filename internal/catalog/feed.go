// Package catalog implements the "load more" product feed of the storefront.
//
// A feed is keyed by the search query and category of the filter store.
// Pages are appended strictly in offset order, and every change of key starts
// a new generation: a page requested under an older generation is dropped
// when it arrives, so a slow response can never overwrite newer results.
package catalog

import (
	"context"
	"log/slog"
	"sync"

	"github.com/RegistryAccord/registryaccord-storefront-go/internal/model"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/store"
)

// DefaultPageSize is the number of products requested per page.
const DefaultPageSize = 12

// Lister fetches one page of products.
type Lister interface {
	ListProducts(ctx context.Context, in model.ListProductsInput) (model.ProductsResponse, error)
}

// queryKey identifies the server-side query of a feed. Price bounds are not
// part of it: they only narrow what is displayed.
type queryKey struct {
	search   string
	category string
}

// Feed accumulates pages of one product query.
type Feed struct {
	lister   Lister
	filters  *store.Filters
	pageSize int

	mu         sync.Mutex
	key        queryKey
	generation uint64
	products   []model.Product
	total      int
	started    bool // At least one page has arrived for this generation
}

// NewFeed creates a feed reading its query from filters.
func NewFeed(l Lister, filters *store.Filters, pageSize int) *Feed {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	f := &Feed{lister: l, filters: filters, pageSize: pageSize}
	f.key = keyOf(filters.Snapshot())
	return f
}

func keyOf(fl model.ProductFilters) queryKey {
	return queryKey{search: fl.Search, category: fl.Category}
}

// Reset drops every loaded page and starts a new generation from the
// current filters.
func (f *Feed) Reset() {
	k := keyOf(f.filters.Snapshot())
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetLocked(k)
}

// Sync resets the feed only when the search query or category changed.
// It reports whether a reset happened.
func (f *Feed) Sync() bool {
	k := keyOf(f.filters.Snapshot())
	f.mu.Lock()
	defer f.mu.Unlock()
	if k == f.key {
		return false
	}
	f.resetLocked(k)
	return true
}

func (f *Feed) resetLocked(k queryKey) {
	f.key = k
	f.generation++
	f.products = nil
	f.total = 0
	f.started = false
}

// NextOffset returns the skip of the next page: the number of products
// loaded so far, or false when everything has been loaded.
func (f *Feed) NextOffset() (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nextOffsetLocked()
}

func (f *Feed) nextOffsetLocked() (int, bool) {
	if !f.started {
		return 0, true
	}
	loaded := len(f.products)
	if loaded < f.total {
		return loaded, true
	}
	return 0, false
}

// LoadNext fetches the next page and appends it.
// It returns false without error when there is nothing more to load or when
// the page was superseded by a reset or a concurrent load while in flight.
func (f *Feed) LoadNext(ctx context.Context) (bool, error) {
	f.mu.Lock()
	offset, more := f.nextOffsetLocked()
	if !more {
		f.mu.Unlock()
		return false, nil
	}
	gen, key := f.generation, f.key
	f.mu.Unlock()

	skip, limit := offset, f.pageSize
	page, err := f.lister.ListProducts(ctx, model.ListProductsInput{
		Skip:     &skip,
		Limit:    &limit,
		Search:   key.search,
		Category: key.category,
	})

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.generation {
		slog.DebugContext(ctx, "discarding superseded product page", "generation", gen, "current", f.generation, "skip", offset)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if cur, _ := f.nextOffsetLocked(); cur != offset {
		// Another load of the same generation landed first
		return false, nil
	}
	f.products = append(f.products, page.Products...)
	f.total = page.Total
	f.started = true
	return true, nil
}

// Products returns every loaded product in page order.
func (f *Feed) Products() []model.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Product, len(f.products))
	copy(out, f.products)
	return out
}

// Total is the upstream total of the current query, 0 before the first page.
func (f *Feed) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total
}

// Visible returns the loaded products whose price lies within the current
// [MinPrice, MaxPrice] window, bounds inclusive.
func (f *Feed) Visible() []model.Product {
	fl := f.filters.Snapshot()
	all := f.Products()
	out := make([]model.Product, 0, len(all))
	for _, p := range all {
		if p.Price >= fl.MinPrice && p.Price <= fl.MaxPrice {
			out = append(out, p)
		}
	}
	return out
}
