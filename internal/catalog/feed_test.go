package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/RegistryAccord/registryaccord-storefront-go/internal/model"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// fakeLister serves a fixed catalog of n products priced 1..n.
type fakeLister struct {
	mu    sync.Mutex
	n     int
	calls []model.ListProductsInput
	err   error
	gate  chan struct{} // When set, each call waits for a value
}

func (l *fakeLister) ListProducts(ctx context.Context, in model.ListProductsInput) (model.ProductsResponse, error) {
	l.mu.Lock()
	l.calls = append(l.calls, in)
	gate, err := l.gate, l.err
	l.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return model.ProductsResponse{}, err
	}
	var page []model.Product
	for i := *in.Skip; i < *in.Skip+*in.Limit && i < l.n; i++ {
		page = append(page, model.Product{ID: i + 1, Price: float64(i + 1)})
	}
	return model.ProductsResponse{Products: page, Total: l.n, Skip: *in.Skip, Limit: *in.Limit}, nil
}

func TestFeedPaginatesToTotal(t *testing.T) {
	l := &fakeLister{n: 30}
	f := NewFeed(l, store.NewFilters(), 0)
	ctx := context.Background()

	var offsets []int
	for {
		off, more := f.NextOffset()
		if !more {
			break
		}
		offsets = append(offsets, off)
		ok, err := f.LoadNext(ctx)
		require.NoError(t, err)
		require.True(t, ok)
	}

	assert.Equal(t, []int{0, 12, 24}, offsets)
	assert.Len(t, f.Products(), 30)
	assert.Equal(t, 30, f.Total())
	for i, p := range f.Products() {
		assert.Equal(t, i+1, p.ID, "pages appended in offset order")
	}

	ok, err := f.LoadNext(ctx)
	assert.NoError(t, err)
	assert.False(t, ok, "nothing left to load")
	assert.Len(t, l.calls, 3)
}

func TestFeedSendsQueryKey(t *testing.T) {
	l := &fakeLister{n: 5}
	filters := store.NewFilters()
	filters.SetSearch("phone")
	filters.SetCategory("smartphones")
	f := NewFeed(l, filters, 12)

	_, err := f.LoadNext(context.Background())
	require.NoError(t, err)
	require.Len(t, l.calls, 1)
	assert.Equal(t, "phone", l.calls[0].Search)
	assert.Equal(t, "smartphones", l.calls[0].Category)
	assert.Equal(t, 0, *l.calls[0].Skip)
	assert.Equal(t, 12, *l.calls[0].Limit)
}

func TestFeedDiscardsSupersededPage(t *testing.T) {
	l := &fakeLister{n: 30, gate: make(chan struct{})}
	filters := store.NewFilters()
	f := NewFeed(l, filters, 12)
	ctx := context.Background()

	done := make(chan bool)
	go func() {
		ok, _ := f.LoadNext(ctx)
		done <- ok
	}()

	// Wait until the first request is in flight, then change the query
	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return len(l.calls) == 1
	}, timeout, tick)
	filters.SetSearch("lamp")
	assert.True(t, f.Sync())

	l.gate <- struct{}{}
	assert.False(t, <-done, "stale page must be dropped")
	assert.Empty(t, f.Products())

	close(l.gate)
	ok, err := f.LoadNext(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "lamp", l.calls[1].Search)
	assert.Len(t, f.Products(), 12)
}

func TestFeedSyncIgnoresPriceChanges(t *testing.T) {
	l := &fakeLister{n: 5}
	filters := store.NewFilters()
	f := NewFeed(l, filters, 12)
	_, err := f.LoadNext(context.Background())
	require.NoError(t, err)

	filters.SetPriceRange(2, 4)
	assert.False(t, f.Sync())
	assert.Len(t, f.Products(), 5)

	var ids []int
	for _, p := range f.Visible() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []int{2, 3, 4}, ids, "bounds are inclusive")

	filters.SetPriceRange(10, 1)
	assert.Empty(t, f.Visible())
}

func TestFeedErrorKeepsState(t *testing.T) {
	l := &fakeLister{n: 30}
	f := NewFeed(l, store.NewFilters(), 12)
	ctx := context.Background()
	_, err := f.LoadNext(ctx)
	require.NoError(t, err)

	l.err = errors.New("Failed to fetch products")
	ok, err := f.LoadNext(ctx)
	assert.EqualError(t, err, "Failed to fetch products")
	assert.False(t, ok)
	assert.Len(t, f.Products(), 12)

	off, more := f.NextOffset()
	assert.True(t, more)
	assert.Equal(t, 12, off)
}
