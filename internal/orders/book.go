// Package orders keeps the session's order history in client-local storage.
//
// The whole history lives under a single storage key and is read, modified
// and written back wholesale, in checkout order. Listing returns it most
// recent first.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/RegistryAccord/registryaccord-storefront-go/internal/event"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/model"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/storage"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StorageKey is the local storage key holding the order list.
const StorageKey = "orders"

var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrOrderNotFound  = errors.New("order not found")
	ErrNotCancellable = errors.New("only pending orders can be cancelled")
)

// Book manages the persisted order list.
type Book struct {
	s   storage.Store
	pub event.Publisher
	now func() time.Time

	mu sync.Mutex // Serializes read-modify-write cycles
}

// Option configures a Book.
type Option func(*Book)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Book) { b.now = now }
}

// NewBook creates an order book on s. A nil publisher drops events.
func NewBook(s storage.Store, pub event.Publisher, opts ...Option) *Book {
	if pub == nil {
		pub = event.NewNoop()
	}
	b := &Book{s: s, pub: pub, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Checkout snapshots the cart into a completed order, appends it to the
// history and clears the cart.
func (b *Book) Checkout(ctx context.Context, cart *store.Cart) (model.Order, error) {
	items := cart.Items()
	if len(items) == 0 {
		return model.Order{}, ErrEmptyCart
	}

	order := model.Order{
		ID:        "ORD-" + uuid.NewString(),
		Items:     items,
		Total:     store.Total(items).InexactFloat64(),
		CreatedAt: b.now().UTC(),
		Status:    model.OrderCompleted,
	}

	b.mu.Lock()
	stored, err := b.load(ctx)
	if err == nil {
		err = b.save(ctx, append(stored, order))
	}
	b.mu.Unlock()
	if err != nil {
		return model.Order{}, err
	}

	cart.Clear()

	if err := b.pub.PublishOrderPlaced(ctx, order); err != nil {
		slog.WarnContext(ctx, "failed to publish order placed event", "order_id", order.ID, "error", err)
	}
	return order, nil
}

// List returns the active orders, most recent first. Cancelled entries left
// in storage are dropped and the list is written back without them.
func (b *Book) List(ctx context.Context) ([]model.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	stored, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]model.Order, 0, len(stored))
	for _, o := range stored {
		if o.Status != model.OrderCancelled {
			active = append(active, o)
		}
	}
	if len(active) != len(stored) {
		if err := b.save(ctx, active); err != nil {
			return nil, err
		}
	}

	out := make([]model.Order, len(active))
	for i, o := range active {
		out[len(active)-1-i] = o
	}
	return out, nil
}

// Cancel permanently removes a pending order.
func (b *Book) Cancel(ctx context.Context, id string) error {
	b.mu.Lock()
	stored, err := b.load(ctx)
	if err != nil {
		b.mu.Unlock()
		return err
	}

	idx := -1
	for i, o := range stored {
		if o.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		b.mu.Unlock()
		return ErrOrderNotFound
	}
	if stored[idx].Status != model.OrderPending {
		b.mu.Unlock()
		return ErrNotCancellable
	}

	cancelled := stored[idx]
	cancelled.Status = model.OrderCancelled
	remaining := append(stored[:idx:idx], stored[idx+1:]...)
	err = b.save(ctx, remaining)
	b.mu.Unlock()
	if err != nil {
		return err
	}

	if err := b.pub.PublishOrderCancelled(ctx, cancelled); err != nil {
		slog.WarnContext(ctx, "failed to publish order cancelled event", "order_id", id, "error", err)
	}
	return nil
}

// Stats summarizes the active orders.
func (b *Book) Stats(ctx context.Context) (model.OrderStats, error) {
	list, err := b.List(ctx)
	if err != nil {
		return model.OrderStats{}, err
	}
	return Summarize(list), nil
}

// Summarize computes order statistics over list.
func Summarize(list []model.Order) model.OrderStats {
	st := model.OrderStats{TotalOrders: len(list)}
	spent := decimal.Zero
	for _, o := range list {
		if o.Status == model.OrderCompleted {
			st.CompletedOrders++
		}
		spent = spent.Add(decimal.NewFromFloat(o.Total))
	}
	st.TotalSpent = spent.InexactFloat64()
	return st
}

// load reads the stored list; a missing key is an empty history.
func (b *Book) load(ctx context.Context) ([]model.Order, error) {
	raw, err := b.s.GetItem(ctx, StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return []model.Order{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read orders: %w", err)
	}
	var list []model.Order
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return list, nil
}

func (b *Book) save(ctx context.Context, list []model.Order) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode orders: %w", err)
	}
	if err := b.s.SetItem(ctx, StorageKey, raw); err != nil {
		return fmt.Errorf("write orders: %w", err)
	}
	return nil
}
