package store

import (
	"sync"

	"github.com/RegistryAccord/registryaccord-storefront-go/internal/model"
	"github.com/shopspring/decimal"
)

// Cart is the shopping cart. Items keep insertion order and at most one
// line exists per product id.
type Cart struct {
	mu    sync.RWMutex
	items []model.CartItem
	obs   observers
}

// NewCart returns an empty cart.
func NewCart() *Cart {
	return &Cart{items: []model.CartItem{}}
}

// AddItem adds one unit of p. A product already in the cart has its
// quantity incremented instead of getting a second line.
func (c *Cart) AddItem(p model.Product) {
	c.mu.Lock()
	found := false
	for i := range c.items {
		if c.items[i].ID == p.ID {
			c.items[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		c.items = append(c.items, model.CartItem{ID: p.ID, Product: p, Quantity: 1})
	}
	c.mu.Unlock()
	c.obs.notify()
}

// UpdateQuantity sets the quantity of line id. The value is stored as given;
// callers that need a lower bound enforce it themselves. Unknown ids are ignored.
func (c *Cart) UpdateQuantity(id, quantity int) {
	c.mu.Lock()
	changed := false
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].Quantity = quantity
			changed = true
			break
		}
	}
	c.mu.Unlock()
	if changed {
		c.obs.notify()
	}
}

// RemoveItem drops line id. Removing an absent id is a no-op.
func (c *Cart) RemoveItem(id int) {
	c.mu.Lock()
	kept := c.items[:0:0]
	for _, it := range c.items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	changed := len(kept) != len(c.items)
	c.items = kept
	c.mu.Unlock()
	if changed {
		c.obs.notify()
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	c.items = []model.CartItem{}
	c.mu.Unlock()
	c.obs.notify()
}

// Items returns a copy of the cart lines in insertion order.
func (c *Cart) Items() []model.CartItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.CartItem, len(c.items))
	copy(out, c.items)
	return out
}

// TotalPrice is the sum of price × quantity over all lines, computed on
// every call.
func (c *Cart) TotalPrice() float64 {
	return Total(c.Items()).InexactFloat64()
}

// TotalItems is the sum of quantities over all lines.
func (c *Cart) TotalItems() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// Subscribe registers fn to run after every cart mutation.
func (c *Cart) Subscribe(fn func()) (unsubscribe func()) {
	return c.obs.subscribe(fn)
}

// Total sums price × quantity over items in decimal arithmetic, so that
// 0.1 + 0.2 is 0.3.
func Total(items []model.CartItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		line := decimal.NewFromFloat(it.Product.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
		sum = sum.Add(line)
	}
	return sum
}
