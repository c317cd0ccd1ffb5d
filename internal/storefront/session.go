// Package storefront wires one user session: the RPC client, the state
// stores, the product feed and the order book.
package storefront

import (
	"context"
	"errors"
	"log/slog"

	"github.com/RegistryAccord/registryaccord-storefront-go/internal/catalog"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/client"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/model"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/orders"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/store"
)

// ErrUnauthenticated is returned by operations behind the login wall.
var ErrUnauthenticated = errors.New("authentication required")

// Session is the state of one storefront user.
type Session struct {
	Client  *client.Client
	Cart    *store.Cart
	Filters *store.Filters
	Auth    *store.Auth
	Feed    *catalog.Feed
	Orders  *orders.Book

	unsubscribe func()
}

// NewSession builds a session on c and book. pageSize <= 0 selects the default.
// The feed follows the filter store: a new search query or category starts
// a new feed generation.
func NewSession(c *client.Client, book *orders.Book, pageSize int) *Session {
	filters := store.NewFilters()
	s := &Session{
		Client:  c,
		Cart:    store.NewCart(),
		Filters: filters,
		Auth:    store.NewAuth(),
		Feed:    catalog.NewFeed(c, filters, pageSize),
		Orders:  book,
	}
	s.unsubscribe = filters.Subscribe(func() { s.Feed.Sync() })
	return s
}

// Close detaches the session's subscriptions.
func (s *Session) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Login authenticates and stores the returned user with its credential.
// A failed login leaves the auth state untouched.
func (s *Session) Login(ctx context.Context, username, password string) (model.User, error) {
	u, err := s.Client.Login(ctx, username, password)
	if err != nil {
		return model.User{}, err
	}
	s.Auth.SetAuth(u, u.Credential())
	slog.DebugContext(ctx, "session logged in", "user_id", u.ID)
	return u, nil
}

// Logout clears the local auth state. The backend is not contacted.
func (s *Session) Logout() {
	s.Auth.Logout()
}

// Guard admits callers only when the session is authenticated.
func (s *Session) Guard() error {
	if !s.Auth.IsAuthenticated() {
		return ErrUnauthenticated
	}
	return nil
}

// Me refreshes the current user from the backend.
func (s *Session) Me(ctx context.Context) (model.User, error) {
	if err := s.Guard(); err != nil {
		return model.User{}, err
	}
	return s.Client.Me(ctx, s.Auth.Token())
}

// SetQuantity updates a cart line, never letting it drop below 1.
func (s *Session) SetQuantity(id, quantity int) {
	if quantity < 1 {
		quantity = 1
	}
	s.Cart.UpdateQuantity(id, quantity)
}

// Checkout places an order for the cart contents.
func (s *Session) Checkout(ctx context.Context) (model.Order, error) {
	if err := s.Guard(); err != nil {
		return model.Order{}, err
	}
	return s.Orders.Checkout(ctx, s.Cart)
}

// OrderHistory lists the active orders, most recent first.
func (s *Session) OrderHistory(ctx context.Context) ([]model.Order, error) {
	if err := s.Guard(); err != nil {
		return nil, err
	}
	return s.Orders.List(ctx)
}

// CancelOrder removes a pending order.
func (s *Session) CancelOrder(ctx context.Context, id string) error {
	if err := s.Guard(); err != nil {
		return err
	}
	return s.Orders.Cancel(ctx, id)
}
