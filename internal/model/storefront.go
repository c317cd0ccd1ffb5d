// internal/model/storefront.go
// Package model defines the data structures shared by the storefront service,
// its RPC client and the client-side state stores.
// Field names follow the DummyJSON wire format so values round-trip unchanged.
package model

import (
	"encoding/json"
	"time"
)

// User is the authenticated profile returned by the upstream auth API.
type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Gender       string `json:"gender"`
	Image        string `json:"image"`
	Token        string `json:"token,omitempty"`        // Opaque credential (login only)
	AccessToken  string `json:"accessToken,omitempty"`  // Newer upstream name for Token
	RefreshToken string `json:"refreshToken,omitempty"` // Optional refresh credential
}

// Credential returns the session credential carried by a login response.
// Older upstream versions call it "token", newer ones "accessToken".
func (u User) Credential() string {
	if u.Token != "" {
		return u.Token
	}
	return u.AccessToken
}

// Product is a catalog entry. It is immutable from the client's point of view.
type Product struct {
	ID                 int      `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Price              float64  `json:"price"`
	DiscountPercentage float64  `json:"discountPercentage"`
	Rating             float64  `json:"rating"`
	Stock              int      `json:"stock"`
	Brand              string   `json:"brand"`
	Category           string   `json:"category"`
	Thumbnail          string   `json:"thumbnail"`
	Images             []string `json:"images"`
}

// ProductsResponse is one page of a product listing.
type ProductsResponse struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Skip     int       `json:"skip"`
	Limit    int       `json:"limit"`
}

// Category is a display object derived from an upstream taxonomy token.
type Category struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// DeleteResult acknowledges a product deletion.
type DeleteResult struct {
	Success bool `json:"success"`
}

// CartItem is one line of the cart. ID always equals Product.ID.
type CartItem struct {
	ID       int     `json:"id"`
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// Order is a checkout snapshot kept in client-local storage.
type Order struct {
	ID        string      `json:"id"`
	Items     []CartItem  `json:"items"`
	Total     float64     `json:"total"`
	CreatedAt time.Time   `json:"createdAt"`
	Status    OrderStatus `json:"status"`
}

// OrderStats summarizes an order history.
type OrderStats struct {
	TotalOrders     int     `json:"totalOrders"`
	CompletedOrders int     `json:"completedOrders"`
	TotalSpent      float64 `json:"totalSpent"`
}

// ProductFilters is the browsing filter state.
type ProductFilters struct {
	Search   string  `json:"search"`
	Category string  `json:"category"`
	MinPrice float64 `json:"minPrice"`
	MaxPrice float64 `json:"maxPrice"`
}

// DefaultFilters returns the filter state used at session start and on reset.
func DefaultFilters() ProductFilters {
	return ProductFilters{Search: "", Category: "", MinPrice: 0, MaxPrice: 10000}
}

// RPCRequest is the inbound envelope of POST /rpc.
// Input is kept raw so that an absent input can be told apart from a present one.
type RPCRequest struct {
	Procedure string          `json:"procedure"`
	Input     json.RawMessage `json:"input,omitempty"`
}

// RPCError is the failure envelope of POST /rpc.
type RPCError struct {
	Error string `json:"error"`
}

// RPCInfo is the body returned by GET /rpc.
type RPCInfo struct {
	Message string `json:"message"`
}

// LoginInput is the input of auth.login.
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// MeInput is the input of auth.me.
type MeInput struct {
	Token string `json:"token"`
}

// ListProductsInput is the input of products.list. All fields are optional.
type ListProductsInput struct {
	Skip     *int   `json:"skip,omitempty"`
	Limit    *int   `json:"limit,omitempty"`
	Search   string `json:"search,omitempty"`
	Category string `json:"category,omitempty"`
}

// ProductIDInput is the input of products.getById and products.delete.
type ProductIDInput struct {
	ID int `json:"id"`
}

// NewProduct is the input of products.add.
type NewProduct struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Price              float64  `json:"price"`
	DiscountPercentage float64  `json:"discountPercentage"`
	Rating             float64  `json:"rating"`
	Stock              int      `json:"stock"`
	Brand              string   `json:"brand"`
	Category           string   `json:"category"`
	Thumbnail          string   `json:"thumbnail"`
	Images             []string `json:"images"`
}

// ProductPatch holds the optional fields accepted by products.update.
type ProductPatch struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Stock       *int     `json:"stock,omitempty"`
	Brand       *string  `json:"brand,omitempty"`
	Category    *string  `json:"category,omitempty"`
}

// UpdateProductInput is the input of products.update.
type UpdateProductInput struct {
	ID   int          `json:"id"`
	Data ProductPatch `json:"data"`
}
