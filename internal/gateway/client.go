// internal/gateway/client.go
// Package gateway provides a client for the remote product/auth REST API
// (DummyJSON). Every operation issues exactly one upstream request and maps
// the response onto the storefront model. Upstream error bodies are
// discarded: failures carry a fixed per-operation message.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	errordefs "github.com/RegistryAccord/registryaccord-storefront-go/internal/errors"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/metrics"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/model"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultPageSize is the products.list limit used when the caller sends none.
const DefaultPageSize = 12

// Fixed failure messages, one per operation
const (
	MsgLogin          = "Invalid credentials"
	MsgCurrentUser    = "Failed to fetch user"
	MsgListProducts   = "Failed to fetch products"
	MsgGetProduct     = "Failed to fetch product"
	MsgAddProduct     = "Failed to add product"
	MsgUpdateProduct  = "Failed to update product"
	MsgDeleteProduct  = "Failed to delete product"
	MsgListCategories = "Failed to fetch categories"
)

// Client for the remote product/auth API.
type Client struct {
	base     string           // Base URL of the upstream API
	hc       *http.Client     // HTTP client with custom configuration
	pageSize int              // Default limit for product listings
	metrics  *metrics.Metrics // Optional upstream metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithPageSize sets the default limit for product listings.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithMetrics records upstream request counts and durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a new gateway client for the API at baseURL.
// timeout bounds each upstream request at the transport; the gateway adds
// no retry or timeout policy of its own.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
	}

	c := &Client{
		base:     baseURL,
		hc:       &http.Client{Transport: transport, Timeout: timeout},
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login exchanges credentials for a user profile and session credential.
func (c *Client) Login(ctx context.Context, in model.LoginInput) (model.User, error) {
	var user model.User
	if err := c.do(ctx, "login", http.MethodPost, "/auth/login", nil, in, nil, MsgLogin, &user); err != nil {
		return model.User{}, err
	}
	// Normalize so callers always find the credential under "token"
	if user.Token == "" {
		user.Token = user.AccessToken
	}
	return user, nil
}

// CurrentUser resolves the profile behind a session credential.
func (c *Client) CurrentUser(ctx context.Context, token string) (model.User, error) {
	header := http.Header{"Authorization": []string{"Bearer " + token}}
	var user model.User
	if err := c.do(ctx, "current_user", http.MethodGet, "/auth/me", nil, nil, header, MsgCurrentUser, &user); err != nil {
		return model.User{}, err
	}
	return user, nil
}

// ListProducts returns one page of products.
// A non-empty search selects keyword search, otherwise a non-empty category
// selects the category listing, otherwise the plain listing is used. Search
// and category never combine: when both are set the category is dropped.
func (c *Client) ListProducts(ctx context.Context, in model.ListProductsInput) (model.ProductsResponse, error) {
	path, query := c.productsRequest(in)
	var page model.ProductsResponse
	if err := c.do(ctx, "list_products", http.MethodGet, path, query, nil, nil, MsgListProducts, &page); err != nil {
		return model.ProductsResponse{}, err
	}
	if page.Products == nil {
		page.Products = []model.Product{}
	}
	return page, nil
}

// productsRequest selects the listing mode and appends pagination.
func (c *Client) productsRequest(in model.ListProductsInput) (string, url.Values) {
	skip, limit := 0, c.pageSize
	if in.Skip != nil {
		skip = *in.Skip
	}
	if in.Limit != nil {
		limit = *in.Limit
	}

	query := url.Values{}
	path := "/products"
	switch {
	case in.Search != "":
		path = "/products/search"
		query.Set("q", in.Search)
	case in.Category != "":
		path = "/products/category/" + url.PathEscape(in.Category)
	}

	// Pagination is appended in every mode
	query.Set("limit", strconv.Itoa(limit))
	query.Set("skip", strconv.Itoa(skip))
	return path, query
}

// GetProduct returns a single product.
func (c *Client) GetProduct(ctx context.Context, id int) (model.Product, error) {
	var p model.Product
	if err := c.do(ctx, "get_product", http.MethodGet, productPath(id), nil, nil, nil, MsgGetProduct, &p); err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// AddProduct forwards a new product. The demo backend echoes it with an id
// but does not persist it.
func (c *Client) AddProduct(ctx context.Context, in model.NewProduct) (model.Product, error) {
	var p model.Product
	if err := c.do(ctx, "add_product", http.MethodPost, "/products/add", nil, in, nil, MsgAddProduct, &p); err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// UpdateProduct forwards a partial update. Later reads may not reflect it.
func (c *Client) UpdateProduct(ctx context.Context, in model.UpdateProductInput) (model.Product, error) {
	var p model.Product
	if err := c.do(ctx, "update_product", http.MethodPut, productPath(in.ID), nil, in.Data, nil, MsgUpdateProduct, &p); err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// DeleteProduct forwards a deletion and acknowledges it.
func (c *Client) DeleteProduct(ctx context.Context, id int) (model.DeleteResult, error) {
	if err := c.do(ctx, "delete_product", http.MethodDelete, productPath(id), nil, nil, nil, MsgDeleteProduct, nil); err != nil {
		return model.DeleteResult{}, err
	}
	return model.DeleteResult{Success: true}, nil
}

// Categories returns the product taxonomy as display objects.
func (c *Client) Categories(ctx context.Context) ([]model.Category, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "list_categories", http.MethodGet, "/products/categories", nil, nil, nil, MsgListCategories, &raw); err != nil {
		return nil, err
	}
	cats, err := AdaptCategories(raw)
	if err != nil {
		return nil, errordefs.Wrap(errordefs.SF_UPSTREAM, MsgListCategories, err)
	}
	return cats, nil
}

func productPath(id int) string {
	return "/products/" + strconv.Itoa(id)
}

// do executes one upstream request and decodes a 2xx JSON body into out.
// Any transport failure, non-2xx status or undecodable body becomes an
// SF_UPSTREAM error carrying msg.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body any, header http.Header, msg string, out any) (err error) {
	ctx, span := otel.Tracer(telemetry.ServiceName).Start(ctx, "gateway."+op)
	defer span.End()
	span.SetAttributes(attribute.String("http.method", method), attribute.String("upstream.path", path))

	start := time.Now()
	status := "error"
	defer func() {
		if c.metrics != nil {
			c.metrics.UpstreamRequestTotal.WithLabelValues(op, status).Inc()
			c.metrics.UpstreamRequestDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
		}
		if err != nil {
			span.SetStatus(codes.Error, msg)
			span.RecordError(err)
		}
	}()

	// Construct the request URL
	u, err := url.Parse(c.base + path)
	if err != nil {
		return errordefs.Wrap(errordefs.SF_UPSTREAM, msg, err)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errordefs.Wrap(errordefs.SF_UPSTREAM, msg, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return errordefs.Wrap(errordefs.SF_UPSTREAM, msg, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return errordefs.Wrap(errordefs.SF_UPSTREAM, msg, err)
	}
	defer resp.Body.Close()

	status = strconv.Itoa(resp.StatusCode)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Upstream detail is intentionally dropped here
		_, _ = io.Copy(io.Discard, resp.Body)
		return errordefs.Wrap(errordefs.SF_UPSTREAM, msg, fmt.Errorf("upstream %s %s: %s", method, path, resp.Status))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errordefs.Wrap(errordefs.SF_UPSTREAM, msg, fmt.Errorf("decode %s response: %w", op, err))
	}
	return nil
}
