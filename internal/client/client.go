// Package client is the typed caller-side facade of the storefront RPC
// endpoint. Every method posts a {procedure, input} envelope to <base>/rpc.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/RegistryAccord/registryaccord-storefront-go/internal/model"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/rpc"
)

// MsgRequestFailed is used when a failed response has an empty body.
const MsgRequestFailed = "Request failed"

// Error is returned for any non-2xx response. Message is the raw response
// body text, so callers see exactly what the endpoint wrote.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

// Client calls the storefront RPC endpoint.
type Client struct {
	endpoint string
	hc       *http.Client
}

// New creates a client for the service at baseURL (for example "http://localhost:8080").
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{endpoint: strings.TrimRight(baseURL, "/") + "/rpc", hc: hc}
}

// Call invokes procedure with input and decodes the result into out.
// A nil input is sent as an absent input; a nil out discards the result.
func (c *Client) Call(ctx context.Context, procedure rpc.Procedure, input, out any) error {
	envelope := struct {
		Procedure rpc.Procedure `json:"procedure"`
		Input     any           `json:"input,omitempty"`
	}{Procedure: procedure, Input: input}

	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", procedure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", procedure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(respBody)
		if msg == "" {
			msg = MsgRequestFailed
		}
		return &Error{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s response: %w", procedure, err)
	}
	return nil
}

// Login calls auth.login. The returned user carries the session credential in Token.
func (c *Client) Login(ctx context.Context, username, password string) (model.User, error) {
	var u model.User
	err := c.Call(ctx, rpc.ProcAuthLogin, model.LoginInput{Username: username, Password: password}, &u)
	return u, err
}

// Me calls auth.me.
func (c *Client) Me(ctx context.Context, token string) (model.User, error) {
	var u model.User
	err := c.Call(ctx, rpc.ProcAuthMe, model.MeInput{Token: token}, &u)
	return u, err
}

// ListProducts calls products.list.
func (c *Client) ListProducts(ctx context.Context, in model.ListProductsInput) (model.ProductsResponse, error) {
	var page model.ProductsResponse
	err := c.Call(ctx, rpc.ProcProductsList, in, &page)
	return page, err
}

// GetProduct calls products.getById.
func (c *Client) GetProduct(ctx context.Context, id int) (model.Product, error) {
	var p model.Product
	err := c.Call(ctx, rpc.ProcProductsGetByID, model.ProductIDInput{ID: id}, &p)
	return p, err
}

// AddProduct calls products.add.
func (c *Client) AddProduct(ctx context.Context, in model.NewProduct) (model.Product, error) {
	var p model.Product
	err := c.Call(ctx, rpc.ProcProductsAdd, in, &p)
	return p, err
}

// UpdateProduct calls products.update.
func (c *Client) UpdateProduct(ctx context.Context, id int, data model.ProductPatch) (model.Product, error) {
	var p model.Product
	err := c.Call(ctx, rpc.ProcProductsUpdate, model.UpdateProductInput{ID: id, Data: data}, &p)
	return p, err
}

// DeleteProduct calls products.delete.
func (c *Client) DeleteProduct(ctx context.Context, id int) (model.DeleteResult, error) {
	var res model.DeleteResult
	err := c.Call(ctx, rpc.ProcProductsDelete, model.ProductIDInput{ID: id}, &res)
	return res, err
}

// Categories calls categories.list.
func (c *Client) Categories(ctx context.Context) ([]model.Category, error) {
	var cats []model.Category
	err := c.Call(ctx, rpc.ProcCategoriesList, nil, &cats)
	return cats, err
}
