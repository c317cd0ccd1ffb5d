// Package rpc implements the procedure registry and the dispatch state
// machine behind the storefront's single RPC endpoint.
//
// The set of procedures is closed: every name is a Procedure constant and
// every handler is built from a typed Go function, so a procedure's input
// and result types are checked at compile time. Dynamic callers that send
// an unknown name still get the runtime NotFound outcome.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	errordefs "github.com/RegistryAccord/registryaccord-storefront-go/internal/errors"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/model"
)

// Procedure is a dot-namespaced procedure name (module.action).
type Procedure string

// The registered procedures.
const (
	ProcAuthLogin       Procedure = "auth.login"
	ProcAuthMe          Procedure = "auth.me"
	ProcProductsList    Procedure = "products.list"
	ProcProductsGetByID Procedure = "products.getById"
	ProcProductsAdd     Procedure = "products.add"
	ProcProductsUpdate  Procedure = "products.update"
	ProcProductsDelete  Procedure = "products.delete"
	ProcCategoriesList  Procedure = "categories.list"
)

// HandlerFunc runs a procedure on its (already validated) raw input.
type HandlerFunc func(ctx context.Context, input json.RawMessage) (any, error)

// Descriptor declares one procedure.
type Descriptor struct {
	Name      Procedure
	HasSchema bool // Input is validated against the schema named Name
	Handler   HandlerFunc
}

// Backend is the remote data gateway the standard procedures wrap.
type Backend interface {
	Login(ctx context.Context, in model.LoginInput) (model.User, error)
	CurrentUser(ctx context.Context, token string) (model.User, error)
	ListProducts(ctx context.Context, in model.ListProductsInput) (model.ProductsResponse, error)
	GetProduct(ctx context.Context, id int) (model.Product, error)
	AddProduct(ctx context.Context, in model.NewProduct) (model.Product, error)
	UpdateProduct(ctx context.Context, in model.UpdateProductInput) (model.Product, error)
	DeleteProduct(ctx context.Context, id int) (model.DeleteResult, error)
	Categories(ctx context.Context) ([]model.Category, error)
}

// Registry maps procedure names to descriptors. Lookups are exact and case-sensitive.
type Registry struct {
	byName map[Procedure]Descriptor
	order  []Procedure
}

// NewRegistry builds a registry from descriptors.
// It fails on duplicate names or missing handlers.
func NewRegistry(descs ...Descriptor) (*Registry, error) {
	r := &Registry{byName: make(map[Procedure]Descriptor, len(descs))}
	for _, d := range descs {
		if d.Handler == nil {
			return nil, fmt.Errorf("procedure %q has no handler", d.Name)
		}
		if _, dup := r.byName[d.Name]; dup {
			return nil, fmt.Errorf("procedure %q registered twice", d.Name)
		}
		r.byName[d.Name] = d
		r.order = append(r.order, d.Name)
	}
	return r, nil
}

// Standard declares the storefront procedures on top of b.
func Standard(b Backend) []Descriptor {
	return []Descriptor{
		{Name: ProcAuthLogin, HasSchema: true, Handler: Typed(b.Login)},
		{Name: ProcAuthMe, HasSchema: true, Handler: Typed(func(ctx context.Context, in model.MeInput) (model.User, error) {
			return b.CurrentUser(ctx, in.Token)
		})},
		{Name: ProcProductsList, HasSchema: true, Handler: Typed(b.ListProducts)},
		{Name: ProcProductsGetByID, HasSchema: true, Handler: Typed(func(ctx context.Context, in model.ProductIDInput) (model.Product, error) {
			return b.GetProduct(ctx, in.ID)
		})},
		{Name: ProcProductsAdd, HasSchema: true, Handler: Typed(b.AddProduct)},
		{Name: ProcProductsUpdate, HasSchema: true, Handler: Typed(b.UpdateProduct)},
		{Name: ProcProductsDelete, HasSchema: true, Handler: Typed(func(ctx context.Context, in model.ProductIDInput) (model.DeleteResult, error) {
			return b.DeleteProduct(ctx, in.ID)
		})},
		{Name: ProcCategoriesList, Handler: NoInput(b.Categories)},
	}
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	d, ok := r.byName[Procedure(name)]
	return d, ok
}

// Names returns the registered procedure names in registration order.
func (r *Registry) Names() []Procedure {
	out := make([]Procedure, len(r.order))
	copy(out, r.order)
	return out
}

// Typed adapts a typed procedure function to a HandlerFunc.
// Absent or null input decodes to the zero value of In.
func Typed[In, Out any](fn func(context.Context, In) (Out, error)) HandlerFunc {
	return func(ctx context.Context, input json.RawMessage) (any, error) {
		var in In
		if present(input) {
			if err := json.Unmarshal(input, &in); err != nil {
				return nil, errordefs.Wrap(errordefs.SF_VALIDATION, fmt.Sprintf("invalid input: %v", err), err)
			}
		}
		return fn(ctx, in)
	}
}

// NoInput adapts a procedure that takes no input; any input is ignored.
func NoInput[Out any](fn func(context.Context) (Out, error)) HandlerFunc {
	return func(ctx context.Context, _ json.RawMessage) (any, error) {
		return fn(ctx)
	}
}

// present reports whether the caller supplied a defined input.
func present(input json.RawMessage) bool {
	trimmed := bytes.TrimSpace(input)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
