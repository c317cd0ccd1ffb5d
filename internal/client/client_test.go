package client

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/RegistryAccord/registryaccord-storefront-go/internal/model"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/rpc"
)

// envelope is what the fake endpoint decoded.
type envelope struct {
	Procedure string          `json:"procedure"`
	Input     json.RawMessage `json:"input"`
}

// newEndpoint starts a fake /rpc endpoint answering with status and body.
func newEndpoint(t *testing.T, status int, body string) (*httptest.Server, *envelope) {
	t.Helper()
	got := &envelope{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rpc" || r.Method != http.MethodPost {
			t.Errorf("request = %s %s, want POST /rpc", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		b, _ := io.ReadAll(r.Body)
		*got = envelope{}
		if err := json.Unmarshal(b, got); err != nil {
			t.Errorf("envelope %s: %v", b, err)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

// TestTypedCalls tests the envelope each typed method sends.
func TestTypedCalls(t *testing.T) {
	srv, got := newEndpoint(t, http.StatusOK, `{"id":3,"title":"Lamp","price":9.5}`)
	c := New(srv.URL+"/", nil)
	ctx := context.Background()

	p, err := c.GetProduct(ctx, 3)
	if err != nil {
		t.Fatalf("GetProduct() error = %v", err)
	}
	if p.ID != 3 || p.Title != "Lamp" {
		t.Errorf("GetProduct() = %+v", p)
	}
	if got.Procedure != string(rpc.ProcProductsGetByID) || string(got.Input) != `{"id":3}` {
		t.Errorf("envelope = %s %s", got.Procedure, got.Input)
	}

	title := "Desk"
	if _, err := c.UpdateProduct(ctx, 3, model.ProductPatch{Title: &title}); err != nil {
		t.Fatalf("UpdateProduct() error = %v", err)
	}
	if got.Procedure != "products.update" || string(got.Input) != `{"id":3,"data":{"title":"Desk"}}` {
		t.Errorf("envelope = %s %s", got.Procedure, got.Input)
	}
}

// TestCategoriesSendsNoInput tests that input-less procedures omit the field.
func TestCategoriesSendsNoInput(t *testing.T) {
	srv, got := newEndpoint(t, http.StatusOK, `[{"slug":"beauty","name":"Beauty","url":"/products/category/beauty"}]`)

	cats, err := New(srv.URL, nil).Categories(context.Background())
	if err != nil {
		t.Fatalf("Categories() error = %v", err)
	}
	if len(cats) != 1 || cats[0].Slug != "beauty" {
		t.Errorf("Categories() = %+v", cats)
	}
	if got.Procedure != "categories.list" || got.Input != nil {
		t.Errorf("envelope = %s %s, want no input", got.Procedure, got.Input)
	}
}

// TestErrorCarriesBodyText tests that failures surface the raw response text.
func TestErrorCarriesBodyText(t *testing.T) {
	srv, _ := newEndpoint(t, http.StatusNotFound, `{"error":"Procedure not found"}`)

	err := New(srv.URL, nil).Call(context.Background(), "nope", nil, nil)
	var ce *Error
	if !stderrors.As(err, &ce) {
		t.Fatalf("Call() error = %v, want *Error", err)
	}
	if ce.Status != http.StatusNotFound || ce.Error() != `{"error":"Procedure not found"}` {
		t.Errorf("error = %d %q", ce.Status, ce.Error())
	}
}

// TestErrorWithEmptyBody tests the fallback message.
func TestErrorWithEmptyBody(t *testing.T) {
	srv, _ := newEndpoint(t, http.StatusInternalServerError, "")

	_, err := New(srv.URL, nil).Login(context.Background(), "u", "p")
	if err == nil || err.Error() != MsgRequestFailed {
		t.Errorf("Login() error = %v, want %q", err, MsgRequestFailed)
	}
}
