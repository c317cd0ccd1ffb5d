package gateway

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	errordefs "github.com/RegistryAccord/registryaccord-storefront-go/internal/errors"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/model"
)

// recordedRequest is what the fake upstream saw.
type recordedRequest struct {
	Method string
	Path   string
	Query  map[string]string
	Header http.Header
	Body   string
}

// newUpstream starts a fake upstream that records the last request and
// answers with status and body.
func newUpstream(t *testing.T, status int, body string) (*httptest.Server, *recordedRequest) {
	t.Helper()
	rec := &recordedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		rec.Method = r.Method
		rec.Path = r.URL.EscapedPath()
		rec.Query = map[string]string{}
		for k := range r.URL.Query() {
			rec.Query[k] = r.URL.Query().Get(k)
		}
		rec.Header = r.Header.Clone()
		rec.Body = string(b)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func intPtr(n int) *int { return &n }

// TestListProductsModes tests search > category > plain precedence and pagination.
func TestListProductsModes(t *testing.T) {
	tests := []struct {
		name      string
		in        model.ListProductsInput
		wantPath  string
		wantQuery map[string]string
	}{
		{
			name:      "plain listing uses defaults",
			in:        model.ListProductsInput{},
			wantPath:  "/products",
			wantQuery: map[string]string{"limit": "12", "skip": "0"},
		},
		{
			name:      "search",
			in:        model.ListProductsInput{Search: "phone", Skip: intPtr(12), Limit: intPtr(6)},
			wantPath:  "/products/search",
			wantQuery: map[string]string{"q": "phone", "limit": "6", "skip": "12"},
		},
		{
			name:      "category",
			in:        model.ListProductsInput{Category: "home-decoration"},
			wantPath:  "/products/category/home-decoration",
			wantQuery: map[string]string{"limit": "12", "skip": "0"},
		},
		{
			name:      "search wins over category",
			in:        model.ListProductsInput{Search: "lamp", Category: "furniture"},
			wantPath:  "/products/search",
			wantQuery: map[string]string{"q": "lamp", "limit": "12", "skip": "0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, rec := newUpstream(t, http.StatusOK, `{"products":[{"id":1,"title":"A","price":10}],"total":1,"skip":0,"limit":12}`)
			c := New(srv.URL, time.Second)

			page, err := c.ListProducts(context.Background(), tt.in)
			if err != nil {
				t.Fatalf("ListProducts() error = %v", err)
			}
			if len(page.Products) != 1 || page.Products[0].ID != 1 {
				t.Errorf("ListProducts() products = %+v", page.Products)
			}
			if rec.Path != tt.wantPath {
				t.Errorf("path = %q, want %q", rec.Path, tt.wantPath)
			}
			if len(rec.Query) != len(tt.wantQuery) {
				t.Errorf("query = %v, want %v", rec.Query, tt.wantQuery)
			}
			for k, v := range tt.wantQuery {
				if rec.Query[k] != v {
					t.Errorf("query[%s] = %q, want %q", k, rec.Query[k], v)
				}
			}
			if _, ok := rec.Query["category"]; ok {
				t.Error("category must never be sent as a query parameter")
			}
		})
	}
}

// TestUpstreamFailureMessages tests that non-2xx statuses map to fixed messages.
func TestUpstreamFailureMessages(t *testing.T) {
	srv, _ := newUpstream(t, http.StatusBadRequest, `{"message":"secret upstream detail"}`)
	c := New(srv.URL, time.Second)
	ctx := context.Background()

	calls := map[string]func() error{
		MsgLogin: func() error {
			_, err := c.Login(ctx, model.LoginInput{Username: "u", Password: "p"})
			return err
		},
		MsgCurrentUser:  func() error { _, err := c.CurrentUser(ctx, "t"); return err },
		MsgListProducts: func() error { _, err := c.ListProducts(ctx, model.ListProductsInput{}); return err },
		MsgGetProduct:   func() error { _, err := c.GetProduct(ctx, 1); return err },
		MsgAddProduct:   func() error { _, err := c.AddProduct(ctx, model.NewProduct{}); return err },
		MsgUpdateProduct: func() error {
			_, err := c.UpdateProduct(ctx, model.UpdateProductInput{ID: 1})
			return err
		},
		MsgDeleteProduct:  func() error { _, err := c.DeleteProduct(ctx, 1); return err },
		MsgListCategories: func() error { _, err := c.Categories(ctx); return err },
	}

	for want, call := range calls {
		t.Run(want, func(t *testing.T) {
			err := call()
			var e *errordefs.Error
			if !stderrors.As(err, &e) {
				t.Fatalf("error = %v, want *errors.Error", err)
			}
			if e.Code != errordefs.SF_UPSTREAM || e.Message != want {
				t.Errorf("error = %s/%q, want SF_UPSTREAM/%q", e.Code, e.Message, want)
			}
		})
	}
}

// TestTransportFailure tests that a dead upstream surfaces the fixed message.
func TestTransportFailure(t *testing.T) {
	srv, _ := newUpstream(t, http.StatusOK, `{}`)
	base := srv.URL
	srv.Close()

	_, err := New(base, time.Second).GetProduct(context.Background(), 1)
	var e *errordefs.Error
	if !stderrors.As(err, &e) || e.Message != MsgGetProduct {
		t.Errorf("GetProduct() error = %v, want %q", err, MsgGetProduct)
	}
}

// TestLoginNormalizesCredential tests accessToken → token normalization.
func TestLoginNormalizesCredential(t *testing.T) {
	srv, rec := newUpstream(t, http.StatusOK, `{"id":1,"username":"emilys","accessToken":"abc","refreshToken":"r"}`)
	user, err := New(srv.URL, time.Second).Login(context.Background(), model.LoginInput{Username: "emilys", Password: "emilyspass"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if user.Token != "abc" {
		t.Errorf("Token = %q, want %q", user.Token, "abc")
	}
	if rec.Method != http.MethodPost || rec.Path != "/auth/login" {
		t.Errorf("request = %s %s", rec.Method, rec.Path)
	}
	var body model.LoginInput
	if err := json.Unmarshal([]byte(rec.Body), &body); err != nil || body.Username != "emilys" {
		t.Errorf("body = %s", rec.Body)
	}
}

// TestCurrentUserSendsBearer tests the Authorization header of auth.me.
func TestCurrentUserSendsBearer(t *testing.T) {
	srv, rec := newUpstream(t, http.StatusOK, `{"id":1,"username":"emilys"}`)
	if _, err := New(srv.URL, time.Second).CurrentUser(context.Background(), "tok"); err != nil {
		t.Fatalf("CurrentUser() error = %v", err)
	}
	if got := rec.Header.Get("Authorization"); got != "Bearer tok" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer tok")
	}
}

// TestUpdateAndDelete tests the verbs and bodies of the write operations.
func TestUpdateAndDelete(t *testing.T) {
	srv, rec := newUpstream(t, http.StatusOK, `{"id":5,"title":"New"}`)
	c := New(srv.URL, time.Second)

	title := "New"
	p, err := c.UpdateProduct(context.Background(), model.UpdateProductInput{ID: 5, Data: model.ProductPatch{Title: &title}})
	if err != nil {
		t.Fatalf("UpdateProduct() error = %v", err)
	}
	if p.Title != "New" || rec.Method != http.MethodPut || rec.Path != "/products/5" {
		t.Errorf("UpdateProduct() = %+v via %s %s", p, rec.Method, rec.Path)
	}
	if rec.Body != `{"title":"New"}` {
		t.Errorf("UpdateProduct() body = %s, want only the patch", rec.Body)
	}

	res, err := c.DeleteProduct(context.Background(), 5)
	if err != nil || !res.Success {
		t.Errorf("DeleteProduct() = %+v, %v", res, err)
	}
	if rec.Method != http.MethodDelete {
		t.Errorf("DeleteProduct() method = %s", rec.Method)
	}
}

// TestCategories tests adaptation of both payload shapes.
func TestCategories(t *testing.T) {
	for name, payload := range map[string]string{
		"tokens":  `["beauty","home-decoration"]`,
		"objects": `[{"slug":"beauty","name":"Beauty","url":"x"},{"slug":"home-decoration","name":"Home Decoration","url":"y"}]`,
	} {
		t.Run(name, func(t *testing.T) {
			srv, rec := newUpstream(t, http.StatusOK, payload)
			cats, err := New(srv.URL, time.Second).Categories(context.Background())
			if err != nil {
				t.Fatalf("Categories() error = %v", err)
			}
			if rec.Path != "/products/categories" {
				t.Errorf("path = %q", rec.Path)
			}
			want := []model.Category{
				{Slug: "beauty", Name: "Beauty", URL: "/products/category/beauty"},
				{Slug: "home-decoration", Name: "Home decoration", URL: "/products/category/home-decoration"},
			}
			if len(cats) != len(want) {
				t.Fatalf("Categories() = %+v, want %+v", cats, want)
			}
			for i := range want {
				if cats[i] != want[i] {
					t.Errorf("Categories()[%d] = %+v, want %+v", i, cats[i], want[i])
				}
			}
		})
	}
}

// TestAdaptCategoriesRejectsNonArray tests malformed taxonomy payloads.
func TestAdaptCategoriesRejectsNonArray(t *testing.T) {
	if _, err := AdaptCategories([]byte(`{"categories":[]}`)); err == nil {
		t.Error("AdaptCategories(object) error = nil, want error")
	}
	if _, err := AdaptCategories([]byte(`[`)); err == nil {
		t.Error("AdaptCategories(invalid) error = nil, want error")
	}
}
