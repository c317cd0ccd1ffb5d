package conformance

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// Test credentials accepted by the fake upstream.
const (
	TestUsername = "emilys"
	TestPassword = "emilyspass"
	TestToken    = "test-access-token"
)

// Upstream is an in-process stand-in for the DummyJSON API.
// It serves a fixed catalog and records every request path.
type Upstream struct {
	server *httptest.Server

	mu       sync.Mutex
	products []upstreamProduct
	requests []string
}

type upstreamProduct struct {
	ID       int     `json:"id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
	Stock    int     `json:"stock"`
}

var upstreamCategories = []string{"beauty", "home-decoration", "smartphones"}

// NewUpstream starts a fake upstream with n products. Product i costs i and
// belongs to category (i-1) mod 3.
func NewUpstream(n int) *Upstream {
	u := &Upstream{}
	for i := 1; i <= n; i++ {
		u.products = append(u.products, upstreamProduct{
			ID:       i,
			Title:    fmt.Sprintf("Product %d", i),
			Price:    float64(i),
			Category: upstreamCategories[(i-1)%len(upstreamCategories)],
			Stock:    10,
		})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", u.login)
	mux.HandleFunc("GET /auth/me", u.me)
	mux.HandleFunc("GET /products", u.list(func(upstreamProduct, *http.Request) bool { return true }))
	mux.HandleFunc("GET /products/search", u.list(func(p upstreamProduct, r *http.Request) bool {
		return strings.Contains(strings.ToLower(p.Title), strings.ToLower(r.URL.Query().Get("q")))
	}))
	mux.HandleFunc("GET /products/category/{slug}", u.list(func(p upstreamProduct, r *http.Request) bool {
		return p.Category == r.PathValue("slug")
	}))
	mux.HandleFunc("GET /products/categories", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, upstreamCategories)
	})
	mux.HandleFunc("GET /products/{id}", u.withProduct(func(w http.ResponseWriter, r *http.Request, p upstreamProduct) {
		writeJSON(w, http.StatusOK, p)
	}))
	mux.HandleFunc("PUT /products/{id}", u.withProduct(func(w http.ResponseWriter, r *http.Request, p upstreamProduct) {
		_ = json.NewDecoder(r.Body).Decode(&p)
		writeJSON(w, http.StatusOK, p)
	}))
	mux.HandleFunc("DELETE /products/{id}", u.withProduct(func(w http.ResponseWriter, r *http.Request, p upstreamProduct) {
		writeJSON(w, http.StatusOK, map[string]any{"id": p.ID, "isDeleted": true})
	}))
	mux.HandleFunc("POST /products/add", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
		u.mu.Lock()
		body["id"] = len(u.products) + 1
		u.mu.Unlock()
		writeJSON(w, http.StatusCreated, body)
	})

	u.server = httptest.NewServer(u.record(mux))
	return u
}

// URL is the base URL of the fake upstream.
func (u *Upstream) URL() string { return u.server.URL }

// Close stops the fake upstream.
func (u *Upstream) Close() { u.server.Close() }

// Requests returns the request URIs seen so far.
func (u *Upstream) Requests() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]string, len(u.requests))
	copy(out, u.requests)
	return out
}

func (u *Upstream) record(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.requests = append(u.requests, r.Method+" "+r.URL.RequestURI())
		u.mu.Unlock()
		h.ServeHTTP(w, r)
	})
}

func (u *Upstream) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)
	if in.Username != TestUsername || in.Password != TestPassword {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id": 1, "username": TestUsername, "email": "emily@example.com",
		"firstName": "Emily", "lastName": "Johnson",
		"accessToken": TestToken, "refreshToken": "test-refresh-token",
	})
}

func (u *Upstream) me(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+TestToken {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid/Expired Token!"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": 1, "username": TestUsername})
}

func (u *Upstream) list(match func(upstreamProduct, *http.Request) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))

		u.mu.Lock()
		var matched []upstreamProduct
		for _, p := range u.products {
			if match(p, r) {
				matched = append(matched, p)
			}
		}
		u.mu.Unlock()

		page := []upstreamProduct{}
		for i := skip; i < len(matched) && i < skip+limit; i++ {
			page = append(page, matched[i])
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"products": page, "total": len(matched), "skip": skip, "limit": limit,
		})
	}
}

func (u *Upstream) withProduct(h func(http.ResponseWriter, *http.Request, upstreamProduct)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(r.PathValue("id"))
		u.mu.Lock()
		ok := err == nil && id >= 1 && id <= len(u.products)
		var p upstreamProduct
		if ok {
			p = u.products[id-1]
		}
		u.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": fmt.Sprintf("Product with id '%s' not found", r.PathValue("id"))})
			return
		}
		h(w, r, p)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
