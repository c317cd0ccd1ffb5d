// Package conformance provides a black-box harness that runs the storefront
// RPC service in-process against a fake upstream and checks its wire contract.
package conformance

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/RegistryAccord/registryaccord-storefront-go/internal/client"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/gateway"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/metrics"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/rpc"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/schema"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/server"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/storage"
)

// Harness runs the full service stack behind an httptest server.
type Harness struct {
	server   *httptest.Server
	upstream *Upstream
	store    storage.Store
}

// Config holds configuration for the conformance test harness.
type Config struct {
	// Products is the size of the fake upstream catalog (default 30)
	Products int

	// PageSize is the default products.list limit (default 12)
	PageSize int

	// UpstreamURL points the gateway at a real API instead of the fake one
	UpstreamURL string

	// Store backs /readyz; memory when nil
	Store storage.Store

	// RateLimitRPS enables the /rpc limiter when > 0
	RateLimitRPS int
}

// NewHarness creates a new conformance test harness.
func NewHarness(cfg Config) (*Harness, error) {
	if cfg.Products <= 0 {
		cfg.Products = 30
	}
	if cfg.Store == nil {
		cfg.Store = storage.NewMemory()
	}

	h := &Harness{store: cfg.Store}
	upstreamURL := cfg.UpstreamURL
	if upstreamURL == "" {
		h.upstream = NewUpstream(cfg.Products)
		upstreamURL = h.upstream.URL()
	}

	m := metrics.NewMetrics()
	gw := gateway.New(upstreamURL, 10*time.Second, gateway.WithPageSize(cfg.PageSize), gateway.WithMetrics(m))

	validator, err := schema.NewValidator()
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("failed to initialize schema validator: %w", err)
	}
	registry, err := rpc.NewRegistry(rpc.Standard(gw)...)
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("failed to build registry: %w", err)
	}
	endpoint, err := rpc.NewEndpoint(registry, validator, m)
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("failed to build endpoint: %w", err)
	}

	mux := server.NewMux(cfg.Store, endpoint, server.Options{
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitRPS,
	})
	h.server = httptest.NewServer(mux)
	return h, nil
}

// URL returns the base URL of the test server.
func (h *Harness) URL() string {
	return h.server.URL
}

// Upstream returns the fake upstream, or nil when a real one is used.
func (h *Harness) Upstream() *Upstream {
	return h.upstream
}

// Client returns a typed client bound to the test server.
func (h *Harness) Client() *client.Client {
	return client.New(h.URL(), h.server.Client())
}

// Close shuts down the test server and cleans up resources.
func (h *Harness) Close() {
	if h.server != nil {
		h.server.Close()
	}
	if h.upstream != nil {
		h.upstream.Close()
	}
	if h.store != nil {
		_ = h.store.Close()
	}
}

// PostRPC sends a raw envelope and returns status, error-code header and body.
func (h *Harness) PostRPC(t *testing.T, body string) (int, string, string) {
	t.Helper()
	resp, err := http.Post(h.URL()+"/rpc", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to POST /rpc: %v", err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read /rpc response: %v", err)
	}
	return resp.StatusCode, resp.Header.Get(server.HeaderErrorCode), string(b)
}

// RunConformanceTests runs the wire-contract checks against the fake upstream.
func (h *Harness) RunConformanceTests(t *testing.T) {
	t.Run("HealthEndpoints", h.testHealthEndpoints)
	t.Run("InfoOnGet", h.testInfoOnGet)
	t.Run("MethodNotAllowed", h.testMethodNotAllowed)
	t.Run("UnknownProcedure", h.testUnknownProcedure)
	t.Run("GetByID", h.testGetByID)
	t.Run("LoginSchemaViolation", h.testLoginSchemaViolation)
	t.Run("MalformedBody", h.testMalformedBody)
	t.Run("UpstreamFailure", h.testUpstreamFailure)
	t.Run("SearchWinsOverCategory", h.testSearchWinsOverCategory)
	t.Run("Categories", h.testCategories)
	t.Run("LoginAndMe", h.testLoginAndMe)
}

// testHealthEndpoints tests the health check endpoints.
func (h *Harness) testHealthEndpoints(t *testing.T) {
	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(h.URL() + path)
		if err != nil {
			t.Fatalf("failed to GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected status 200 for %s, got %d", path, resp.StatusCode)
		}
	}
}

func (h *Harness) testInfoOnGet(t *testing.T) {
	resp, err := http.Get(h.URL() + "/rpc")
	if err != nil {
		t.Fatalf("failed to GET /rpc: %v", err)
	}
	defer resp.Body.Close()
	var body map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if resp.StatusCode != http.StatusOK || body["message"] != "Use POST for RPC calls" {
		t.Errorf("GET /rpc = %d %v", resp.StatusCode, body)
	}
}

func (h *Harness) testMethodNotAllowed(t *testing.T) {
	req, _ := http.NewRequest(http.MethodDelete, h.URL()+"/rpc", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to DELETE /rpc: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("DELETE /rpc status = %d, want 405", resp.StatusCode)
	}
}

func (h *Harness) testUnknownProcedure(t *testing.T) {
	before := len(h.upstreamRequests())
	status, code, body := h.PostRPC(t, `{"procedure":"nope"}`)
	if status != http.StatusNotFound || code != "SF_NOT_FOUND" {
		t.Errorf("status/code = %d/%s, want 404/SF_NOT_FOUND", status, code)
	}
	if strings.TrimSpace(body) != `{"error":"Procedure not found"}` {
		t.Errorf("body = %s", body)
	}
	if after := len(h.upstreamRequests()); after != before {
		t.Errorf("unknown procedure reached the upstream (%d requests)", after-before)
	}
}

func (h *Harness) testGetByID(t *testing.T) {
	status, _, body := h.PostRPC(t, `{"procedure":"products.getById","input":{"id":1}}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d, body = %s", status, body)
	}
	var p struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal([]byte(body), &p); err != nil || p.ID != 1 {
		t.Errorf("body = %s, want product id 1", body)
	}
}

func (h *Harness) testLoginSchemaViolation(t *testing.T) {
	before := len(h.upstreamRequests())
	status, code, body := h.PostRPC(t, `{"procedure":"auth.login","input":{"username":"","password":"x"}}`)
	if status != http.StatusInternalServerError || code != "SF_VALIDATION" {
		t.Errorf("status/code = %d/%s, want 500/SF_VALIDATION", status, code)
	}
	if !strings.Contains(body, `"error":`) {
		t.Errorf("body = %s, want an error envelope", body)
	}
	if after := len(h.upstreamRequests()); after != before {
		t.Error("invalid input reached the upstream")
	}
}

func (h *Harness) testMalformedBody(t *testing.T) {
	status, _, body := h.PostRPC(t, `{"procedure":`)
	if status != http.StatusInternalServerError || !strings.Contains(body, `"error":`) {
		t.Errorf("malformed body = %d %s, want 500 with error", status, body)
	}
}

func (h *Harness) testUpstreamFailure(t *testing.T) {
	status, code, body := h.PostRPC(t, `{"procedure":"products.getById","input":{"id":99999}}`)
	if status != http.StatusInternalServerError || code != "SF_UPSTREAM" {
		t.Errorf("status/code = %d/%s", status, code)
	}
	if strings.TrimSpace(body) != `{"error":"Failed to fetch product"}` {
		t.Errorf("body = %s, want the fixed message only", body)
	}
}

func (h *Harness) testSearchWinsOverCategory(t *testing.T) {
	if h.upstream == nil {
		t.Skip("needs the fake upstream")
	}
	status, _, body := h.PostRPC(t, `{"procedure":"products.list","input":{"search":"Product 1","category":"beauty"}}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d, body = %s", status, body)
	}
	reqs := h.upstreamRequests()
	last := reqs[len(reqs)-1]
	if !strings.HasPrefix(last, "GET /products/search?") || strings.Contains(last, "category") {
		t.Errorf("upstream request = %q, want search mode only", last)
	}
}

func (h *Harness) testCategories(t *testing.T) {
	status, _, body := h.PostRPC(t, `{"procedure":"categories.list","input":{"ignored":true}}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d, body = %s", status, body)
	}
	var cats []struct {
		Slug, Name, URL string
	}
	if err := json.Unmarshal([]byte(body), &cats); err != nil || len(cats) == 0 {
		t.Fatalf("body = %s", body)
	}
	for _, c := range cats {
		if c.URL != "/products/category/"+c.Slug || c.Name == "" {
			t.Errorf("category = %+v", c)
		}
	}
}

func (h *Harness) testLoginAndMe(t *testing.T) {
	if h.upstream == nil {
		t.Skip("needs the fake upstream")
	}
	status, _, body := h.PostRPC(t, fmt.Sprintf(`{"procedure":"auth.login","input":{"username":%q,"password":%q}}`, TestUsername, TestPassword))
	if status != http.StatusOK || !strings.Contains(body, TestToken) {
		t.Fatalf("login = %d %s", status, body)
	}
	status, _, body = h.PostRPC(t, fmt.Sprintf(`{"procedure":"auth.me","input":{"token":%q}}`, TestToken))
	if status != http.StatusOK || !strings.Contains(body, TestUsername) {
		t.Errorf("me = %d %s", status, body)
	}
	status, _, body = h.PostRPC(t, `{"procedure":"auth.login","input":{"username":"emilys","password":"wrong"}}`)
	if status != http.StatusInternalServerError || strings.TrimSpace(body) != `{"error":"Invalid credentials"}` {
		t.Errorf("bad login = %d %s", status, body)
	}
}

func (h *Harness) upstreamRequests() []string {
	if h.upstream == nil {
		return nil
	}
	return h.upstream.Requests()
}
