// internal/server/mux.go
// Package server implements the HTTP surface of the storefront service.
// It exposes the single generic RPC endpoint plus health and metrics routes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	errordefs "github.com/RegistryAccord/registryaccord-storefront-go/internal/errors"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/model"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/rpc"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/storage"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/telemetry"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// ContextKey is used for context values to avoid collisions
// when storing values in request context
type ContextKey string

const (
	// ContextKeyCorrelationID stores the unique ID used for request tracking
	ContextKeyCorrelationID ContextKey = "correlationId"

	// MsgUsePost is the body of GET /rpc
	MsgUsePost = "Use POST for RPC calls"

	// HeaderErrorCode carries the error taxonomy code next to the {"error"} body
	HeaderErrorCode = "X-Error-Code"
)

// Options configures the HTTP surface.
type Options struct {
	CORSAllowedOrigins []string // Allowed origins for CORS (empty means deny all)
	RateLimitRPS       int      // Requests per second per client on /rpc (0 disables)
	RateLimitBurst     int
}

// Mux handles HTTP requests for the storefront service.
type Mux struct {
	mux      *http.ServeMux
	s        storage.Store // Probed by /readyz
	endpoint *rpc.Endpoint
	limiter  *rateLimiter

	corsAllowedOrigins []string
}

// NewMux creates a new HTTP mux with the storefront routes.
// Parameters:
//   - s: Local storage backend, used for readiness checks
//   - endpoint: RPC dispatcher behind /rpc
//   - opts: CORS and rate limiting settings
func NewMux(s storage.Store, endpoint *rpc.Endpoint, opts Options) *http.ServeMux {
	m := &Mux{
		mux:                http.NewServeMux(),
		s:                  s,
		endpoint:           endpoint,
		limiter:            newRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		corsAllowedOrigins: opts.CORSAllowedOrigins,
	}

	// Register health endpoints
	m.mux.HandleFunc("/healthz", m.handleHealthz)
	m.mux.HandleFunc("/readyz", m.handleReadyz)
	m.mux.Handle("/metrics", promhttp.Handler())

	m.mux.HandleFunc("/rpc", m.withMiddleware(m.routeRPC))

	return m.mux
}

// routeRPC selects the handler for the request method.
func (m *Mux) routeRPC(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		m.rateLimited(m.handleRPC)(w, r)
	case http.MethodGet:
		m.writeSuccess(w, http.StatusOK, model.RPCInfo{Message: MsgUsePost})
	default:
		w.Header().Set("Allow", "GET, POST, OPTIONS")
		m.writeErrorDef(w, errordefs.New(errordefs.SF_BAD_METHOD, "Method not allowed"))
	}
}

// withMiddleware applies CORS, correlation ids and request logging.
func (m *Mux) withMiddleware(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		allowed := m.originAllowed(r.Header.Get("Origin"))
		if allowed {
			w.Header().Set("Access-Control-Allow-Origin", r.Header.Get("Origin"))
		}

		// Handle CORS preflight requests
		if r.Method == http.MethodOptions {
			if allowed {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Correlation-Id")
				w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours
			}
			w.WriteHeader(http.StatusOK)
			return
		}

		// Add correlation ID if not present
		correlationID := r.Header.Get("X-Correlation-Id")
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		r = r.WithContext(context.WithValue(r.Context(), ContextKeyCorrelationID, correlationID))
		w.Header().Set("X-Correlation-Id", correlationID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		m.logRequest(r, rec.status, time.Since(start), correlationID, rec.procedure, rec.err)
	}
}

func (m *Mux) originAllowed(origin string) bool {
	if origin == "" {
		return false
	}
	for _, allowedOrigin := range m.corsAllowedOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			return true
		}
	}
	return false
}

// handleRPC handles POST /rpc.
// A body that cannot be decoded is reported like any other failure: 500 with the decode message.
func (m *Mux) handleRPC(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(telemetry.ServiceName).Start(r.Context(), "handleRPC")
	defer span.End()
	defer r.Body.Close()

	var req model.RPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		e := errordefs.Wrap(errordefs.SF_INTERNAL, err.Error(), err)
		noteError(w, "", e)
		m.writeErrorDef(w, e)
		return
	}
	span.SetAttributes(attribute.String("rpc.procedure", req.Procedure))

	result, rpcErr := m.endpoint.Dispatch(ctx, req)
	if rpcErr != nil {
		noteError(w, req.Procedure, rpcErr)
		m.writeErrorDef(w, rpcErr)
		return
	}
	noteError(w, req.Procedure, nil)
	m.writeSuccess(w, http.StatusOK, result)
}

// writeSuccess writes the handler result as the whole body
func (m *Mux) writeSuccess(w http.ResponseWriter, statusCode int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		m.writeErrorDef(w, errordefs.Wrap(errordefs.SF_INTERNAL, err.Error(), err))
		return
	}
	writeBody(w, statusCode, body)
}

// writeErrorDef writes {"error": message}; the taxonomy code goes in a header
func (m *Mux) writeErrorDef(w http.ResponseWriter, err *errordefs.Error) {
	body, _ := json.Marshal(model.RPCError{Error: err.Message})
	w.Header().Set(HeaderErrorCode, string(err.Code))
	writeBody(w, err.HTTPStatus, body)
}

// writeBody sends body exactly as marshalled, with no trailing newline.
func writeBody(w http.ResponseWriter, statusCode int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(body)
}

// logRequest logs request details
func (m *Mux) logRequest(r *http.Request, status int, duration time.Duration, correlationID, procedure string, err error) {
	attrs := []slog.Attr{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.Duration("duration", duration),
		slog.String("user_agent", r.UserAgent()),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("correlation_id", correlationID),
	}
	if procedure != "" {
		attrs = append(attrs, slog.String("procedure", procedure))
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		level := slog.LevelError
		if status < http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		slog.LogAttrs(r.Context(), level, "request completed with error", attrs...)
	} else {
		slog.LogAttrs(r.Context(), slog.LevelInfo, "request completed", attrs...)
	}
}

// handleHealthz handles liveness health check requests
func (m *Mux) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReadyz handles readiness health check requests.
// Reading a missing key must yield ErrNotFound; anything else means storage is down.
func (m *Mux) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	_, err := m.s.GetItem(ctx, "health-check")
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// statusRecorder captures what the handler wrote, for logging.
type statusRecorder struct {
	http.ResponseWriter
	status    int
	procedure string
	err       error
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// noteError attaches the dispatch outcome to the recorder, when there is one.
func noteError(w http.ResponseWriter, procedure string, err *errordefs.Error) {
	rec, ok := w.(*statusRecorder)
	if !ok {
		return
	}
	rec.procedure = procedure
	if err != nil {
		rec.err = err
	}
}
