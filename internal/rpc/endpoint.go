package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	errordefs "github.com/RegistryAccord/registryaccord-storefront-go/internal/errors"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/metrics"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/model"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/schema"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// MsgProcedureNotFound is returned for names absent from the registry.
const MsgProcedureNotFound = "Procedure not found"

// Endpoint turns an RPC envelope into a handler invocation:
// Received → Lookup → (NotFound | Validate) → (ValidationError | Invoke) → (HandlerError | Success).
// Every outcome is terminal; nothing is retried.
type Endpoint struct {
	registry  *Registry
	validator *schema.Validator
	metrics   *metrics.Metrics
}

// NewEndpoint creates an endpoint over registry.
// Every descriptor that declares a schema must have one in validator.
func NewEndpoint(registry *Registry, validator *schema.Validator, m *metrics.Metrics) (*Endpoint, error) {
	for _, name := range registry.Names() {
		d, _ := registry.Lookup(string(name))
		if d.HasSchema && !validator.Has(string(name)) {
			return nil, fmt.Errorf("procedure %q declares a schema but none is loaded", name)
		}
	}
	return &Endpoint{registry: registry, validator: validator, metrics: m}, nil
}

// Dispatch runs one envelope and returns either the handler's result or a
// classified error, never both.
func (e *Endpoint) Dispatch(ctx context.Context, req model.RPCRequest) (result any, rpcErr *errordefs.Error) {
	ctx, span := otel.Tracer(telemetry.ServiceName).Start(ctx, "rpc.Dispatch")
	defer span.End()
	span.SetAttributes(attribute.String("rpc.procedure", req.Procedure))

	start := time.Now()
	label := req.Procedure
	defer func() {
		status := "ok"
		if rpcErr != nil {
			status = string(rpcErr.Code)
			span.SetStatus(codes.Error, rpcErr.Message)
		}
		if e.metrics != nil {
			e.metrics.RPCRequestTotal.WithLabelValues(label, status).Inc()
			e.metrics.RPCRequestDuration.WithLabelValues(label, status).Observe(time.Since(start).Seconds())
		}
	}()

	// Lookup
	desc, ok := e.registry.Lookup(req.Procedure)
	if !ok {
		label = "unknown" // keep label cardinality bounded
		return nil, errordefs.New(errordefs.SF_NOT_FOUND, MsgProcedureNotFound)
	}

	// Validate, only when a schema exists and the caller sent an input.
	// An explicit null is an input and fails the schema.
	input := req.Input
	if desc.HasSchema && len(bytes.TrimSpace(input)) > 0 {
		validated, err := e.validator.Validate(req.Procedure, input)
		e.countValidation(req.Procedure, err)
		if err != nil {
			slog.DebugContext(ctx, "procedure input rejected", "procedure", req.Procedure, "error", err)
			return nil, errordefs.Wrap(errordefs.SF_VALIDATION, err.Error(), err)
		}
		input = validated
	}
	if !desc.HasSchema {
		input = nil
	}

	// Invoke
	out, err := desc.Handler(ctx, input)
	if err != nil {
		span.RecordError(err)
		return nil, errordefs.From(err)
	}
	return out, nil
}

// Call dispatches a typed procedure in-process, bypassing HTTP.
// It is used by tests and by server-side callers that already hold Go values.
func (e *Endpoint) Call(ctx context.Context, proc Procedure, input any) (any, *errordefs.Error) {
	var raw json.RawMessage
	if input != nil {
		b, err := json.Marshal(input)
		if err != nil {
			return nil, errordefs.Wrap(errordefs.SF_INTERNAL, err.Error(), err)
		}
		raw = b
	}
	return e.Dispatch(ctx, model.RPCRequest{Procedure: string(proc), Input: raw})
}

func (e *Endpoint) countValidation(procedure string, err error) {
	if e.metrics == nil {
		return
	}
	status := "valid"
	if err != nil {
		status = "invalid"
	}
	e.metrics.SchemaValidationTotal.WithLabelValues(procedure, status).Inc()
}
