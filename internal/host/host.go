package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"credrec/internal/host/metrics"
	"credrec/pkg/domain"
	dErrors "credrec/pkg/domain-errors"
	"credrec/pkg/platform/sentinel"
)

// Backend executes fn against the storage of one instance as a single
// atomic unit. If fn returns an error nothing it wrote is kept. If fn
// returns nil every write commits together, or the whole run fails.
// Backends never retry.
type Backend interface {
	Run(ctx context.Context, instance domain.InstanceID, fn func(ctx context.Context, s Storage) error) error
}

// Operation is one contract entry point bound to its arguments.
type Operation func(ctx context.Context, env Env) error

// Host is the execution environment contract operations run in. It owns
// invocation atomicity and caller identity; operations own nothing but
// their storage keys.
type Host struct {
	backend Backend
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Host)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		h.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Host) {
		h.metrics = m
	}
}

// WithTracer injects a tracer. The global provider is used otherwise.
func WithTracer(t trace.Tracer) Option {
	return func(h *Host) {
		h.tracer = t
	}
}

// New constructs a Host over backend.
func New(backend Backend, opts ...Option) (*Host, error) {
	if backend == nil {
		return nil, errors.New("storage backend is required")
	}
	h := &Host{backend: backend}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.tracer == nil {
		h.tracer = otel.Tracer("credrec/host")
	}
	return h, nil
}

// Invoke runs op as one invocation against instance on behalf of caller.
// Domain errors returned by op pass through unchanged; anything else is
// reported as a host failure. Either way the instance's storage is left
// exactly as it was before the call.
func (h *Host) Invoke(ctx context.Context, instance domain.InstanceID, caller domain.Caller, name string, op Operation) error {
	start := time.Now()
	ctx, span := h.tracer.Start(ctx, "host.invoke", trace.WithAttributes(
		attribute.String("credrec.op", name),
		attribute.String("credrec.instance", instance.String()),
	))
	defer span.End()

	err := h.backend.Run(ctx, instance, func(ctx context.Context, s Storage) error {
		return op(ctx, &env{instance: instance, caller: caller, storage: s})
	})
	outcome := classify(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		err = translate(err, name)
	}
	span.SetAttributes(attribute.String("credrec.outcome", outcome))
	if h.metrics != nil {
		h.metrics.ObserveInvocation(name, outcome, start)
	}

	level := slog.LevelDebug
	if outcome == metrics.OutcomeFailed || outcome == metrics.OutcomeUnavailable {
		level = slog.LevelError
	}
	attrs := []any{
		"op", name,
		"instance_id", instance.String(),
		"caller", caller.String(),
		"outcome", outcome,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	h.logger.Log(ctx, level, "invocation finished", attrs...)
	return err
}

func classify(err error) string {
	var domainErr *dErrors.Error
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, sentinel.ErrConflict):
		return metrics.OutcomeConflict
	case errors.Is(err, sentinel.ErrUnavailable):
		return metrics.OutcomeUnavailable
	case errors.As(err, &domainErr) && domainErr.Code != dErrors.CodeHostFailure && domainErr.Code != dErrors.CodeInternal:
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeFailed
	}
}

func translate(err error, name string) error {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.Wrap(err, dErrors.CodeConflict, fmt.Sprintf("%s: concurrent invocation committed first", name))
	}
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeHostFailure, fmt.Sprintf("%s: instance storage unavailable", name))
	}
	return dErrors.Wrap(err, dErrors.CodeHostFailure, fmt.Sprintf("%s: invocation failed", name))
}
