package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"topicspin-api/internal/models"
)

var (
	callDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "store_call_duration_seconds",
		Help:    "store call latency by operation and result",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "op", "result"})

	tracer = otel.Tracer("topicspin-api/store")
)

func init() { prometheus.MustRegister(callDuration) }

// Instrumented bounds every call with a timeout, records metrics and spans,
// and normalizes errors: transport failures become ErrUnavailable and
// capabilities the backend lacks become ErrUnsupported.
type Instrumented struct {
	inner   Store
	backend string
	timeout time.Duration
}

var _ Full = (*Instrumented)(nil)

func Instrument(inner Store, backend string, timeout time.Duration) *Instrumented {
	return &Instrumented{inner: inner, backend: backend, timeout: timeout}
}

func (s *Instrumented) Backend() string { return s.backend }

func (s *Instrumented) FetchAll(ctx context.Context) ([]models.Assignment, error) {
	var out []models.Assignment
	err := s.call(ctx, "fetch_all", func(ctx context.Context) error {
		var err error
		out, err = s.inner.FetchAll(ctx)
		return err
	})
	return out, err
}

func (s *Instrumented) Append(ctx context.Context, a models.Assignment) (string, error) {
	var id string
	err := s.call(ctx, "append", func(ctx context.Context) error {
		var err error
		id, err = s.inner.Append(ctx, a)
		return err
	})
	return id, err
}

func (s *Instrumented) QueryEqual(ctx context.Context, field, value string) ([]models.Assignment, error) {
	q, ok := s.inner.(Querier)
	var out []models.Assignment
	err := s.call(ctx, "query_equal", func(ctx context.Context) error {
		if !ok {
			return ErrUnsupported
		}
		var err error
		out, err = q.QueryEqual(ctx, field, value)
		return err
	})
	return out, err
}

func (s *Instrumented) Delete(ctx context.Context, id string) error {
	d, ok := s.inner.(Deleter)
	return s.call(ctx, "delete", func(ctx context.Context) error {
		if !ok {
			return ErrUnsupported
		}
		return d.Delete(ctx, id)
	})
}

func (s *Instrumented) Clear(ctx context.Context) error {
	d, ok := s.inner.(Deleter)
	return s.call(ctx, "clear", func(ctx context.Context) error {
		if !ok {
			return ErrUnsupported
		}
		return d.Clear(ctx)
	})
}

func (s *Instrumented) call(ctx context.Context, op string, fn func(context.Context) error) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	ctx, span := tracer.Start(ctx, "store."+op, trace.WithAttributes(
		attribute.String("store.backend", s.backend),
	))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	callDuration.WithLabelValues(s.backend, op, result(err)).Observe(time.Since(start).Seconds())

	if err == nil {
		return nil
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, op)
	if errors.Is(err, ErrUnsupported) || errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnsupported):
		return "unsupported"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
