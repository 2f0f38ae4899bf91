// Package resolve decides whether an employee already holds an assignment.
package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"topicspin-api/internal/cache"
	"topicspin-api/internal/models"
	"topicspin-api/internal/store"
)

var lookups = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "resolver_lookups_total",
	Help: "duplicate lookups by the step that decided them",
}, []string{"step"})

func init() { prometheus.MustRegister(lookups) }

// Snapshotter exposes the cache contents without I/O.
type Snapshotter interface {
	Current() cache.Snapshot
}

type Resolver struct {
	cache Snapshotter
	store store.Store
	query store.Querier
}

// New builds a resolver. The server-side query step is used only when st
// implements store.Querier.
func New(c Snapshotter, st store.Store) *Resolver {
	q, _ := st.(store.Querier)
	return &Resolver{cache: c, store: st, query: q}
}

// FindExisting returns the assignment held by employeeID, or nil when none
// exists. It tries, in order and stopping at the first match: the cache
// contents, a server-side equality query, and a full scan of the store. Each
// step is a best-effort linear lookup; a miss shortly after a write is
// possible. The error is non-nil only when the final scan could not run, in
// which case absence is unproven.
func (r *Resolver) FindExisting(ctx context.Context, employeeID string) (*models.Assignment, error) {
	id := models.NormalizeEmployeeID(employeeID)

	if a := match(r.cache.Current().Assignments, id); a != nil {
		lookups.WithLabelValues("cache").Inc()
		return a, nil
	}

	if r.query != nil {
		rows, err := r.query.QueryEqual(ctx, store.FieldEmployeeID, id)
		switch {
		case err == nil:
			if a := match(rows, id); a != nil {
				lookups.WithLabelValues("query").Inc()
				return a, nil
			}
		case errors.Is(err, store.ErrUnsupported):
		default:
			log.Warn().Err(err).Str("employee_id", id).Msg("duplicate query failed; scanning")
		}
	}

	rows, err := r.store.FetchAll(ctx)
	if err != nil {
		lookups.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("scan for employee %s: %w", id, err)
	}
	if a := match(rows, id); a != nil {
		lookups.WithLabelValues("scan").Inc()
		return a, nil
	}
	lookups.WithLabelValues("absent").Inc()
	return nil, nil
}

func match(list []models.Assignment, id string) *models.Assignment {
	for i := range list {
		if list[i].SameEmployee(id) {
			a := list[i]
			return &a
		}
	}
	return nil
}
