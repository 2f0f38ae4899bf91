package admin

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"topicspin-api/internal/cache"
	"topicspin-api/internal/models"
	"topicspin-api/internal/store"
)

type Cache interface {
	Refresh(ctx context.Context) cache.Snapshot
	Invalidate()
	RefreshAsync(delay time.Duration)
}

type Publisher interface {
	Publish(ctx context.Context, ev models.AssignmentEvent) error
}

type Service struct {
	cache  Cache
	store  store.Deleter
	pub    Publisher
	origin string
	rooms  []int
}

func NewService(c Cache, st store.Deleter, pub Publisher, origin string, rooms []int) *Service {
	return &Service{cache: c, store: st, pub: pub, origin: origin, rooms: rooms}
}

// Listing is a filtered view. Stale is set when the latest refresh failed
// and the rows are the last data successfully read.
type Listing struct {
	Assignments []models.Assignment `json:"assignments"`
	Total       int                 `json:"total"`
	Stale       bool                `json:"stale"`
	At          time.Time           `json:"at"`
}

func (s *Service) List(ctx context.Context, f Filter) Listing {
	snap := s.cache.Refresh(ctx)
	rows := f.Apply(snap.Assignments)
	return Listing{Assignments: rows, Total: len(snap.Assignments), Stale: snap.Err != nil, At: snap.At}
}

// Stats covers every assignment, ignoring filters.
func (s *Service) Stats(ctx context.Context) Stats {
	return ComputeStats(s.cache.Refresh(ctx).Assignments, s.rooms)
}

// Delete removes one assignment. Backends without delete support return
// store.ErrUnsupported and the record must be removed by hand.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	log.Info().Str("id", id).Msg("assignment deleted")
	s.changed(models.EventAssignmentDeleted, &models.Assignment{ID: id})
	return nil
}

func (s *Service) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	log.Warn().Msg("all assignments cleared")
	s.changed(models.EventAssignmentsCleared, nil)
	return nil
}

func (s *Service) changed(typ string, a *models.Assignment) {
	s.cache.Invalidate()
	s.cache.RefreshAsync(0)
	if s.pub == nil {
		return
	}
	ev := models.AssignmentEvent{ID: uuid.NewString(), Type: typ, Origin: s.origin, Assignment: a, TS: time.Now().UTC()}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.pub.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).Str("type", typ).Msg("publish event")
	}
}
