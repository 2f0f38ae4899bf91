// Package assign turns a validated submission into exactly one assignment per
// employee: duplicate check, topic draw, store append, cache refresh.
package assign

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"topicspin-api/internal/models"
	"topicspin-api/internal/store"
	"topicspin-api/internal/topics"
)

// ErrAssignmentFailed means the append failed and the follow-up lookup found
// no record. Resubmitting is safe.
var ErrAssignmentFailed = errors.New("assignment failed")

var tracer = otel.Tracer("topicspin-api/assign")

type Resolver interface {
	FindExisting(ctx context.Context, employeeID string) (*models.Assignment, error)
}

type Allocator interface {
	AvailableTopics(ctx context.Context, channel, category string, room int) []string
	Draw(candidates []string) (string, error)
}

type Refresher interface {
	Invalidate()
	RefreshAsync(delay time.Duration)
}

type Publisher interface {
	Publish(ctx context.Context, ev models.AssignmentEvent) error
}

type Result struct {
	Assignment models.Assignment `json:"assignment"`
	// Existing is true when the employee already held this assignment.
	Existing bool `json:"existing"`
}

type Service struct {
	resolver     Resolver
	alloc        Allocator
	store        store.Store
	cache        Refresher
	pub          Publisher
	origin       string
	refreshDelay time.Duration
	now          func() time.Time
	locks        keyedMutex
}

type Option func(*Service)

func WithPublisher(p Publisher, origin string) Option {
	return func(s *Service) { s.pub, s.origin = p, origin }
}

// WithRefreshDelay sets how long to wait after an append before refreshing,
// giving eventually-consistent stores time to expose the write.
func WithRefreshDelay(d time.Duration) Option {
	return func(s *Service) { s.refreshDelay = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(r Resolver, a Allocator, st store.Store, c Refresher, opts ...Option) *Service {
	s := &Service{
		resolver: r,
		alloc:    a,
		store:    st,
		cache:    c,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Assign returns the employee's assignment, creating it if none exists.
//
// Within this process, calls for the same employee or the same room are
// serialized. Across processes nothing is: two submissions for one room can
// both see a topic as free before either append is visible, producing a
// duplicate topic. Only a store with append-if-absent semantics closes that
// window.
func (s *Service) Assign(ctx context.Context, sub models.Submission) (res Result, err error) {
	empID := models.NormalizeEmployeeID(sub.EmployeeID)
	name := models.NormalizeName(sub.Name)

	ctx, span := tracer.Start(ctx, "assign")
	span.SetAttributes(attribute.Int("room", sub.Room), attribute.String("channel", string(sub.Channel)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "assign")
		}
		span.End()
		outcomes.WithLabelValues(outcome(res, err)).Inc()
	}()

	unlockEmp := s.locks.Lock("employee:" + empID)
	defer unlockEmp()
	unlockRoom := s.locks.Lock("room:" + strconv.Itoa(sub.Room))
	defer unlockRoom()

	existing, err := s.resolver.FindExisting(ctx, empID)
	if err != nil {
		log.Warn().Err(err).Str("employee_id", empID).Msg("duplicate check inconclusive; continuing")
	}
	if existing != nil {
		log.Info().Str("employee_id", empID).Str("topic", existing.Topic).Int("room", existing.Room).Msg("already assigned")
		return Result{Assignment: *existing, Existing: true}, nil
	}

	candidates := s.alloc.AvailableTopics(ctx, string(sub.Channel), string(sub.Category), sub.Room)
	topic, err := s.alloc.Draw(candidates)
	if err != nil {
		return Result{}, fmt.Errorf("%s %s in room %d: %w", sub.Channel, sub.Category, sub.Room, err)
	}

	a := models.Assignment{
		ID:         uuid.NewString(),
		EmployeeID: empID,
		Name:       name,
		Channel:    sub.Channel,
		Category:   sub.Category,
		Topic:      topic,
		Room:       sub.Room,
		AssignedAt: s.now().UTC(),
	}

	id, appendErr := s.store.Append(ctx, a)
	if appendErr != nil {
		s.cache.Invalidate()
		return s.recover(ctx, a, appendErr)
	}
	if id != "" {
		a.ID = id
	}

	s.cache.Invalidate()
	s.cache.RefreshAsync(s.refreshDelay)
	s.publish(models.EventAssignmentCreated, &a)

	log.Info().
		Str("id", a.ID).
		Str("employee_id", a.EmployeeID).
		Str("topic", a.Topic).
		Int("room", a.Room).
		Int("remaining", len(candidates)-1).
		Msg("assigned")
	return Result{Assignment: a}, nil
}

// recover runs the single recheck after a failed append. The append may have
// landed despite the error; blind retries could write a second record.
func (s *Service) recover(ctx context.Context, attempted models.Assignment, appendErr error) (Result, error) {
	log.Warn().Err(appendErr).Str("employee_id", attempted.EmployeeID).Msg("append failed; rechecking")

	found, err := s.resolver.FindExisting(ctx, attempted.EmployeeID)
	if err == nil && found != nil {
		s.cache.RefreshAsync(0)
		fresh := found.ID == attempted.ID
		if fresh {
			s.publish(models.EventAssignmentCreated, found)
		}
		log.Info().Str("employee_id", found.EmployeeID).Bool("landed", fresh).Msg("recheck found assignment")
		return Result{Assignment: *found, Existing: !fresh}, nil
	}
	if err != nil {
		log.Warn().Err(err).Str("employee_id", attempted.EmployeeID).Msg("recheck failed")
	}
	return Result{}, fmt.Errorf("%w: %w", ErrAssignmentFailed, appendErr)
}

func (s *Service) publish(typ string, a *models.Assignment) {
	if s.pub == nil {
		return
	}
	ev := models.AssignmentEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		Origin:     s.origin,
		Assignment: a,
		TS:         s.now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.pub.Publish(ctx, ev); err != nil {
			log.Warn().Err(err).Str("type", typ).Msg("publish event")
		}
	}()
}

func outcome(res Result, err error) string {
	switch {
	case err == nil && res.Existing:
		return "existing"
	case err == nil:
		return "created"
	case errors.Is(err, topics.ErrExhaustedPool):
		return "exhausted"
	case errors.Is(err, ErrAssignmentFailed):
		return "failed"
	default:
		return "error"
	}
}
