package topics

import (
	"context"
	"errors"
	"math/rand/v2"

	"topicspin-api/internal/models"
)

// ErrExhaustedPool means no topic remains for the requested channel,
// category and room. Choosing another room may succeed.
var ErrExhaustedPool = errors.New("topic pool exhausted")

// Source supplies the assignment set availability is computed against.
type Source interface {
	Assignments(ctx context.Context) []models.Assignment
}

type Allocator struct {
	pools Pools
	src   Source
	intn  func(n int) int
}

type Option func(*Allocator)

// WithIntn replaces the random index source, for deterministic tests.
func WithIntn(fn func(n int) int) Option {
	return func(a *Allocator) { a.intn = fn }
}

func NewAllocator(pools Pools, src Source, opts ...Option) *Allocator {
	a := &Allocator{pools: pools, src: src, intn: rand.IntN}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *Allocator) Pools() Pools { return a.pools }

// AvailableTopics returns the pool for channel and category minus every topic
// already used in room, in pool order. Uniqueness is scoped to the room alone:
// a topic taken by any channel or category in that room is excluded.
func (a *Allocator) AvailableTopics(ctx context.Context, channel, category string, room int) []string {
	return Available(a.pools, a.src.Assignments(ctx), channel, category, room)
}

// Available is the pure form of AvailableTopics.
func Available(pools Pools, assignments []models.Assignment, channel, category string, room int) []string {
	pool := pools.Lookup(channel, category)
	if len(pool) == 0 {
		return []string{}
	}
	used := make(map[string]struct{})
	for _, as := range assignments {
		if as.Room == room {
			used[as.Topic] = struct{}{}
		}
	}
	out := make([]string, 0, len(pool))
	for _, t := range pool {
		if _, ok := used[t]; !ok {
			out = append(out, t)
		}
	}
	return out
}

// Draw picks one candidate uniformly at random.
func (a *Allocator) Draw(candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", ErrExhaustedPool
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}
	return candidates[a.intn(len(candidates))], nil
}
