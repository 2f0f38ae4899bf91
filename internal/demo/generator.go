// Package demo fills an empty deployment with fake trainers.
package demo

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"

	"topicspin-api/internal/assign"
	"topicspin-api/internal/models"
	"topicspin-api/internal/topics"
)

type Assigner interface {
	Assign(ctx context.Context, sub models.Submission) (assign.Result, error)
}

// Generator submits random trainers through the normal assignment path.
type Generator struct {
	Assigner Assigner
	Rooms    []int
	Count    int
	Every    time.Duration
}

var (
	firstNames = []string{"Ana", "Ben", "Carla", "Dev", "Elif", "Farid", "Grace", "Hugo", "Ines", "Jon"}
	lastNames  = []string{"Silva", "Okafor", "Meyer", "Tan", "Rossi", "Novak", "Haddad", "Berg"}
	channels   = []models.Channel{models.ChannelBanca, models.ChannelRetail}
	categories = []models.Category{models.CategoryRookie, models.CategoryVintage}
)

// Run stops after Count new assignments, after 20 consecutive failed
// submissions, or when ctx ends.
func (g *Generator) Run(ctx context.Context) {
	if len(g.Rooms) == 0 || g.Count <= 0 {
		return
	}
	every := g.Every
	if every <= 0 {
		every = 500 * time.Millisecond
	}
	t := time.NewTicker(every)
	defer t.Stop()

	created, misses := 0, 0
	for created < g.Count && misses < 20 {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		res, err := g.Assigner.Assign(ctx, randomSubmission(g.Rooms))
		switch {
		case errors.Is(err, topics.ErrExhaustedPool):
			misses++
		case err != nil:
			misses++
			log.Warn().Err(err).Msg("demo assign")
		case !res.Existing:
			created++
			misses = 0
		}
	}
	log.Info().Int("created", created).Msg("demo generator done")
}

func randomSubmission(rooms []int) models.Submission {
	return models.Submission{
		EmployeeID: fmt.Sprintf("%09d", rand.IntN(1_000_000_000)),
		Name:       firstNames[rand.IntN(len(firstNames))] + " " + lastNames[rand.IntN(len(lastNames))],
		Channel:    channels[rand.IntN(len(channels))],
		Category:   categories[rand.IntN(len(categories))],
		Room:       rooms[rand.IntN(len(rooms))],
	}
}
