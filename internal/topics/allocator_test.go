package topics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topicspin-api/internal/models"
)

type staticSource []models.Assignment

func (s staticSource) Assignments(context.Context) []models.Assignment { return s }

func used(topic string, room int, ch models.Channel, cat models.Category) models.Assignment {
	return models.Assignment{ID: topic, Topic: topic, Room: room, Channel: ch, Category: cat}
}

func TestAvailableEmptyStore(t *testing.T) {
	got := Available(Default(), nil, "Banca", "Rookie", 1)
	assert.Equal(t, Default()["banca_rookie"], got)
}

func TestAvailableExcludesRoomTopics(t *testing.T) {
	list := []models.Assignment{
		used("Sales Techniques", 1, models.ChannelBanca, models.CategoryRookie),
		used("Product Knowledge", 2, models.ChannelBanca, models.CategoryRookie),
	}
	got := Available(Default(), list, "Banca", "Rookie", 1)
	assert.Len(t, got, 9)
	assert.NotContains(t, got, "Sales Techniques")
	assert.Contains(t, got, "Product Knowledge")
}

func TestAvailableScopedToRoomOnly(t *testing.T) {
	p := Pools{
		"banca_rookie":  {"Shared", "A"},
		"retail_rookie": {"Shared", "B"},
	}
	list := []models.Assignment{used("Shared", 1, models.ChannelRetail, models.CategoryRookie)}
	assert.Equal(t, []string{"A"}, Available(p, list, "Banca", "Rookie", 1))
	assert.Equal(t, []string{"Shared", "A"}, Available(p, list, "Banca", "Rookie", 2))
}

func TestAvailableUnknownPool(t *testing.T) {
	got := Available(Default(), nil, "Insurance", "Rookie", 1)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAvailableIgnoresUnknownTopics(t *testing.T) {
	list := []models.Assignment{used("Retired Topic", 1, models.ChannelBanca, models.CategoryRookie)}
	assert.Len(t, Available(Default(), list, "Banca", "Rookie", 1), 10)
}

func TestAllocatorUsesSource(t *testing.T) {
	src := staticSource{used("Sales Techniques", 3, models.ChannelBanca, models.CategoryRookie)}
	a := NewAllocator(Default(), src)
	assert.NotContains(t, a.AvailableTopics(context.Background(), "Banca", "Rookie", 3), "Sales Techniques")
}

func TestDraw(t *testing.T) {
	a := NewAllocator(Default(), staticSource(nil), WithIntn(func(n int) int { return n - 1 }))

	_, err := a.Draw(nil)
	assert.ErrorIs(t, err, ErrExhaustedPool)

	got, err := a.Draw([]string{"only"})
	require.NoError(t, err)
	assert.Equal(t, "only", got)

	got, err = a.Draw([]string{"x", "y", "z"})
	require.NoError(t, err)
	assert.Equal(t, "z", got)
}

func TestDrawCoversCandidates(t *testing.T) {
	a := NewAllocator(Default(), staticSource(nil))
	cands := []string{"x", "y", "z"}
	seen := map[string]bool{}
	for range 500 {
		got, err := a.Draw(cands)
		require.NoError(t, err)
		require.Contains(t, cands, got)
		seen[got] = true
	}
	assert.Len(t, seen, 3)
}
