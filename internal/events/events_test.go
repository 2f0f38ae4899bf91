package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topicspin-api/internal/models"
)

type fakeRefresher struct {
	mu          sync.Mutex
	invalidated int
	refreshed   int
}

func (f *fakeRefresher) Invalidate() {
	f.mu.Lock()
	f.invalidated++
	f.mu.Unlock()
}

func (f *fakeRefresher) RefreshAsync(time.Duration) {
	f.mu.Lock()
	f.refreshed++
	f.mu.Unlock()
}

func TestDecode(t *testing.T) {
	ev, err := Decode([]byte(`{"id":"e1","type":"assignment.created","origin":"n1","assignment":{"id":"a1","employeeId":"123456789","room":2}}`))
	require.NoError(t, err)
	assert.Equal(t, models.EventAssignmentCreated, ev.Type)
	assert.Equal(t, 2, ev.Assignment.Room)
	assert.False(t, ev.TS.IsZero())

	_, err = Decode([]byte(`{"id":"e1"}`))
	assert.Error(t, err)
	_, err = Decode([]byte(`nope`))
	assert.Error(t, err)
}

func TestEncodeDecode(t *testing.T) {
	in := models.AssignmentEvent{ID: "e1", Type: models.EventAssignmentsCleared, Origin: "n1", TS: time.Unix(100, 0).UTC()}
	b, err := Encode(in)
	require.NoError(t, err)
	out, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestHandlerSkipsOwnEvents(t *testing.T) {
	r := &fakeRefresher{}
	var local []models.AssignmentEvent
	h := NewHandler("me", r, func(ev models.AssignmentEvent) { local = append(local, ev) })

	assert.False(t, h.Handle(models.AssignmentEvent{Type: models.EventAssignmentCreated, Origin: "me"}))
	assert.Equal(t, 0, r.invalidated)

	assert.True(t, h.Handle(models.AssignmentEvent{Type: models.EventAssignmentCreated, Origin: "other"}))
	assert.Equal(t, 1, r.invalidated)
	assert.Equal(t, 1, r.refreshed)
	assert.Len(t, local, 1)
}

type failing struct{ err error }

func (f failing) Publish(context.Context, models.AssignmentEvent) error { return f.err }

func TestMulti(t *testing.T) {
	var got []string
	ok := Local(func(ev models.AssignmentEvent) { got = append(got, ev.ID) })
	boom := errors.New("broker down")

	err := Multi{ok, failing{boom}, Nop{}, ok}.Publish(context.Background(), models.AssignmentEvent{ID: "e1"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"e1", "e1"}, got)

	assert.NoError(t, Multi{}.Publish(context.Background(), models.AssignmentEvent{}))
}
