package pgstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topicspin-api/internal/store"
)

func TestColumn(t *testing.T) {
	col, arg, err := column(store.FieldEmployeeID, " 123456789 ")
	require.NoError(t, err)
	assert.Equal(t, "employee_id", col)
	assert.Equal(t, "123456789", arg)

	col, arg, err = column(store.FieldRoom, "2")
	require.NoError(t, err)
	assert.Equal(t, "room", col)
	assert.Equal(t, 2, arg)

	_, _, err = column(store.FieldRoom, "Room 2")
	assert.Error(t, err)

	_, _, err = column(store.FieldAssignedAt, "2024-05-01")
	assert.ErrorIs(t, err, store.ErrUnsupported)

	_, _, err = column("employee_id; DROP TABLE assignments", "x")
	assert.ErrorIs(t, err, store.ErrUnsupported)
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
