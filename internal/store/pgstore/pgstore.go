// Package pgstore keeps assignments in PostgreSQL. Unique indexes on the
// normalized employee id and on (room, topic) make Append an atomic
// append-if-absent, so this backend does not have the duplicate-topic race.
package pgstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"topicspin-api/internal/models"
	"topicspin-api/internal/store"
)

type Store struct {
	pool *pgxpool.Pool
}

var (
	_ store.Store   = (*Store)(nil)
	_ store.Querier = (*Store)(nil)
	_ store.Deleter = (*Store)(nil)
)

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// NewPool parses the URL and pings before returning.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL cannot be empty")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config from URL: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

const selectColumns = `SELECT id, employee_id, name, channel, category, topic, room, assigned_at FROM assignments`

func (s *Store) FetchAll(ctx context.Context) ([]models.Assignment, error) {
	rows, err := s.pool.Query(ctx, selectColumns+` ORDER BY assigned_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return collect(rows)
}

func (s *Store) Append(ctx context.Context, a models.Assignment) (string, error) {
	rec := store.EncodeRecord(a)
	at := a.AssignedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO assignments (id, employee_id, name, channel, category, topic, room, assigned_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT DO NOTHING`,
		rec[store.FieldID],
		models.NormalizeEmployeeID(a.EmployeeID),
		a.Name,
		string(a.Channel),
		string(a.Category),
		a.Topic,
		a.Room,
		at,
	)
	if err != nil {
		return "", fmt.Errorf("failed to save assignment %s: %w", rec[store.FieldID], err)
	}
	if tag.RowsAffected() == 0 {
		return "", fmt.Errorf("%w: employee %s or topic %q in room %d", store.ErrConflict, a.EmployeeID, a.Topic, a.Room)
	}
	return rec[store.FieldID], nil
}

func (s *Store) QueryEqual(ctx context.Context, field, value string) ([]models.Assignment, error) {
	col, arg, err := column(field, value)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, selectColumns+` WHERE `+col+` = $1 ORDER BY assigned_at, id`, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments by %s: %w", field, err)
	}
	return collect(rows)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete assignment %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM assignments`); err != nil {
		return fmt.Errorf("failed to clear assignments: %w", err)
	}
	return nil
}

// column maps a wire field to a whitelisted column and typed argument.
func column(field, value string) (string, any, error) {
	switch field {
	case store.FieldID:
		return "id", value, nil
	case store.FieldEmployeeID:
		return "employee_id", models.NormalizeEmployeeID(value), nil
	case store.FieldName:
		return "name", value, nil
	case store.FieldChannel:
		return "channel", value, nil
	case store.FieldCategory:
		return "category", value, nil
	case store.FieldTopic:
		return "topic", value, nil
	case store.FieldRoom:
		room, err := strconv.Atoi(value)
		if err != nil {
			return "", nil, fmt.Errorf("room %q: %w", value, err)
		}
		return "room", room, nil
	}
	return "", nil, fmt.Errorf("%w: query on field %q", store.ErrUnsupported, field)
}

func collect(rows pgx.Rows) ([]models.Assignment, error) {
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Assignment, error) {
		var a models.Assignment
		var channel, category string
		err := row.Scan(&a.ID, &a.EmployeeID, &a.Name, &channel, &category, &a.Topic, &a.Room, &a.AssignedAt)
		a.Channel = models.Channel(channel)
		a.Category = models.Category(category)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan assignments: %w", err)
	}
	return out, nil
}
