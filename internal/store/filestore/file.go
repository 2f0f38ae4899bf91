// Package filestore keeps assignments as JSON lines in a local file. It is the
// default backend and the only one that supports every optional capability.
package filestore

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"topicspin-api/internal/models"
	"topicspin-api/internal/store"
)

type FileStore struct {
	path string
	mu   sync.Mutex
}

var (
	_ store.Store   = (*FileStore)(nil)
	_ store.Querier = (*FileStore)(nil)
	_ store.Deleter = (*FileStore)(nil)
)

func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE, 0o644)
	if err == nil {
		_ = f.Close()
	}
	return &FileStore{path: path}, err
}

func (s *FileStore) Append(ctx context.Context, a models.Assignment) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rec := store.EncodeRecord(a)

	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	defer f.Close()
	b, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(append(b, '\n')); err != nil {
		return "", err
	}
	return rec[store.FieldID], nil
}

func (s *FileStore) FetchAll(ctx context.Context) ([]models.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAll()
}

// QueryEqual matches the wire text of field exactly, like a server-side
// equality filter would.
func (s *FileStore) QueryEqual(ctx context.Context, field, value string) ([]models.Assignment, error) {
	all, err := s.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Assignment
	for _, a := range all {
		if v, ok := store.FieldValue(a, field); ok && v == value {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.readAll()
	if err != nil {
		return err
	}
	kept := all[:0]
	for _, a := range all {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(all) {
		return store.ErrNotFound
	}
	return s.rewrite(kept)
}

func (s *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rewrite(nil)
}

func (s *FileStore) readAll() ([]models.Assignment, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []models.Assignment
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec store.Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			log.Warn().Err(err).Str("path", s.path).Msg("filestore decode")
			continue
		}
		if a, ok := store.DecodeRecord(rec); ok {
			out = append(out, a)
		}
	}
	return out, sc.Err()
}

// rewrite replaces the file contents atomically via rename.
func (s *FileStore) rewrite(list []models.Assignment) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".assignments-*")
	if err != nil {
		return err
	}
	w := bufio.NewWriter(tmp)
	for _, a := range list {
		b, err := json.Marshal(store.EncodeRecord(a))
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
			return err
		}
		_, _ = w.Write(append(b, '\n'))
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
