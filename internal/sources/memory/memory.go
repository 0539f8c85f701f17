package memory

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"aulas/internal/core"
	"aulas/internal/sources"
)

const (
	LessonsFile = "aulas.json"
	ClientsFile = "base.json"
)

var _ sources.Source = (*Store)(nil)

// Store serves both collections from memory. Fetches return copies of the
// slices so callers cannot reorder the stored data.
type Store struct {
	mu      sync.Mutex
	lessons []core.RawRecord
	clients []core.RawRecord
}

func New(lessons, clients []core.RawRecord) *Store {
	return &Store{lessons: lessons, clients: clients}
}

// NewFromFiles seeds the store from base/aulas.json and base/base.json.
// A missing file seeds an empty collection; a malformed one is an error.
func NewFromFiles(base string) (*Store, error) {
	lessons, err := readArray(filepath.Join(base, LessonsFile))
	if err != nil {
		return nil, err
	}
	clients, err := readArray(filepath.Join(base, ClientsFile))
	if err != nil {
		return nil, err
	}
	return New(lessons, clients), nil
}

// FetchLessons implements sources.LessonSource
func (s *Store) FetchLessons(ctx context.Context) ([]core.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.RawRecord{}, s.lessons...), nil
}

// FetchClients implements sources.ClientSource
func (s *Store) FetchClients(ctx context.Context) ([]core.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.RawRecord{}, s.clients...), nil
}

// Replace swaps both collections at once.
func (s *Store) Replace(lessons, clients []core.RawRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lessons = lessons
	s.clients = clients
}

func readArray(path string) ([]core.RawRecord, error) {
	out, err := ReadRecords(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return out, err
}

// ReadRecords decodes a file holding one JSON array of objects. Numbers are
// kept as json.Number; elements that are not objects become empty records.
func ReadRecords(path string) ([]core.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	out, err := sources.DecodeRecords(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}
