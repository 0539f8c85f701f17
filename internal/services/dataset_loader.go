package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"aulas/internal/core"
	"aulas/internal/sources"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Snapshot is one successfully loaded and normalized dataset. It is never
// mutated after Load returns.
type Snapshot struct {
	ID       string
	Dataset  core.Dataset
	Report   core.NormalizeReport
	LoadedAt time.Time
}

// Loader produces a fresh Snapshot.
type Loader interface {
	Load(ctx context.Context) (Snapshot, error)
}

// DatasetLoader fetches both raw collections concurrently and normalizes
// them into a Snapshot.
type DatasetLoader struct {
	lessons sources.LessonSource
	clients sources.ClientSource
	now     func() time.Time
}

func NewDatasetLoader(lessons sources.LessonSource, clients sources.ClientSource) *DatasetLoader {
	return &DatasetLoader{
		lessons: lessons,
		clients: clients,
		now:     time.Now,
	}
}

// Load issues both fetches at once and waits for both. The first failure
// cancels the other request and fails the whole load; no partial dataset
// is ever returned.
func (l *DatasetLoader) Load(ctx context.Context) (Snapshot, error) {
	var rawLessons, rawClients []core.RawRecord

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recs, err := l.lessons.FetchLessons(gctx)
		if err != nil {
			return fmt.Errorf("fetch lessons: %w", err)
		}
		rawLessons = recs
		return nil
	})
	g.Go(func() error {
		recs, err := l.clients.FetchClients(gctx)
		if err != nil {
			return fmt.Errorf("fetch clients: %w", err)
		}
		rawClients = recs
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	ds, rep := core.Normalize(rawLessons, rawClients)
	snap := Snapshot{
		ID:       uuid.NewString(),
		Dataset:  ds,
		Report:   rep,
		LoadedAt: l.now(),
	}

	slog.InfoContext(ctx, "Dataset loaded",
		"snapshot_id", snap.ID,
		"lessons", rep.Lessons,
		"clients", rep.Clients,
		"zeroed_prices", rep.ZeroedPrices,
		"invalid_dates", rep.InvalidDates,
		"invalid_scores", rep.InvalidScores,
		"empty_records", rep.EmptyRecords)

	return snap, nil
}

func emptySnapshot() Snapshot {
	return Snapshot{
		Dataset: core.Dataset{
			Lessons: []core.LessonRecord{},
			Clients: []core.ClientRecord{},
		},
	}
}
