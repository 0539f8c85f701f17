package sources

import (
	"context"

	"aulas/internal/core"
)

// Ports for the two raw collections the dashboard is built from.
type (
	LessonSource interface {
		// FetchLessons returns every lesson-sale record as loosely-typed objects.
		FetchLessons(ctx context.Context) ([]core.RawRecord, error)
	}

	ClientSource interface {
		// FetchClients returns every client profile as loosely-typed objects.
		FetchClients(ctx context.Context) ([]core.RawRecord, error)
	}

	// Source provides both collections.
	Source interface {
		LessonSource
		ClientSource
	}
)
