package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"aulas/internal/cache"
	"aulas/internal/core"
	"aulas/internal/metrics"
)

// RefreshNotifier is told about every snapshot that replaces the current one.
type RefreshNotifier interface {
	NotifyRefreshed(ctx context.Context, snap Snapshot) error
}

// Status describes the service state for readiness probes.
type Status struct {
	Ready       bool      `json:"ready"`
	SnapshotID  string    `json:"snapshot_id,omitempty"`
	LoadedAt    time.Time `json:"loaded_at,omitempty"`
	Lessons     int       `json:"lessons"`
	Clients     int       `json:"clients"`
	LastError   string    `json:"last_error,omitempty"`
	LastAttempt time.Time `json:"last_attempt,omitempty"`
}

// DashboardService owns the current snapshot and computes derived metrics
// from it. Until the first successful refresh it serves an empty snapshot,
// so every selection yields zero metrics.
type DashboardService struct {
	loader   Loader
	cache    cache.Cache[core.DerivedMetrics]
	metrics  *metrics.Metrics
	notifier RefreshNotifier

	// refreshMu serializes loads; mu guards the fields below it.
	refreshMu   sync.Mutex
	mu          sync.RWMutex
	snap        Snapshot
	ready       bool
	lastErr     error
	lastAttempt time.Time
}

// NewDashboardService creates the service. memo and m may be nil.
func NewDashboardService(loader Loader, memo cache.Cache[core.DerivedMetrics], m *metrics.Metrics) *DashboardService {
	return &DashboardService{
		loader:  loader,
		cache:   memo,
		metrics: m,
		snap:    emptySnapshot(),
	}
}

// SetNotifier registers n to be told about new snapshots. Not safe to call
// concurrently with Refresh.
func (s *DashboardService) SetNotifier(n RefreshNotifier) {
	s.notifier = n
}

// Refresh loads a new snapshot and makes it current. On failure the
// previous snapshot stays in place and the error is returned.
func (s *DashboardService) Refresh(ctx context.Context) (Snapshot, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	start := time.Now()
	snap, err := s.loader.Load(ctx)
	s.metrics.ObserveRefresh(err, time.Since(start))

	s.mu.Lock()
	s.lastAttempt = start
	s.lastErr = err
	if err == nil {
		s.snap = snap
		s.ready = true
	}
	s.mu.Unlock()

	if err != nil {
		slog.ErrorContext(ctx, "Dataset refresh failed, keeping previous snapshot",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return Snapshot{}, fmt.Errorf("refresh dataset: %w", err)
	}

	if s.cache != nil {
		if n := s.cache.Purge(); n > 0 {
			slog.DebugContext(ctx, "Metrics cache purged", "entries", n)
		}
	}
	s.metrics.SetSnapshotSize(len(snap.Dataset.Lessons), len(snap.Dataset.Clients))

	if s.notifier != nil {
		if err := s.notifier.NotifyRefreshed(ctx, snap); err != nil {
			slog.WarnContext(ctx, "Failed to publish refresh notification",
				"snapshot_id", snap.ID,
				"error", err)
		}
	}

	return snap, nil
}

// Snapshot returns the current snapshot.
func (s *DashboardService) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Ready reports whether at least one refresh has succeeded.
func (s *DashboardService) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

func (s *DashboardService) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Ready:       s.ready,
		SnapshotID:  s.snap.ID,
		LoadedAt:    s.snap.LoadedAt,
		Lessons:     len(s.snap.Dataset.Lessons),
		Clients:     len(s.snap.Dataset.Clients),
		LastAttempt: s.lastAttempt,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// Compute returns the derived metrics for sel over the current snapshot.
// Results are memoized per snapshot and selection; callers must treat the
// returned slices as read-only.
func (s *DashboardService) Compute(sel core.FilterSelection) core.DerivedMetrics {
	snap := s.Snapshot()
	key := snap.ID + "\x00" + sel.Key()

	if s.cache != nil {
		if m, ok := s.cache.Get(key); ok {
			s.metrics.IncCacheLookup(true)
			return m
		}
		s.metrics.IncCacheLookup(false)
	}

	start := time.Now()
	m := core.Compute(snap.Dataset, sel)
	s.metrics.ObserveCompute(time.Since(start))

	if s.cache != nil {
		s.cache.Set(key, m)
	}
	return m
}

// Lessons returns the lessons of the current snapshot that match sel.
func (s *DashboardService) Lessons(sel core.FilterSelection) []core.LessonRecord {
	return core.FilterLessons(s.Snapshot().Dataset.Lessons, sel)
}

// AvailableTypes lists the distinct lesson types of the current snapshot,
// independent of any filter.
func (s *DashboardService) AvailableTypes() []string {
	return core.AvailableTypes(s.Snapshot().Dataset.Lessons)
}
