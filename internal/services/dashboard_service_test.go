package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"aulas/internal/cache"
	"aulas/internal/core"
	"aulas/internal/metrics"
)

type stubLoader struct {
	mu    sync.Mutex
	snaps []Snapshot
	errs  []error
	calls int
}

func (l *stubLoader) Load(ctx context.Context) (Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.calls
	l.calls++
	if i < len(l.errs) && l.errs[i] != nil {
		return Snapshot{}, l.errs[i]
	}
	return l.snaps[i], nil
}

type recordingNotifier struct {
	ids []string
	err error
}

func (n *recordingNotifier) NotifyRefreshed(ctx context.Context, snap Snapshot) error {
	n.ids = append(n.ids, snap.ID)
	return n.err
}

func loadScenario(t *testing.T, id string) Snapshot {
	t.Helper()
	src := scenarioSource()
	snap, err := NewDatasetLoader(src, src).Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	snap.ID = id
	return snap
}

func TestDashboardServiceInitialState(t *testing.T) {
	svc := NewDashboardService(&stubLoader{}, nil, nil)

	if svc.Ready() {
		t.Fatal("service must not be ready before the first refresh")
	}
	m := svc.Compute(core.DefaultFilter())
	if m.TotalRevenue != 0 || m.LessonCount != 0 || m.RevenueByType == nil || m.RevenueByDate == nil {
		t.Fatalf("initial metrics = %+v", m)
	}
	if types := svc.AvailableTypes(); types == nil || len(types) != 0 {
		t.Fatalf("initial types = %#v", types)
	}
}

func TestDashboardServiceRefresh(t *testing.T) {
	snap := loadScenario(t, "s1")
	notifier := &recordingNotifier{}
	svc := NewDashboardService(&stubLoader{snaps: []Snapshot{snap}}, nil, metrics.NewMetrics())
	svc.SetNotifier(notifier)

	got, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got.ID != "s1" || !svc.Ready() {
		t.Fatalf("snapshot = %s ready = %v", got.ID, svc.Ready())
	}
	m := svc.Compute(core.DefaultFilter())
	if m.TotalRevenue != 350 || m.LessonCount != 3 || m.ActiveClientCount != 2 || m.AverageSatisfaction != 7 {
		t.Fatalf("metrics = %+v", m)
	}
	if len(notifier.ids) != 1 || notifier.ids[0] != "s1" {
		t.Fatalf("notifications = %v", notifier.ids)
	}
}

func TestDashboardServiceFailedRefreshKeepsSnapshot(t *testing.T) {
	boom := errors.New("upstream 500")
	loader := &stubLoader{
		snaps: []Snapshot{loadScenario(t, "s1"), {}},
		errs:  []error{nil, boom},
	}
	notifier := &recordingNotifier{}
	svc := NewDashboardService(loader, nil, nil)
	svc.SetNotifier(notifier)

	if _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Refresh(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}

	if svc.Snapshot().ID != "s1" || !svc.Ready() {
		t.Fatalf("previous snapshot lost: %+v", svc.Status())
	}
	st := svc.Status()
	if st.LastError == "" || st.Lessons != 3 {
		t.Fatalf("status = %+v", st)
	}
	if len(notifier.ids) != 1 {
		t.Fatalf("failed refresh must not notify: %v", notifier.ids)
	}
}

func TestDashboardServiceFailureBeforeFirstLoad(t *testing.T) {
	svc := NewDashboardService(&stubLoader{errs: []error{errors.New("down")}}, nil, nil)
	if _, err := svc.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if svc.Ready() {
		t.Fatal("service must stay not ready")
	}
	if m := svc.Compute(core.DefaultFilter()); m.LessonCount != 0 {
		t.Fatalf("metrics = %+v", m)
	}
}

func TestDashboardServiceNotifierErrorIgnored(t *testing.T) {
	svc := NewDashboardService(&stubLoader{snaps: []Snapshot{loadScenario(t, "s1")}}, nil, nil)
	svc.SetNotifier(&recordingNotifier{err: errors.New("broker gone")})
	if _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("notification failure must not fail the refresh: %v", err)
	}
}

func TestDashboardServiceMemoization(t *testing.T) {
	memo := cache.NewLRUCache[core.DerivedMetrics](16, time.Minute)
	loader := &stubLoader{snaps: []Snapshot{loadScenario(t, "s1"), loadScenario(t, "s2")}}
	svc := NewDashboardService(loader, memo, nil)
	if _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	sel := core.FilterSelection{Type: "X", Start: core.DefaultStart, End: core.DefaultEnd}
	first := svc.Compute(sel)
	second := svc.Compute(sel)
	if first.TotalRevenue != 300 || second.TotalRevenue != 300 {
		t.Fatalf("metrics = %+v / %+v", first, second)
	}
	if st := memo.Stats(); st.Hits != 1 || st.Misses != 1 || st.Size != 1 {
		t.Fatalf("cache stats = %+v", st)
	}

	if _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if memo.Size() != 0 {
		t.Fatalf("refresh must purge the cache, size = %d", memo.Size())
	}
	svc.Compute(sel)
	if st := memo.Stats(); st.Misses != 2 {
		t.Fatalf("new snapshot must miss the cache: %+v", st)
	}
}

func TestDashboardServiceLessons(t *testing.T) {
	svc := NewDashboardService(&stubLoader{snaps: []Snapshot{loadScenario(t, "s1")}}, nil, nil)
	if _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := svc.Lessons(core.FilterSelection{Type: "Y", Start: core.DefaultStart, End: core.DefaultEnd})
	if len(got) != 1 || got[0].ClientID != "A" || got[0].Price != 50 {
		t.Fatalf("lessons = %+v", got)
	}
	if types := svc.AvailableTypes(); len(types) != 2 || types[0] != "X" || types[1] != "Y" {
		t.Fatalf("types = %v", types)
	}
}

func TestDashboardServiceConcurrentAccess(t *testing.T) {
	n := 8
	snaps := make([]Snapshot, n)
	for i := range snaps {
		snaps[i] = loadScenario(t, string(rune('a'+i)))
	}
	memo := cache.NewLRUCache[core.DerivedMetrics](4, 0)
	svc := NewDashboardService(&stubLoader{snaps: snaps}, memo, metrics.NewMetrics())

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := svc.Refresh(context.Background()); err != nil {
				t.Error(err)
			}
		}()
		go func() {
			defer wg.Done()
			m := svc.Compute(core.DefaultFilter())
			if m.LessonCount != 0 && m.LessonCount != 3 {
				t.Errorf("torn snapshot: %+v", m)
			}
		}()
	}
	wg.Wait()
	if !svc.Ready() {
		t.Fatal("service should be ready")
	}
}
