package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Register(t *testing.T) {
	t.Run("successful registration", func(t *testing.T) {
		m := NewMetrics()
		reg := prometheus.NewRegistry()
		if err := m.Register(reg); err != nil {
			t.Fatalf("Register() returned error: %v", err)
		}

		m.ObserveRefresh(nil, time.Second)
		m.IncRefreshTrigger(TriggerStartup)
		m.ObserveCompute(time.Millisecond)
		m.IncCacheLookup(true)
		m.SetSnapshotSize(3, 2)
		m.ObserveHTTPRequest("GET", "/api/dashboard", "200", time.Millisecond)

		families, err := reg.Gather()
		if err != nil {
			t.Fatalf("Gather() returned error: %v", err)
		}
		expected := map[string]bool{
			MetricRefreshTotal:        false,
			MetricRefreshDuration:     false,
			MetricRefreshTriggers:     false,
			MetricComputeDuration:     false,
			MetricCacheLookups:        false,
			MetricSnapshotLessons:     false,
			MetricSnapshotClients:     false,
			MetricHTTPRequestsTotal:   false,
			MetricHTTPRequestDuration: false,
		}
		for _, family := range families {
			if _, ok := expected[family.GetName()]; ok {
				expected[family.GetName()] = true
			}
		}
		for name, found := range expected {
			if !found {
				t.Errorf("metric %s not found in gathered metrics", name)
			}
		}
	})

	t.Run("duplicate registration fails", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		if err := NewMetrics().Register(reg); err != nil {
			t.Fatalf("first Register() returned error: %v", err)
		}
		if err := NewMetrics().Register(reg); err == nil {
			t.Error("second Register() should have returned an error")
		}
	})
}

func TestObserveRefreshStatus(t *testing.T) {
	m := NewMetrics()
	m.ObserveRefresh(nil, time.Second)
	m.ObserveRefresh(errors.New("boom"), time.Second)
	m.ObserveRefresh(errors.New("boom"), time.Second)

	if got := testutil.ToFloat64(m.refreshTotal.WithLabelValues(StatusSuccess)); got != 1 {
		t.Errorf("success = %v", got)
	}
	if got := testutil.ToFloat64(m.refreshTotal.WithLabelValues(StatusFailure)); got != 2 {
		t.Errorf("failure = %v", got)
	}
}

func TestCacheLookupsAndSnapshot(t *testing.T) {
	m := NewMetrics()
	m.IncCacheLookup(true)
	m.IncCacheLookup(false)
	m.IncCacheLookup(false)
	m.SetSnapshotSize(10, 4)

	if got := testutil.ToFloat64(m.cacheLookups.WithLabelValues(CacheMiss)); got != 2 {
		t.Errorf("misses = %v", got)
	}
	if got := testutil.ToFloat64(m.snapshotLessons); got != 10 {
		t.Errorf("lessons gauge = %v", got)
	}
	if got := testutil.ToFloat64(m.snapshotClients); got != 4 {
		t.Errorf("clients gauge = %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRefresh(nil, time.Second)
	m.IncRefreshTrigger(TriggerAPI)
	m.ObserveCompute(time.Second)
	m.IncCacheLookup(true)
	m.SetSnapshotSize(1, 1)
	m.ObserveHTTPRequest("GET", "/", "200", time.Second)
}

func TestHandler(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatal(err)
	}
	m.IncRefreshTrigger(TriggerSchedule)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), MetricRefreshTriggers) {
		t.Fatalf("metrics output missing %s:\n%s", MetricRefreshTriggers, body)
	}
}
