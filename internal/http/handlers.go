package http

import (
	"net/http"

	"aulas/internal/core"
	applog "aulas/internal/log"
	"aulas/internal/metrics"
	"aulas/internal/middleware/trace"
)

type dashboardResponse struct {
	core.DerivedMetrics
	Filter                     core.FilterSelection `json:"filter"`
	TotalRevenueDisplay        string               `json:"total_revenue_display"`
	AverageSatisfactionDisplay string               `json:"average_satisfaction_display"`
}

type typesResponse struct {
	Types []string `json:"types"`
}

type lessonsResponse struct {
	Filter  core.FilterSelection `json:"filter"`
	Count   int                  `json:"count"`
	Lessons []core.LessonRecord  `json:"lessons"`
}

type refreshResponse struct {
	SnapshotID string `json:"snapshot_id"`
	Lessons    int    `json:"lessons"`
	Clients    int    `json:"clients"`
}

func (s *Server) parseFilter(w http.ResponseWriter, r *http.Request) (core.FilterSelection, bool) {
	sel, err := ParseFilter(r.URL.Query(), s.defaults)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return core.FilterSelection{}, false
	}
	return sel, true
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sel, ok := s.parseFilter(w, r)
	if !ok {
		return
	}

	m := s.dashboard.Compute(sel)
	applog.FromContext(r.Context()).DebugContext(r.Context(), "Dashboard computed",
		applog.NewFields().
			WithOperation(applog.OpCompute).
			WithFilter(sel.Type, sel.Start, sel.End).
			WithRequestID(trace.GetRequestID(r.Context())).
			ToSlice()...)

	NewJSONResponse().
		NoCache().
		Data(dashboardResponse{
			DerivedMetrics:             m,
			Filter:                     sel,
			TotalRevenueDisplay:        formatBRL(m.TotalRevenue),
			AverageSatisfactionDisplay: formatScore(m.AverageSatisfaction),
		}).
		Write(w)
}

func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().
		NoCache().
		Data(typesResponse{Types: s.dashboard.AvailableTypes()}).
		Write(w)
}

func (s *Server) handleLessons(w http.ResponseWriter, r *http.Request) {
	sel, ok := s.parseFilter(w, r)
	if !ok {
		return
	}

	lessons := s.dashboard.Lessons(sel)
	if lessons == nil {
		lessons = []core.LessonRecord{}
	}
	NewJSONResponse().
		NoCache().
		Data(lessonsResponse{Filter: sel, Count: len(lessons), Lessons: lessons}).
		Write(w)
}

// handleRefresh reloads the dataset. On failure the previous snapshot keeps
// being served and the upstream error is reported as 502.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s.metrics.IncRefreshTrigger(metrics.TriggerAPI)

	snap, err := s.dashboard.Refresh(ctx)
	if err != nil {
		applog.NewStructuredLogger(s.logger).LogError(ctx, "Manual refresh failed", err,
			applog.ComponentHTTP, applog.OpRefresh,
			applog.NewFields().WithRequestID(trace.GetRequestID(ctx)))
		BadGatewayError(err.Error()).Write(w)
		return
	}

	NewJSONResponse().
		NoCache().
		Data(refreshResponse{
			SnapshotID: snap.ID,
			Lessons:    len(snap.Dataset.Lessons),
			Clients:    len(snap.Dataset.Clients),
		}).
		Write(w)
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.ipResolver.ClientIP(r),
		applog.FieldPath, r.URL.Path)
	TooManyRequestsError("rate limit exceeded, please try again later").Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady answers 503 until the first dataset load has succeeded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	st := s.dashboard.Status()
	if !st.Ready {
		NewJSONResponse().Status(http.StatusServiceUnavailable).NoCache().Data(st).Write(w)
		return
	}
	NewJSONResponse().NoCache().Data(st).Write(w)
}
