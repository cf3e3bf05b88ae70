package http

import (
	"net/http"

	"tally/internal/core"
)

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authorize(w, r)
	if !ok {
		return
	}
	p := ParseReportParams(r.URL.Query())
	report, err := s.svc.Reports.Compute(r.Context(), id, p.Period, p.Start, p.End)
	if err != nil {
		writeError(w, r, "compute report", err)
		return
	}
	NewJSONResponse().Body(report).Write(w)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authorize(w, r)
	if !ok {
		return
	}
	p := ParseReportParams(r.URL.Query())
	kind := core.ChartKind(r.PathValue("kind"))
	series, err := s.svc.Reports.Chart(r.Context(), id, kind, p.Period, p.Start, p.End)
	if err != nil {
		writeError(w, r, "chart", err)
		return
	}
	if series.Points == nil {
		series.Points = []core.ChartPoint{}
	}
	NewJSONResponse().Body(series).Write(w)
}
