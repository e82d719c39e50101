package api

import (
	"net/http"

	"github.com/dramirezdlp99/sistema-reservas/internal/metrics"
)

func (s *HTTPServer) handleReportSummary(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("report_summary")

	q := r.URL.Query()
	actor := actorFrom(queryInt64(q.Get("actor_id")), q.Get("actor_role"))

	summary, err := s.reports.Summary(r.Context(), actor)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
