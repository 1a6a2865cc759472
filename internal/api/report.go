package api

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kmorozova/demandcast/internal/reporting"
)

const defaultReportDays = 30

// CompletionReportHandler builds a plan-completion report over the last N
// calendar days (default 30), joining stored plans with actual revenue.
func (s *Server) CompletionReportHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	endpoint := "/report/completion"
	method := r.Method

	days := defaultReportDays
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			s.Metrics.IncrementRequests(endpoint, method, "400")
			http.Error(w, "invalid days parameter", http.StatusBadRequest)
			return
		}
		days = parsed
	}

	summary, err := reporting.GenerateCompletionReport(r.Context(), s.PG, s.Analytics, time.Now(), days)
	if err != nil {
		s.Logger.Error("completion report", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		http.Error(w, "failed to generate report", http.StatusInternalServerError)
		return
	}

	writeJSON(w, summary)
	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}
