package api

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/patrickwarner/adcreatives/internal/graph"
	"github.com/patrickwarner/adcreatives/internal/reporting"
)

// CreativeReportHandler handles GET /reports/creatives requests.
// Summarizes the stored creative snapshots of one ad account: top creatives by
// CTR, fatigue trends and a per-type breakdown.
//
// Query Parameters:
//   - adAccountId: ad account to report on (required)
//   - days: Number of days to include in the report (default: 7, max: 365)
//   - limit: Number of creatives per section (default: 10, max: 100)
func (s *Server) CreativeReportHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "/reports/creatives"
	method := r.Method
	logger := s.Logger

	if r.Method != http.MethodGet {
		s.Metrics.IncrementRequests(endpoint, method, "405")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.ClickHouseDB == nil {
		s.Metrics.IncrementRequests(endpoint, method, "503")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeError(w, http.StatusServiceUnavailable, "analytics database unavailable")
		return
	}

	accountID := r.URL.Query().Get("adAccountId")
	if accountID == "" {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeError(w, http.StatusBadRequest, "adAccountId is required")
		return
	}
	// snapshots are stored under the act_-prefixed id
	accountID = graph.AccountPath(accountID)

	days, ok := boundedParam(r, "days", 7, 365)
	if !ok {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeError(w, http.StatusBadRequest, "invalid days parameter")
		return
	}
	limit, ok := boundedParam(r, "limit", 10, 100)
	if !ok {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeError(w, http.StatusBadRequest, "invalid limit parameter")
		return
	}

	summary, err := reporting.GenerateCreativeReport(r.Context(), s.ClickHouseDB, accountID, days, limit)
	if err != nil {
		logger.Error("generate creative report",
			zap.String("ad_account_id", accountID),
			zap.Int("days", days),
			zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeError(w, http.StatusInternalServerError, "failed to generate report")
		return
	}

	writeJSON(w, http.StatusOK, summary)
	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}

// boundedParam parses a positive integer query parameter, capping it at ceiling.
func boundedParam(r *http.Request, name string, def, ceiling int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, false
	}
	if v > ceiling {
		v = ceiling
	}
	return v, true
}
