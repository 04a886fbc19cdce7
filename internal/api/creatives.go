package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/patrickwarner/adcreatives/internal/creatives"
	"github.com/patrickwarner/adcreatives/internal/graph"
	"github.com/patrickwarner/adcreatives/internal/middleware"
)

// maxRequestBody caps the size of a POST /creatives body.
const maxRequestBody = 1 << 20

// creativesRequest is the JSON body of POST /creatives.
type creativesRequest struct {
	AccessToken   string   `json:"accessToken"`
	AdAccountID   string   `json:"adAccountId"`
	DateRange     string   `json:"dateRange"`
	CacheTTLHours *float64 `json:"cacheTtlHours"`
	Refresh       bool     `json:"refresh"`
}

// CreativesHandler handles POST /creatives. It returns every distinct creative
// of the ad account with classification, media URLs and period performance.
//
// Errors are JSON {"error": "..."}: 400 for a malformed body, missing fields
// or an ad account rejected by the Graph API, 500 for anything else.
func (s *Server) CreativesHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "/creatives"
	method := r.Method
	logger := middleware.LoggerFromRequest(r, s.Logger)

	status := http.StatusOK
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("creatives handler panicked", zap.Any("panic", rec), zap.Stack("stack"))
			status = http.StatusInternalServerError
			writeError(w, status, "internal server error")
		}
		s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(status))
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	}()

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		status = http.StatusNoContent
		return
	}
	if r.Method != http.MethodPost {
		status = http.StatusMethodNotAllowed
		writeError(w, status, "method not allowed")
		return
	}

	var body creativesRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&body); err != nil {
		logger.Debug("invalid creatives request body", zap.Error(err))
		status = http.StatusBadRequest
		writeError(w, status, "invalid JSON body")
		return
	}

	resp, err := s.Creatives.Fetch(r.Context(), creatives.Request{
		AccessToken:   body.AccessToken,
		AdAccountID:   body.AdAccountID,
		DateRange:     body.DateRange,
		CacheTTLHours: body.CacheTTLHours,
		Refresh:       body.Refresh,
	})
	if err != nil {
		status = errorStatus(err)
		msg := "failed to fetch creatives"
		switch {
		case errors.Is(err, creatives.ErrInvalidRequest):
			msg = err.Error()
		case status == http.StatusBadRequest:
			apiErr, _ := graph.IsAPIError(err)
			msg = apiErr.Message
		}
		if status >= http.StatusInternalServerError {
			logger.Error("creatives fetch failed",
				zap.String("ad_account_id", body.AdAccountID),
				zap.Error(err))
		} else {
			logger.Info("creatives request rejected",
				zap.String("ad_account_id", body.AdAccountID),
				zap.Error(err))
		}
		writeError(w, status, msg)
		return
	}

	logger.Info("served creatives",
		zap.String("ad_account_id", body.AdAccountID),
		zap.Int("count", len(resp.Creatives)),
		zap.Bool("cached", resp.Cached))
	writeJSON(w, status, resp)
}

// errorStatus maps a Fetch error to an HTTP status.
func errorStatus(err error) int {
	if errors.Is(err, creatives.ErrInvalidRequest) {
		return http.StatusBadRequest
	}
	if _, ok := graph.IsAPIError(err); ok {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
