package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/patrickwarner/adcreatives/internal/config"
	"github.com/patrickwarner/adcreatives/internal/creatives"
	"github.com/patrickwarner/adcreatives/internal/models"
	"github.com/patrickwarner/adcreatives/internal/observability"
)

// CreativesFetcher runs one creatives query.
type CreativesFetcher interface {
	Fetch(ctx context.Context, req creatives.Request) (*models.CreativesResponse, error)
}

// Server groups dependencies for HTTP handlers.
type Server struct {
	Logger       *zap.Logger
	Creatives    CreativesFetcher
	ClickHouseDB *sql.DB
	Metrics      observability.MetricsRegistry
	Config       config.Config
}

// NewServer constructs a Server. clickhouseDB may be nil when snapshot
// analytics are disabled.
func NewServer(logger *zap.Logger, fetcher CreativesFetcher, clickhouseDB *sql.DB, metrics observability.MetricsRegistry, cfg config.Config) *Server {
	return &Server{
		Logger:       logger,
		Creatives:    fetcher,
		ClickHouseDB: clickhouseDB,
		Metrics:      metrics,
		Config:       cfg,
	}
}

// Routes registers the service endpoints on r.
func (s *Server) Routes(r *mux.Router) {
	r.HandleFunc("/creatives", s.CreativesHandler).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/health", s.HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/reports/creatives", s.CreativeReportHandler).Methods(http.MethodGet)
}

// helper function to write JSON response
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
