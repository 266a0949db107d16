package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/config"
	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/database"
	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/metrics"
	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/models"
	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/offline"

	"github.com/rs/zerolog"
)

// SyncRunner triggers a full pull from the tabular source into the
// relational mirror.
type SyncRunner interface {
	Run(ctx context.Context) (models.ImportStats, error)
}

// ReportExporter writes period reports to disk and returns the file path.
type ReportExporter interface {
	ExportReadings(ctx context.Context, startDate, endDate time.Time) (string, error)
	ExportFuel(ctx context.Context, startDate, endDate time.Time) (string, error)
}

// HTTPServer exposes the operational HTTP API: enqueueing field
// records, triggering imports, inspecting the pending queue, listing
// mirrored vehicles and downloading period reports.
type HTTPServer struct {
	cfg      config.APIConfig
	store    *database.Store
	syncer   SyncRunner
	queues   *offline.Manager
	exporter ReportExporter
	server   *http.Server
	auth     *HTTPAuth
	logger   zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, store *database.Store, syncer SyncRunner, queues *offline.Manager, exporter ReportExporter, logger *zerolog.Logger) *HTTPServer {
	var l zerolog.Logger
	if logger != nil {
		l = logger.With().Str("component", "http-api").Logger()
	}

	mux := http.NewServeMux()
	srv := &HTTPServer{cfg: cfg, store: store, syncer: syncer, queues: queues, exporter: exporter, logger: l}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/api/v1/sync/import", srv.handleSyncImport)
	mux.HandleFunc("/api/v1/records", srv.handleRecordCreate)
	mux.HandleFunc("/api/v1/pending", srv.handlePending)
	mux.HandleFunc("/api/v1/vehicles", srv.handleVehicles)
	mux.HandleFunc("/api/v1/export/readings", srv.handleExport)
	mux.HandleFunc("/api/v1/export/fuel", srv.handleExport)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	// Health check stays outside auth so load balancers can probe it.
	root := http.NewServeMux()
	root.HandleFunc("/healthz", srv.handleHealthz)
	root.Handle("/", handler)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           root,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleSyncImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.syncer == nil {
		writeError(w, http.StatusServiceUnavailable, "sync is not configured")
		return
	}

	stats, err := s.syncer.Run(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("import run failed")
		writeError(w, http.StatusBadGateway, "import failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"imported": stats.Imported,
		"updated":  stats.Updated,
		"deleted":  stats.Deleted,
		"errors":   stats.Errors,
	})
}

type createRecordRequest struct {
	UserID string         `json:"user_id"`
	Type   string         `json:"type"`
	Data   models.Payload `json:"data"`
}

// handleRecordCreate enqueues a field record through the offline queue,
// so the pending counters and change events fire exactly as they do for
// any other producer.
func (s *HTTPServer) handleRecordCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.queues == nil {
		writeError(w, http.StatusServiceUnavailable, "queue is not configured")
		return
	}

	var req createRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	id, err := s.queues.ForUser(req.UserID).SaveOfflineRecord(r.Context(), req.Data, req.Type)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidType):
			writeError(w, http.StatusBadRequest, "unknown record type")
		case errors.Is(err, database.ErrDuplicateKey):
			writeError(w, http.StatusConflict, "duplicate record id")
		case errors.Is(err, database.ErrStorageUnavailable):
			writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		default:
			s.logger.Error().Err(err).Msg("save offline record")
			writeError(w, http.StatusInternalServerError, "storage error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *HTTPServer) handlePending(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handlePendingList(w, r)
	case http.MethodDelete:
		s.handlePendingClear(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handlePendingList(w http.ResponseWriter, r *http.Request) {
	if s.queues == nil {
		writeError(w, http.StatusServiceUnavailable, "queue is not configured")
		return
	}

	var (
		records []models.PendingRecord
		err     error
	)
	if userID := r.URL.Query().Get("user_id"); userID != "" {
		records, err = s.queues.ForUser(userID).PendingRecords(r.Context())
	} else {
		records, err = s.queues.AllPending(r.Context())
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("list pending records")
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(records),
		"records": records,
	})
}

func (s *HTTPServer) handlePendingClear(w http.ResponseWriter, r *http.Request) {
	if s.queues == nil {
		writeError(w, http.StatusServiceUnavailable, "queue is not configured")
		return
	}
	// Limpeza total da fila só com confirmação explícita.
	if r.URL.Query().Get("confirm") != "true" {
		writeError(w, http.StatusBadRequest, "confirm=true is required")
		return
	}

	if err := s.queues.ClearAll(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("clear pending records")
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// handleExport builds the Excel report for the requested period and
// streams it back as a download. Without start/end parameters the
// period spans the default export window around today.
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "export is not configured")
		return
	}

	startDate, endDate, err := exportPeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var path string
	if r.URL.Path == "/api/v1/export/fuel" {
		path, err = s.exporter.ExportFuel(r.Context(), startDate, endDate)
	} else {
		path, err = s.exporter.ExportReadings(r.Context(), startDate, endDate)
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("export report")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

func exportPeriod(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now()
	startDate := now.AddDate(0, -models.DefaultExportRangeMonthsBefore, 0)
	endDate := now.AddDate(0, models.DefaultExportRangeMonthsAfter, 0)

	if raw := r.URL.Query().Get("start"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q", raw)
		}
		startDate = parsed
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q", raw)
		}
		endDate = parsed
	}
	if endDate.Before(startDate) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date before start date")
	}
	return startDate, endDate, nil
}

func (s *HTTPServer) handleVehicles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	vehicles, err := s.store.AllVehicles(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list vehicles")
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"vehicles": vehicles})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		dur := time.Since(start)

		metrics.IncHTTP(r.Method, r.URL.Path, strconv.Itoa(recorder.status))
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", dur).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
