package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tubescribe/internal/api"
	"tubescribe/internal/config"
	"tubescribe/internal/logging"
	"tubescribe/internal/services"
)

const maxRequestBody = 1 << 20

type apiServer struct {
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		token:  cfg.Paths.APIToken,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /video/getData", srv.requireAuth(srv.handleTranscribe))
	mux.HandleFunc("GET /healthz", srv.handleHealth)
	mux.HandleFunc("GET /api/status", srv.requireAuth(srv.handleStatus))
	mux.HandleFunc("GET /api/history", srv.requireAuth(srv.handleHistory))
	mux.HandleFunc("GET /api/history/{id}", srv.requireAuth(srv.handleHistoryItems))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	var req api.TranscriptionRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := decoder.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body", "")
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	ctx := services.WithRequestID(r.Context(), requestID(r))
	result, err := s.daemon.deps.Processor.Process(ctx, req.VideoURLs)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBatchTooLarge):
			s.writeError(w, http.StatusBadRequest, err.Error(), string(services.Classify(err)))
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			s.writeError(w, http.StatusServiceUnavailable, "request cancelled", "")
		default:
			s.logger.Error("batch processing failed", logging.Error(err))
			s.writeError(w, http.StatusInternalServerError, "internal error", string(services.FailureInternal))
		}
		return
	}

	s.writeJSON(w, http.StatusOK, api.NewTranscriptionResponse(result))
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.daemon.Health(r.Context())
	status := http.StatusOK
	if !health.Ready {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, health)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	store := s.daemon.deps.History
	if store == nil {
		s.writeError(w, http.StatusNotFound, "history store disabled", "")
		return
	}
	limit := 20
	if value := r.URL.Query().Get("limit"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 1 {
			s.writeError(w, http.StatusBadRequest, "invalid limit", "")
			return
		}
		limit = parsed
	}
	batches, err := store.RecentBatches(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "history read failed", "")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"batches": batches})
}

func (s *apiServer) handleHistoryItems(w http.ResponseWriter, r *http.Request) {
	store := s.daemon.deps.History
	if store == nil {
		s.writeError(w, http.StatusNotFound, "history store disabled", "")
		return
	}
	items, err := store.BatchItems(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "history read failed", "")
		return
	}
	if len(items) == 0 {
		s.writeError(w, http.StatusNotFound, "batch not found", "")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func requestID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Request-Id")); id != "" {
		return id
	}
	return ""
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message, kind string) {
	s.writeJSON(w, status, api.ErrorResponse{Success: false, Message: message, Kind: kind})
}
