package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/julianstephens/habitquest/internal/constants"
	apperrors "github.com/julianstephens/habitquest/internal/errors"
	"github.com/julianstephens/habitquest/internal/logger"
	"github.com/julianstephens/habitquest/internal/models"
)

// Server exposes a Store over HTTP for Client.
type Server struct {
	backend  Store
	router   *mux.Router
	registry *prometheus.Registry
	limiter  *ipLimiter
	metrics  *serverMetrics
}

type serverMetrics struct {
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	completions prometheus.Counter
	rateLimited prometheus.Counter
}

func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	m := &serverMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "habitquest_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "habitquest_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		completions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "habitquest_daily_records_saved_total",
			Help: "Total number of daily completion records accepted",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "habitquest_http_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		}),
	}
	reg.MustRegister(m.requests, m.duration, m.completions, m.rateLimited)
	return m
}

type ServerOption func(*Server)

// WithRateLimit overrides the per-client request rate and burst. A non-positive
// rate disables limiting.
func WithRateLimit(perSecond float64, burst int) ServerOption {
	return func(s *Server) {
		if perSecond <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = newIPLimiter(perSecond, burst)
	}
}

func NewServer(backend Store, opts ...ServerOption) *Server {
	s := &Server{
		backend:  backend,
		router:   mux.NewRouter(),
		registry: prometheus.NewRegistry(),
		limiter:  newIPLimiter(constants.RateLimitPerSecond, constants.RateLimitBurst),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = newServerMetrics(s.registry)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := s.router.PathPrefix("/").Subrouter()
	api.Use(s.monitor)
	if s.limiter != nil {
		api.Use(s.rateLimit)
	}

	api.HandleFunc("/habits", s.handleFetchHabits).Methods(http.MethodGet)
	api.HandleFunc("/habits", s.handleCreateHabit).Methods(http.MethodPost)
	api.HandleFunc("/habits/{id}", s.handleUpdateHabit).Methods(http.MethodPatch)
	api.HandleFunc("/habits/{id}", s.handleDeleteHabit).Methods(http.MethodDelete)
	api.HandleFunc("/progress", s.handleFetchProgress).Methods(http.MethodGet)
	api.HandleFunc("/progress", s.handleSaveProgress).Methods(http.MethodPut)
	api.HandleFunc("/records", s.handleFetchRecords).Methods(http.MethodGet)
	api.HandleFunc("/records", s.handleSaveRecord).Methods(http.MethodPost)
	api.HandleFunc("/data", s.handleClearAll).Methods(http.MethodDelete)
}

// Handler returns the router wrapped with panic recovery and access logging.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{}))(h)
	h = handlers.CombinedLoggingHandler(logger.Writer(), h)
	return h
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting remote server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sweep := time.NewTicker(time.Minute)
	defer sweep.Stop()

	for {
		select {
		case err, ok := <-errCh:
			if !ok {
				return nil
			}
			return fmt.Errorf("remote server: %w", err)
		case <-sweep.C:
			if s.limiter != nil {
				s.limiter.sweep(3 * time.Minute)
			}
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			logger.Info("Shutting down remote server")
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("remote server shutdown: %w", err)
			}
			return <-errCh
		}
	}
}

func (s *Server) monitor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tmpl, err := cur.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		s.metrics.requests.WithLabelValues(route, r.Method, strconv.Itoa(ww.status)).Inc()
		s.metrics.duration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(clientIP(r)) {
			s.metrics.rateLimited.Inc()
			respondWithError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleFetchHabits(w http.ResponseWriter, r *http.Request) {
	hs, err := s.backend.FetchHabits(r.Context())
	if err != nil {
		respondWithBackendError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, hs)
}

type createHabitRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateHabit(w http.ResponseWriter, r *http.Request) {
	var req createHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h, err := s.backend.CreateHabit(r.Context(), req.Name)
	if err != nil {
		respondWithBackendError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, h)
}

// derivedHabitFields are never persisted remotely, whatever the client sends.
var derivedHabitFields = []string{"completed_today", "completedToday"}

// decodeHabitPatch drops derived fields from raw before decoding it.
func decodeHabitPatch(raw map[string]json.RawMessage) (models.HabitPatch, error) {
	for _, k := range derivedHabitFields {
		delete(raw, k)
	}
	var patch models.HabitPatch
	cleaned, err := json.Marshal(raw)
	if err != nil {
		return patch, err
	}
	if err := json.Unmarshal(cleaned, &patch); err != nil {
		return patch, err
	}
	return patch, nil
}

func (s *Server) handleUpdateHabit(w http.ResponseWriter, r *http.Request) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	patch, err := decodeHabitPatch(raw)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid habit patch")
		return
	}

	h, err := s.backend.UpdateHabit(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		respondWithBackendError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, h)
}

func (s *Server) handleDeleteHabit(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.DeleteHabit(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondWithBackendError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleFetchProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.backend.FetchProgress(r.Context())
	if err != nil {
		respondWithBackendError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (s *Server) handleSaveProgress(w http.ResponseWriter, r *http.Request) {
	var p models.UserProgress
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	saved, err := s.backend.SaveProgress(r.Context(), p)
	if err != nil {
		respondWithBackendError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, saved)
}

func (s *Server) handleFetchRecords(w http.ResponseWriter, r *http.Request) {
	start, err := parseBound(r, "start")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := parseBound(r, "end")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	recs, err := s.backend.FetchDailyRecords(r.Context(), start, end)
	if err != nil {
		respondWithBackendError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, recs)
}

func (s *Server) handleSaveRecord(w http.ResponseWriter, r *http.Request) {
	var rec models.DailyRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if rec.HabitID == "" {
		respondWithError(w, http.StatusBadRequest, "habit_id is required")
		return
	}
	saved, err := s.backend.SaveDailyRecord(r.Context(), rec)
	if err != nil {
		respondWithBackendError(w, err)
		return
	}
	s.metrics.completions.Inc()
	respondWithJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.ClearAll(r.Context()); err != nil {
		respondWithBackendError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func parseBound(r *http.Request, name string) (*time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: expected RFC3339 timestamp", name)
	}
	return &t, nil
}

func respondWithBackendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, apperrors.ErrValidation):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperrors.ErrNetwork):
		respondWithError(w, http.StatusServiceUnavailable, "backend unavailable")
	default:
		logger.Error("Remote backend failure", "error", err)
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	logger.Error("Recovered from panic in HTTP handler", "panic", fmt.Sprint(v...))
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
