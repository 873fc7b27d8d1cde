// Package dashboard serves the operator-facing profiler UI: an HTML page,
// a JSON API over the read-side report service, and a websocket live feed.
// All API reads are side-effect-free; only the explicit reset endpoint
// mutates engine state.
package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/reqlens/reqlens/internal/engine"
	"github.com/reqlens/reqlens/internal/report"
	"github.com/reqlens/reqlens/internal/threshold"
)

// DefaultLiveInterval is the websocket frame interval when none is set.
const DefaultLiveInterval = 2 * time.Second

// Config controls how the dashboard is mounted and refreshed.
type Config struct {
	BasePath     string        // URL prefix, e.g. "/profiler"
	LiveInterval time.Duration // websocket frame interval
}

// Server exposes the dashboard handlers. Create with New, mount with
// Handler, or run standalone via a regular http.Server.
type Server struct {
	svc       *report.Service
	eng       *engine.Engine
	cfg       Config
	logger    *zap.Logger
	evaluator *threshold.Evaluator
	tmpl      *template.Template
}

// Option customizes the server.
type Option func(*Server)

// WithLogger sets the server's logger (a nop logger by default).
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithThresholds wires performance assertions into the health endpoint.
func WithThresholds(ts []threshold.Threshold) Option {
	return func(s *Server) { s.evaluator = threshold.NewEvaluator(ts) }
}

// New creates a dashboard server over the given read service and engine.
// The engine handle is used only for the reset endpoint.
func New(cfg Config, svc *report.Service, eng *engine.Engine, opts ...Option) *Server {
	if cfg.LiveInterval <= 0 {
		cfg.LiveInterval = DefaultLiveInterval
	}
	cfg.BasePath = strings.TrimSuffix(cfg.BasePath, "/")

	s := &Server{
		svc:    svc,
		eng:    eng,
		cfg:    cfg,
		logger: zap.NewNop(),
		tmpl:   template.Must(template.New("dashboard").Parse(pageTemplate)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the dashboard routes rooted at the configured base path,
// ready to mount into the instrumented application's mux.
func (s *Server) Handler() http.Handler {
	base := s.cfg.BasePath
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+base+"/{$}", s.handleIndex)
	mux.HandleFunc("GET "+base+"/api/summary", s.handleSummary)
	mux.HandleFunc("GET "+base+"/api/endpoints", s.handleEndpoints)
	mux.HandleFunc("GET "+base+"/api/requests", s.handleRecentRequests)
	mux.HandleFunc("GET "+base+"/api/queries", s.handleRecentQueries)
	mux.HandleFunc("GET "+base+"/api/health", s.handleHealth)
	mux.HandleFunc("GET "+base+"/api/live", s.handleLive)
	mux.HandleFunc("POST "+base+"/api/reset", s.handleReset)
	if base != "" {
		mux.HandleFunc("GET "+base, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, base+"/", http.StatusMovedPermanently)
		})
	}
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct {
		BasePath     string
		QueryMetrics bool
	}{
		BasePath:     s.cfg.BasePath,
		QueryMetrics: s.eng.QueryMetricsEnabled(),
	}
	if err := s.tmpl.Execute(w, data); err != nil {
		s.logger.Error("render dashboard page", zap.Error(err))
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.svc.Summary())
}

// pagedResponse is the envelope for every paginated listing.
type pagedResponse struct {
	Rows  any `json:"rows"`
	Total int `json:"total"`
}

func (s *Server) handleEndpoints(w http.ResponseWriter, r *http.Request) {
	page, order, err := parsePage(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	sortBy := report.SortField(r.URL.Query().Get("sort"))

	rows, total, err := s.svc.Endpoints(sortBy, order, page)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, pagedResponse{Rows: rows, Total: total})
}

func (s *Server) handleRecentRequests(w http.ResponseWriter, r *http.Request) {
	page, order, err := parsePage(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	rows, total, err := s.svc.RecentRequests(order, page)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, pagedResponse{Rows: rows, Total: total})
}

func (s *Server) handleRecentQueries(w http.ResponseWriter, r *http.Request) {
	page, order, err := parsePage(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	rows, total, err := s.svc.RecentQueries(order, page)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, pagedResponse{Rows: rows, Total: total})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	results := s.evaluator.Evaluate(s.svc.Summary())
	healthy := true
	for _, res := range results {
		if !res.Pass {
			healthy = false
			break
		}
	}
	s.writeJSON(w, http.StatusOK, struct {
		Healthy    bool               `json:"healthy"`
		Thresholds []threshold.Result `json:"thresholds,omitempty"`
	}{Healthy: healthy, Thresholds: results})
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	s.eng.Reset()
	s.logger.Info("profiler state reset")
	s.writeJSON(w, http.StatusOK, struct {
		Reset bool `json:"reset"`
	}{Reset: true})
}

func parsePage(r *http.Request) (report.Page, report.Order, error) {
	q := r.URL.Query()
	page := report.Page{Search: q.Get("search")}

	var err error
	if raw := q.Get("offset"); raw != "" {
		page.Offset, err = strconv.Atoi(raw)
		if err != nil {
			return page, "", fmt.Errorf("invalid offset: %q is not an integer", raw)
		}
	}
	if raw := q.Get("limit"); raw != "" {
		page.Limit, err = strconv.Atoi(raw)
		if err != nil {
			return page, "", fmt.Errorf("invalid limit: %q is not an integer", raw)
		}
	}
	return page, report.Order(q.Get("order")), nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, struct {
		Error string `json:"error"`
	}{Error: err.Error()})
}

// writeQueryError maps read-side parameter errors to 400 and everything
// else to 500.
func (s *Server) writeQueryError(w http.ResponseWriter, err error) {
	var qe *report.QueryError
	if errors.As(err, &qe) {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeError(w, http.StatusInternalServerError, err)
}
