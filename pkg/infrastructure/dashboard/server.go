// Package dashboard serves a review session over HTTP: the live document,
// the suggestion batch, accept and reject actions, and an event stream.
package dashboard

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/felixgeelhaar/redline/pkg/application"
	"github.com/felixgeelhaar/redline/pkg/domain/markup"
	"github.com/felixgeelhaar/redline/pkg/domain/suggestion"
)

//go:embed templates/*
var templatesFS embed.FS

// Reviewer is the review session behind the server.
type Reviewer interface {
	List() []suggestion.Suggestion
	Get(id string) (suggestion.Suggestion, error)
	Accept(ctx context.Context, id string) (application.Outcome, error)
	Reject(ctx context.Context, id string) error
	Counts() application.Counts
	Summary() suggestion.Summary
	Document() *markup.Document
}

// Server is the review HTTP server.
type Server struct {
	addr     string
	reviewer Reviewer
	stream   http.Handler
	server   *http.Server
	tmpl     *template.Template
	logger   zerolog.Logger
}

// NewServer creates a server for reviewer. stream, when non-nil, is mounted
// at /events.
func NewServer(addr string, reviewer Reviewer, stream http.Handler, logger zerolog.Logger) (*Server, error) {
	funcMap := template.FuncMap{
		"statusClass": statusClass,
		"formatTime":  formatTime,
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	return &Server{
		addr:     addr,
		reviewer: reviewer,
		stream:   stream,
		tmpl:     tmpl,
		logger:   logger,
	}, nil
}

// Handler returns the route multiplexer.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /document", s.handleDocument)
	mux.HandleFunc("GET /api/suggestions", s.handleList)
	mux.HandleFunc("GET /api/suggestions/{id}", s.handleGet)
	mux.HandleFunc("POST /api/suggestions/{id}/accept", s.handleAccept)
	mux.HandleFunc("POST /api/suggestions/{id}/reject", s.handleReject)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	if s.stream != nil {
		mux.Handle("GET /events", s.stream)
	}
	return mux
}

// Start serves until Shutdown. The write timeout is left unset so the event
// stream stays open.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
	}

	s.logger.Info().Str("addr", s.addr).Msg("review server starting")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// PageData holds data for template rendering.
type PageData struct {
	Title       string
	Summary     suggestion.Summary
	Counts      application.Counts
	Suggestions []suggestion.Suggestion
	Document    template.HTML
	Now         time.Time
}

// SummaryView is the body of GET /api/summary.
type SummaryView struct {
	Summary         suggestion.Summary `json:"summary"`
	Counts          application.Counts `json:"counts"`
	DocumentVersion int                `json:"document_version"`
}

// ErrorView is the body of every error response.
type ErrorView struct {
	Error string `json:"error"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	doc := s.reviewer.Document()
	data := PageData{
		Title:       "Review",
		Summary:     s.reviewer.Summary(),
		Counts:      s.reviewer.Counts(),
		Suggestions: s.reviewer.List(),
		// #nosec G203 -- the document is the host's own markup
		Document: template.HTML(doc.Markup()),
		Now:      time.Now(),
	}
	s.render(w, "index.html", data)
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	doc := s.reviewer.Document()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Document-Version", fmt.Sprint(doc.Version()))
	_, _ = w.Write([]byte(doc.Markup()))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.reviewer.List())
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	sug, err := s.reviewer.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sug)
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	out, err := s.reviewer.Accept(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.reviewer.Reject(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	sug, err := s.reviewer.Get(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sug)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, SummaryView{
		Summary:         s.reviewer.Summary(),
		Counts:          s.reviewer.Counts(),
		DocumentVersion: s.reviewer.Document().Version(),
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error().Err(err).Str("template", name).Msg("template error")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug().Err(err).Msg("write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, statusFor(err), ErrorView{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, suggestion.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, suggestion.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func statusClass(s suggestion.Suggestion) string {
	switch {
	case s.Status.IsPending():
		return "status-pending"
	case s.Status == suggestion.StatusAccepted && s.Applied:
		return "status-applied"
	case s.Status == suggestion.StatusAccepted:
		return "status-manual"
	case s.Status == suggestion.StatusRejected:
		return "status-rejected"
	default:
		return "status-unknown"
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}
