package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/VoteMatch/internal/config"
	"github.com/TobiSchelling/VoteMatch/internal/database"
	"github.com/TobiSchelling/VoteMatch/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

const shutdownTimeout = 5 * time.Second

// Server serves the questionnaire pages and the JSON API.
type Server struct {
	db    *database.DB
	store *session.Store
	pages map[string]*template.Template
	mux   *http.ServeMux
	limit *rateLimiter
}

// New creates a new Server.
func New(db *database.DB) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"percent":  func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) },
		"deref":    deref,
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of base so {{define "content"}} does not collide.
	pageNames := []string{"index.html", "session.html", "results.html", "error.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		db:    db,
		store: session.NewStore(db),
		pages: pages,
		mux:   http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// LimitAPI throttles /api/ requests to rps per client IP with the given burst.
// A zero rps leaves the API unthrottled.
func (s *Server) LimitAPI(rps float64, burst int) {
	if rps <= 0 {
		s.limit = nil
		return
	}
	s.limit = newRateLimiter(rps, burst)
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	if s.limit == nil {
		return withLogging(s.mux)
	}
	api := s.limit.middleware(s.mux)
	return withLogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			api.ServeHTTP(w, r)
			return
		}
		s.mux.ServeHTTP(w, r)
	}))
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Pages
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /elections/{id}/start", s.handleStart)
	s.mux.HandleFunc("GET /sessions/{id}", s.handleSession)
	s.mux.HandleFunc("POST /sessions/{id}/theses/{thesis}", s.handleRateForm)
	s.mux.HandleFunc("POST /sessions/{id}/reset", s.handleResetForm)
	s.mux.HandleFunc("GET /sessions/{id}/results", s.handleResults)
	s.mux.HandleFunc("GET /sessions/{id}/report.md", s.handleReport)

	// API
	s.mux.HandleFunc("GET /api/elections", s.apiListElections)
	s.mux.HandleFunc("GET /api/elections/{id}", s.apiGetElection)
	s.mux.HandleFunc("POST /api/elections/{id}/match", s.apiMatch)
	s.mux.HandleFunc("GET /api/elections/{id}/blocs", s.apiBlocs)
	s.mux.HandleFunc("POST /api/sessions", s.apiCreateSession)
	s.mux.HandleFunc("PUT /api/sessions/{id}/ratings/{thesis}", s.apiPutRating)
	s.mux.HandleFunc("DELETE /api/sessions/{id}/ratings", s.apiResetSession)
	s.mux.HandleFunc("GET /api/sessions/{id}/results", s.apiResults)
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		slog.Error("template not found", "template", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		slog.Error("rendering template", "template", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (s *Server) renderError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	s.render(w, status, "error.html", map[string]any{
		"Status":  status,
		"Title":   http.StatusText(status),
		"Message": publicMessage(status, err),
	})
}

// statusFor maps store and database errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrUnknownThesis):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidRating):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func publicMessage(status int, err error) string {
	if status == http.StatusInternalServerError {
		return "something went wrong"
	}
	return err.Error()
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down.
func Serve(ctx context.Context, db *database.DB, cfg *config.Config) error {
	srv, err := New(db)
	if err != nil {
		return err
	}

	if maxAge := time.Duration(cfg.Sessions.MaxAge); maxAge > 0 {
		if _, err := srv.store.Prune(maxAge); err != nil {
			slog.Warn("pruning stale sessions", "error", err)
		}
		if spec := cfg.Sessions.PruneSchedule; spec != "" {
			p, err := newPruner(srv.store, spec, maxAge)
			if err != nil {
				return err
			}
			p.Start()
			defer p.Stop()
		}
	}

	srv.LimitAPI(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst)

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "url", "http://"+addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
