package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hpungsan/timeless/internal/attachment"
	"github.com/hpungsan/timeless/internal/config"
	"github.com/hpungsan/timeless/internal/gateway"
	"github.com/hpungsan/timeless/internal/ops"
	"github.com/hpungsan/timeless/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Deps are the services the web UI drives.
type Deps struct {
	Store     *store.Store
	Builder   *ops.Builder
	Generator gateway.Generator
	Config    *config.Config
	Logger    *slog.Logger
	Version   string
}

// NewHandlers wires handlers and the renderer for deps.
func NewHandlers(deps Deps) (*Handlers, error) {
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("template sub-FS: %w", err)
	}
	if deps.Config == nil {
		deps.Config = config.DefaultConfig()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Generator == nil {
		deps.Generator = gateway.Unavailable{}
	}
	if deps.Builder == nil {
		deps.Builder = ops.NewBuilder(deps.Store, deps.Generator, deps.Config, deps.Logger)
	}

	return &Handlers{
		store:    deps.Store,
		builder:  deps.Builder,
		gen:      deps.Generator,
		cfg:      deps.Config,
		logger:   deps.Logger,
		drafts:   attachment.NewDrafts(nil),
		renderer: NewRenderer(templateSub, deps.Version, deps.Logger),
	}, nil
}

// NewServer creates and configures the HTTP server for the Timeless web UI.
func NewServer(deps Deps, bind string, port int) (*http.Server, error) {
	h, err := NewHandlers(deps)
	if err != nil {
		return nil, err
	}
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// Routes returns the UI's handler tree.
func (h *Handlers) Routes() http.Handler {
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("static sub-FS: %v", err))
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.HandleHome)
	mux.HandleFunc("GET /intro", h.HandleIntro)
	mux.HandleFunc("POST /intro/start", h.HandleStart)
	mux.HandleFunc("POST /plan", h.HandleSetPlan)
	mux.HandleFunc("GET /welcome-song", h.HandleWelcomeSong)

	mux.HandleFunc("GET /capsules", h.HandleList)
	mux.HandleFunc("GET /capsules/new", h.HandleNew)
	mux.HandleFunc("POST /capsules", h.HandleCreate)
	mux.HandleFunc("GET /capsules/{id}", h.HandleDetail)
	mux.HandleFunc("GET /capsules/{id}/attachment", h.HandleAttachment)
	mux.HandleFunc("POST /capsules/{id}", h.HandleUpdate)
	mux.HandleFunc("POST /capsules/{id}/seal", h.HandleRequestSeal)
	mux.HandleFunc("POST /capsules/{id}/delete", h.HandleRequestDelete)
	mux.HandleFunc("POST /confirm", h.HandleConfirm)
	mux.HandleFunc("POST /cancel", h.HandleCancel)

	mux.HandleFunc("POST /messages/generate", h.HandleGenerateMessage)
	mux.Handle("POST /api/generate", gateway.NewProxy(h.gen, h.logger))

	mux.HandleFunc("POST /recordings", h.HandleRecordingStart)
	mux.HandleFunc("POST /recordings/{id}/segments", h.HandleRecordingSegment)
	mux.HandleFunc("POST /recordings/{id}/stop", h.HandleRecordingStop)
	mux.HandleFunc("DELETE /recordings/{id}", h.HandleRecordingDiscard)

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	return requestLog(h.logger, securityHeaders(mux))
}

// securityHeaders adds security-related HTTP headers to all responses.
// Covers may be remote https images or inline data: URLs; recordings
// play from blob: URLs.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy",
			"default-src 'self'; script-src 'self'; style-src 'self'; img-src 'self' data: https:; media-src 'self' data: blob:")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// requestLog logs one debug line per request.
func requestLog(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("Timeless UI running", "url", "http://"+srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
