// Package server is the HTTP boundary of the conversion daemon: multipart
// job submission, status polling, artifact download, and the synchronous
// single-page preview used by the frontend before committing to a full job.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hasanmujtaba2006/Scan2eBook-AI/observability"
	"github.com/hasanmujtaba2006/Scan2eBook-AI/pipeline"
)

// maxUploadBytes caps one submission's multipart body.
const maxUploadBytes = 200 << 20

// Server wires the pipeline to HTTP handlers.
type Server struct {
	orch      *pipeline.Orchestrator
	registry  *pipeline.Registry
	log       observability.Logger
	gatherer  prometheus.Gatherer
	retention time.Duration

	// baseCtx is the lifetime handed to fire-and-forget jobs so they survive
	// the submitting request. Run sets it; until then jobs get Background.
	baseCtx context.Context
}

func (s *Server) baseContext() context.Context {
	if s.baseCtx != nil {
		return s.baseCtx
	}
	return context.Background()
}

// Options configures the server.
type Options struct {
	// Gatherer backs the /metrics endpoint; nil disables it.
	Gatherer prometheus.Gatherer
	// Retention is how long terminal jobs stay pollable; zero disables the
	// sweep entirely and jobs stay resident for the process lifetime.
	Retention time.Duration
}

// New builds a server. A nil logger is replaced with a no-op one.
func New(orch *pipeline.Orchestrator, reg *pipeline.Registry, log observability.Logger, opts Options) *Server {
	if log == nil {
		log = observability.NopLogger{}
	}
	return &Server{
		orch:      orch,
		registry:  reg,
		log:       log,
		gatherer:  opts.Gatherer,
		retention: opts.Retention,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /jobs", s.handleSubmit)
	mux.HandleFunc("GET /jobs/{id}", s.handleStatus)
	mux.HandleFunc("GET /jobs/{id}/download", s.handleDownload)
	mux.HandleFunc("POST /process-page", s.handlePreview)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Run serves until ctx is canceled, then shuts down gracefully. It also owns
// the retention sweep for terminal jobs.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.baseCtx = ctx
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.retention > 0 {
		go s.sweep(ctx)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	s.log.Info("listening", observability.String("addr", addr))
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) sweep(ctx context.Context) {
	ticker := time.NewTicker(s.retention / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.registry.PurgeOlderThan(s.retention); n > 0 {
				s.log.Info("purged expired jobs", observability.Int("count", n))
			}
		}
	}
}
