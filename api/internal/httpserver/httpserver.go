package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"typing-assistant/api/internal/observe"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	mux     *http.ServeMux
	metrics *observe.Metrics
	logger  *zap.Logger
	srv     *http.Server
}

// New registers /healthz, /readyz and, when metrics is non-nil, /metrics.
func New(addr string, metrics *observe.Metrics, logger *zap.Logger, checkers ...Checker) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		mux:     http.NewServeMux(),
		metrics: metrics,
		logger:  logger,
	}
	s.mux.HandleFunc("GET /healthz", healthz)
	s.mux.HandleFunc("GET /readyz", readyz(append([]Checker(nil), checkers...)))
	if metrics != nil {
		s.mux.Handle("GET /metrics", metrics.Handler())
	}

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// Mux is where feature packages register their routes.
func (s *Server) Mux() *http.ServeMux { return s.mux }

func (s *Server) Handle(pattern string, h http.Handler) { s.mux.Handle(pattern, h) }

// Handler is the mux wrapped with request metrics and logging.
func (s *Server) Handler() http.Handler {
	return observe.Middleware(s.metrics, s.logger, s.mux)
}

// Run serves until ctx ends, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
