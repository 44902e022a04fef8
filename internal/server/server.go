package server

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/akolanti/docmind/internal/config"
	"github.com/akolanti/docmind/internal/worker"
	"github.com/akolanti/docmind/pkg/logger_i"
)

type Server struct {
	httpServer *http.Server
	logger     *logger_i.Logger
}

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	Pool             *worker.Pool
	CloseServices    func()
}

func CreateServer(listenAddr string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         listenAddr,
			Handler:      handler,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		logger: logger_i.NewLogger("Server"),
	}
}

func (s *Server) ListenAndServe() {
	s.logger.Info("Server is listening at", "address", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Server crashed", "error", err.Error(), "addr", s.httpServer.Addr)
	}
}

// ShutDownHandler drains http first, then the worker pool, then closes external clients.
func (s *Server) ShutDownHandler(params ShutdownParams) {
	state := <-params.GracefulShutdown
	s.logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		s.httpServer.SetKeepAlivesEnabled(false)
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("Could not shutdown gracefully", "error", err)
		}

		if params.Pool != nil {
			if err := params.Pool.Stop(ctx); err != nil {
				s.logger.Error("Workers did not stop in time", "error", err)
			}
		}
		if params.CloseServices != nil {
			params.CloseServices()
		}
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Gracefully shut down")
		close(params.StopExecution)
	case <-ctx.Done():
		s.logger.Error("Force shut down")
		os.Exit(1)
	}
}
