package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/teranos/smrt/errors"
	"github.com/teranos/smrt/logger"
)

// ShutdownTimeout bounds the graceful drain of in-flight requests
const ShutdownTimeout = 5 * time.Second

// Start listens on port and serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return errors.WithHint(errors.Wrapf(err, "listen on port %d", port),
			"set server.port in smrt.toml or pass --port")
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.ctx },
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Infow("Server ready",
		logger.FieldAddress, ln.Addr().String(),
		logger.FieldSource, s.store.SourceName())

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "serve")
	case <-ctx.Done():
		return s.Stop()
	}
}

// Stop closes websocket clients, then drains in-flight requests
func (s *Server) Stop() error {
	s.logger.Infow("Initiating server shutdown")

	s.mu.Lock()
	clients := make([]*chatClient, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
		delete(s.clients, c)
	}
	srv := s.httpServer
	s.mu.Unlock()

	if len(clients) > 0 {
		s.logger.Infow("Closing chat connections", logger.FieldCount, len(clients))
		for _, c := range clients {
			c.close()
		}
	}
	s.cancel()

	var err error
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err = srv.Shutdown(ctx); err != nil {
			err = errors.Wrap(err, "shutdown")
		}
	}
	s.wg.Wait()
	s.logger.Infow("Server stopped")
	return err
}
