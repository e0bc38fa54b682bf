package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"rgbmonitor/internal/logger"
)

// HTTPServerService serves the API and dashboard under the supervisor.
// Cancelling its context drains open requests for up to shutdownTimeout,
// then drops whatever is left.
type HTTPServerService struct {
	server          *http.Server
	shutdownTimeout time.Duration
	logger          *logger.Logger

	mu   sync.RWMutex
	addr string
}

func NewHTTPServerService(server *http.Server, shutdownTimeout time.Duration, logger *logger.Logger) *HTTPServerService {
	return &HTTPServerService{server: server, shutdownTimeout: shutdownTimeout, logger: logger}
}

func (h *HTTPServerService) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", h.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", h.server.Addr, err)
	}

	h.mu.Lock()
	h.addr = ln.Addr().String()
	h.mu.Unlock()
	h.logger.Info("🌐 HTTP server listening on %s", ln.Addr())

	errCh := make(chan error, 1)
	go func() {
		err := h.server.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(shutdownCtx); err != nil {
			h.logger.Warning("⚠️  HTTP shutdown incomplete, closing connections: %v", err)
			h.server.Close()
		}
		<-errCh
		h.logger.Info("HTTP server stopped")
		return ctx.Err()
	}
}

// Addr is the bound listen address, empty before Serve.
func (h *HTTPServerService) Addr() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.addr
}

func (h *HTTPServerService) String() string {
	return "http-server"
}
