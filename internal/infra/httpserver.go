package infra

import (
	"context"
	"net/http"
	"time"
)

// HTTPServer wraps http.Server with the two lifecycle hooks main needs: a
// blocking Start and a context-bounded Shutdown.
type HTTPServer struct {
	server *http.Server
}

// NewHTTPServer builds the API server. The write timeout is configured
// rather than fixed because downloads stream whole converted artifacts;
// raise HTTP_WRITE_TIMEOUT when conversions produce large outputs.
func NewHTTPServer(cfg *Config, handler http.Handler) *HTTPServer {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		MaxHeaderBytes:    1 << 20,
	}

	return &HTTPServer{server: srv}
}

// Start serves until the listener closes. It blocks.
func (s *HTTPServer) Start() error {
	if s.server == nil {
		return nil
	}
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests until ctx expires. Background
// conversion tasks are not covered here; the dispatcher drains those.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
