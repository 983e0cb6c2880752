// Package console serves the server-rendered administration console. Each
// inbound request opens one application session whose storage keys live in
// signed cookies, resolves identity, and renders behind the access guard.
package console

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/console/apiclient"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/platform/timeouts"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/services/console/platform/cookiestore"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/services/console/platform/flash"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/services/console/platform/requestmeta"
)

// Config defines the inputs for the console process.
type Config struct {
	HTTPAddr   string
	APIBaseURL string
	// HTTPClient carries backend requests; nil uses http.DefaultTransport.
	HTTPClient *http.Client
	// CookieHashKey signs the session cookies and must be at least 32 bytes.
	CookieHashKey []byte
	// CookieBlockKey encrypts the session cookies when set.
	CookieBlockKey []byte
	CookieMaxAge   time.Duration
	SchemePolicy   requestmeta.SchemePolicy
	CacheSize      int
	CacheTTL       time.Duration
	// RequestTimeout bounds each backend call.
	RequestTimeout time.Duration
	// AccessLog receives one line per request; nil uses the default logger.
	AccessLog *log.Logger
}

// Server hosts the console over HTTP.
type Server struct {
	httpAddr   string
	httpServer *http.Server
}

// NewServer validates config and builds the console server.
func NewServer(ctx context.Context, config Config) (*Server, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	handler, err := NewHandler(config)
	if err != nil {
		return nil, err
	}
	return &Server{
		httpAddr: httpAddr,
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           handler,
			ReadHeaderTimeout: timeouts.ReadHeader,
			BaseContext: func(net.Listener) context.Context {
				return ctx
			},
		},
	}, nil
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("console server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	serveErr := make(chan error, 1)
	log.Printf("console listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close stops the server immediately.
func (s *Server) Close() {
	if s == nil || s.httpServer == nil {
		return
	}
	if err := s.httpServer.Close(); err != nil {
		log.Printf("close console server: %v", err)
	}
}

// NewHandler builds the console's HTTP handler.
func NewHandler(config Config) (http.Handler, error) {
	if strings.TrimSpace(config.APIBaseURL) == "" {
		return nil, errors.New("api base url is required")
	}
	jar, err := cookiestore.NewJar(cookiestore.Config{
		HashKey:  config.CookieHashKey,
		BlockKey: config.CookieBlockKey,
		MaxAge:   config.CookieMaxAge,
		Policy:   config.SchemePolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	h := &handler{
		config: config,
		jar:    jar,
		flash:  flash.NewCodec(config.CookieHashKey, config.CookieBlockKey, config.SchemePolicy),
		cache:  apiclient.NewResponseCache(config.CacheSize, config.CacheTTL),
	}
	return h.routes(), nil
}
