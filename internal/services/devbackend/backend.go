// Package devbackend is an in-memory stand-in for the appointment REST API.
// It enforces the same tenant scoping rules as production so the console
// and CLI can be exercised end to end without external services.
package devbackend

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/platform/timeouts"
)

// ImpersonationHeader names the tenant a backoffice caller acts for.
const ImpersonationHeader = "X-Impersonate-Client-ID"

const defaultTokenTTL = 24 * time.Hour

// Config configures a Backend.
type Config struct {
	Secret         []byte
	TokenTTL       time.Duration
	AllowedOrigins []string
	Store          *Store
	Now            func() time.Time
	Logger         *log.Logger
}

// RecordedRequest is what the backend saw for one call.
type RecordedRequest struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	Impersonate   string
}

type failure struct {
	status  int
	message string
}

// Backend serves the REST API from a Store.
type Backend struct {
	store   *Store
	tokens  tokenSigner
	logger  *log.Logger
	origins []string

	mu         sync.Mutex
	generation int
	requests   []RecordedRequest
	failures   map[string]failure
}

// New builds a backend. A random signing secret is generated when none is set.
func New(cfg Config) (*Backend, error) {
	secret := cfg.Secret
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	store := cfg.Store
	if store == nil {
		store = NewStore()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Backend{
		store:    store,
		tokens:   tokenSigner{secret: secret, ttl: ttl, now: now},
		logger:   logger,
		origins:  cfg.AllowedOrigins,
		failures: map[string]failure{},
	}, nil
}

// Store returns the backing data set.
func (b *Backend) Store() *Store { return b.store }

// Requests returns a copy of every recorded request since the last Reset.
func (b *Backend) Requests() []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]RecordedRequest(nil), b.requests...)
}

// RequestsTo returns the recorded requests whose path has the given prefix.
func (b *Backend) RequestsTo(prefix string) []RecordedRequest {
	var out []RecordedRequest
	for _, req := range b.Requests() {
		if strings.HasPrefix(req.Path, prefix) {
			out = append(out, req)
		}
	}
	return out
}

// Reset clears recorded requests and injected failures.
func (b *Backend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = nil
	b.failures = map[string]failure{}
}

// RevokeAll invalidates every token issued so far.
func (b *Backend) RevokeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.generation++
}

// FailPath makes every request to path answer with status and message.
func (b *Backend) FailPath(path string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[path] = failure{status: status, message: message}
}

func (b *Backend) currentGeneration() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generation
}

func (b *Backend) record(r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, RecordedRequest{
		Method:        r.Method,
		Path:          r.URL.Path,
		Query:         r.URL.RawQuery,
		Authorization: r.Header.Get("Authorization"),
		Impersonate:   r.Header.Get(ImpersonationHeader),
	})
}

func (b *Backend) injected(path string) (failure, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, ok := b.failures[path]
	return f, ok
}

// CORSOptions returns the browser policy for the given origins.
func CORSOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", ImpersonationHeader, "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

// Handler returns the API router.
func (b *Backend) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(CORSOptions(b.origins)))
	r.Use(b.recordAndInject)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Post("/auth/login", b.handleLogin)
	r.Get("/auth/invite/verify/{token}", b.handleVerifyInvitation)
	r.Post("/auth/invite/accept", b.handleAcceptInvitation)

	r.Group(func(r chi.Router) {
		r.Use(b.authenticate)
		r.Get("/auth/profile", b.handleProfile)

		r.Group(func(r chi.Router) {
			r.Use(b.tenantScope)
			r.Get("/appointments", b.handleAppointments)
			r.Put("/appointments/{appointmentID}", b.handleUpdateAppointment)
			r.Delete("/appointments/{appointmentID}", b.handleCancelAppointment)
			r.Get("/teams/all-members", b.handleMembers)
			r.Get("/auth/settings/email-templates", b.handleTemplates)
			r.Get("/auth/settings/profile", b.handleTenantProfile)
			r.Get("/auth/activity-logs", b.handleTenantLogs)
		})

		r.Group(func(r chi.Router) {
			r.Use(b.requireBackoffice)
			r.Get("/backoffice/clients", b.handleListClients)
			r.Get("/backoffice/clients/{clientID}", b.handleGetClient)
			r.Post("/backoffice/clients/{clientID}/toggle-status", b.handleToggleClient)
			r.Post("/backoffice/invite", b.handleInvite)
			r.Get("/auth/activity-logs/global", b.handleGlobalLogs)
		})
	})
	return r
}

func (b *Backend) recordAndInject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodOptions {
			b.record(r)
		}
		if f, ok := b.injected(r.URL.Path); ok {
			writeError(w, f.status, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe serves the API on addr until ctx ends.
func (b *Backend) ListenAndServe(ctx context.Context, addr string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return errors.New("http address is required")
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           b.Handler(),
		ReadHeaderTimeout: timeouts.ReadHeader,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	serveErr := make(chan error, 1)
	b.logger.Printf("devbackend listening on %s", addr)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := server.Shutdown(shutdownCtx)
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
