// Package session composes the identity resolver, impersonation overlay,
// and request dispatcher for one application session with an explicit
// open and close lifecycle.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/console/access"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/console/apiclient"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/console/identity"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/console/impersonation"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/platform/kvstore"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session: closed")

// Config describes the storage and backend of one session.
type Config struct {
	// Store holds the credential and impersonation keys.
	Store      kvstore.Store
	APIBaseURL string
	HTTPClient *http.Client
	// Cache is optional and may be shared between sessions.
	Cache          *apiclient.ResponseCache
	RequestTimeout time.Duration
}

// Session is one application session.
type Session struct {
	resolver *identity.Resolver
	overlay  *impersonation.Overlay
	client   *apiclient.Client

	mu     sync.Mutex
	closed bool
}

// Open builds and initialises a session: the overlay loads its stored
// target, then the resolver resolves the principal. It returns only after
// identity resolution has finished either way.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.Store == nil {
		return nil, errors.New("session store is required")
	}
	s := &Session{}

	var invalidators []impersonation.Option
	if cfg.Cache != nil {
		invalidators = append(invalidators, impersonation.WithInvalidator(cfg.Cache))
	}
	s.overlay = impersonation.NewOverlay(impersonation.NewKVStore(cfg.Store), invalidators...)

	credentials := identity.NewKVCredentialStore(cfg.Store)
	client, err := apiclient.New(apiclient.Config{
		BaseURL:        cfg.APIBaseURL,
		HTTPClient:     cfg.HTTPClient,
		Credentials:    credentials,
		Target:         s.overlay,
		TenantScope:    s.tenantScope,
		OnUnauthorized: s.expire,
		Cache:          cfg.Cache,
		Timeout:        cfg.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("build api client: %w", err)
	}
	s.client = client

	s.resolver = identity.NewResolver(credentials, client,
		identity.WithEndHook(func(ctx context.Context, _ identity.EndReason) error {
			return s.overlay.Clear(ctx)
		}),
	)

	if err := s.overlay.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize impersonation: %w", err)
	}
	state, err := s.resolver.Initialize(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize identity: %w", err)
	}
	// A target that outlived its credential belongs to nobody.
	if state.Status != identity.StatusAuthenticated && s.overlay.IsImpersonating() {
		if err := s.overlay.Clear(ctx); err != nil {
			return nil, fmt.Errorf("clear orphaned impersonation target: %w", err)
		}
	}
	return s, nil
}

// tenantScope derives the effective scope without clearing stale targets,
// since it runs in the middle of dispatch.
func (s *Session) tenantScope(context.Context) string {
	target, hasTarget := s.overlay.Target()
	return access.Derive(s.resolver.State(), target, hasTarget).EffectiveTenantScope
}

func (s *Session) expire(ctx context.Context) error {
	return s.resolver.Expire(ctx)
}

// Access derives the current access state. A target left over next to a
// non-backoffice principal is cleared as a side effect.
func (s *Session) Access(ctx context.Context) access.State {
	target, hasTarget := s.overlay.Target()
	state := access.Derive(s.resolver.State(), target, hasTarget)
	if state.StaleTarget {
		if err := s.overlay.Clear(ctx); err != nil {
			log.Printf("clear stale impersonation target err=%v", err)
		}
	}
	return state
}

// Identity returns the resolver.
func (s *Session) Identity() *identity.Resolver {
	return s.resolver
}

// Impersonation returns the overlay.
func (s *Session) Impersonation() *impersonation.Overlay {
	return s.overlay
}

// API returns the request dispatcher, or nil once the session is closed.
func (s *Session) API() *apiclient.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	return s.client
}

// SignIn authenticates against the backend and stores the new credential.
func (s *Session) SignIn(ctx context.Context, creds apiclient.Credentials) (identity.State, error) {
	client := s.API()
	if client == nil {
		return identity.State{}, ErrClosed
	}
	if s.resolver.State().Status == identity.StatusAuthenticated {
		return s.resolver.State(), identity.ErrAlreadyAuthenticated
	}
	// A new principal never inherits a scope, and the login call itself
	// must go out unscoped.
	if err := s.overlay.Clear(ctx); err != nil {
		return s.resolver.State(), fmt.Errorf("clear impersonation target: %w", err)
	}
	result, err := client.Login(ctx, creds)
	if err != nil {
		return s.resolver.State(), err
	}
	return s.resolver.SignIn(ctx, result)
}

// SignOut ends the session's authentication; the impersonation target is
// cleared with it.
func (s *Session) SignOut(ctx context.Context) error {
	return s.resolver.SignOut(ctx)
}

// Close drops the session's collaborators. Further dispatch is refused.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.client = nil
}
