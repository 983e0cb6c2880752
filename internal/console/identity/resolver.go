package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// ErrAlreadyAuthenticated rejects a sign-in while a principal is resolved.
// Switching identity requires signing out first.
var ErrAlreadyAuthenticated = errors.New("identity: session already authenticated")

// ProfileFetcher performs the profile lookup with the stored credential and
// returns the raw response body.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context) ([]byte, error)
}

// ProfileFetcherFunc adapts a function to ProfileFetcher.
type ProfileFetcherFunc func(ctx context.Context) ([]byte, error)

// FetchProfile calls f.
func (f ProfileFetcherFunc) FetchProfile(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

// EndReason says why an authenticated session ended.
type EndReason string

const (
	// EndSignOut is an explicit sign-out.
	EndSignOut EndReason = "sign_out"
	// EndExpired is a forced expiry after the backend denied the credential.
	EndExpired EndReason = "expired"
)

// EndHook runs after the credential has been cleared.
type EndHook func(ctx context.Context, reason EndReason) error

// Option configures a Resolver.
type Option func(*Resolver)

// WithEndHook registers a hook run on sign-out and forced expiry.
func WithEndHook(hook EndHook) Option {
	return func(r *Resolver) {
		if hook != nil {
			r.hooks = append(r.hooks, hook)
		}
	}
}

// Resolver establishes and caches the principal for one application session.
type Resolver struct {
	store   CredentialStore
	fetcher ProfileFetcher
	hooks   []EndHook

	mu    sync.Mutex
	state State
}

// NewResolver builds an uninitialized resolver.
func NewResolver(store CredentialStore, fetcher ProfileFetcher, opts ...Option) *Resolver {
	r := &Resolver{store: store, fetcher: fetcher}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Initialize reads the stored credential and resolves the principal.
//
// Without a credential the session is unauthenticated and no lookup is
// made. Any lookup failure expires the session the same way a 401 does,
// so end hooks run; only storage and hook failures are returned. Once resolved,
// later calls return the cached state.
func (r *Resolver) Initialize(ctx context.Context) (State, error) {
	r.mu.Lock()
	if r.state.Status != StatusUninitialized {
		state := r.state
		r.mu.Unlock()
		return state, nil
	}
	r.state = State{Status: StatusResolving}
	fetcher := r.fetcher
	r.mu.Unlock()

	_, ok, err := r.store.Credential(ctx)
	if err != nil {
		r.setState(State{Status: StatusUnauthenticated})
		return r.State(), fmt.Errorf("read credential: %w", err)
	}
	if !ok {
		r.setState(State{Status: StatusUnauthenticated})
		return r.State(), nil
	}
	if fetcher == nil {
		r.setState(State{Status: StatusUnauthenticated})
		return r.State(), errors.New("identity: profile fetcher is not configured")
	}

	// The lookup may end the session itself (a 401 expires it), so the lock
	// is not held across it.
	body, err := fetcher.FetchProfile(ctx)
	var principal Principal
	if err == nil {
		principal, err = DecodeProfile(body)
	}
	if err != nil {
		log.Printf("profile lookup failed, clearing credential err=%v", err)
		if r.State().Status != StatusResolving {
			// Already ended by the lookup itself.
			return r.State(), nil
		}
		if endErr := r.end(ctx, EndExpired); endErr != nil {
			return r.State(), endErr
		}
		return r.State(), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Status == StatusResolving {
		r.state = State{Status: StatusAuthenticated, Principal: principal}
	}
	return r.state, nil
}

// SignIn persists the login credential and sets the principal from the
// login payload without another round trip.
func (r *Resolver) SignIn(ctx context.Context, result LoginResult) (State, error) {
	principal, err := result.Principal()
	if err != nil {
		return r.State(), err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Status == StatusAuthenticated {
		return r.state, ErrAlreadyAuthenticated
	}
	if err := r.store.SetCredential(ctx, result.AccessToken); err != nil {
		return r.state, fmt.Errorf("store credential: %w", err)
	}
	r.state = State{Status: StatusAuthenticated, Principal: principal}
	return r.state, nil
}

// SignOut clears the credential and the principal.
func (r *Resolver) SignOut(ctx context.Context) error {
	return r.end(ctx, EndSignOut)
}

// Expire is the forced-expiry path taken when the backend rejects the
// credential. Transitions match SignOut.
func (r *Resolver) Expire(ctx context.Context) error {
	return r.end(ctx, EndExpired)
}

func (r *Resolver) end(ctx context.Context, reason EndReason) error {
	r.mu.Lock()
	err := r.store.ClearCredential(ctx)
	r.state = State{Status: StatusUnauthenticated}
	hooks := append([]EndHook(nil), r.hooks...)
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}

	var errs []error
	for _, hook := range hooks {
		if hookErr := hook(ctx, reason); hookErr != nil {
			errs = append(errs, hookErr)
		}
	}
	return errors.Join(errs...)
}

// State returns the current snapshot.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Principal returns the resolved principal, or nil.
func (r *Resolver) Principal() Principal {
	return r.State().Principal
}

// IsBackofficeUser reports whether the session is a backoffice operator.
func (r *Resolver) IsBackofficeUser() bool {
	return r.State().IsBackofficeUser()
}

// IsClientUser reports whether the session is a tenant user.
func (r *Resolver) IsClientUser() bool {
	return r.State().IsClientUser()
}

func (r *Resolver) setState(state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
}
