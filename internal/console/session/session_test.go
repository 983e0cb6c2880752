package session

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/console/apiclient"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/console/identity"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/console/impersonation"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/platform/kvstore"
)

const (
	clientProfile     = `{"kind":"client","user":{"id":"u-1","name":"Ana"},"client":{"id":"t-own","companyName":"Own"}}`
	backofficeProfile = `{"kind":"backoffice","user":{"id":"b-1","name":"Ops","email":"ops@smartagesolutions.com"}}`
)

type fakeBackend struct {
	mu      sync.Mutex
	profile string
	paths   []string
	tenants []string
	deny    bool
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.paths = append(f.paths, r.URL.Path)
	f.tenants = append(f.tenants, r.Header.Get(apiclient.ImpersonationHeader))
	deny := f.deny
	profile := f.profile
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if deny || r.Header.Get("Authorization") == "" && r.URL.Path != "/auth/login" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"unauthorized"}`)
		return
	}
	switch r.URL.Path {
	case "/auth/profile":
		_, _ = io.WriteString(w, profile)
	case "/auth/login":
		_, _ = io.WriteString(w, `{"access_token":"tok-login","identity_type":"backoffice","user":{"id":"b-1","name":"Ops"}}`)
	default:
		_, _ = io.WriteString(w, `{"appointments":[]}`)
	}
}

func (f *fakeBackend) calls() ([]string, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...), append([]string(nil), f.tenants...)
}

func setup(t *testing.T, profile string) (*fakeBackend, *httptest.Server, *kvstore.Memory) {
	t.Helper()
	backend := &fakeBackend{profile: profile}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	return backend, srv, kvstore.NewMemory()
}

func open(t *testing.T, srv *httptest.Server, store kvstore.Store, cache *apiclient.ResponseCache) *Session {
	t.Helper()
	s, err := Open(context.Background(), Config{Store: store, APIBaseURL: srv.URL, Cache: cache})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func seed(t *testing.T, store kvstore.Store, key, value string) {
	t.Helper()
	if err := store.Set(context.Background(), key, value); err != nil {
		t.Fatalf("seed %s: %v", key, err)
	}
}

func TestOpenRequiresStore(t *testing.T) {
	if _, err := Open(context.Background(), Config{APIBaseURL: "http://localhost"}); err == nil {
		t.Fatal("expected error without store")
	}
}

func TestOpenWithoutCredentialMakesNoCalls(t *testing.T) {
	backend, srv, store := setup(t, clientProfile)
	s := open(t, srv, store, nil)

	if got := s.Identity().State().Status; got != identity.StatusUnauthenticated {
		t.Fatalf("status = %s, want unauthenticated", got)
	}
	if paths, _ := backend.calls(); len(paths) != 0 {
		t.Fatalf("backend calls = %v, want none", paths)
	}
}

func TestOpenResolvesStoredCredential(t *testing.T) {
	_, srv, store := setup(t, clientProfile)
	seed(t, store, identity.CredentialKey, "tok")

	s := open(t, srv, store, nil)
	state := s.Access(context.Background())
	if !state.IsClientUser || !state.ClientViewAllowed || state.EffectiveTenantScope != "t-own" {
		t.Fatalf("access = %+v", state)
	}
}

func TestImpersonationSurvivesFreshLoad(t *testing.T) {
	backend, srv, store := setup(t, backofficeProfile)
	ctx := context.Background()

	first := open(t, srv, store, nil)
	if _, err := first.SignIn(ctx, apiclient.Credentials{Email: "ops@smartagesolutions.com", Password: "pw"}); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if first.Access(ctx).ClientViewAllowed {
		t.Fatal("backoffice user without target must not see client views")
	}
	nav, err := first.Impersonation().Start(ctx, impersonation.Target{TenantID: "T", DisplayName: "Tenant T"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if nav.Location != "/" {
		t.Fatalf("navigation = %+v", nav)
	}
	first.Close()

	fresh := open(t, srv, store, nil)
	state := fresh.Access(ctx)
	if !state.IsImpersonating || state.EffectiveTenantScope != "T" || !state.ClientViewAllowed {
		t.Fatalf("fresh access = %+v", state)
	}
	if err := fresh.API().Get(ctx, "/appointments", nil, nil); err != nil {
		t.Fatalf("Get: %v", err)
	}
	paths, tenants := backend.calls()
	last := len(paths) - 1
	if paths[last] != "/appointments" || tenants[last] != "T" {
		t.Fatalf("last call = %s tenant %q, want /appointments tenant T", paths[last], tenants[last])
	}

	if _, err := fresh.Impersonation().Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	again := open(t, srv, store, nil)
	if again.Access(ctx).IsImpersonating {
		t.Fatal("fresh load after Stop must not be impersonating")
	}
}

func TestUnauthorizedFromAnyEndpointExpiresSession(t *testing.T) {
	backend, srv, store := setup(t, backofficeProfile)
	ctx := context.Background()
	seed(t, store, identity.CredentialKey, "tok")
	seed(t, store, impersonation.TargetKey, `{"id":"T","companyName":"Tenant T"}`)

	s := open(t, srv, store, nil)
	if !s.Access(ctx).IsImpersonating {
		t.Fatal("expected impersonating session")
	}

	backend.mu.Lock()
	backend.deny = true
	backend.mu.Unlock()

	err := s.API().Get(ctx, "/teams/all-members", nil, nil)
	if !apiclient.IsUnauthorized(err) {
		t.Fatalf("err = %v, want unauthorized", err)
	}
	if s.Identity().State().Status != identity.StatusUnauthenticated {
		t.Fatalf("status = %s, want unauthenticated", s.Identity().State().Status)
	}
	if _, ok, _ := store.Get(ctx, identity.CredentialKey); ok {
		t.Fatal("credential must be cleared")
	}
	if _, ok, _ := store.Get(ctx, impersonation.TargetKey); ok {
		t.Fatal("impersonation target must be cleared with the credential")
	}
}

func TestInvalidCredentialAtStartupIsRecovered(t *testing.T) {
	backend, srv, store := setup(t, backofficeProfile)
	backend.deny = true
	seed(t, store, identity.CredentialKey, "revoked")

	s := open(t, srv, store, nil)
	if s.Identity().State().Status != identity.StatusUnauthenticated {
		t.Fatalf("status = %s, want unauthenticated", s.Identity().State().Status)
	}
	if _, ok, _ := store.Get(context.Background(), identity.CredentialKey); ok {
		t.Fatal("credential must be cleared")
	}
}

func TestSignOutClearsImpersonation(t *testing.T) {
	_, srv, store := setup(t, backofficeProfile)
	ctx := context.Background()
	seed(t, store, identity.CredentialKey, "tok")
	seed(t, store, impersonation.TargetKey, `{"id":"T","companyName":"Tenant T"}`)

	s := open(t, srv, store, nil)
	if err := s.SignOut(ctx); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if s.Impersonation().IsImpersonating() {
		t.Fatal("sign-out must clear the impersonation target")
	}
	if _, ok, _ := store.Get(ctx, impersonation.TargetKey); ok {
		t.Fatal("stored target must be removed on sign-out")
	}
}

func TestStaleTargetForClientIsCleared(t *testing.T) {
	_, srv, store := setup(t, clientProfile)
	ctx := context.Background()
	seed(t, store, identity.CredentialKey, "tok")
	seed(t, store, impersonation.TargetKey, `{"id":"T","companyName":"Tenant T"}`)

	s := open(t, srv, store, nil)
	state := s.Access(ctx)
	if state.IsImpersonating || state.EffectiveTenantScope != "t-own" {
		t.Fatalf("access = %+v, target must be ignored for a client", state)
	}
	if _, ok, _ := store.Get(ctx, impersonation.TargetKey); ok {
		t.Fatal("stale target must be cleared")
	}
}

func TestStartInvalidatesSharedCache(t *testing.T) {
	backend, srv, store := setup(t, backofficeProfile)
	ctx := context.Background()
	seed(t, store, identity.CredentialKey, "tok")
	cache := apiclient.NewResponseCache(16, time.Minute)

	s := open(t, srv, store, cache)
	if _, err := s.Impersonation().Start(ctx, impersonation.Target{TenantID: "T1"}); err != nil {
		t.Fatalf("Start T1: %v", err)
	}
	_ = s.API().Get(ctx, "/appointments", nil, nil)
	if cache.Len() != 1 {
		t.Fatalf("cache len = %d, want 1", cache.Len())
	}
	if _, err := s.Impersonation().Start(ctx, impersonation.Target{TenantID: "T2"}); err != nil {
		t.Fatalf("Start T2: %v", err)
	}
	if cache.Len() != 0 {
		t.Fatalf("cache len after scope change = %d, want 0", cache.Len())
	}
	_ = s.API().Get(ctx, "/appointments", nil, nil)
	_, tenants := backend.calls()
	if tenants[len(tenants)-1] != "T2" {
		t.Fatalf("last tenant = %q, want T2", tenants[len(tenants)-1])
	}
}

func TestCloseRefusesDispatch(t *testing.T) {
	_, srv, store := setup(t, clientProfile)
	s := open(t, srv, store, nil)
	s.Close()
	if s.API() != nil {
		t.Fatal("API must be nil after Close")
	}
	if _, err := s.SignIn(context.Background(), apiclient.Credentials{}); err != ErrClosed {
		t.Fatalf("SignIn after Close err = %v, want ErrClosed", err)
	}
}

func TestSignInRejectedWhileAuthenticated(t *testing.T) {
	backend, srv, store := setup(t, clientProfile)
	seed(t, store, identity.CredentialKey, "tok")
	s := open(t, srv, store, nil)

	_, err := s.SignIn(context.Background(), apiclient.Credentials{Email: "x", Password: "y"})
	if err != identity.ErrAlreadyAuthenticated {
		t.Fatalf("err = %v, want ErrAlreadyAuthenticated", err)
	}
	paths, _ := backend.calls()
	for _, p := range paths {
		if strings.HasPrefix(p, "/auth/login") {
			t.Fatal("login endpoint must not be called while authenticated")
		}
	}
}

func TestNewSignInNeverInheritsLeftoverTarget(t *testing.T) {
	tests := []struct {
		name       string
		credential string
		profile    string
	}{
		{name: "profile lookup failed", credential: "tok-a", profile: `{"kind":"weird"}`},
		{name: "credential already gone", profile: backofficeProfile},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			backend, srv, store := setup(t, tc.profile)
			ctx := context.Background()
			if tc.credential != "" {
				seed(t, store, identity.CredentialKey, tc.credential)
			}
			seed(t, store, impersonation.TargetKey, `{"id":"t-9","companyName":"Tenant Nine"}`)

			s := open(t, srv, store, nil)
			if s.Impersonation().IsImpersonating() {
				t.Fatal("target without a principal must be cleared on open")
			}
			if _, ok, _ := store.Get(ctx, impersonation.TargetKey); ok {
				t.Fatal("stored target must be removed on open")
			}
			before, _ := backend.calls()

			if _, err := s.SignIn(ctx, apiclient.Credentials{Email: "ops@smartagesolutions.com", Password: "pw"}); err != nil {
				t.Fatalf("SignIn: %v", err)
			}
			state := s.Access(ctx)
			if state.IsImpersonating || state.EffectiveTenantScope != "" {
				t.Fatalf("access after sign-in = %+v, want no tenant scope", state)
			}
			if err := s.API().Get(ctx, "/backoffice/clients", nil, nil); err != nil {
				t.Fatalf("Get: %v", err)
			}
			paths, tenants := backend.calls()
			for i := len(before); i < len(tenants); i++ {
				if tenant := tenants[i]; tenant != "" {
					t.Fatalf("%s carried impersonation header %q", paths[i], tenant)
				}
			}
		})
	}
}

func TestSignInClearsTargetBeforeLogin(t *testing.T) {
	backend, srv, store := setup(t, backofficeProfile)
	ctx := context.Background()
	s := open(t, srv, store, nil)

	// A target written after open, with no principal to own it.
	if _, err := s.Impersonation().Start(ctx, impersonation.Target{TenantID: "t-9"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := s.SignIn(ctx, apiclient.Credentials{Email: "ops@smartagesolutions.com", Password: "pw"}); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if s.Impersonation().IsImpersonating() {
		t.Fatal("sign-in must clear the previous target")
	}
	paths, tenants := backend.calls()
	if len(paths) != 1 || paths[0] != "/auth/login" || tenants[0] != "" {
		t.Fatalf("calls = %v tenants %q, want one unscoped login", paths, tenants)
	}
}
