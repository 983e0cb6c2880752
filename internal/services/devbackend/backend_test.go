package devbackend

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tidwall/gjson"
)

type testCall struct {
	method      string
	path        string
	token       string
	impersonate string
	body        any
}

func newTestBackend(t *testing.T) (*Backend, *httptest.Server) {
	t.Helper()
	store := NewStore()
	Seed(store, time.Now())
	backend, err := New(Config{Secret: []byte("0123456789abcdef0123456789abcdef"), Store: store})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)
	return backend, srv
}

func call(t *testing.T, srv *httptest.Server, c testCall) (int, gjson.Result) {
	t.Helper()
	var reader io.Reader
	if c.body != nil {
		payload, err := json.Marshal(c.body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(c.method, srv.URL+c.path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.impersonate != "" {
		req.Header.Set(ImpersonationHeader, c.impersonate)
	}
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, gjson.ParseBytes(data)
}

func login(t *testing.T, srv *httptest.Server, email, password string) string {
	t.Helper()
	status, body := call(t, srv, testCall{method: http.MethodPost, path: "/auth/login", body: map[string]string{"email": email, "password": password}})
	if status != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", status, body.Raw)
	}
	return body.Get("access_token").String()
}

func TestLoginReturnsPrincipalPayload(t *testing.T) {
	_, srv := newTestBackend(t)

	status, body := call(t, srv, testCall{method: http.MethodPost, path: "/auth/login", body: map[string]string{"email": SeedClientEmail, "password": SeedClientPassword}})
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if got := body.Get("identity_type").String(); got != "client" {
		t.Fatalf("identity_type = %q, want client", got)
	}
	if got := body.Get("client.id").String(); got != SeedTenantID {
		t.Fatalf("client.id = %q, want %q", got, SeedTenantID)
	}
	if body.Get("access_token").String() == "" {
		t.Fatal("expected access token")
	}

	status, body = call(t, srv, testCall{method: http.MethodPost, path: "/auth/login", body: map[string]string{"email": SeedOperatorEmail, "password": SeedOperatorPassword}})
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if got := body.Get("identity_type").String(); got != "backoffice" {
		t.Fatalf("identity_type = %q, want backoffice", got)
	}
	if body.Get("client").Exists() {
		t.Fatalf("backoffice login carried a client: %s", body.Raw)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	_, srv := newTestBackend(t)

	status, body := call(t, srv, testCall{method: http.MethodPost, path: "/auth/login", body: map[string]string{"email": SeedClientEmail, "password": "wrong"}})
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
	if got := body.Get("error").String(); got != "Invalid credentials" {
		t.Fatalf("error = %q", got)
	}
}

func TestLoginRejectsInactiveTenant(t *testing.T) {
	_, srv := newTestBackend(t)

	status, _ := call(t, srv, testCall{method: http.MethodPost, path: "/auth/login", body: map[string]string{"email": "owner@bloom.test", "password": SeedClientPassword}})
	if status != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", status)
	}
}

func TestProfileIsKindTagged(t *testing.T) {
	_, srv := newTestBackend(t)

	_, body := call(t, srv, testCall{method: http.MethodGet, path: "/auth/profile", token: login(t, srv, SeedClientEmail, SeedClientPassword)})
	if body.Get("kind").String() != "client" || body.Get("client.companyName").String() != "Acme Dental" {
		t.Fatalf("client profile = %s", body.Raw)
	}

	_, body = call(t, srv, testCall{method: http.MethodGet, path: "/auth/profile", token: login(t, srv, SeedOperatorEmail, SeedOperatorPassword)})
	if body.Get("kind").String() != "backoffice" || body.Get("user.email").String() != SeedOperatorEmail {
		t.Fatalf("backoffice profile = %s", body.Raw)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	_, srv := newTestBackend(t)

	for _, path := range []string{"/auth/profile", "/appointments", "/backoffice/clients"} {
		status, body := call(t, srv, testCall{method: http.MethodGet, path: path})
		if status != http.StatusUnauthorized {
			t.Fatalf("%s status = %d, want 401", path, status)
		}
		if got := body.Get("error").String(); got != "Unauthorized" {
			t.Fatalf("%s error = %q", path, got)
		}
	}
	status, _ := call(t, srv, testCall{method: http.MethodGet, path: "/auth/profile", token: "not-a-jwt"})
	if status != http.StatusUnauthorized {
		t.Fatalf("garbage token status = %d, want 401", status)
	}
}

func TestTenantScopeForBackofficeCaller(t *testing.T) {
	_, srv := newTestBackend(t)
	token := login(t, srv, SeedOperatorEmail, SeedOperatorPassword)

	tests := []struct {
		name        string
		impersonate string
		want        int
	}{
		{name: "no tenant named", want: http.StatusForbidden},
		{name: "unknown tenant", impersonate: "tenant-missing", want: http.StatusNotFound},
		{name: "known tenant", impersonate: SeedTenantID, want: http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, _ := call(t, srv, testCall{method: http.MethodGet, path: "/teams/all-members", token: token, impersonate: tc.impersonate})
			if status != tc.want {
				t.Fatalf("status = %d, want %d", status, tc.want)
			}
		})
	}
}

func TestClientCallerIgnoresImpersonationHeader(t *testing.T) {
	_, srv := newTestBackend(t)
	token := login(t, srv, SeedClientEmail, SeedClientPassword)

	_, body := call(t, srv, testCall{method: http.MethodGet, path: "/auth/settings/profile", token: token, impersonate: SeedSecondTenantID})
	if got := body.Get("profile.company_name").String(); got != "Acme Dental" {
		t.Fatalf("company_name = %q, want Acme Dental", got)
	}
}

func TestBackofficeRoutesRejectClientCaller(t *testing.T) {
	_, srv := newTestBackend(t)
	token := login(t, srv, SeedClientEmail, SeedClientPassword)

	status, _ := call(t, srv, testCall{method: http.MethodGet, path: "/backoffice/clients", token: token})
	if status != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", status)
	}
}

func TestBackofficeClientLifecycle(t *testing.T) {
	_, srv := newTestBackend(t)
	token := login(t, srv, SeedOperatorEmail, SeedOperatorPassword)

	_, list := call(t, srv, testCall{method: http.MethodGet, path: "/backoffice/clients", token: token})
	if n := len(list.Get("clients").Array()); n != 2 {
		t.Fatalf("clients = %d, want 2", n)
	}

	status, client := call(t, srv, testCall{method: http.MethodGet, path: "/backoffice/clients/" + SeedTenantID, token: token})
	if status != http.StatusOK || client.Get("company_name").String() != "Acme Dental" {
		t.Fatalf("get client = %d %s", status, client.Raw)
	}
	if !client.Get("is_active").Bool() {
		t.Fatal("expected seeded tenant to be active")
	}

	status, toggled := call(t, srv, testCall{method: http.MethodPost, path: "/backoffice/clients/" + SeedTenantID + "/toggle-status", token: token})
	if status != http.StatusOK || toggled.Get("client.is_active").Bool() {
		t.Fatalf("toggle = %d %s", status, toggled.Raw)
	}

	status, _ = call(t, srv, testCall{method: http.MethodGet, path: "/backoffice/clients/tenant-missing", token: token})
	if status != http.StatusNotFound {
		t.Fatalf("missing client status = %d, want 404", status)
	}

	_, logs := call(t, srv, testCall{method: http.MethodGet, path: "/auth/activity-logs/global", token: token})
	if got := logs.Get("logs.0.action").String(); got != "client_deactivated" {
		t.Fatalf("latest log = %q, want client_deactivated", got)
	}
	if got := logs.Get("logs.0.client_name").String(); got != "Acme Dental" {
		t.Fatalf("latest log client = %q", got)
	}
}

func TestInviteRequiresOperatorDomain(t *testing.T) {
	backend, srv := newTestBackend(t)
	token := login(t, srv, SeedOperatorEmail, SeedOperatorPassword)

	status, body := call(t, srv, testCall{method: http.MethodPost, path: "/backoffice/invite", token: token, body: map[string]string{"name": "Eve", "email": "eve@example.test"}})
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if body.Get("error").String() == "" {
		t.Fatal("expected error message")
	}

	status, _ = call(t, srv, testCall{method: http.MethodPost, path: "/backoffice/invite", token: token, body: map[string]string{"name": "Eve", "email": "eve@smartagesolutions.com"}})
	if status != http.StatusCreated {
		t.Fatalf("status = %d, want 201", status)
	}
	if got := backend.Store().Invitations(); len(got) != 1 || got[0].Email != "eve@smartagesolutions.com" {
		t.Fatalf("invitations = %+v", got)
	}
}

func TestAppointmentsPaginateAndFilter(t *testing.T) {
	_, srv := newTestBackend(t)
	token := login(t, srv, SeedClientEmail, SeedClientPassword)

	_, page := call(t, srv, testCall{method: http.MethodGet, path: "/appointments?page=2&per_page=10", token: token})
	if got := len(page.Get("appointments").Array()); got != 4 {
		t.Fatalf("page 2 items = %d, want 4", got)
	}
	if got := page.Get("pagination.total_pages").Int(); got != 2 {
		t.Fatalf("total_pages = %d, want 2", got)
	}
	if got := page.Get("pagination.total_items").Int(); got != 14 {
		t.Fatalf("total_items = %d, want 14", got)
	}

	_, filtered := call(t, srv, testCall{method: http.MethodGet, path: "/appointments?status=cancelled&per_page=50", token: token})
	for _, item := range filtered.Get("appointments").Array() {
		if item.Get("status").String() != "cancelled" {
			t.Fatalf("unexpected status in %s", item.Raw)
		}
	}
	if got := filtered.Get("pagination.total_items").Int(); got != 3 {
		t.Fatalf("cancelled items = %d, want 3", got)
	}
}

func TestRevokeAllExpiresIssuedTokens(t *testing.T) {
	backend, srv := newTestBackend(t)
	token := login(t, srv, SeedClientEmail, SeedClientPassword)

	backend.RevokeAll()
	status, _ := call(t, srv, testCall{method: http.MethodGet, path: "/auth/profile", token: token})
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}

	fresh := login(t, srv, SeedClientEmail, SeedClientPassword)
	status, _ = call(t, srv, testCall{method: http.MethodGet, path: "/auth/profile", token: fresh})
	if status != http.StatusOK {
		t.Fatalf("fresh token status = %d, want 200", status)
	}
}

func TestFailPathAndRecording(t *testing.T) {
	backend, srv := newTestBackend(t)
	token := login(t, srv, SeedOperatorEmail, SeedOperatorPassword)
	backend.Reset()

	backend.FailPath("/backoffice/clients", http.StatusServiceUnavailable, "maintenance")
	status, body := call(t, srv, testCall{method: http.MethodGet, path: "/backoffice/clients", token: token, impersonate: SeedTenantID})
	if status != http.StatusServiceUnavailable || body.Get("error").String() != "maintenance" {
		t.Fatalf("injected failure = %d %s", status, body.Raw)
	}

	recorded := backend.RequestsTo("/backoffice")
	if len(recorded) != 1 {
		t.Fatalf("recorded = %d, want 1", len(recorded))
	}
	if recorded[0].Authorization != "Bearer "+token {
		t.Fatalf("authorization = %q", recorded[0].Authorization)
	}
	if recorded[0].Impersonate != SeedTenantID {
		t.Fatalf("impersonate = %q", recorded[0].Impersonate)
	}

	backend.Reset()
	if len(backend.Requests()) != 0 {
		t.Fatal("expected reset to clear recordings")
	}
}

func TestTokenSignerRejectsForeignTokens(t *testing.T) {
	now := time.Now()
	signer := tokenSigner{secret: []byte("first-secret-first-secret-first!"), ttl: time.Hour, now: func() time.Time { return now }}
	other := tokenSigner{secret: []byte("other-secret-other-secret-other!"), ttl: time.Hour, now: signer.now}
	account := Account{ID: "user-1", Email: "a@example.test"}

	token, err := other.mint(account, 0)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := signer.verify(token); err == nil {
		t.Fatal("expected foreign signature to fail")
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: tokenIssuer, Subject: "user-1"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := signer.verify(unsigned); err == nil {
		t.Fatal("expected alg none to fail")
	}

	expired := tokenSigner{secret: signer.secret, ttl: time.Hour, now: func() time.Time { return now.Add(-2 * time.Hour) }}
	old, err := expired.mint(account, 0)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := signer.verify(old); err == nil {
		t.Fatal("expected expired token to fail")
	}

	good, err := signer.mint(account, 3)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	claims, err := signer.verify(good)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "user-1" || claims.Generation != 3 || claims.Kind != "client" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestAppointmentWritesStayInTenant(t *testing.T) {
	backend, srv := newTestBackend(t)
	token := login(t, srv, SeedClientEmail, SeedClientPassword)

	status, body := call(t, srv, testCall{method: http.MethodPut, path: "/appointments/appt-acme-01", token: token, body: map[string]string{"status": "completed"}})
	if status != http.StatusOK {
		t.Fatalf("update status = %d, want 200", status)
	}
	if got := body.Get("appointment.status").String(); got != "completed" {
		t.Fatalf("updated status = %q", got)
	}

	status, _ = call(t, srv, testCall{method: http.MethodPut, path: "/appointments/appt-acme-01", token: token, body: map[string]string{"status": "lost"}})
	if status != http.StatusBadRequest {
		t.Fatalf("invalid status = %d, want 400", status)
	}

	status, _ = call(t, srv, testCall{method: http.MethodPut, path: "/appointments/appt-bloom-01", token: token, body: map[string]string{"status": "completed"}})
	if status != http.StatusNotFound {
		t.Fatalf("cross-tenant update = %d, want 404", status)
	}

	status, body = call(t, srv, testCall{method: http.MethodDelete, path: "/appointments/appt-acme-02", token: token})
	if status != http.StatusOK || body.Get("appointment.status").String() != "cancelled" {
		t.Fatalf("cancel = %d %s", status, body.Raw)
	}
	status, _ = call(t, srv, testCall{method: http.MethodDelete, path: "/appointments/appt-acme-02", token: token})
	if status != http.StatusConflict {
		t.Fatalf("second cancel = %d, want 409", status)
	}

	actions := map[string]bool{}
	for _, entry := range backend.Store().Logs(SeedTenantID) {
		actions[entry.Action] = true
	}
	if !actions["appointment_updated"] || !actions["appointment_cancelled"] {
		t.Fatalf("logged actions = %v", actions)
	}
}

func TestOperatorAppointmentWritesNeedClientContext(t *testing.T) {
	_, srv := newTestBackend(t)
	token := login(t, srv, SeedOperatorEmail, SeedOperatorPassword)

	status, _ := call(t, srv, testCall{method: http.MethodDelete, path: "/appointments/appt-acme-01", token: token})
	if status != http.StatusForbidden {
		t.Fatalf("unscoped cancel = %d, want 403", status)
	}

	status, _ = call(t, srv, testCall{method: http.MethodDelete, path: "/appointments/appt-acme-01", token: token, impersonate: SeedTenantID})
	if status != http.StatusOK {
		t.Fatalf("scoped cancel = %d, want 200", status)
	}
}

func TestInvitationAcceptFlow(t *testing.T) {
	backend, srv := newTestBackend(t)
	token := login(t, srv, SeedOperatorEmail, SeedOperatorPassword)

	status, _ := call(t, srv, testCall{method: http.MethodPost, path: "/backoffice/invite", token: token, body: map[string]string{"name": "Eve", "email": "eve@smartagesolutions.com"}})
	if status != http.StatusCreated {
		t.Fatalf("invite = %d, want 201", status)
	}
	invitations := backend.Store().Invitations()
	if len(invitations) != 1 || invitations[0].Token == "" {
		t.Fatalf("invitations = %+v", invitations)
	}
	invite := invitations[0].Token

	status, body := call(t, srv, testCall{method: http.MethodGet, path: "/auth/invite/verify/" + invite})
	if status != http.StatusOK || body.Get("user.email").String() != "eve@smartagesolutions.com" {
		t.Fatalf("verify = %d %s", status, body.Raw)
	}
	if status, _ := call(t, srv, testCall{method: http.MethodGet, path: "/auth/invite/verify/unknown"}); status != http.StatusNotFound {
		t.Fatalf("unknown verify = %d, want 404", status)
	}

	status, _ = call(t, srv, testCall{method: http.MethodPost, path: "/auth/invite/accept", body: map[string]string{"token": invite, "password": "short"}})
	if status != http.StatusBadRequest {
		t.Fatalf("short password = %d, want 400", status)
	}

	status, body = call(t, srv, testCall{method: http.MethodPost, path: "/auth/invite/accept", body: map[string]string{"token": invite, "password": "longpassword"}})
	if status != http.StatusCreated {
		t.Fatalf("accept = %d %s", status, body.Raw)
	}
	if got := body.Get("user.name").String(); got != "Eve" {
		t.Fatalf("accepted name = %q", got)
	}

	status, _ = call(t, srv, testCall{method: http.MethodPost, path: "/auth/invite/accept", body: map[string]string{"token": invite, "password": "longpassword"}})
	if status != http.StatusNotFound {
		t.Fatalf("reused invitation = %d, want 404", status)
	}

	if login(t, srv, "eve@smartagesolutions.com", "longpassword") == "" {
		t.Fatal("expected the new operator to sign in")
	}
}
