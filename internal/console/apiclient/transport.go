package apiclient

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

// ImpersonationHeader carries the impersonated tenant id.
const ImpersonationHeader = "X-Impersonate-Client-ID"

// CredentialSource yields the bearer token for the current session.
type CredentialSource interface {
	Credential(ctx context.Context) (string, bool, error)
}

// TargetSource yields the impersonated tenant id, if any.
type TargetSource interface {
	TenantID(ctx context.Context) (string, bool)
}

// impersonationTransport stamps the impersonation header from the target
// active when the request is sent.
type impersonationTransport struct {
	base     http.RoundTripper
	tenantID string
}

func (t *impersonationTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.tenantID == "" {
		return t.base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set(ImpersonationHeader, t.tenantID)
	return t.base.RoundTrip(clone)
}

// roundTripper assembles the per-request transport chain. The bearer token
// is attached by oauth2.Transport only when a credential exists.
func roundTripper(base http.RoundTripper, credential, tenantID string) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	var rt http.RoundTripper = &impersonationTransport{base: base, tenantID: tenantID}
	if credential != "" {
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: credential, TokenType: "Bearer"}),
			Base:   rt,
		}
	}
	return rt
}
