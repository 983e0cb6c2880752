package identity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingCredential reports a login result without an access token.
	ErrMissingCredential = errors.New("identity: login result has no access token")
	// ErrUnknownIdentityType reports a login result with an unsupported tag.
	ErrUnknownIdentityType = errors.New("identity: unknown identity type")
)

// LoginResult is the authentication endpoint's response.
type LoginResult struct {
	AccessToken  string  `json:"access_token"`
	IdentityType Kind    `json:"identity_type"`
	User         *User   `json:"user,omitempty"`
	Client       *Tenant `json:"client,omitempty"`
}

// Principal selects the principal shape named by IdentityType and fills it
// from the payload.
func (r LoginResult) Principal() (Principal, error) {
	if strings.TrimSpace(r.AccessToken) == "" {
		return nil, ErrMissingCredential
	}
	switch r.IdentityType {
	case KindClient:
		if r.Client == nil || r.Client.ID == "" {
			return nil, fmt.Errorf("%w: client login without tenant", ErrMalformedProfile)
		}
		p := ClientPrincipal{Tenant: *r.Client}
		if r.User != nil {
			p.User = *r.User
		}
		return p, nil
	case KindBackoffice:
		if r.User == nil || r.User.ID == "" {
			return nil, fmt.Errorf("%w: backoffice login without user", ErrMalformedProfile)
		}
		return BackofficePrincipal{User: *r.User}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownIdentityType, r.IdentityType)
	}
}
