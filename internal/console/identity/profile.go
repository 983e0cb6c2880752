package identity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrMalformedProfile reports a profile payload that names no principal.
var ErrMalformedProfile = errors.New("identity: malformed profile")

// DecodeProfile turns a profile-lookup response body into a principal.
//
// An explicit "kind" field decides the variant. Payloads without one use
// the legacy shape: a nested "user" object means a client principal with
// its tenant under "client"; anything else is a bare backoffice user.
func DecodeProfile(data []byte) (Principal, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformedProfile)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: not an object", ErrMalformedProfile)
	}

	if kind := root.Get("kind"); kind.Exists() {
		switch Kind(strings.TrimSpace(kind.String())) {
		case KindClient:
			return clientFrom(root.Get("user"), root.Get("client"))
		case KindBackoffice:
			user := root.Get("user")
			if !user.Exists() {
				user = root
			}
			return backofficeFrom(user)
		default:
			return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformedProfile, kind.String())
		}
	}

	if user := root.Get("user"); user.Exists() {
		return clientFrom(user, root.Get("client"))
	}
	return backofficeFrom(root)
}

func clientFrom(user, tenant gjson.Result) (Principal, error) {
	p := ClientPrincipal{User: userFrom(user), Tenant: tenantFrom(tenant)}
	if p.User.ID == "" {
		return nil, fmt.Errorf("%w: client user id missing", ErrMalformedProfile)
	}
	if p.Tenant.ID == "" {
		return nil, fmt.Errorf("%w: client tenant id missing", ErrMalformedProfile)
	}
	return p, nil
}

func backofficeFrom(user gjson.Result) (Principal, error) {
	p := BackofficePrincipal{User: userFrom(user)}
	if p.User.ID == "" {
		return nil, fmt.Errorf("%w: backoffice user id missing", ErrMalformedProfile)
	}
	return p, nil
}

func userFrom(r gjson.Result) User {
	return User{
		ID:    r.Get("id").String(),
		Email: r.Get("email").String(),
		Name:  r.Get("name").String(),
	}
}

func tenantFrom(r gjson.Result) Tenant {
	return Tenant{
		ID:          r.Get("id").String(),
		CompanyName: r.Get("companyName").String(),
		Email:       r.Get("email").String(),
		Status:      r.Get("status").String(),
	}
}
