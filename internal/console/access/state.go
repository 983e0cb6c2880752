// Package access derives what a session may see from its principal and
// impersonation target, and guards client-scoped views.
package access

import (
	"strings"

	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/console/identity"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/console/impersonation"
)

// State is recomputed on every read and never stored.
type State struct {
	Identity identity.State
	Target   impersonation.Target

	IsBackofficeUser bool
	IsClientUser     bool
	IsImpersonating  bool
	// EffectiveTenantScope is empty when no tenant scope applies.
	EffectiveTenantScope string
	ClientViewAllowed    bool
	// StaleTarget is set when a stored target was ignored because the
	// principal is not a backoffice operator; its owner should clear it.
	StaleTarget bool
}

// Derive computes the access state. A target only counts for a backoffice
// principal.
func Derive(id identity.State, target impersonation.Target, hasTarget bool) State {
	s := State{
		Identity:         id,
		IsBackofficeUser: id.IsBackofficeUser(),
		IsClientUser:     id.IsClientUser(),
	}
	if hasTarget {
		if s.IsBackofficeUser {
			s.Target = target
			s.IsImpersonating = true
		} else {
			s.StaleTarget = true
		}
	}

	switch {
	case s.IsImpersonating:
		s.EffectiveTenantScope = s.Target.TenantID
	case s.IsClientUser:
		if client, ok := id.Principal.(identity.ClientPrincipal); ok {
			s.EffectiveTenantScope = client.TenantID()
		}
	}

	s.ClientViewAllowed = s.IsClientUser || (s.IsBackofficeUser && s.IsImpersonating)
	return s
}

// Authenticated reports whether a principal is resolved.
func (s State) Authenticated() bool {
	return s.Identity.Status == identity.StatusAuthenticated
}

// IsClientScopedPath reports whether path belongs to the tenant views, that
// is everything outside the backoffice area and the public pages.
func IsClientScopedPath(path string) bool {
	switch {
	case path == "/backoffice" || strings.HasPrefix(path, "/backoffice/"):
		return false
	case path == "/login" || path == "/logout" || path == "/healthz":
		return false
	case strings.HasPrefix(path, "/impersonation/"), strings.HasPrefix(path, "/invitation/"), strings.HasPrefix(path, "/static/"):
		return false
	default:
		return true
	}
}
