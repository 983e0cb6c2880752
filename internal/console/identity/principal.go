// Package identity resolves the authenticated principal of a console
// session from its persisted credential.
package identity

import "fmt"

// Kind tags which principal variant a session resolved to.
type Kind string

const (
	// KindClient is a user belonging to one tenant.
	KindClient Kind = "client"
	// KindBackoffice is a platform operator that manages tenants.
	KindBackoffice Kind = "backoffice"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindClient || k == KindBackoffice
}

// User is the account behind a principal.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Tenant is a client organization record as returned by the backend.
type Tenant struct {
	ID          string `json:"id"`
	CompanyName string `json:"companyName"`
	Email       string `json:"email"`
	Status      string `json:"status"`
}

// Principal is the authenticated identity of a session. The set of
// implementations is closed: ClientPrincipal and BackofficePrincipal.
type Principal interface {
	Kind() Kind
	Account() User
	sealed()
}

// ClientPrincipal is a user acting inside their own tenant.
type ClientPrincipal struct {
	User   User
	Tenant Tenant
}

// Kind returns KindClient.
func (ClientPrincipal) Kind() Kind {
	return KindClient
}

// Account returns the signed-in user.
func (p ClientPrincipal) Account() User {
	return p.User
}

// TenantID returns the tenant the user belongs to.
func (p ClientPrincipal) TenantID() string {
	return p.Tenant.ID
}

func (ClientPrincipal) sealed() {}

// BackofficePrincipal is a platform operator without an own tenant scope.
type BackofficePrincipal struct {
	User User
}

// Kind returns KindBackoffice.
func (BackofficePrincipal) Kind() Kind {
	return KindBackoffice
}

// Account returns the operator's user record.
func (p BackofficePrincipal) Account() User {
	return p.User
}

func (BackofficePrincipal) sealed() {}

// Status is the resolver lifecycle position.
type Status int

const (
	StatusUninitialized Status = iota
	StatusResolving
	StatusAuthenticated
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusResolving:
		return "resolving"
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// State is a snapshot of the resolver. Principal is non-nil exactly when
// Status is StatusAuthenticated.
type State struct {
	Status    Status
	Principal Principal
}

// Resolved reports whether resolution has finished either way.
func (s State) Resolved() bool {
	return s.Status == StatusAuthenticated || s.Status == StatusUnauthenticated
}

// IsBackofficeUser reports whether the state holds a backoffice principal.
func (s State) IsBackofficeUser() bool {
	return s.Principal != nil && s.Principal.Kind() == KindBackoffice
}

// IsClientUser reports whether the state holds a client principal.
func (s State) IsClientUser() bool {
	return s.Principal != nil && s.Principal.Kind() == KindClient
}
