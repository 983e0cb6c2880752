package access

import "net/http"

// Decision is the outcome of guarding a view.
type Decision int

const (
	// DecisionPending means identity is still resolving; render nothing.
	DecisionPending Decision = iota
	// DecisionSignIn sends an unauthenticated session to sign-in.
	DecisionSignIn
	// DecisionPlaceholder renders the chrome with the blocking placeholder
	// instead of the page body.
	DecisionPlaceholder
	// DecisionForbidden rejects a principal that may never see the view.
	DecisionForbidden
	// DecisionMount renders the page body.
	DecisionMount
)

func (d Decision) String() string {
	switch d {
	case DecisionPending:
		return "pending"
	case DecisionSignIn:
		return "sign_in"
	case DecisionPlaceholder:
		return "placeholder"
	case DecisionForbidden:
		return "forbidden"
	case DecisionMount:
		return "mount"
	default:
		return "unknown"
	}
}

// Decide guards a client-scoped view.
func Decide(s State) Decision {
	if d, ok := decideIdentity(s); !ok {
		return d
	}
	if !s.ClientViewAllowed {
		return DecisionPlaceholder
	}
	return DecisionMount
}

// DecideBackoffice guards a backoffice-only view.
func DecideBackoffice(s State) Decision {
	if d, ok := decideIdentity(s); !ok {
		return d
	}
	if !s.IsBackofficeUser {
		return DecisionForbidden
	}
	return DecisionMount
}

func decideIdentity(s State) (Decision, bool) {
	if !s.Identity.Resolved() {
		return DecisionPending, false
	}
	if !s.Authenticated() {
		return DecisionSignIn, false
	}
	return DecisionMount, true
}

// StateFunc returns the access state for the request being served.
type StateFunc func(r *http.Request) State

// DeniedFunc renders any decision other than DecisionMount.
type DeniedFunc func(w http.ResponseWriter, r *http.Request, d Decision)

// RequireClientView wraps a client-scoped page handler. The wrapped handler
// is never invoked unless the decision is DecisionMount, so none of its
// tenant-scoped fetches run for a backoffice operator who is not
// impersonating.
func RequireClientView(state StateFunc, denied DeniedFunc) func(http.Handler) http.Handler {
	return require(Decide, state, denied)
}

// RequireBackoffice wraps a backoffice-only page handler.
func RequireBackoffice(state StateFunc, denied DeniedFunc) func(http.Handler) http.Handler {
	return require(DecideBackoffice, state, denied)
}

func require(decide func(State) Decision, state StateFunc, denied DeniedFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if d := decide(state(r)); d != DecisionMount {
				denied(w, r, d)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
