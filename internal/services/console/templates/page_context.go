package templates

import (
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/console/access"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/services/console/platform/flash"
)

// PageContext provides shared layout context for console pages.
type PageContext struct {
	Lang         string
	Loc          Localizer
	CurrentPath  string
	CurrentQuery string
	// TitleKey is the catalog key of the page heading.
	TitleKey string
	Access   access.State
	Notice   *flash.Notice
}

// T translates key with the page localizer.
func (p PageContext) T(key string, args ...any) string {
	return T(p.Loc, key, args...)
}

// Blocked reports whether the chrome must render the impersonation
// placeholder instead of the page body.
func (p PageContext) Blocked() bool {
	return p.Access.Authenticated() &&
		access.IsClientScopedPath(p.CurrentPath) &&
		!p.Access.ClientViewAllowed
}
