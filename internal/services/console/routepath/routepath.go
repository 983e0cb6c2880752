// Package routepath names the console's URL paths.
package routepath

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	Root         = "/"
	Healthz      = "/healthz"
	StaticPrefix = "/static/"
)

const (
	Login            = "/login"
	Logout           = "/logout"
	InvitationPrefix = "/invitation/"
	InvitationAccept = "/invitation/accept"
)

const (
	Calendar       = "/calendar"
	Appointments   = "/appointments"
	EmailTemplates = "/email-templates"
	Users          = "/users"
	Settings       = "/settings"
)

const (
	Backoffice        = "/backoffice"
	BackofficeLogs    = "/backoffice/logs"
	BackofficeInvite  = "/backoffice/invite"
	BackofficeClients = "/backoffice/clients/"
	ImpersonationStop = "/impersonation/stop"
)

// Route patterns with chi parameters.
const (
	AppointmentStatusPattern     = "/appointments/{appointmentID}/status"
	AppointmentCancelPattern     = "/appointments/{appointmentID}/cancel"
	BackofficeClientPattern      = "/backoffice/clients/{clientID}"
	BackofficeImpersonatePattern = "/backoffice/clients/{clientID}/impersonate"
	BackofficeTogglePattern      = "/backoffice/clients/{clientID}/toggle-status"
)

// CalendarMonth returns the calendar path for a YYYY-MM month.
func CalendarMonth(month string) string {
	if month == "" {
		return Calendar
	}
	return Calendar + "?" + url.Values{"month": {month}}.Encode()
}

// AppointmentsList returns one page of the appointment list, optionally
// filtered by status.
func AppointmentsList(status string, page int) string {
	values := url.Values{}
	if page > 1 {
		values.Set("page", strconv.Itoa(page))
	}
	if status != "" {
		values.Set("status", status)
	}
	if len(values) == 0 {
		return Appointments
	}
	return Appointments + "?" + values.Encode()
}

// AppointmentStatus returns the status update action of one appointment.
func AppointmentStatus(appointmentID string) string {
	return Appointments + "/" + url.PathEscape(appointmentID) + "/status"
}

// AppointmentCancel returns the cancel action of one appointment.
func AppointmentCancel(appointmentID string) string {
	return Appointments + "/" + url.PathEscape(appointmentID) + "/cancel"
}

// BackofficeClient returns the details path of one tenant.
func BackofficeClient(clientID string) string {
	return BackofficeClients + url.PathEscape(clientID)
}

// BackofficeClientImpersonate returns the action that starts impersonating a tenant.
func BackofficeClientImpersonate(clientID string) string {
	return BackofficeClient(clientID) + "/impersonate"
}

// BackofficeClientToggle returns the action that flips a tenant's status.
func BackofficeClientToggle(clientID string) string {
	return BackofficeClient(clientID) + "/toggle-status"
}

// InvitationAcceptWithToken returns the page where an invited operator
// sets their password.
func InvitationAcceptWithToken(token string) string {
	return InvitationAccept + "?" + url.Values{"token": {token}}.Encode()
}

// LoginWithNext returns the sign-in path that returns to next afterwards.
func LoginWithNext(next string) string {
	next = SafeNext(next)
	if next == "" || next == Root {
		return Login
	}
	return Login + "?" + url.Values{"next": {next}}.Encode()
}

// SafeNext returns next when it is a local path the console may redirect
// to, and "" otherwise.
func SafeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return ""
	}
	parsed, err := url.Parse(next)
	if err != nil || parsed.Scheme != "" || parsed.Host != "" {
		return ""
	}
	if parsed.Path == Login || parsed.Path == Logout {
		return ""
	}
	return next
}
