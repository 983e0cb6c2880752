package console

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/console/apiclient"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/console/identity"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/console/impersonation"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/platform/i18n"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/services/console/platform/flash"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/services/console/platform/httpx"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/services/console/routepath"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/services/console/templates"
)

// OperatorEmailDomain is the only domain backoffice invitations may target.
const OperatorEmailDomain = "@smartagesolutions.com"

func (h *handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	next := routepath.SafeNext(r.URL.Query().Get("next"))
	if state := sess.Identity().State(); state.Status == identity.StatusAuthenticated {
		httpx.WriteRedirect(w, r, afterSignIn(state, next))
		return
	}
	page := h.page(w, r, "login.title")
	h.render(w, r, http.StatusOK, page, templates.LoginPage(page, templates.LoginView{Next: next}))
}

func (h *handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	view := templates.LoginView{
		Email: strings.TrimSpace(r.PostForm.Get("email")),
		Next:  routepath.SafeNext(r.PostForm.Get("next")),
	}
	password := r.PostForm.Get("password")
	page := h.page(w, r, "login.title")
	if view.Email == "" || password == "" {
		view.Error = page.T("login.missing_fields")
		h.render(w, r, http.StatusBadRequest, page, templates.LoginPage(page, view))
		return
	}

	state, err := sess.SignIn(r.Context(), apiclient.Credentials{Email: view.Email, Password: password})
	switch {
	case err == nil, errors.Is(err, identity.ErrAlreadyAuthenticated):
		httpx.WriteRedirect(w, r, afterSignIn(state, view.Next))
		return
	}

	log.Printf("sign in failed email_domain=%s err=%v", emailDomain(view.Email), err)
	status := apiclient.StatusOf(err)
	if status < http.StatusBadRequest {
		status = http.StatusBadGateway
	}
	view.Error = err.Error()
	var apiErr *apiclient.Error
	if !errors.As(err, &apiErr) {
		view.Error = page.T("error.generic")
	}
	h.render(w, r, status, page, templates.LoginPage(page, view))
}

func afterSignIn(state identity.State, next string) string {
	if next != "" {
		return next
	}
	return landing(state)
}

func emailDomain(email string) string {
	if at := strings.LastIndex(email, "@"); at >= 0 {
		return email[at+1:]
	}
	return "-"
}

func (h *handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := sessionFrom(r).SignOut(r.Context()); err != nil {
		log.Printf("sign out err=%v", err)
	}
	h.flash.Write(w, r, flash.Notice{Kind: flash.KindInfo, Key: "notice.signed_out"})
	httpx.WriteRedirect(w, r, routepath.Login)
}

func (h *handler) handleImpersonate(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	clientID := strings.TrimSpace(chi.URLParam(r, "clientID"))
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(r.PostForm.Get("name"))
	if name == "" && clientID != "" {
		client, err := sess.API().GetBackofficeClient(r.Context(), clientID)
		if err != nil {
			h.fail(w, r, err, routepath.Backoffice, "notice.impersonation_failed")
			return
		}
		name = client.CompanyName
	}

	nav, err := sess.Impersonation().Start(r.Context(), impersonation.Target{TenantID: clientID, DisplayName: name})
	if err != nil {
		h.fail(w, r, err, routepath.Backoffice, "notice.impersonation_failed")
		return
	}
	h.flash.Write(w, r, flash.Success("notice.impersonation_started"))
	httpx.WriteRedirect(w, r, nav.Location)
}

func (h *handler) handleStopImpersonation(w http.ResponseWriter, r *http.Request) {
	nav, err := sessionFrom(r).Impersonation().Stop(r.Context())
	if err != nil {
		h.fail(w, r, err, routepath.Root, "error.generic")
		return
	}
	h.flash.Write(w, r, flash.Notice{Kind: flash.KindInfo, Key: "notice.impersonation_stopped"})
	httpx.WriteRedirect(w, r, nav.Location)
}

func (h *handler) handleToggleStatus(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	if err := sessionFrom(r).API().ToggleClientStatus(r.Context(), clientID); err != nil {
		h.fail(w, r, err, routepath.Backoffice, "notice.toggle_failed")
		return
	}
	h.flash.Write(w, r, flash.Success("notice.status_toggled"))
	httpx.WriteRedirect(w, r, routepath.Backoffice)
}

func (h *handler) handleInvite(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	view := templates.InviteView{
		Name:  strings.TrimSpace(r.PostForm.Get("name")),
		Email: strings.TrimSpace(r.PostForm.Get("email")),
	}
	if view.Name == "" || !strings.HasSuffix(strings.ToLower(view.Email), OperatorEmailDomain) {
		h.renderInvite(w, r, http.StatusBadRequest, view, flash.Error("notice.invite_domain", ""))
		return
	}

	err := sessionFrom(r).API().InviteBackofficeUser(r.Context(), apiclient.Invitation{Name: view.Name, Email: view.Email})
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			h.redirectToLogin(w, r)
			return
		}
		status := apiclient.StatusOf(err)
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		h.renderInvite(w, r, status, view, flash.Error("notice.invite_failed", err.Error()))
		return
	}
	h.flash.Write(w, r, flash.Success("notice.invite_sent"))
	httpx.WriteRedirect(w, r, routepath.Backoffice)
}

func (h *handler) renderInvite(w http.ResponseWriter, r *http.Request, status int, view templates.InviteView, notice flash.Notice) {
	page := h.page(w, r, "invite.title")
	page.Notice = &notice
	h.render(w, r, status, page, templates.InvitePage(page, view))
}

func (h *handler) handleAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "appointmentID")
	status := strings.TrimSpace(r.PostForm.Get("status"))
	if err := sessionFrom(r).API().UpdateAppointmentStatus(r.Context(), id, status); err != nil {
		h.fail(w, r, err, routepath.Appointments, "notice.appointment_failed")
		return
	}
	h.flash.Write(w, r, flash.Success("notice.appointment_updated"))
	httpx.WriteRedirect(w, r, routepath.Appointments)
}

func (h *handler) handleCancelAppointment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "appointmentID")
	if err := sessionFrom(r).API().CancelAppointment(r.Context(), id); err != nil {
		h.fail(w, r, err, routepath.Appointments, "notice.appointment_failed")
		return
	}
	h.flash.Write(w, r, flash.Success("notice.appointment_cancelled"))
	httpx.WriteRedirect(w, r, routepath.Appointments)
}

// minPasswordLength mirrors the backend's rule so the form can fail early.
const minPasswordLength = 8

func (h *handler) handleInvitationPage(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		h.rejectInvitation(w, r, nil)
		return
	}
	details, err := sessionFrom(r).API().VerifyInvitation(r.Context(), token)
	if err != nil {
		h.rejectInvitation(w, r, err)
		return
	}
	h.renderInvitation(w, r, http.StatusOK, templates.InvitationView{
		Token:        token,
		Email:        details.Email,
		Name:         details.Name,
		Organization: details.Organization,
	})
}

func (h *handler) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	view := templates.InvitationView{
		Token:        strings.TrimSpace(r.PostForm.Get("token")),
		Email:        strings.TrimSpace(r.PostForm.Get("email")),
		Name:         strings.TrimSpace(r.PostForm.Get("name")),
		Organization: strings.TrimSpace(r.PostForm.Get("organization")),
	}
	if view.Token == "" {
		h.rejectInvitation(w, r, nil)
		return
	}
	password := r.PostForm.Get("password")
	loc := i18n.Printer(languageFrom(r))
	switch {
	case view.Name == "" || password == "":
		view.Error = templates.T(loc, "invitation.missing_fields")
	case password != r.PostForm.Get("confirm"):
		view.Error = templates.T(loc, "invitation.mismatch")
	case len(password) < minPasswordLength:
		view.Error = templates.T(loc, "invitation.too_short", minPasswordLength)
	}
	if view.Error != "" {
		h.renderInvitation(w, r, http.StatusBadRequest, view)
		return
	}

	err := sessionFrom(r).API().AcceptInvitation(r.Context(), apiclient.InvitationAcceptance{
		Token:    view.Token,
		Name:     view.Name,
		Password: password,
	})
	if err != nil {
		status := apiclient.StatusOf(err)
		if status == http.StatusNotFound {
			h.rejectInvitation(w, r, err)
			return
		}
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		log.Printf("accept invitation failed err=%v", err)
		view.Error = err.Error()
		h.renderInvitation(w, r, status, view)
		return
	}
	h.flash.Write(w, r, flash.Success("notice.invitation_accepted"))
	httpx.WriteRedirect(w, r, routepath.Login)
}

// rejectInvitation sends a visitor with an unusable token to sign-in.
func (h *handler) rejectInvitation(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		log.Printf("invitation rejected err=%v", err)
	}
	h.flash.Write(w, r, flash.Error("notice.invitation_invalid", ""))
	httpx.WriteRedirect(w, r, routepath.Login)
}

func (h *handler) renderInvitation(w http.ResponseWriter, r *http.Request, status int, view templates.InvitationView) {
	page := h.page(w, r, "invitation.title")
	h.render(w, r, status, page, templates.InvitationAcceptPage(page, view))
}
