package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/services/console/routepath"
)

// LoginView holds the sign-in form state.
type LoginView struct {
	Email string
	Next  string
	// Error is the backend's message for a rejected attempt.
	Error string
}

// LoginPage renders the sign-in form.
func LoginPage(page PageContext, view LoginView) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := newHTML(w)
		h.raw(`<section class="card login-card">`)
		h.el("h1", "", page.T("login.title"))
		h.el("p", `class="muted"`, page.T("login.subtitle"))
		if view.Error != "" {
			h.el("div", `class="alert alert-error" role="alert"`, page.T("login.failed")+": "+view.Error)
		}
		h.raw(`<form method="post" ` + attr("action", routepath.Login) + ` class="form">`)
		if view.Next != "" {
			hiddenInput(h, "next", view.Next)
		}
		h.raw(`<label>`)
		h.el("span", "", page.T("login.email"))
		h.raw(`<input type="email" name="email" required autocomplete="username" ` + attr("value", view.Email) + `>`)
		h.raw(`</label><label>`)
		h.el("span", "", page.T("login.password"))
		h.raw(`<input type="password" name="password" required autocomplete="current-password">`)
		h.raw(`</label>`)
		h.el("button", `type="submit" class="btn btn-primary"`, page.T("login.submit"))
		h.raw(`</form></section>`)
		return h.err
	})
}

// InvitationView holds the invitation acceptance form state.
type InvitationView struct {
	Token        string
	Email        string
	Name         string
	Organization string
	Error        string
}

// InvitationAcceptPage renders the form where an invited operator picks
// their name and password.
func InvitationAcceptPage(page PageContext, view InvitationView) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := newHTML(w)
		h.raw(`<section class="card login-card" data-page="invitation-accept">`)
		h.el("h1", "", page.T("invitation.title"))
		h.el("p", `class="muted"`, page.T("invitation.subtitle", view.Organization, view.Email))
		if view.Error != "" {
			h.el("div", `class="alert alert-error" role="alert"`, view.Error)
		}
		h.raw(`<form method="post" ` + attr("action", routepath.InvitationAccept) + ` class="form">`)
		hiddenInput(h, "token", view.Token)
		hiddenInput(h, "email", view.Email)
		hiddenInput(h, "organization", view.Organization)
		h.raw(`<label>`)
		h.el("span", "", page.T("invitation.name"))
		h.raw(`<input type="text" name="name" required autocomplete="name" ` + attr("value", view.Name) + `>`)
		h.raw(`</label><label>`)
		h.el("span", "", page.T("invitation.password"))
		h.raw(`<input type="password" name="password" required minlength="8" autocomplete="new-password">`)
		h.raw(`</label><label>`)
		h.el("span", "", page.T("invitation.confirm"))
		h.raw(`<input type="password" name="confirm" required minlength="8" autocomplete="new-password">`)
		h.raw(`</label>`)
		h.el("button", `type="submit" class="btn btn-primary"`, page.T("invitation.submit"))
		h.raw(`</form></section>`)
		return h.err
	})
}
