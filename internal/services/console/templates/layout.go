package templates

import (
	"context"
	"io"
	"strings"
	"unicode"

	"github.com/a-h/templ"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/console/apiclient"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/services/console/routepath"
)

// NavItem is one sidebar link.
type NavItem struct {
	Href     string
	LabelKey string
}

// ClientNav lists the tenant views.
var ClientNav = []NavItem{
	{Href: routepath.Root, LabelKey: "nav.dashboard"},
	{Href: routepath.Calendar, LabelKey: "nav.calendar"},
	{Href: routepath.Appointments, LabelKey: "nav.appointments"},
	{Href: routepath.EmailTemplates, LabelKey: "nav.email_templates"},
	{Href: routepath.Users, LabelKey: "nav.users"},
	{Href: routepath.Settings, LabelKey: "nav.settings"},
}

// BackofficeNav lists the operator views.
var BackofficeNav = []NavItem{
	{Href: routepath.Backoffice, LabelKey: "nav.client_management"},
	{Href: routepath.BackofficeLogs, LabelKey: "nav.global_logs"},
	{Href: routepath.BackofficeInvite, LabelKey: "nav.invite"},
}

// Chrome renders the page shell around body. For a client-scoped path the
// session may not view, the impersonation placeholder replaces body and
// body is never rendered.
func Chrome(page PageContext, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(w)
		h.raw(`<!doctype html><html ` + attr("lang", page.Lang) + `><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		title := page.T("app.title")
		if page.TitleKey != "" {
			title = page.T(page.TitleKey) + " · " + title
		}
		h.el("title", "", title)
		h.raw(`<link rel="stylesheet" ` + attr("href", routepath.StaticPrefix+"console.css") + `></head><body>`)

		if !page.Access.Authenticated() {
			h.raw(`<main class="auth-shell">`)
			h.render(ctx, NoticeView(page))
			h.render(ctx, body)
			h.raw(`</main></body></html>`)
			return h.err
		}

		h.raw(`<div class="layout">`)
		h.render(ctx, Sidebar(page))
		h.raw(`<div class="content">`)
		h.render(ctx, Banner(page))
		h.render(ctx, NoticeView(page))
		h.raw(`<main class="page">`)
		if page.Blocked() {
			h.render(ctx, Placeholder(page))
		} else {
			h.render(ctx, body)
		}
		h.raw(`</main></div></div></body></html>`)
		return h.err
	})
}

// Sidebar renders navigation for the session. Tenant links appear when
// the session may view client pages, operator links for every backoffice
// user.
func Sidebar(page PageContext) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := newHTML(w)
		h.raw(`<aside class="sidebar">`)
		h.el("div", `class="brand"`, page.T("app.title"))
		if page.Access.ClientViewAllowed {
			navSection(h, page, "nav.section.client", ClientNav)
		}
		if page.Access.IsBackofficeUser {
			navSection(h, page, "nav.section.backoffice", BackofficeNav)
		}

		account := page.Access.Identity.Principal
		h.raw(`<div class="sidebar-footer">`)
		if account != nil {
			user := account.Account()
			h.el("span", `class="avatar"`, Initials(user.Name, user.Email))
			h.raw(`<div class="who">`)
			h.el("div", `class="who-name"`, user.Name)
			h.el("div", `class="who-email"`, user.Email)
			h.raw(`</div>`)
		}
		h.raw(`<div class="lang">`)
		h.raw(`<a ` + attr("href", languageURL(page, "en-US")) + `>EN</a> `)
		h.raw(`<a ` + attr("href", languageURL(page, "pt-BR")) + `>PT</a>`)
		h.raw(`</div>`)
		postButton(h, routepath.Logout, "btn btn-ghost btn-sm", page.T("nav.sign_out"))
		h.raw(`</div></aside>`)
		return h.err
	})
}

func navSection(h *htmlWriter, page PageContext, titleKey string, items []NavItem) {
	h.raw(`<nav class="menu">`)
	h.el("h3", `class="menu-title"`, page.T(titleKey))
	h.raw(`<ul>`)
	for _, item := range items {
		class := "menu-link"
		if item.Href == page.CurrentPath {
			class += " active"
		}
		h.raw(`<li><a ` + attr("class", class) + ` ` + attr("href", item.Href) + `>`)
		h.text(page.T(item.LabelKey))
		h.raw(`</a></li>`)
	}
	h.raw(`</ul></nav>`)
}

func languageURL(page PageContext, tag string) string {
	path := page.CurrentPath
	if path == "" {
		path = routepath.Root
	}
	return path + "?lang=" + tag
}

// Banner renders the impersonation banner with its Stop control.
func Banner(page PageContext) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if !page.Access.IsImpersonating {
			return nil
		}
		name := page.Access.Target.DisplayName
		if name == "" {
			name = page.Access.Target.TenantID
		}
		h := newHTML(w)
		h.raw(`<div class="impersonation-banner" role="status">`)
		h.el("span", "", page.T("banner.impersonating", name))
		postButton(h, routepath.ImpersonationStop, "btn btn-warning btn-sm", page.T("banner.stop"))
		h.raw(`</div>`)
		return h.err
	})
}

// NoticeView renders the pending flash notice, if any.
func NoticeView(page PageContext) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if page.Notice == nil {
			return nil
		}
		text := page.T(page.Notice.Key)
		if page.Notice.Detail != "" {
			text += ": " + page.Notice.Detail
		}
		h := newHTML(w)
		h.el("div", attr("class", "alert alert-"+string(page.Notice.Kind))+` role="alert"`, text)
		return h.err
	})
}

// Placeholder is shown in place of a client page while a backoffice
// operator is not impersonating.
func Placeholder(page PageContext) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := newHTML(w)
		h.raw(`<section class="placeholder" data-guard="impersonation-required">`)
		h.el("h1", "", page.T("placeholder.title"))
		h.el("p", "", page.T("placeholder.body"))
		h.el("a", `class="btn btn-primary" `+attr("href", routepath.Backoffice), page.T("placeholder.link"))
		h.raw(`</section>`)
		return h.err
	})
}

// Forbidden is shown to a principal outside the backoffice.
func Forbidden(page PageContext) templ.Component {
	return messagePage(page, "forbidden.title", "forbidden.body", routepath.Root, "forbidden.link")
}

// NotFound is the 404 body.
func NotFound(page PageContext) templ.Component {
	return messagePage(page, "notfound.title", "notfound.body", routepath.Root, "notfound.link")
}

func messagePage(page PageContext, titleKey, bodyKey, href, linkKey string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := newHTML(w)
		h.raw(`<section class="message-page">`)
		h.el("h1", "", page.T(titleKey))
		h.el("p", "", page.T(bodyKey))
		h.el("a", attr("href", href)+` class="btn"`, page.T(linkKey))
		h.raw(`</section>`)
		return h.err
	})
}

// Alert renders an inline error block.
func Alert(text string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := newHTML(w)
		h.el("div", `class="alert alert-error" role="alert"`, text)
		return h.err
	})
}

// Lazy loads data while rendering and hands it to view. A load failure
// renders an inline alert, except an unauthorized failure which aborts
// the render so the caller can send the browser to sign-in.
func Lazy[T any](page PageContext, load func(context.Context) (T, error), view func(T) templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		data, err := load(ctx)
		if err != nil {
			if apiclient.IsUnauthorized(err) {
				return err
			}
			return Alert(page.T("error.load_failed")+": "+err.Error()).Render(ctx, w)
		}
		return view(data).Render(ctx, w)
	})
}

// Initials returns up to two uppercase initials for the sidebar avatar.
func Initials(name, email string) string {
	var out []rune
	for _, word := range strings.Fields(name) {
		for _, r := range word {
			out = append(out, unicode.ToUpper(r))
			break
		}
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		for _, r := range email {
			return string(unicode.ToUpper(r))
		}
		return "?"
	}
	return string(out)
}

// heading renders the page title block.
func heading(h *htmlWriter, page PageContext, titleKey, subtitle string) {
	h.raw(`<header class="page-header">`)
	h.el("h1", "", page.T(titleKey))
	if subtitle != "" {
		h.el("p", `class="muted"`, subtitle)
	}
	h.raw(`</header>`)
}
