package templates

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/console/apiclient"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/services/console/routepath"
)

// ClientListView is the filtered tenant list.
type ClientListView struct {
	Clients []apiclient.BackofficeClient
	Filter  apiclient.ClientFilter
}

// ClientListPage renders client management with impersonate and status
// controls per tenant.
func ClientListPage(page PageContext, load func(context.Context) (ClientListView, error)) templ.Component {
	return Lazy(page, load, func(view ClientListView) templ.Component {
		return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
			h := newHTML(w)
			heading(h, page, "backoffice.title", page.T("backoffice.subtitle"))

			h.raw(`<form method="get" ` + attr("action", routepath.Backoffice) + ` class="toolbar">`)
			h.raw(`<input type="search" name="q" ` + attr("value", view.Filter.Search) + ` ` + attr("placeholder", page.T("backoffice.search")) + `>`)
			h.raw(`<select name="status">`)
			option(h, "", page.T("backoffice.filter.all"), view.Filter.Status == "")
			option(h, "active", StatusLabel(page.Loc, "active"), view.Filter.Status == "active")
			option(h, "inactive", StatusLabel(page.Loc, "inactive"), view.Filter.Status == "inactive")
			h.raw(`</select>`)
			h.el("button", `type="submit" class="btn btn-sm"`, page.T("backoffice.filter.apply"))
			h.raw(`</form>`)

			if len(view.Clients) == 0 {
				h.el("p", `class="muted"`, page.T("backoffice.empty"))
				return h.err
			}
			h.raw(`<table class="table"><thead><tr>`)
			for _, key := range []string{"backoffice.col.company", "backoffice.col.email", "backoffice.col.status", "backoffice.col.created", "backoffice.col.actions"} {
				h.el("th", "", page.T(key))
			}
			h.raw(`</tr></thead><tbody>`)
			for _, client := range view.Clients {
				h.raw(`<tr ` + attr("data-client-id", client.ID) + `>`)
				h.el("td", "", client.CompanyName)
				h.el("td", "", client.Email)
				h.el("td", "", StatusLabel(page.Loc, client.Status()))
				h.el("td", "", client.CreatedAt)
				h.raw(`<td class="actions">`)
				h.raw(`<form method="post" class="inline" ` + attr("action", routepath.BackofficeClientImpersonate(client.ID)) + `>`)
				hiddenInput(h, "name", client.CompanyName)
				h.el("button", `type="submit" class="btn btn-primary btn-sm"`, page.T("backoffice.impersonate"))
				h.raw(`</form>`)
				toggleKey := "backoffice.activate"
				if client.IsActive {
					toggleKey = "backoffice.deactivate"
				}
				postButton(h, routepath.BackofficeClientToggle(client.ID), "btn btn-sm", page.T(toggleKey))
				h.el("a", attr("href", routepath.BackofficeClient(client.ID))+` class="btn btn-ghost btn-sm"`, page.T("backoffice.details"))
				h.raw(`</td></tr>`)
			}
			h.raw(`</tbody></table>`)
			return h.err
		})
	})
}

// ClientDetailsPage renders one tenant's record.
func ClientDetailsPage(page PageContext, load func(context.Context) (apiclient.BackofficeClient, error)) templ.Component {
	return Lazy(page, load, func(client apiclient.BackofficeClient) templ.Component {
		return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
			h := newHTML(w)
			heading(h, page, "backoffice.details.title", client.CompanyName)
			definitions(h, page, [][2]string{
				{"backoffice.col.email", client.Email},
				{"backoffice.col.status", StatusLabel(page.Loc, client.Status())},
				{"backoffice.col.created", client.CreatedAt},
				{"backoffice.details.timezone", client.Timezone},
				{"backoffice.details.language", client.Language},
				{"backoffice.details.brand_color", client.BrandColor},
				{"backoffice.details.booking_window", strconv.Itoa(client.BookingWindowDays)},
			})
			h.raw(`<div class="toolbar">`)
			h.raw(`<form method="post" class="inline" ` + attr("action", routepath.BackofficeClientImpersonate(client.ID)) + `>`)
			hiddenInput(h, "name", client.CompanyName)
			h.el("button", `type="submit" class="btn btn-primary btn-sm"`, page.T("backoffice.impersonate"))
			h.raw(`</form>`)
			h.el("a", attr("href", routepath.Backoffice)+` class="btn btn-ghost btn-sm"`, page.T("backoffice.details.back"))
			h.raw(`</div>`)
			return h.err
		})
	})
}

// LogsPage renders the global activity log.
func LogsPage(page PageContext, load func(context.Context) ([]ActivityRow, error)) templ.Component {
	return Lazy(page, load, func(rows []ActivityRow) templ.Component {
		return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
			h := newHTML(w)
			heading(h, page, "logs.title", "")
			if len(rows) == 0 {
				h.el("p", `class="muted"`, page.T("logs.empty"))
				return h.err
			}
			table(h, page, []string{"logs.col.time", "logs.col.action", "logs.col.actor", "logs.col.client"}, len(rows), func(i int) []string {
				return []string{rows[i].Time, rows[i].Action, rows[i].Actor, rows[i].Client}
			})
			return h.err
		})
	})
}

// InviteView holds the invitation form state.
type InviteView struct {
	Name  string
	Email string
}

// InvitePage renders the operator invitation form.
func InvitePage(page PageContext, view InviteView) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := newHTML(w)
		heading(h, page, "invite.title", page.T("invite.subtitle"))
		h.raw(`<form method="post" ` + attr("action", routepath.BackofficeInvite) + ` class="form card"><label>`)
		h.el("span", "", page.T("invite.name"))
		h.raw(`<input type="text" name="name" required ` + attr("value", view.Name) + `>`)
		h.raw(`</label><label>`)
		h.el("span", "", page.T("invite.email"))
		h.raw(`<input type="email" name="email" required ` + attr("value", view.Email) + `>`)
		h.raw(`</label>`)
		h.el("p", `class="muted"`, page.T("invite.domain_hint"))
		h.el("button", `type="submit" class="btn btn-primary"`, page.T("invite.submit"))
		h.raw(`</form>`)
		return h.err
	})
}
