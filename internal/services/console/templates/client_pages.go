package templates

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/services/console/routepath"
)

// AppointmentRow is one appointment formatted for display.
type AppointmentRow struct {
	ID      string
	Client  string
	Email   string
	Service string
	Date    string
	Time    string
	Status  string
}

// ActivityRow is one activity log entry.
type ActivityRow struct {
	Time   string
	Action string
	Actor  string
	Client string
}

// DashboardView summarises the tenant's day.
type DashboardView struct {
	Today             string
	TodayAppointments int
	TeamMembers       int
	Upcoming          []AppointmentRow
	Activity          []ActivityRow
}

// DashboardPage renders the tenant dashboard once load succeeds.
func DashboardPage(page PageContext, load func(context.Context) (DashboardView, error)) templ.Component {
	return Lazy(page, load, func(view DashboardView) templ.Component {
		return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
			h := newHTML(w)
			heading(h, page, "dashboard.title", page.T("dashboard.subtitle", view.Today))
			h.raw(`<div class="stats">`)
			stat(h, page.T("dashboard.today_appointments"), strconv.Itoa(view.TodayAppointments))
			stat(h, page.T("dashboard.team_members"), strconv.Itoa(view.TeamMembers))
			h.raw(`</div><div class="grid-2"><section class="card">`)
			h.el("h2", "", page.T("dashboard.upcoming"))
			if len(view.Upcoming) == 0 {
				h.el("p", `class="muted"`, page.T("dashboard.no_upcoming"))
			} else {
				h.raw(`<ul class="list">`)
				for _, row := range view.Upcoming {
					h.raw(`<li>`)
					h.el("strong", "", row.Client)
					h.text(" · " + row.Date + " " + row.Time + " · " + StatusLabel(page.Loc, row.Status))
					h.raw(`</li>`)
				}
				h.raw(`</ul>`)
			}
			h.raw(`</section><section class="card">`)
			h.el("h2", "", page.T("dashboard.recent_activity"))
			if len(view.Activity) == 0 {
				h.el("p", `class="muted"`, page.T("dashboard.no_activity"))
			} else {
				h.raw(`<ul class="list">`)
				for _, row := range view.Activity {
					h.raw(`<li>`)
					h.el("strong", "", row.Action)
					h.text(" · " + row.Time)
					h.raw(`</li>`)
				}
				h.raw(`</ul>`)
			}
			h.raw(`</section></div>`)
			return h.err
		})
	})
}

func stat(h *htmlWriter, label, value string) {
	h.raw(`<div class="stat">`)
	h.el("div", `class="stat-title"`, label)
	h.el("div", `class="stat-value"`, value)
	h.raw(`</div>`)
}

// CalendarDay groups the appointments of one date.
type CalendarDay struct {
	Date         string
	Appointments []AppointmentRow
}

// CalendarView is one month of appointments.
type CalendarView struct {
	Month     string
	PrevMonth string
	NextMonth string
	Days      []CalendarDay
}

// CalendarPage renders a month agenda.
func CalendarPage(page PageContext, load func(context.Context) (CalendarView, error)) templ.Component {
	return Lazy(page, load, func(view CalendarView) templ.Component {
		return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
			h := newHTML(w)
			heading(h, page, "calendar.title", view.Month)
			h.raw(`<div class="toolbar">`)
			h.el("a", attr("href", routepath.CalendarMonth(view.PrevMonth))+` class="btn btn-sm"`, page.T("calendar.previous"))
			h.el("a", attr("href", routepath.CalendarMonth(view.NextMonth))+` class="btn btn-sm"`, page.T("calendar.next"))
			h.raw(`</div>`)
			if len(view.Days) == 0 {
				h.el("p", `class="muted"`, page.T("calendar.empty"))
				return h.err
			}
			for _, day := range view.Days {
				h.raw(`<section class="card day">`)
				h.el("h2", "", day.Date)
				h.raw(`<ul class="list">`)
				for _, row := range day.Appointments {
					h.raw(`<li>`)
					h.el("strong", "", row.Time)
					h.text(" " + row.Client + " · " + row.Service + " · " + StatusLabel(page.Loc, row.Status))
					h.raw(`</li>`)
				}
				h.raw(`</ul></section>`)
			}
			return h.err
		})
	})
}

// AppointmentStatuses lists the status filter options.
var AppointmentStatuses = []string{"confirmed", "pending", "completed", "cancelled"}

// AppointmentsView is one page of the appointment list.
type AppointmentsView struct {
	Rows       []AppointmentRow
	Status     string
	Page       int
	TotalPages int
}

// AppointmentsPage renders the paginated appointment table.
func AppointmentsPage(page PageContext, load func(context.Context) (AppointmentsView, error)) templ.Component {
	return Lazy(page, load, func(view AppointmentsView) templ.Component {
		return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
			h := newHTML(w)
			heading(h, page, "appointments.title", "")
			h.raw(`<form method="get" ` + attr("action", routepath.Appointments) + ` class="toolbar"><label>`)
			h.el("span", "", page.T("appointments.filter.status"))
			h.raw(`<select name="status">`)
			option(h, "", page.T("appointments.filter.all"), view.Status == "")
			for _, status := range AppointmentStatuses {
				option(h, status, StatusLabel(page.Loc, status), view.Status == status)
			}
			h.raw(`</select></label>`)
			h.el("button", `type="submit" class="btn btn-sm"`, page.T("appointments.filter.apply"))
			h.raw(`</form>`)

			if len(view.Rows) == 0 {
				h.el("p", `class="muted"`, page.T("appointments.empty"))
				return h.err
			}
			appointmentTable(h, page, view.Rows)

			if view.TotalPages > 1 {
				h.raw(`<nav class="pagination">`)
				if view.Page > 1 {
					h.el("a", attr("href", routepath.AppointmentsList(view.Status, view.Page-1))+` class="btn btn-sm"`, page.T("appointments.previous"))
				}
				h.el("span", "", page.T("appointments.page", view.Page, view.TotalPages))
				if view.Page < view.TotalPages {
					h.el("a", attr("href", routepath.AppointmentsList(view.Status, view.Page+1))+` class="btn btn-sm"`, page.T("appointments.next"))
				}
				h.raw(`</nav>`)
			}
			return h.err
		})
	})
}

// appointmentTable renders the list with a status form and a cancel
// control per row. Finished appointments get no controls.
func appointmentTable(h *htmlWriter, page PageContext, rows []AppointmentRow) {
	h.raw(`<table class="table"><thead><tr>`)
	for _, key := range []string{
		"appointments.col.client", "appointments.col.email", "appointments.col.service",
		"appointments.col.date", "appointments.col.time", "appointments.col.status",
		"appointments.col.actions",
	} {
		h.el("th", "", page.T(key))
	}
	h.raw(`</tr></thead><tbody>`)
	for _, row := range rows {
		h.raw(`<tr ` + attr("data-appointment-id", row.ID) + `>`)
		for _, cell := range []string{row.Client, row.Email, row.Service, row.Date, row.Time, StatusLabel(page.Loc, row.Status)} {
			h.el("td", "", cell)
		}
		h.raw(`<td class="actions">`)
		if row.ID != "" && row.Status != "cancelled" && row.Status != "completed" {
			h.raw(`<form method="post" class="inline" ` + attr("action", routepath.AppointmentStatus(row.ID)) + `><select name="status">`)
			for _, status := range AppointmentStatuses {
				if status == "cancelled" {
					continue
				}
				option(h, status, StatusLabel(page.Loc, status), row.Status == status)
			}
			h.raw(`</select>`)
			h.el("button", `type="submit" class="btn btn-sm"`, page.T("appointments.update"))
			h.raw(`</form>`)
			postButton(h, routepath.AppointmentCancel(row.ID), "btn btn-ghost btn-sm", page.T("appointments.cancel"))
		}
		h.raw(`</td></tr>`)
	}
	h.raw(`</tbody></table>`)
}

func option(h *htmlWriter, value, label string, selected bool) {
	h.raw(`<option ` + attr("value", value))
	if selected {
		h.raw(` selected`)
	}
	h.raw(`>`)
	h.text(label)
	h.raw(`</option>`)
}

// table renders a localized header row and n body rows.
func table(h *htmlWriter, page PageContext, headerKeys []string, n int, cells func(int) []string) {
	h.raw(`<table class="table"><thead><tr>`)
	for _, key := range headerKeys {
		h.el("th", "", page.T(key))
	}
	h.raw(`</tr></thead><tbody>`)
	for i := 0; i < n; i++ {
		h.raw(`<tr>`)
		for _, cell := range cells(i) {
			h.el("td", "", cell)
		}
		h.raw(`</tr>`)
	}
	h.raw(`</tbody></table>`)
}

// TemplateRow is one email template.
type TemplateRow struct {
	Name    string
	Type    string
	Subject string
	Active  bool
}

// EmailTemplatesPage lists the tenant's email templates.
func EmailTemplatesPage(page PageContext, load func(context.Context) ([]TemplateRow, error)) templ.Component {
	return Lazy(page, load, func(rows []TemplateRow) templ.Component {
		return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
			h := newHTML(w)
			heading(h, page, "templates.title", "")
			if len(rows) == 0 {
				h.el("p", `class="muted"`, page.T("templates.empty"))
				return h.err
			}
			table(h, page, []string{"templates.col.name", "templates.col.type", "templates.col.subject", "templates.col.active"}, len(rows), func(i int) []string {
				active := page.T("templates.no")
				if rows[i].Active {
					active = page.T("templates.yes")
				}
				return []string{rows[i].Name, rows[i].Type, rows[i].Subject, active}
			})
			return h.err
		})
	})
}

// UserRow is one team member.
type UserRow struct {
	Name   string
	Email  string
	Role   string
	Status string
}

// UsersPage lists the tenant's team members.
func UsersPage(page PageContext, load func(context.Context) ([]UserRow, error)) templ.Component {
	return Lazy(page, load, func(rows []UserRow) templ.Component {
		return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
			h := newHTML(w)
			heading(h, page, "users.title", "")
			if len(rows) == 0 {
				h.el("p", `class="muted"`, page.T("users.empty"))
				return h.err
			}
			table(h, page, []string{"users.col.name", "users.col.email", "users.col.role", "users.col.status"}, len(rows), func(i int) []string {
				return []string{rows[i].Name, rows[i].Email, rows[i].Role, StatusLabel(page.Loc, rows[i].Status)}
			})
			return h.err
		})
	})
}

// SettingsView is the tenant profile.
type SettingsView struct {
	Company           string
	Website           string
	Description       string
	Timezone          string
	BookingWindowDays string
}

// SettingsPage renders the tenant profile.
func SettingsPage(page PageContext, load func(context.Context) (SettingsView, error)) templ.Component {
	return Lazy(page, load, func(view SettingsView) templ.Component {
		return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
			h := newHTML(w)
			heading(h, page, "settings.title", "")
			definitions(h, page, [][2]string{
				{"settings.company", view.Company},
				{"settings.website", view.Website},
				{"settings.description", view.Description},
				{"settings.timezone", view.Timezone},
				{"settings.booking_window", view.BookingWindowDays},
			})
			return h.err
		})
	})
}

func definitions(h *htmlWriter, page PageContext, pairs [][2]string) {
	h.raw(`<dl class="card definitions">`)
	for _, pair := range pairs {
		h.el("dt", "", page.T(pair[0]))
		h.el("dd", "", pair[1])
	}
	h.raw(`</dl>`)
}
