package console

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tidwall/gjson"

	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/console/apiclient"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/services/console/templates"
)

const (
	dateLayout          = "2006-01-02"
	monthLayout         = "2006-01"
	appointmentsPerPage = 10
)

func apiFrom(r *http.Request) *apiclient.Client {
	if sess := sessionFrom(r); sess != nil {
		return sess.API()
	}
	return nil
}

// fetchJSON GETs path and parses the whole body.
func fetchJSON(ctx context.Context, api *apiclient.Client, path string, params map[string]string) (gjson.Result, error) {
	var body []byte
	if err := api.Get(ctx, path, params, &body); err != nil {
		return gjson.Result{}, err
	}
	return gjson.ParseBytes(body), nil
}

func appointmentRow(item gjson.Result) templates.AppointmentRow {
	service := item.Get("purpose").String()
	if service == "" {
		service = "General"
	}
	return templates.AppointmentRow{
		ID:      item.Get("id").String(),
		Client:  strings.TrimSpace(item.Get("first_name").String() + " " + item.Get("last_name").String()),
		Email:   item.Get("email").String(),
		Service: service,
		Date:    item.Get("date").String(),
		Time:    item.Get("time").String(),
		Status:  item.Get("status").String(),
	}
}

func appointmentRows(body gjson.Result) []templates.AppointmentRow {
	items := body.Get("appointments").Array()
	rows := make([]templates.AppointmentRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, appointmentRow(item))
	}
	return rows
}

func activityRow(r apiclient.Record) templates.ActivityRow {
	actor := r.Field("details.actor_name")
	switch {
	case r.Field("actor_id") == "system":
		actor = "System"
	case actor == "":
		actor = r.Field("actor_type")
	}
	client := r.Field("client_name")
	if client == "" {
		client = r.Field("details.company_name")
	}
	if client == "" {
		client = r.Field("client_id")
	}
	return templates.ActivityRow{
		Time:   r.Field("created_at"),
		Action: r.Field("action"),
		Actor:  actor,
		Client: client,
	}
}

// totalItems reads pagination.total_items, falling back to the length of
// the list under field.
func totalItems(body gjson.Result, field string) int {
	if total := body.Get("pagination.total_items"); total.Exists() {
		return int(total.Int())
	}
	return len(body.Get(field).Array())
}

func (h *handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	page := h.page(w, r, "dashboard.title")
	api := apiFrom(r)
	h.render(w, r, http.StatusOK, page, templates.DashboardPage(page, func(ctx context.Context) (templates.DashboardView, error) {
		today := time.Now().Format(dateLayout)
		view := templates.DashboardView{Today: today}

		todays, err := fetchJSON(ctx, api, "/appointments", map[string]string{"start_date": today, "end_date": today})
		if err != nil {
			return view, err
		}
		view.TodayAppointments = totalItems(todays, "appointments")

		team, err := fetchJSON(ctx, api, "/teams/all-members", nil)
		if err != nil {
			return view, err
		}
		view.TeamMembers = totalItems(team, "users")

		upcoming, err := fetchJSON(ctx, api, "/appointments", map[string]string{"start_date": today, "per_page": "5"})
		if err != nil {
			return view, err
		}
		view.Upcoming = appointmentRows(upcoming)

		logs, err := api.ListRecords(ctx, "/auth/activity-logs", map[string]string{"per_page": "5"}, "logs")
		if err != nil {
			return view, err
		}
		for _, record := range logs {
			view.Activity = append(view.Activity, activityRow(record))
		}
		return view, nil
	}))
}

func (h *handler) handleCalendar(w http.ResponseWriter, r *http.Request) {
	page := h.page(w, r, "calendar.title")
	api := apiFrom(r)
	month, err := time.Parse(monthLayout, r.URL.Query().Get("month"))
	if err != nil {
		current := time.Now()
		month = time.Date(current.Year(), current.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	h.render(w, r, http.StatusOK, page, templates.CalendarPage(page, func(ctx context.Context) (templates.CalendarView, error) {
		start := month
		end := month.AddDate(0, 1, -1)
		view := templates.CalendarView{
			Month:     month.Format("January 2006"),
			PrevMonth: month.AddDate(0, -1, 0).Format(monthLayout),
			NextMonth: month.AddDate(0, 1, 0).Format(monthLayout),
		}
		body, err := fetchJSON(ctx, api, "/appointments", map[string]string{
			"start_date": start.Format(dateLayout),
			"end_date":   end.Format(dateLayout),
			"per_page":   "100",
		})
		if err != nil {
			return view, err
		}
		view.Days = groupByDate(appointmentRows(body))
		return view, nil
	}))
}

func groupByDate(rows []templates.AppointmentRow) []templates.CalendarDay {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		return rows[i].Time < rows[j].Time
	})
	var days []templates.CalendarDay
	for _, row := range rows {
		if len(days) == 0 || days[len(days)-1].Date != row.Date {
			days = append(days, templates.CalendarDay{Date: row.Date})
		}
		last := &days[len(days)-1]
		last.Appointments = append(last.Appointments, row)
	}
	return days
}

func (h *handler) handleAppointments(w http.ResponseWriter, r *http.Request) {
	page := h.page(w, r, "appointments.title")
	api := apiFrom(r)
	query := r.URL.Query()
	pageNumber, err := strconv.Atoi(query.Get("page"))
	if err != nil || pageNumber < 1 {
		pageNumber = 1
	}
	status := query.Get("status")
	h.render(w, r, http.StatusOK, page, templates.AppointmentsPage(page, func(ctx context.Context) (templates.AppointmentsView, error) {
		view := templates.AppointmentsView{Status: status, Page: pageNumber, TotalPages: 1}
		body, err := fetchJSON(ctx, api, "/appointments", map[string]string{
			"page":     strconv.Itoa(pageNumber),
			"per_page": strconv.Itoa(appointmentsPerPage),
			"status":   status,
		})
		if err != nil {
			return view, err
		}
		view.Rows = appointmentRows(body)
		if pages := int(body.Get("pagination.total_pages").Int()); pages > 0 {
			view.TotalPages = pages
		}
		return view, nil
	}))
}

func (h *handler) handleEmailTemplates(w http.ResponseWriter, r *http.Request) {
	page := h.page(w, r, "templates.title")
	api := apiFrom(r)
	h.render(w, r, http.StatusOK, page, templates.EmailTemplatesPage(page, func(ctx context.Context) ([]templates.TemplateRow, error) {
		records, err := api.ListRecords(ctx, "/auth/settings/email-templates", nil, "templates")
		if err != nil {
			return nil, err
		}
		rows := make([]templates.TemplateRow, 0, len(records))
		for _, record := range records {
			rows = append(rows, templates.TemplateRow{
				Name:    record.Field("name"),
				Type:    record.Field("type"),
				Subject: record.Field("subject"),
				Active:  record.Field("isActive") == "true",
			})
		}
		return rows, nil
	}))
}

func (h *handler) handleUsers(w http.ResponseWriter, r *http.Request) {
	page := h.page(w, r, "users.title")
	api := apiFrom(r)
	h.render(w, r, http.StatusOK, page, templates.UsersPage(page, func(ctx context.Context) ([]templates.UserRow, error) {
		records, err := api.ListRecords(ctx, "/teams/all-members", nil, "users")
		if err != nil {
			return nil, err
		}
		rows := make([]templates.UserRow, 0, len(records))
		for _, record := range records {
			rows = append(rows, templates.UserRow{
				Name:   record.Field("name"),
				Email:  record.Field("email"),
				Role:   record.Field("role"),
				Status: record.Field("status"),
			})
		}
		return rows, nil
	}))
}

func (h *handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	page := h.page(w, r, "settings.title")
	api := apiFrom(r)
	h.render(w, r, http.StatusOK, page, templates.SettingsPage(page, func(ctx context.Context) (templates.SettingsView, error) {
		profile, err := api.GetRecord(ctx, "/auth/settings/profile", "profile")
		if err != nil {
			return templates.SettingsView{}, err
		}
		return templates.SettingsView{
			Company:           profile.Field("company_name"),
			Website:           profile.Field("website"),
			Description:       profile.Field("description"),
			Timezone:          profile.Field("timezone"),
			BookingWindowDays: profile.Field("booking_window_days"),
		}, nil
	}))
}

func (h *handler) handleClientList(w http.ResponseWriter, r *http.Request) {
	page := h.page(w, r, "backoffice.title")
	api := apiFrom(r)
	filter := apiclient.ClientFilter{
		Status: r.URL.Query().Get("status"),
		Search: r.URL.Query().Get("q"),
	}
	h.render(w, r, http.StatusOK, page, templates.ClientListPage(page, func(ctx context.Context) (templates.ClientListView, error) {
		clients, err := api.ListBackofficeClients(ctx, filter)
		return templates.ClientListView{Clients: clients, Filter: filter}, err
	}))
}

func (h *handler) handleClientDetails(w http.ResponseWriter, r *http.Request) {
	page := h.page(w, r, "backoffice.details.title")
	api := apiFrom(r)
	clientID := chi.URLParam(r, "clientID")
	h.render(w, r, http.StatusOK, page, templates.ClientDetailsPage(page, func(ctx context.Context) (apiclient.BackofficeClient, error) {
		return api.GetBackofficeClient(ctx, clientID)
	}))
}

func (h *handler) handleLogs(w http.ResponseWriter, r *http.Request) {
	page := h.page(w, r, "logs.title")
	api := apiFrom(r)
	h.render(w, r, http.StatusOK, page, templates.LogsPage(page, func(ctx context.Context) ([]templates.ActivityRow, error) {
		records, err := api.ListRecords(ctx, "/auth/activity-logs/global", nil, "logs")
		if err != nil {
			return nil, err
		}
		rows := make([]templates.ActivityRow, 0, len(records))
		for _, record := range records {
			rows = append(rows, activityRow(record))
		}
		return rows, nil
	}))
}

func (h *handler) handleInvitePage(w http.ResponseWriter, r *http.Request) {
	page := h.page(w, r, "invite.title")
	h.render(w, r, http.StatusOK, page, templates.InvitePage(page, templates.InviteView{}))
}
