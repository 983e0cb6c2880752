package devbackend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

type callerContextKey struct{}
type tenantContextKey struct{}

func callerFrom(ctx context.Context) Account {
	account, _ := ctx.Value(callerContextKey{}).(Account)
	return account
}

func tenantFrom(ctx context.Context) Tenant {
	tenant, _ := ctx.Value(tenantContextKey{}).(Tenant)
	return tenant
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func (b *Backend) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := b.tokens.verify(bearerToken(r))
		if err != nil || claims.Generation != b.currentGeneration() {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		account, ok := b.store.AccountByID(claims.Subject)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		ctx := context.WithValue(r.Context(), callerContextKey{}, account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// tenantScope resolves the tenant a request reads. Client users always act
// for their own tenant; backoffice users must name one through the
// impersonation header.
func (b *Backend) tenantScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := callerFrom(r.Context())
		tenantID := caller.TenantID
		if caller.Kind() == "backoffice" {
			tenantID = strings.TrimSpace(r.Header.Get(ImpersonationHeader))
			if tenantID == "" {
				writeError(w, http.StatusForbidden, "Client context required")
				return
			}
		}
		tenant, ok := b.store.Tenant(tenantID)
		if !ok {
			writeError(w, http.StatusNotFound, "Client not found")
			return
		}
		ctx := context.WithValue(r.Context(), tenantContextKey{}, tenant)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (b *Backend) requireBackoffice(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if callerFrom(r.Context()).Kind() != "backoffice" {
			writeError(w, http.StatusForbidden, "Backoffice access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type tenantPayload struct {
	ID          string `json:"id"`
	CompanyName string `json:"companyName"`
	Email       string `json:"email"`
	Status      string `json:"status"`
}

type clientPayload struct {
	ID                string `json:"id"`
	CompanyName       string `json:"company_name"`
	Email             string `json:"email"`
	IsActive          bool   `json:"is_active"`
	CreatedAt         string `json:"created_at"`
	BrandColor        string `json:"brand_color"`
	LogoURL           string `json:"logo_url"`
	Timezone          string `json:"timezone"`
	Language          string `json:"language"`
	BookingWindowDays int    `json:"booking_window_days"`
}

type pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
	TotalItems int `json:"total_items"`
}

func userOf(a Account) userPayload {
	return userPayload{ID: a.ID, Email: a.Email, Name: a.Name}
}

func tenantOf(t Tenant) tenantPayload {
	return tenantPayload{ID: t.ID, CompanyName: t.CompanyName, Email: t.Email, Status: t.status()}
}

func clientOf(t Tenant) clientPayload {
	return clientPayload{
		ID:                t.ID,
		CompanyName:       t.CompanyName,
		Email:             t.Email,
		IsActive:          t.IsActive,
		CreatedAt:         t.CreatedAt.UTC().Format(time.RFC3339),
		BrandColor:        t.BrandColor,
		LogoURL:           t.LogoURL,
		Timezone:          t.Timezone,
		Language:          t.Language,
		BookingWindowDays: t.BookingWindowDays,
	}
}

// paginate slices n items by the page and per_page query values.
func paginate(r *http.Request, n int) (start, end int, p pagination) {
	query := r.URL.Query()
	perPage, err := strconv.Atoi(query.Get("per_page"))
	if err != nil || perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	page, err := strconv.Atoi(query.Get("page"))
	if err != nil || page <= 0 {
		page = 1
	}
	totalPages := (n + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}
	start = min((page-1)*perPage, n)
	end = min(start+perPage, n)
	return start, end, pagination{Page: page, PerPage: perPage, TotalPages: totalPages, TotalItems: n}
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	account, ok := b.store.Authenticate(creds.Email, creds.Password)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	var tenant *tenantPayload
	if account.Kind() == "client" {
		t, found := b.store.Tenant(account.TenantID)
		if !found {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		if !t.IsActive {
			writeError(w, http.StatusForbidden, "Account is inactive")
			return
		}
		payload := tenantOf(t)
		tenant = &payload
	}
	token, err := b.tokens.mint(account, b.currentGeneration())
	if err != nil {
		b.logger.Printf("devbackend mint token: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	user := userOf(account)
	writeJSON(w, http.StatusOK, struct {
		AccessToken  string         `json:"access_token"`
		IdentityType string         `json:"identity_type"`
		User         userPayload    `json:"user"`
		Client       *tenantPayload `json:"client,omitempty"`
	}{AccessToken: token, IdentityType: account.Kind(), User: user, Client: tenant})
}

func (b *Backend) handleProfile(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r.Context())
	if caller.Kind() == "backoffice" {
		writeJSON(w, http.StatusOK, map[string]any{"kind": "backoffice", "user": userOf(caller)})
		return
	}
	tenant, ok := b.store.Tenant(caller.TenantID)
	if !ok {
		writeError(w, http.StatusNotFound, "Client not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"kind": "client", "user": userOf(caller), "client": tenantOf(tenant)})
}

func (b *Backend) handleAppointments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	items := b.store.Appointments(AppointmentQuery{
		TenantID:  tenantFrom(r.Context()).ID,
		StartDate: query.Get("start_date"),
		EndDate:   query.Get("end_date"),
		Status:    query.Get("status"),
	})
	start, end, page := paginate(r, len(items))
	out := make([]map[string]string, 0, end-start)
	for _, a := range items[start:end] {
		out = append(out, appointmentOf(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": out, "pagination": page})
}

func appointmentOf(a Appointment) map[string]string {
	return map[string]string{
		"id":         a.ID,
		"first_name": a.FirstName,
		"last_name":  a.LastName,
		"email":      a.Email,
		"purpose":    a.Purpose,
		"date":       a.Date,
		"time":       a.Time,
		"status":     a.Status,
	}
}

// appointmentStatuses are the states an appointment may be set to.
var appointmentStatuses = map[string]bool{"confirmed": true, "pending": true, "completed": true, "cancelled": true}

func (b *Backend) findAppointment(r *http.Request) (Appointment, bool) {
	id := chi.URLParam(r, "appointmentID")
	for _, a := range b.store.Appointments(AppointmentQuery{TenantID: tenantFrom(r.Context()).ID}) {
		if a.ID == id {
			return a, true
		}
	}
	return Appointment{}, false
}

func (b *Backend) handleUpdateAppointment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !appointmentStatuses[body.Status] {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}
	b.writeAppointmentStatus(w, r, body.Status, "Appointment updated")
}

func (b *Backend) handleCancelAppointment(w http.ResponseWriter, r *http.Request) {
	current, ok := b.findAppointment(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Appointment not found")
		return
	}
	if current.Status == "cancelled" || current.Status == "completed" {
		writeError(w, http.StatusConflict, "Appointment cannot be cancelled")
		return
	}
	b.writeAppointmentStatus(w, r, "cancelled", "Appointment cancelled")
}

func (b *Backend) writeAppointmentStatus(w http.ResponseWriter, r *http.Request, status, message string) {
	tenant := tenantFrom(r.Context())
	updated, ok := b.store.UpdateAppointmentStatus(tenant.ID, chi.URLParam(r, "appointmentID"), status, callerFrom(r.Context()))
	if !ok {
		writeError(w, http.StatusNotFound, "Appointment not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": message, "appointment": appointmentOf(updated)})
}

func (b *Backend) handleMembers(w http.ResponseWriter, r *http.Request) {
	members := b.store.Members(tenantFrom(r.Context()).ID)
	start, end, page := paginate(r, len(members))
	out := make([]map[string]string, 0, end-start)
	for _, m := range members[start:end] {
		out = append(out, map[string]string{
			"id":     m.ID,
			"name":   m.Name,
			"email":  m.Email,
			"role":   m.Role,
			"status": m.Status,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out, "pagination": page})
}

func (b *Backend) handleTemplates(w http.ResponseWriter, r *http.Request) {
	templates := b.store.Templates(tenantFrom(r.Context()).ID)
	out := make([]map[string]any, 0, len(templates))
	for _, t := range templates {
		out = append(out, map[string]any{
			"id":       t.ID,
			"name":     t.Name,
			"type":     t.Type,
			"subject":  t.Subject,
			"isActive": t.IsActive,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": out})
}

func (b *Backend) handleTenantProfile(w http.ResponseWriter, r *http.Request) {
	t := tenantFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"profile": map[string]any{
		"company_name":        t.CompanyName,
		"website":             t.Website,
		"description":         t.Description,
		"timezone":            t.Timezone,
		"booking_window_days": t.BookingWindowDays,
	}})
}

func (b *Backend) logsPayload(r *http.Request, logs []ActivityLog) []map[string]any {
	if perPage, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && perPage > 0 && perPage < len(logs) {
		logs = logs[:perPage]
	}
	out := make([]map[string]any, 0, len(logs))
	for _, l := range logs {
		entry := map[string]any{
			"id":         l.ID,
			"action":     l.Action,
			"actor_id":   l.ActorID,
			"actor_type": l.ActorType,
			"created_at": l.CreatedAt.UTC().Format(time.RFC3339),
			"details":    map[string]string{"actor_name": l.ActorName},
		}
		if l.TenantID != "" {
			entry["client_id"] = l.TenantID
			if t, ok := b.store.Tenant(l.TenantID); ok {
				entry["client_name"] = t.CompanyName
			}
		}
		out = append(out, entry)
	}
	return out
}

func (b *Backend) handleTenantLogs(w http.ResponseWriter, r *http.Request) {
	logs := b.store.Logs(tenantFrom(r.Context()).ID)
	writeJSON(w, http.StatusOK, map[string]any{"logs": b.logsPayload(r, logs)})
}

func (b *Backend) handleGlobalLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"logs": b.logsPayload(r, b.store.Logs(""))})
}

func (b *Backend) handleListClients(w http.ResponseWriter, _ *http.Request) {
	tenants := b.store.Tenants()
	out := make([]clientPayload, 0, len(tenants))
	for _, t := range tenants {
		out = append(out, clientOf(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"clients": out})
}

func (b *Backend) handleGetClient(w http.ResponseWriter, r *http.Request) {
	t, ok := b.store.Tenant(chi.URLParam(r, "clientID"))
	if !ok {
		writeError(w, http.StatusNotFound, "Client not found")
		return
	}
	writeJSON(w, http.StatusOK, clientOf(t))
}

func (b *Backend) handleToggleClient(w http.ResponseWriter, r *http.Request) {
	t, ok := b.store.ToggleTenant(chi.URLParam(r, "clientID"), callerFrom(r.Context()))
	if !ok {
		writeError(w, http.StatusNotFound, "Client not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Client status updated", "client": clientOf(t)})
}

var errInvalidInvitation = errors.New("invalid invitation")

func decodeInvitation(r *http.Request) (Invitation, error) {
	var body struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return Invitation{}, errInvalidInvitation
	}
	inv := Invitation{Name: strings.TrimSpace(body.Name), Email: strings.TrimSpace(body.Email)}
	if inv.Name == "" || inv.Email == "" {
		return Invitation{}, errInvalidInvitation
	}
	return inv, nil
}

func (b *Backend) handleInvite(w http.ResponseWriter, r *http.Request) {
	inv, err := decodeInvitation(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Name and email are required")
		return
	}
	if !IsOperatorEmail(inv.Email) {
		writeError(w, http.StatusBadRequest, "Email must be a "+OperatorEmailDomain+" address")
		return
	}
	inv = b.store.Invite(inv, callerFrom(r.Context()))
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":    "Invitation sent",
		"invitation": map[string]string{"id": inv.ID, "name": inv.Name, "email": inv.Email},
	})
}

// OperatorOrganization names the organization invited operators join.
const OperatorOrganization = "Smart Age Solutions"

// minPasswordLength is enforced when an invitation is accepted.
const minPasswordLength = 8

func (b *Backend) handleVerifyInvitation(w http.ResponseWriter, r *http.Request) {
	inv, ok := b.store.PendingInvitation(chi.URLParam(r, "token"))
	if !ok {
		writeError(w, http.StatusNotFound, "Invalid or expired invitation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":   map[string]string{"email": inv.Email, "name": inv.Name},
		"client": map[string]string{"company_name": OperatorOrganization},
	})
}

func (b *Backend) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token    string `json:"token"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Token) == "" {
		writeError(w, http.StatusBadRequest, "Token and password are required")
		return
	}
	if len(body.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}
	account, err := b.store.AcceptInvitation(body.Token, body.Name, body.Password)
	switch {
	case errors.Is(err, ErrInvitationNotFound):
		writeError(w, http.StatusNotFound, "Invalid or expired invitation")
		return
	case errors.Is(err, ErrAccountExists):
		writeError(w, http.StatusConflict, "Account already exists")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Invitation accepted", "user": userOf(account)})
}
