package devbackend

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// OperatorEmailDomain marks backoffice accounts.
const OperatorEmailDomain = "@smartagesolutions.com"

// Tenant is a client organization.
type Tenant struct {
	ID                string
	CompanyName       string
	Email             string
	IsActive          bool
	CreatedAt         time.Time
	BrandColor        string
	LogoURL           string
	Timezone          string
	Language          string
	BookingWindowDays int
	Website           string
	Description       string
}

func (t Tenant) status() string {
	if t.IsActive {
		return "active"
	}
	return "inactive"
}

// Account is a user that can sign in.
type Account struct {
	ID       string
	Email    string
	Name     string
	Password string
	// TenantID is empty for backoffice operators.
	TenantID string
	Role     string
	Status   string
}

// Kind returns "backoffice" for operator accounts and "client" otherwise.
func (a Account) Kind() string {
	if IsOperatorEmail(a.Email) {
		return "backoffice"
	}
	return "client"
}

// IsOperatorEmail reports whether email belongs to the operator domain.
func IsOperatorEmail(email string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(email)), OperatorEmailDomain)
}

// Appointment is one booking.
type Appointment struct {
	ID        string
	TenantID  string
	FirstName string
	LastName  string
	Email     string
	Purpose   string
	Date      string
	Time      string
	Status    string
}

// EmailTemplate is a tenant notification template.
type EmailTemplate struct {
	ID       string
	TenantID string
	Name     string
	Type     string
	Subject  string
	IsActive bool
}

// ActivityLog is one audit entry.
type ActivityLog struct {
	ID        string
	TenantID  string
	Action    string
	ActorID   string
	ActorType string
	ActorName string
	CreatedAt time.Time
}

// Invitation is an operator invitation. Token is the single-use secret
// sent to the invitee.
type Invitation struct {
	ID       string
	Name     string
	Email    string
	Token    string
	Accepted bool
}

// Store is the backend's in-memory data set.
type Store struct {
	mu           sync.RWMutex
	tenants      map[string]Tenant
	accounts     map[string]Account
	appointments []Appointment
	templates    []EmailTemplate
	logs         []ActivityLog
	invitations  []Invitation
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{tenants: map[string]Tenant{}, accounts: map[string]Account{}}
}

// PutTenant inserts or replaces a tenant.
func (s *Store) PutTenant(t Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[t.ID] = t
}

// PutAccount inserts or replaces an account keyed by lowercase email.
func (s *Store) PutAccount(a Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.accounts[strings.ToLower(a.Email)] = a
}

// AddAppointment appends an appointment.
func (s *Store) AddAppointment(a Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.appointments = append(s.appointments, a)
}

// AddTemplate appends an email template.
func (s *Store) AddTemplate(t EmailTemplate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	s.templates = append(s.templates, t)
}

// AddLog appends an activity entry.
func (s *Store) AddLog(l ActivityLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLogLocked(l)
}

func (s *Store) addLogLocked(l ActivityLog) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	s.logs = append(s.logs, l)
}

// Authenticate returns the account for email when password matches.
func (s *Store) Authenticate(email, password string) (Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[strings.ToLower(strings.TrimSpace(email))]
	if !ok || account.Password == "" || account.Password != password {
		return Account{}, false
	}
	return account, true
}

// AccountByID finds an account by id.
func (s *Store) AccountByID(id string) (Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, account := range s.accounts {
		if account.ID == id {
			return account, true
		}
	}
	return Account{}, false
}

// Tenant returns one tenant.
func (s *Store) Tenant(id string) (Tenant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[id]
	return t, ok
}

// Tenants lists tenants by creation time, newest first.
func (s *Store) Tenants() []Tenant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ToggleTenant flips a tenant's active flag and records who did it.
func (s *Store) ToggleTenant(id string, actor Account) (Tenant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return Tenant{}, false
	}
	t.IsActive = !t.IsActive
	s.tenants[id] = t
	action := "client_deactivated"
	if t.IsActive {
		action = "client_activated"
	}
	s.addLogLocked(ActivityLog{TenantID: id, Action: action, ActorID: actor.ID, ActorType: "backoffice", ActorName: actor.Name})
	return t, true
}

// AppointmentQuery filters appointments of one tenant.
type AppointmentQuery struct {
	TenantID  string
	StartDate string
	EndDate   string
	Status    string
}

// Appointments returns matching appointments ordered by date and time.
func (s *Store) Appointments(q AppointmentQuery) []Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Appointment
	for _, a := range s.appointments {
		if a.TenantID != q.TenantID {
			continue
		}
		if q.StartDate != "" && a.Date < q.StartDate {
			continue
		}
		if q.EndDate != "" && a.Date > q.EndDate {
			continue
		}
		if q.Status != "" && a.Status != q.Status {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	return out
}

// Members lists the accounts of a tenant.
func (s *Store) Members(tenantID string) []Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Account
	for _, a := range s.accounts {
		if a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

// Templates lists a tenant's email templates.
func (s *Store) Templates(tenantID string) []EmailTemplate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []EmailTemplate
	for _, t := range s.templates {
		if t.TenantID == tenantID {
			out = append(out, t)
		}
	}
	return out
}

// Logs lists activity newest first; an empty tenantID lists every tenant.
func (s *Store) Logs(tenantID string) []ActivityLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ActivityLog
	for _, l := range s.logs {
		if tenantID == "" || l.TenantID == tenantID {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Invite records an operator invitation.
func (s *Store) Invite(inv Invitation, actor Account) Invitation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.Token == "" {
		inv.Token = uuid.NewString()
	}
	s.invitations = append(s.invitations, inv)
	s.addLogLocked(ActivityLog{Action: "backoffice_user_invited", ActorID: actor.ID, ActorType: "backoffice", ActorName: actor.Name})
	return inv
}

// Invitations returns every recorded invitation.
func (s *Store) Invitations() []Invitation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Invitation(nil), s.invitations...)
}

var (
	// ErrInvitationNotFound means the token matches no pending invitation.
	ErrInvitationNotFound = errors.New("invitation not found")
	// ErrAccountExists means the invited email already signs in.
	ErrAccountExists = errors.New("account already exists")
)

// PendingInvitation finds an invitation that has not been accepted yet.
func (s *Store) PendingInvitation(token string) (Invitation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.pendingIndexLocked(token)
	if i < 0 {
		return Invitation{}, false
	}
	return s.invitations[i], true
}

func (s *Store) pendingIndexLocked(token string) int {
	if token == "" {
		return -1
	}
	for i, inv := range s.invitations {
		if inv.Token == token && !inv.Accepted {
			return i
		}
	}
	return -1
}

// AcceptInvitation creates the invited operator account and consumes the
// token. An empty name keeps the one given at invitation time.
func (s *Store) AcceptInvitation(token, name, password string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.pendingIndexLocked(token)
	if i < 0 {
		return Account{}, ErrInvitationNotFound
	}
	inv := s.invitations[i]
	key := strings.ToLower(inv.Email)
	if _, exists := s.accounts[key]; exists {
		return Account{}, ErrAccountExists
	}
	if strings.TrimSpace(name) == "" {
		name = inv.Name
	}
	account := Account{
		ID:       uuid.NewString(),
		Email:    inv.Email,
		Name:     strings.TrimSpace(name),
		Password: password,
		Role:     "admin",
		Status:   "active",
	}
	s.accounts[key] = account
	s.invitations[i].Accepted = true
	s.addLogLocked(ActivityLog{Action: "backoffice_user_joined", ActorID: account.ID, ActorType: "backoffice", ActorName: account.Name})
	return account, nil
}

// UpdateAppointmentStatus sets the status of one of tenantID's
// appointments. It reports false when the appointment is not the tenant's.
func (s *Store) UpdateAppointmentStatus(tenantID, id, status string, actor Account) (Appointment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.appointments {
		if a.ID != id || a.TenantID != tenantID {
			continue
		}
		s.appointments[i].Status = status
		action := "appointment_updated"
		if status == "cancelled" {
			action = "appointment_cancelled"
		}
		s.addLogLocked(ActivityLog{TenantID: tenantID, Action: action, ActorID: actor.ID, ActorType: actor.Kind(), ActorName: actor.Name})
		return s.appointments[i], true
	}
	return Appointment{}, false
}
