package devbackend

import (
	"fmt"
	"time"
)

// Seed accounts. Passwords are for local development only.
const (
	SeedOperatorEmail    = "admin@smartagesolutions.com"
	SeedOperatorPassword = "admin123"
	SeedClientEmail      = "owner@acme-dental.test"
	SeedClientPassword   = "client123"
	SeedTenantID         = "tenant-acme"
	SeedSecondTenantID   = "tenant-bloom"
)

// Seed fills store with two tenants, one operator, and sample bookings
// around now.
func Seed(store *Store, now time.Time) {
	now = now.UTC()
	store.PutTenant(Tenant{
		ID:                SeedTenantID,
		CompanyName:       "Acme Dental",
		Email:             "hello@acme-dental.test",
		IsActive:          true,
		CreatedAt:         now.AddDate(0, -6, 0),
		BrandColor:        "#2563eb",
		Timezone:          "America/New_York",
		Language:          "en",
		BookingWindowDays: 30,
		Website:           "https://acme-dental.test",
		Description:       "Family dentistry.",
	})
	store.PutTenant(Tenant{
		ID:                SeedSecondTenantID,
		CompanyName:       "Bloom Studio",
		Email:             "team@bloom.test",
		IsActive:          false,
		CreatedAt:         now.AddDate(0, -2, 0),
		BrandColor:        "#db2777",
		Timezone:          "America/Sao_Paulo",
		Language:          "pt",
		BookingWindowDays: 14,
	})

	store.PutAccount(Account{ID: "user-admin", Email: SeedOperatorEmail, Name: "Operations Admin", Password: SeedOperatorPassword, Role: "admin", Status: "active"})
	store.PutAccount(Account{ID: "user-acme-owner", Email: SeedClientEmail, Name: "Dana Owner", Password: SeedClientPassword, TenantID: SeedTenantID, Role: "owner", Status: "active"})
	store.PutAccount(Account{ID: "user-acme-staff", Email: "front@acme-dental.test", Name: "Sam Front", TenantID: SeedTenantID, Role: "staff", Status: "active"})
	store.PutAccount(Account{ID: "user-bloom-owner", Email: "owner@bloom.test", Name: "Rita Bloom", Password: SeedClientPassword, TenantID: SeedSecondTenantID, Role: "owner", Status: "active"})

	statuses := []string{"confirmed", "pending", "completed", "cancelled"}
	for i := 0; i < 14; i++ {
		day := now.AddDate(0, 0, i-3)
		store.AddAppointment(Appointment{
			ID:        fmt.Sprintf("appt-acme-%02d", i+1),
			TenantID:  SeedTenantID,
			FirstName: "Patient",
			LastName:  fmt.Sprintf("%02d", i+1),
			Email:     fmt.Sprintf("patient%02d@example.test", i+1),
			Purpose:   "Checkup",
			Date:      day.Format("2006-01-02"),
			Time:      fmt.Sprintf("%02d:00", 9+i%8),
			Status:    statuses[i%len(statuses)],
		})
	}
	store.AddAppointment(Appointment{
		ID:        "appt-bloom-01",
		TenantID:  SeedSecondTenantID,
		FirstName: "Lia",
		LastName:  "Costa",
		Email:     "lia@example.test",
		Date:      now.Format("2006-01-02"),
		Time:      "14:30",
		Status:    "confirmed",
	})

	store.AddTemplate(EmailTemplate{ID: "tpl-confirm", TenantID: SeedTenantID, Name: "Booking confirmation", Type: "confirmation", Subject: "Your visit is booked", IsActive: true})
	store.AddTemplate(EmailTemplate{ID: "tpl-reminder", TenantID: SeedTenantID, Name: "Reminder", Type: "reminder", Subject: "See you tomorrow", IsActive: false})

	store.AddLog(ActivityLog{TenantID: SeedTenantID, Action: "appointment_created", ActorID: "system", ActorType: "system", CreatedAt: now.Add(-2 * time.Hour)})
	store.AddLog(ActivityLog{TenantID: SeedTenantID, Action: "settings_updated", ActorID: "user-acme-owner", ActorType: "client", ActorName: "Dana Owner", CreatedAt: now.Add(-time.Hour)})
	store.AddLog(ActivityLog{TenantID: SeedSecondTenantID, Action: "client_deactivated", ActorID: "user-admin", ActorType: "backoffice", ActorName: "Operations Admin", CreatedAt: now.Add(-30 * time.Minute)})
}
