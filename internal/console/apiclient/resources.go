package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// BackofficeClient is a tenant as listed in the backoffice.
type BackofficeClient struct {
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

// Status returns "active" or "inactive".
func (c BackofficeClient) Status() string {
	if c.IsActive {
		return "active"
	}
	return "inactive"
}

// ClientFilter narrows ListBackofficeClients. Filtering happens locally,
// the backend returns every tenant.
type ClientFilter struct {
	// Status is "active", "inactive", or empty for all.
	Status string
	// Search matches company name or email, case-insensitively.
	Search string
}

func (f ClientFilter) match(c BackofficeClient) bool {
	if f.Status != "" && f.Status != "all" && c.Status() != f.Status {
		return false
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.CompanyName), search) ||
		strings.Contains(strings.ToLower(c.Email), search)
}

// ListBackofficeClients lists tenants for the backoffice.
func (c *Client) ListBackofficeClients(ctx context.Context, filter ClientFilter) ([]BackofficeClient, error) {
	var resp struct {
		Clients []BackofficeClient `json:"clients"`
	}
	if err := c.Get(ctx, "/backoffice/clients", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]BackofficeClient, 0, len(resp.Clients))
	for _, client := range resp.Clients {
		if filter.match(client) {
			out = append(out, client)
		}
	}
	return out, nil
}

// GetBackofficeClient loads one tenant.
func (c *Client) GetBackofficeClient(ctx context.Context, id string) (BackofficeClient, error) {
	var client BackofficeClient
	if err := c.Get(ctx, "/backoffice/clients/"+url.PathEscape(id), nil, &client); err != nil {
		return BackofficeClient{}, err
	}
	return client, nil
}

// ToggleClientStatus flips a tenant between active and inactive.
func (c *Client) ToggleClientStatus(ctx context.Context, id string) error {
	return c.Post(ctx, "/backoffice/clients/"+url.PathEscape(id)+"/toggle-status", nil, nil)
}

// Invitation invites a new backoffice operator.
type Invitation struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// InviteBackofficeUser sends an invitation.
func (c *Client) InviteBackofficeUser(ctx context.Context, inv Invitation) error {
	return c.Post(ctx, "/backoffice/invite", inv, nil)
}

// Record is one row of a list response.
type Record struct {
	raw gjson.Result
}

// Field returns the string form of a field addressed by a gjson path.
func (r Record) Field(path string) string {
	return r.raw.Get(path).String()
}

// ListRecords fetches path and returns the array under field.
func (c *Client) ListRecords(ctx context.Context, path string, params map[string]string, field string) ([]Record, error) {
	var body []byte
	if err := c.Get(ctx, path, params, &body); err != nil {
		return nil, err
	}
	items := gjson.GetBytes(body, field)
	if !items.IsArray() {
		return nil, nil
	}
	results := items.Array()
	out := make([]Record, 0, len(results))
	for _, item := range results {
		out = append(out, Record{raw: item})
	}
	return out, nil
}

// GetRecord fetches path and returns the object under field, or the whole
// body when field is empty.
func (c *Client) GetRecord(ctx context.Context, path string, field string) (Record, error) {
	var body []byte
	if err := c.Get(ctx, path, nil, &body); err != nil {
		return Record{}, err
	}
	if field == "" {
		return Record{raw: gjson.ParseBytes(body)}, nil
	}
	return Record{raw: gjson.GetBytes(body, field)}, nil
}

// UpdateAppointmentStatus sets the status of one of the tenant's
// appointments.
func (c *Client) UpdateAppointmentStatus(ctx context.Context, id, status string) error {
	return c.Put(ctx, "/appointments/"+url.PathEscape(id), map[string]string{"status": status}, nil)
}

// CancelAppointment cancels one of the tenant's appointments.
func (c *Client) CancelAppointment(ctx context.Context, id string) error {
	return c.Delete(ctx, "/appointments/"+url.PathEscape(id), nil, nil)
}

// InvitationDetails describes a pending invitation before it is accepted.
type InvitationDetails struct {
	Email        string
	Name         string
	Organization string
}

// VerifyInvitation looks up a pending invitation by its token.
func (c *Client) VerifyInvitation(ctx context.Context, token string) (InvitationDetails, error) {
	var body []byte
	req := Request{Method: http.MethodGet, Path: "/auth/invite/verify/" + url.PathEscape(token), NoCache: true}
	if err := c.Do(ctx, req, &body); err != nil {
		return InvitationDetails{}, err
	}
	root := gjson.ParseBytes(body)
	return InvitationDetails{
		Email:        root.Get("user.email").String(),
		Name:         root.Get("user.name").String(),
		Organization: root.Get("client.company_name").String(),
	}, nil
}

// InvitationAcceptance completes an invitation with the new account's
// password.
type InvitationAcceptance struct {
	Token    string `json:"token"`
	Name     string `json:"name,omitempty"`
	Password string `json:"password"`
}

// AcceptInvitation creates the invited account.
func (c *Client) AcceptInvitation(ctx context.Context, acceptance InvitationAcceptance) error {
	return c.Post(ctx, "/auth/invite/accept", acceptance, nil)
}
