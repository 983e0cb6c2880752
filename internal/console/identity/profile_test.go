package identity

import (
	"errors"
	"testing"
)

func TestDecodeProfile(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantKind   Kind
		wantUser   string
		wantTenant string
	}{
		{
			name:       "explicit client",
			body:       `{"kind":"client","user":{"id":"u-1","email":"ana@acme.test","name":"Ana"},"client":{"id":"t-1","companyName":"Acme","status":"active"}}`,
			wantKind:   KindClient,
			wantUser:   "u-1",
			wantTenant: "t-1",
		},
		{
			name:     "explicit backoffice with nested user",
			body:     `{"kind":"backoffice","user":{"id":"b-1","email":"admin@smartappt.test","name":"Ops"}}`,
			wantKind: KindBackoffice,
			wantUser: "b-1",
		},
		{
			name:     "explicit backoffice flat",
			body:     `{"kind":"backoffice","id":"b-2","email":"admin@smartappt.test","name":"Ops"}`,
			wantKind: KindBackoffice,
			wantUser: "b-2",
		},
		{
			name:       "legacy client shape",
			body:       `{"user":{"id":"u-2","email":"bo@beta.test","name":"Bo"},"client":{"id":"t-2","companyName":"Beta"}}`,
			wantKind:   KindClient,
			wantUser:   "u-2",
			wantTenant: "t-2",
		},
		{
			name:     "legacy backoffice shape",
			body:     `{"id":"b-3","email":"admin@smartappt.test","name":"Ops"}`,
			wantKind: KindBackoffice,
			wantUser: "b-3",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			principal, err := DecodeProfile([]byte(tc.body))
			if err != nil {
				t.Fatalf("DecodeProfile: %v", err)
			}
			if principal.Kind() != tc.wantKind {
				t.Fatalf("kind = %q, want %q", principal.Kind(), tc.wantKind)
			}
			if principal.Account().ID != tc.wantUser {
				t.Fatalf("user id = %q, want %q", principal.Account().ID, tc.wantUser)
			}
			if tc.wantTenant != "" {
				client, ok := principal.(ClientPrincipal)
				if !ok {
					t.Fatalf("principal type = %T, want ClientPrincipal", principal)
				}
				if client.TenantID() != tc.wantTenant {
					t.Fatalf("tenant id = %q, want %q", client.TenantID(), tc.wantTenant)
				}
			}
		})
	}
}

func TestDecodeProfileMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `<html>`},
		{name: "array", body: `[1,2]`},
		{name: "unknown kind", body: `{"kind":"robot","id":"x"}`},
		{name: "client without tenant", body: `{"kind":"client","user":{"id":"u-1"}}`},
		{name: "legacy client without user id", body: `{"user":{"email":"a@b.test"},"client":{"id":"t-1"}}`},
		{name: "backoffice without id", body: `{"email":"admin@smartappt.test"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeProfile([]byte(tc.body))
			if !errors.Is(err, ErrMalformedProfile) {
				t.Fatalf("err = %v, want ErrMalformedProfile", err)
			}
		})
	}
}

func TestLoginResultPrincipal(t *testing.T) {
	client := LoginResult{
		AccessToken:  "tok",
		IdentityType: KindClient,
		User:         &User{ID: "u-1", Name: "Ana"},
		Client:       &Tenant{ID: "t-1", CompanyName: "Acme"},
	}
	principal, err := client.Principal()
	if err != nil {
		t.Fatalf("client Principal: %v", err)
	}
	if got, ok := principal.(ClientPrincipal); !ok || got.TenantID() != "t-1" || got.User.ID != "u-1" {
		t.Fatalf("client principal = %#v", principal)
	}

	backoffice := LoginResult{AccessToken: "tok", IdentityType: KindBackoffice, User: &User{ID: "b-1"}}
	principal, err = backoffice.Principal()
	if err != nil {
		t.Fatalf("backoffice Principal: %v", err)
	}
	if principal.Kind() != KindBackoffice {
		t.Fatalf("kind = %q, want backoffice", principal.Kind())
	}

	if _, err := (LoginResult{IdentityType: KindBackoffice, User: &User{ID: "b-1"}}).Principal(); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("missing token err = %v", err)
	}
	if _, err := (LoginResult{AccessToken: "tok", IdentityType: "robot"}).Principal(); !errors.Is(err, ErrUnknownIdentityType) {
		t.Fatalf("unknown type err = %v", err)
	}
	if _, err := (LoginResult{AccessToken: "tok", IdentityType: KindClient}).Principal(); !errors.Is(err, ErrMalformedProfile) {
		t.Fatalf("client without tenant err = %v", err)
	}
}
