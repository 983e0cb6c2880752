package identity

import (
	"context"

	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/platform/kvstore"
)

// CredentialKey is the storage key holding the bearer token.
const CredentialKey = "access_token"

// CredentialStore persists the session credential.
type CredentialStore interface {
	Credential(ctx context.Context) (string, bool, error)
	SetCredential(ctx context.Context, credential string) error
	ClearCredential(ctx context.Context) error
}

// KVCredentialStore keeps the credential under CredentialKey in a kvstore.
type KVCredentialStore struct {
	Store kvstore.Store
}

// NewKVCredentialStore wraps store.
func NewKVCredentialStore(store kvstore.Store) KVCredentialStore {
	return KVCredentialStore{Store: store}
}

// Credential returns the stored credential; an empty value counts as absent.
func (s KVCredentialStore) Credential(ctx context.Context) (string, bool, error) {
	value, ok, err := s.Store.Get(ctx, CredentialKey)
	if err != nil || !ok || value == "" {
		return "", false, err
	}
	return value, true, nil
}

// SetCredential stores credential.
func (s KVCredentialStore) SetCredential(ctx context.Context, credential string) error {
	return s.Store.Set(ctx, CredentialKey, credential)
}

// ClearCredential removes the credential.
func (s KVCredentialStore) ClearCredential(ctx context.Context) error {
	return s.Store.Delete(ctx, CredentialKey)
}
