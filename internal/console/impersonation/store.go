package impersonation

import (
	"context"

	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/platform/kvstore"
)

// TargetKey is the storage key holding the encoded target.
const TargetKey = "impersonate_client"

// Store persists the raw encoded target.
type Store interface {
	LoadTarget(ctx context.Context) (string, bool, error)
	SaveTarget(ctx context.Context, encoded string) error
	ClearTarget(ctx context.Context) error
}

// KVStore keeps the target under TargetKey in a kvstore.
type KVStore struct {
	Store kvstore.Store
}

// NewKVStore wraps store.
func NewKVStore(store kvstore.Store) KVStore {
	return KVStore{Store: store}
}

func (s KVStore) LoadTarget(ctx context.Context) (string, bool, error) {
	return s.Store.Get(ctx, TargetKey)
}

func (s KVStore) SaveTarget(ctx context.Context, encoded string) error {
	return s.Store.Set(ctx, TargetKey, encoded)
}

func (s KVStore) ClearTarget(ctx context.Context) error {
	return s.Store.Delete(ctx, TargetKey)
}
