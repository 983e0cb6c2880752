package apiclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultCacheSize bounds the number of cached responses.
	DefaultCacheSize = 256
	// DefaultCacheTTL bounds how long a cached response is served.
	DefaultCacheTTL = 30 * time.Second
)

// ResponseCache keeps successful GET bodies per credential and tenant scope.
// A successful write drops every entry of the tenant it touched.
// It is safe for concurrent use and may be shared by many sessions.
type ResponseCache struct {
	entries *expirable.LRU[string, []byte]
}

// NewResponseCache builds a cache; non-positive arguments use the defaults.
func NewResponseCache(size int, ttl time.Duration) *ResponseCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ResponseCache{entries: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// InvalidateTenantScope drops every cached response. Called whenever the
// impersonation scope changes, so no view is served data fetched under the
// previous tenant.
func (c *ResponseCache) InvalidateTenantScope(context.Context) {
	if c == nil {
		return
	}
	c.entries.Purge()
}

// Len returns the number of live entries.
func (c *ResponseCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

func (c *ResponseCache) get(key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	return c.entries.Get(key)
}

func (c *ResponseCache) add(key string, body []byte) {
	if c == nil {
		return
	}
	c.entries.Add(key, append([]byte(nil), body...))
}

// purgeScope drops the caller's own entries and, when tenantID is set,
// every entry cached for that tenant under any credential.
func (c *ResponseCache) purgeScope(scope, tenantID string) {
	if c == nil {
		return
	}
	for _, key := range c.entries.Keys() {
		if strings.HasPrefix(key, scope) || (tenantID != "" && tenantOf(key) == tenantID) {
			c.entries.Remove(key)
		}
	}
}

// scopeKey identifies the caller: a digest of the credential plus the
// tenant it acts on, if any.
func scopeKey(credential, tenantID string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:8]) + "|" + tenantID + "|"
}

func cacheKey(scope, method, rawURL string) string {
	return scope + method + " " + rawURL
}

func tenantOf(key string) string {
	parts := strings.SplitN(key, "|", 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[1]
}
