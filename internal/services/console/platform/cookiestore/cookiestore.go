// Package cookiestore keeps the console's session keys in signed browser
// cookies, one cookie per key.
package cookiestore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/platform/kvstore"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/services/console/platform/requestmeta"
)

// DefaultMaxAge bounds how long a browser keeps a session key.
const DefaultMaxAge = 7 * 24 * time.Hour

// Config describes cookie signing and lifetime.
type Config struct {
	HashKey  []byte
	BlockKey []byte
	MaxAge   time.Duration
	Policy   requestmeta.SchemePolicy
}

// Jar signs and verifies session key cookies.
type Jar struct {
	cookies *securecookie.SecureCookie
	maxAge  time.Duration
	policy  requestmeta.SchemePolicy
}

// NewJar validates cfg and returns a Jar.
func NewJar(cfg Config) (*Jar, error) {
	if len(cfg.HashKey) < 32 {
		return nil, errors.New("cookie hash key must be at least 32 bytes")
	}
	switch len(cfg.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("cookie block key must be 16, 24, or 32 bytes, got %d", len(cfg.BlockKey))
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	var blockKey []byte
	if len(cfg.BlockKey) > 0 {
		blockKey = cfg.BlockKey
	}
	cookies := securecookie.New(cfg.HashKey, blockKey)
	cookies.MaxAge(int(maxAge / time.Second))
	return &Jar{cookies: cookies, maxAge: maxAge, policy: cfg.Policy}, nil
}

// Bind returns a Store reading from r and writing to w. Values written
// through the Store are visible to later reads within the same request.
func (j *Jar) Bind(w http.ResponseWriter, r *http.Request) *Store {
	return &Store{jar: j, w: w, r: r, pending: map[string]pendingValue{}}
}

type pendingValue struct {
	value   string
	deleted bool
}

// Store is a kvstore.Store bound to one request and response.
type Store struct {
	jar *Jar
	w   http.ResponseWriter
	r   *http.Request

	mu      sync.Mutex
	pending map[string]pendingValue
}

var _ kvstore.Store = (*Store)(nil)

// Get returns the value under key. A cookie that fails verification reads
// as absent.
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	name, err := cookieName(key)
	if err != nil {
		return "", false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if pending, ok := s.pending[name]; ok {
		if pending.deleted {
			return "", false, nil
		}
		return pending.value, true, nil
	}
	if s.r == nil {
		return "", false, nil
	}
	cookie, err := s.r.Cookie(name)
	if err != nil || cookie == nil || strings.TrimSpace(cookie.Value) == "" {
		return "", false, nil
	}
	var value string
	if err := s.jar.cookies.Decode(name, cookie.Value, &value); err != nil {
		return "", false, nil
	}
	return value, true, nil
}

// Set signs value and writes it as the cookie for key.
func (s *Store) Set(_ context.Context, key, value string) error {
	name, err := cookieName(key)
	if err != nil {
		return err
	}
	encoded, err := s.jar.cookies.Encode(name, value)
	if err != nil {
		return fmt.Errorf("encode cookie %s: %w", name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w != nil {
		http.SetCookie(s.w, s.jar.cookie(s.r, name, encoded, int(s.jar.maxAge/time.Second)))
	}
	s.pending[name] = pendingValue{value: value}
	return nil
}

// Delete expires the cookie for key.
func (s *Store) Delete(_ context.Context, key string) error {
	name, err := cookieName(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w != nil {
		http.SetCookie(s.w, s.jar.cookie(s.r, name, "", -1))
	}
	s.pending[name] = pendingValue{deleted: true}
	return nil
}

func (j *Jar) cookie(r *http.Request, name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   requestmeta.IsHTTPS(r, j.policy),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

func cookieName(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("cookie key is required")
	}
	return key, nil
}
