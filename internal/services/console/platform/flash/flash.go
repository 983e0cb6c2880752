// Package flash provides one-time console notices persisted across redirects.
package flash

import (
	"net/http"
	"strings"

	"github.com/gorilla/securecookie"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/services/console/platform/requestmeta"
)

// CookieName is the cookie carrying the pending notice.
const CookieName = "sa_flash"

// Kind classifies notice presentation.
type Kind string

const (
	KindSuccess Kind = "success"
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Notice references a localized message and an optional server-provided
// detail shown verbatim after it.
type Notice struct {
	Kind   Kind   `json:"kind"`
	Key    string `json:"key"`
	Detail string `json:"detail,omitempty"`
}

// Success creates a success notice for key.
func Success(key string) Notice {
	return Notice{Kind: KindSuccess, Key: key}
}

// Error creates an error notice for key carrying detail.
func Error(key, detail string) Notice {
	return Notice{Kind: KindError, Key: key, Detail: detail}
}

// Codec signs notices so a client cannot forge a message the console did
// not produce.
type Codec struct {
	cookies *securecookie.SecureCookie
	policy  requestmeta.SchemePolicy
}

// NewCodec builds a notice codec. blockKey may be nil to sign without
// encrypting.
func NewCodec(hashKey, blockKey []byte, policy requestmeta.SchemePolicy) *Codec {
	cookies := securecookie.New(hashKey, blockKey)
	cookies.SetSerializer(securecookie.JSONEncoder{})
	cookies.MaxAge(300)
	return &Codec{cookies: cookies, policy: policy}
}

// Write stores notice for the next page render.
func (c *Codec) Write(w http.ResponseWriter, r *http.Request, notice Notice) {
	if c == nil || w == nil {
		return
	}
	normalized, ok := normalizeNotice(notice)
	if !ok {
		return
	}
	value, err := c.cookies.Encode(CookieName, normalized)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   requestmeta.IsHTTPS(r, c.policy),
		SameSite: http.SameSiteLaxMode,
	})
}

// ReadAndClear returns the pending notice and expires its cookie.
func (c *Codec) ReadAndClear(w http.ResponseWriter, r *http.Request) (Notice, bool) {
	if c == nil || r == nil {
		return Notice{}, false
	}
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie == nil {
		return Notice{}, false
	}
	c.Clear(w, r)
	var notice Notice
	if err := c.cookies.Decode(CookieName, cookie.Value, &notice); err != nil {
		return Notice{}, false
	}
	return normalizeNotice(notice)
}

// Clear expires any pending notice.
func (c *Codec) Clear(w http.ResponseWriter, r *http.Request) {
	if c == nil || w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   requestmeta.IsHTTPS(r, c.policy),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func normalizeNotice(notice Notice) (Notice, bool) {
	notice.Key = strings.TrimSpace(notice.Key)
	if notice.Key == "" {
		return Notice{}, false
	}
	notice.Detail = strings.TrimSpace(notice.Detail)
	notice.Kind = Kind(strings.ToLower(strings.TrimSpace(string(notice.Kind))))
	switch notice.Kind {
	case KindSuccess, KindInfo, KindWarning, KindError:
		return notice, true
	default:
		return Notice{}, false
	}
}
