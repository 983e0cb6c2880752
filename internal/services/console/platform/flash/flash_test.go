package flash

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/services/console/platform/requestmeta"
)

var testHashKey = []byte("0123456789abcdef0123456789abcdef")

func TestWriteThenReadAndClear(t *testing.T) {
	t.Parallel()

	codec := NewCodec(testHashKey, nil, requestmeta.SchemePolicy{})
	write := httptest.NewRecorder()
	codec.Write(write, httptest.NewRequest(http.MethodPost, "/backoffice", nil), Error("notice.toggle_failed", " Client not found "))

	cookies := write.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName {
		t.Fatalf("cookies = %+v, want one %s cookie", cookies, CookieName)
	}
	if !cookies[0].HttpOnly {
		t.Fatal("flash cookie must be HttpOnly")
	}

	req := httptest.NewRequest(http.MethodGet, "/backoffice", nil)
	req.AddCookie(cookies[0])
	read := httptest.NewRecorder()
	notice, ok := codec.ReadAndClear(read, req)
	if !ok {
		t.Fatal("expected notice")
	}
	if notice.Kind != KindError || notice.Key != "notice.toggle_failed" || notice.Detail != "Client not found" {
		t.Fatalf("notice = %+v", notice)
	}
	cleared := read.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Fatalf("expected clearing cookie, got %+v", cleared)
	}
}

func TestReadAndClearRejectsForgedCookie(t *testing.T) {
	t.Parallel()

	codec := NewCodec(testHashKey, nil, requestmeta.SchemePolicy{})
	other := NewCodec([]byte("fedcba9876543210fedcba9876543210"), nil, requestmeta.SchemePolicy{})
	write := httptest.NewRecorder()
	other.Write(write, httptest.NewRequest(http.MethodPost, "/", nil), Success("notice.saved"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(write.Result().Cookies()[0])
	if _, ok := codec.ReadAndClear(httptest.NewRecorder(), req); ok {
		t.Fatal("notice signed with another key must be rejected")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "garbage"})
	if _, ok := codec.ReadAndClear(httptest.NewRecorder(), req); ok {
		t.Fatal("garbage cookie must be rejected")
	}
}

func TestWriteSkipsInvalidNotice(t *testing.T) {
	t.Parallel()

	codec := NewCodec(testHashKey, nil, requestmeta.SchemePolicy{})
	for _, notice := range []Notice{
		{Kind: KindSuccess, Key: " "},
		{Kind: "shout", Key: "notice.saved"},
	} {
		rec := httptest.NewRecorder()
		codec.Write(rec, httptest.NewRequest(http.MethodPost, "/", nil), notice)
		if got := len(rec.Result().Cookies()); got != 0 {
			t.Fatalf("notice %+v wrote %d cookies", notice, got)
		}
	}
}

func TestReadAndClearWithoutCookie(t *testing.T) {
	t.Parallel()

	codec := NewCodec(testHashKey, nil, requestmeta.SchemePolicy{})
	rec := httptest.NewRecorder()
	if _, ok := codec.ReadAndClear(rec, httptest.NewRequest(http.MethodGet, "/", nil)); ok {
		t.Fatal("expected no notice")
	}
	if got := len(rec.Result().Cookies()); got != 0 {
		t.Fatalf("no cookie should be cleared, got %d", got)
	}
}
