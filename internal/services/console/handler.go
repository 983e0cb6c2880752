package console

import (
	"bytes"
	"context"
	"embed"
	"io/fs"
	"log"
	"net/http"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/text/language"

	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/console/access"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/console/apiclient"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/console/identity"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/console/session"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/platform/i18n"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/services/console/platform/cookiestore"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/services/console/platform/flash"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/services/console/platform/httpx"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/services/console/routepath"
	"github.com/smart-age-solutions/dashboard.book-an-appointment/internal/services/console/templates"
)

//go:embed static/*
var staticFiles embed.FS

type handler struct {
	config Config
	jar    *cookiestore.Jar
	flash  *flash.Codec
	cache  *apiclient.ResponseCache
}

type sessionContextKey struct{}

type languageContextKey struct{}

func (h *handler) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		httpx.RecoverPanic(),
		httpx.RequestID(),
		httpx.RequestLogger(h.config.AccessLog),
		chimiddleware.StripSlashes,
		httpx.RequireSameOrigin(h.config.SchemePolicy),
	)

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	r.Handle(routepath.StaticPrefix+"*", http.StripPrefix(routepath.StaticPrefix, http.FileServer(http.FS(static))))
	r.Get(routepath.Healthz, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Group(func(r chi.Router) {
		r.Use(h.withLanguage, h.withSession)

		r.Get(routepath.Login, h.handleLoginPage)
		r.Post(routepath.Login, h.handleLogin)
		r.Post(routepath.Logout, h.handleLogout)
		r.Get(routepath.InvitationAccept, h.handleInvitationPage)
		r.Post(routepath.InvitationAccept, h.handleAcceptInvitation)

		r.Group(func(r chi.Router) {
			r.Use(access.RequireClientView(h.accessState, h.denied))
			r.Get(routepath.Root, h.handleDashboard)
			r.Get(routepath.Calendar, h.handleCalendar)
			r.Get(routepath.Appointments, h.handleAppointments)
			r.Post(routepath.AppointmentStatusPattern, h.handleAppointmentStatus)
			r.Post(routepath.AppointmentCancelPattern, h.handleCancelAppointment)
			r.Get(routepath.EmailTemplates, h.handleEmailTemplates)
			r.Get(routepath.Users, h.handleUsers)
			r.Get(routepath.Settings, h.handleSettings)
		})

		r.Group(func(r chi.Router) {
			r.Use(access.RequireBackoffice(h.accessState, h.denied))
			r.Get(routepath.Backoffice, h.handleClientList)
			r.Get(routepath.BackofficeLogs, h.handleLogs)
			r.Get(routepath.BackofficeInvite, h.handleInvitePage)
			r.Post(routepath.BackofficeInvite, h.handleInvite)
			r.Get(routepath.BackofficeClientPattern, h.handleClientDetails)
			r.Post(routepath.BackofficeImpersonatePattern, h.handleImpersonate)
			r.Post(routepath.BackofficeTogglePattern, h.handleToggleStatus)
			r.Post(routepath.ImpersonationStop, h.handleStopImpersonation)
		})
	})
	r.NotFound(h.withLanguage(h.withSession(http.HandlerFunc(h.handleNotFound))).ServeHTTP)
	return r
}

// withLanguage resolves the UI language and persists an explicit choice.
func (h *handler) withLanguage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tag, persist := i18n.ResolveTag(r)
		if persist {
			i18n.SetLanguageCookie(w, tag)
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), languageContextKey{}, tag)))
	})
}

// withSession opens the request's application session. Nothing downstream
// runs until identity resolution has finished.
func (h *handler) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := session.Open(r.Context(), session.Config{
			Store:          h.jar.Bind(w, r),
			APIBaseURL:     h.config.APIBaseURL,
			HTTPClient:     h.config.HTTPClient,
			Cache:          h.cache,
			RequestTimeout: h.config.RequestTimeout,
		})
		if err != nil {
			log.Printf("open session path=%s err=%v", r.URL.Path, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		defer sess.Close()
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionContextKey{}, sess)))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	sess, _ := r.Context().Value(sessionContextKey{}).(*session.Session)
	return sess
}

func languageFrom(r *http.Request) language.Tag {
	if tag, ok := r.Context().Value(languageContextKey{}).(language.Tag); ok {
		return tag
	}
	return i18n.Default()
}

func (h *handler) accessState(r *http.Request) access.State {
	sess := sessionFrom(r)
	if sess == nil {
		return access.State{}
	}
	return sess.Access(r.Context())
}

// denied renders every guard outcome other than mounting the page.
func (h *handler) denied(w http.ResponseWriter, r *http.Request, d access.Decision) {
	switch d {
	case access.DecisionSignIn:
		next := ""
		if r.Method == http.MethodGet {
			next = r.URL.RequestURI()
		}
		httpx.WriteRedirect(w, r, routepath.LoginWithNext(next))
	case access.DecisionPlaceholder:
		// A blocked write still shows the placeholder but never succeeds.
		status := http.StatusOK
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			status = http.StatusForbidden
		}
		h.render(w, r, status, h.page(w, r, ""), nil)
	case access.DecisionForbidden:
		page := h.page(w, r, "forbidden.title")
		h.render(w, r, http.StatusForbidden, page, templates.Forbidden(page))
	default:
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
	}
}

// page builds the layout context, consuming any pending notice.
func (h *handler) page(w http.ResponseWriter, r *http.Request, titleKey string) templates.PageContext {
	tag := languageFrom(r)
	page := templates.PageContext{
		Lang:         tag.String(),
		Loc:          i18n.Printer(tag),
		CurrentPath:  r.URL.Path,
		CurrentQuery: r.URL.RawQuery,
		TitleKey:     titleKey,
		Access:       h.accessState(r),
	}
	if notice, ok := h.flash.ReadAndClear(w, r); ok {
		page.Notice = &notice
	}
	return page
}

// render buffers the page so a 401 raised by a lazily fetched body can
// still turn into a redirect to sign-in.
func (h *handler) render(w http.ResponseWriter, r *http.Request, status int, page templates.PageContext, body templ.Component) {
	var buf bytes.Buffer
	err := templates.Chrome(page, body).Render(r.Context(), &buf)
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			h.redirectToLogin(w, r)
			return
		}
		log.Printf("render page path=%s err=%v", r.URL.Path, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if err := httpx.WriteHTML(w, status, buf.Bytes()); err != nil {
		log.Printf("write page path=%s err=%v", r.URL.Path, err)
	}
}

// redirectToLogin follows a forced expiry. The session has already been
// cleared by the dispatcher.
func (h *handler) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == routepath.Login {
		page := h.page(w, r, "login.title")
		h.render(w, r, http.StatusUnauthorized, page, templates.LoginPage(page, templates.LoginView{}))
		return
	}
	h.flash.Write(w, r, flash.Notice{Kind: flash.KindWarning, Key: "notice.session_expired"})
	next := ""
	if r.Method == http.MethodGet {
		next = r.URL.RequestURI()
	}
	httpx.WriteRedirect(w, r, routepath.LoginWithNext(next))
}

// fail reports a failed action: a 401 goes to sign-in, anything else
// returns to location with the backend's message.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error, location, noticeKey string) {
	if apiclient.IsUnauthorized(err) {
		h.redirectToLogin(w, r)
		return
	}
	log.Printf("console action failed path=%s err=%v", r.URL.Path, err)
	h.flash.Write(w, r, flash.Error(noticeKey, err.Error()))
	httpx.WriteRedirect(w, r, location)
}

func (h *handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	page := h.page(w, r, "notfound.title")
	h.render(w, r, http.StatusNotFound, page, templates.NotFound(page))
}

// landing is where a principal goes after sign-in.
func landing(state identity.State) string {
	if state.IsBackofficeUser() {
		return routepath.Backoffice
	}
	return routepath.Root
}
