// Package web is the server rendered front end. It keeps the browser
// session in an encrypted cookie and talks to the REST API with the
// client package, so the browser never handles bearer tokens directly.
package web

import (
	"embed"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/cccteam/httpio"
	"github.com/cccteam/logger"
	"github.com/go-chi/chi/v5"
	"github.com/guardteam/authgate/client"
	"github.com/guardteam/authgate/credstore"
	"github.com/guardteam/authgate/guard"
	"github.com/guardteam/authgate/permission"
)

const name = "github.com/guardteam/authgate/web"

//go:embed templates/*.html
var templatesFS embed.FS

// App serves the browser pages.
type App struct {
	apiBaseURL string
	cookies    *credstore.CookieClient
	guard      *guard.Guard
	azure      *AzureAuth
	httpClient *http.Client
	tmpl       *template.Template
}

// Option configures an App.
type Option func(*App)

// WithAzureAuth enables the Entra ID sign-in flow.
func WithAzureAuth(azure *AzureAuth) Option {
	return func(a *App) {
		a.azure = azure
	}
}

// WithHTTPClient overrides the HTTP client used to reach the API.
func WithHTTPClient(hc *http.Client) Option {
	return func(a *App) {
		a.httpClient = hc
	}
}

// New returns an App calling the API at apiBaseURL, holding browser state
// in cookies encrypted by the CookieClient.
func New(apiBaseURL string, cookies *credstore.CookieClient, opts ...Option) (*App, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	a := &App{
		apiBaseURL: strings.TrimSuffix(apiBaseURL, "/"),
		cookies:    cookies,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		tmpl:       tmpl,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.guard = guard.New(func(w http.ResponseWriter, r *http.Request) guard.Session {
		return a.session(w, r)
	})

	return a, nil
}

// session returns the API client scoped to this request's cookie.
func (a *App) session(w http.ResponseWriter, r *http.Request) *client.Client {
	return client.New(a.apiBaseURL, a.cookies.Open(w, r), client.WithHTTPClient(a.httpClient))
}

// Routes returns the page router.
func (a *App) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(a.ValidateXSRFToken)

	r.Get("/", a.Home())
	r.Get("/auth-selector", a.AuthSelector())
	r.Get("/login", a.LoginPage())
	r.Post("/login", a.Login())
	r.Post("/logout", a.Logout())
	r.Get("/acceso-denegado", a.AccessDenied())

	r.Get("/forgot-password", a.ForgotPasswordPage())
	r.Post("/forgot-password", a.ForgotPassword())
	r.Get("/reset-password", a.ResetPasswordPage())
	r.Post("/reset-password", a.ResetPassword())

	if a.azure != nil {
		r.Get("/auth/azure/login", a.AzureLogin())
		r.Get("/auth/azure/callback", a.AzureCallback())
	}

	r.With(a.guard.RequireAuth()).Get("/perfil", a.Profile())
	r.With(a.guard.RequirePermissions(permission.Criteria{Module: "DASHBOARD", Action: "LEER"})).Get("/dashboard", a.Dashboard())
	r.With(a.guard.RequirePermissions(permission.Criteria{Codes: []string{"USUARIOS_LEER"}})).Get("/usuarios", a.Users())

	return r
}

// handle returns a handler that logs any error coming from our custom handlers
func (a *App) handle(handler func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := handler(w, r); err != nil {
			if httpio.CauseIsError(err) {
				logger.Req(r).Error(err)
			} else {
				logger.Req(r).Infof("['%s']", strings.Join(httpio.Messages(err), "', '"))
			}
		}
	}
}

func (a *App) render(w http.ResponseWriter, r *http.Request, page string, data any) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.tmpl.ExecuteTemplate(w, page, data); err != nil {
		logger.Req(r).Error(err)

		return err
	}

	return nil
}
