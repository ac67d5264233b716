package web

import (
	"net/http"
	"net/url"

	"github.com/guardteam/authgate/client"
	"github.com/guardteam/authgate/credstore"
	"github.com/guardteam/authgate/guard"
	"github.com/guardteam/authgate/internal/jwtlocal"
	"github.com/guardteam/authgate/permission"
	"go.opentelemetry.io/otel"
)

// Home sends the browser to the dashboard; the route guards take it from
// there.
func (a *App) Home() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	}
}

// AuthSelector shows the available sign-in methods. When only local auth
// is enabled it forwards straight to the login form.
func (a *App) AuthSelector() http.HandlerFunc {
	type page struct {
		AzureEnabled bool
		LocalEnabled bool
		ReturnURL    string
		Warning      string
		Error        string
	}

	return a.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "App.AuthSelector()")
		defer span.End()

		sess := a.session(w, r)
		returnURL := r.URL.Query().Get("returnUrl")

		cfg, err := sess.MethodConfig(ctx)
		if err != nil {
			return a.render(w, r, "selector.html", page{ReturnURL: returnURL, Error: client.UserMessage(err)})
		}

		p := page{
			AzureEnabled: cfg.AzureADEnabled && a.azure != nil,
			LocalEnabled: cfg.LocalJWTEnabled,
			ReturnURL:    returnURL,
		}
		if cfg.AzureADEnabled && cfg.LocalJWTEnabled {
			p.Warning = "Ambos métodos de autenticación están habilitados; Azure AD tiene prioridad."
		}
		if p.LocalEnabled && !p.AzureEnabled {
			http.Redirect(w, r, "/login?returnUrl="+url.QueryEscape(returnURL), http.StatusFound)

			return nil
		}

		return a.render(w, r, "selector.html", p)
	})
}

// LoginPage renders the local credential form.
func (a *App) LoginPage() http.HandlerFunc {
	type page struct {
		ReturnURL string
		Error     string
		XSRF      string
	}

	return a.handle(func(w http.ResponseWriter, r *http.Request) error {
		return a.render(w, r, "login.html", page{
			ReturnURL: r.URL.Query().Get("returnUrl"),
			XSRF:      a.ensureXSRFToken(w, r),
		})
	})
}

// Login submits the local credentials and establishes the session cookie.
func (a *App) Login() http.HandlerFunc {
	type page struct {
		ReturnURL string
		Error     string
		XSRF      string
	}

	return a.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "App.Login()")
		defer span.End()

		if err := r.ParseForm(); err != nil {
			return a.render(w, r, "login.html", page{Error: "Solicitud inválida", XSRF: a.ensureXSRFToken(w, r)})
		}
		returnURL := r.PostFormValue("returnUrl")

		sess := a.session(w, r)
		if _, err := sess.ResolveMethod(ctx); err != nil {
			return a.render(w, r, "login.html", page{ReturnURL: returnURL, Error: client.UserMessage(err), XSRF: a.ensureXSRFToken(w, r)})
		}
		if _, err := sess.Login(ctx, r.PostFormValue("email"), r.PostFormValue("password")); err != nil {
			return a.render(w, r, "login.html", page{ReturnURL: returnURL, Error: client.UserMessage(err), XSRF: a.ensureXSRFToken(w, r)})
		}

		http.Redirect(w, r, safeReturnURL(returnURL), http.StatusFound)

		return nil
	})
}

// Logout clears the session cookie and returns to the method selector.
func (a *App) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.session(w, r).Logout()
		http.Redirect(w, r, "/auth-selector", http.StatusFound)
	}
}

// AccessDenied shows the denial page with a link back to the attempted
// URL, so a permission recheck can resume where the user left off.
func (a *App) AccessDenied() http.HandlerFunc {
	return a.handle(func(w http.ResponseWriter, r *http.Request) error {
		attempted := r.URL.Query().Get("returnUrl")
		if attempted == "" {
			store := a.cookies.Open(w, r)
			attempted, _ = guard.AttemptedURL(store)
		}

		return a.renderDenied(w, r, attempted)
	})
}

type deniedPage struct {
	AttemptedURL string
	XSRF         string
}

func (a *App) renderDenied(w http.ResponseWriter, r *http.Request, attempted string) error {
	return a.render(w, r, "denied.html", deniedPage{
		AttemptedURL: safeReturnURL(attempted),
		XSRF:         a.ensureXSRFToken(w, r),
	})
}

// Profile shows the signed-in identity and its permissions.
func (a *App) Profile() http.HandlerFunc {
	type page struct {
		Info  *permission.UserInfo
		Error string
	}

	return a.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "App.Profile()")
		defer span.End()

		sess := a.session(w, r)
		info, err := sess.FetchUserInfo(ctx)
		if err != nil {
			if client.HasKind(err, client.KindTokenExpired) {
				http.Redirect(w, r, "/auth-selector", http.StatusFound)

				return nil
			}

			return a.render(w, r, "perfil.html", page{Error: client.UserMessage(err)})
		}

		return a.render(w, r, "perfil.html", page{Info: info})
	})
}

// Dashboard renders the protected dashboard metrics.
func (a *App) Dashboard() http.HandlerFunc {
	type page struct {
		Data  *client.DashboardPage
		Error string
		XSRF  string
	}

	return a.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "App.Dashboard()")
		defer span.End()

		data, err := a.session(w, r).Dashboard(ctx)
		if err != nil {
			if client.HasKind(err, client.KindTokenExpired) {
				http.Redirect(w, r, "/auth-selector", http.StatusFound)

				return nil
			}

			return a.render(w, r, "dashboard.html", page{Error: client.UserMessage(err), XSRF: a.ensureXSRFToken(w, r)})
		}

		return a.render(w, r, "dashboard.html", page{Data: data, XSRF: a.ensureXSRFToken(w, r)})
	})
}

// Users renders the protected demo catalog.
func (a *App) Users() http.HandlerFunc {
	type page struct {
		Data  *client.DataPage
		Error string
	}

	return a.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "App.Users()")
		defer span.End()

		data, err := a.session(w, r).Data(ctx)
		if err != nil {
			if client.HasKind(err, client.KindTokenExpired) {
				http.Redirect(w, r, "/auth-selector", http.StatusFound)

				return nil
			}

			return a.render(w, r, "usuarios.html", page{Error: client.UserMessage(err)})
		}

		return a.render(w, r, "usuarios.html", page{Data: data})
	})
}

// AzureLogin starts the Entra ID authorization-code flow.
func (a *App) AzureLogin() http.HandlerFunc {
	return a.handle(func(w http.ResponseWriter, r *http.Request) error {
		authURL, err := a.azure.AuthCodeURL(w, r.URL.Query().Get("returnUrl"))
		if err != nil {
			return err
		}

		http.Redirect(w, r, authURL, http.StatusFound)

		return nil
	})
}

// AzureCallback completes the Entra ID flow, stores the verified ID token
// as the session bearer token, and warms the permission cache.
func (a *App) AzureCallback() http.HandlerFunc {
	return a.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "App.AzureCallback()")
		defer span.End()

		returnURL, rawIDToken, err := a.azure.Callback(ctx, w, r)
		if err != nil {
			http.Redirect(w, r, "/auth-selector", http.StatusFound)

			return err
		}

		sess := a.session(w, r)
		if _, err := sess.RefreshMethod(ctx); err != nil {
			http.Redirect(w, r, "/auth-selector", http.StatusFound)

			return err
		}
		sess.Store().Set(credstore.KeyToken, []byte(jwtlocal.TokenPrefix+rawIDToken))
		if _, err := sess.FetchUserInfo(ctx); err != nil {
			return a.renderDenied(w, r, returnURL)
		}

		http.Redirect(w, r, safeReturnURL(returnURL), http.StatusFound)

		return nil
	})
}

// ForgotPasswordPage renders the recovery request form.
func (a *App) ForgotPasswordPage() http.HandlerFunc {
	type page struct {
		Message string
		Error   string
		XSRF    string
	}

	return a.handle(func(w http.ResponseWriter, r *http.Request) error {
		return a.render(w, r, "forgot.html", page{XSRF: a.ensureXSRFToken(w, r)})
	})
}

// ForgotPassword submits the recovery request.
func (a *App) ForgotPassword() http.HandlerFunc {
	type page struct {
		Message string
		Error   string
		XSRF    string
	}

	return a.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "App.ForgotPassword()")
		defer span.End()

		if err := r.ParseForm(); err != nil {
			return a.render(w, r, "forgot.html", page{Error: "Solicitud inválida", XSRF: a.ensureXSRFToken(w, r)})
		}

		msg, err := a.session(w, r).ForgotPassword(ctx, r.PostFormValue("email"))
		if err != nil {
			return a.render(w, r, "forgot.html", page{Error: client.UserMessage(err), XSRF: a.ensureXSRFToken(w, r)})
		}

		return a.render(w, r, "forgot.html", page{Message: msg})
	})
}

// ResetPasswordPage renders the new-password form for a recovery token.
func (a *App) ResetPasswordPage() http.HandlerFunc {
	type page struct {
		Token      string
		TokenValid bool
		Error      string
		XSRF       string
	}

	return a.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "App.ResetPasswordPage()")
		defer span.End()

		token := r.URL.Query().Get("token")
		valid, err := a.session(w, r).ValidateResetToken(ctx, token)
		if err != nil {
			return a.render(w, r, "reset.html", page{Token: token, Error: client.UserMessage(err), XSRF: a.ensureXSRFToken(w, r)})
		}

		return a.render(w, r, "reset.html", page{Token: token, TokenValid: valid, XSRF: a.ensureXSRFToken(w, r)})
	})
}

// ResetPassword submits the new password for a recovery token.
func (a *App) ResetPassword() http.HandlerFunc {
	type page struct {
		Token      string
		TokenValid bool
		Message    string
		Error      string
		XSRF       string
	}

	return a.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "App.ResetPassword()")
		defer span.End()

		if err := r.ParseForm(); err != nil {
			return a.render(w, r, "reset.html", page{Error: "Solicitud inválida", XSRF: a.ensureXSRFToken(w, r)})
		}
		token := r.PostFormValue("token")

		if err := a.session(w, r).ResetPassword(ctx, token, r.PostFormValue("newPassword")); err != nil {
			return a.render(w, r, "reset.html", page{Token: token, TokenValid: true, Error: client.UserMessage(err), XSRF: a.ensureXSRFToken(w, r)})
		}

		return a.render(w, r, "reset.html", page{Message: "Contraseña actualizada exitosamente"})
	})
}

// safeReturnURL keeps redirects on-site. Anything absolute or
// protocol-relative falls back to the root.
func safeReturnURL(raw string) string {
	if raw == "" {
		return "/"
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}

	return u.RequestURI()
}
