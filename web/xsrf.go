package web

import (
	"net/http"
	"time"

	"github.com/cccteam/httpio"
	"github.com/cccteam/logger"
	"github.com/go-playground/errors/v5"
	"github.com/gofrs/uuid"
)

const (
	xsrfCookieName = "XSRF-TOKEN"
	xsrfFieldName  = "xsrfToken"
	xsrfHeaderName = "X-XSRF-TOKEN"

	// Keys used in Secure Token Cookie
	xsrfToken      stKey = "token"
	xsrfExpiration stKey = "expiration"

	xsrfCookieLife = time.Hour

	// rewrite xsrf cookie token if it expires within duration
	xsrfReWriteWindow = 30 * time.Minute
)

// safeMethods are Idempotent methods as defined by RFC7231 section 4.2.2.
var safeMethods = methods([]string{"GET", "HEAD", "OPTIONS", "TRACE"})

type methods []string

func (vals methods) contain(s string) bool {
	for _, v := range vals {
		if v == s {
			return true
		}
	}

	return false
}

// ValidateXSRFToken rejects non-safe requests whose submitted token does
// not match the XSRF cookie. Forms carry the token in a hidden field;
// script callers may use the header instead.
func (a *App) ValidateXSRFToken(next http.Handler) http.Handler {
	return a.handle(func(w http.ResponseWriter, r *http.Request) error {
		if !safeMethods.contain(r.Method) && !a.hasValidXSRFToken(r) {
			return httpio.NewEncoder(w).ClientMessage(r.Context(), httpio.NewForbiddenMessage("invalid XSRF token"))
		}

		next.ServeHTTP(w, r)

		return nil
	})
}

// ensureXSRFToken returns the token the next form should submit, writing
// the cookie when it is missing or close to expiration.
func (a *App) ensureXSRFToken(w http.ResponseWriter, r *http.Request) string {
	cookieValue, found := a.readXSRFCookie(r)
	if found {
		exp, err := time.Parse(time.UnixDate, cookieValue[xsrfExpiration])
		if err != nil {
			logger.Req(r).Error("parsing expiration")
		} else if time.Now().Before(exp.Add(-xsrfReWriteWindow)) {
			return cookieValue[xsrfToken]
		}
	}

	token, err := uuid.NewV4()
	if err != nil {
		logger.Req(r).Error(errors.Wrap(err, "uuid.NewV4()"))

		return ""
	}

	cookieValue = map[stKey]string{
		xsrfToken:      token.String(),
		xsrfExpiration: time.Now().Add(xsrfCookieLife).Format(time.UnixDate),
	}
	if err := a.writeXSRFCookie(w, xsrfCookieLife, cookieValue); err != nil {
		logger.Req(r).Error(errors.Wrap(err, "App.writeXSRFCookie()"))

		return ""
	}

	return token.String()
}

func (a *App) hasValidXSRFToken(r *http.Request) bool {
	cookieValue, found := a.readXSRFCookie(r)
	if !found {
		return false
	}
	exp, err := time.Parse(time.UnixDate, cookieValue[xsrfExpiration])
	if err != nil {
		logger.Req(r).Error("parsing expiration")

		return false
	}
	if time.Now().After(exp) {
		return false
	}

	submitted := r.PostFormValue(xsrfFieldName)
	if submitted == "" {
		submitted = r.Header.Get(xsrfHeaderName)
	}

	return submitted != "" && submitted == cookieValue[xsrfToken]
}

func (a *App) writeXSRFCookie(w http.ResponseWriter, cookieExpiration time.Duration, cookieValue map[stKey]string) error {
	encoded, err := a.cookies.Codec().Encode(xsrfCookieName, cookieValue)
	if err != nil {
		return errors.Wrap(err, "securecookie.Encode()")
	}

	http.SetCookie(w, &http.Cookie{
		Name:    xsrfCookieName,
		Expires: time.Now().Add(cookieExpiration),
		Value:   encoded,
		Path:    "/",
		Secure:  true,
	})

	return nil
}

func (a *App) readXSRFCookie(r *http.Request) (map[stKey]string, bool) {
	cookie, err := r.Cookie(xsrfCookieName)
	if err != nil {
		return nil, false
	}

	cookieValue := make(map[stKey]string)
	if err := a.cookies.Codec().Decode(xsrfCookieName, cookie.Value, &cookieValue); err != nil {
		logger.Req(r).Error("securecookie.Decode()")

		return nil, false
	}

	return cookieValue, true
}
