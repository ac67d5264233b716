package credstore

import (
	"net/http"

	"github.com/cccteam/logger"
	"github.com/go-playground/errors/v5"
	"github.com/gorilla/securecookie"
)

const defaultCookieName = "authgate"

// CookieClient creates request-scoped Stores backed by a single encrypted
// cookie. It stands in for browser storage when the caller is a server
// rendered front end.
type CookieClient struct {
	secureCookie *securecookie.SecureCookie
	cookieName   string
}

// CookieOption configures a CookieClient.
type CookieOption func(*CookieClient)

// WithCookieName overrides the cookie name. (default: authgate)
func WithCookieName(name string) CookieOption {
	return func(c *CookieClient) {
		c.cookieName = name
	}
}

// NewCookieClient returns a CookieClient encrypting with secureCookie.
func NewCookieClient(secureCookie *securecookie.SecureCookie, options ...CookieOption) *CookieClient {
	c := &CookieClient{
		secureCookie: secureCookie,
		cookieName:   defaultCookieName,
	}
	for _, opt := range options {
		opt(c)
	}

	return c
}

// Codec exposes the cookie codec for sibling cookies that are not part of
// the credential store, so they share the same keys.
func (c *CookieClient) Codec() *securecookie.SecureCookie {
	return c.secureCookie
}

var _ Store = &CookieStore{}

// CookieStore is a Store scoped to one request/response pair. Reads come
// from the decoded request cookie; every mutation re-encodes the full
// value map and sets the cookie on the response, so the stored state is
// always replaced whole.
type CookieStore struct {
	client *CookieClient
	w      http.ResponseWriter
	r      *http.Request
	values map[Key][]byte
}

// Open decodes the credential cookie from r into a request-scoped Store
// writing to w. A missing or undecodable cookie yields an empty store; a
// tampered cookie is not an error, just an empty session.
func (c *CookieClient) Open(w http.ResponseWriter, r *http.Request) *CookieStore {
	values := make(map[Key][]byte)
	if cookie, err := r.Cookie(c.cookieName); err == nil {
		// Ignore decode failures and start clean
		_ = c.secureCookie.Decode(c.cookieName, cookie.Value, &values)
	}

	return &CookieStore{client: c, w: w, r: r, values: values}
}

// Get returns a copy of the value stored under key.
func (s *CookieStore) Get(key Key) ([]byte, bool) {
	v, ok := s.values[key]
	if !ok {
		return nil, false
	}
	cp := make([]byte, len(v))
	copy(cp, v)

	return cp, true
}

// Set replaces the value stored under key and rewrites the cookie.
func (s *CookieStore) Set(key Key, value []byte) {
	cp := make([]byte, len(value))
	copy(cp, value)
	s.values[key] = cp
	s.flush()
}

// Delete removes key and rewrites the cookie.
func (s *CookieStore) Delete(key Key) {
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	s.flush()
}

// Clear drops every cached entity and expires the cookie.
func (s *CookieStore) Clear() {
	s.values = make(map[Key][]byte)
	http.SetCookie(s.w, &http.Cookie{
		Name:     s.client.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *CookieStore) flush() {
	encoded, err := s.client.secureCookie.Encode(s.client.cookieName, s.values)
	if err != nil {
		// The previous cookie stays in place; the state simply does not
		// persist across requests.
		logger.Req(s.r).Error(errors.Wrap(err, "securecookie.Encode()"))

		return
	}

	http.SetCookie(s.w, &http.Cookie{
		Name:     s.client.cookieName,
		Value:    encoded,
		Path:     "/",
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
