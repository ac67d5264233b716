package authmethod

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/cccteam/logger"
	"github.com/go-playground/errors/v5"
	"github.com/guardteam/authgate/credstore"
)

const defaultTimeout = 10 * time.Second

// Fetcher retrieves the auth-method configuration from the backend and
// caches it in the credential store. The configuration is fetched at most
// once per application start; Refresh forces a new fetch. The status
// request deliberately carries no credentials so it works before any
// login.
type Fetcher struct {
	baseURL    string
	httpClient *http.Client
	store      credstore.Store

	mu      sync.Mutex
	fetched bool
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient overrides the HTTP client. (default: 10s timeout)
func WithHTTPClient(hc *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.httpClient = hc
	}
}

// NewFetcher returns a Fetcher for the API at baseURL caching into store.
func NewFetcher(baseURL string, store credstore.Store, options ...FetcherOption) *Fetcher {
	f := &Fetcher{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		store:      store,
	}
	for _, opt := range options {
		opt(f)
	}

	return f
}

// Load returns the active configuration, fetching it from the backend on
// the first call and from the store afterwards. A fetch failure is
// returned to the caller, which owns the retry affordance; no automatic
// retry happens and the resolved method falls back to MethodNone.
func (f *Fetcher) Load(ctx context.Context) (Config, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fetched {
		if c, ok := f.stored(); ok {
			return c, nil
		}
	}

	return f.fetch(ctx)
}

// Refresh discards the cached snapshot and fetches a fresh one.
func (f *Fetcher) Refresh(ctx context.Context) (Config, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.fetch(ctx)
}

// Active resolves the currently cached configuration. It never triggers a
// fetch; an absent snapshot resolves to MethodNone.
func (f *Fetcher) Active() Method {
	c, ok := f.stored()
	if !ok {
		return MethodNone
	}

	return Resolve(c)
}

// Clear drops the cached configuration snapshot.
func (f *Fetcher) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetched = false
	f.store.Delete(credstore.KeyAuthConfig)
}

func (f *Fetcher) stored() (Config, bool) {
	c := Config{}
	ok, err := credstore.GetJSON(f.store, credstore.KeyAuthConfig, &c)
	if err != nil || !ok {
		return Config{}, false
	}

	return c, true
}

func (f *Fetcher) fetch(ctx context.Context) (Config, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/config/auth/status", http.NoBody)
	if err != nil {
		return Config{}, errors.Wrap(err, "http.NewRequestWithContext()")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to reach auth status endpoint")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Config{}, errors.Newf("auth status endpoint returned %d", resp.StatusCode)
	}

	c := Config{}
	if err := json.NewDecoder(resp.Body).Decode(&c); err != nil {
		return Config{}, errors.Wrap(err, "json.Decoder.Decode()")
	}
	if c.FetchedAt == 0 {
		c.FetchedAt = time.Now().UnixMilli()
	}

	if c.Misconfigured() {
		logger.Ctx(ctx).Infof("auth configuration invalid: azureAdHabilitado=%t jwtLocalHabilitado=%t, resolving to %s",
			c.AzureADEnabled, c.LocalJWTEnabled, Resolve(c))
	}

	if err := credstore.SetJSON(f.store, credstore.KeyAuthConfig, c); err != nil {
		return Config{}, errors.Wrap(err, "credstore.SetJSON()")
	}
	f.fetched = true

	return c, nil
}
