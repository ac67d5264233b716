// Package client implements the consumer side of the authgate API: auth
// status resolution, local login, authorization, and password recovery.
// Every backend failure is converted into a stable user-facing message;
// raw transport errors are wrapped for logs but never surfaced.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/errors/v5"
	"github.com/guardteam/authgate/authmethod"
	"github.com/guardteam/authgate/credstore"
	"golang.org/x/sync/singleflight"
)

const name = "github.com/guardteam/authgate/client"

const defaultTimeout = 10 * time.Second

// defaultTokenMaxAge evicts local tokens minted before the backend was last
// restarted. Tokens also expire by their own exp claim; this is an extra
// bound on iat age.
const defaultTokenMaxAge = 5 * time.Minute

// Client calls the authgate API and keeps the resulting credentials in a
// credstore.Store. It is safe for concurrent use.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	store       credstore.Store
	methods     *authmethod.Fetcher
	tokenMaxAge time.Duration

	// collapses concurrent user-info initialization into one request
	group singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTokenMaxAge overrides the local-token staleness bound. Zero disables
// age-based eviction entirely.
func WithTokenMaxAge(d time.Duration) Option {
	return func(c *Client) {
		c.tokenMaxAge = d
	}
}

// New returns a Client for the API at baseURL, persisting credentials in
// store.
func New(baseURL string, store credstore.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		store:       store,
		tokenMaxAge: defaultTokenMaxAge,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.methods = authmethod.NewFetcher(baseURL, store, authmethod.WithHTTPClient(c.httpClient))

	return c
}

// Store returns the credential store backing this client.
func (c *Client) Store() credstore.Store {
	return c.store
}

func (c *Client) get(ctx context.Context, path string, bearer string, out any) (int, error) {
	return c.do(ctx, http.MethodGet, path, bearer, nil, out)
}

func (c *Client) post(ctx context.Context, path string, bearer string, body, out any) (int, error) {
	return c.do(ctx, http.MethodPost, path, bearer, body, out)
}

// do executes a request and decodes a 2xx JSON body into out. Non-2xx
// statuses are returned to the caller without error so each operation can
// apply its own taxonomy; a zero status with non-nil error means the
// request never completed.
func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) (int, error) {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, errors.Wrap(err, "json.Marshal()")
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, errors.Wrap(err, "http.NewRequestWithContext()")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "http.Client.Do()")
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, resp.Body)

		return resp.StatusCode, nil
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, errors.Wrap(err, "json.Decoder.Decode()")
		}
	}

	return resp.StatusCode, nil
}
