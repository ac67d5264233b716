package azureoidc

import (
	"context"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-playground/errors/v5"
)

// loader lazily discovers the OIDC provider on first use and caches it.
// Discovery requires network access to the issuer, so it is deferred off
// the construction path.
type loader struct {
	issuerURL string
	clientID  string

	mu       sync.RWMutex
	provider *oidc.Provider
}

func (l *loader) verifier(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	provider, err := l.load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loader.load()")
	}

	return provider.Verifier(&oidc.Config{ClientID: l.clientID}), nil
}

func (l *loader) load(ctx context.Context) (*oidc.Provider, error) {
	l.mu.RLock()
	if l.provider != nil {
		l.mu.RUnlock()

		return l.provider, nil
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.provider != nil {
		return l.provider, nil
	}

	provider, err := oidc.NewProvider(ctx, l.issuerURL)
	if err != nil {
		return nil, errors.Wrap(err, "oidc.NewProvider()")
	}
	l.provider = provider

	return provider, nil
}
