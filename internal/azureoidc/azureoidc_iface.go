package azureoidc

import "context"

// Verifier validates Entra ID bearer tokens and extracts their claims.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*Claims, error)
}
