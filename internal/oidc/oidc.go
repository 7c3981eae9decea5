// Package oidc holds the token verifiers behind the /api auth middleware. In
// production daybook trusts ID tokens from an external OIDC issuer, and the
// token subject becomes the owner of every journal entry. HMACVerifier covers
// local setups that mint their own tokens with `daybook token`.
package oidc

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/daybook/daybook/pkg/middleware"
)

// Verifier checks ID tokens against the issuer's published keys and the configured client id.
type Verifier struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
}

// NewVerifier runs provider discovery once at startup; ctx bounds that request.
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: clientID})
	return &Verifier{provider: provider, verifier: verifier}, nil
}

// Verify returns the verified token; its claims carry the `sub` used as the owner id.
func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	return idToken, nil
}
