package session

import (
	"context"
	"errors"
	"strings"
)

// ErrInvalidToken is returned for identity tokens that fail verification
var ErrInvalidToken = errors.New("invalid identity token")

// TokenVerifier checks an identity provider token and returns the identity
// it vouches for
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (Identity, error)
}

// VerifierFunc adapts a function to TokenVerifier
type VerifierFunc func(ctx context.Context, rawToken string) (Identity, error)

// Verify calls f
func (f VerifierFunc) Verify(ctx context.Context, rawToken string) (Identity, error) {
	return f(ctx, rawToken)
}

// normalizeRole maps a provider role claim onto a known role. Anything
// unrecognised, including a missing claim, is a plain customer.
func normalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleAdmin:
		return RoleAdmin
	case RoleShop:
		return RoleShop
	default:
		return RoleCustomer
	}
}
