package auth

import "context"

// TokenValidator resolves a bearer token to the user it was issued for.
// The gin middleware depends on this rather than on Service so handlers can be
// tested with a stub identity provider.
type TokenValidator interface {
	ValidateToken(ctx context.Context, tokenString string) (string, error)
}

// Ensure Service implements TokenValidator
var _ TokenValidator = (*Service)(nil)
