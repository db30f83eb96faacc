package token

import "errors"

// All validation failures are reported to callers as unauthenticated; the
// distinct values exist for logging and tests.
var (
	ErrInvalidSignature        = errors.New("invalid credential signature")
	ErrInvalidIssuerOrAudience = errors.New("invalid credential issuer or audience")
	ErrExpired                 = errors.New("credential expired")
	ErrPrincipalNotFound       = errors.New("principal not found")
)
