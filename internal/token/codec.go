package token

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the fixed payload of a credential. Role is deliberately absent:
// it is resolved again on every call so a role change takes effect at once.
type Claims struct {
	Subject   int64
	Issuer    string
	Audience  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Codec struct {
	secret     []byte
	signingAlg jwt.SigningMethod
}

func NewCodec(secret string) *Codec {
	return &Codec{
		secret:     []byte(secret),
		signingAlg: jwt.SigningMethodHS256,
	}
}

func (c *Codec) Encode(claims Claims) (string, error) {
	registered := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(claims.Subject, 10),
		Issuer:    claims.Issuer,
		Audience:  jwt.ClaimStrings{claims.Audience},
		IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
	}
	signed, err := jwt.NewWithClaims(c.signingAlg, registered).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign credential: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and returns the payload. Issuer, audience
// and expiry are left to the Validator.
func (c *Codec) Decode(raw string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.signingAlg.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	var registered jwt.RegisteredClaims
	tkn, err := parser.ParseWithClaims(raw, &registered, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !tkn.Valid {
		return Claims{}, ErrInvalidSignature
	}

	sub, err := strconv.ParseInt(registered.Subject, 10, 64)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: subject %q is not an id", ErrInvalidSignature, registered.Subject)
	}

	out := Claims{
		Subject: sub,
		Issuer:  registered.Issuer,
	}
	if len(registered.Audience) == 1 {
		out.Audience = registered.Audience[0]
	}
	if registered.IssuedAt != nil {
		out.IssuedAt = registered.IssuedAt.Time
	}
	if registered.ExpiresAt != nil {
		out.ExpiresAt = registered.ExpiresAt.Time
	}
	return out, nil
}
