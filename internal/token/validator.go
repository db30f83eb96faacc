package token

import (
	"context"
	"errors"
	"time"

	"github.com/mehmetcc/medgate/internal/config"
	"github.com/mehmetcc/medgate/internal/person"
	"go.uber.org/zap"
)

type PrincipalResolver interface {
	FindPrincipal(ctx context.Context, id int64) (*person.Principal, error)
}

// Validator is safe for concurrent use; it only reads its configuration.
type Validator struct {
	logger   *zap.Logger
	codec    *Codec
	cfg      *config.JWTConfig
	resolver PrincipalResolver
	now      func() time.Time
}

func NewValidator(logger *zap.Logger, cfg *config.JWTConfig, resolver PrincipalResolver) *Validator {
	return &Validator{
		logger:   logger,
		codec:    NewCodec(cfg.Secret),
		cfg:      cfg,
		resolver: resolver,
		now:      time.Now,
	}
}

// Validate checks signature, issuer and audience, expiry, then resolves the
// subject to a live principal, in that order.
func (v *Validator) Validate(ctx context.Context, raw string) (*person.Principal, error) {
	claims, err := v.codec.Decode(raw)
	if err != nil {
		return nil, err
	}

	if claims.Issuer != v.cfg.Issuer || claims.Audience != v.cfg.Audience {
		return nil, ErrInvalidIssuerOrAudience
	}

	// expiresAt must be strictly after now; ClockSkew is zero unless configured
	if !claims.ExpiresAt.After(v.now().Add(-v.cfg.ClockSkew)) {
		return nil, ErrExpired
	}

	p, err := v.resolver.FindPrincipal(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, person.ErrNotFound) {
			return nil, ErrPrincipalNotFound
		}
		v.logger.Error("principal lookup failed", zap.Int64("principal_id", claims.Subject), zap.Error(err))
		return nil, err
	}
	return p, nil
}
