package token

import (
	"time"

	"github.com/mehmetcc/medgate/internal/config"
	"go.uber.org/zap"
)

// Credential is the signed string handed to a client together with its expiry.
type Credential struct {
	Token     string    `json:"credential"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Issuer struct {
	logger *zap.Logger
	codec  *Codec
	cfg    *config.JWTConfig
	now    func() time.Time
}

func NewIssuer(logger *zap.Logger, cfg *config.JWTConfig) *Issuer {
	return &Issuer{
		logger: logger,
		codec:  NewCodec(cfg.Secret),
		cfg:    cfg,
		now:    time.Now,
	}
}

// Issue mints a credential for an already authenticated principal id.
func (i *Issuer) Issue(principalID int64) (*Credential, error) {
	issuedAt := i.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(i.cfg.Lifetime())

	signed, err := i.codec.Encode(Claims{
		Subject:   principalID,
		Issuer:    i.cfg.Issuer,
		Audience:  i.cfg.Audience,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		i.logger.Error("failed to sign credential", zap.Int64("principal_id", principalID), zap.Error(err))
		return nil, err
	}

	return &Credential{
		Token:     signed,
		ExpiresAt: expiresAt,
	}, nil
}
