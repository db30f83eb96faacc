package token

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mehmetcc/medgate/internal/config"
	"github.com/mehmetcc/medgate/internal/person"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) FindPrincipal(ctx context.Context, id int64) (*person.Principal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*person.Principal), args.Error(1)
}

func testConfig() *config.JWTConfig {
	return &config.JWTConfig{
		Secret:          "0123456789abcdef0123456789abcdef",
		Issuer:          "medgate",
		Audience:        "medgate-clients",
		LifetimeMinutes: 60,
	}
}

type fixture struct {
	issuer    *Issuer
	validator *Validator
	resolver  *MockResolver
	clock     time.Time
}

func newFixture(t *testing.T, issueCfg, validateCfg *config.JWTConfig) *fixture {
	t.Helper()
	f := &fixture{
		resolver: new(MockResolver),
		clock:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	f.issuer = NewIssuer(zap.NewNop(), issueCfg)
	f.issuer.now = func() time.Time { return f.clock }
	f.validator = NewValidator(zap.NewNop(), validateCfg, f.resolver)
	f.validator.now = func() time.Time { return f.clock }
	return f
}

func TestIssueThenValidate(t *testing.T) {
	for _, id := range []int64{1, 42, 1 << 40} {
		f := newFixture(t, testConfig(), testConfig())
		want := &person.Principal{ID: id, Username: "someone", Role: person.RoleNurse}
		f.resolver.On("FindPrincipal", mock.Anything, id).Return(want, nil)

		cred, err := f.issuer.Issue(id)
		require.NoError(t, err)
		assert.Equal(t, f.clock.Add(time.Hour), cred.ExpiresAt)

		got, err := f.validator.Validate(context.Background(), cred.Token)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		f.resolver.AssertExpectations(t)
	}
}

func TestCredentialCarriesNoRole(t *testing.T) {
	f := newFixture(t, testConfig(), testConfig())
	cred, err := f.issuer.Issue(5)
	require.NoError(t, err)

	raw := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(cred.Token, raw)
	require.NoError(t, err)
	assert.NotContains(t, raw, "role")
	assert.Equal(t, "5", raw["sub"])
	assert.Equal(t, "medgate", raw["iss"])
}

func TestExpiryBoundary(t *testing.T) {
	tests := []struct {
		name    string
		advance time.Duration
		wantErr error
	}{
		{name: "59 minutes later", advance: 59 * time.Minute},
		{name: "exactly at expiry", advance: 60 * time.Minute, wantErr: ErrExpired},
		{name: "61 minutes later", advance: 61 * time.Minute, wantErr: ErrExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testConfig(), testConfig())
			f.resolver.On("FindPrincipal", mock.Anything, int64(9)).
				Return(&person.Principal{ID: 9, Role: person.RoleDoctor}, nil).Maybe()

			cred, err := f.issuer.Issue(9)
			require.NoError(t, err)

			f.clock = f.clock.Add(tt.advance)
			p, err := f.validator.Validate(context.Background(), cred.Token)
			if tt.wantErr != nil {
				assert.Nil(t, p)
				assert.ErrorIs(t, err, tt.wantErr)
				f.resolver.AssertNotCalled(t, "FindPrincipal", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(9), p.ID)
		})
	}
}

func TestDefaultLifetimeIsSixtyMinutes(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://x")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("JWT_ISSUER", "i")
	t.Setenv("JWT_AUDIENCE", "a")
	t.Setenv("JWT_LIFETIME_MINUTES", "")
	cfg, err := config.LoadConfig(zap.NewNop())
	require.NoError(t, err)

	f := newFixture(t, cfg.JWTConfig, cfg.JWTConfig)
	cred, err := f.issuer.Issue(1)
	require.NoError(t, err)
	assert.Equal(t, 60*time.Minute, cred.ExpiresAt.Sub(f.clock))
}

func TestValidateFailures(t *testing.T) {
	otherSecret := testConfig()
	otherSecret.Secret = "a-completely-different-signing-secret"

	otherIssuer := testConfig()
	otherIssuer.Issuer = "rogue-clinic"

	otherAudience := testConfig()
	otherAudience.Audience = "billing"

	tests := []struct {
		name     string
		issueCfg *config.JWTConfig
		token    func(cred string) string
		wantErr  error
	}{
		{name: "different secret", issueCfg: otherSecret, wantErr: ErrInvalidSignature},
		{name: "mismatched issuer", issueCfg: otherIssuer, wantErr: ErrInvalidIssuerOrAudience},
		{name: "mismatched audience", issueCfg: otherAudience, wantErr: ErrInvalidIssuerOrAudience},
		{
			name:     "tampered payload",
			issueCfg: testConfig(),
			token: func(cred string) string {
				parts := strings.Split(cred, ".")
				parts[1] = parts[1][:len(parts[1])-2] + "AA"
				return strings.Join(parts, ".")
			},
			wantErr: ErrInvalidSignature,
		},
		{
			name:     "garbage",
			issueCfg: testConfig(),
			token:    func(string) string { return "not-a-credential" },
			wantErr:  ErrInvalidSignature,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.issueCfg, testConfig())
			cred, err := f.issuer.Issue(3)
			require.NoError(t, err)

			raw := cred.Token
			if tt.token != nil {
				raw = tt.token(raw)
			}
			p, err := f.validator.Validate(context.Background(), raw)
			assert.Nil(t, p)
			assert.ErrorIs(t, err, tt.wantErr)
			f.resolver.AssertNotCalled(t, "FindPrincipal", mock.Anything, mock.Anything)
		})
	}
}

func TestValidateRejectsOtherAlgorithms(t *testing.T) {
	cfg := testConfig()
	tkn := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "3",
		Issuer:    cfg.Issuer,
		Audience:  jwt.ClaimStrings{cfg.Audience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := tkn.SignedString([]byte(cfg.Secret))
	require.NoError(t, err)

	f := newFixture(t, cfg, cfg)
	f.clock = time.Now()
	_, err = f.validator.Validate(context.Background(), signed)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestValidateExpiredWithValidSignatureAndMismatchedIssuer(t *testing.T) {
	// issuer/audience is checked before expiry
	cfg := testConfig()
	cfg.Issuer = "elsewhere"
	f := newFixture(t, cfg, testConfig())
	cred, err := f.issuer.Issue(3)
	require.NoError(t, err)

	f.clock = f.clock.Add(2 * time.Hour)
	_, err = f.validator.Validate(context.Background(), cred.Token)
	assert.ErrorIs(t, err, ErrInvalidIssuerOrAudience)
}

func TestValidatePrincipalResolution(t *testing.T) {
	t.Run("deleted account", func(t *testing.T) {
		f := newFixture(t, testConfig(), testConfig())
		f.resolver.On("FindPrincipal", mock.Anything, int64(12)).Return(nil, person.ErrNotFound)

		cred, err := f.issuer.Issue(12)
		require.NoError(t, err)
		_, err = f.validator.Validate(context.Background(), cred.Token)
		assert.ErrorIs(t, err, ErrPrincipalNotFound)
	})

	t.Run("lookup failure is passed through", func(t *testing.T) {
		f := newFixture(t, testConfig(), testConfig())
		boom := errors.New("connection reset")
		f.resolver.On("FindPrincipal", mock.Anything, int64(12)).Return(nil, boom)

		cred, err := f.issuer.Issue(12)
		require.NoError(t, err)
		_, err = f.validator.Validate(context.Background(), cred.Token)
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, ErrPrincipalNotFound)
	})

	t.Run("role is re-resolved on every call", func(t *testing.T) {
		f := newFixture(t, testConfig(), testConfig())
		f.resolver.On("FindPrincipal", mock.Anything, int64(4)).
			Return(&person.Principal{ID: 4, Role: person.RoleNurse}, nil).Once()
		f.resolver.On("FindPrincipal", mock.Anything, int64(4)).
			Return(&person.Principal{ID: 4, Role: person.RoleDoctor}, nil).Once()

		cred, err := f.issuer.Issue(4)
		require.NoError(t, err)

		first, err := f.validator.Validate(context.Background(), cred.Token)
		require.NoError(t, err)
		second, err := f.validator.Validate(context.Background(), cred.Token)
		require.NoError(t, err)
		assert.Equal(t, person.RoleNurse, first.Role)
		assert.Equal(t, person.RoleDoctor, second.Role)
	})
}

func TestCodecRoundTrip(t *testing.T) {
	c := NewCodec("k")
	in := Claims{
		Subject:   77,
		Issuer:    "medgate",
		Audience:  "medgate-clients",
		IssuedAt:  time.Unix(1700000000, 0).UTC(),
		ExpiresAt: time.Unix(1700003600, 0).UTC(),
	}
	raw, err := c.Encode(in)
	require.NoError(t, err)

	out, err := c.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, in.Subject, out.Subject)
	assert.Equal(t, in.Issuer, out.Issuer)
	assert.Equal(t, in.Audience, out.Audience)
	assert.True(t, in.ExpiresAt.Equal(out.ExpiresAt))
	assert.True(t, in.IssuedAt.Equal(out.IssuedAt))
}
