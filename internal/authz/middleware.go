package authz

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/mehmetcc/medgate/internal/httpx"
	"github.com/mehmetcc/medgate/internal/person"
	"github.com/mehmetcc/medgate/internal/token"
	"go.uber.org/zap"
)

type CredentialValidator interface {
	Validate(ctx context.Context, raw string) (*person.Principal, error)
}

type Authenticator struct {
	validator CredentialValidator
	logger    *zap.Logger
}

func NewAuthenticator(validator CredentialValidator, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		validator: validator,
		logger:    logger,
	}
}

// Authenticate verifies the bearer credential before any handler runs and
// puts the resolved principal into the request context.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := middleware.GetReqID(ctx)

		raw, ok := BearerCredential(r)
		if !ok {
			a.logger.Debug("missing or malformed authorization header", zap.String("request_id", requestID))
			writeUnauthenticated(w)
			return
		}

		p, err := a.validator.Validate(ctx, raw)
		if err != nil {
			switch {
			case errors.Is(err, token.ErrInvalidSignature),
				errors.Is(err, token.ErrInvalidIssuerOrAudience),
				errors.Is(err, token.ErrExpired),
				errors.Is(err, token.ErrPrincipalNotFound):
				a.logger.Info("credential rejected", zap.String("request_id", requestID), zap.Error(err))
				writeUnauthenticated(w)
			default:
				a.logger.Error("credential validation failed", zap.String("request_id", requestID), zap.Error(err))
				httpx.WriteError(w, http.StatusInternalServerError, httpx.ErrorResponse[any]{
					Code:    httpx.ErrInternal,
					Message: "internal server error",
				})
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, p)))
	})
}

// BearerCredential extracts the credential from "Authorization: Bearer <credential>".
func BearerCredential(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, value, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

type Gate struct {
	policy Policy
	logger *zap.Logger
}

func NewGate(policy Policy, logger *zap.Logger) *Gate {
	return &Gate{
		policy: policy,
		logger: logger,
	}
}

// Require guards a route with the policy entry for op. It must run after
// Authenticate.
func (g *Gate) Require(op Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			p := PrincipalFromContext(ctx)

			switch err := g.policy.Check(p, op); {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, ErrUnauthenticated):
				writeUnauthenticated(w)
			default:
				g.logger.Info("access denied",
					zap.String("request_id", middleware.GetReqID(ctx)),
					zap.String("operation", string(op)),
					zap.Int64("principal_id", p.ID),
					zap.String("role", string(p.Role)),
				)
				httpx.WriteError(w, http.StatusForbidden, httpx.ErrorResponse[any]{
					Code:    httpx.ErrForbidden,
					Message: "insufficient role",
				})
			}
		})
	}
}

func writeUnauthenticated(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="medgate"`)
	httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrorResponse[any]{
		Code:    httpx.ErrUnauthorized,
		Message: "authentication required",
	})
}
