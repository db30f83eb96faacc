package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/mehmetcc/medgate/internal/authz"
	"github.com/mehmetcc/medgate/internal/httpx"
	"github.com/mehmetcc/medgate/internal/person"
	"go.uber.org/zap"
)

type AuthenticationHandler interface {
	Login(w http.ResponseWriter, r *http.Request)
	Register(w http.ResponseWriter, r *http.Request)
	Me(w http.ResponseWriter, r *http.Request)
	Routes() chi.Router
}

type authenticationHandler struct {
	logger         *zap.Logger
	authService    AuthService
	authenticator  *authz.Authenticator
	gate           *authz.Gate
	validator      *validator.Validate
	loginRateLimit int
}

func NewAuthenticationHandler(
	authService AuthService,
	authenticator *authz.Authenticator,
	gate *authz.Gate,
	loginRateLimit int,
	l *zap.Logger,
) AuthenticationHandler {
	v := validator.New(validator.WithRequiredStructEnabled())
	return &authenticationHandler{
		logger:         l,
		authService:    authService,
		authenticator:  authenticator,
		gate:           gate,
		validator:      v,
		loginRateLimit: loginRateLimit,
	}
}

func (a *authenticationHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(httprate.Limit(
		a.loginRateLimit,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.WriteError(w, http.StatusTooManyRequests, httpx.ErrorResponse[any]{
				Code:    httpx.ErrTooManyRequests,
				Message: "too many login attempts",
			})
		}),
	)).Post("/login", a.Login)

	r.Group(func(r chi.Router) {
		r.Use(a.authenticator.Authenticate)
		r.With(a.gate.Require(authz.OpWhoAmI)).Get("/me", a.Me)
		r.With(a.gate.Require(authz.OpRegisterStaff)).Post("/register", a.Register)
	})
	return r
}

func (a *authenticationHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	var req LoginRequest
	if err := httpx.DecodeJSON(w, r, a.validator, &req); err != nil {
		a.logger.Warn("rejected login request body", zap.Error(err))
		return
	}

	meta := httpx.DeviceMetaFromRequest(r)
	res, err := a.authService.Login(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUserNotActive):
			a.logger.Info("login failed",
				zap.String("username", req.Username),
				zap.String("platform", string(meta.Platform)),
				zap.String("ip", meta.IP),
				zap.Error(err),
			)
			httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrorResponse[any]{
				Code:    httpx.ErrUnauthorized,
				Message: "invalid username or password",
			})
		default:
			a.logger.Error("internal server error", zap.Error(err))
			httpx.WriteError(w, http.StatusInternalServerError, httpx.ErrorResponse[any]{
				Code:    httpx.ErrInternal,
				Message: "internal server error",
			})
		}
		return
	}

	a.logger.Info("login succeeded",
		zap.Int64("principal_id", res.Principal.ID),
		zap.String("role", string(res.Principal.Role)),
		zap.String("platform", string(meta.Platform)),
		zap.String("device_id", meta.DeviceID),
		zap.String("ip", meta.IP),
	)

	httpx.WriteJSON(w, http.StatusOK, LoginResponse{
		Principal:  *res.Principal,
		Credential: res.Credential.Token,
		ExpiresAt:  res.Credential.ExpiresAt,
	})
}

func (a *authenticationHandler) Me(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, authz.PrincipalFromContext(r.Context()))
}

func (a *authenticationHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	var req registerPersonRequest
	if err := httpx.DecodeJSON(w, r, a.validator, &req); err != nil {
		a.logger.Warn("rejected register request body", zap.Error(err))
		return
	}

	id, err := a.authService.Register(ctx, &person.PersonDTO{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
		Role:     person.Role(req.Role),
	})
	if err != nil {
		a.logger.Warn("failed to register user", zap.Error(err))
		switch {
		case errors.Is(err, person.ErrDuplicateEmail):
			httpx.WriteError(w, http.StatusConflict, httpx.ErrorResponse[any]{
				Code:    httpx.ErrConflict,
				Message: "email already exists",
			})
		case errors.Is(err, person.ErrDuplicateUsername):
			httpx.WriteError(w, http.StatusConflict, httpx.ErrorResponse[any]{
				Code:    httpx.ErrConflict,
				Message: "username already exists",
			})
		case errors.Is(err, ErrUnknownRole):
			httpx.WriteError(w, http.StatusUnprocessableEntity, httpx.ErrorResponse[any]{
				Code:    httpx.ErrValidationFailed,
				Message: "unknown role",
			})
		default:
			a.logger.Error("internal server error", zap.Error(err))
			httpx.WriteError(w, http.StatusInternalServerError, httpx.ErrorResponse[any]{
				Code:    httpx.ErrInternal,
				Message: "internal server error",
			})
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, registerPersonResponse{ID: id})
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=32"`
	Password string `json:"password" validate:"required,max=72"`
}

type LoginResponse struct {
	Principal  person.Principal `json:"principal"`
	Credential string           `json:"credential"`
	ExpiresAt  time.Time        `json:"expires_at"`
}

type registerPersonRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Username string `json:"username" validate:"required,min=4,max=32"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role"     validate:"required,oneof=patient doctor nurse receptionist admin"`
}

type registerPersonResponse struct {
	ID int64 `json:"id"`
}
