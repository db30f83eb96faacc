package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mehmetcc/medgate/internal/auth"
	"github.com/mehmetcc/medgate/internal/authz"
	"github.com/mehmetcc/medgate/internal/config"
	"github.com/mehmetcc/medgate/internal/httpx"
	"github.com/mehmetcc/medgate/internal/person"
	"github.com/mehmetcc/medgate/internal/records"
	"github.com/mehmetcc/medgate/internal/token"
	"go.uber.org/zap"
	"moul.io/chizap"
)

type Deps struct {
	Config  *config.Config
	People  person.PersonRepo
	Records records.RecordsRepo
	Logger  *zap.Logger
}

// API is the assembled server: the router plus the services main needs
// for startup tasks.
type API struct {
	Router      chi.Router
	AuthService auth.AuthService
}

func New(d Deps) *API {
	logger := d.Logger
	cfg := d.Config

	issuer := token.NewIssuer(logger, cfg.JWTConfig)
	validator := token.NewValidator(logger, cfg.JWTConfig, d.People)
	authenticator := authz.NewAuthenticator(validator, logger)
	gate := authz.NewGate(authz.DefaultPolicy, logger)

	authService := auth.NewAuthenticationService(d.People, issuer, logger)
	authHandler := auth.NewAuthenticationHandler(authService, authenticator, gate, cfg.SecurityConfig.LoginRateLimit, logger)
	recordsHandler := records.NewRecordsHandler(d.Records, authenticator, gate, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(chizap.New(logger, &chizap.Opts{
		WithReferer:   false,
		WithUserAgent: true,
	}))
	r.Use(middleware.Recoverer)
	if len(cfg.SecurityConfig.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.SecurityConfig.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", httpx.HeaderPlatform, httpx.HeaderDeviceID, httpx.HeaderDeviceName, httpx.HeaderAppVersion},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Mount("/auth", authHandler.Routes())
	r.Mount("/records", recordsHandler.Routes())
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, http.StatusNotFound, httpx.ErrorResponse[any]{
			Code:    httpx.ErrNotFound,
			Message: "not found",
		})
	})

	return &API{
		Router:      r,
		AuthService: authService,
	}
}
