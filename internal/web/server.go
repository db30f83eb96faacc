package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mehmetcc/medgate/internal/authz"
	"github.com/mehmetcc/medgate/internal/httpx"
	"github.com/mehmetcc/medgate/internal/person"
	"github.com/mehmetcc/medgate/internal/session"
	"github.com/mehmetcc/medgate/pkg/client"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

const sessionCookieName = "medgate_session"

type Server struct {
	apiBaseURL   string
	clientOpts   []client.Option
	policy       authz.Policy
	cookieSecure bool
	logger       *zap.Logger
	templates    *template.Template

	now      func() time.Time
	mu       sync.Mutex
	browsers map[string]*client.Client
}

func NewServer(apiBaseURL string, cookieSecure bool, logger *zap.Logger, clientOpts ...client.Option) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	opts := append([]client.Option{
		client.WithPlatform(httpx.PlatformWeb),
		client.WithLogger(logger),
	}, clientOpts...)

	return &Server{
		apiBaseURL:   apiBaseURL,
		clientOpts:   opts,
		policy:       authz.DefaultPolicy,
		cookieSecure: cookieSecure,
		logger:       logger,
		templates:    tmpl,
		now:          time.Now,
		browsers:     make(map[string]*client.Client),
	}, nil
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/login", s.loginPage)
	r.Post("/login", s.login)
	r.Post("/logout", s.logout)
	r.Get("/access-denied", s.accessDenied)

	r.Get("/", s.page(authz.OpWhoAmI, s.dashboard))
	r.Get("/patients", s.page(authz.OpListPatients, s.patients))
	r.Get("/equipment", s.page(authz.OpListEquipment, s.equipment))
	r.Get("/staff", s.page(authz.OpListStaff, s.staff))
	return r
}

// browser returns the API client bound to the request's session cookie.
// Entries whose session is gone or past its expiry are dropped on sight.
func (s *Server) browser(r *http.Request) (string, *client.Client) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.browsers[cookie.Value]
	if !ok {
		return cookie.Value, nil
	}
	if s.stale(c) {
		delete(s.browsers, cookie.Value)
		return cookie.Value, nil
	}
	return cookie.Value, c
}

func (s *Server) newClient() *client.Client {
	return client.New(s.apiBaseURL, session.NewStore(), s.clientOpts...)
}

// remember registers a logged-in client and hands the browser its cookie.
// Only clients holding a session are ever stored.
func (s *Server) remember(w http.ResponseWriter, c *client.Client) {
	id := uuid.NewString()

	s.mu.Lock()
	for k, other := range s.browsers {
		if s.stale(other) {
			delete(s.browsers, k)
		}
	}
	s.browsers[id] = c
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// stale must be called with s.mu held.
func (s *Server) stale(c *client.Client) bool {
	sess, ok := c.Session()
	return !ok || sess.ExpiredAt(s.now())
}

func (s *Server) forget(w http.ResponseWriter, id string) {
	if id != "" {
		s.mu.Lock()
		delete(s.browsers, id)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

type pageFunc func(ctx context.Context, c *client.Client, p person.Principal) (string, any, error)

// page gates a server-rendered page: no session goes to /login, a role
// outside the policy goes to /access-denied. The API server re-checks every
// call and its verdict wins.
func (s *Server) page(op authz.Operation, render pageFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, c := s.browser(r)
		if c == nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		sess, ok := c.Session()
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if err := s.policy.Check(&sess.Principal, op); err != nil {
			http.Redirect(w, r, "/access-denied", http.StatusSeeOther)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		name, data, err := render(ctx, c, sess.Principal)
		switch {
		case err == nil:
			s.render(w, http.StatusOK, name, data)
		case errors.Is(err, client.ErrUnauthenticated), errors.Is(err, client.ErrMissingCredential):
			s.logger.Info("api rejected browser session", zap.String("operation", string(op)))
			s.forget(w, id)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
		case errors.Is(err, client.ErrForbidden):
			http.Redirect(w, r, "/access-denied", http.StatusSeeOther)
		default:
			s.logger.Error("page render failed", zap.String("operation", string(op)), zap.Error(err))
			s.render(w, http.StatusBadGateway, "error", viewData{
				Title:     "Error",
				Principal: &sess.Principal,
				Error:     "The hospital service is unavailable. Try again shortly.",
			})
		}
	}
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("template execution failed", zap.String("template", name), zap.Error(err))
	}
}
