package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mehmetcc/medgate/internal/authz"
	"github.com/mehmetcc/medgate/internal/httpx"
	"github.com/mehmetcc/medgate/internal/person"
	"github.com/mehmetcc/medgate/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*LoginResult), args.Error(1)
}

func (m *MockAuthService) Register(ctx context.Context, dto *person.PersonDTO) (int64, error) {
	args := m.Called(ctx, dto)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAuthService) EnsureAdmin(ctx context.Context, username, password string) error {
	return m.Called(ctx, username, password).Error(0)
}

type stubValidator map[string]*person.Principal

func (s stubValidator) Validate(_ context.Context, raw string) (*person.Principal, error) {
	if p, ok := s[raw]; ok {
		return p, nil
	}
	return nil, token.ErrInvalidSignature
}

func newHandler(svc AuthService) http.Handler {
	logger := zap.NewNop()
	v := stubValidator{
		"admin-token":  {ID: 1, Username: "root", Role: person.RoleAdmin},
		"doctor-token": {ID: 2, Username: "drgrey", Role: person.RoleDoctor},
	}
	return NewAuthenticationHandler(svc, authz.NewAuthenticator(v, logger), authz.NewGate(authz.DefaultPolicy, logger), 100, logger).Routes()
}

func postJSON(path, body, bearer string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return req
}

func TestLoginHandler(t *testing.T) {
	t.Run("returns principal summary and credential", func(t *testing.T) {
		svc := new(MockAuthService)
		exp := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
		svc.On("Login", mock.Anything, "drgrey", "scalpel123").Return(&LoginResult{
			Principal:  &person.Principal{ID: 2, Username: "drgrey", Role: person.RoleDoctor},
			Credential: &token.Credential{Token: "signed.jwt.value", ExpiresAt: exp},
		}, nil)

		req := postJSON("/login", `{"username":"drgrey","password":"scalpel123"}`, "")
		req.Header.Set(httpx.HeaderPlatform, "desktop")
		w := httptest.NewRecorder()
		newHandler(svc).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var env httpx.Envelope[LoginResponse]
		require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
		assert.Equal(t, "signed.jwt.value", env.Data.Credential)
		assert.Equal(t, person.RoleDoctor, env.Data.Principal.Role)
		assert.True(t, exp.Equal(env.Data.ExpiresAt))
	})

	t.Run("invalid credentials are 401", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("Login", mock.Anything, "drgrey", "wrong").Return(nil, ErrInvalidCredentials)

		w := httptest.NewRecorder()
		newHandler(svc).ServeHTTP(w, postJSON("/login", `{"username":"drgrey","password":"wrong"}`, ""))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong content type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("username=x"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		newHandler(new(MockAuthService)).ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})

	t.Run("missing password fails validation", func(t *testing.T) {
		w := httptest.NewRecorder()
		newHandler(new(MockAuthService)).ServeHTTP(w, postJSON("/login", `{"username":"drgrey"}`, ""))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		newHandler(new(MockAuthService)).ServeHTTP(w, postJSON("/login", `{"username":"a","password":"b","role":"admin"}`, ""))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRegisterHandler(t *testing.T) {
	body := `{"email":"n2@example.org","username":"nurse2","password":"bandages2","role":"nurse"}`

	t.Run("admin registers staff", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("Register", mock.Anything, &person.PersonDTO{
			Email: "n2@example.org", Username: "nurse2", Password: "bandages2", Role: person.RoleNurse,
		}).Return(int64(30), nil)

		w := httptest.NewRecorder()
		newHandler(svc).ServeHTTP(w, postJSON("/register", body, "admin-token"))
		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("doctor is forbidden", func(t *testing.T) {
		svc := new(MockAuthService)
		w := httptest.NewRecorder()
		newHandler(svc).ServeHTTP(w, postJSON("/register", body, "doctor-token"))
		assert.Equal(t, http.StatusForbidden, w.Code)
		svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
	})

	t.Run("anonymous is unauthenticated", func(t *testing.T) {
		w := httptest.NewRecorder()
		newHandler(new(MockAuthService)).ServeHTTP(w, postJSON("/register", body, ""))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("duplicate username", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("Register", mock.Anything, mock.Anything).Return(int64(0), person.ErrDuplicateUsername)

		w := httptest.NewRecorder()
		newHandler(svc).ServeHTTP(w, postJSON("/register", body, "admin-token"))
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestMeHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer doctor-token")
	w := httptest.NewRecorder()
	newHandler(new(MockAuthService)).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var env httpx.Envelope[person.Principal]
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	assert.Equal(t, person.Principal{ID: 2, Username: "drgrey", Role: person.RoleDoctor}, env.Data)
}
