package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mehmetcc/medgate/internal/auth"
	"github.com/mehmetcc/medgate/internal/httpx"
	"github.com/mehmetcc/medgate/internal/person"
	"github.com/mehmetcc/medgate/internal/records"
	"github.com/mehmetcc/medgate/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingTransport fails the test if any request reaches the network.
type countingTransport struct {
	calls atomic.Int32
}

func (c *countingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return nil, errors.New("network must not be contacted")
}

// fakeAPI accepts one credential per user and serves a tiny slice of the API.
func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	users := map[string]person.Principal{
		"drgrey": {ID: 2, Username: "drgrey", Role: person.RoleDoctor},
		"root":   {ID: 1, Username: "root", Role: person.RoleAdmin},
	}
	var mu sync.Mutex
	revoked := map[string]bool{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req auth.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, httpx.ErrorResponse[any]{Code: httpx.ErrInvalidJSON})
			return
		}
		p, ok := users[req.Username]
		if !ok || req.Password != "secret" {
			httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrorResponse[any]{Code: httpx.ErrUnauthorized, Message: "nope"})
			return
		}
		assert.Equal(t, "desktop", r.Header.Get(httpx.HeaderPlatform))
		httpx.WriteJSON(w, http.StatusOK, auth.LoginResponse{
			Principal:  p,
			Credential: "cred-" + p.Username,
			ExpiresAt:  time.Now().Add(time.Hour).UTC(),
		})
	})
	authed := func(r *http.Request) (person.Principal, bool) {
		raw := r.Header.Get("Authorization")
		mu.Lock()
		defer mu.Unlock()
		for _, p := range users {
			if raw == "Bearer cred-"+p.Username && !revoked[p.Username] {
				return p, true
			}
		}
		return person.Principal{}, false
	}
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		p, ok := authed(r)
		if !ok {
			httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrorResponse[any]{Code: httpx.ErrUnauthorized})
			return
		}
		httpx.WriteJSON(w, http.StatusOK, p)
	})
	mux.HandleFunc("GET /records/staff", func(w http.ResponseWriter, r *http.Request) {
		p, ok := authed(r)
		switch {
		case !ok:
			httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrorResponse[any]{Code: httpx.ErrUnauthorized})
		case p.Role != person.RoleAdmin:
			httpx.WriteError(w, http.StatusForbidden, httpx.ErrorResponse[any]{Code: httpx.ErrForbidden})
		default:
			httpx.WriteJSON(w, http.StatusOK, []records.StaffMember{{ID: 1, Username: "root", Role: person.RoleAdmin}})
		}
	})
	mux.HandleFunc("POST /revoke/{user}", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		revoked[r.PathValue("user")] = true
		mu.Unlock()
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestAttachWithEmptyStore(t *testing.T) {
	a := NewAuthenticator(session.NewStore(), nil)
	req := httptest.NewRequest(http.MethodGet, "/records/staff", nil)

	err := a.Attach(req)
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestAttachSetsBearer(t *testing.T) {
	store := session.NewStore()
	store.Set(person.Principal{ID: 1}, "abc.def.ghi", time.Time{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, NewAuthenticator(store, nil).Attach(req))
	assert.Equal(t, "Bearer abc.def.ghi", req.Header.Get("Authorization"))
}

func TestProtectedCallWithoutSessionNeverTouchesNetwork(t *testing.T) {
	rt := &countingTransport{}
	c := New("http://medgate.invalid", session.NewStore(), WithTransport(rt))

	_, err := c.ListStaff(context.Background())
	assert.ErrorIs(t, err, ErrMissingCredential)
	_, err = c.Me(context.Background())
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.Equal(t, int32(0), rt.calls.Load())
}

func TestLoginAttachLogout(t *testing.T) {
	srv := fakeAPI(t)
	store := session.NewStore()
	c := New(srv.URL, store, WithPlatform(httpx.PlatformDesktop))
	ctx := context.Background()

	s, err := c.Login(ctx, "root", "secret")
	require.NoError(t, err)
	assert.Equal(t, "cred-root", s.Credential)
	assert.Equal(t, person.RoleAdmin, s.Principal.Role)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), me.ID)

	staff, err := c.ListStaff(ctx)
	require.NoError(t, err)
	assert.Len(t, staff, 1)

	c.Logout()
	_, err = c.Me(ctx)
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.False(t, c.LoggedIn())
}

func TestInvalidLoginLeavesStoreEmpty(t *testing.T) {
	srv := fakeAPI(t)
	c := New(srv.URL, session.NewStore(), WithPlatform(httpx.PlatformDesktop))

	_, err := c.Login(context.Background(), "root", "wrong")
	assert.ErrorIs(t, err, ErrInvalidLogin)
	assert.False(t, c.LoggedIn())
}

func TestForbiddenKeepsSession(t *testing.T) {
	srv := fakeAPI(t)
	c := New(srv.URL, session.NewStore(), WithPlatform(httpx.PlatformDesktop))
	ctx := context.Background()

	_, err := c.Login(ctx, "drgrey", "secret")
	require.NoError(t, err)

	_, err = c.ListStaff(ctx)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.True(t, c.LoggedIn(), "a role mismatch must not log the user out")
}

func TestServerRejectionLogsOut(t *testing.T) {
	srv := fakeAPI(t)
	c := New(srv.URL, session.NewStore(), WithPlatform(httpx.PlatformDesktop))
	ctx := context.Background()

	_, err := c.Login(ctx, "drgrey", "secret")
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/revoke/drgrey", "text/plain", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()

	_, err = c.Me(ctx)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.False(t, c.LoggedIn())

	_, err = c.Me(ctx)
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestSeparateStoresAreSeparateSessions(t *testing.T) {
	srv := fakeAPI(t)
	ctx := context.Background()
	doctor := New(srv.URL, session.NewStore(), WithPlatform(httpx.PlatformDesktop))
	admin := New(srv.URL, session.NewStore(), WithPlatform(httpx.PlatformDesktop))

	_, err := doctor.Login(ctx, "drgrey", "secret")
	require.NoError(t, err)
	_, err = admin.Login(ctx, "root", "secret")
	require.NoError(t, err)

	_, err = doctor.ListStaff(ctx)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = admin.ListStaff(ctx)
	assert.NoError(t, err)
}
