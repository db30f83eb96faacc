package client

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/mehmetcc/medgate/internal/auth"
	"github.com/mehmetcc/medgate/internal/person"
	"github.com/mehmetcc/medgate/internal/session"
	"go.uber.org/zap"
)

// Login exchanges a username and password for a credential and stores the
// resulting session, replacing any previous one.
func (c *Client) Login(ctx context.Context, username, password string) (session.Session, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/login", auth.LoginRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return session.Session{}, err
	}

	resp, err := c.public.Do(req)
	if err != nil {
		return session.Session{}, fmt.Errorf("connection failed: %w", err)
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		return session.Session{}, ErrInvalidLogin
	}
	if resp.StatusCode >= 400 {
		return session.Session{}, parseErrorResponse(resp)
	}

	var out auth.LoginResponse
	if err := decodeData(resp, &out); err != nil {
		return session.Session{}, err
	}
	if out.Credential == "" {
		return session.Session{}, fmt.Errorf("login response carried no credential")
	}

	c.store.Set(out.Principal, out.Credential, out.ExpiresAt)
	c.logger.Info("logged in",
		zap.Int64("principal_id", out.Principal.ID),
		zap.String("role", string(out.Principal.Role)),
	)
	s, _ := c.store.Get()
	return s, nil
}

// Logout drops the local session. Credentials are stateless, so the server
// is not contacted.
func (c *Client) Logout() {
	c.store.Clear()
	c.logger.Info("logged out")
}

func (c *Client) Me(ctx context.Context) (*person.Principal, error) {
	var p person.Principal
	if err := c.call(ctx, http.MethodGet, "/auth/me", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

type RegisterStaffRequest struct {
	Email    string      `json:"email"`
	Username string      `json:"username"`
	Password string      `json:"password"`
	Role     person.Role `json:"role"`
}

func (c *Client) RegisterStaff(ctx context.Context, r RegisterStaffRequest) (int64, error) {
	var out struct {
		ID int64 `json:"id"`
	}
	if err := c.call(ctx, http.MethodPost, "/auth/register", r, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}
