package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/mehmetcc/medgate/internal/httpx"
	"go.uber.org/zap"
)

func (c *Client) newRequest(ctx context.Context, method, path string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshaling payload: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.platform != "" {
		req.Header.Set(httpx.HeaderPlatform, string(c.platform))
	}
	return req, nil
}

// call performs a protected request. A 401 ends the session that made it.
func (c *Client) call(ctx context.Context, method, path string, payload, result any) error {
	req, err := c.newRequest(ctx, method, path, payload)
	if err != nil {
		return err
	}

	current, _ := c.store.Get()
	resp, err := c.protected.Do(req)
	if err != nil {
		if errors.Is(err, ErrMissingCredential) {
			return ErrMissingCredential
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if c.store.ClearIf(current.Credential) {
			c.logger.Info("session rejected by server, logged out", zap.String("path", path))
		}
		return ErrUnauthenticated
	case resp.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case resp.StatusCode >= 400:
		return parseErrorResponse(resp)
	}
	return decodeData(resp, result)
}

func decodeData(resp *http.Response, result any) error {
	if result == nil {
		return nil
	}
	env := httpx.Envelope[json.RawMessage]{}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if err := json.Unmarshal(env.Data, result); err != nil {
		return fmt.Errorf("decoding response data: %w", err)
	}
	return nil
}

func parseErrorResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("request failed with status %d and unreadable body: %w", resp.StatusCode, err)
	}
	var env httpx.Envelope[json.RawMessage]
	if json.Unmarshal(body, &env) == nil && env.Error != nil {
		return APIError{
			Status:  resp.StatusCode,
			Code:    string(env.Error.Code),
			Message: env.Error.Message,
		}
	}
	return APIError{Status: resp.StatusCode, Message: string(body)}
}
