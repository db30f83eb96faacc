package client

import (
	"net/http"

	"github.com/mehmetcc/medgate/internal/session"
)

// Authenticator is the only path a protected request takes to the network.
type Authenticator struct {
	store *session.Store
	next  http.RoundTripper
}

func NewAuthenticator(store *session.Store, next http.RoundTripper) *Authenticator {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Authenticator{store: store, next: next}
}

// Attach sets the bearer credential from the store on req.
func (a *Authenticator) Attach(req *http.Request) error {
	s, ok := a.store.Get()
	if !ok || s.Credential == "" {
		return ErrMissingCredential
	}
	req.Header.Set("Authorization", "Bearer "+s.Credential)
	return nil
}

func (a *Authenticator) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request
	out := req.Clone(req.Context())
	if err := a.Attach(out); err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, err
	}
	return a.next.RoundTrip(out)
}
