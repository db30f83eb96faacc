package client

import (
	"net/http"
	"strings"
	"time"

	"github.com/mehmetcc/medgate/internal/httpx"
	"github.com/mehmetcc/medgate/internal/session"
	"go.uber.org/zap"
)

type Client struct {
	baseURL  string
	platform httpx.Platform
	store    *session.Store
	logger   *zap.Logger

	// public carries the login call; protected routes every call through
	// the Authenticator.
	public    *http.Client
	protected *http.Client
}

type Option func(*Client)

func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.public.Transport = rt
		c.protected.Transport = NewAuthenticator(c.store, rt)
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.public.Timeout = d
		c.protected.Timeout = d
	}
}

func WithPlatform(p httpx.Platform) Option {
	return func(c *Client) {
		c.platform = p
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New builds a client bound to store. The store is not shared implicitly:
// callers that want one session per user pass one store per user.
func New(baseURL string, store *session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		store:     store,
		logger:    zap.NewNop(),
		public:    &http.Client{Timeout: 10 * time.Second},
		protected: &http.Client{Timeout: 10 * time.Second, Transport: NewAuthenticator(store, nil)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Session() (session.Session, bool) {
	return c.store.Get()
}

func (c *Client) LoggedIn() bool {
	_, ok := c.store.Get()
	return ok
}
