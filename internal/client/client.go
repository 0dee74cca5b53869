// Package client is the HTTP client of the plugin daemon: it builds requests,
// unwraps the {code, message, data} envelope, decodes streamed responses and
// translates daemon errors into local error values.
package client

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Defaults used when nothing else is configured.
const (
	DefaultBaseURL = "http://localhost:5002"
	DefaultAPIKey  = "plugin-api-key"
	DefaultTimeout = 300 * time.Second
)

// Config is the connection configuration of a Client. It is copied into the
// Client on construction and never modified afterwards.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client issues requests against one plugin daemon. It holds no per-call
// state and is safe for concurrent use.
type Client struct {
	cfg        Config
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the daemon at cfg.BaseURL.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, validationErrorf("daemon url", "%v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, validationErrorf("daemon url", "unsupported scheme %q in %s", u.Scheme, cfg.BaseURL)
	}
	if u.Host == "" {
		return nil, validationErrorf("daemon url", "missing host in %s", cfg.BaseURL)
	}

	c := &Client{
		cfg:        cfg,
		baseURL:    u,
		httpClient: newHTTPClient(cfg.Timeout),
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns the configuration the client was built with.
func (c *Client) Config() Config {
	return c.cfg
}

// newHTTPClient bounds dialing and waiting for response headers. The overall
// deadline of single-shot calls is applied per request so streams stay open
// for as long as the daemon keeps sending.
func newHTTPClient(timeout time.Duration) *http.Client {
	d := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}

	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           d.DialContext,
		ForceAttemptHTTP2:     true,
		DisableCompression:    true,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Transport: tr}
}

func tenantPath(tenant, endpoint string) (string, error) {
	if tenant == "" {
		return "", validationErrorf("tenant", "tenant id is required")
	}
	return fmt.Sprintf("plugin/%s/%s", tenant, endpoint), nil
}
