package fetchclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yndnr/cfgclient-go/internal/core/tlscontext"
	"github.com/yndnr/cfgclient-go/internal/infra/buildinfo"
)

// TransportClient is an HTTP client bound to a single config server.
// It holds no mutable state and is safe for concurrent use.
type TransportClient struct {
	client    *http.Client
	endpoint  string
	tls       *tlscontext.Context
	userAgent string
}

// Option configures CreateClient.
type Option func(*options)

type options struct {
	timeout     time.Duration
	wrap        []func(http.RoundTripper) http.RoundTripper
	builderOpts []tlscontext.Option
	userAgent   string
}

// WithTimeout sets the overall request timeout. Zero means none.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithRoundTripper wraps the transport, e.g. for metrics. Wrappers are
// applied in order, so the last one is outermost.
func WithRoundTripper(wrap func(http.RoundTripper) http.RoundTripper) Option {
	return func(o *options) {
		o.wrap = append(o.wrap, wrap)
	}
}

// WithBuilderOptions passes options to tlscontext.Build.
func WithBuilderOptions(opts ...tlscontext.Option) Option {
	return func(o *options) {
		o.builderOpts = append(o.builderOpts, opts...)
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}

// CreateClient returns a client for endpoint. With sslEnabled false the
// material is ignored and nothing is read from disk. With sslEnabled true a
// TLS context is built first and any failure is returned as-is; there is no
// fallback to a plain transport.
func CreateClient(endpoint string, sslEnabled bool, material tlscontext.Material, opts ...Option) (*TransportClient, error) {
	o := &options{userAgent: buildinfo.UserAgent()}
	for _, opt := range opts {
		opt(o)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()

	var tlsCtx *tlscontext.Context
	if sslEnabled {
		var err error
		tlsCtx, err = tlscontext.Build(material, o.builderOpts...)
		if err != nil {
			return nil, err
		}
		transport.TLSClientConfig = tlsCtx.TLSConfig()
	}

	var rt http.RoundTripper = transport
	for _, wrap := range o.wrap {
		rt = wrap(rt)
	}

	return &TransportClient{
		client: &http.Client{
			Transport: rt,
			Timeout:   o.timeout,
		},
		endpoint:  strings.TrimRight(endpoint, "/"),
		tls:       tlsCtx,
		userAgent: o.userAgent,
	}, nil
}

// HTTPClient returns the underlying client.
func (c *TransportClient) HTTPClient() *http.Client {
	return c.client
}

// Endpoint returns the server URI without a trailing slash.
func (c *TransportClient) Endpoint() string {
	return c.endpoint
}

// Secure reports whether the transport uses mutual TLS.
func (c *TransportClient) Secure() bool {
	return c.tls != nil
}

// TLS returns the TLS context of a secure client, or nil.
func (c *TransportClient) TLS() *tlscontext.Context {
	return c.tls
}

// Get performs a GET request for path relative to the endpoint.
func (c *TransportClient) Get(ctx context.Context, path string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(path), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("User-Agent", c.userAgent)

	return c.client.Do(req)
}

// URL joins path onto the endpoint.
func (c *TransportClient) URL(path string) string {
	if path == "" {
		return c.endpoint
	}
	return c.endpoint + "/" + strings.TrimLeft(path, "/")
}

// CloseIdleConnections closes idle keep-alive connections.
func (c *TransportClient) CloseIdleConnections() {
	c.client.CloseIdleConnections()
}
