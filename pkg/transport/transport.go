// Package transport builds the HTTP client used to reach the Upload API,
// honoring an optional forward proxy, and provides the one-shot POST
// helper the protocol client is built on.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/datatheorem/dtupload/pkg/secret"
)

// ProxyConfig describes an optional forward proxy between the CI host and
// the Upload API. A nil config or an empty hostname means a direct
// connection.
type ProxyConfig struct {
	Hostname string
	Port     int
	Username string
	Password secret.Secret

	// AllowUnverifiedTLS disables certificate verification. Only for
	// proxies that re-encrypt with a certificate the host does not trust.
	AllowUnverifiedTLS bool
}

// Enabled reports whether a proxy is configured.
func (p *ProxyConfig) Enabled() bool {
	return p != nil && p.Hostname != ""
}

// Address returns the proxy host:port for logging. Credentials are never
// part of the rendered address.
func (p *ProxyConfig) Address() string {
	return fmt.Sprintf("%s:%d", p.Hostname, p.Port)
}

// proxyURL builds the proxy URL, embedding basic-auth credentials in the
// userinfo section so they are also sent on CONNECT.
func (p *ProxyConfig) proxyURL() (*url.URL, error) {
	if p.Port <= 0 || p.Port > 65535 {
		return nil, fmt.Errorf("invalid proxy port %d", p.Port)
	}

	u := &url.URL{
		Scheme: "http",
		Host:   p.Address(),
	}

	if p.Username != "" {
		u.User = url.UserPassword(p.Username, p.Password.Plaintext())
	}

	return u, nil
}

// NewClient builds a fresh HTTP client for one upload attempt. No
// connection pooling is carried across invocations; each CI step builds
// its own client.
func NewClient(proxy *ProxyConfig) (*http.Client, error) {
	if !proxy.Enabled() {
		return &http.Client{}, nil
	}

	u, err := proxy.proxyURL()
	if err != nil {
		return nil, err
	}

	tr := &http.Transport{
		Proxy: http.ProxyURL(u),
	}

	if proxy.AllowUnverifiedTLS {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // operator opt-in
	}

	return &http.Client{Transport: tr}, nil
}

// Post issues a POST and returns the status code and the full response
// body. Connection-level failures (DNS, refused, TLS) come back as a
// non-nil error; any HTTP response, whatever the status, does not.
func Post(
	ctx context.Context,
	client *http.Client,
	requestURL string,
	header http.Header,
	body io.Reader,
) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, body)
	if err != nil {
		return 0, nil, fmt.Errorf("building request: %w", err)
	}

	for name, values := range header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}

	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading response body: %w", err)
	}

	return resp.StatusCode, respBody, nil
}
