// Package fetch retrieves files from package mirrors over HTTP(S) and
// downloads the Release and Packages indexes a bootstrap needs,
// verifying each Packages file against its Release checksums.
package fetch

import (
	"fmt"
	"net"
	"net/http"
	"time"
)

// ClientOptions configures the mirror HTTP client.
type ClientOptions struct {
	// Timeout is the overall request timeout, covering the full body
	// transfer. Default: 10m.
	Timeout time.Duration

	// DialTimeout is the TCP dial timeout. Default: 30s.
	DialTimeout time.Duration

	// TLSHandshakeTimeout is the TLS handshake timeout. Default: 10s.
	TLSHandshakeTimeout time.Duration

	// ResponseHeaderTimeout is the time to wait for response headers.
	// Default: 30s.
	ResponseHeaderTimeout time.Duration

	// MaxRedirects is the maximum redirect depth. Default: 10.
	MaxRedirects int

	// MaxIdleConns is the maximum number of idle connections. Default: 10.
	MaxIdleConns int

	// IdleConnTimeout is how long idle connections stay open. Default: 90s.
	IdleConnTimeout time.Duration
}

// DefaultOptions returns the default client options. The overall
// timeout is generous because a single GET may carry a whole .deb.
func DefaultOptions() ClientOptions {
	return ClientOptions{
		Timeout:               10 * time.Minute,
		DialTimeout:           30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		MaxRedirects:          10,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
}

// newHTTPClient builds the underlying http.Client. Transport
// compression stays disabled so that downloaded sizes match the sizes
// recorded in Release files. Redirects are followed up to the depth
// limit and must stay on http or https; mirror CDNs routinely redirect
// across schemes and hosts.
func newHTTPClient(opts ClientOptions) *http.Client {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Minute
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 30 * time.Second
	}
	if opts.TLSHandshakeTimeout == 0 {
		opts.TLSHandshakeTimeout = 10 * time.Second
	}
	if opts.ResponseHeaderTimeout == 0 {
		opts.ResponseHeaderTimeout = 30 * time.Second
	}
	if opts.MaxRedirects == 0 {
		opts.MaxRedirects = 10
	}
	if opts.MaxIdleConns == 0 {
		opts.MaxIdleConns = 10
	}
	if opts.IdleConnTimeout == 0 {
		opts.IdleConnTimeout = 90 * time.Second
	}

	return &http.Client{
		Timeout: opts.Timeout,
		Transport: &http.Transport{
			DisableCompression: true,
			DialContext: (&net.Dialer{
				Timeout:   opts.DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   opts.TLSHandshakeTimeout,
			ResponseHeaderTimeout: opts.ResponseHeaderTimeout,
			ExpectContinueTimeout: 1 * time.Second,
			MaxIdleConns:          opts.MaxIdleConns,
			IdleConnTimeout:       opts.IdleConnTimeout,
		},
		CheckRedirect: makeRedirectChecker(opts.MaxRedirects),
	}
}

// makeRedirectChecker limits redirect depth and keeps redirects on
// HTTP(S).
func makeRedirectChecker(maxRedirects int) func(req *http.Request, via []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
			return fmt.Errorf("redirect to unsupported scheme: %s", req.URL)
		}
		if len(via) >= maxRedirects {
			return fmt.Errorf("too many redirects")
		}
		return nil
	}
}
