package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/debstrap-dev/debstrap/internal/progress"
)

// NetworkError reports a transfer that failed before a response could
// be read to completion.
type NetworkError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	URL    string
	Status string
	Code   int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s for %s", e.Status, e.URL)
}

// Client downloads files from package mirrors.
type Client struct {
	hc *http.Client
}

// NewClient returns a Client using the given options.
func NewClient(opts ClientOptions) *Client {
	return &Client{hc: newHTTPClient(opts)}
}

// Exists probes url with a HEAD request and reports whether the server
// answers 2xx. Transport failures are returned as a NetworkError.
func (c *Client) Exists(ctx context.Context, url string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false, &NetworkError{URL: url, Err: err}
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return false, &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

// DownloadFile GETs url into dest, displaying transfer progress on
// interactive terminals. A partial file is removed on failure.
func (c *Client) DownloadFile(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &NetworkError{URL: url, Err: err}
	}
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := c.hc.Do(req)
	if err != nil {
		return &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{URL: url, Status: resp.Status, Code: resp.StatusCode}
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}

	if progress.ShouldShowProgress() && resp.ContentLength > 0 {
		pw := progress.NewWriter(out, resp.ContentLength, os.Stdout)
		_, err = io.Copy(pw, resp.Body)
		pw.Finish()
	} else {
		_, err = io.Copy(out, resp.Body)
	}
	if err != nil {
		out.Close()
		os.Remove(dest)
		return &NetworkError{URL: url, Err: err}
	}
	return out.Close()
}
