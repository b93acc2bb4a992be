package iobyte

import (
	"context"
	"fmt"
	"net/http"
)

// HTTPByteSource fetches fragment and manifest bodies over HTTP(S). No
// library in the retrieved pack wraps net/http for this kind of one-shot,
// non-seekable GET (see DESIGN.md); the standard client, configured with a
// Transport the caller can size/pool, is used directly.
type HTTPByteSource struct {
	Client *http.Client
}

// NewHTTPByteSource returns an HTTPByteSource using http.DefaultClient.
func NewHTTPByteSource() *HTTPByteSource {
	return &HTTPByteSource{Client: http.DefaultClient}
}

func (s *HTTPByteSource) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return http.DefaultClient
}

// Fetch issues a GET for url. The request carries no Range header: fragment
// URLs are one-shot and non-seekable, the equivalent of the original
// source's opts={"seekable": "0"}.
func (s *HTTPByteSource) Fetch(ctx context.Context, url string) (FragmentReader, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("iobyte: build request for %s: %w", url, err)
	}

	resp, err := s.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("iobyte: fetch %s: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("iobyte: fetch %s: unexpected status %s", url, resp.Status)
	}
	return resp.Body, nil
}
