package audit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the response has a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Fetcher defines how probes retrieve pages. Deadlines come from ctx.
type Fetcher interface {
	// Fetch follows redirects and returns the final response.
	Fetch(ctx context.Context, url string) (*Response, error)
	// FetchNoRedirect returns the first response without following redirects.
	FetchNoRedirect(ctx context.Context, url string) (*Response, error)
}

// HTTPClient implements Fetcher using real HTTP clients.
type HTTPClient struct {
	follow *http.Client
	manual *http.Client
}

const (
	maxRedirects = 5
	userAgent    = "SiteAuditBot/1.0"

	// maxResponseBody caps how much of any response is read into memory.
	maxResponseBody = 10 << 20
)

var (
	errTooManyRedirects = errors.New("too many redirects")
	errBlockedRedirect  = errors.New("redirect to non-http(s) scheme blocked")
)

// NewHTTPClient returns a Fetcher with a dedicated transport. Unless
// allowPrivate is set, connections to private/reserved IP ranges are refused,
// and redirect targets are validated to prevent SSRF via redirect chains.
func NewHTTPClient(allowPrivate bool) *HTTPClient {
	return newHTTPClient(&http.Transport{
		DialContext:         newDialer(allowPrivate).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxConnsPerHost:     10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	})
}

func newHTTPClient(transport http.RoundTripper) *HTTPClient {
	return &HTTPClient{
		follow: &http.Client{
			Transport:     transport,
			CheckRedirect: safeRedirectPolicy,
		},
		manual: &http.Client{
			Transport: transport,
			CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// safeRedirectPolicy validates redirect targets and limits the redirect chain length.
func safeRedirectPolicy(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("%w: stopped after %d", errTooManyRedirects, maxRedirects)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return fmt.Errorf("%w: %s", errBlockedRedirect, req.URL.Scheme)
	}
	return nil
}

// Fetch retrieves targetURL, following redirects.
func (c *HTTPClient) Fetch(ctx context.Context, targetURL string) (*Response, error) {
	return c.do(ctx, c.follow, targetURL)
}

// FetchNoRedirect retrieves targetURL and returns 3xx responses as-is.
func (c *HTTPClient) FetchNoRedirect(ctx context.Context, targetURL string) (*Response, error) {
	return c.do(ctx, c.manual, targetURL)
}

func (c *HTTPClient) do(ctx context.Context, client *http.Client, targetURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain,application/xml;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}
