package audit

import (
	"context"
	"crypto/x509"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/whoisalfaz/site-audit/internal/model"
)

var errConnectionRefused = errors.New("connection refused")

// mockFetcher implements Fetcher for testing. Unknown URLs answer 404.
type mockFetcher struct {
	responses map[string]*Response
	manual    map[string]*Response // FetchNoRedirect overrides
	err       error

	mu        sync.Mutex
	requested []string
}

func (m *mockFetcher) Fetch(_ context.Context, url string) (*Response, error) {
	return m.lookup(url, nil)
}

func (m *mockFetcher) FetchNoRedirect(_ context.Context, url string) (*Response, error) {
	return m.lookup(url, m.manual)
}

func (m *mockFetcher) lookup(url string, override map[string]*Response) (*Response, error) {
	m.mu.Lock()
	m.requested = append(m.requested, url)
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if r, ok := override[url]; ok {
		return r, nil
	}
	if r, ok := m.responses[url]; ok {
		return r, nil
	}
	return &Response{StatusCode: http.StatusNotFound, Header: http.Header{}}, nil
}

func htmlResponse(body string) *Response {
	return &Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": {"text/html; charset=utf-8"}},
		Body:       []byte(body),
	}
}

// mockResolver implements Resolver for testing.
type mockResolver struct {
	a, aaaa       []net.IP
	aErr, aaaaErr error
	delay         time.Duration
}

func (m *mockResolver) LookupA(ctx context.Context, _ string) ([]net.IP, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.a, m.aErr
}

func (m *mockResolver) LookupAAAA(_ context.Context, _ string) ([]net.IP, error) {
	return m.aaaa, m.aaaaErr
}

// mockCerts implements CertificateSource for testing.
type mockCerts struct {
	leaf *x509.Certificate
	err  error
}

func (m *mockCerts) PeerCertificate(_ context.Context, _ string) (*PeerCertificate, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &PeerCertificate{Leaf: m.leaf}, nil
}

// pageSpeedStep is one scripted answer of mockPageSpeed.
type pageSpeedStep struct {
	report *PageSpeedReport
	err    error
}

// mockPageSpeed implements PageSpeedAPI by replaying steps; the last step
// repeats once the script runs out.
type mockPageSpeed struct {
	steps []pageSpeedStep

	mu    sync.Mutex
	calls int
}

func (m *mockPageSpeed) Run(_ context.Context, _ string) (*PageSpeedReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	step := m.steps[min(m.calls, len(m.steps)-1)]
	m.calls++
	return step.report, step.err
}

func hasFinding(details []model.Finding, sev model.Severity, text string) bool {
	for _, f := range details {
		if f.Severity == sev && f.Text == text {
			return true
		}
	}
	return false
}
