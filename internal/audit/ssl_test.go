package audit

import (
	"context"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/whoisalfaz/site-audit/internal/model"
)

var sslNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func certExpiringIn(d time.Duration) *x509.Certificate {
	return &x509.Certificate{
		Subject:   pkix.Name{CommonName: "example.com"},
		Issuer:    pkix.Name{Organization: []string{"Let's Encrypt"}, CommonName: "R11"},
		NotBefore: sslNow.Add(-60 * 24 * time.Hour),
		NotAfter:  sslNow.Add(d),
	}
}

func TestEvaluateCertificate(t *testing.T) {
	day := 24 * time.Hour
	tests := []struct {
		name        string
		pc          PeerCertificate
		wantStatus  model.Status
		wantScore   int
		wantSummary string
	}{
		{
			name:        "200 days",
			pc:          PeerCertificate{Leaf: certExpiringIn(200 * day)},
			wantStatus:  model.StatusPass,
			wantScore:   100,
			wantSummary: "SSL is valid. Expires in 200 days.",
		},
		{
			name:        "5 days",
			pc:          PeerCertificate{Leaf: certExpiringIn(5 * day)},
			wantStatus:  model.StatusWarn,
			wantScore:   40,
			wantSummary: "SSL expires in 5 days. Renew immediately.",
		},
		{
			name:        "partial day rounds up",
			pc:          PeerCertificate{Leaf: certExpiringIn(13*day + time.Hour)},
			wantStatus:  model.StatusWarn,
			wantScore:   40,
			wantSummary: "SSL expires in 14 days. Renew immediately.",
		},
		{
			name:        "20 days",
			pc:          PeerCertificate{Leaf: certExpiringIn(20 * day)},
			wantStatus:  model.StatusWarn,
			wantScore:   70,
			wantSummary: "SSL expires in 20 days. Renewal due soon.",
		},
		{
			name:        "30 days",
			pc:          PeerCertificate{Leaf: certExpiringIn(30 * day)},
			wantStatus:  model.StatusWarn,
			wantScore:   70,
			wantSummary: "SSL expires in 30 days. Renewal due soon.",
		},
		{
			name:        "expired",
			pc:          PeerCertificate{Leaf: certExpiringIn(-2 * day), VerifyErr: x509.CertificateInvalidError{Reason: x509.Expired}},
			wantStatus:  model.StatusFail,
			wantScore:   0,
			wantSummary: "SSL certificate has expired.",
		},
		{
			name:        "untrusted",
			pc:          PeerCertificate{Leaf: certExpiringIn(200 * day), VerifyErr: x509.UnknownAuthorityError{}},
			wantStatus:  model.StatusFail,
			wantScore:   0,
			wantSummary: "SSL certificate is not trusted.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evaluateCertificate("example.com", &tt.pc, sslNow)
			if got.Status != tt.wantStatus || got.Score != tt.wantScore {
				t.Errorf("status/score = %s/%d, want %s/%d", got.Status, got.Score, tt.wantStatus, tt.wantScore)
			}
			if got.Summary != tt.wantSummary {
				t.Errorf("Summary = %q, want %q", got.Summary, tt.wantSummary)
			}
			if got.Name != CheckSSL.Name() {
				t.Errorf("Name = %q", got.Name)
			}
		})
	}
}

func TestEvaluateCertificate_Details(t *testing.T) {
	leaf := certExpiringIn(200 * 24 * time.Hour)
	leaf.Subject.CommonName = ""
	leaf.Issuer.Organization = nil

	got := evaluateCertificate("example.com", &PeerCertificate{Leaf: leaf}, sslNow)

	for _, want := range []string{"Issuer: R11", "Expires: 2026-09-17", "Days remaining: 200", "Subject: example.com"} {
		if !hasFinding(got.Details, model.SeverityInfo, want) {
			t.Errorf("missing %q in %v", want, got.Details)
		}
	}
}

func TestSSLProbe_ConnectionError(t *testing.T) {
	p := NewSSLProbe(&mockCerts{err: errConnectionRefused})

	got := p.Check(context.Background(), mustURL(t, "example.com"))

	if got.Status != model.StatusFail || got.Score != 0 {
		t.Errorf("status/score = %s/%d, want fail/0", got.Status, got.Score)
	}
	if !hasFinding(got.Details, model.SeverityFail, errConnectionRefused.Error()) {
		t.Errorf("expected connection error in %v", got.Details)
	}
}

func TestSSLProbe_UsesInjectedClock(t *testing.T) {
	p := NewSSLProbe(&mockCerts{leaf: certExpiringIn(5 * 24 * time.Hour)})
	p.now = func() time.Time { return sslNow }

	got := p.Check(context.Background(), mustURL(t, "example.com"))

	if got.Status != model.StatusWarn || got.Score != 40 {
		t.Errorf("status/score = %s/%d, want warn/40", got.Status, got.Score)
	}
}

func newTLSTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(ts.Close)

	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatalf("parse server URL: %v", err)
	}
	return ts, u.Port()
}

func TestTLSProber_TrustedChain(t *testing.T) {
	ts, port := newTLSTestServer(t)
	pool := x509.NewCertPool()
	pool.AddCert(ts.Certificate())

	p := &TLSProber{dialer: newDialer(true), rootCAs: pool, port: port}
	pc, err := p.PeerCertificate(context.Background(), "127.0.0.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pc.Leaf == nil {
		t.Fatal("Leaf is nil")
	}
	if pc.VerifyErr != nil {
		t.Errorf("VerifyErr = %v, want nil", pc.VerifyErr)
	}
}

func TestTLSProber_UntrustedChainStillReturnsLeaf(t *testing.T) {
	_, port := newTLSTestServer(t)

	p := &TLSProber{dialer: newDialer(true), rootCAs: x509.NewCertPool(), port: port}
	pc, err := p.PeerCertificate(context.Background(), "127.0.0.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pc.Leaf == nil {
		t.Fatal("Leaf is nil")
	}
	if pc.VerifyErr == nil {
		t.Error("expected a verification error for an unknown root")
	}
}

func TestTLSProber_BlocksLoopback(t *testing.T) {
	_, port := newTLSTestServer(t)

	p := NewTLSProber(false)
	p.port = port
	_, err := p.PeerCertificate(context.Background(), "127.0.0.1")
	if !errors.Is(err, errBlockedAddress) {
		t.Errorf("err = %v, want %v", err, errBlockedAddress)
	}
}

func TestTLSProber_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	_, port, _ := net.SplitHostPort(ln.Addr().String())
	_ = ln.Close()

	p := &TLSProber{dialer: newDialer(true), port: port}
	if _, err := p.PeerCertificate(context.Background(), "127.0.0.1"); err == nil {
		t.Error("expected an error dialing a closed port")
	}
}
