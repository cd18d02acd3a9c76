package audit

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"math"
	"net"
	"net/url"
	"time"

	"github.com/whoisalfaz/site-audit/internal/model"
)

const sslTimeout = 5 * time.Second

var errNoCertificate = errors.New("no certificate returned")

// PeerCertificate is the leaf certificate presented by a server together with
// the outcome of verifying its chain. VerifyErr is nil for a trusted chain.
type PeerCertificate struct {
	Leaf      *x509.Certificate
	VerifyErr error
}

// CertificateSource retrieves the certificate a host presents on its TLS port.
type CertificateSource interface {
	PeerCertificate(ctx context.Context, host string) (*PeerCertificate, error)
}

// TLSProber opens a raw TLS connection and reports the peer certificate.
type TLSProber struct {
	dialer  *net.Dialer
	rootCAs *x509.CertPool // nil means the system pool
	port    string
}

// NewTLSProber returns a TLSProber that dials port 443 through the same
// address screening as the HTTP fetcher.
func NewTLSProber(allowPrivate bool) *TLSProber {
	return &TLSProber{dialer: newDialer(allowPrivate), port: "443"}
}

// PeerCertificate completes a handshake with host and verifies the presented
// chain separately, so that expired or untrusted certificates can still be
// inspected and reported on.
func (p *TLSProber) PeerCertificate(ctx context.Context, host string) (*PeerCertificate, error) {
	d := &tls.Dialer{
		NetDialer: p.dialer,
		Config: &tls.Config{
			ServerName:         host,
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: true, //nolint:gosec // the chain is verified below
		},
	}

	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, p.port))
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	state := conn.(*tls.Conn).ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil, errNoCertificate
	}

	leaf := state.PeerCertificates[0]
	intermediates := x509.NewCertPool()
	for _, c := range state.PeerCertificates[1:] {
		intermediates.AddCert(c)
	}
	_, verr := leaf.Verify(x509.VerifyOptions{
		DNSName:       host,
		Roots:         p.rootCAs,
		Intermediates: intermediates,
	})

	return &PeerCertificate{Leaf: leaf, VerifyErr: verr}, nil
}

// SSLProbe inspects the target's leaf certificate validity window.
type SSLProbe struct {
	certs CertificateSource
	now   func() time.Time
}

// NewSSLProbe returns an SSLProbe backed by certs.
func NewSSLProbe(certs CertificateSource) *SSLProbe {
	return &SSLProbe{certs: certs, now: time.Now}
}

func (p *SSLProbe) Check(ctx context.Context, target *url.URL) model.CheckResult {
	ctx, cancel := context.WithTimeout(ctx, sslTimeout)
	defer cancel()

	host := target.Hostname()
	pc, err := p.certs.PeerCertificate(ctx, host)
	if err != nil {
		return failed(CheckSSL, "Could not verify SSL certificate.", err)
	}

	return evaluateCertificate(host, pc, p.now())
}

func evaluateCertificate(host string, pc *PeerCertificate, now time.Time) model.CheckResult {
	leaf := pc.Leaf
	daysLeft := int(math.Ceil(leaf.NotAfter.Sub(now).Hours() / 24))

	issuer := "Unknown"
	switch {
	case len(leaf.Issuer.Organization) > 0:
		issuer = leaf.Issuer.Organization[0]
	case leaf.Issuer.CommonName != "":
		issuer = leaf.Issuer.CommonName
	}
	subject := leaf.Subject.CommonName
	if subject == "" {
		subject = host
	}

	details := []model.Finding{
		model.Info("Issuer: " + issuer),
		model.Info("Expires: " + leaf.NotAfter.UTC().Format(time.DateOnly)),
		model.Info(fmt.Sprintf("Days remaining: %d", daysLeft)),
		model.Info("Subject: " + subject),
	}

	result := func(status model.Status, score int, summary string) model.CheckResult {
		return model.CheckResult{
			Name:    CheckSSL.Name(),
			Status:  status,
			Score:   score,
			Summary: summary,
			Details: details,
		}
	}

	switch {
	case daysLeft <= 0:
		return result(model.StatusFail, 0, "SSL certificate has expired.")
	case now.Before(leaf.NotBefore):
		return result(model.StatusFail, 0, "SSL certificate is not valid yet.")
	case pc.VerifyErr != nil && !isExpiryError(pc.VerifyErr):
		details = append(details, model.Fail(pc.VerifyErr.Error()))
		return result(model.StatusFail, 0, "SSL certificate is not trusted.")
	case daysLeft <= 14:
		return result(model.StatusWarn, 40, fmt.Sprintf("SSL expires in %d days. Renew immediately.", daysLeft))
	case daysLeft <= 30:
		return result(model.StatusWarn, 70, fmt.Sprintf("SSL expires in %d days. Renewal due soon.", daysLeft))
	default:
		return result(model.StatusPass, 100, fmt.Sprintf("SSL is valid. Expires in %d days.", daysLeft))
	}
}

func isExpiryError(err error) bool {
	var invalid x509.CertificateInvalidError
	return errors.As(err, &invalid) && invalid.Reason == x509.Expired
}
