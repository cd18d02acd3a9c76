package audit

import (
	"context"
	"net/url"
	"time"

	"github.com/whoisalfaz/site-audit/internal/model"
)

const securityHeadersTimeout = 10 * time.Second

// securityHeaders lists the inspected response headers with the points each
// one costs when missing.
var securityHeaders = []struct {
	header  string
	label   string
	penalty int
}{
	{header: "Strict-Transport-Security", label: "HSTS", penalty: 20},
	{header: "X-Content-Type-Options", label: "X-Content-Type-Options", penalty: 15},
	{header: "X-Frame-Options", label: "X-Frame-Options", penalty: 15},
	{header: "Content-Security-Policy", label: "Content-Security-Policy", penalty: 15},
	{header: "Referrer-Policy", label: "Referrer-Policy", penalty: 10},
	{header: "Permissions-Policy", label: "Permissions-Policy", penalty: 10},
}

// SecurityHeadersProbe scores the presence of common security headers on the
// final (post-redirect) response.
type SecurityHeadersProbe struct {
	fetcher Fetcher
}

// NewSecurityHeadersProbe returns a SecurityHeadersProbe backed by fetcher.
func NewSecurityHeadersProbe(fetcher Fetcher) *SecurityHeadersProbe {
	return &SecurityHeadersProbe{fetcher: fetcher}
}

func (p *SecurityHeadersProbe) Check(ctx context.Context, target *url.URL) model.CheckResult {
	ctx, cancel := context.WithTimeout(ctx, securityHeadersTimeout)
	defer cancel()

	resp, err := p.fetcher.Fetch(ctx, target.String())
	if err != nil {
		return failed(CheckSecurityHeaders, "Could not check security headers.", err)
	}

	details := make([]model.Finding, 0, len(securityHeaders))
	score := 100
	for _, h := range securityHeaders {
		if resp.Header.Get(h.header) != "" {
			details = append(details, model.Pass(h.label+" is set"))
			continue
		}
		details = append(details, model.Fail("Missing "+h.label))
		score -= h.penalty
	}

	score = clampScore(score)
	status := statusFor(score)

	var summary string
	switch status {
	case model.StatusPass:
		summary = "Security headers are well configured."
	case model.StatusWarn:
		summary = "Some security headers are missing."
	default:
		summary = "Critical security headers are missing."
	}

	return model.CheckResult{
		Name:    CheckSecurityHeaders.Name(),
		Status:  status,
		Score:   score,
		Summary: summary,
		Details: details,
	}
}
