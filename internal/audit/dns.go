package audit

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/whoisalfaz/site-audit/internal/model"
)

const (
	dnsLookupTimeout    = 5 * time.Second
	connectivityTimeout = 10 * time.Second
	slowDNSThreshold    = 200 * time.Millisecond
)

// DNSProbe resolves the target host, measures resolution latency and checks
// whether the first response redirects.
type DNSProbe struct {
	resolver Resolver
	fetcher  Fetcher
}

// NewDNSProbe returns a DNSProbe using resolver for lookups and fetcher for the
// connectivity request.
func NewDNSProbe(resolver Resolver, fetcher Fetcher) *DNSProbe {
	return &DNSProbe{resolver: resolver, fetcher: fetcher}
}

func (p *DNSProbe) Check(ctx context.Context, target *url.URL) model.CheckResult {
	host := target.Hostname()

	var (
		v4, v6     []net.IP
		v6Err      error
		dnsLatency time.Duration
	)
	lookupCtx, cancel := context.WithTimeout(ctx, dnsLookupTimeout)
	g, gctx := errgroup.WithContext(lookupCtx)
	g.Go(func() error {
		start := time.Now()
		ips, err := p.resolver.LookupA(gctx, host)
		dnsLatency = time.Since(start)
		if err == nil && len(ips) == 0 {
			err = errNoRecords
		}
		v4 = ips
		return err
	})
	g.Go(func() error {
		v6, v6Err = p.resolver.LookupAAAA(gctx, host)
		return nil
	})
	err := g.Wait()
	cancel()
	if err != nil {
		return failed(CheckDNS, "DNS resolution failed. The domain may not exist or is unreachable.", err)
	}

	score := 100
	details := []model.Finding{
		model.Pass(fmt.Sprintf("DNS resolves to %s (%dms)", v4[0], dnsLatency.Milliseconds())),
	}
	if dnsLatency > slowDNSThreshold {
		details = append(details, model.Warn("DNS resolution is slow (>200ms)"))
		score -= 10
	}
	if len(v4) > 1 {
		details = append(details, model.Pass(fmt.Sprintf("Multiple IPs detected (%d), likely using a CDN", len(v4))))
	}
	if v6Err == nil && len(v6) > 0 {
		details = append(details, model.Pass("IPv6 (AAAA record) supported"))
	} else {
		details = append(details, model.Warn("No IPv6 (AAAA record), consider adding for future-proofing"))
		score -= 5
	}

	fetchCtx, cancelFetch := context.WithTimeout(ctx, connectivityTimeout)
	defer cancelFetch()
	resp, err := p.fetcher.FetchNoRedirect(fetchCtx, target.String())
	if err != nil {
		return failed(CheckDNS, "Could not connect to the site.", err, details...)
	}
	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		details = append(details, model.Warn(fmt.Sprintf("Redirect detected: %d → %s", resp.StatusCode, resp.Header.Get("Location"))))
		score -= 5
	} else {
		details = append(details, model.Pass(fmt.Sprintf("No redirect chain (HTTP %d)", resp.StatusCode)))
	}

	score = clampScore(score)
	summary := "Some connectivity concerns found."
	if score >= 80 {
		summary = "DNS and connectivity are healthy."
	}

	return model.CheckResult{
		Name:    CheckDNS.Name(),
		Status:  statusFor(score),
		Score:   score,
		Summary: summary,
		Details: details,
	}
}
