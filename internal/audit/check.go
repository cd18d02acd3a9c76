package audit

import (
	"context"
	"net/url"

	"github.com/whoisalfaz/site-audit/internal/model"
)

// CheckID identifies one of the fixed audit checks. Its value is the check's
// position in every AuditResults.
type CheckID int

const (
	CheckPerformance CheckID = iota
	CheckMetaTags
	CheckSSL
	CheckSecurityHeaders
	CheckRobotsSitemap
	CheckDNS

	numChecks
)

// checkSpec is one row of the check table.
type checkSpec struct {
	name   string
	weight float64
}

// checkTable declares every check's display name and aggregation weight.
// Weights sum to 1.0.
var checkTable = [numChecks]checkSpec{
	CheckPerformance:     {name: "Performance & Core Web Vitals", weight: 0.35},
	CheckMetaTags:        {name: "Meta Tags & Open Graph", weight: 0.20},
	CheckSSL:             {name: "SSL Certificate", weight: 0.15},
	CheckSecurityHeaders: {name: "Security Headers", weight: 0.10},
	CheckRobotsSitemap:   {name: "Robots.txt & Sitemap", weight: 0.10},
	CheckDNS:             {name: "DNS & Connectivity", weight: 0.10},
}

// Name returns the check's display name.
func (id CheckID) Name() string {
	if id < 0 || id >= numChecks {
		return ""
	}
	return checkTable[id].name
}

// Probe runs one check against a normalized target URL. Implementations
// must not fail: every error is reported inside the returned CheckResult.
type Probe interface {
	Check(ctx context.Context, target *url.URL) model.CheckResult
}

// ProbeFunc adapts a function to the Probe interface.
type ProbeFunc func(ctx context.Context, target *url.URL) model.CheckResult

func (f ProbeFunc) Check(ctx context.Context, target *url.URL) model.CheckResult {
	return f(ctx, target)
}

// statusFor applies the shared 80/50 thresholds.
func statusFor(score int) model.Status {
	switch {
	case score >= 80:
		return model.StatusPass
	case score >= 50:
		return model.StatusWarn
	default:
		return model.StatusFail
	}
}

// failed builds the zero-score result a probe returns when it cannot
// complete. The diagnostic always lands in details.
func failed(id CheckID, summary string, err error, extra ...model.Finding) model.CheckResult {
	details := append([]model.Finding{}, extra...)
	if err != nil {
		details = append(details, model.Fail(err.Error()))
	}
	if len(details) == 0 {
		details = append(details, model.Fail(summary))
	}
	return model.CheckResult{
		Name:    id.Name(),
		Status:  model.StatusFail,
		Score:   0,
		Summary: summary,
		Details: details,
	}
}

func clampScore(score int) int {
	return min(max(score, 0), 100)
}
