package audit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/whoisalfaz/site-audit/internal/model"
	"github.com/whoisalfaz/site-audit/internal/platform/errs"
)

const (
	performanceTimeout    = 60 * time.Second
	performanceMaxRetries = 2
	rateLimitBackoffStep  = 3 * time.Second
)

// PerformanceProbe scores the target with a remote Lighthouse run. Rate
// limiting is retried with linear backoff and, once retries are exhausted,
// reported as a neutral warning rather than a failure of the site.
type PerformanceProbe struct {
	api   PageSpeedAPI
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPerformanceProbe returns a PerformanceProbe backed by api.
func NewPerformanceProbe(api PageSpeedAPI) *PerformanceProbe {
	return &PerformanceProbe{api: api, sleep: sleepContext}
}

func (p *PerformanceProbe) Check(ctx context.Context, target *url.URL) model.CheckResult {
	for attempt := 0; ; attempt++ {
		report, err := p.run(ctx, target.String())
		if err == nil {
			return scorePerformance(report)
		}

		var appErr *errs.AppError
		isAppErr := errors.As(err, &appErr)
		switch {
		case isAppErr && appErr.Kind == errs.RateLimited:
			if attempt >= performanceMaxRetries {
				return rateLimitedResult()
			}
			if p.sleep(ctx, time.Duration(attempt+1)*rateLimitBackoffStep) != nil {
				return rateLimitedResult()
			}

		case isAppErr && appErr.UpstreamStatus != 0:
			return failed(CheckPerformance, "Performance analysis returned an error.", nil,
				model.Fail(fmt.Sprintf("Error code: %d", appErr.UpstreamStatus)))

		default:
			if attempt >= performanceMaxRetries {
				return failed(CheckPerformance, "Performance analysis could not complete.", err,
					model.Fail("Connection timeout, the target site may be slow to respond"))
			}
		}
	}
}

func (p *PerformanceProbe) run(ctx context.Context, targetURL string) (*PageSpeedReport, error) {
	ctx, cancel := context.WithTimeout(ctx, performanceTimeout)
	defer cancel()
	return p.api.Run(ctx, targetURL)
}

func scorePerformance(r *PageSpeedReport) model.CheckResult {
	avg := int(math.Round(float64(r.Performance+r.SEO+r.BestPractices) / 3))
	avg = clampScore(avg)

	var summary string
	switch {
	case r.Performance >= 90:
		summary = fmt.Sprintf("Excellent performance (%d/100). Your site loads fast.", r.Performance)
	case r.Performance >= 50:
		summary = fmt.Sprintf("Moderate performance (%d/100). There are optimization opportunities.", r.Performance)
	default:
		summary = fmt.Sprintf("Poor performance (%d/100). This is costing you traffic and conversions.", r.Performance)
	}

	return model.CheckResult{
		Name:    CheckPerformance.Name(),
		Status:  statusFor(avg),
		Score:   avg,
		Summary: summary,
		Details: []model.Finding{
			model.Info(fmt.Sprintf("Performance: %d/100", r.Performance)),
			model.Info(fmt.Sprintf("SEO: %d/100", r.SEO)),
			model.Info(fmt.Sprintf("Best Practices: %d/100", r.BestPractices)),
			model.Info("First Contentful Paint: " + r.FirstContentfulPaint),
			model.Info("Largest Contentful Paint: " + r.LargestContentfulPaint),
			model.Info("Cumulative Layout Shift: " + r.CumulativeLayoutShift),
			model.Info("Total Blocking Time: " + r.TotalBlockingTime),
			model.Info("Speed Index: " + r.SpeedIndex),
		},
	}
}

func rateLimitedResult() model.CheckResult {
	return model.CheckResult{
		Name:    CheckPerformance.Name(),
		Status:  model.StatusWarn,
		Score:   50,
		Summary: "Performance analysis is temporarily unavailable. Other checks are accurate, try again in a few minutes.",
		Details: []model.Finding{
			model.Warn("Performance engine is temporarily rate-limited"),
			model.Info("This happens when too many audits run in a short window"),
			model.Info("All other checks completed successfully"),
		},
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
