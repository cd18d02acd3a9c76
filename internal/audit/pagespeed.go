package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"

	"github.com/whoisalfaz/site-audit/internal/platform/errs"
)

// PageSpeedReport holds the category scores (0-100) and display-only timing
// metrics from one mobile Lighthouse run.
type PageSpeedReport struct {
	Performance   int
	SEO           int
	BestPractices int

	FirstContentfulPaint   string
	LargestContentfulPaint string
	CumulativeLayoutShift  string
	TotalBlockingTime      string
	SpeedIndex             string
}

// PageSpeedAPI runs a remote page-speed analysis.
type PageSpeedAPI interface {
	Run(ctx context.Context, targetURL string) (*PageSpeedReport, error)
}

// PageSpeedClient calls the PageSpeed Insights v5 API. Requests are throttled
// client-side so that bursts of audits do not exhaust the upstream quota.
type PageSpeedClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewPageSpeedClient returns a client for endpoint. An empty apiKey sends
// unauthenticated requests. rps bounds the outbound request rate.
func NewPageSpeedClient(endpoint, apiKey string, rps float64) *PageSpeedClient {
	return &PageSpeedClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{},
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
	}
}

type lighthouseCategory struct {
	Score *float64 `json:"score"`
}

type lighthouseAudit struct {
	DisplayValue string `json:"displayValue"`
}

type pageSpeedPayload struct {
	LighthouseResult struct {
		Categories struct {
			Performance   lighthouseCategory `json:"performance"`
			SEO           lighthouseCategory `json:"seo"`
			BestPractices lighthouseCategory `json:"best-practices"`
		} `json:"categories"`
		Audits map[string]lighthouseAudit `json:"audits"`
	} `json:"lighthouseResult"`
}

// Run requests a mobile analysis of targetURL. A 429 answer, or a client-side
// throttle that cannot be satisfied before ctx ends, is reported as an
// errs.RateLimited AppError. Any other non-2xx status carries UpstreamStatus.
func (c *PageSpeedClient) Run(ctx context.Context, targetURL string) (*PageSpeedReport, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &errs.AppError{
			Kind:    errs.RateLimited,
			Message: "Performance engine is rate-limited.",
			Cause:   err,
		}
	}

	q := url.Values{}
	q.Set("url", targetURL)
	q.Set("strategy", "mobile")
	q.Add("category", "PERFORMANCE")
	q.Add("category", "SEO")
	q.Add("category", "BEST_PRACTICES")
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// The request URL carries the API key; keep it out of error text.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("pagespeed request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &errs.AppError{
			Kind:           errs.RateLimited,
			UpstreamStatus: resp.StatusCode,
			Message:        "Performance engine is rate-limited.",
		}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &errs.AppError{
			Kind:           errs.Unreachable,
			UpstreamStatus: resp.StatusCode,
			Message:        "Performance engine returned an error status.",
		}
	}

	var payload pageSpeedPayload
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&payload); err != nil {
		return nil, &errs.AppError{
			Kind:    errs.ParsingFailed,
			Message: "Failed to decode the performance report.",
			Cause:   err,
		}
	}

	lr := payload.LighthouseResult
	return &PageSpeedReport{
		Performance:            categoryScore(lr.Categories.Performance),
		SEO:                    categoryScore(lr.Categories.SEO),
		BestPractices:          categoryScore(lr.Categories.BestPractices),
		FirstContentfulPaint:   displayValue(lr.Audits, "first-contentful-paint"),
		LargestContentfulPaint: displayValue(lr.Audits, "largest-contentful-paint"),
		CumulativeLayoutShift:  displayValue(lr.Audits, "cumulative-layout-shift"),
		TotalBlockingTime:      displayValue(lr.Audits, "total-blocking-time"),
		SpeedIndex:             displayValue(lr.Audits, "speed-index"),
	}, nil
}

// categoryScore converts a 0..1 Lighthouse score to 0..100. A missing score
// counts as 0.
func categoryScore(c lighthouseCategory) int {
	if c.Score == nil {
		return 0
	}
	return clampScore(int(math.Round(*c.Score * 100)))
}

func displayValue(audits map[string]lighthouseAudit, id string) string {
	if v := audits[id].DisplayValue; v != "" {
		return v
	}
	return "N/A"
}
