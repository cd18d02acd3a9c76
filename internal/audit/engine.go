package audit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/whoisalfaz/site-audit/internal/model"
)

// Recorder receives per-probe and per-audit observations.
type Recorder interface {
	ObserveProbe(check, status string, d time.Duration)
	ObserveAudit(grade string)
}

// Probes assigns an implementation to every check.
type Probes struct {
	Performance     Probe
	MetaTags        Probe
	SSL             Probe
	SecurityHeaders Probe
	RobotsSitemap   Probe
	DNS             Probe
}

func (p Probes) table() [numChecks]Probe {
	return [numChecks]Probe{
		CheckPerformance:     p.Performance,
		CheckMetaTags:        p.MetaTags,
		CheckSSL:             p.SSL,
		CheckSecurityHeaders: p.SecurityHeaders,
		CheckRobotsSitemap:   p.RobotsSitemap,
		CheckDNS:             p.DNS,
	}
}

// Dependencies are the outbound collaborators of the standard probes.
type Dependencies struct {
	Fetcher   Fetcher
	PageSpeed PageSpeedAPI
	Certs     CertificateSource
	Resolver  Resolver
}

// StandardProbes wires the six built-in probes to deps.
func StandardProbes(deps Dependencies) Probes {
	return Probes{
		Performance:     NewPerformanceProbe(deps.PageSpeed),
		MetaTags:        NewMetaTagsProbe(deps.Fetcher),
		SSL:             NewSSLProbe(deps.Certs),
		SecurityHeaders: NewSecurityHeadersProbe(deps.Fetcher),
		RobotsSitemap:   NewRobotsSitemapProbe(deps.Fetcher),
		DNS:             NewDNSProbe(deps.Resolver, deps.Fetcher),
	}
}

// Engine runs all probes against a URL and aggregates their results.
type Engine struct {
	probes   [numChecks]Probe
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder reports probe durations and audit grades to r.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithLogger sets the logger used for probe failures.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine returns an Engine running probes.
func NewEngine(probes Probes, opts ...Option) *Engine {
	e := &Engine{
		probes: probes.table(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run normalizes rawURL, runs every probe concurrently and returns the
// aggregated results. Checks are always returned in declaration order. The
// only error is an invalid URL; probe failures are reported inside the
// results.
//
// Cancelling ctx does not abort probes already in flight; each probe is
// bounded by its own timeouts.
func (e *Engine) Run(ctx context.Context, rawURL string) (*model.AuditResults, error) {
	target, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)

	var checks [numChecks]model.CheckResult
	var wg sync.WaitGroup
	for id, probe := range e.probes {
		wg.Go(func() {
			checks[id] = e.runProbe(ctx, CheckID(id), probe, target)
		})
	}
	wg.Wait()

	results := &model.AuditResults{
		URL:       target.String(),
		Timestamp: e.now().UTC().Truncate(time.Millisecond),
		Checks:    checks[:],
	}
	results.OverallScore, results.Grade = Aggregate(results.Checks)

	if e.recorder != nil {
		e.recorder.ObserveAudit(string(results.Grade))
	}
	return results, nil
}

func (e *Engine) runProbe(ctx context.Context, id CheckID, probe Probe, target *url.URL) (res model.CheckResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = failed(id, "Check could not complete.", fmt.Errorf("internal error: %v", r))
			e.logger.Error("probe panicked", "check", id.Name(), "panic", r)
		}
		if res.Status == model.StatusFail {
			e.logger.Warn("check failed", "check", id.Name(), "url", target.String(), "summary", res.Summary)
		}
		if e.recorder != nil {
			e.recorder.ObserveProbe(id.Name(), string(res.Status), time.Since(start))
		}
	}()

	if probe == nil {
		return failed(id, "Check is not configured.", nil)
	}

	// Each probe gets its own copy of the target.
	u := *target
	res = probe.Check(ctx, &u)

	res.Name = id.Name()
	res.Score = clampScore(res.Score)
	if res.Details == nil {
		res.Details = []model.Finding{}
	}
	return res
}
