package audit

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/whoisalfaz/site-audit/internal/model"
)

const robotsFileTimeout = 5 * time.Second

// RobotsSitemapProbe checks /robots.txt and /sitemap.xml on the target's
// origin. The two files are fetched concurrently and scored independently.
type RobotsSitemapProbe struct {
	fetcher Fetcher
}

// NewRobotsSitemapProbe returns a RobotsSitemapProbe backed by fetcher.
func NewRobotsSitemapProbe(fetcher Fetcher) *RobotsSitemapProbe {
	return &RobotsSitemapProbe{fetcher: fetcher}
}

// fileCheck is the outcome of one sub-check.
type fileCheck struct {
	findings []model.Finding
	penalty  int
	err      error // transport-level failure
}

func (p *RobotsSitemapProbe) Check(ctx context.Context, target *url.URL) model.CheckResult {
	base := origin(target)

	var robots, sitemap fileCheck
	var g errgroup.Group
	g.Go(func() error {
		robots = p.checkRobots(ctx, base+"/robots.txt")
		return nil
	})
	g.Go(func() error {
		sitemap = p.checkSitemap(ctx, base+"/sitemap.xml")
		return nil
	})
	_ = g.Wait()

	details := slices.Concat(robots.findings, sitemap.findings)

	// Neither file could even be requested: the host itself is unreachable.
	if robots.err != nil && sitemap.err != nil {
		return failed(CheckRobotsSitemap, "Could not check robots/sitemap.", nil, details...)
	}

	score := clampScore(100 - robots.penalty - sitemap.penalty)
	status := statusFor(score)

	var summary string
	switch status {
	case model.StatusPass:
		summary = "Robots and sitemap are properly configured."
	case model.StatusWarn:
		summary = "Partial configuration, some improvements needed."
	default:
		summary = "Missing critical crawl directives."
	}

	return model.CheckResult{
		Name:    CheckRobotsSitemap.Name(),
		Status:  status,
		Score:   score,
		Summary: summary,
		Details: details,
	}
}

func (p *RobotsSitemapProbe) checkRobots(ctx context.Context, robotsURL string) fileCheck {
	ctx, cancel := context.WithTimeout(ctx, robotsFileTimeout)
	defer cancel()

	resp, err := p.fetcher.Fetch(ctx, robotsURL)
	if err != nil {
		return fileCheck{
			findings: []model.Finding{model.Fail("Could not fetch robots.txt: " + err.Error())},
			penalty:  25,
			err:      err,
		}
	}
	if !resp.OK() {
		return fileCheck{
			findings: []model.Finding{model.Fail("No robots.txt found")},
			penalty:  25,
		}
	}

	rules := parseRobots(resp.Body)
	fc := fileCheck{findings: []model.Finding{model.Pass("robots.txt exists")}}
	if rules.disallowAll {
		fc.findings = append(fc.findings, model.Warn("robots.txt blocks all crawling (Disallow: /), verify this is intentional"))
	}
	if len(rules.sitemaps) > 0 {
		fc.findings = append(fc.findings, model.Pass("Sitemap reference found in robots.txt"))
	} else {
		fc.findings = append(fc.findings, model.Warn("No sitemap reference in robots.txt"))
		fc.penalty += 10
	}
	return fc
}

func (p *RobotsSitemapProbe) checkSitemap(ctx context.Context, sitemapURL string) fileCheck {
	ctx, cancel := context.WithTimeout(ctx, robotsFileTimeout)
	defer cancel()

	resp, err := p.fetcher.Fetch(ctx, sitemapURL)
	if err != nil {
		return fileCheck{
			findings: []model.Finding{model.Fail("Could not fetch sitemap.xml: " + err.Error())},
			penalty:  25,
			err:      err,
		}
	}
	if !resp.OK() {
		return fileCheck{
			findings: []model.Finding{model.Fail("No sitemap.xml found")},
			penalty:  25,
		}
	}

	n := bytes.Count(resp.Body, []byte("<loc>"))
	fc := fileCheck{findings: []model.Finding{model.Pass(fmt.Sprintf("sitemap.xml exists (%d URLs)", n))}}
	if n == 0 {
		fc.findings = append(fc.findings, model.Warn("Sitemap is empty, no URLs listed"))
		fc.penalty += 15
	}
	return fc
}

type robotsRules struct {
	disallowAll bool
	sitemaps    []string
}

// parseRobots reads the directives the audit cares about. Comments and
// unknown directives are ignored.
func parseRobots(body []byte) robotsRules {
	var rules robotsRules
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "disallow":
			if value == "/" {
				rules.disallowAll = true
			}
		case "sitemap":
			if value != "" {
				rules.sitemaps = append(rules.sitemaps, value)
			}
		}
	}
	return rules
}
