package audit

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html/charset"

	"github.com/whoisalfaz/site-audit/internal/model"
)

const metaTagsTimeout = 10 * time.Second

// MetaTagsProbe fetches the page and scores its title, description, Open
// Graph, viewport and canonical tags.
type MetaTagsProbe struct {
	fetcher Fetcher
}

// NewMetaTagsProbe returns a MetaTagsProbe backed by fetcher.
func NewMetaTagsProbe(fetcher Fetcher) *MetaTagsProbe {
	return &MetaTagsProbe{fetcher: fetcher}
}

func (p *MetaTagsProbe) Check(ctx context.Context, target *url.URL) model.CheckResult {
	ctx, cancel := context.WithTimeout(ctx, metaTagsTimeout)
	defer cancel()

	resp, err := p.fetcher.Fetch(ctx, target.String())
	if err != nil {
		return failed(CheckMetaTags, "Could not fetch the page to analyze meta tags.", err)
	}

	body, err := charset.NewReader(bytes.NewReader(resp.Body), resp.Header.Get("Content-Type"))
	if err != nil {
		body = bytes.NewReader(resp.Body)
	}
	tags, err := ParseHead(body)
	if err != nil {
		return failed(CheckMetaTags, "Could not parse the page to analyze meta tags.", err)
	}

	return scoreMetaTags(tags)
}

func scoreMetaTags(tags *HeadTags) model.CheckResult {
	var findings []model.Finding
	score := 100

	switch n := utf8.RuneCountInString(tags.Title); {
	case n == 0:
		findings = append(findings, model.Fail("Missing <title> tag"))
		score -= 20
	case n < 30:
		findings = append(findings, model.Warn(fmt.Sprintf("Title is short (%d chars). Aim for 50-60.", n)))
		score -= 5
	default:
		findings = append(findings, model.Pass(fmt.Sprintf("Title: \"%s\"", truncate(tags.Title, 60))))
	}

	switch n := utf8.RuneCountInString(tags.Description); {
	case n == 0:
		findings = append(findings, model.Fail("Missing meta description"))
		score -= 20
	case n < 100:
		findings = append(findings, model.Warn(fmt.Sprintf("Description is short (%d chars). Aim for 120-160.", n)))
		score -= 5
	default:
		findings = append(findings, model.Pass(fmt.Sprintf("Meta description present (%d chars)", n)))
	}

	if tags.OGTitle == "" || tags.OGDescription == "" {
		findings = append(findings, model.Warn("Incomplete Open Graph tags"))
		score -= 10
	} else {
		findings = append(findings, model.Pass("Open Graph tags configured"))
	}

	if tags.OGImage == "" {
		findings = append(findings, model.Fail("No og:image, social shares will look plain"))
		score -= 10
	} else {
		findings = append(findings, model.Pass("Open Graph image set"))
	}

	if tags.Viewport == "" {
		findings = append(findings, model.Fail("Missing viewport meta, bad for mobile"))
		score -= 15
	} else {
		findings = append(findings, model.Pass("Viewport meta tag present"))
	}

	if tags.Canonical == "" {
		findings = append(findings, model.Warn("No canonical URL, risk of duplicate content issues"))
		score -= 10
	} else {
		findings = append(findings, model.Pass("Canonical URL set"))
	}

	score = clampScore(score)
	status := statusFor(score)

	var summary string
	switch status {
	case model.StatusPass:
		summary = "Meta tags are well configured."
	case model.StatusWarn:
		summary = "Some meta tags are missing or incomplete."
	default:
		summary = "Critical meta tag issues found."
	}

	return model.CheckResult{
		Name:    CheckMetaTags.Name(),
		Status:  status,
		Score:   score,
		Summary: summary,
		Details: findings,
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
