package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/whoisalfaz/site-audit/internal/model"
	"github.com/whoisalfaz/site-audit/internal/platform/config"
	"github.com/whoisalfaz/site-audit/internal/platform/errs"
)

const maxErrorBody = 4 << 10

// Brevo delivers reports, operator alerts and contact upserts through the
// Brevo transactional email and contacts API.
type Brevo struct {
	cfg         config.Brevo
	siteBaseURL string
	client      *http.Client
}

// NewBrevo returns a Brevo client. siteBaseURL is linked from reports.
func NewBrevo(cfg config.Brevo, siteBaseURL string) *Brevo {
	return &Brevo{
		cfg:         cfg,
		siteBaseURL: siteBaseURL,
		client:      &http.Client{Timeout: 20 * time.Second},
	}
}

type brevoAddress struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoEmail struct {
	Sender      brevoAddress   `json:"sender"`
	To          []brevoAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

type brevoContact struct {
	Email         string            `json:"email"`
	Attributes    map[string]string `json:"attributes"`
	ListIDs       []int             `json:"listIds"`
	UpdateEnabled bool              `json:"updateEnabled"`
}

func (b *Brevo) SendReport(ctx context.Context, email, name string, results *model.AuditResults) error {
	html, err := RenderReport(name, results, b.siteBaseURL)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	return b.post(ctx, "/smtp/email", brevoEmail{
		Sender:      brevoAddress{Name: "Site Audit", Email: b.cfg.SenderEmail},
		To:          []brevoAddress{{Email: email, Name: name}},
		Subject:     fmt.Sprintf("Your Site Audit: %s Grade (%d/100) — %s", results.Grade, results.OverallScore, results.URL),
		HTMLContent: html,
	})
}

func (b *Brevo) NotifyAdmin(ctx context.Context, name, email, url string, results *model.AuditResults) error {
	if b.cfg.AdminEmail == "" {
		return &errs.AppError{Kind: errs.NotConfigured, Message: "no admin address configured"}
	}

	html, err := RenderAdmin(name, email, url, results)
	if err != nil {
		return fmt.Errorf("render admin notification: %w", err)
	}

	return b.post(ctx, "/smtp/email", brevoEmail{
		Sender:      brevoAddress{Name: "Audit System", Email: b.cfg.SenderEmail},
		To:          []brevoAddress{{Email: b.cfg.AdminEmail}},
		Subject:     fmt.Sprintf("New Audit Lead: %s — %s (%d/100)", name, results.Grade, results.OverallScore),
		HTMLContent: html,
	})
}

func (b *Brevo) UpsertContact(ctx context.Context, email, name, url string) error {
	first, last, _ := strings.Cut(strings.TrimSpace(name), " ")

	return b.post(ctx, "/contacts", brevoContact{
		Email: email,
		Attributes: map[string]string{
			"FIRSTNAME": first,
			"LASTNAME":  strings.TrimSpace(last),
			"WEBSITE":   url,
		},
		ListIDs:       []int{b.cfg.ListID},
		UpdateEnabled: true,
	})
}

// post sends body as JSON. Client errors other than 429 are permanent and
// reported as InvalidInput; everything else may be retried.
func (b *Brevo) post(ctx context.Context, path string, body any) error {
	if b.cfg.APIKey == "" {
		return &errs.AppError{Kind: errs.NotConfigured, Message: "BREVO_API_KEY is not set"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(b.cfg.Endpoint, "/")+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", b.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("brevo %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	kind := errs.Unreachable
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		kind = errs.InvalidInput
	}
	return &errs.AppError{
		Kind:           kind,
		UpstreamStatus: resp.StatusCode,
		Message:        fmt.Sprintf("brevo %s: %s", path, strings.TrimSpace(string(msg))),
	}
}
