package notify

import (
	"bytes"
	"html/template"
	"strings"
	"time"

	"github.com/whoisalfaz/site-audit/internal/model"
)

const (
	colourGood = template.CSS("#22c55e")
	colourWarn = template.CSS("#f59e0b")
	colourBad  = template.CSS("#ef4444")
)

func scoreColour(score int) template.CSS {
	switch {
	case score >= 80:
		return colourGood
	case score >= 50:
		return colourWarn
	default:
		return colourBad
	}
}

func statusColour(s model.Status) template.CSS {
	switch s {
	case model.StatusPass:
		return colourGood
	case model.StatusWarn:
		return colourWarn
	default:
		return colourBad
	}
}

func statusGlyph(s model.Status) string {
	switch s {
	case model.StatusPass:
		return "✅"
	case model.StatusWarn:
		return "⚠️"
	default:
		return "❌"
	}
}

type checkView struct {
	Name    string
	Summary string
	Score   int
	Glyph   string
	Colour  template.CSS
	Details []string
}

type fixView struct {
	Name    string
	Summary string
	Marker  string
	Colour  template.CSS
}

type reportView struct {
	FirstName  string
	Grade      model.Grade
	Score      int
	URL        string
	Date       string
	Colour     template.CSS
	Checks     []checkView
	Fixes      []fixView
	ContactURL string
	Year       int
}

type adminView struct {
	Name   string
	Email  string
	URL    string
	Grade  model.Grade
	Score  int
	Checks []checkView
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1.0"></head>
<body style="margin:0;padding:0;background-color:#0a0a0a;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif;">
<div style="max-width:640px;margin:0 auto;padding:40px 20px;">
  <div style="text-align:center;margin-bottom:40px;">
    <h1 style="color:#f8fafc;font-size:24px;margin-bottom:4px;">Site Audit Report</h1>
  </div>

  <div style="text-align:center;margin-bottom:32px;">
    <div style="display:inline-block;width:120px;height:120px;border-radius:50%;border:4px solid {{.Colour}};line-height:120px;text-align:center;">
      <span style="font-size:48px;font-weight:900;color:{{.Colour}};">{{.Grade}}</span>
    </div>
    <p style="color:#f8fafc;font-size:20px;margin-top:16px;font-weight:700;">Overall Score: {{.Score}}/100</p>
    <p style="color:#64748b;font-size:13px;">{{.URL}} · {{.Date}}</p>
  </div>

  <p style="color:#cbd5e1;font-size:15px;line-height:1.6;margin-bottom:24px;">
    {{.FirstName}}, here's a breakdown of your website's technical health. Every data point below comes from a live scan.
  </p>

  {{range .Checks}}
  <div style="background:#111827;border:1px solid #1e293b;border-radius:12px;padding:20px;margin-bottom:16px;">
    <div style="margin-bottom:12px;">
      <span style="font-size:16px;font-weight:700;color:#f8fafc;">{{.Glyph}} {{.Name}}</span>
      <span style="float:right;font-size:14px;font-weight:700;color:{{.Colour}};">{{.Score}}/100</span>
    </div>
    <p style="color:#cbd5e1;font-size:14px;margin-bottom:12px;line-height:1.5;">{{.Summary}}</p>
    <ul style="list-style:none;padding:0;margin:0;">
      {{range .Details}}<li style="padding:4px 0;color:#94a3b8;font-size:13px;">{{.}}</li>{{end}}
    </ul>
  </div>
  {{end}}

  {{if .Fixes}}
  <div style="background:#1e1b2e;border:1px solid #312e81;border-radius:12px;padding:24px;margin:24px 0;">
    <h3 style="color:#f8fafc;font-size:18px;margin-bottom:12px;">Priority Fixes</h3>
    <ul style="list-style:none;padding:0;margin:0;">
      {{range .Fixes}}<li style="padding:6px 0;color:{{.Colour}};">{{.Marker}} <strong>{{.Name}}</strong>: {{.Summary}}</li>{{end}}
    </ul>
  </div>
  {{end}}

  <div style="background:#0f172a;border:1px solid #334155;border-radius:16px;padding:32px;text-align:center;margin:32px 0;">
    <h3 style="color:#f8fafc;font-size:20px;margin-bottom:8px;">Want These Fixed?</h3>
    <p style="color:#94a3b8;font-size:14px;margin-bottom:20px;line-height:1.5;">
      If your score isn't where you want it, let's have a 15-minute call to discuss what's realistic.
    </p>
    <a href="{{.ContactURL}}" style="display:inline-block;background:#2dd4bf;color:#0a0a0a;font-weight:700;font-size:14px;padding:14px 32px;border-radius:8px;text-decoration:none;">Book a Strategy Call</a>
  </div>

  <div style="border-top:1px solid #1e293b;padding-top:24px;margin-top:32px;text-align:center;">
    <p style="color:#475569;font-size:11px;line-height:1.6;">
      This report was generated by an automated analysis system.<br>
      Data accuracy depends on network conditions at the time of scan.
    </p>
    <p style="color:#334155;font-size:10px;margin-top:8px;">© {{.Year}}</p>
  </div>
</div>
</body>
</html>
`))

var adminTemplate = template.Must(template.New("admin").Parse(`<div style="font-family:monospace;padding:20px;background:#0a0a0a;color:#e2e8f0;">
  <h2 style="color:#fff;">New Audit Submission</h2>
  <table style="width:100%;border-collapse:collapse;">
    <tr><td style="padding:8px;color:#94a3b8;">Name</td><td style="padding:8px;color:#fff;">{{.Name}}</td></tr>
    <tr><td style="padding:8px;color:#94a3b8;">Email</td><td style="padding:8px;color:#fff;"><a href="mailto:{{.Email}}" style="color:#3b82f6;">{{.Email}}</a></td></tr>
    <tr><td style="padding:8px;color:#94a3b8;">URL</td><td style="padding:8px;color:#fff;"><a href="{{.URL}}" style="color:#3b82f6;">{{.URL}}</a></td></tr>
    <tr><td style="padding:8px;color:#94a3b8;">Grade</td><td style="padding:8px;color:#fff;font-size:24px;font-weight:bold;">{{.Grade}} ({{.Score}}/100)</td></tr>
  </table>
  <hr style="border-color:#1e293b;margin:16px 0;">
  <p style="color:#94a3b8;">{{range $i, $c := .Checks}}{{if $i}}<br>{{end}}{{$c.Glyph}} {{$c.Name}}: {{$c.Score}}/100{{end}}</p>
</div>
`))

func checkViews(checks []model.CheckResult) []checkView {
	views := make([]checkView, 0, len(checks))
	for _, c := range checks {
		details := make([]string, 0, len(c.Details))
		for _, f := range c.Details {
			details = append(details, f.String())
		}
		views = append(views, checkView{
			Name:    c.Name,
			Summary: c.Summary,
			Score:   c.Score,
			Glyph:   statusGlyph(c.Status),
			Colour:  statusColour(c.Status),
			Details: details,
		})
	}
	return views
}

// priorityFixes lists failing checks first, then warnings.
func priorityFixes(checks []model.CheckResult) []fixView {
	var fixes []fixView
	for _, want := range []model.Status{model.StatusFail, model.StatusWarn} {
		for _, c := range checks {
			if c.Status != want {
				continue
			}
			f := fixView{Name: c.Name, Summary: c.Summary, Marker: "🔴", Colour: "#f87171"}
			if want == model.StatusWarn {
				f.Marker, f.Colour = "🟡", "#fbbf24"
			}
			fixes = append(fixes, f)
		}
	}
	return fixes
}

func firstName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}
	return "Hi"
}

// RenderReport builds the requester's HTML report.
func RenderReport(name string, results *model.AuditResults, siteBaseURL string) (string, error) {
	view := reportView{
		FirstName:  firstName(name),
		Grade:      results.Grade,
		Score:      results.OverallScore,
		URL:        results.URL,
		Date:       results.Timestamp.UTC().Format("January 2, 2006"),
		Colour:     scoreColour(results.OverallScore),
		Checks:     checkViews(results.Checks),
		Fixes:      priorityFixes(results.Checks),
		ContactURL: strings.TrimRight(siteBaseURL, "/") + "/contact/",
		Year:       time.Now().Year(),
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderAdmin builds the operator's lead notification.
func RenderAdmin(name, email, url string, results *model.AuditResults) (string, error) {
	view := adminView{
		Name:   name,
		Email:  email,
		URL:    url,
		Grade:  results.Grade,
		Score:  results.OverallScore,
		Checks: checkViews(results.Checks),
	}

	var buf bytes.Buffer
	if err := adminTemplate.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}
