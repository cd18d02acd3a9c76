package notify

import (
	"html/template"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/whoisalfaz/site-audit/internal/model"
)

func TestScoreColour(t *testing.T) {
	tests := []struct {
		score int
		want  template.CSS
	}{
		{100, colourGood},
		{80, colourGood},
		{79, colourWarn},
		{50, colourWarn},
		{49, colourBad},
		{0, colourBad},
	}
	for _, tt := range tests {
		if got := scoreColour(tt.score); got != tt.want {
			t.Errorf("scoreColour(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestPriorityFixes(t *testing.T) {
	checks := []model.CheckResult{
		{Name: "Performance", Status: model.StatusWarn, Summary: "Moderate performance."},
		{Name: "Meta Tags", Status: model.StatusPass, Summary: "Meta tags look good."},
		{Name: "SSL Certificate", Status: model.StatusFail, Summary: "SSL certificate has expired."},
		{Name: "Robots & Sitemap", Status: model.StatusWarn, Summary: "Sitemap missing."},
	}

	got := priorityFixes(checks)

	want := []fixView{
		{Name: "SSL Certificate", Summary: "SSL certificate has expired.", Marker: "🔴", Colour: "#f87171"},
		{Name: "Performance", Summary: "Moderate performance.", Marker: "🟡", Colour: "#fbbf24"},
		{Name: "Robots & Sitemap", Summary: "Sitemap missing.", Marker: "🟡", Colour: "#fbbf24"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("priorityFixes mismatch (-want +got):\n%s", diff)
	}
}

func TestFirstName(t *testing.T) {
	tests := map[string]string{
		"Ada Lovelace": "Ada",
		"  Grace ":     "Grace",
		"":             "Hi",
	}
	for in, want := range tests {
		if got := firstName(in); got != want {
			t.Errorf("firstName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRenderReport(t *testing.T) {
	html, err := RenderReport("Ada Lovelace", sampleResults(), "https://whoisalfaz.me/")
	if err != nil {
		t.Fatalf("RenderReport: %v", err)
	}

	for _, want := range []string{
		"Ada, here",
		">C</span>",
		"Overall Score: 72/100",
		"April 1, 2026",
		"✅ SSL Certificate",
		"❌ Security Headers",
		"❌ Missing HSTS",
		"Issuer: R11",
		"Priority Fixes",
		`href="https://whoisalfaz.me/contact/"`,
		"border:4px solid #f59e0b",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("report is missing %q", want)
		}
	}

	if fail, warn := strings.Index(html, "🔴"), strings.Index(html, "🟡"); fail < 0 || warn < 0 || fail > warn {
		t.Errorf("failing fixes should be listed before warnings (fail at %d, warn at %d)", fail, warn)
	}
}

func TestRenderReport_AllPassingHasNoFixes(t *testing.T) {
	results := sampleResults()
	for i := range results.Checks {
		results.Checks[i].Status = model.StatusPass
	}
	results.OverallScore = 95
	results.Grade = model.GradeA

	html, err := RenderReport("Ada", results, "https://whoisalfaz.me")
	if err != nil {
		t.Fatalf("RenderReport: %v", err)
	}
	if strings.Contains(html, "Priority Fixes") {
		t.Error("a report with no failing checks should not list priority fixes")
	}
	if !strings.Contains(html, "border:4px solid #22c55e") {
		t.Error("an A grade should use the good colour")
	}
}

func TestRenderReport_EscapesProbeOutput(t *testing.T) {
	results := sampleResults()
	results.Checks[0].Details = []model.Finding{model.Info(`Title: <script>alert("x")</script>`)}

	html, err := RenderReport(`<b>Mallory</b>`, results, "https://whoisalfaz.me")
	if err != nil {
		t.Fatalf("RenderReport: %v", err)
	}
	if strings.Contains(html, "<script>") || strings.Contains(html, "<b>Mallory") {
		t.Error("untrusted text was rendered as markup")
	}
	if !strings.Contains(html, "&lt;script&gt;") {
		t.Error("escaped finding text is missing")
	}
}

func TestRenderAdmin(t *testing.T) {
	html, err := RenderAdmin("Ada Lovelace", "ada@example.com", "https://example.com", sampleResults())
	if err != nil {
		t.Fatalf("RenderAdmin: %v", err)
	}

	for _, want := range []string{
		"Ada Lovelace",
		`href="mailto:ada@example.com"`,
		`href="https://example.com"`,
		"C (72/100)",
		"✅ SSL Certificate: 100/100<br>❌ Security Headers: 15/100<br>⚠️ DNS &amp; Connectivity: 70/100",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("admin notification is missing %q", want)
		}
	}
}
