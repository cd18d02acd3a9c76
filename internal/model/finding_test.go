package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func TestFinding_String(t *testing.T) {
	tests := []struct {
		name    string
		finding Finding
		want    string
	}{
		{name: "pass", finding: Pass("robots.txt exists"), want: "✅ robots.txt exists"},
		{name: "warn", finding: Warn("No canonical URL"), want: "⚠️ No canonical URL"},
		{name: "fail", finding: Fail("Missing <title> tag"), want: "❌ Missing <title> tag"},
		{name: "info has no glyph", finding: Info("SEO: 92/100"), want: "SEO: 92/100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.finding.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseFinding(t *testing.T) {
	tests := []struct {
		in   string
		want Finding
	}{
		{in: "✅ Title set", want: Pass("Title set")},
		{in: "⚠️ Title is short", want: Warn("Title is short")},
		{in: "⚠ bare warning sign", want: Warn("bare warning sign")},
		{in: "❌ Missing HSTS", want: Fail("Missing HSTS")},
		{in: "Issuer: Let's Encrypt", want: Info("Issuer: Let's Encrypt")},
		{in: "", want: Info("")},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ParseFinding(tt.in)); diff != "" {
				t.Errorf("ParseFinding(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestCheckResult_JSONDetailsAreStrings(t *testing.T) {
	check := CheckResult{
		Name:    "Security Headers",
		Status:  StatusWarn,
		Score:   65,
		Summary: "Some security headers are missing.",
		Details: []Finding{Pass("HSTS is set"), Fail("Missing Content-Security-Policy")},
	}

	data, err := json.Marshal(check)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw struct {
		Details []string `json:"details"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	want := []string{"✅ HSTS is set", "❌ Missing Content-Security-Policy"}
	if diff := cmp.Diff(want, raw.Details); diff != "" {
		t.Errorf("wire details mismatch (-want +got):\n%s", diff)
	}

	var back CheckResult
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(check, back); diff != "" {
		t.Errorf("decoded check mismatch (-want +got):\n%s", diff)
	}
}

func TestAuditResults_Counts(t *testing.T) {
	r := &AuditResults{Checks: []CheckResult{
		{Status: StatusPass}, {Status: StatusPass}, {Status: StatusWarn}, {Status: StatusFail},
	}}

	pass, warn, fail := r.Counts()
	if pass != 2 || warn != 1 || fail != 1 {
		t.Errorf("Counts() = (%d, %d, %d), want (2, 1, 1)", pass, warn, fail)
	}
}

func TestFinding_YAMLRoundTrip(t *testing.T) {
	in := []Finding{Info("Issuer: R11"), Warn("No IPv6 (AAAA record)"), Fail("Missing HSTS")}

	out, err := yaml.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(out), "⚠️ No IPv6 (AAAA record)") {
		t.Errorf("YAML should carry the glyph form:\n%s", out)
	}

	var got []Finding
	if err := yaml.Unmarshal(out, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
