package model

import (
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"
)

// Severity tags a single finding inside a check's details.
type Severity string

const (
	SeverityInfo Severity = "info"
	SeverityPass Severity = "pass"
	SeverityWarn Severity = "warn"
	SeverityFail Severity = "fail"
)

// Glyphs used on the wire. Info findings carry no prefix.
const (
	glyphPass = "✅"
	glyphWarn = "⚠️"
	glyphFail = "❌"
)

// Finding is one line of evidence produced by a probe.
//
// Consumers should read Severity directly. The JSON and YAML encodings keep the
// historical glyph-prefixed string form so existing renderers keep working.
type Finding struct {
	Severity Severity
	Text     string
}

// Info, Pass, Warn and Fail build findings of the matching severity.
func Info(text string) Finding { return Finding{Severity: SeverityInfo, Text: text} }
func Pass(text string) Finding { return Finding{Severity: SeverityPass, Text: text} }
func Warn(text string) Finding { return Finding{Severity: SeverityWarn, Text: text} }
func Fail(text string) Finding { return Finding{Severity: SeverityFail, Text: text} }

// Glyph returns the display prefix for the finding's severity, or "" for info.
func (f Finding) Glyph() string {
	switch f.Severity {
	case SeverityPass:
		return glyphPass
	case SeverityWarn:
		return glyphWarn
	case SeverityFail:
		return glyphFail
	default:
		return ""
	}
}

// String renders the finding in its wire form.
func (f Finding) String() string {
	if g := f.Glyph(); g != "" {
		return g + " " + f.Text
	}
	return f.Text
}

// ParseFinding recovers a Finding from its wire form.
func ParseFinding(s string) Finding {
	for _, p := range []struct {
		glyph string
		sev   Severity
	}{
		{glyphPass, SeverityPass},
		{glyphWarn, SeverityWarn},
		// Some renderers drop the variation selector.
		{"⚠", SeverityWarn},
		{glyphFail, SeverityFail},
	} {
		if rest, ok := strings.CutPrefix(s, p.glyph); ok {
			return Finding{Severity: p.sev, Text: strings.TrimSpace(rest)}
		}
	}
	return Info(s)
}

func (f Finding) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

func (f *Finding) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = ParseFinding(s)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (f Finding) MarshalYAML() (any, error) {
	return f.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *Finding) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	*f = ParseFinding(s)
	return nil
}
