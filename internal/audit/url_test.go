package audit

import (
	"testing"

	"github.com/whoisalfaz/site-audit/internal/platform/errs"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "no scheme", raw: "example.com", want: "https://example.com"},
		{name: "surrounding whitespace", raw: "  example.com/pricing  ", want: "https://example.com/pricing"},
		{name: "http kept", raw: "http://x.org", want: "http://x.org"},
		{name: "upper case scheme and host", raw: "HTTPS://Example.COM", want: "https://example.com"},
		{name: "fragment dropped", raw: "example.com:8443/a?b=1#top", want: "https://example.com:8443/a?b=1"},
		{name: "idn host", raw: "bücher.de", want: "https://xn--bcher-kva.de"},
		{name: "ipv4 literal", raw: "192.0.2.10", want: "https://192.0.2.10"},
		{name: "ipv6 literal with port", raw: "[2001:db8::1]:8080", want: "https://[2001:db8::1]:8080"},
		{name: "trailing dot", raw: "example.com.", want: "https://example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := NormalizeURL(tt.raw)
			if err != nil {
				t.Fatalf("NormalizeURL(%q) unexpected error: %v", tt.raw, err)
			}
			if got := u.String(); got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeURL_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "blank", raw: "   "},
		{name: "ftp scheme", raw: "ftp://x.org"},
		{name: "no host", raw: "https://"},
		{name: "userinfo", raw: "https://user:pw@example.com"},
		{name: "bad port", raw: "javascript:alert(1)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeURL(tt.raw)
			if err == nil {
				t.Fatalf("NormalizeURL(%q) expected error, got nil", tt.raw)
			}
			if kind := errs.KindOf(err); kind != errs.InvalidInput {
				t.Errorf("kind = %v, want %v", kind, errs.InvalidInput)
			}
		})
	}
}

func TestOrigin(t *testing.T) {
	u, err := NormalizeURL("https://example.com:8443/deep/path?q=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := origin(u); got != "https://example.com:8443" {
		t.Errorf("origin = %q, want %q", got, "https://example.com:8443")
	}
}
