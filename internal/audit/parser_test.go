package audit

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseHead(t *testing.T) {
	tests := []struct {
		name string
		html string
		want HeadTags
	}{
		{
			name: "complete head",
			html: `<!DOCTYPE html><html><head>
				<title>  Acme Widgets | Industrial widgets since 1982  </title>
				<meta name="description" content="Acme builds widgets.">
				<meta property="og:title" content="Acme Widgets">
				<meta property="og:description" content="Widgets for everyone">
				<meta property="og:image" content="https://acme.test/og.png">
				<meta name="viewport" content="width=device-width, initial-scale=1">
				<link rel="canonical" href="https://acme.test/">
			</head><body></body></html>`,
			want: HeadTags{
				Title:         "Acme Widgets | Industrial widgets since 1982",
				Description:   "Acme builds widgets.",
				OGTitle:       "Acme Widgets",
				OGDescription: "Widgets for everyone",
				OGImage:       "https://acme.test/og.png",
				Viewport:      "width=device-width, initial-scale=1",
				Canonical:     "https://acme.test/",
			},
		},
		{
			name: "content before name and mixed case",
			html: `<head><META CONTENT="Hello there" NAME="Description"><LINK HREF="/c" REL="Canonical"></head>`,
			want: HeadTags{Description: "Hello there", Canonical: "/c"},
		},
		{
			name: "first occurrence wins",
			html: `<head><title>First</title><title>Second</title>
				<meta name="description" content="one"><meta name="description" content="two"></head>`,
			want: HeadTags{Title: "First", Description: "one"},
		},
		{
			name: "empty content counts as missing",
			html: `<head><meta name="description" content="   "><meta name="description" content="real"></head>`,
			want: HeadTags{Description: "real"},
		},
		{
			name: "implicit head",
			html: `<title>No head tag</title><meta name="viewport" content="width=device-width"><p>text`,
			want: HeadTags{Title: "No head tag", Viewport: "width=device-width"},
		},
		{
			name: "tags after body are ignored",
			html: `<html><body><title>Body title</title><meta name="description" content="late"></body></html>`,
			want: HeadTags{},
		},
		{
			name: "multi-token rel",
			html: `<head><link rel="alternate canonical" href="https://acme.test/a"></head>`,
			want: HeadTags{Canonical: "https://acme.test/a"},
		},
		{
			name: "property alongside an unrelated name",
			html: `<head><meta name="twitter:title" property="og:title" content="Acme"></head>`,
			want: HeadTags{OGTitle: "Acme"},
		},
		{
			name: "name and property both recognised",
			html: `<head><meta name="description" property="og:description" content="Shared"></head>`,
			want: HeadTags{Description: "Shared", OGDescription: "Shared"},
		},
		{
			name: "self-closing meta",
			html: `<head><meta property="og:image" content="/img.png" /></head>`,
			want: HeadTags{OGImage: "/img.png"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHead(strings.NewReader(tt.html))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, *got); diff != "" {
				t.Errorf("ParseHead mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHasToken(t *testing.T) {
	if !hasToken("  Alternate  CANONICAL ", "canonical") {
		t.Error("expected canonical token to be found")
	}
	if hasToken("canonicalx", "canonical") {
		t.Error("substring must not match")
	}
}
