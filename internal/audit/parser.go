package audit

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// HeadTags holds the SEO-relevant values found in a document's head. Empty
// strings mean the tag is absent or empty.
type HeadTags struct {
	Title         string
	Description   string
	OGTitle       string
	OGDescription string
	OGImage       string
	Viewport      string
	Canonical     string
}

// ParseHead tokenizes body up to the end of the head section (</head> or the
// first <body> tag) and extracts title, meta and canonical link values. The
// first occurrence of each tag wins.
func ParseHead(body io.Reader) (*HeadTags, error) {
	tags := &HeadTags{}

	z := html.NewTokenizer(body)
	var inTitle bool

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return tags, nil
			}
			return nil, z.Err()

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := z.TagName()
			switch string(tn) {
			case "body":
				return tags, nil
			case "title":
				inTitle = tt == html.StartTagToken
			case "meta":
				if hasAttr {
					tags.applyMeta(readAttrs(z))
				}
			case "link":
				if hasAttr {
					attrs := readAttrs(z)
					if hasToken(attrs["rel"], "canonical") && tags.Canonical == "" {
						tags.Canonical = strings.TrimSpace(attrs["href"])
					}
				}
			}

		case html.TextToken:
			if inTitle {
				if tags.Title == "" {
					tags.Title = strings.TrimSpace(string(z.Text()))
				}
				inTitle = false
			}

		case html.EndTagToken:
			tn, _ := z.TagName()
			switch string(tn) {
			case "head":
				return tags, nil
			case "title":
				inTitle = false
			}
		}
	}
}

func (t *HeadTags) applyMeta(attrs map[string]string) {
	content := strings.TrimSpace(attrs["content"])
	if content == "" {
		return
	}

	for _, attr := range []string{"name", "property"} {
		if dst := t.metaField(strings.ToLower(attrs[attr])); dst != nil && *dst == "" {
			*dst = content
		}
	}
}

// metaField maps a meta name or property to the field it fills.
func (t *HeadTags) metaField(key string) *string {
	switch key {
	case "description":
		return &t.Description
	case "og:title":
		return &t.OGTitle
	case "og:description":
		return &t.OGDescription
	case "og:image":
		return &t.OGImage
	case "viewport":
		return &t.Viewport
	}
	return nil
}

// readAttrs collects the current tag's attributes with lower-cased keys.
func readAttrs(z *html.Tokenizer) map[string]string {
	attrs := make(map[string]string)
	for {
		key, val, more := z.TagAttr()
		k := strings.ToLower(string(key))
		if _, seen := attrs[k]; !seen {
			attrs[k] = string(val)
		}
		if !more {
			return attrs
		}
	}
}

// hasToken reports whether the space-separated list contains token.
func hasToken(list, token string) bool {
	for _, f := range strings.Fields(list) {
		if strings.EqualFold(f, token) {
			return true
		}
	}
	return false
}
