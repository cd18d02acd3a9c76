package audit

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"

	"github.com/whoisalfaz/site-audit/internal/platform/errs"
)

// hostProfile maps hostnames the way browsers look them up, but tolerates
// underscores, which real-world hostnames occasionally carry.
var hostProfile = idna.New(idna.MapForLookup(), idna.StrictDomainName(false), idna.BidiRule())

const invalidURLMessage = "Invalid URL format. Please enter a valid website address (e.g., example.com)."

// NormalizeURL trims raw, prepends https:// when it carries no http(s)
// scheme, and converts internationalized hostnames to their ASCII form.
// Only http and https targets with a host are accepted.
func NormalizeURL(raw string) (*url.URL, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, &errs.AppError{Kind: errs.InvalidInput, Message: "A URL is required."}
	}

	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		if strings.Contains(s, "://") {
			return nil, &errs.AppError{Kind: errs.InvalidInput, Message: "Only http and https URLs are supported."}
		}
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return nil, &errs.AppError{Kind: errs.InvalidInput, Message: invalidURLMessage, Cause: err}
	}
	if u.Hostname() == "" || u.User != nil {
		return nil, &errs.AppError{Kind: errs.InvalidInput, Message: invalidURLMessage}
	}

	host := strings.TrimSuffix(u.Hostname(), ".")
	if net.ParseIP(host) == nil {
		host, err = hostProfile.ToASCII(host)
		if err != nil || host == "" {
			return nil, &errs.AppError{Kind: errs.InvalidInput, Message: invalidURLMessage, Cause: err}
		}
	}
	if port := u.Port(); port != "" {
		host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = host
	u.Fragment = ""
	u.RawFragment = ""
	return u, nil
}

// origin returns scheme://host[:port] of u.
func origin(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}
