package audit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	mdns "github.com/miekg/dns"
)

// Resolver looks up a hostname's addresses.
type Resolver interface {
	LookupA(ctx context.Context, host string) ([]net.IP, error)
	LookupAAAA(ctx context.Context, host string) ([]net.IP, error)
}

const (
	dnsExchangeTimeout = 2 * time.Second
	ednsBufferSize     = 1232
)

var (
	errNoRecords  = errors.New("no records found")
	errNilMessage = errors.New("nil DNS response")
)

// fallbackNameservers are used when neither configuration nor resolv.conf
// name a server.
var fallbackNameservers = []string{"1.1.1.1:53", "8.8.8.8:53", "9.9.9.9:53"}

// DNSResolver queries nameservers directly so that lookup latency can be
// measured without the host's cache in the way. Servers are tried in order
// until one answers.
type DNSResolver struct {
	servers []string
	udp     *mdns.Client
	tcp     *mdns.Client
}

// NewDNSResolver returns a DNSResolver for servers ("host" or "host:port").
// An empty list falls back to /etc/resolv.conf and then to public resolvers.
func NewDNSResolver(servers []string) *DNSResolver {
	if len(servers) == 0 {
		servers = systemNameservers()
	}
	normalized := make([]string, 0, len(servers))
	for _, s := range servers {
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(s, "53")
		}
		normalized = append(normalized, s)
	}

	return &DNSResolver{
		servers: normalized,
		udp:     &mdns.Client{Net: "udp", Timeout: dnsExchangeTimeout, UDPSize: ednsBufferSize},
		tcp:     &mdns.Client{Net: "tcp", Timeout: dnsExchangeTimeout},
	}
}

func systemNameservers() []string {
	cfg, err := mdns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(cfg.Servers) == 0 {
		return fallbackNameservers
	}
	servers := make([]string, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		servers = append(servers, net.JoinHostPort(s, cfg.Port))
	}
	return servers
}

func (r *DNSResolver) LookupA(ctx context.Context, host string) ([]net.IP, error) {
	return r.lookup(ctx, host, mdns.TypeA)
}

func (r *DNSResolver) LookupAAAA(ctx context.Context, host string) ([]net.IP, error) {
	return r.lookup(ctx, host, mdns.TypeAAAA)
}

func (r *DNSResolver) lookup(ctx context.Context, host string, qtype uint16) ([]net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		if (qtype == mdns.TypeA) == (ip.To4() != nil) {
			return []net.IP{ip}, nil
		}
		return nil, errNoRecords
	}

	msg := new(mdns.Msg)
	msg.SetQuestion(mdns.Fqdn(host), qtype)
	msg.RecursionDesired = true
	msg.SetEdns0(ednsBufferSize, false)

	var lastErr error
	for _, server := range r.servers {
		ips, err := r.exchange(ctx, msg, server, qtype)
		if err == nil {
			return ips, nil
		}
		lastErr = err
		// Authoritative negative answers are final.
		if errors.Is(err, errNoRecords) || ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("lookup %s %s: %w", mdns.TypeToString[qtype], host, lastErr)
}

func (r *DNSResolver) exchange(ctx context.Context, msg *mdns.Msg, server string, qtype uint16) ([]net.IP, error) {
	resp, _, err := r.udp.ExchangeContext(ctx, msg, server)
	if err == nil && resp != nil && resp.Truncated {
		resp, _, err = r.tcp.ExchangeContext(ctx, msg, server)
	}
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errNilMessage
	}

	switch resp.Rcode {
	case mdns.RcodeSuccess:
	case mdns.RcodeNameError:
		return nil, fmt.Errorf("%w: %s", errNoRecords, mdns.RcodeToString[resp.Rcode])
	default:
		return nil, fmt.Errorf("DNS error: %s", mdns.RcodeToString[resp.Rcode])
	}

	var ips []net.IP
	for _, rr := range resp.Answer {
		switch rr := rr.(type) {
		case *mdns.A:
			if qtype == mdns.TypeA {
				ips = append(ips, rr.A)
			}
		case *mdns.AAAA:
			if qtype == mdns.TypeAAAA {
				ips = append(ips, rr.AAAA)
			}
		}
	}
	if len(ips) == 0 {
		return nil, errNoRecords
	}
	return ips, nil
}
