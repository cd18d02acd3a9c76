package main

import (
	"github.com/spf13/cobra"

	"github.com/whoisalfaz/site-audit/internal/audit"
	"github.com/whoisalfaz/site-audit/internal/platform/config"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "siteaudit",
		Short:         "Website audit engine",
		Long:          "siteaudit scores a website on performance, SEO metadata, TLS, security headers, crawl files and DNS.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "optional YAML config file; environment variables take precedence")

	root.AddCommand(newServeCommand(&configPath))
	root.AddCommand(newAuditCommand(&configPath))
	root.AddCommand(newVersionCommand())
	return root
}

// newEngine builds an audit engine wired to the real network collaborators.
func newEngine(cfg config.Config, opts ...audit.Option) *audit.Engine {
	fetcher := audit.NewHTTPClient(cfg.AllowPrivateTargets)
	probes := audit.StandardProbes(audit.Dependencies{
		Fetcher:   fetcher,
		PageSpeed: audit.NewPageSpeedClient(cfg.PageSpeedEndpoint, cfg.PageSpeedAPIKey, cfg.PageSpeedRPS),
		Certs:     audit.NewTLSProber(cfg.AllowPrivateTargets),
		Resolver:  audit.NewDNSResolver(cfg.DNSServers),
	})
	return audit.NewEngine(probes, opts...)
}
