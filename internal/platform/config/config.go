package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

var (
	errInvalidPort         = errors.New("config: invalid PORT number")
	errWorkersOutOfRange   = errors.New("config: NOTIFY_WORKERS must be 1-64")
	errPageSpeedRate       = errors.New("config: PAGESPEED_RPS must be greater than 0 and at most 50")
	errAuditRate           = errors.New("config: AUDIT_RATE_PER_MINUTE must be 1-6000")
	errInvalidURL          = errors.New("config: invalid URL")
	errInvalidDNSServer    = errors.New("config: DNS_SERVERS entries must be host:port")
	errInvalidConfigFile   = errors.New("config: cannot read config file")
	errOutboxPathRequired  = errors.New("config: OUTBOX_PATH is required")
	errListIDOutOfRange    = errors.New("config: BREVO_LIST_ID must be positive")
	errLogRotationNegative = errors.New("config: log rotation values must not be negative")
)

const defaultPageSpeedEndpoint = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"

// Config holds all application configuration. Values come from environment
// variables, optionally layered over a YAML file.
type Config struct {
	Port     string
	LogLevel string
	Log      LogFile

	PageSpeedAPIKey   string
	PageSpeedEndpoint string
	PageSpeedRPS      float64

	AuditRatePerMinute  int
	AllowPrivateTargets bool
	DNSServers          []string

	Brevo       Brevo
	SiteBaseURL string

	OutboxPath    string
	NotifyWorkers int
}

// LogFile configures the optional rotating log file.
type LogFile struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Brevo configures the email and contacts provider.
type Brevo struct {
	APIKey      string
	Endpoint    string
	SenderEmail string
	AdminEmail  string
	ListID      int
}

// Load reads configuration from the environment and, when path is not empty,
// from the YAML file at path. Environment variables win over file values.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("%w %q: %w", errInvalidConfigFile, path, err)
		}
	}

	cfg := Config{
		Port:     v.GetString("port"),
		LogLevel: v.GetString("log_level"),
		Log: LogFile{
			Path:       v.GetString("log_file"),
			MaxSizeMB:  v.GetInt("log_max_size_mb"),
			MaxBackups: v.GetInt("log_max_backups"),
			MaxAgeDays: v.GetInt("log_max_age_days"),
		},
		PageSpeedAPIKey:     v.GetString("pagespeed_api_key"),
		PageSpeedEndpoint:   v.GetString("pagespeed_endpoint"),
		PageSpeedRPS:        v.GetFloat64("pagespeed_rps"),
		AuditRatePerMinute:  v.GetInt("audit_rate_per_minute"),
		AllowPrivateTargets: v.GetBool("allow_private_targets"),
		DNSServers:          stringList(v.Get("dns_servers")),
		Brevo: Brevo{
			APIKey:      v.GetString("brevo_api_key"),
			Endpoint:    v.GetString("brevo_endpoint"),
			SenderEmail: v.GetString("brevo_sender_email"),
			AdminEmail:  v.GetString("brevo_admin_email"),
			ListID:      v.GetInt("brevo_list_id"),
		},
		SiteBaseURL:   strings.TrimRight(v.GetString("site_base_url"), "/"),
		OutboxPath:    v.GetString("outbox_path"),
		NotifyWorkers: v.GetInt("notify_workers"),
	}

	return cfg, cfg.validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "ERROR")
	v.SetDefault("log_file", "")
	v.SetDefault("log_max_size_mb", 100)
	v.SetDefault("log_max_backups", 3)
	v.SetDefault("log_max_age_days", 28)
	v.SetDefault("pagespeed_api_key", "")
	v.SetDefault("pagespeed_endpoint", defaultPageSpeedEndpoint)
	v.SetDefault("pagespeed_rps", 1.0)
	v.SetDefault("audit_rate_per_minute", 10)
	v.SetDefault("allow_private_targets", false)
	v.SetDefault("dns_servers", "")
	v.SetDefault("brevo_api_key", "")
	v.SetDefault("brevo_endpoint", "https://api.brevo.com/v3")
	v.SetDefault("brevo_sender_email", "noreply@whoisalfaz.me")
	v.SetDefault("brevo_admin_email", "")
	v.SetDefault("brevo_list_id", 9)
	v.SetDefault("site_base_url", "https://whoisalfaz.me")
	v.SetDefault("outbox_path", "audit-outbox.db")
	v.SetDefault("notify_workers", 4)
}

func (c Config) validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("%w: %q", errInvalidPort, c.Port)
	}

	if c.NotifyWorkers < 1 || c.NotifyWorkers > 64 {
		return fmt.Errorf("%w: got %d", errWorkersOutOfRange, c.NotifyWorkers)
	}

	if c.PageSpeedRPS <= 0 || c.PageSpeedRPS > 50 {
		return fmt.Errorf("%w: got %v", errPageSpeedRate, c.PageSpeedRPS)
	}

	if c.AuditRatePerMinute < 1 || c.AuditRatePerMinute > 6000 {
		return fmt.Errorf("%w: got %d", errAuditRate, c.AuditRatePerMinute)
	}

	if c.Brevo.ListID < 1 {
		return fmt.Errorf("%w: got %d", errListIDOutOfRange, c.Brevo.ListID)
	}

	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return errLogRotationNegative
	}

	if c.OutboxPath == "" {
		return errOutboxPathRequired
	}

	for _, raw := range []string{c.PageSpeedEndpoint, c.Brevo.Endpoint, c.SiteBaseURL} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %q", errInvalidURL, raw)
		}
	}

	for _, server := range c.DNSServers {
		if _, port, err := net.SplitHostPort(server); err != nil || port == "" {
			return fmt.Errorf("%w: %q", errInvalidDNSServer, server)
		}
	}

	return nil
}

// stringList accepts either a comma-separated string (environment) or a YAML
// sequence.
func stringList(raw any) []string {
	var parts []string
	switch val := raw.(type) {
	case string:
		parts = strings.Split(val, ",")
	case []string:
		parts = val
	case []any:
		for _, p := range val {
			parts = append(parts, fmt.Sprint(p))
		}
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
