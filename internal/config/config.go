package config

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Defaults applied when the configuration file leaves a knob out.
const (
	DefaultMaxAttempts = 3
	DefaultRDAPBaseURL = "https://rdap.org"
	DefaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// Config holds everything the scan pipeline needs. It is built once by Load
// and passed by reference; there is no ambient global state.
type Config struct {
	// Record store
	DBFile    string `yaml:"db_file"`
	TableName string `yaml:"table_name"`

	// Logging
	LogFile string `yaml:"log_file"`

	// Outbound HTTP identity
	Proxy         string `yaml:"proxy"`
	HTTPUserAgent string `yaml:"http_ua"`
	UAFile        string `yaml:"ua_file"`

	// Alert artifacts. AlertsDir may carry %H %M %d %m %Y time tokens,
	// substituted once at load time.
	AlertsDir string `yaml:"alerts_dir"`

	// Retry budget for unreachable hosts.
	MaxAttempts int `yaml:"max_attempts"`

	// Zero or more notification destination URIs (shoutrrr format).
	Notifications []string `yaml:"notifications"`

	// Enrichment services
	SafeBrowsingAPIKey string `yaml:"safe_browsing_api_key"`
	RDAPBaseURL        string `yaml:"rdap_base_url"`

	// Minimum delay between two probes, e.g. "2s". Empty disables pacing.
	ProbeIntervalRaw string `yaml:"probe_interval"`

	// Derived / runtime fields, not read from the file.
	ProbeInterval time.Duration  `yaml:"-"`
	FQDNDirs      bool           `yaml:"-"`
	Logger        *logrus.Logger `yaml:"-"`
}

// Load reads and validates the YAML configuration file and sets up the
// logger it carries.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	// Defaults
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RDAPBaseURL == "" {
		cfg.RDAPBaseURL = DefaultRDAPBaseURL
	}
	if cfg.HTTPUserAgent == "" {
		cfg.HTTPUserAgent = DefaultUserAgent
	}
	if cfg.ProbeIntervalRaw != "" {
		d, err := time.ParseDuration(cfg.ProbeIntervalRaw)
		if err != nil {
			return nil, fmt.Errorf("parse probe_interval: %w", err)
		}
		cfg.ProbeInterval = d
	}

	cfg.AlertsDir = ExpandTimeTokens(cfg.AlertsDir, time.Now())

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.setupLogger(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the mandatory settings are present.
func (c *Config) Validate() error {
	if c.DBFile == "" {
		return fmt.Errorf("db_file is required")
	}
	if c.TableName == "" {
		return fmt.Errorf("table_name is required")
	}
	if c.AlertsDir == "" {
		return fmt.Errorf("alerts_dir is required")
	}
	if c.Proxy != "" {
		if _, err := url.Parse(c.Proxy); err != nil {
			return fmt.Errorf("invalid proxy url: %w", err)
		}
	}
	return nil
}

// ProxyURL returns the parsed outbound proxy, or nil when none is set.
func (c *Config) ProxyURL() *url.URL {
	if c.Proxy == "" {
		return nil
	}
	u, err := url.Parse(c.Proxy)
	if err != nil {
		return nil
	}
	return u
}

// PrintConfig logs the effective settings at startup.
func (c *Config) PrintConfig() {
	c.Logger.Info("=== Configuration ===")
	c.Logger.Infof("Database: %s (table %s)", c.DBFile, c.TableName)
	c.Logger.Infof("Alerts directory: %s (fqdn-dirs: %v)", c.AlertsDir, c.FQDNDirs)
	c.Logger.Infof("Max attempts: %d", c.MaxAttempts)
	if c.Proxy != "" {
		c.Logger.Infof("Proxy: %s", c.Proxy)
	}
	if c.UAFile != "" {
		c.Logger.Infof("User-Agent file: %s", c.UAFile)
	}
	if len(c.Notifications) > 0 {
		c.Logger.Infof("Notification destinations: %d configured", len(c.Notifications))
	}
	if c.SafeBrowsingAPIKey != "" {
		c.Logger.Info("Safe Browsing: API key configured")
	} else {
		c.Logger.Info("Safe Browsing: no API key")
	}
}

// setupLogger builds the logrus logger carried by the config. When a log
// file is configured it receives a copy of everything written to stdout.
func (c *Config) setupLogger() error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetLevel(logrus.InfoLevel)

	if c.LogFile != "" {
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logger.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	c.Logger = logger
	return nil
}

// ExpandTimeTokens substitutes the %H %M %d %m %Y placeholders of the alert
// base directory with the given instant, once per process start.
func ExpandTimeTokens(path string, now time.Time) string {
	r := strings.NewReplacer(
		"%H", now.Format("15"),
		"%M", now.Format("04"),
		"%d", now.Format("02"),
		"%m", now.Format("01"),
		"%Y", now.Format("2006"),
	)
	return r.Replace(path)
}
