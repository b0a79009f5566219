// Package config loads the YAML configuration for the login CLI: the
// identity-provider coordinates, callback settings and ambient options like
// proxying and file logging.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the file leaves a field unset.
const (
	DefaultCallbackPort  = 3000
	DefaultScope         = "openid profile email"
	DefaultLeewaySeconds = 60
)

// Config represents the application's configuration, loaded from a YAML
// file.
type Config struct {
	// Domain is the identity provider domain, e.g. "tenant.example.com".
	Domain string `yaml:"domain" json:"domain"`

	// ClientID identifies the application at the provider.
	ClientID string `yaml:"client-id" json:"client-id"`

	// RedirectURI overrides the callback URI. When empty a loopback URI is
	// derived from CallbackPort.
	RedirectURI string `yaml:"redirect-uri,omitempty" json:"redirect-uri,omitempty"`

	// CallbackPort is the localhost port the capture server listens on.
	CallbackPort int `yaml:"callback-port,omitempty" json:"callback-port,omitempty"`

	// Scope requested during login.
	Scope string `yaml:"scope,omitempty" json:"scope,omitempty"`

	// Audience requested during login, forwarded to the provider untouched.
	Audience string `yaml:"audience,omitempty" json:"audience,omitempty"`

	// Connection pins the login to one upstream connection of the tenant.
	Connection string `yaml:"connection,omitempty" json:"connection,omitempty"`

	// LeewaySeconds is the clock-skew allowance for token verification.
	LeewaySeconds int `yaml:"leeway-seconds,omitempty" json:"leeway-seconds,omitempty"`

	// ProxyURL is the URL of an optional proxy server for outbound requests.
	ProxyURL string `yaml:"proxy-url,omitempty" json:"proxy-url,omitempty"`

	// LoggingToFile switches logging from stdout to a rotating file.
	LoggingToFile bool `yaml:"logging-to-file,omitempty" json:"logging-to-file,omitempty"`

	// LogDir is the directory for rotating log files.
	LogDir string `yaml:"log-dir,omitempty" json:"log-dir,omitempty"`
}

// LoadConfig reads and parses the configuration file, applying defaults for
// unset fields.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.CallbackPort <= 0 {
		c.CallbackPort = DefaultCallbackPort
	}
	if c.Scope == "" {
		c.Scope = DefaultScope
	}
	if c.LeewaySeconds <= 0 {
		c.LeewaySeconds = DefaultLeewaySeconds
	}
}

// Validate checks the fields without which no flow can run.
func (c *Config) Validate() error {
	if c.Domain == "" {
		return fmt.Errorf("config: domain is required")
	}
	if c.ClientID == "" {
		return fmt.Errorf("config: client-id is required")
	}
	return nil
}

// EffectiveRedirectURI returns the configured redirect URI or the loopback
// URI derived from the callback port.
func (c *Config) EffectiveRedirectURI() string {
	if c.RedirectURI != "" {
		return c.RedirectURI
	}
	return fmt.Sprintf("http://localhost:%d/callback", c.CallbackPort)
}
