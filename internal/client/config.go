// Package client drives a single long-lived SMTP session: it owns the
// transport, matches replies to in-flight commands in FIFO order, and
// converts transport failures into a failure cascade over every pending
// request.
package client

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// SecurityMode selects the transport bootstrap.
type SecurityMode string

const (
	SecurityPlain SecurityMode = "plain"
	SecurityTLS   SecurityMode = "tls"
)

// ServerConfig locates the SMTP server.
type ServerConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Timeout int    `toml:"timeout"` // connect timeout in seconds
}

// SecurityConfig configures the transport security.
type SecurityConfig struct {
	Mode               SecurityMode `toml:"mode"`
	ServerName         string       `toml:"server_name"` // SNI; defaults to the server host
	InsecureSkipVerify bool         `toml:"insecure_skip_verify"`
}

// Config is the connection configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Security SecurityConfig `toml:"security"`
}

// DefaultConfig returns the default configuration: plain transport to
// 127.0.0.1:25 with a 10 second connect timeout.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 25
	cfg.Server.Timeout = 10
	cfg.Security.Mode = SecurityPlain
	return cfg
}

// configSearchPaths are tried in order when no explicit path is given.
var configSearchPaths = []string{
	"./smtpwire.toml",
	"$HOME/.smtpwire.toml",
	"/etc/smtpwire/smtpwire.toml",
}

// LoadConfig reads a TOML configuration file. With an empty path the search
// paths are tried; if none exists the defaults are returned.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		for _, candidate := range configSearchPaths {
			expanded := os.ExpandEnv(candidate)
			if _, err := os.Stat(expanded); err == nil {
				path = expanded
				break
			}
		}
		if path == "" {
			return DefaultConfig(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	if c.Server.Host == "" {
		return fmt.Errorf("config: server host must not be empty")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server port %d out of range", c.Server.Port)
	}
	if c.Server.Timeout < 0 {
		return fmt.Errorf("config: negative connect timeout")
	}
	switch c.Security.Mode {
	case SecurityPlain, SecurityTLS:
	default:
		return fmt.Errorf("config: unknown security mode %q", c.Security.Mode)
	}
	return nil
}

// Address returns the host:port dial target.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// DialTimeout returns the connect timeout as a duration.
func (c *Config) DialTimeout() time.Duration {
	return time.Duration(c.Server.Timeout) * time.Second
}
