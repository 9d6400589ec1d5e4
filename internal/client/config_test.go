package client

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 25, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.DialTimeout())
	assert.Equal(t, SecurityPlain, cfg.Security.Mode)
	assert.Equal(t, "127.0.0.1:25", cfg.Address())
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "smtpwire.toml")
	content := `
[server]
host = "relay.example.com"
port = 587
timeout = 30

[security]
mode = "tls"
server_name = "relay.example.com"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "relay.example.com", cfg.Server.Host)
	assert.Equal(t, 587, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.DialTimeout())
	assert.Equal(t, SecurityTLS, cfg.Security.Mode)
	assert.Equal(t, "relay.example.com", cfg.Security.ServerName)
}

func TestLoadConfigPartialKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "smtpwire.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = 2525\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 2525, cfg.Server.Port)
	assert.Equal(t, SecurityPlain, cfg.Security.Mode)
}

func TestLoadConfigMissingExplicitPath(t *testing.T) {
	_, err := LoadConfig("/nonexistent/smtpwire.toml")
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Server.Host = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Security.Mode = "smoke-signals"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Server.Timeout = -1
	assert.Error(t, cfg.Validate())
}

func TestTLSClientConfigSNIDefaultsToHost(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Host = "relay.example.com"
	cfg.Security.Mode = SecurityTLS

	tc := tlsClientConfig(cfg)
	assert.Equal(t, "relay.example.com", tc.ServerName)

	cfg.Security.ServerName = "sni.example.com"
	tc = tlsClientConfig(cfg)
	assert.Equal(t, "sni.example.com", tc.ServerName)
}
