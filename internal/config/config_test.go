package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, DefaultHost, cfg.Server.Host)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 600*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
	assert.False(t, cfg.Proxy.Enabled)
	assert.Empty(t, cfg.ProxyURL())
	assert.Equal(t, 16, cfg.Backend.MaxConcurrency)
	assert.Zero(t, cfg.Backend.Timeout)
	assert.False(t, cfg.Usage.Enabled)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "./logs", cfg.Logging.Dir)
	assert.Equal(t, 100, cfg.Logging.MaxSize)
	assert.Equal(t, 5, cfg.Logging.MaxBackups)
	assert.Equal(t, 30, cfg.Logging.MaxAge)
}

func TestLoadLegacyEnv(t *testing.T) {
	t.Setenv("LISTEN", "127.0.0.1")
	t.Setenv("PORT", "9000")
	t.Setenv("USE_PROXY", "true")
	t.Setenv("PROXY_URL", "socks5://127.0.0.1:1080")

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
	assert.True(t, cfg.Proxy.Enabled)
	assert.Equal(t, "socks5://127.0.0.1:1080", cfg.ProxyURL())
}

func TestLoadPrefixedEnvWinsOverLegacy(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("GRADIOGATE_SERVER_PORT", "9100")
	t.Setenv("GRADIOGATE_BACKEND_TIMEOUT", "45s")
	t.Setenv("GRADIOGATE_USAGE_ENABLED", "true")

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 45*time.Second, cfg.Backend.Timeout)
	assert.True(t, cfg.Usage.Enabled)
}

func TestUseProxyFalseIsHonoured(t *testing.T) {
	t.Setenv("USE_PROXY", "false")
	t.Setenv("PROXY_URL", "http://127.0.0.1:8080")

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)
	assert.False(t, cfg.Proxy.Enabled)
	assert.Empty(t, cfg.ProxyURL())
}

func TestLoadFileAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	data := `server:
  port: 8100
backend:
  max_concurrency: 4
  timeout: 2m
logging:
  level: debug
models_file: /etc/models.yaml
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	flags := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	flags.Int("port", DefaultPort, "")
	flags.String("host", DefaultHost, "")
	flags.Bool("verbose", false, "")
	require.NoError(t, flags.Parse([]string{"--port", "8200", "--verbose"}))

	cfg, err := Load(LoadOptions{ConfigFile: path, Flags: flags})
	require.NoError(t, err)

	assert.Equal(t, 8200, cfg.Server.Port)
	assert.Equal(t, DefaultHost, cfg.Server.Host)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, 4, cfg.Backend.MaxConcurrency)
	assert.Equal(t, 2*time.Minute, cfg.Backend.Timeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/etc/models.yaml", cfg.ModelsFile)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(LoadOptions{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load(LoadOptions{})
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, false},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, false},
		{"no workers", func(c *Config) { c.Backend.MaxConcurrency = 0 }, false},
		{"proxy without url", func(c *Config) { c.Proxy.Enabled = true }, false},
		{"proxy bad scheme", func(c *Config) { c.Proxy.Enabled = true; c.Proxy.URL = "ftp://x" }, false},
		{"proxy ok", func(c *Config) { c.Proxy.Enabled = true; c.Proxy.URL = "http://127.0.0.1:3128" }, true},
		{"bad url ignored when disabled", func(c *Config) { c.Proxy.URL = "::" }, true},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, false},
		{"metrics path", func(c *Config) { c.Metrics.Path = "metrics" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
