package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
app:
  name: storefront
  http_addr: ":8080"
database:
  driver: memory
security:
  jwt_secret: base_secret
payment:
  success_rate: 0.5
`

func writeConfigs(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return dir
}

func TestLoad_LayersAndDefaults(t *testing.T) {
	dir := writeConfigs(t, map[string]string{
		"base.yaml": baseYAML,
		"dev.yaml":  "app:\n  log_level: debug\npayment:\n  success_rate: 1\n",
	})

	cfg, err := Load(dir, "dev")
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.App.Env)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, 1.0, cfg.Payment.SuccessRate)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 15*time.Minute, cfg.Security.AccessTTL)
	assert.Equal(t, 24*time.Hour, cfg.Idempotency.TTL)
	assert.Equal(t, 12, cfg.Catalog.DefaultPageSize)
	assert.Equal(t, 100, cfg.Catalog.MaxPageSize)
	assert.Equal(t, 10, cfg.Orders.DefaultPageSize)
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := writeConfigs(t, map[string]string{"base.yaml": baseYAML})
	t.Setenv("STOREFRONT_SECURITY__JWT_SECRET", "from_env")
	t.Setenv("STOREFRONT_APP__HTTP_ADDR", ":9090")
	t.Setenv("STOREFRONT_SECURITY__ACCESS_TTL", "5m")

	cfg, err := Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "from_env", cfg.Security.JWTSecret)
	assert.Equal(t, ":9090", cfg.App.HTTPAddr)
	assert.Equal(t, 5*time.Minute, cfg.Security.AccessTTL)
}

func TestLoad_MissingBase(t *testing.T) {
	_, err := Load(t.TempDir(), "dev")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var c Config
		c.App.HTTPAddr = ":8080"
		c.Database.Driver = "memory"
		c.Security.JWTSecret = "s"
		c.applyDefaults()
		return c
	}
	require.NoError(t, valid().Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no addr", func(c *Config) { c.App.HTTPAddr = "" }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = "postgres" }},
		{"no secret", func(c *Config) { c.Security.JWTSecret = "" }},
		{"short prod secret", func(c *Config) { c.App.Env = "prod" }},
		{"success rate above one", func(c *Config) { c.Payment.SuccessRate = 1.5 }},
		{"max page below default", func(c *Config) { c.Catalog.MaxPageSize = 5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	var c Config
	c.Database.Host = "db"
	c.Database.User = "u"
	c.Database.Password = "p"
	c.Database.Name = "shop"
	c.Database.SSLMode = "disable"
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=shop sslmode=disable", c.PostgresDSN())

	c.Database.DSN = "postgres://x"
	assert.Equal(t, "postgres://x", c.PostgresDSN())
}
