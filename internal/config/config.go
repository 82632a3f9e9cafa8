package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "STOREFRONT_"

// Config is the whole application configuration.
type Config struct {
	App struct {
		Name     string `koanf:"name"`
		Env      string `koanf:"env"` // dev/prod
		HTTPAddr string `koanf:"http_addr"`
		LogLevel string `koanf:"log_level"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout     time.Duration `koanf:"read_timeout"`
		WriteTimeout    time.Duration `koanf:"write_timeout"`
		IdleTimeout     time.Duration `koanf:"idle_timeout"`
		ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
		LogBodies       bool          `koanf:"log_bodies"`
	} `koanf:"http"`

	Database struct {
		Driver          string        `koanf:"driver"` // postgres | memory
		DSN             string        `koanf:"dsn"`
		Host            string        `koanf:"host"`
		Port            int           `koanf:"port"`
		User            string        `koanf:"user"`
		Password        string        `koanf:"password"`
		Name            string        `koanf:"name"`
		SSLMode         string        `koanf:"sslmode"`
		MaxOpenConns    int           `koanf:"max_open_conns"`
		MaxIdleConns    int           `koanf:"max_idle_conns"`
		ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
		AutoMigrate     bool          `koanf:"auto_migrate"`
	} `koanf:"database"`

	Redis struct {
		Addr     string `koanf:"addr"` // empty disables the idempotency store
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`

	Idempotency struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"idempotency"`

	Security struct {
		JWTSecret  string        `koanf:"jwt_secret"`
		AccessTTL  time.Duration `koanf:"access_ttl"`
		BcryptCost int           `koanf:"bcrypt_cost"`
	} `koanf:"security"`

	Payment struct {
		SuccessRate float64 `koanf:"success_rate"`
	} `koanf:"payment"`

	Catalog struct {
		DefaultPageSize int `koanf:"default_page_size"`
		MaxPageSize     int `koanf:"max_page_size"`
	} `koanf:"catalog"`

	Orders struct {
		DefaultPageSize int `koanf:"default_page_size"`
	} `koanf:"orders"`
}

// Load reads configs/base.yaml, then configs/<env>.yaml, then STOREFRONT_* env vars.
// e.g. STOREFRONT_DATABASE__DSN, STOREFRONT_SECURITY__JWT_SECRET
func Load(pathDir, envName string) (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	if envName != "" {
		_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if cfg.App.Env == "" {
		cfg.App.Env = envName
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ReplaceAll(s, "__", ".")
	return strings.ToLower(s)
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Security.AccessTTL <= 0 {
		c.Security.AccessTTL = 15 * time.Minute
	}
	if c.Security.BcryptCost == 0 {
		c.Security.BcryptCost = 12
	}
	if c.Idempotency.TTL <= 0 {
		c.Idempotency.TTL = 24 * time.Hour
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.Catalog.DefaultPageSize == 0 {
		c.Catalog.DefaultPageSize = 12
	}
	if c.Catalog.MaxPageSize == 0 {
		c.Catalog.MaxPageSize = 100
	}
	if c.Orders.DefaultPageSize == 0 {
		c.Orders.DefaultPageSize = 10
	}
}

// Validate checks required values.
func (c Config) Validate() error {
	if c.App.HTTPAddr == "" {
		return fmt.Errorf("app.http_addr required")
	}

	switch c.Database.Driver {
	case "memory":
	case "postgres":
		if c.Database.DSN == "" && (c.Database.Host == "" || c.Database.User == "" || c.Database.Name == "") {
			return fmt.Errorf("database.dsn or database.host/user/name required")
		}
	default:
		return fmt.Errorf("database.driver must be postgres or memory, got %q", c.Database.Driver)
	}

	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret required")
	}
	if c.App.Env == "prod" && len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("security.jwt_secret must be at least 32 bytes in prod")
	}

	if c.Payment.SuccessRate < 0 || c.Payment.SuccessRate > 1 {
		return fmt.Errorf("payment.success_rate must be within [0,1]")
	}
	if c.Catalog.DefaultPageSize < 1 || c.Catalog.MaxPageSize < c.Catalog.DefaultPageSize {
		return fmt.Errorf("catalog page sizes are invalid")
	}
	if c.Orders.DefaultPageSize < 1 {
		return fmt.Errorf("orders.default_page_size must be positive")
	}
	return nil
}

// PostgresDSN builds a DSN from the discrete fields when database.dsn is empty.
func (c Config) PostgresDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	port := c.Database.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, port, c.Database.User, c.Database.Password, c.Database.Name, c.Database.SSLMode,
	)
}
