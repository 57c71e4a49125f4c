package confs

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "PROJECTORS"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Lifecycle LifecycleConfig `mapstructure:"lifecycle"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "memory".
	Driver          string        `mapstructure:"driver"`
	URL             string        `mapstructure:"url"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
}

type AuthConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	JWTSecretEnv string        `mapstructure:"jwt_secret_env"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
	Issuer       string        `mapstructure:"issuer"`

	// Operator created at startup when no account with this email exists.
	BootstrapEmail    string `mapstructure:"bootstrap_email"`
	BootstrapPassword string `mapstructure:"bootstrap_password"`
}

// LifecycleConfig names the catalog actions the lifecycle engine treats specially.
type LifecycleConfig struct {
	TurnOn        string `mapstructure:"turn_on"`
	TurnOff       string `mapstructure:"turn_off"`
	LampOn        string `mapstructure:"lamp_on"`
	LampOff       string `mapstructure:"lamp_off"`
	Ack           string `mapstructure:"ack"`
	Err           string `mapstructure:"err"`
	StatusInquiry string `mapstructure:"status_inquiry"`
}

type CatalogConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

const devJWTSecret = "dev-secret-change-in-production-min-32-chars"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "projectors")
	v.SetDefault("database.sslmode", "")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.conn_max_lifetime", "0s")
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.jwt_secret_env", "JWT_SECRET")
	v.SetDefault("auth.token_ttl", "12h")
	v.SetDefault("auth.issuer", "projector-server")
	v.SetDefault("auth.bootstrap_email", "")
	v.SetDefault("auth.bootstrap_password", "")

	v.SetDefault("lifecycle.turn_on", "TURN_ON")
	v.SetDefault("lifecycle.turn_off", "TURN_OFF")
	v.SetDefault("lifecycle.lamp_on", "LAMP_ON")
	v.SetDefault("lifecycle.lamp_off", "LAMP_OFF")
	v.SetDefault("lifecycle.ack", "ACK")
	v.SetDefault("lifecycle.err", "ERR")
	v.SetDefault("lifecycle.status_inquiry", "STATUS_INQUIRY")

	v.SetDefault("catalog.cache_ttl", "5m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads .env (when present), then the optional YAML file at path, then
// PROJECTORS_* environment variables such as PROJECTORS_DATABASE_DRIVER.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: could not load .env: %v", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.URL == "" && (c.Database.Host == "" || c.Database.User == "" || c.Database.Name == "") {
			return fmt.Errorf("missing required database configuration: database.url or (database.host, database.user, database.name)")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	l := c.Lifecycle
	for key, val := range map[string]string{
		"turn_on": l.TurnOn, "turn_off": l.TurnOff, "lamp_on": l.LampOn, "lamp_off": l.LampOff,
		"ack": l.Ack, "err": l.Err, "status_inquiry": l.StatusInquiry,
	} {
		if strings.TrimSpace(val) == "" {
			return fmt.Errorf("lifecycle.%s must not be empty", key)
		}
	}
	return nil
}

// DSN builds the postgres connection string. A URL without sslmode gets
// sslmode=require; discrete parameters default to sslmode=disable on
// loopback hosts and require elsewhere.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		dsn := c.URL
		if !strings.Contains(dsn, "sslmode=") {
			mode := c.SSLMode
			if mode == "" {
				mode = "require"
			}
			if strings.Contains(dsn, "?") {
				dsn += "&sslmode=" + mode
			} else {
				dsn += "?sslmode=" + mode
			}
		}
		return dsn
	}

	mode := c.SSLMode
	if mode == "" {
		mode = "require"
		if c.Host == "localhost" || c.Host == "127.0.0.1" {
			mode = "disable"
		}
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
		c.Host, c.User, c.Password, c.Name, c.Port, mode)
}

// Redacted returns the DSN target without credentials, for logging.
func (c *DatabaseConfig) Redacted() string {
	if c.URL != "" {
		u, err := url.Parse(c.URL)
		if err != nil {
			return "<unparseable url>"
		}
		return u.Host + u.Path
	}
	return fmt.Sprintf("%s:%d/%s", c.Host, c.Port, c.Name)
}

// JWTSecret reads the signing secret from the configured environment variable.
// An unset variable yields a development secret.
func (a *AuthConfig) JWTSecret() string {
	envVar := a.JWTSecretEnv
	if envVar == "" {
		envVar = "JWT_SECRET"
	}
	if secret := os.Getenv(envVar); secret != "" {
		return secret
	}
	return devJWTSecret
}

func (a *AuthConfig) IsProductionReady() bool {
	secret := a.JWTSecret()
	return secret != devJWTSecret && len(secret) >= 32
}
