// Package config loads the service configuration from defaults, an optional
// YAML file, a .env file and ACCOUNTS_ prefixed environment variables.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/notifier"
)

const EnvPrefix = "ACCOUNTS"

const (
	PersistenceSQLite   = "sqlite"
	PersistencePostgres = "postgres"
	PersistenceMongo    = "mongo"
	PersistenceMemory   = "memory"

	RefreshStoreDB    = "db"
	RefreshStoreRedis = "redis"
)

type Config struct {
	App          AppConfig          `mapstructure:"app"`
	HTTP         HTTPConfig         `mapstructure:"http"`
	Tokens       TokensConfig       `mapstructure:"tokens"`
	Persistence  PersistenceConfig  `mapstructure:"persistence"`
	RefreshStore RefreshStoreConfig `mapstructure:"refresh_store"`
	Mail         notifier.Config    `mapstructure:"mail"`
	Queue        QueueConfig        `mapstructure:"queue"`
	Cookies      CookiesConfig      `mapstructure:"cookies"`
}

type AppConfig struct {
	Name      string `mapstructure:"name"`
	Env       string `mapstructure:"env"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type TokensConfig struct {
	AccessSecret  string        `mapstructure:"access_secret"`
	RefreshSecret string        `mapstructure:"refresh_secret"`
	Issuer        string        `mapstructure:"issuer"`
	AccessTTL     time.Duration `mapstructure:"access_ttl"`
	RefreshTTL    time.Duration `mapstructure:"refresh_ttl"`
}

type PersistenceConfig struct {
	Driver        string `mapstructure:"driver"`
	DSN           string `mapstructure:"dsn"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`
	Debug         bool   `mapstructure:"debug"`
}

type RefreshStoreConfig struct {
	Driver        string        `mapstructure:"driver"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	RedisPrefix   string        `mapstructure:"redis_prefix"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type QueueConfig struct {
	Workers     int           `mapstructure:"workers"`
	Size        int           `mapstructure:"size"`
	TaskTimeout time.Duration `mapstructure:"task_timeout"`
}

type CookiesConfig struct {
	Secure   bool   `mapstructure:"secure"`
	SameSite string `mapstructure:"same_site"`
	Domain   string `mapstructure:"domain"`
}

// Load reads the configuration. An empty path or a missing file leaves the
// defaults and environment in place. envFiles default to ".env".
func Load(path string, envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles...); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "read config")
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "stat config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	present := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}

	if err := godotenv.Load(present...); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "load env file")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "accounts")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	v.SetDefault("http.addr", ":3000")
	v.SetDefault("http.read_timeout", "5s")
	v.SetDefault("http.write_timeout", "10s")
	v.SetDefault("http.shutdown_timeout", "10s")

	v.SetDefault("tokens.access_secret", "")
	v.SetDefault("tokens.refresh_secret", "")
	v.SetDefault("tokens.issuer", "go-accounts")
	v.SetDefault("tokens.access_ttl", accounts.AccessTokenTTL.String())
	v.SetDefault("tokens.refresh_ttl", accounts.RefreshTokenTTL.String())

	v.SetDefault("persistence.driver", PersistenceSQLite)
	v.SetDefault("persistence.dsn", "file:accounts.db?cache=shared")
	v.SetDefault("persistence.mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("persistence.mongo_database", "accounts")
	v.SetDefault("persistence.debug", false)

	v.SetDefault("refresh_store.driver", RefreshStoreDB)
	v.SetDefault("refresh_store.redis_addr", "localhost:6379")
	v.SetDefault("refresh_store.redis_password", "")
	v.SetDefault("refresh_store.redis_db", 0)
	v.SetDefault("refresh_store.redis_prefix", "accounts:")
	v.SetDefault("refresh_store.sweep_interval", "1h")

	v.SetDefault("mail.driver", notifier.DriverLog)
	v.SetDefault("mail.from", "noreply@localhost")
	v.SetDefault("mail.from_name", "Accounts")
	v.SetDefault("mail.smtp_host", "")
	v.SetDefault("mail.smtp_port", 587)
	v.SetDefault("mail.smtp_user", "")
	v.SetDefault("mail.smtp_password", "")
	v.SetDefault("mail.sendgrid_api_key", "")
	v.SetDefault("mail.resend_api_key", "")

	v.SetDefault("queue.workers", 2)
	v.SetDefault("queue.size", 100)
	v.SetDefault("queue.task_timeout", "30s")

	v.SetDefault("cookies.secure", false)
	v.SetDefault("cookies.same_site", "Strict")
	v.SetDefault("cookies.domain", "")
}

// Validate rejects empty secrets and unknown drivers
func (c *Config) Validate() error {
	if c.Tokens.AccessSecret == "" || c.Tokens.RefreshSecret == "" {
		return invalid("tokens.access_secret and tokens.refresh_secret are required")
	}
	if c.Tokens.AccessTTL <= 0 || c.Tokens.RefreshTTL <= 0 {
		return invalid("tokens.access_ttl and tokens.refresh_ttl must be positive")
	}

	switch c.Persistence.Driver {
	case PersistenceSQLite, PersistencePostgres:
		if c.Persistence.DSN == "" {
			return invalid("persistence.dsn is required for " + c.Persistence.Driver)
		}
	case PersistenceMongo:
		if c.Persistence.MongoURI == "" || c.Persistence.MongoDatabase == "" {
			return invalid("persistence.mongo_uri and persistence.mongo_database are required")
		}
	case PersistenceMemory:
	default:
		return invalid("unknown persistence driver: " + c.Persistence.Driver)
	}

	switch c.RefreshStore.Driver {
	case RefreshStoreDB:
	case RefreshStoreRedis:
		if c.RefreshStore.RedisAddr == "" {
			return invalid("refresh_store.redis_addr is required")
		}
	default:
		return invalid("unknown refresh store driver: " + c.RefreshStore.Driver)
	}

	if err := c.Mail.Validate(); err != nil {
		return err
	}

	if c.Queue.Workers <= 0 || c.Queue.Size <= 0 {
		return invalid("queue.workers and queue.size must be positive")
	}

	switch strings.ToLower(c.Cookies.SameSite) {
	case "strict", "lax", "none":
	default:
		return invalid("cookies.same_site must be one of Strict, Lax, None")
	}

	return nil
}

// Redacted returns a copy safe to print
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "****"
	}

	c.Tokens.AccessSecret = mask(c.Tokens.AccessSecret)
	c.Tokens.RefreshSecret = mask(c.Tokens.RefreshSecret)
	c.RefreshStore.RedisPassword = mask(c.RefreshStore.RedisPassword)
	c.Mail.SMTPPassword = mask(c.Mail.SMTPPassword)
	c.Mail.SendGridAPIKey = mask(c.Mail.SendGridAPIKey)
	c.Mail.ResendAPIKey = mask(c.Mail.ResendAPIKey)
	return c
}

func invalid(msg string) error {
	return goerrors.New(msg, goerrors.CategoryValidation).WithTextCode("INVALID_CONFIG")
}
