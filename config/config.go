// Package config loads application configuration from a YAML file, the
// environment (AURUMIQ_ prefix) and an optional .env file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Fyers    FyersConfig    `mapstructure:"fyers"`
	Quotes   QuotesConfig   `mapstructure:"quotes"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type FyersConfig struct {
	ClientID    string `mapstructure:"client_id"`
	SecretKey   string `mapstructure:"secret_key"`
	RedirectURI string `mapstructure:"redirect_uri"`
}

type QuotesConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type CacheConfig struct {
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration. A missing config file is fine; defaults and
// environment variables cover every setting. Broker credentials usually
// arrive via .env (FYERS_CLIENT_ID / FYERS_SECRET_KEY are mapped through
// the AURUMIQ_FYERS_* equivalents or the fyers section of the file).
func Load(configPath string) (*Config, error) {
	// Credentials commonly live in a local .env during development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("aurumiq")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/aurumiq")
	}

	v.SetEnvPrefix("AURUMIQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("database.path", "./data/aurumiq.db")
	// Credentials default to empty so the env can supply them even when
	// they appear nowhere in the config file.
	v.SetDefault("fyers.client_id", "")
	v.SetDefault("fyers.secret_key", "")
	v.SetDefault("fyers.redirect_uri", "https://127.0.0.1/fyers-callback")
	v.SetDefault("quotes.poll_interval", 15*time.Second)
	v.SetDefault("cache.path", "./data/cache.json")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Cache.Path == "" {
		return fmt.Errorf("cache.path is required")
	}
	if c.Quotes.PollInterval < time.Second {
		return fmt.Errorf("quotes.poll_interval must be at least 1s")
	}
	return nil
}
