package explorer

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/tfkr-ae/explorer/api"
	"github.com/tfkr-ae/explorer/cache"
	"github.com/tfkr-ae/explorer/history"
)

const (
	// ConfigName is the name of the configuration file inside the config dir, without extension.
	ConfigName = "config"
	// EnvPrefix prefixes environment variables that override the configuration file.
	EnvPrefix = "EXPLORER"
)

// Config is the persisted configuration of the explorer.
type Config struct {
	viper            *viper.Viper
	APIURL           string        `mapstructure:"api_url"`           // Base URL of the remote catalog service
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`   // Upper bound of every remote call
	HistoryLimit     int           `mapstructure:"history_limit"`     // Number of activity records kept locally
	DedupingInterval time.Duration `mapstructure:"deduping_interval"` // How long a fetched resource stays fresh
	LogLevel         string        `mapstructure:"log_level"`         // Minimum level of the file logger
	UserAgent        string        `mapstructure:"user_agent"`        // User-Agent header sent to the remote service
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		APIURL:           api.DefaultBaseURL,
		RequestTimeout:   api.DefaultTimeout,
		HistoryLimit:     history.MaxEntries,
		DedupingInterval: cache.DefaultDedupingInterval,
		LogLevel:         "info",
		UserAgent:        api.DefaultUserAgent,
	}
}

// loadConfig reads config.yaml from dir, creating it with defaults if it does not exist.
// Environment variables such as EXPLORER_API_URL take precedence over the file.
func loadConfig(dir string) (*Config, error) {
	defaults := DefaultConfig()

	v := viper.New()
	v.SetConfigName(ConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("api_url", defaults.APIURL)
	v.SetDefault("request_timeout", defaults.RequestTimeout)
	v.SetDefault("history_limit", defaults.HistoryLimit)
	v.SetDefault("deduping_interval", defaults.DedupingInterval)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("user_agent", defaults.UserAgent)

	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file : %w", err)
		}
		if err := v.SafeWriteConfig(); err != nil {
			return nil, fmt.Errorf("writing config file : %w", err)
		}
	}

	cfg := &Config{viper: v}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config to struct : %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration values.
func (cfg *Config) Validate() error {
	if err := validateAPIURL(cfg.APIURL); err != nil {
		return err
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", cfg.RequestTimeout)
	}
	if cfg.HistoryLimit < 1 {
		return fmt.Errorf("history_limit must be positive, got %d", cfg.HistoryLimit)
	}
	if cfg.DedupingInterval < 0 {
		return fmt.Errorf("deduping_interval cannot be negative, got %s", cfg.DedupingInterval)
	}
	return nil
}

// SetAPIURL changes the base URL of the remote service and saves the configuration.
func (cfg *Config) SetAPIURL(apiURL string) error {
	if err := validateAPIURL(apiURL); err != nil {
		return err
	}
	return cfg.set("api_url", apiURL)
}

// SetHistoryLimit changes the number of activity records kept and saves the configuration.
// It applies from the next start.
func (cfg *Config) SetHistoryLimit(limit int) error {
	if limit < 1 {
		return fmt.Errorf("history_limit must be positive, got %d", limit)
	}
	return cfg.set("history_limit", limit)
}

func (cfg *Config) set(key string, value any) error {
	if cfg.viper == nil {
		return errors.New("config is not backed by a file")
	}

	cfg.viper.Set(key, value)
	if err := cfg.viper.WriteConfig(); err != nil {
		return fmt.Errorf("failed to save configuration : %w", err)
	}
	if err := cfg.viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unmarshalling config to struct : %w", err)
	}
	return nil
}

func validateAPIURL(apiURL string) error {
	parsed, err := url.Parse(apiURL)
	if err != nil {
		return fmt.Errorf("parsing api_url %s : %w", apiURL, err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("api_url %q must be an absolute http or https url", apiURL)
	}
	return nil
}
