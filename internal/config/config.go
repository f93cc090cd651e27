package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	CoinEx   CoinExConfig   `mapstructure:"coinex"`
	Log      LogConfig      `mapstructure:"log"`
	Trading  TradingConfig  `mapstructure:"trading"`
	Database DatabaseConfig `mapstructure:"database"`
	Sync     SyncConfig     `mapstructure:"sync"`
}

// CoinExConfig contains CoinEx API configuration
type CoinExConfig struct {
	APIKey         string `mapstructure:"api_key"`
	SecretKey      string `mapstructure:"secret_key"`
	APIBaseURL     string `mapstructure:"api_base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Output     string `mapstructure:"output"` // console, file, both
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// TradingConfig contains trading defaults for the CLI
type TradingConfig struct {
	DefaultMarket string  `mapstructure:"default_market"`
	MaxOrderValue float64 `mapstructure:"max_order_value"` // quote currency, 0 disables
}

// DatabaseConfig contains PostgreSQL database configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// AccountConfig represents one account's API credentials
type AccountConfig struct {
	Name      string `mapstructure:"name"`
	APIKey    string `mapstructure:"api_key"`
	SecretKey string `mapstructure:"secret_key"`
	Enabled   bool   `mapstructure:"enabled"`
}

// SyncConfig contains order sync configuration
type SyncConfig struct {
	IntervalSeconds int             `mapstructure:"interval_seconds"`
	PageSize        int             `mapstructure:"page_size"`
	MaxPages        int             `mapstructure:"max_pages"`
	Markets         []string        `mapstructure:"markets"`
	Accounts        []AccountConfig `mapstructure:"accounts"`
}

const placeholder = "your_"

// Load loads configuration from file and environment variables.
// If configPath is empty, it will search in default locations (./configs, .)
func Load(configPath string) (*Config, error) {
	v, err := read(configPath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func read(configPath string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v)

	v.SetEnvPrefix("COINEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		return v, nil
	}

	v.SetConfigName("config")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Config file not found is OK if we have env vars
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("coinex.api_base_url", "https://api.coinex.com")
	v.SetDefault("coinex.timeout_seconds", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output", "console")
	v.SetDefault("log.file", "logs/coinex.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("trading.default_market", "BTCUSDT")
	v.SetDefault("trading.max_order_value", 0)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "coinex_trading")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("sync.interval_seconds", 60)
	v.SetDefault("sync.page_size", 100)
	v.SetDefault("sync.max_pages", 10)
	v.SetDefault("sync.markets", []string{"BTCUSDT"})
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("coinex.api_key", "COINEX_API_KEY")
	v.BindEnv("coinex.secret_key", "COINEX_SECRET_KEY")
	v.BindEnv("coinex.api_base_url", "COINEX_BASE_URL")
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.output", "LOG_OUTPUT")
	v.BindEnv("trading.default_market", "DEFAULT_MARKET")

	v.BindEnv("database.host", "DB_HOST", "POSTGRES_HOST")
	v.BindEnv("database.port", "DB_PORT", "POSTGRES_PORT")
	v.BindEnv("database.user", "DB_USER", "POSTGRES_USER")
	v.BindEnv("database.password", "DB_PASSWORD", "POSTGRES_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME", "POSTGRES_DB")
	v.BindEnv("database.sslmode", "DB_SSLMODE")

	v.BindEnv("sync.interval_seconds", "SYNC_INTERVAL_SECONDS")
	v.BindEnv("sync.page_size", "SYNC_PAGE_SIZE")
}

func validate(cfg *Config) error {
	if isUnset(cfg.CoinEx.APIKey) {
		return fmt.Errorf("COINEX_API_KEY is required (set via environment variable or config file)")
	}
	if isUnset(cfg.CoinEx.SecretKey) {
		return fmt.Errorf("COINEX_SECRET_KEY is required (set via environment variable or config file)")
	}
	if cfg.CoinEx.TimeoutSeconds <= 0 {
		return fmt.Errorf("coinex.timeout_seconds must be greater than 0")
	}

	switch cfg.Log.Output {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid log.output %q: must be console, file or both", cfg.Log.Output)
	}
	return nil
}

// ValidateSync checks the settings only the sync service needs
func (cfg *Config) ValidateSync() error {
	if cfg.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if cfg.Database.DBName == "" {
		return fmt.Errorf("database.dbname is required")
	}
	if cfg.Sync.IntervalSeconds <= 0 {
		return fmt.Errorf("sync.interval_seconds must be greater than 0")
	}
	if cfg.Sync.PageSize <= 0 {
		return fmt.Errorf("sync.page_size must be greater than 0")
	}
	if len(cfg.Sync.Markets) == 0 {
		return fmt.Errorf("sync.markets cannot be empty")
	}
	for i, acc := range cfg.Sync.Accounts {
		if acc.Name == "" {
			return fmt.Errorf("sync.accounts[%d].name is required", i)
		}
		if isUnset(acc.APIKey) {
			return fmt.Errorf("sync.accounts[%d].api_key is required", i)
		}
		if isUnset(acc.SecretKey) {
			return fmt.Errorf("sync.accounts[%d].secret_key is required", i)
		}
	}
	return nil
}

// SyncAccounts returns the configured accounts, falling back to the main
// credentials as a single "default" account.
func (cfg *Config) SyncAccounts() []AccountConfig {
	if len(cfg.Sync.Accounts) > 0 {
		return cfg.Sync.Accounts
	}
	return []AccountConfig{{
		Name:      "default",
		APIKey:    cfg.CoinEx.APIKey,
		SecretKey: cfg.CoinEx.SecretKey,
		Enabled:   true,
	}}
}

func isUnset(s string) bool {
	return s == "" || strings.HasPrefix(s, placeholder)
}
