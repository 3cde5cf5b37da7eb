package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                 string        `mapstructure:"port"`
	LogLevel             string        `mapstructure:"log_level"`
	APIBaseURL           string        `mapstructure:"api_base_url"`
	DisplayTimezone      string        `mapstructure:"display_timezone"`
	AutocompleteDebounce time.Duration `mapstructure:"autocomplete_debounce"`
	AutocompleteTimeout  time.Duration `mapstructure:"autocomplete_timeout"`
	SearchTimeout        time.Duration `mapstructure:"search_timeout"`
	APIRateLimitRPS      float64       `mapstructure:"api_rate_limit_rps"`
	APIRateLimitBurst    int           `mapstructure:"api_rate_limit_burst"`
	CacheEnabled         bool          `mapstructure:"cache_enabled"`
	RedisHost            string        `mapstructure:"redis_host"`
	RedisPort            string        `mapstructure:"redis_port"`
	RedisPassword        string        `mapstructure:"redis_password"`
	RedisTTL             time.Duration `mapstructure:"redis_ttl"`
	SessionIdleTTL       time.Duration `mapstructure:"session_idle_ttl"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("api_base_url", "https://sorgulamax.com/api")
	v.SetDefault("display_timezone", "Europe/Istanbul")
	v.SetDefault("autocomplete_debounce", 300*time.Millisecond)
	v.SetDefault("autocomplete_timeout", 5*time.Second)
	v.SetDefault("search_timeout", 10*time.Second)
	v.SetDefault("api_rate_limit_rps", 10.0)
	v.SetDefault("api_rate_limit_burst", 20)
	v.SetDefault("cache_enabled", false)
	v.SetDefault("redis_host", "localhost")
	v.SetDefault("redis_port", "6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_ttl", 5*time.Minute)
	v.SetDefault("session_idle_ttl", 30*time.Minute)
}

// Load reads the configuration from defaults, an optional config file and the
// environment. Environment variables use the upper-cased key (API_BASE_URL).
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("api_base_url is required")
	}
	if c.AutocompleteTimeout <= 0 || c.SearchTimeout <= 0 {
		return fmt.Errorf("request timeouts must be positive")
	}
	if c.APIRateLimitRPS <= 0 || c.APIRateLimitBurst <= 0 {
		return fmt.Errorf("api rate limit must be positive")
	}
	return nil
}

func (c Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}
