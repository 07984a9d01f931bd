package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Environment string
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	// logging
	LogLevel    string `toml:"log_level"`
	LogsPath    string `toml:"logs_path"`
	LogToStdout bool   `toml:"log_to_stdout"`
	// sentry / tracing
	SentryEnabled  bool   `toml:"sentry_enabled"`
	TracingEnabled bool   `toml:"tracing_enabled"`
	OtlpEndpoint   string `toml:"otlp_endpoint"`
	// prometheus
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`
	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`
	// fitbit provider
	FitbitAuthURL    string `toml:"fitbit_auth_url"`
	FitbitTokenURL   string `toml:"fitbit_token_url"`
	FitbitAPIBaseURL string `toml:"fitbit_api_base_url"`
	RedirectURI      string `toml:"redirect_uri"`
	// token store
	TokenStoreType string `toml:"token_store"` // file | redis
	TokensFilePath string `toml:"tokens_file_path"`
	// rate limiting
	ActivityRangeRateLimitAllowedPerMin int `toml:"activity_range_rate_limit_allowed_per_min"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development", "ddev", "dockerdev":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

func Load(env, path string) (*Config, error) {
	var tomlCfg Toml
	if _, err := toml.DecodeFile(path, &tomlCfg); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}

	cfg, err := tomlCfg.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("config for env %s not present in %s", env, path)
	}

	cfg.Environment = env

	return cfg, nil
}
