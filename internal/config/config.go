package config

import (
	"fmt"
	"time"

	"openaigateway/internal/core"
	"openaigateway/internal/util"

	"github.com/caarlos0/env/v10"
)

// ServerConfig server configuration
type ServerConfig struct {
	Port    string `env:"PORT" envDefault:"8080"`
	GinMode string `env:"GIN_MODE" envDefault:"release"`

	EnableOpenAIAPI bool     `env:"ENABLE_OPENAI_API" envDefault:"true"`
	BaseURLs        []string `env:"OPENAI_API_BASE_URLS" envSeparator:";" envDefault:"https://api.openai.com/v1"`
	APIKeys         []string `env:"OPENAI_API_KEYS" envSeparator:";"`

	ClientAPIKeys []string `env:"CLIENT_API_KEYS" envSeparator:","`
	AdminAPIKeys  []string `env:"ADMIN_API_KEYS" envSeparator:","`
	JWTSecret     string   `env:"JWT_SECRET"`

	EnableModelFilter bool     `env:"ENABLE_MODEL_FILTER" envDefault:"false"`
	ModelFilterList   []string `env:"MODEL_FILTER_LIST" envSeparator:";"`

	ModelConfigPath string `env:"MODEL_CONFIG_PATH"`
	ModelConfigDB   string `env:"MODEL_CONFIG_DB"`

	UpstreamTimeout  time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"5m"`
	ModelListTimeout time.Duration `env:"MODEL_LIST_TIMEOUT" envDefault:"10s"`

	OpenRouterReferer string `env:"OPENROUTER_REFERER" envDefault:"https://openwebui.com/"`
	OpenRouterTitle   string `env:"OPENROUTER_TITLE" envDefault:"Open WebUI"`

	RedisURL        string `env:"REDIS_URL"`
	StatsFile       string `env:"STATS_FILE" envDefault:"stats.json"`
	SettingsFile    string `env:"SETTINGS_FILE" envDefault:"settings.json"`
	CORSAllowOrigin string `env:"CORS_ALLOW_ORIGIN" envDefault:"*"`

	HTTPClientSettings HTTPClientSettings
	Storage            core.StorageInterface
	Logger             core.Logger
}

// HTTPClientSettings HTTP client configuration
type HTTPClientSettings struct {
	MaxIdleConns          int
	MaxIdleConnsPerHost   int
	MaxConnsPerHost       int
	IdleConnTimeout       time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	RequestTimeout        time.Duration
}

// DefaultHTTPClientSettings default HTTP client settings
func DefaultHTTPClientSettings() HTTPClientSettings {
	return HTTPClientSettings{
		MaxIdleConns:          core.HTTPMaxIdleConns,
		MaxIdleConnsPerHost:   core.HTTPMaxIdleConnsPerHost,
		MaxConnsPerHost:       core.HTTPMaxConnsPerHost,
		IdleConnTimeout:       core.HTTPIdleConnTimeout,
		TLSHandshakeTimeout:   core.HTTPTLSHandshakeTimeout,
		ResponseHeaderTimeout: core.HTTPResponseHeaderTimeout,
		RequestTimeout:        core.HTTPRequestTimeout,
	}
}

// LoadServerConfigFromEnv loads server config from environment variables
func LoadServerConfigFromEnv(logger core.Logger) (ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env config: %w", err)
	}

	cfg.BaseURLs = util.NormalizeBaseURLs(cfg.BaseURLs)
	cfg.APIKeys = util.TrimKeys(cfg.APIKeys)
	cfg.ClientAPIKeys = util.CleanList(cfg.ClientAPIKeys)
	cfg.AdminAPIKeys = util.CleanList(cfg.AdminAPIKeys)
	cfg.ModelFilterList = util.CleanList(cfg.ModelFilterList)

	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = core.HTTPRequestTimeout
	}
	if cfg.ModelListTimeout <= 0 {
		cfg.ModelListTimeout = core.DefaultModelListWait
	}

	cfg.HTTPClientSettings = DefaultHTTPClientSettings()
	cfg.HTTPClientSettings.RequestTimeout = cfg.UpstreamTimeout
	// Buffered completions only send headers once generation has finished.
	cfg.HTTPClientSettings.ResponseHeaderTimeout = cfg.UpstreamTimeout

	if len(cfg.BaseURLs) == 0 {
		logger.Warn("OPENAI_API_BASE_URLS is empty, no backends configured")
	} else {
		logger.Info("Loaded %d OpenAI-compatible backends", len(cfg.BaseURLs))
	}
	if len(cfg.APIKeys) != len(cfg.BaseURLs) {
		logger.Warn("OPENAI_API_KEYS has %d entries for %d backends, keys will be padded or truncated",
			len(cfg.APIKeys), len(cfg.BaseURLs))
	}
	if len(cfg.ClientAPIKeys) == 0 && len(cfg.AdminAPIKeys) == 0 && cfg.JWTSecret == "" {
		logger.Warn("No CLIENT_API_KEYS, ADMIN_API_KEYS or JWT_SECRET configured, API requests will be rejected")
	} else {
		logger.Info("Loaded %d client API keys and %d admin API keys", len(cfg.ClientAPIKeys), len(cfg.AdminAPIKeys))
	}

	return cfg, nil
}
