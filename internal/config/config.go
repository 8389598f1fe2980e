package config

import (
	yamlenv "github.com/ifuryst/go-yaml-env"

	"github.com/inkcast/inkcast/pkg/logger"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Logger    logger.Config   `yaml:"logger"`
	OAuth     OAuthConfig     `yaml:"oauth"`
	Generator GeneratorConfig `yaml:"generator"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	Host     string `yaml:"host"`
	Mode     string `yaml:"mode"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`

	// BaseURL is the public URL used to build OAuth redirect URIs and
	// dashboard redirects. Must match what providers have on file.
	BaseURL string `yaml:"base_url"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	TimeZone string `yaml:"timezone"`
}

// OAuthConfig carries per-provider app credentials. A provider with an empty
// client id simply has its OAuth flow disabled.
type OAuthConfig struct {
	StateSecret string `yaml:"state_secret"`

	WordPress ProviderApp `yaml:"wordpress"`
	Shopify   ProviderApp `yaml:"shopify"`
	Wix       ProviderApp `yaml:"wix"`
}

type ProviderApp struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`

	// TokenURL/AuthorizeURL override the registry defaults, mainly for tests.
	TokenURL     string `yaml:"token_url"`
	AuthorizeURL string `yaml:"authorize_url"`
}

type GeneratorConfig struct {
	AnthropicAPIKey  string `yaml:"anthropic_api_key"`
	AnthropicModel   string `yaml:"anthropic_model"`
	OpenAIAPIKey     string `yaml:"openai_api_key"`
	OpenAIModel      string `yaml:"openai_model"`
	PerplexityAPIKey string `yaml:"perplexity_api_key"`
	UnsplashAPIKey   string `yaml:"unsplash_api_key"`
}

type SchedulerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Spec    string `yaml:"spec"`
}

func LoadConfig(configPath string) (*Config, error) {
	cfg, err := yamlenv.LoadConfig[Config](configPath)
	if err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// ApplyDefaults fills unset fields in place.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5840
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = "http://localhost:5840"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.TimeZone == "" {
		cfg.Database.TimeZone = "UTC"
	}
	if cfg.Generator.AnthropicModel == "" {
		cfg.Generator.AnthropicModel = "claude-sonnet-4-20250514"
	}
	if cfg.Generator.OpenAIModel == "" {
		cfg.Generator.OpenAIModel = "gpt-4o-mini"
	}
	if cfg.Scheduler.Spec == "" {
		cfg.Scheduler.Spec = "* * * * *"
	}
}
