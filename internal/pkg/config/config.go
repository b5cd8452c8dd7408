package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultWhopAPIBaseURL   = "https://api.whop.com/api/v2"
	DefaultWhopAuthorizeURL = "https://whop.com/oauth/authorize"
	DefaultWhopTokenURL     = "https://whop.com/oauth/token"

	callbackPath = "/api/auth/callback"
)

type Config struct {
	App     AppConfig
	DB      DBConfig
	Cache   CacheConfig
	Whop    WhopConfig
	Session SessionConfig
	Ops     OpsConfig
	S3      S3Config
}

type AppConfig struct {
	Host         string `env:"APP_HOST" envDefault:"0.0.0.0"`
	Port         int    `env:"APP_PORT" envDefault:"3000" validate:"min=1,max=65535"`
	Env          string `env:"APP_ENV" envDefault:"prod"`
	PublicDomain string `env:"PUBLIC_DOMAIN"`
}

type DBConfig struct {
	Driver   string `env:"DB_DRIVER" envDefault:"mysql" validate:"oneof=mysql postgres"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     int    `env:"DB_PORT" envDefault:"3306" validate:"min=1,max=65535"`
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME" envDefault:"membergate"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

type CacheConfig struct {
	Host     string `env:"CACHE_HOST" envDefault:"localhost"`
	Port     int    `env:"CACHE_PORT" envDefault:"6379" validate:"min=1,max=65535"`
	Password string `env:"CACHE_PASSWORD"`
}

type WhopConfig struct {
	APIKey        string `env:"WHOP_API_KEY"`
	ClientID      string `env:"WHOP_CLIENT_ID"`
	ClientSecret  string `env:"WHOP_CLIENT_SECRET"`
	RedirectURI   string `env:"WHOP_REDIRECT_URI"`
	WebhookSecret string `env:"WHOP_WEBHOOK_SECRET"`
	APIBaseURL    string `env:"WHOP_API_BASE_URL" envDefault:"https://api.whop.com/api/v2" validate:"url"`
	AuthorizeURL  string `env:"WHOP_AUTHORIZE_URL" envDefault:"https://whop.com/oauth/authorize" validate:"url"`
	TokenURL      string `env:"WHOP_TOKEN_URL" envDefault:"https://whop.com/oauth/token" validate:"url"`
}

type SessionConfig struct {
	Secret string `env:"SESSION_SECRET,required" validate:"required"`
}

type OpsConfig struct {
	OperatorAPIKey  string `env:"OPERATOR_API_KEY"`
	MetricsUser     string `env:"METRICS_USER"`
	MetricsPassword string `env:"METRICS_PASSWORD"`
}

type S3Config struct {
	AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	Region          string `env:"S3_REGION" envDefault:"us-east-1"`
	Bucket          string `env:"S3_BUCKET_NAME"`
	EndpointURL     string `env:"S3_ENDPOINT_URL"`
}

// Load parses and validates the configuration from the given environment map.
func Load(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Whop.RedirectURI == "" {
		cfg.Whop.RedirectURI = cfg.defaultRedirectURI()
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) defaultRedirectURI() string {
	domain := strings.TrimRight(c.App.PublicDomain, "/")
	if domain == "" {
		return fmt.Sprintf("http://localhost:%d%s", c.App.Port, callbackPath)
	}
	if !strings.HasPrefix(domain, "http://") && !strings.HasPrefix(domain, "https://") {
		domain = "https://" + domain
	}
	return domain + callbackPath
}

// PublicOrigin is the scheme and host the browser uses, taken from the OAuth redirect URI.
func (c *Config) PublicOrigin() string {
	u, err := url.Parse(c.Whop.RedirectURI)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func (c *Config) IsDev() bool {
	return c.App.Env == "dev"
}

func (a AppConfig) Addr() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

func (c CacheConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// MetricsEnabled reports whether the monitor endpoint has credentials configured.
func (o OpsConfig) MetricsEnabled() bool {
	return o.MetricsUser != "" && o.MetricsPassword != ""
}

func (s S3Config) Enabled() bool {
	return s.Bucket != "" && s.AccessKeyID != "" && s.SecretAccessKey != ""
}
