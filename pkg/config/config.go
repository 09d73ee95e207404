package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	GatewayPhonePe  = "phonepe"
	GatewayCashfree = "cashfree"

	GatewayModeSandbox    = "sandbox"
	GatewayModeProduction = "production"
)

// Env var names referenced by tests and tooling.
const (
	EnvAppEnv         = "STOREFRONT_APP_ENV"
	EnvPort           = "STOREFRONT_APP_PORT"
	EnvRedisURL       = "STOREFRONT_REDIS_URL"
	EnvBackendBaseURL = "STOREFRONT_BACKEND_BASE_URL"
	EnvFrontendURL    = "STOREFRONT_FRONTEND_URL"
	EnvRateAPIToken   = "STOREFRONT_RATE_API_ACCESS_TOKEN"
	EnvRateAPISecret  = "STOREFRONT_RATE_API_SECRET_KEY"
	EnvOriginPincode  = "STOREFRONT_RATE_ORIGIN_PINCODE"
)

type Config struct {
	App     AppConfig
	Redis   RedisConfig
	Backend BackendConfig
	RateAPI RateAPIConfig
	Gateway GatewayConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Gateway.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// BackendConfig points the engine at the storefront REST API.
type BackendConfig struct {
	BaseURL string        `envconfig:"STOREFRONT_BACKEND_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"STOREFRONT_BACKEND_TIMEOUT" default:"15s"`
}

// RateAPIConfig configures the third-party courier rate endpoint.
type RateAPIConfig struct {
	BaseURL          string        `envconfig:"STOREFRONT_RATE_API_BASE_URL" required:"true"`
	AccessToken      string        `envconfig:"STOREFRONT_RATE_API_ACCESS_TOKEN" required:"true"`
	SecretKey        string        `envconfig:"STOREFRONT_RATE_API_SECRET_KEY" required:"true"`
	OriginPincode    string        `envconfig:"STOREFRONT_RATE_ORIGIN_PINCODE" required:"true"`
	PreferredCourier string        `envconfig:"STOREFRONT_RATE_PREFERRED_COURIER" default:"Delhivery"`
	PreferredService string        `envconfig:"STOREFRONT_RATE_PREFERRED_SERVICE" default:"Surface"`
	Timeout          time.Duration `envconfig:"STOREFRONT_RATE_API_TIMEOUT" default:"10s"`
}

// GatewayConfig selects and parameterizes the payment gateway integration.
type GatewayConfig struct {
	Provider    string `envconfig:"STOREFRONT_GATEWAY_PROVIDER" default:"phonepe"`
	Mode        string `envconfig:"STOREFRONT_GATEWAY_MODE" default:"sandbox"`
	FrontendURL string `envconfig:"STOREFRONT_FRONTEND_URL" required:"true"`
}

func (g GatewayConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(g.Provider)) {
	case GatewayPhonePe, GatewayCashfree:
	default:
		return fmt.Errorf("unsupported gateway provider %q", g.Provider)
	}
	switch strings.ToLower(strings.TrimSpace(g.Mode)) {
	case GatewayModeSandbox, GatewayModeProduction:
	default:
		return fmt.Errorf("unsupported gateway mode %q", g.Mode)
	}
	return nil
}

// NormalizedProvider returns the lowercase provider name.
func (g GatewayConfig) NormalizedProvider() string {
	return strings.ToLower(strings.TrimSpace(g.Provider))
}

// IsSandbox reports whether the gateway runs against sandbox credentials.
func (g GatewayConfig) IsSandbox() bool {
	return !strings.EqualFold(strings.TrimSpace(g.Mode), GatewayModeProduction)
}
