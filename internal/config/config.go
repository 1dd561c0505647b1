package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	JWTSigningKey string `mapstructure:"JWT_SIGNING_KEY"`
	JWTIssuer     string `mapstructure:"JWT_ISSUER"`
	JWTJWKSURL    string `mapstructure:"JWT_JWKS_URL"`

	// Payment gateway. CheckoutBaseURL is where the payer lands after
	// checkout; PublicBaseURL is this service's externally reachable
	// address, used to build the webhook callback URL. Both are resolved
	// once at startup, never from the request host.
	GatewayBaseURL     string  `mapstructure:"GATEWAY_BASE_URL"`
	GatewayAccessToken string  `mapstructure:"GATEWAY_ACCESS_TOKEN"`
	GatewayTimeoutSecs int     `mapstructure:"GATEWAY_TIMEOUT_SECS"`
	CheckoutBaseURL    string  `mapstructure:"CHECKOUT_BASE_URL"`
	PublicBaseURL      string  `mapstructure:"PUBLIC_BASE_URL"`
	SubscriptionPrice  float64 `mapstructure:"SUBSCRIPTION_PRICE"`
	DependentPrice     float64 `mapstructure:"DEPENDENT_PRICE"`
	AgendaDailyRate    float64 `mapstructure:"AGENDA_DAILY_RATE"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("GATEWAY_TIMEOUT_SECS", 5)
	v.SetDefault("SUBSCRIPTION_PRICE", 240.00)
	v.SetDefault("DEPENDENT_PRICE", 120.00)
	v.SetDefault("AGENDA_DAILY_RATE", 2.50)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"CORS_ORIGINS", "JWT_SIGNING_KEY", "JWT_ISSUER", "JWT_JWKS_URL",
		"GATEWAY_BASE_URL", "GATEWAY_ACCESS_TOKEN", "GATEWAY_TIMEOUT_SECS",
		"CHECKOUT_BASE_URL", "PUBLIC_BASE_URL",
		"SUBSCRIPTION_PRICE", "DEPENDENT_PRICE", "AGENDA_DAILY_RATE",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. Outside development
// the payment gateway credentials and a JWT verification source must be set.
func (c *Config) Validate() error {
	if c.IsDev() {
		return nil
	}
	if c.GatewayBaseURL == "" {
		return fmt.Errorf("GATEWAY_BASE_URL is required outside development")
	}
	if c.GatewayAccessToken == "" {
		return fmt.Errorf("GATEWAY_ACCESS_TOKEN is required outside development")
	}
	if c.PublicBaseURL == "" {
		return fmt.Errorf("PUBLIC_BASE_URL is required outside development")
	}
	if c.JWTSigningKey == "" && c.JWTIssuer == "" && c.JWTJWKSURL == "" {
		return fmt.Errorf("one of JWT_SIGNING_KEY, JWT_ISSUER or JWT_JWKS_URL is required outside development")
	}
	if c.GatewayTimeoutSecs <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT_SECS must be positive")
	}
	return nil
}
