package config

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port              string        `mapstructure:"PORT"`
	Env               string        `mapstructure:"ENV"`
	MongoURI          string        `mapstructure:"MONGO_URI"`
	MongoDB           string        `mapstructure:"MONGO_DB"`
	MongoTxMode       string        `mapstructure:"MONGO_TX_MODE"`
	JWTSecretKey      string        `mapstructure:"JWT_SECRET_KEY"`
	JWTTTL            time.Duration `mapstructure:"JWT_TTL"`
	CORSOrigins       []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS      float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst    int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit         string        `mapstructure:"BODY_LIMIT"`
	MunicipioCodigo   string        `mapstructure:"MUNICIPIO_CODIGO"`
	RedisURL          string        `mapstructure:"REDIS_URL"`
	DashboardCacheTTL time.Duration `mapstructure:"DASHBOARD_CACHE_TTL"`
	MongodumpBin      string        `mapstructure:"MONGODUMP_BIN"`
}

// devSecret signs tokens in development when JWT_SECRET_KEY is unset.
const devSecret = "sigepren-dev-secret"

var municipioPattern = regexp.MustCompile(`^\d{3}$`)

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("MONGO_TX_MODE", "required")
	v.SetDefault("JWT_TTL", "8h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("BODY_LIMIT", "2M")
	v.SetDefault("MUNICIPIO_CODIGO", "800")
	v.SetDefault("DASHBOARD_CACHE_TTL", "60s")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "MONGO_URI", "MONGO_DB", "MONGO_TX_MODE",
		"JWT_SECRET_KEY", "JWT_TTL", "CORS_ORIGINS", "RATE_LIMIT_RPS",
		"RATE_LIMIT_BURST", "REQUEST_TIMEOUT", "BODY_LIMIT", "MUNICIPIO_CODIGO",
		"REDIS_URL", "DASHBOARD_CACHE_TTL", "MONGODUMP_BIN",
	} {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGO_URI is required")
	}

	if cfg.JWTSecretKey == "" && cfg.IsDev() {
		cfg.JWTSecretKey = devSecret
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: Requests without a bearer token get admin access.")
		log.Println("WARNING: Set ENV=production and JWT_SECRET_KEY for production.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if !municipioPattern.MatchString(c.MunicipioCodigo) {
		return fmt.Errorf("MUNICIPIO_CODIGO must be 3 digits, got %q", c.MunicipioCodigo)
	}
	if c.MongoTxMode != "required" && c.MongoTxMode != "compensate" {
		return fmt.Errorf("MONGO_TX_MODE must be \"required\" or \"compensate\", got %q", c.MongoTxMode)
	}
	if !c.IsDev() && (c.JWTSecretKey == "" || c.JWTSecretKey == devSecret) {
		return fmt.Errorf("JWT_SECRET_KEY is required outside development")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}
