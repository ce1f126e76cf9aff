package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresMongoURI(t *testing.T) {
	t.Setenv("MONGO_URI", "")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGO_URI")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017/sigepren_db")
	t.Setenv("ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mongodb://localhost:27017/sigepren_db", cfg.MongoURI)
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "required", cfg.MongoTxMode)
	assert.Equal(t, "800", cfg.MunicipioCodigo)
	assert.Equal(t, 8*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 60*time.Second, cfg.DashboardCacheTTL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.NotEmpty(t, cfg.JWTSecretKey, "development gets a signing key")
	assert.NoError(t, cfg.Validate())
}

func TestLoad_CORSList(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("CORS_ORIGINS", "http://a.local, http://b.local")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a.local", "http://b.local"}, cfg.CORSOrigins)
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() {
		t.Error("expected IsDev() to return true for development")
	}

	c.Env = "production"
	if c.IsDev() {
		t.Error("expected IsDev() to return false for production")
	}
	if !c.IsProduction() {
		t.Error("expected IsProduction() to return true")
	}
}

func validConfig() *Config {
	return &Config{
		Env:             "production",
		MongoTxMode:     "required",
		JWTSecretKey:    "s3cret",
		JWTTTL:          time.Hour,
		MunicipioCodigo: "800",
		RateLimitRPS:    10,
		RateLimitBurst:  20,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"municipio", func(c *Config) { c.MunicipioCodigo = "80" }, "MUNICIPIO_CODIGO"},
		{"tx mode", func(c *Config) { c.MongoTxMode = "maybe" }, "MONGO_TX_MODE"},
		{"no secret in production", func(c *Config) { c.JWTSecretKey = "" }, "JWT_SECRET_KEY"},
		{"dev secret in production", func(c *Config) { c.JWTSecretKey = devSecret }, "JWT_SECRET_KEY"},
		{"compensate allowed", func(c *Config) { c.MongoTxMode = "compensate" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
