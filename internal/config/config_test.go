package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Run("Success - Defaults", func(t *testing.T) {
		t.Setenv("SERVER_ADDR", "")
		t.Setenv("APP_ENV", "")
		t.Setenv("LOG_LEVEL", "")

		cfg := Load()
		assert.Equal(t, ":8080", cfg.ServerAddr)
		assert.Equal(t, "development", cfg.Env)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.False(t, cfg.IsProduction())
	})

	t.Run("Success - Environment overrides", func(t *testing.T) {
		t.Setenv("SERVER_ADDR", ":9000")
		t.Setenv("APP_ENV", "production")
		t.Setenv("JWT_SECRET", "s3cret")

		cfg := Load()
		assert.Equal(t, ":9000", cfg.ServerAddr)
		assert.True(t, cfg.IsProduction())
		assert.Equal(t, "s3cret", cfg.JWTSecret)
	})
}
