package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "memory")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("CORS_ORIGINS", " http://a.test , ,http://b.test")
	t.Setenv("SIGNUP_POINTS", "not-a-number")

	cfg := Load()
	assert.True(t, cfg.UsesMemoryStore())
	assert.Equal(t, "zenith", cfg.JWTIssuer)
	assert.Equal(t, int64(14400), cfg.AccessTTLSeconds)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CorsOrigins)
	assert.Equal(t, 100, cfg.SignupPoints)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoadPanicsWithoutSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/zenith")
	t.Setenv("JWT_SECRET", "")
	require.Panics(t, func() { Load() })
}
