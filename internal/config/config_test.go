package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidateRequiresSecret(t *testing.T) {
	cfg := &Config{
		ServerPort:     "8080",
		DatabaseURL:    "postgres://localhost/auth_db",
		JWTAccessTTL:   time.Hour,
		JWTRefreshTTL:  168 * time.Hour,
		ResetTokenTTL:  time.Hour,
		RequestTimeout: 30 * time.Second,
	}
	require.Error(t, cfg.Validate())

	cfg.JWTSecret = "secret"
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsInvertedTTLs(t *testing.T) {
	cfg := &Config{
		ServerPort:     "8080",
		DatabaseURL:    "postgres://localhost/auth_db",
		JWTSecret:      "secret",
		JWTAccessTTL:   time.Hour,
		JWTRefreshTTL:  time.Minute,
		ResetTokenTTL:  time.Hour,
		RequestTimeout: 30 * time.Second,
	}
	require.Error(t, cfg.Validate())
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, time.Hour, cfg.JWTAccessTTL)
	require.Equal(t, 168*time.Hour, cfg.JWTRefreshTTL)
	require.Equal(t, time.Hour, cfg.ResetTokenTTL)
	require.Equal(t, 10, cfg.AuthRateLimitRPM)
}

func TestSplitCSV(t *testing.T) {
	require.Nil(t, splitCSV("  "))
	require.Equal(t, []string{"a", "b"}, splitCSV(" a , b ,"))
}
