package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadBankConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "BANK_SERVER_PORT")
	unsetEnvWithCleanup(t, "GATEWAY_URL")

	cfg, err := LoadBankConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadBankConfig returned error: %v", err)
	}
	if cfg.ServerPort != "9090" {
		t.Fatalf("expected default bank port 9090, got %q", cfg.ServerPort)
	}
	if cfg.GatewayURL != "http://localhost:8080" {
		t.Fatalf("expected default gateway url, got %q", cfg.GatewayURL)
	}
}

func TestLoadBankConfig_TrimsGatewayURL(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "GATEWAY_URL", " http://gateway:8080/ ")

	cfg, err := LoadBankConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadBankConfig returned error: %v", err)
	}
	if cfg.GatewayURL != "http://gateway:8080" {
		t.Fatalf("expected trimmed gateway url, got %q", cfg.GatewayURL)
	}
}

func TestLoadGatewayConfig_CoercesInvalidValues(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "TOKEN_TTL_HOURS", "-1")
	setEnvWithCleanup(t, "RATE_LIMIT_PER_MINUTE", "0")
	setEnvWithCleanup(t, "REDIS_RATE_LIMIT_PREFIX", "  ")

	cfg, err := LoadGatewayConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadGatewayConfig returned error: %v", err)
	}
	if cfg.TokenTTLHours != 24 {
		t.Fatalf("expected token TTL fallback of 24, got %d", cfg.TokenTTLHours)
	}
	if cfg.RateLimitPerMinute != 120 {
		t.Fatalf("expected rate limit fallback of 120, got %d", cfg.RateLimitPerMinute)
	}
	if cfg.RedisRateLimitPrefix != "strife:rate_limit" {
		t.Fatalf("expected prefix fallback, got %q", cfg.RedisRateLimitPrefix)
	}
}

func TestLoadGatewayConfig_ReadsEnvironment(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "JWT_SECRET", "env-secret")
	setEnvWithCleanup(t, "ADMIN_PASSWORD", "env-admin-pw")
	setEnvWithCleanup(t, "INTERNAL_API_KEY", " env-key ")

	cfg, err := LoadGatewayConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadGatewayConfig returned error: %v", err)
	}
	if cfg.JWTSecret != "env-secret" {
		t.Fatalf("expected JWT secret from environment, got %q", cfg.JWTSecret)
	}
	if cfg.AdminPassword != "env-admin-pw" {
		t.Fatalf("expected admin password from environment, got %q", cfg.AdminPassword)
	}
	if cfg.InternalAPIKey != "env-key" {
		t.Fatalf("expected trimmed internal API key, got %q", cfg.InternalAPIKey)
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}
