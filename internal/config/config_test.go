package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// 必須環境変数をすべて設定するヘルパー
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/meetflow_test")
	t.Setenv("JWT_SECRET", "test-jwt-secret")
	t.Setenv("BASE_URL", "http://localhost:8080")
}

// 省略可能な環境変数をクリアするヘルパー
func clearOptionalEnv(t *testing.T) {
	t.Helper()
	optional := []string{
		"TOKEN_VALIDITY", "RESET_TOKEN_TTL", "BCRYPT_COST",
		"RATE_LIMIT_GENERAL", "RATE_LIMIT_AUTH",
		"SERVER_PORT", "APP_ENV", "MEETING_STORE_PATH",
		"CORS_ALLOWED_ORIGIN",
	}
	for _, key := range optional {
		if _, ok := os.LookupEnv(key); ok {
			t.Setenv(key, "")
		}
	}
}

func TestLoad_AllRequiredSet(t *testing.T) {
	setRequiredEnv(t)
	clearOptionalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}

	if cfg.DatabaseURL != "postgres://localhost:5432/meetflow_test" {
		t.Errorf("DatabaseURLが一致しない: got %q", cfg.DatabaseURL)
	}
	if cfg.JWTSecret != "test-jwt-secret" {
		t.Errorf("JWTSecretが一致しない: got %q", cfg.JWTSecret)
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURLが一致しない: got %q", cfg.BaseURL)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	if err == nil {
		t.Fatal("必須環境変数の欠落でエラーになること")
	}
	if !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Errorf("欠落した変数名がエラーに含まれること: %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)
	clearOptionalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}

	if cfg.TokenValidity != 168*time.Hour {
		t.Errorf("TokenValidityの既定値が一致しない: got %v", cfg.TokenValidity)
	}
	if cfg.ResetTokenTTL != time.Hour {
		t.Errorf("ResetTokenTTLの既定値が一致しない: got %v", cfg.ResetTokenTTL)
	}
	if cfg.BcryptCost != bcrypt.DefaultCost {
		t.Errorf("BcryptCostの既定値が一致しない: got %d", cfg.BcryptCost)
	}
	if cfg.RateLimitGeneral != 120 {
		t.Errorf("RateLimitGeneralの既定値が一致しない: got %d", cfg.RateLimitGeneral)
	}
	if cfg.RateLimitAuth != 10 {
		t.Errorf("RateLimitAuthの既定値が一致しない: got %d", cfg.RateLimitAuth)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPortの既定値が一致しない: got %q", cfg.ServerPort)
	}
	if cfg.Environment != "development" {
		t.Errorf("Environmentの既定値が一致しない: got %q", cfg.Environment)
	}
	if cfg.CORSAllowedOrigin != "http://localhost:3000" {
		t.Errorf("CORSAllowedOriginの既定値が一致しない: got %q", cfg.CORSAllowedOrigin)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TOKEN_VALIDITY", "24h")
	t.Setenv("RESET_TOKEN_TTL", "30m")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("APP_ENV", "production")
	t.Setenv("MEETING_STORE_PATH", "/var/lib/meetflow/meetings.json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}

	if cfg.TokenValidity != 24*time.Hour {
		t.Errorf("TOKEN_VALIDITYの上書きが反映されない: got %v", cfg.TokenValidity)
	}
	if cfg.ResetTokenTTL != 30*time.Minute {
		t.Errorf("RESET_TOKEN_TTLの上書きが反映されない: got %v", cfg.ResetTokenTTL)
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BCRYPT_COSTの上書きが反映されない: got %d", cfg.BcryptCost)
	}
	if !cfg.IsProduction() {
		t.Error("APP_ENV=productionでIsProductionがtrueになること")
	}
	if cfg.MeetingStorePath != "/var/lib/meetflow/meetings.json" {
		t.Errorf("MEETING_STORE_PATHの上書きが反映されない: got %q", cfg.MeetingStorePath)
	}
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TOKEN_VALIDITY", "not-a-duration")
	t.Setenv("BCRYPT_COST", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}

	if cfg.TokenValidity != 168*time.Hour {
		t.Errorf("不正な値は既定値にフォールバックすること: got %v", cfg.TokenValidity)
	}
	if cfg.BcryptCost != bcrypt.DefaultCost {
		t.Errorf("不正な値は既定値にフォールバックすること: got %d", cfg.BcryptCost)
	}
}

func TestIsProduction(t *testing.T) {
	cfg := &Config{Environment: "development"}
	if cfg.IsProduction() {
		t.Error("developmentではfalseになること")
	}

	cfg.Environment = "production"
	if !cfg.IsProduction() {
		t.Error("productionではtrueになること")
	}
}
