package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
store:
  driver: postgres
  postgres:
    dsn: postgres://x:y@db:5432/oneclick
gateway:
  timeout: 12s
callback:
  base_url: https://pay.example.com/oneclick/
  success_url: https://app.example.com/ok
  failed_url: https://app.example.com/ko
rate:
  finish_per_minute: 5
auth:
  api_keys: [alpha, beta]
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Store.Driver != StoreDriverPostgres {
		t.Fatalf("unexpected store driver: %s", cfg.Store.Driver)
	}
	if cfg.Store.Postgres.DSN != "postgres://x:y@db:5432/oneclick" {
		t.Fatalf("unexpected dsn: %s", cfg.Store.Postgres.DSN)
	}
	if cfg.Gateway.Timeout != 12*time.Second {
		t.Fatalf("unexpected gateway timeout: %s", cfg.Gateway.Timeout)
	}
	if cfg.Rate.FinishPerMinute != 5 {
		t.Fatalf("unexpected finish per minute: %d", cfg.Rate.FinishPerMinute)
	}
	if len(cfg.Auth.APIKeys) != 2 || cfg.Auth.APIKeys[1] != "beta" {
		t.Fatalf("unexpected api keys: %v", cfg.Auth.APIKeys)
	}

	if cfg.Rate.FinishPer10Sec != 10 {
		t.Fatalf("finish_per_10sec default should stay 10")
	}
	if cfg.Gateway.Environment != "integration" {
		t.Fatalf("gateway environment default should stay integration")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got := cfg.BasePath(); got != "/oneclick/" {
		t.Fatalf("unexpected base path: %s", got)
	}
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config with missing file: %v", err)
	}

	if cfg.Store.Driver != StoreDriverBolt {
		t.Fatalf("unexpected default store driver: %s", cfg.Store.Driver)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("unexpected default addr: %s", cfg.HTTP.Addr)
	}
	if cfg.Gateway.DefaultChildCommerceCode != "597055555542" {
		t.Fatalf("unexpected default child commerce code: %s", cfg.Gateway.DefaultChildCommerceCode)
	}
	if got := cfg.BasePath(); got != "/" {
		t.Fatalf("unexpected base path without base url: %s", got)
	}
	if !cfg.Cleanup.Enabled || cfg.Cleanup.PendingTTL != 24*time.Hour {
		t.Fatalf("unexpected cleanup defaults: %+v", cfg.Cleanup)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("BASE_URL", "https://pay.example.com/")
	t.Setenv("TBK_SUCCESS_URL", "https://app.example.com/ok")
	t.Setenv("TBK_FAILED_URL", "https://app.example.com/ko")
	t.Setenv("TBK_CODE", "597000000001")
	t.Setenv("TBK_KEY", "secret")
	t.Setenv("TBK_ENVIRONMENT", "PRODUCTION")
	t.Setenv("API_KEY", " one , two,,")
	t.Setenv("ENCRYPTION_KEY", "k")
	t.Setenv("PORT", "9000")
	t.Setenv("RATE_FINISH_PER_10SEC", "3")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Gateway.Environment != "production" {
		t.Fatalf("unexpected environment: %s", cfg.Gateway.Environment)
	}
	if cfg.Gateway.CommerceCode != "597000000001" || cfg.Gateway.APIKey != "secret" {
		t.Fatalf("unexpected credentials: %+v", cfg.Gateway)
	}
	if len(cfg.Auth.APIKeys) != 2 || cfg.Auth.APIKeys[0] != "one" || cfg.Auth.APIKeys[1] != "two" {
		t.Fatalf("unexpected api keys: %v", cfg.Auth.APIKeys)
	}
	if cfg.HTTP.Addr != ":9000" {
		t.Fatalf("unexpected addr: %s", cfg.HTTP.Addr)
	}
	if cfg.Rate.FinishPer10Sec != 3 {
		t.Fatalf("unexpected finish per 10 sec: %d", cfg.Rate.FinishPer10Sec)
	}
	if cfg.Codec.EncryptionKey != "k" {
		t.Fatalf("unexpected encryption key: %s", cfg.Codec.EncryptionKey)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadGatewayCredentialsSelectProduction(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("TBK_CODE", "597012345678")
	t.Setenv("TBK_KEY", "secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Gateway.Environment != "production" {
		t.Fatalf("credentials without TBK_ENVIRONMENT should select production, got %s", cfg.Gateway.Environment)
	}

	t.Setenv("TBK_ENVIRONMENT", "integration")
	cfg, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Gateway.Environment != "integration" {
		t.Fatalf("explicit environment must win, got %s", cfg.Gateway.Environment)
	}

	t.Setenv("TBK_ENVIRONMENT", "")
	t.Setenv("TBK_KEY", "")
	cfg, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Gateway.Environment != "integration" {
		t.Fatalf("a single credential must keep integration, got %s", cfg.Gateway.Environment)
	}
}

func TestLoadRejectsMalformedEnv(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("TBK_TIMEOUT", "soon")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for malformed duration")
	}
}

func TestValidateReportsMissingURLs(t *testing.T) {
	cfg := Default()
	cfg.Callback.SuccessURL = "https://app.example.com/ok"

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"INVALID_BASE_URL", "INVALID_TBK_FAILED_URL"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %s in %q", want, msg)
		}
	}
	if strings.Contains(msg, "INVALID_TBK_SUCCESS_URL") {
		t.Fatalf("success url is valid, got %q", msg)
	}
}

func TestValidateRequiresProductionCredentials(t *testing.T) {
	cfg := Default()
	cfg.Callback = CallbackConfig{
		BaseURL:    "https://pay.example.com/",
		SuccessURL: "https://app.example.com/ok",
		FailedURL:  "https://app.example.com/ko",
	}
	cfg.Gateway.Environment = "production"

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error without production credentials")
	}

	cfg.Gateway.CommerceCode = "597000000001"
	cfg.Gateway.APIKey = "secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate with credentials: %v", err)
	}

	cfg.Store.Driver = "mongo"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for unknown store driver")
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV",
		"HTTP_ADDR",
		"PORT",
		"HTTP_READ_TIMEOUT",
		"HTTP_WRITE_TIMEOUT",
		"HTTP_IDLE_TIMEOUT",
		"LOG_LEVEL",
		"STORE_DRIVER",
		"POSTGRES_DSN",
		"POSTGRES_AUTO_MIGRATE",
		"BOLT_PATH",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"S3_ENDPOINT",
		"S3_ACCESS_KEY",
		"S3_SECRET_KEY",
		"S3_REGION",
		"S3_BUCKET",
		"S3_USE_SSL",
		"API_KEY",
		"JWT_SECRET",
		"TBK_ENVIRONMENT",
		"TBK_BASE_URL",
		"TBK_CODE",
		"TBK_KEY",
		"TBK_CHILD_COMMERCE_CODE",
		"TBK_TIMEOUT",
		"BASE_URL",
		"TBK_SUCCESS_URL",
		"TBK_FAILED_URL",
		"ENCRYPTION_KEY",
		"RATE_FINISH_PER_MINUTE",
		"RATE_FINISH_PER_10SEC",
		"CORS_ALLOWED_ORIGINS",
		"CLEANUP_ENABLED",
		"CLEANUP_PENDING_TTL",
		"CLEANUP_INTERVAL",
	} {
		t.Setenv(key, "")
	}
}
