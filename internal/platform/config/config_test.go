package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Redis.Addr != defaultRedisAddr {
		t.Errorf("unexpected redis addr: %s", cfg.Redis.Addr)
	}
	if cfg.Redis.KeyPrefix != defaultRedisKeyPrefix {
		t.Errorf("unexpected key prefix: %s", cfg.Redis.KeyPrefix)
	}
	if cfg.Pricing.ForeignMarkup != defaultForeignMarkup {
		t.Errorf("unexpected foreign markup: %v", cfg.Pricing.ForeignMarkup)
	}
	if cfg.Payments.CardFeeBP != defaultCardFeeBP {
		t.Errorf("unexpected card fee: %d", cfg.Payments.CardFeeBP)
	}
	if !cfg.Payments.WalletEnabled {
		t.Error("expected wallet enabled by default")
	}
	if cfg.Alerts.PendingBacklogLimit != defaultBacklogLimit {
		t.Errorf("unexpected backlog limit: %d", cfg.Alerts.PendingBacklogLimit)
	}
	if cfg.Narrator.Endpoint != "" {
		t.Errorf("expected narration disabled by default, got %s", cfg.Narrator.Endpoint)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	env := map[string]string{
		"OPS_SERVER_PORT":                   "9090",
		"OPS_SERVER_READ_TIMEOUT":           "20s",
		"OPS_REDIS_ADDR":                    "redis.internal:6380",
		"OPS_REDIS_DB":                      "3",
		"OPS_REDIS_KEY_PREFIX":              "ops-test",
		"OPS_PSP_STRIPE_API_KEY":            "sk_test_abc",
		"OPS_PSP_CHECKOUT_SUCCESS_URL":      "https://shop.example.com/done",
		"OPS_PSP_CHECKOUT_CANCEL_URL":       "https://shop.example.com/cancel",
		"OPS_PRICING_FOREIGN_MARKUP":        "1.75",
		"OPS_PAYMENTS_CARD_FEE_BP":          "300",
		"OPS_PAYMENTS_WALLET_ENABLED":       "false",
		"OPS_PAYMENTS_SETTLEMENT_TIMEOUT":   "5s",
		"OPS_ALERTS_BACKLOG_LIMIT":          "10",
		"OPS_ALERTS_DAILY_ORDER_LIMIT":      "80",
		"OPS_NARRATOR_ENDPOINT":             "https://narrate.example.com/v1",
		"OPS_NARRATOR_API_KEY":              "key_live",
		"OPS_NARRATOR_MODEL":                "summary-v2",
		"OPS_PAYMENTS_FOREIGN_SURCHARGE_BP": "150",
	}

	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("port = %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 20*time.Second {
		t.Errorf("read timeout = %s", cfg.Server.ReadTimeout)
	}
	if cfg.Redis.Addr != "redis.internal:6380" || cfg.Redis.DB != 3 {
		t.Errorf("redis = %+v", cfg.Redis)
	}
	if cfg.PSP.StripeAPIKey != "sk_test_abc" {
		t.Errorf("stripe key = %s", cfg.PSP.StripeAPIKey)
	}
	if cfg.Pricing.ForeignMarkup != 1.75 {
		t.Errorf("markup = %v", cfg.Pricing.ForeignMarkup)
	}
	if cfg.Payments.CardFeeBP != 300 || cfg.Payments.ForeignSurchargeBP != 150 {
		t.Errorf("payments = %+v", cfg.Payments)
	}
	if cfg.Payments.WalletEnabled {
		t.Error("wallet should be disabled")
	}
	if cfg.Payments.SettlementTimeout != 5*time.Second {
		t.Errorf("settlement timeout = %s", cfg.Payments.SettlementTimeout)
	}
	if cfg.Alerts.PendingBacklogLimit != 10 || cfg.Alerts.DailyOrderLimit != 80 {
		t.Errorf("alerts = %+v", cfg.Alerts)
	}
	if cfg.Narrator.Model != "summary-v2" {
		t.Errorf("narrator = %+v", cfg.Narrator)
	}
}

func TestLoadReadsDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	contents := "# local overrides\nexport OPS_SERVER_PORT=7070\nOPS_REDIS_KEY_PREFIX=\"dotenv-prefix\"\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(WithEnvFile(path), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("port = %s, want dotenv override 7070", cfg.Server.Port)
	}
	if cfg.Redis.KeyPrefix != "dotenv-prefix" {
		t.Errorf("key prefix = %s", cfg.Redis.KeyPrefix)
	}
}

func TestLoadEnvMapTakesPrecedenceOverDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("OPS_SERVER_PORT=7070\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(
		WithEnvFile(path),
		WithEnvMap(map[string]string{"OPS_SERVER_PORT": "6060"}),
		WithoutSystemEnv(),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "6060" {
		t.Errorf("port = %s, want env map override 6060", cfg.Server.Port)
	}
}

func TestLoadValidation(t *testing.T) {
	env := map[string]string{
		"OPS_PRICING_FOREIGN_MARKUP": "-1",
		"OPS_ALERTS_BACKLOG_LIMIT":   "0",
	}

	_, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	fields := verr.Fields()
	want := map[string]bool{"Pricing.ForeignMarkup": false, "Alerts.PendingBacklogLimit": false}
	for _, field := range fields {
		if _, ok := want[field]; ok {
			want[field] = true
		}
	}
	for field, seen := range want {
		if !seen {
			t.Errorf("expected %s in validation fields %v", field, fields)
		}
	}
}
