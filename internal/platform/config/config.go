package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile           = ".env"
	defaultPort              = "8080"
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultShutdownTimeout   = 20 * time.Second
	defaultRedisAddr         = "localhost:6379"
	defaultRedisKeyPrefix    = "gatoblanco"
	defaultForeignMarkup     = 1.5
	defaultCardFeeBP         = 250
	defaultWalletFeeBP       = 200
	defaultForeignFeeBP      = 100
	defaultSettlementTimeout = 15 * time.Second
	defaultBacklogLimit      = 5
	defaultDailyOrderLimit   = 50
	defaultNarratorTimeout   = 10 * time.Second
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	PSP      PSPConfig
	Pricing  PricingConfig
	Payments PaymentsConfig
	Alerts   AlertsConfig
	Narrator NarratorConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// RedisConfig stores key-value store connection parameters. When InMemory is
// set the service runs against the process-local store instead.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	InMemory  bool
}

// PSPConfig collects payment provider credentials and redirect targets.
type PSPConfig struct {
	StripeAPIKey       string
	CheckoutSuccessURL string
	CheckoutCancelURL  string
}

// PricingConfig tunes the customer-segment pricing rules.
type PricingConfig struct {
	ForeignMarkup float64
}

// PaymentsConfig controls fee rates and settlement behaviour.
type PaymentsConfig struct {
	CardFeeBP          int
	WalletFeeBP        int
	ForeignSurchargeBP int
	SettlementTimeout  time.Duration
	WalletEnabled      bool
}

// AlertsConfig tunes the operational alert rule limits.
type AlertsConfig struct {
	PendingBacklogLimit int
	DailyOrderLimit     int
}

// NarratorConfig points at the optional report-narration endpoint. An empty
// endpoint disables narration.
type NarratorConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values
// in the map take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided
// maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env
// overrides, and environment variables.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            stringWithDefault(lookup, "OPS_SERVER_PORT", defaultPort),
			ReadTimeout:     durationWithDefault(lookup, "OPS_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    durationWithDefault(lookup, "OPS_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     durationWithDefault(lookup, "OPS_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			ShutdownTimeout: durationWithDefault(lookup, "OPS_SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Redis: RedisConfig{
			Addr:      stringWithDefault(lookup, "OPS_REDIS_ADDR", defaultRedisAddr),
			Password:  stringWithDefault(lookup, "OPS_REDIS_PASSWORD", ""),
			DB:        intWithDefault(lookup, "OPS_REDIS_DB", 0),
			KeyPrefix: stringWithDefault(lookup, "OPS_REDIS_KEY_PREFIX", defaultRedisKeyPrefix),
			InMemory:  boolWithDefault(lookup, "OPS_REDIS_IN_MEMORY", false),
		},
		PSP: PSPConfig{
			StripeAPIKey:       stringWithDefault(lookup, "OPS_PSP_STRIPE_API_KEY", ""),
			CheckoutSuccessURL: stringWithDefault(lookup, "OPS_PSP_CHECKOUT_SUCCESS_URL", ""),
			CheckoutCancelURL:  stringWithDefault(lookup, "OPS_PSP_CHECKOUT_CANCEL_URL", ""),
		},
		Pricing: PricingConfig{
			ForeignMarkup: floatWithDefault(lookup, "OPS_PRICING_FOREIGN_MARKUP", defaultForeignMarkup),
		},
		Payments: PaymentsConfig{
			CardFeeBP:          intWithDefault(lookup, "OPS_PAYMENTS_CARD_FEE_BP", defaultCardFeeBP),
			WalletFeeBP:        intWithDefault(lookup, "OPS_PAYMENTS_WALLET_FEE_BP", defaultWalletFeeBP),
			ForeignSurchargeBP: intWithDefault(lookup, "OPS_PAYMENTS_FOREIGN_SURCHARGE_BP", defaultForeignFeeBP),
			SettlementTimeout:  durationWithDefault(lookup, "OPS_PAYMENTS_SETTLEMENT_TIMEOUT", defaultSettlementTimeout),
			WalletEnabled:      boolWithDefault(lookup, "OPS_PAYMENTS_WALLET_ENABLED", true),
		},
		Alerts: AlertsConfig{
			PendingBacklogLimit: intWithDefault(lookup, "OPS_ALERTS_BACKLOG_LIMIT", defaultBacklogLimit),
			DailyOrderLimit:     intWithDefault(lookup, "OPS_ALERTS_DAILY_ORDER_LIMIT", defaultDailyOrderLimit),
		},
		Narrator: NarratorConfig{
			Endpoint: stringWithDefault(lookup, "OPS_NARRATOR_ENDPOINT", ""),
			APIKey:   stringWithDefault(lookup, "OPS_NARRATOR_API_KEY", ""),
			Model:    stringWithDefault(lookup, "OPS_NARRATOR_MODEL", ""),
			Timeout:  durationWithDefault(lookup, "OPS_NARRATOR_TIMEOUT", defaultNarratorTimeout),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if !cfg.Redis.InMemory && strings.TrimSpace(cfg.Redis.Addr) == "" {
		missing = append(missing, "Redis.Addr")
	}
	if cfg.Pricing.ForeignMarkup <= 0 {
		missing = append(missing, "Pricing.ForeignMarkup")
	}
	if cfg.Payments.CardFeeBP < 0 || cfg.Payments.WalletFeeBP < 0 || cfg.Payments.ForeignSurchargeBP < 0 {
		missing = append(missing, "Payments.FeeRates")
	}
	if cfg.Payments.SettlementTimeout <= 0 {
		missing = append(missing, "Payments.SettlementTimeout")
	}
	if cfg.Alerts.PendingBacklogLimit <= 0 {
		missing = append(missing, "Alerts.PendingBacklogLimit")
	}
	if cfg.Alerts.DailyOrderLimit <= 0 {
		missing = append(missing, "Alerts.DailyOrderLimit")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func floatWithDefault(lookup func(string) (string, bool), key string, fallback float64) float64 {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
