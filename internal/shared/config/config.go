package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv        string
	EncryptionKey string

	Postgres  PostgresConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Bot       BotConfig
	Latency   LatencyConfig
	OTP       OTPConfig
	Ownership OwnershipConfig
	Registry  RegistryConfig
}

// PostgresConfig enables the Postgres device registry when URL is set.
type PostgresConfig struct {
	URL string
}

// RedisConfig enables the Redis attempt store when URL is set.
type RedisConfig struct {
	URL string
}

// StorageConfig points at the local session store.
type StorageConfig struct {
	SQLitePath string
}

// BotConfig configures the Telegram shell.
type BotConfig struct {
	Token   string
	Mode    string // "polling" or "webhook"
	Polling PollingConfig
	Webhook WebhookConfig
	// AdminIDs are the chats allowed to moderate devices.
	AdminIDs []int64
}

type PollingConfig struct {
	WorkerPoolSize int
}

type WebhookConfig struct {
	URL        string
	ListenPort int
}

// LatencyConfig holds the simulated duration of each mocked call.
type LatencyConfig struct {
	Login    time.Duration
	OTP      time.Duration
	Verify   time.Duration
	Register time.Duration
	Transfer time.Duration
	Purchase time.Duration
	Reset    time.Duration
}

// OTPConfig controls passcode issuance.
type OTPConfig struct {
	Cooldown time.Duration
	Policy   string // "lenient" or "strict"
}

// OwnershipConfig controls the ownership-check lockout.
type OwnershipConfig struct {
	MaxAttempts  int
	LockDuration time.Duration
}

// RegistryConfig controls registry policies.
type RegistryConfig struct {
	EnforceUniqueIMEI bool
	Seed              bool
}

// envBindings maps every viper key to the environment variable that feeds it.
var envBindings = map[string]string{
	"app.env":                      "APP_ENV",
	"encryption.key":               "ENCRYPTION_KEY",
	"database.url":                 "DATABASE_URL",
	"redis.url":                    "REDIS_URL",
	"storage.sqlite_path":          "SQLITE_PATH",
	"bot.token":                    "BOT_TOKEN",
	"bot.mode":                     "BOT_MODE",
	"bot.polling.worker_pool_size": "BOT_WORKER_POOL_SIZE",
	"bot.webhook.url":              "BOT_WEBHOOK_URL",
	"bot.webhook.listen_port":      "BOT_WEBHOOK_PORT",
	"bot.admin_ids":                "BOT_ADMIN_IDS",
	"latency.login":                "LATENCY_LOGIN",
	"latency.otp":                  "LATENCY_OTP",
	"latency.verify":               "LATENCY_VERIFY",
	"latency.register":             "LATENCY_REGISTER",
	"latency.transfer":             "LATENCY_TRANSFER",
	"latency.purchase":             "LATENCY_PURCHASE",
	"latency.reset":                "LATENCY_RESET",
	"otp.cooldown":                 "OTP_COOLDOWN",
	"otp.policy":                   "OTP_POLICY",
	"ownership.max_attempts":       "OWNERSHIP_MAX_ATTEMPTS",
	"ownership.lock_duration":      "OWNERSHIP_LOCK_DURATION",
	"registry.enforce_unique_imei": "REGISTRY_ENFORCE_UNIQUE_IMEI",
	"registry.seed":                "REGISTRY_SEED",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("storage.sqlite_path", "imeiguard.db")
	v.SetDefault("bot.mode", "polling")
	v.SetDefault("bot.polling.worker_pool_size", 4)
	v.SetDefault("bot.webhook.listen_port", 8443)
	v.SetDefault("latency.login", "1000ms")
	v.SetDefault("latency.otp", "1500ms")
	v.SetDefault("latency.verify", "1500ms")
	v.SetDefault("latency.register", "2000ms")
	v.SetDefault("latency.transfer", "2000ms")
	v.SetDefault("latency.purchase", "1500ms")
	v.SetDefault("latency.reset", "2000ms")
	v.SetDefault("otp.cooldown", "60s")
	v.SetDefault("otp.policy", "lenient")
	v.SetDefault("ownership.max_attempts", 3)
	v.SetDefault("ownership.lock_duration", "30m")
	v.SetDefault("registry.enforce_unique_imei", false)
	v.SetDefault("registry.seed", true)
}

// Load loads configuration from environment variables, an optional .env file
// and an optional config.yaml in the working directory.
func Load() (*Config, error) {
	// 1. Load .env file into the process environment.
	// A missing file is fine; OS-set env vars are used instead.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config.yaml: %w", err)
		}
	}

	// 2. Explicitly bind viper keys to env var names
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("could not bind %s: %w", key, err)
		}
	}

	// 3. Set defaults
	setDefaults(v)

	adminIDs, err := parseIDs(v.GetString("bot.admin_ids"))
	if err != nil {
		return nil, fmt.Errorf("invalid bot.admin_ids: %w", err)
	}

	// 4. Get values directly from viper
	cfg := Config{
		AppEnv:        v.GetString("app.env"),
		EncryptionKey: v.GetString("encryption.key"),
		Postgres:      PostgresConfig{URL: v.GetString("database.url")},
		Redis:         RedisConfig{URL: v.GetString("redis.url")},
		Storage:       StorageConfig{SQLitePath: v.GetString("storage.sqlite_path")},
		Bot: BotConfig{
			Token:   v.GetString("bot.token"),
			Mode:    v.GetString("bot.mode"),
			Polling: PollingConfig{WorkerPoolSize: v.GetInt("bot.polling.worker_pool_size")},
			Webhook: WebhookConfig{
				URL:        v.GetString("bot.webhook.url"),
				ListenPort: v.GetInt("bot.webhook.listen_port"),
			},
			AdminIDs: adminIDs,
		},
		Latency: LatencyConfig{
			Login:    v.GetDuration("latency.login"),
			OTP:      v.GetDuration("latency.otp"),
			Verify:   v.GetDuration("latency.verify"),
			Register: v.GetDuration("latency.register"),
			Transfer: v.GetDuration("latency.transfer"),
			Purchase: v.GetDuration("latency.purchase"),
			Reset:    v.GetDuration("latency.reset"),
		},
		OTP: OTPConfig{
			Cooldown: v.GetDuration("otp.cooldown"),
			Policy:   v.GetString("otp.policy"),
		},
		Ownership: OwnershipConfig{
			MaxAttempts:  v.GetInt("ownership.max_attempts"),
			LockDuration: v.GetDuration("ownership.lock_duration"),
		},
		Registry: RegistryConfig{
			EnforceUniqueIMEI: v.GetBool("registry.enforce_unique_imei"),
			Seed:              v.GetBool("registry.seed"),
		},
	}

	// 5. Validation
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// parseIDs reads a comma-separated list of chat IDs.
func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Postgres.URL != "" {
		if c.EncryptionKey == "" {
			return errors.New("ENCRYPTION_KEY is required when DATABASE_URL is set")
		}
		if len(c.EncryptionKey) != 64 {
			return fmt.Errorf("ENCRYPTION_KEY must be a 64-character hex string (32 bytes), but got %d chars", len(c.EncryptionKey))
		}
	}

	switch c.OTP.Policy {
	case "lenient", "strict":
	default:
		return fmt.Errorf("unknown otp policy: %s", c.OTP.Policy)
	}

	switch c.Bot.Mode {
	case "polling", "webhook":
	default:
		return fmt.Errorf("unknown bot mode: %s", c.Bot.Mode)
	}

	if c.Ownership.MaxAttempts < 1 {
		return fmt.Errorf("ownership.max_attempts must be at least 1, got %d", c.Ownership.MaxAttempts)
	}
	return nil
}

// IsDev reports whether the app runs in development mode.
func (c *Config) IsDev() bool {
	return c.AppEnv == "dev" || c.AppEnv == "development"
}
