// Package app assembles the service stack shared by the CLI commands.
package app

import (
	"ImeiGuard/internal/adapters/eventbus"
	"ImeiGuard/internal/adapters/memory"
	"ImeiGuard/internal/adapters/otp"
	"ImeiGuard/internal/adapters/postgres"
	redisstore "ImeiGuard/internal/adapters/redis"
	"ImeiGuard/internal/adapters/security"
	"ImeiGuard/internal/adapters/sqlite"
	"ImeiGuard/internal/core/ports"
	"ImeiGuard/internal/core/services/registry"
	"ImeiGuard/internal/core/workflow"
	"ImeiGuard/internal/shared/config"
	"ImeiGuard/internal/shared/latency"
	"ImeiGuard/internal/shared/logger"
	"context"
	"encoding/hex"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Options tunes how the stack is built.
type Options struct {
	// AutoMigrate applies pending Postgres migrations on startup.
	AutoMigrate bool
}

// App is the assembled stack.
type App struct {
	Config   *config.Config
	Log      zerolog.Logger
	Registry *registry.Registry
	Bus      *eventbus.InMemoryEventBus
	Sessions ports.SessionStore
	Attempts ports.AttemptStore
	OTP      *otp.LogSender

	closers []func()
}

// Load reads the configuration and builds the logger it asks for.
func Load() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(cfg.IsDev())
	log.Info().Str("app_env", cfg.AppEnv).Msg("Configuration loaded")
	return cfg, log, nil
}

// New connects every configured backend. Unset backends fall back to
// in-memory adapters. Call Close when done.
func New(ctx context.Context, cfg *config.Config, baseLogger *zerolog.Logger, opts Options) (*App, error) {
	a := &App{
		Config: cfg,
		Log:    baseLogger.With().Str("component", "app").Logger(),
		Bus:    eventbus.NewInMemoryEventBus(baseLogger),
		OTP:    otp.NewLogSender(baseLogger),
	}

	hasher := security.NewSHA256Hasher()
	devices, searches, err := a.openRegistryStorage(ctx, hasher, baseLogger, opts)
	if err != nil {
		a.Close()
		return nil, err
	}
	if a.Sessions, err = a.openSessions(ctx, baseLogger); err != nil {
		a.Close()
		return nil, err
	}
	if a.Attempts, err = a.openAttempts(ctx, baseLogger); err != nil {
		a.Close()
		return nil, err
	}

	a.Registry = registry.New(devices, searches, hasher, a.Bus, registry.Options{
		VerifyLatency:     cfg.Latency.Verify,
		EnforceUniqueIMEI: cfg.Registry.EnforceUniqueIMEI,
	}, baseLogger)

	a.Log.Info().Msg("All services initialized successfully")
	return a, nil
}

func (a *App) openRegistryStorage(
	ctx context.Context,
	hasher ports.Hasher,
	baseLogger *zerolog.Logger,
	opts Options,
) (ports.DeviceRepository, ports.SearchRepository, error) {
	cfg := a.Config
	if cfg.Postgres.URL == "" {
		seed := registry.SeedDevices(hasher)
		if !cfg.Registry.Seed {
			seed = nil
		}
		a.Log.Info().Int("seeded", len(seed)).Msg("Using the in-memory device registry")
		return memory.NewDeviceRepository(seed, baseLogger), memory.NewSearchRepository(), nil
	}

	keyBytes, err := hex.DecodeString(cfg.EncryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("decode ENCRYPTION_KEY, it must be hex-encoded: %w", err)
	}
	secSvc, err := security.NewAESService(keyBytes, baseLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize security service: %w", err)
	}

	db, err := postgres.NewDB(ctx, cfg.Postgres.URL, baseLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize database: %w", err)
	}
	a.closers = append(a.closers, db.Close)

	if opts.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			return nil, nil, err
		}
	}

	devices := postgres.NewDeviceRepository(db, secSvc, baseLogger)
	if cfg.Registry.Seed {
		n, err := postgres.Seed(ctx, devices, registry.SeedDevices(hasher))
		if err != nil {
			return nil, nil, fmt.Errorf("seed devices: %w", err)
		}
		a.Log.Info().Int("seeded", n).Msg("Device registry seeded")
	}
	return devices, postgres.NewSearchRepository(db, baseLogger), nil
}

func (a *App) openSessions(ctx context.Context, baseLogger *zerolog.Logger) (ports.SessionStore, error) {
	path := a.Config.Storage.SQLitePath
	if path == "" {
		return memory.NewSessionStore(), nil
	}
	db, err := sqlite.Open(ctx, path, baseLogger)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	a.closers = append(a.closers, func() {
		if err := db.Close(); err != nil {
			a.Log.Warn().Err(err).Msg("Failed to close session store")
		}
	})
	return sqlite.NewSessionStore(db), nil
}

func (a *App) openAttempts(ctx context.Context, baseLogger *zerolog.Logger) (ports.AttemptStore, error) {
	if a.Config.Redis.URL == "" {
		return memory.NewAttemptStore(nil), nil
	}
	redisOpts, err := redis.ParseURL(a.Config.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	a.closers = append(a.closers, func() {
		if err := client.Close(); err != nil {
			a.Log.Warn().Err(err).Msg("Failed to close redis client")
		}
	})
	a.Log.Info().Msg("Ownership attempts are stored in Redis")
	return redisstore.NewAttemptStore(client, nil, baseLogger), nil
}

// WorkflowOptions returns the controller tunables from the configuration.
func (a *App) WorkflowOptions() workflow.Options {
	cfg := a.Config
	return workflow.Options{
		Latency: latency.Profile{
			Login:    cfg.Latency.Login,
			OTP:      cfg.Latency.OTP,
			Verify:   cfg.Latency.Verify,
			Register: cfg.Latency.Register,
			Transfer: cfg.Latency.Transfer,
			Purchase: cfg.Latency.Purchase,
			Reset:    cfg.Latency.Reset,
		},
		OTP: workflow.OTPOptions{
			Sender:   a.OTP,
			Cooldown: cfg.OTP.Cooldown,
			Policy:   workflow.OTPPolicy(cfg.OTP.Policy),
		},
		Ownership: workflow.OwnershipPolicy{
			MaxAttempts:  cfg.Ownership.MaxAttempts,
			LockDuration: cfg.Ownership.LockDuration,
		},
		Attempts: a.Attempts,
	}
}

// AdminSet turns the configured moderator IDs into a lookup set.
func (a *App) AdminSet() map[int64]bool {
	set := make(map[int64]bool, len(a.Config.Bot.AdminIDs))
	for _, id := range a.Config.Bot.AdminIDs {
		set[id] = true
	}
	return set
}

// Close waits for pending event handlers, then releases the backends in
// reverse order of creation.
func (a *App) Close() {
	a.Bus.Wait()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
