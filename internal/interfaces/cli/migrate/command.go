package migrate

import (
	"ImeiGuard/internal/adapters/postgres"
	"ImeiGuard/internal/adapters/security"
	"ImeiGuard/internal/adapters/sqlite"
	"ImeiGuard/internal/core/services/registry"
	"ImeiGuard/internal/interfaces/cli/app"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var seed bool

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Apply the embedded schema migrations to the Postgres registry and the SQLite session store.`,
	}

	cmd.AddCommand(newUpCommand())

	return cmd
}

func newUpCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Run all pending migrations",
		Long:  `Apply all pending migrations. The Postgres registry is migrated only when DATABASE_URL is set.`,
		RunE:  runUp,
	}

	cmd.Flags().BoolVar(&seed, "seed", false, "Insert the demo devices into an empty registry")

	return cmd
}

func runUp(cmd *cobra.Command, args []string) error {
	cfg, log, err := app.Load()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if path := cfg.Storage.SQLitePath; path != "" {
		// Open applies the session store migrations.
		db, err := sqlite.Open(ctx, path, &log)
		if err != nil {
			return err
		}
		if err := db.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "session store %s is up to date\n", path)
	}

	if cfg.Postgres.URL == "" {
		if seed {
			return errors.New("--seed needs DATABASE_URL")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "DATABASE_URL is not set, skipping the device registry")
		return nil
	}

	db, err := postgres.NewDB(ctx, cfg.Postgres.URL, &log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "device registry is up to date")

	if !seed {
		return nil
	}
	keyBytes, err := hex.DecodeString(cfg.EncryptionKey)
	if err != nil {
		return fmt.Errorf("decode ENCRYPTION_KEY: %w", err)
	}
	secSvc, err := security.NewAESService(keyBytes, &log)
	if err != nil {
		return err
	}
	hasher := security.NewSHA256Hasher()
	n, err := postgres.Seed(ctx, postgres.NewDeviceRepository(db, secSvc, &log), registry.SeedDevices(hasher))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d devices\n", n)
	return nil
}
