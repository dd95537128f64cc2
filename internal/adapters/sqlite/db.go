package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DB wraps the local SQLite database that backs the session store.
type DB struct {
	conn *sql.DB
	log  zerolog.Logger
}

// Open opens (or creates) the database at path and applies pending migrations.
func Open(ctx context.Context, path string, baseLogger *zerolog.Logger) (*DB, error) {
	log := baseLogger.With().Str("component", "sqlite").Str("path", path).Logger()

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open SQLite database")
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		log.Error().Err(err).Msg("Failed to ping SQLite database")
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	db := &DB{conn: conn, log: log}
	if err := db.Migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	log.Info().Msg("SQLite database ready")
	return db, nil
}

// Migrate applies the embedded migrations.
func (db *DB) Migrate(ctx context.Context) error {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db.conn, sub)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		db.log.Error().Err(err).Msg("Migration failed")
		return fmt.Errorf("migrate sqlite: %w", err)
	}
	for _, r := range results {
		db.log.Debug().Str("migration", r.Source.Path).Dur("took", r.Duration).Msg("Migration applied")
	}
	return nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}
