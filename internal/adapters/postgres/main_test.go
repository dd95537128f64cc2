package postgres

import (
	"ImeiGuard/internal/adapters/security"
	"ImeiGuard/internal/core/ports"
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"testing"

	"github.com/rs/zerolog"
)

var (
	testDB     *DB
	testSecSvc ports.SecurityPort
)

// TestMain connects to DATABASE_URL and skips the package when it is unset.
func TestMain(m *testing.M) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		fmt.Println("DATABASE_URL not set, skipping postgres tests")
		os.Exit(0)
	}

	nopLogger := zerolog.Nop()

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		fmt.Printf("TestMain: failed to generate key: %v\n", err)
		os.Exit(1)
	}
	var err error
	testSecSvc, err = security.NewAESService(key, &nopLogger)
	if err != nil {
		fmt.Printf("TestMain: failed to create security service: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	testDB, err = NewDB(ctx, url, &nopLogger)
	if err != nil {
		fmt.Printf("TestMain: failed to connect to test database: %v\n", err)
		os.Exit(1)
	}
	if err := testDB.Migrate(ctx); err != nil {
		fmt.Printf("TestMain: failed to migrate: %v\n", err)
		testDB.Close()
		os.Exit(1)
	}

	code := m.Run()

	testDB.Close()
	os.Exit(code)
}

// truncate empties both tables before and after a test.
func truncate(t *testing.T) {
	t.Helper()
	clean := func() {
		if _, err := testDB.pool.Exec(context.Background(), "TRUNCATE devices, imei_searches"); err != nil {
			t.Logf("Warning: failed to truncate tables: %v", err)
		}
	}
	clean()
	t.Cleanup(clean)
}
