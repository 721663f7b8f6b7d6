package database

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"luminexus/internal/logger"
)

const testMigrationsPath = "../../migrations"

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(testMigrationsPath); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

// TestDatabaseIntegration tests the complete database lifecycle
func TestDatabaseIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := newTestDB(t)
	ctx := context.Background()

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}

	// Test that tables were created by migrations
	for _, table := range []string{"migrations", "key_value_store", "bad_words"} {
		var name string
		query := "SELECT name FROM sqlite_master WHERE type='table' AND name=?"
		if err := db.QueryRowContext(ctx, query, table).Scan(&name); err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}

	// Running again is a no-op
	if err := db.RunMigrations(testMigrationsPath); err != nil {
		t.Fatalf("Second migration run failed: %v", err)
	}
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM migrations").Scan(&count); err != nil {
		t.Fatalf("Failed to count migrations: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 recorded migrations, got %d", count)
	}
}

func TestRunMigrationsMissingDirectory(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(t.TempDir()); err == nil {
		t.Error("expected an error when no migration files exist")
	}
}

// TestDatabaseTransactions tests transaction support
func TestDatabaseTransactions(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := newTestDB(t)
	ctx := context.Background()
	upsert := db.Dialect.UpsertKeyValueQuery()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}
	if _, err := tx.ExecContext(ctx, upsert, "committed", []byte(`{"coins":1}`)); err != nil {
		tx.Rollback()
		t.Fatalf("Failed to insert in transaction: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Failed to commit transaction: %v", err)
	}

	tx2, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("Failed to begin second transaction: %v", err)
	}
	if _, err := tx2.ExecContext(ctx, upsert, "rolled-back", []byte(`{}`)); err != nil {
		tx2.Rollback()
		t.Fatalf("Failed to insert in second transaction: %v", err)
	}
	if err := tx2.Rollback(); err != nil {
		t.Fatalf("Failed to rollback transaction: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM key_value_store").Scan(&count); err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 row after commit and rollback, got %d", count)
	}
}

// TestConcurrentAccess tests concurrent upserts of the same key
func TestConcurrentAccess(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := newTestDB(t)
	ctx := context.Background()
	upsert := db.Dialect.UpsertKeyValueQuery()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := db.ExecContext(ctx, upsert, "shared", []byte(`{"coins":5}`)); err != nil {
				t.Errorf("Concurrent upsert failed: %v", err)
			}
		}()
	}
	wg.Wait()

	var value []byte
	if err := db.QueryRowContext(ctx, "SELECT kv_value FROM key_value_store WHERE kv_key = ?", "shared").Scan(&value); err != nil {
		t.Fatalf("Failed to read shared key: %v", err)
	}
	if string(value) != `{"coins":5}` {
		t.Errorf("unexpected value %q", value)
	}
}

func TestBadWordFilter(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := newTestDB(t)
	ctx := context.Background()
	filter := NewBadWordFilter(db, logger.NewNop())

	added, err := filter.SeedFrom(ctx, strings.NewReader("Grumpus\n\nsnarf\ngrumpus\n"))
	if err != nil {
		t.Fatalf("SeedFrom() error = %v", err)
	}
	if added != 2 {
		t.Errorf("SeedFrom() added %d words, want 2", added)
	}

	// Already seeded, so no download is attempted
	if err := filter.Seed(ctx); err != nil {
		t.Errorf("Seed() on populated table error = %v", err)
	}

	tests := []struct {
		name string
		want bool
	}{
		{name: "cosmic-comet", want: false},
		{name: "Grumpus", want: true},
		{name: "cosmic-snarf", want: true},
		{name: "Snarf Rocket", want: true},
		{name: "snarfle", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := filter.ContainsBadWord(ctx, tt.name)
			if err != nil {
				t.Fatalf("ContainsBadWord() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ContainsBadWord(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}
