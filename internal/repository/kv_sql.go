package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"luminexus/internal/database"
)

// SQLKeyValueStore keeps documents in the key_value_store table
type SQLKeyValueStore struct {
	db database.DBTX
}

// NewSQLKeyValueStore creates a store on db
func NewSQLKeyValueStore(db database.DBTX) *SQLKeyValueStore {
	return &SQLKeyValueStore{db: db}
}

// Get retrieves the value stored under key
func (s *SQLKeyValueStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	query := "SELECT kv_value FROM key_value_store WHERE kv_key = ?"
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

// Set updates or inserts the value under key
func (s *SQLKeyValueStore) Set(ctx context.Context, key string, value []byte) error {
	query := s.db.GetDialect().UpsertKeyValueQuery()
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Delete removes key
func (s *SQLKeyValueStore) Delete(ctx context.Context, key string) error {
	query := "DELETE FROM key_value_store WHERE kv_key = ?"
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Keys lists keys starting with prefix
func (s *SQLKeyValueStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	query := "SELECT kv_key FROM key_value_store WHERE kv_key LIKE ?"
	rows, err := s.db.QueryContext(ctx, query, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		// LIKE treats '_' and '%' in the prefix as wildcards
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op; the database handle is owned by the caller
func (s *SQLKeyValueStore) Close() error {
	return nil
}
