package repository

import (
	"context"
	"fmt"
	"strings"

	"luminexus/internal/config"
	"luminexus/internal/database"
	"luminexus/internal/logger"
)

// Storage is an opened key-value backend
type Storage struct {
	Type string
	KV   KeyValueStore
	// DB is set only for the sql backend
	DB *database.DB
}

// Open connects the backend selected by storage.type. The sql backend is
// migrated before it is returned.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Storage, error) {
	storageType := strings.ToLower(cfg.Storage.Type)

	switch storageType {
	case "sql":
		db, err := database.InitializeWithConfig(cfg)
		if err != nil {
			return nil, err
		}
		log.Info("Database connection established", "type", cfg.Database.Type)

		if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("Migrations completed successfully")

		return &Storage{Type: storageType, KV: NewSQLKeyValueStore(db), DB: db}, nil

	case "redis":
		kv, err := NewRedisKeyValueStore(ctx, RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		log.Info("Redis connection established", "addr", cfg.Redis.Addr)
		return &Storage{Type: storageType, KV: kv}, nil

	case "memory":
		log.Warn("Using in-memory storage; progress is lost on restart")
		return &Storage{Type: storageType, KV: NewMemoryKeyValueStore()}, nil

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}

// Close releases the backend
func (s *Storage) Close() error {
	err := s.KV.Close()
	if s.DB != nil {
		if dbErr := s.DB.Close(); err == nil {
			err = dbErr
		}
	}
	return err
}
