package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"luminexus/internal/models"
)

const playerKeyPrefix = "luminexus-player:"

// ErrPlayerNotFound is returned when no profile exists for a player id
var ErrPlayerNotFound = errors.New("player not found")

// PlayerRepository persists player profiles
type PlayerRepository struct {
	store KeyValueStore
}

// NewPlayerRepository creates a player repository on store
func NewPlayerRepository(store KeyValueStore) *PlayerRepository {
	return &PlayerRepository{store: store}
}

// Create stores a new profile
func (r *PlayerRepository) Create(ctx context.Context, player *models.Player) error {
	return r.Save(ctx, player)
}

// Save writes a profile, replacing any existing one
func (r *PlayerRepository) Save(ctx context.Context, player *models.Player) error {
	data, err := json.Marshal(player)
	if err != nil {
		return fmt.Errorf("failed to encode player: %w", err)
	}
	return r.store.Set(ctx, playerKeyPrefix+player.ID, data)
}

// Get retrieves a profile by id
func (r *PlayerRepository) Get(ctx context.Context, playerID string) (*models.Player, error) {
	data, err := r.store.Get(ctx, playerKeyPrefix+playerID)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	var player models.Player
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, fmt.Errorf("failed to decode player %s: %w", playerID, err)
	}
	return &player, nil
}

// Delete removes a profile
func (r *PlayerRepository) Delete(ctx context.Context, playerID string) error {
	return r.store.Delete(ctx, playerKeyPrefix+playerID)
}

// List returns every stored profile ordered by id
func (r *PlayerRepository) List(ctx context.Context) ([]models.Player, error) {
	keys, err := r.store.Keys(ctx, playerKeyPrefix)
	if err != nil {
		return nil, err
	}

	players := make([]models.Player, 0, len(keys))
	for _, key := range keys {
		player, err := r.Get(ctx, strings.TrimPrefix(key, playerKeyPrefix))
		if err != nil {
			return nil, err
		}
		players = append(players, *player)
	}
	return players, nil
}
