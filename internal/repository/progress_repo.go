package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"luminexus/internal/models"
)

const (
	progressKeyPrefix = "luminexus-progress:"
	corruptKeyPrefix  = "luminexus-progress-corrupt:"
)

// LoadStatus describes where a loaded record came from
type LoadStatus int

const (
	// LoadFresh means nothing was stored; the record holds defaults
	LoadFresh LoadStatus = iota
	// LoadRestored means the stored record was decoded
	LoadRestored
	// LoadDegraded means storage was unreadable or the document corrupt;
	// the record holds defaults and Err says why
	LoadDegraded
)

func (s LoadStatus) String() string {
	switch s {
	case LoadFresh:
		return "fresh"
	case LoadRestored:
		return "restored"
	case LoadDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// LoadResult reports how a progress record was obtained
type LoadResult struct {
	Status LoadStatus
	Err    error
	// QuarantineKey holds the corrupt document's copy, if one was made
	QuarantineKey string
}

// ReadFailed reports a degraded load where the stored document could not be
// read or set aside. It may still exist, so the defaults must not replace it.
func (r LoadResult) ReadFailed() bool {
	return r.Status == LoadDegraded && r.QuarantineKey == ""
}

// ProgressRepository persists one progress document per player
type ProgressRepository struct {
	store KeyValueStore
	now   func() time.Time
}

// NewProgressRepository creates a progress repository on store
func NewProgressRepository(store KeyValueStore) *ProgressRepository {
	return &ProgressRepository{store: store, now: time.Now}
}

// ProgressKey is the storage key of a player's progress document
func ProgressKey(playerID string) string {
	return progressKeyPrefix + playerID
}

// Load reads a player's record. It never fails: when there is no usable
// document it returns defaults and reports why in the LoadResult. A corrupt
// document is copied aside before the caller can overwrite it.
func (r *ProgressRepository) Load(ctx context.Context, playerID string) (*models.ProgressRecord, LoadResult) {
	key := ProgressKey(playerID)

	data, err := r.store.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return models.NewProgressRecord(r.now()), LoadResult{Status: LoadFresh}
	}
	if err != nil {
		return models.NewProgressRecord(r.now()), LoadResult{
			Status: LoadDegraded,
			Err:    fmt.Errorf("failed to read progress: %w", err),
		}
	}

	record, err := decodeProgress(data)
	if err != nil {
		result := LoadResult{Status: LoadDegraded, Err: err}
		quarantine, qerr := r.Quarantine(ctx, playerID, data)
		if qerr != nil {
			result.Err = errors.Join(err, qerr)
		} else {
			result.QuarantineKey = quarantine
		}
		return models.NewProgressRecord(r.now()), result
	}

	return record, LoadResult{Status: LoadRestored}
}

// Get returns the stored document as is, without decoding or quarantining it
func (r *ProgressRepository) Get(ctx context.Context, playerID string) ([]byte, error) {
	return r.store.Get(ctx, ProgressKey(playerID))
}

// Decode parses a stored document and normalizes the record
func (r *ProgressRepository) Decode(data []byte) (*models.ProgressRecord, error) {
	return decodeProgress(data)
}

// Quarantine copies an undecodable document to a timestamped key that
// PlayerIDs does not list, and returns that key
func (r *ProgressRepository) Quarantine(ctx context.Context, playerID string, data []byte) (string, error) {
	key := corruptKeyPrefix + playerID + ":" + strconv.FormatInt(r.now().Unix(), 10)
	if err := r.store.Set(ctx, key, data); err != nil {
		return "", fmt.Errorf("failed to quarantine corrupt progress: %w", err)
	}
	return key, nil
}

func decodeProgress(data []byte) (*models.ProgressRecord, error) {
	var record models.ProgressRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("corrupt progress document: %w", err)
	}
	record.Normalize()
	return &record, nil
}

// Save writes the full record
func (r *ProgressRepository) Save(ctx context.Context, playerID string, record *models.ProgressRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode progress: %w", err)
	}
	return r.store.Set(ctx, ProgressKey(playerID), data)
}

// Delete removes the player's stored record
func (r *ProgressRepository) Delete(ctx context.Context, playerID string) error {
	return r.store.Delete(ctx, ProgressKey(playerID))
}

// Exists reports whether the player has a stored record
func (r *ProgressRepository) Exists(ctx context.Context, playerID string) (bool, error) {
	_, err := r.store.Get(ctx, ProgressKey(playerID))
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PlayerIDs lists players that have stored progress
func (r *ProgressRepository) PlayerIDs(ctx context.Context) ([]string, error) {
	keys, err := r.store.Keys(ctx, progressKeyPrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, strings.TrimPrefix(key, progressKeyPrefix))
	}
	return ids, nil
}
