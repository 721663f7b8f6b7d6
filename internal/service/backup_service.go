package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"luminexus/internal/logger"
	"luminexus/internal/models"
	"luminexus/internal/repository"
	"luminexus/internal/validation"
)

// BackupVersion is the format version written by Export
const BackupVersion = "1.0"

// BackupData is the complete exported state
type BackupData struct {
	Version     string         `json:"version"`
	ExportedAt  time.Time      `json:"exportedAt"`
	StorageType string         `json:"storageType"`
	Players     []PlayerBackup `json:"players"`
}

// PlayerBackup holds one player's profile and progress. Player is absent
// for progress that was stored without a registered player. A stored
// document that does not decode is carried byte for byte in CorruptProgress.
type PlayerBackup struct {
	PlayerID        string                 `json:"playerId"`
	Player          *models.Player         `json:"player,omitempty"`
	Progress        *models.ProgressRecord `json:"progress,omitempty"`
	CorruptProgress []byte                 `json:"corruptProgress,omitempty"`
}

// ImportStats counts what an import wrote
type ImportStats struct {
	Profiles    int
	Progress    int
	Quarantined int
}

// BackupService exports and restores players and their progress
type BackupService struct {
	players     *repository.PlayerRepository
	progress    *repository.ProgressRepository
	storageType string
	log         *logger.Logger
	now         func() time.Time
}

// NewBackupService creates a backup service
func NewBackupService(players *repository.PlayerRepository, progress *repository.ProgressRepository, storageType string, log *logger.Logger) *BackupService {
	return &BackupService{
		players:     players,
		progress:    progress,
		storageType: storageType,
		log:         log.With("component", "backup"),
		now:         time.Now,
	}
}

// Export writes every player as indented JSON to w
func (s *BackupService) Export(ctx context.Context, w io.Writer) (*BackupData, error) {
	s.log.Info("Starting export")

	backup := &BackupData{
		Version:     BackupVersion,
		ExportedAt:  s.now().UTC(),
		StorageType: s.storageType,
		Players:     []PlayerBackup{},
	}

	entries := make(map[string]*PlayerBackup)

	profiles, err := s.players.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export players: %w", err)
	}
	for i := range profiles {
		entries[profiles[i].ID] = &PlayerBackup{PlayerID: profiles[i].ID, Player: &profiles[i]}
	}

	ids, err := s.progress.PlayerIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export progress: %w", err)
	}
	corrupt := 0
	for _, id := range ids {
		data, err := s.progress.Get(ctx, id)
		if errors.Is(err, repository.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to export progress for %s: %w", id, err)
		}

		entry, ok := entries[id]
		if !ok {
			entry = &PlayerBackup{PlayerID: id}
			entries[id] = entry
		}

		record, err := s.progress.Decode(data)
		if err != nil {
			s.log.Warn("Exporting undecodable progress as is", "player_id", id, "error", err)
			entry.CorruptProgress = data
			corrupt++
			continue
		}
		entry.Progress = record
	}

	for _, entry := range entries {
		backup.Players = append(backup.Players, *entry)
	}
	sort.Slice(backup.Players, func(i, j int) bool {
		return backup.Players[i].PlayerID < backup.Players[j].PlayerID
	})

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}

	s.log.Info("Export complete", "players", len(backup.Players), "corrupt_progress", corrupt)
	return backup, nil
}

// Import restores players from a backup written by Export. Existing
// entries with the same ids are overwritten.
func (s *BackupService) Import(ctx context.Context, r io.Reader) (*ImportStats, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != BackupVersion {
		return nil, fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	s.log.Info("Starting import", "exported_at", backup.ExportedAt, "players", len(backup.Players))

	stats := &ImportStats{}
	for _, entry := range backup.Players {
		if err := validation.ValidateID("playerId", entry.PlayerID); err != nil {
			return stats, err
		}

		if entry.Player != nil {
			if entry.Player.ID != entry.PlayerID {
				return stats, fmt.Errorf("profile id %q does not match player %q", entry.Player.ID, entry.PlayerID)
			}
			if err := s.players.Save(ctx, entry.Player); err != nil {
				return stats, fmt.Errorf("failed to import player %s: %w", entry.PlayerID, err)
			}
			stats.Profiles++
		}

		if entry.Progress != nil {
			entry.Progress.Normalize()
			if err := s.progress.Save(ctx, entry.PlayerID, entry.Progress); err != nil {
				return stats, fmt.Errorf("failed to import progress for %s: %w", entry.PlayerID, err)
			}
			stats.Progress++
		} else if len(entry.CorruptProgress) > 0 {
			key, err := s.progress.Quarantine(ctx, entry.PlayerID, entry.CorruptProgress)
			if err != nil {
				return stats, fmt.Errorf("failed to import progress for %s: %w", entry.PlayerID, err)
			}
			s.log.Warn("Imported undecodable progress into quarantine", "player_id", entry.PlayerID, "key", key)
			stats.Quarantined++
		}
	}

	s.log.Info("Import complete", "profiles", stats.Profiles, "progress", stats.Progress, "quarantined", stats.Quarantined)
	return stats, nil
}

// Clear deletes every stored player and progress record
func (s *BackupService) Clear(ctx context.Context) error {
	profiles, err := s.players.List(ctx)
	if err != nil {
		return err
	}
	ids, err := s.progress.PlayerIDs(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, p := range profiles {
		errs = append(errs, s.players.Delete(ctx, p.ID))
	}
	for _, id := range ids {
		errs = append(errs, s.progress.Delete(ctx, id))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to clear data: %w", err)
	}

	s.log.Info("Cleared existing data", "profiles", len(profiles), "progress", len(ids))
	return nil
}
