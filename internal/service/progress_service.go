package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"luminexus/internal/catalog"
	"luminexus/internal/logger"
	"luminexus/internal/models"
	"luminexus/internal/repository"
	"luminexus/internal/validation"
)

// Outcome is the result of a progress operation: what it granted, which
// achievements it unlocked along the way and the record afterwards
type Outcome struct {
	Grant        Grant                 `json:"grant"`
	Achievements []catalog.Achievement `json:"achievements"`
	Progress     models.ProgressRecord `json:"progress"`
}

// ProgressService keeps one ProgressStore per player and layers the
// catalog rules (prices, achievements) and parent notifications on top
type ProgressService struct {
	repo     *repository.ProgressRepository
	players  *PlayerService
	catalog  *catalog.Catalog
	notifier Notifier
	log      *logger.Logger

	mu     sync.Mutex
	stores map[string]*ProgressStore
	opens  singleflight.Group
}

// NewProgressService creates the service; notifier may be nil
func NewProgressService(repo *repository.ProgressRepository, players *PlayerService, cat *catalog.Catalog, notifier Notifier, log *logger.Logger) *ProgressService {
	return &ProgressService{
		repo:     repo,
		players:  players,
		catalog:  cat,
		notifier: notifier,
		log:      log.With("component", "progress"),
		stores:   make(map[string]*ProgressStore),
	}
}

// Catalog returns the shop and achievement catalog
func (s *ProgressService) Catalog() *catalog.Catalog {
	return s.catalog
}

// Store returns the player's store, loading it on first use
func (s *ProgressService) Store(ctx context.Context, playerID string) (*ProgressStore, error) {
	if err := validation.ValidateID("playerId", playerID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	store, ok := s.stores[playerID]
	s.mu.Unlock()
	if ok {
		return store, nil
	}

	// The load is shared by every caller waiting on this player, so one
	// caller's cancellation must not fail it for the rest
	loadCtx := context.WithoutCancel(ctx)

	v, err, _ := s.opens.Do(playerID, func() (interface{}, error) {
		s.mu.Lock()
		if store, ok := s.stores[playerID]; ok {
			s.mu.Unlock()
			return store, nil
		}
		s.mu.Unlock()

		store := NewProgressStore(s.repo, playerID, s.log)
		result := store.Load(loadCtx)
		if result.ReadFailed() {
			s.log.Error("Progress unavailable", "player_id", playerID, "error", result.Err)
			return nil, fmt.Errorf("%w: %w", ErrProgressUnavailable, result.Err)
		}
		switch result.Status {
		case repository.LoadDegraded:
			s.log.Warn("Progress loaded in degraded mode",
				"player_id", playerID, "error", result.Err, "quarantine_key", result.QuarantineKey)
		default:
			s.log.Debug("Progress loaded", "player_id", playerID, "status", result.Status.String())
		}

		s.mu.Lock()
		s.stores[playerID] = store
		s.mu.Unlock()
		return store, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ProgressStore), nil
}

// Progress returns a copy of the player's record
func (s *ProgressService) Progress(ctx context.Context, playerID string) (models.ProgressRecord, error) {
	store, err := s.Store(ctx, playerID)
	if err != nil {
		return models.ProgressRecord{}, err
	}
	return store.Progress(), nil
}

// AddCoins credits coins
func (s *ProgressService) AddCoins(ctx context.Context, playerID string, amount int) (*Outcome, error) {
	return s.rewarded(ctx, playerID, func(st *ProgressStore) (Grant, error) {
		return st.AddCoins(ctx, amount)
	})
}

// SpendCoins deducts coins
func (s *ProgressService) SpendCoins(ctx context.Context, playerID string, amount int) (*Outcome, error) {
	return s.plain(ctx, playerID, func(st *ProgressStore) error {
		return st.SpendCoins(ctx, amount)
	})
}

// AddXP credits xp
func (s *ProgressService) AddXP(ctx context.Context, playerID string, amount int) (*Outcome, error) {
	return s.rewarded(ctx, playerID, func(st *ProgressStore) (Grant, error) {
		return st.AddXP(ctx, amount)
	})
}

// CompleteStory rewards a story's first completion
func (s *ProgressService) CompleteStory(ctx context.Context, playerID, storyID string) (*Outcome, error) {
	return s.rewarded(ctx, playerID, func(st *ProgressStore) (Grant, error) {
		return st.CompleteStory(ctx, storyID)
	})
}

// RecordGamePlayed rewards a finished mini-game
func (s *ProgressService) RecordGamePlayed(ctx context.Context, playerID string, won bool) (*Outcome, error) {
	return s.rewarded(ctx, playerID, func(st *ProgressStore) (Grant, error) {
		return st.RecordGamePlayed(ctx, won)
	})
}

// CompleteQuiz rewards a quiz's first completion
func (s *ProgressService) CompleteQuiz(ctx context.Context, playerID, quizID string, score int) (*Outcome, error) {
	return s.rewarded(ctx, playerID, func(st *ProgressStore) (Grant, error) {
		return st.CompleteQuiz(ctx, quizID, score)
	})
}

// CompleteActivity rewards an activity's first completion
func (s *ProgressService) CompleteActivity(ctx context.Context, playerID, activityID string) (*Outcome, error) {
	return s.rewarded(ctx, playerID, func(st *ProgressStore) (Grant, error) {
		return st.CompleteActivity(ctx, activityID)
	})
}

// UnlockAchievement unlocks a catalog achievement
func (s *ProgressService) UnlockAchievement(ctx context.Context, playerID, achievementID string) (*Outcome, error) {
	achievement, ok := s.catalog.Achievement(achievementID)
	if !ok {
		return nil, ErrUnknownAchievement
	}
	outcome, err := s.rewarded(ctx, playerID, func(st *ProgressStore) (Grant, error) {
		return st.UnlockAchievement(ctx, achievementID)
	})
	if err != nil {
		return nil, err
	}
	if outcome.Grant.Applied {
		outcome.Achievements = append([]catalog.Achievement{achievement}, outcome.Achievements...)
		s.notify(ctx, playerID, func(n Notifier, p *models.Player) { n.AchievementUnlocked(p, achievement) })
	}
	return outcome, nil
}

// Purchase buys a catalog item at its catalog price
func (s *ProgressService) Purchase(ctx context.Context, playerID, itemID string) (*Outcome, error) {
	item, ok := s.catalog.Item(itemID)
	if !ok {
		return nil, ErrUnknownItem
	}
	outcome, err := s.plain(ctx, playerID, func(st *ProgressStore) error {
		return st.PurchaseItem(ctx, item.ID, item.Cost)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Item purchased", "player_id", playerID, "item_id", item.ID, "cost", item.Cost)
	return outcome, nil
}

// Equip selects an owned item according to its kind
func (s *ProgressService) Equip(ctx context.Context, playerID, itemID string) (*Outcome, error) {
	item, ok := s.catalog.Item(itemID)
	if !ok {
		return nil, ErrUnknownItem
	}
	return s.plain(ctx, playerID, func(st *ProgressStore) error {
		switch item.Kind {
		case catalog.KindTheme:
			return st.SetActiveTheme(ctx, item.ID)
		case catalog.KindAvatar:
			return st.SetActiveAvatar(ctx, item.ID)
		default:
			return st.ActivateBoost(ctx, item.ID)
		}
	})
}

// SetActiveTheme selects a theme; "default" is always allowed
func (s *ProgressService) SetActiveTheme(ctx context.Context, playerID, themeID string) (*Outcome, error) {
	if err := s.checkKind(themeID, catalog.KindTheme); err != nil {
		return nil, err
	}
	return s.plain(ctx, playerID, func(st *ProgressStore) error {
		return st.SetActiveTheme(ctx, themeID)
	})
}

// SetActiveAvatar selects an avatar; "default" is always allowed
func (s *ProgressService) SetActiveAvatar(ctx context.Context, playerID, avatarID string) (*Outcome, error) {
	if err := s.checkKind(avatarID, catalog.KindAvatar); err != nil {
		return nil, err
	}
	return s.plain(ctx, playerID, func(st *ProgressStore) error {
		return st.SetActiveAvatar(ctx, avatarID)
	})
}

// ActivateBoost turns on an owned boost
func (s *ProgressService) ActivateBoost(ctx context.Context, playerID, boostID string) (*Outcome, error) {
	if err := s.checkKind(boostID, catalog.KindBoost); err != nil {
		return nil, err
	}
	return s.plain(ctx, playerID, func(st *ProgressStore) error {
		return st.ActivateBoost(ctx, boostID)
	})
}

// DeactivateBoost turns off a boost
func (s *ProgressService) DeactivateBoost(ctx context.Context, playerID, boostID string) (*Outcome, error) {
	return s.plain(ctx, playerID, func(st *ProgressStore) error {
		return st.DeactivateBoost(ctx, boostID)
	})
}

// checkKind rejects ids that are not catalog items of kind. The default
// selection passes for themes and avatars.
func (s *ProgressService) checkKind(id string, kind catalog.ItemKind) error {
	if id == models.DefaultSelection && kind != catalog.KindBoost {
		return nil
	}
	item, ok := s.catalog.Item(id)
	if !ok || item.Kind != kind {
		return ErrUnknownItem
	}
	return nil
}

// Reset wipes the player's progress after checking the parent PIN
func (s *ProgressService) Reset(ctx context.Context, playerID, pin string) (*Outcome, error) {
	player, err := s.players.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if err := s.players.VerifyPIN(player, pin); err != nil {
		return nil, err
	}

	store, err := s.Store(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if err := store.Reset(ctx); err != nil {
		return nil, err
	}
	return &Outcome{Progress: store.Progress(), Achievements: []catalog.Achievement{}}, nil
}

// Evict drops the cached store so the next access reloads from storage
func (s *ProgressService) Evict(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stores, playerID)
}

func (s *ProgressService) plain(ctx context.Context, playerID string, op func(*ProgressStore) error) (*Outcome, error) {
	return s.rewarded(ctx, playerID, func(st *ProgressStore) (Grant, error) {
		before := st.Progress()
		if err := op(st); err != nil {
			return Grant{}, err
		}
		return Grant{LevelBefore: before.Level, LevelAfter: before.Level, Applied: true}, nil
	})
}

// rewarded runs op, then unlocks any achievements the new record meets
// and forwards milestones to the notifier
func (s *ProgressService) rewarded(ctx context.Context, playerID string, op func(*ProgressStore) (Grant, error)) (*Outcome, error) {
	store, err := s.Store(ctx, playerID)
	if err != nil {
		return nil, err
	}

	grant, err := op(store)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{Grant: grant, Achievements: []catalog.Achievement{}}
	levelBefore := grant.LevelBefore
	levelAfter := grant.LevelAfter

	if grant.Applied {
		unlocked, last, err := s.unlockEarned(ctx, store)
		if err != nil {
			return nil, err
		}
		outcome.Achievements = unlocked
		if last > levelAfter {
			levelAfter = last
		}
	}

	outcome.Progress = store.Progress()

	if levelAfter > levelBefore {
		s.log.Info("Level up", "player_id", playerID, "level", levelAfter)
		s.notify(ctx, playerID, func(n Notifier, p *models.Player) { n.LevelUp(p, levelAfter) })
	}
	for _, ach := range outcome.Achievements {
		achievement := ach
		s.notify(ctx, playerID, func(n Notifier, p *models.Player) { n.AchievementUnlocked(p, achievement) })
	}
	return outcome, nil
}

// unlockEarned unlocks every catalog achievement the record now meets.
// Unlock rewards can satisfy further achievements, so it repeats until
// nothing new is met. It returns the unlocked achievements and the final level.
func (s *ProgressService) unlockEarned(ctx context.Context, store *ProgressStore) ([]catalog.Achievement, int, error) {
	unlocked := []catalog.Achievement{}
	record := store.Progress()
	level := record.Level

	for {
		newly := s.catalog.Newly(&record)
		if len(newly) == 0 {
			return unlocked, level, nil
		}
		progressed := false
		for _, ach := range newly {
			grant, err := store.UnlockAchievement(ctx, ach.ID)
			if err != nil {
				return nil, level, err
			}
			if grant.Applied {
				progressed = true
				unlocked = append(unlocked, ach)
				s.log.Info("Achievement unlocked", "player_id", store.PlayerID(), "achievement_id", ach.ID)
			}
			if grant.LevelAfter > level {
				level = grant.LevelAfter
			}
		}
		if !progressed {
			return unlocked, level, nil
		}
		record = store.Progress()
	}
}

func (s *ProgressService) notify(ctx context.Context, playerID string, fn func(Notifier, *models.Player)) {
	if s.notifier == nil {
		return
	}
	player, err := s.players.Get(ctx, playerID)
	if err != nil {
		if !errors.Is(err, repository.ErrPlayerNotFound) {
			s.log.Warn("Failed to load player for notification", "player_id", playerID, "error", err)
		}
		return
	}
	fn(s.notifier, player)
}
