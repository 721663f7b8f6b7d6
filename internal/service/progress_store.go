package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"luminexus/internal/logger"
	"luminexus/internal/models"
	"luminexus/internal/repository"
	"luminexus/internal/validation"
)

// Reward amounts
const (
	StoryCoins       = 50
	StoryXP          = 100
	GameWonCoins     = 30
	GameWonXP        = 75
	GameLostCoins    = 10
	GameLostXP       = 25
	PerfectQuizCoins = 75
	PerfectQuizXP    = 150
	AchievementCoins = 25
	AchievementXP    = 50
	ActivityCoins    = 20
	ActivityXP       = 40
	LevelUpBonus     = 100 // coins per level gained

	// MaxGrant caps the amount a single AddCoins or AddXP call may credit
	MaxGrant = 1_000_000
)

// Grant describes the rewards one operation handed out
type Grant struct {
	Coins       int  `json:"coins"`
	XP          int  `json:"xp"`
	BonusCoins  int  `json:"bonusCoins"`
	LevelBefore int  `json:"levelBefore"`
	LevelAfter  int  `json:"levelAfter"`
	Applied     bool `json:"applied"`
}

// LeveledUp reports whether the grant crossed at least one level threshold
func (g Grant) LeveledUp() bool {
	return g.LevelAfter > g.LevelBefore
}

// ProgressStore owns one player's progress record. Methods are safe for
// concurrent use; each mutation is applied to a copy and swapped in whole.
type ProgressStore struct {
	mu       sync.Mutex
	repo     *repository.ProgressRepository
	playerID string
	log      *logger.Logger
	now      func() time.Time
	record   *models.ProgressRecord
	loaded   repository.LoadResult
}

// NewProgressStore creates a store holding the default record. Call Load to
// rehydrate persisted progress.
func NewProgressStore(repo *repository.ProgressRepository, playerID string, log *logger.Logger) *ProgressStore {
	return newProgressStore(repo, playerID, log, time.Now)
}

func newProgressStore(repo *repository.ProgressRepository, playerID string, log *logger.Logger, now func() time.Time) *ProgressStore {
	return &ProgressStore{
		repo:     repo,
		playerID: playerID,
		log:      log.With("player_id", playerID),
		now:      now,
		record:   models.NewProgressRecord(now()),
	}
}

// PlayerID returns the id of the player the store belongs to
func (s *ProgressStore) PlayerID() string {
	return s.playerID
}

// Load replaces the in-memory record with the persisted one
func (s *ProgressStore) Load(ctx context.Context) repository.LoadResult {
	record, result := s.repo.Load(ctx, s.playerID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = record
	s.loaded = result
	return result
}

// LoadResult reports how the record was obtained by the last Load
func (s *ProgressStore) LoadResult() repository.LoadResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Progress returns a copy of the current record
func (s *ProgressStore) Progress() models.ProgressRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.record.Clone()
}

// AddCoins credits amount coins
func (s *ProgressStore) AddCoins(ctx context.Context, amount int) (Grant, error) {
	if amount <= 0 || amount > MaxGrant {
		return Grant{}, ErrInvalidAmount
	}
	return s.mutate(ctx, "add_coins", func(r *models.ProgressRecord) (Grant, error) {
		return reward(r, amount, 0)
	})
}

// SpendCoins deducts amount coins, failing with ErrInsufficientCoins when
// the balance is too low
func (s *ProgressStore) SpendCoins(ctx context.Context, amount int) error {
	if amount <= 0 || amount > models.MaxPoints {
		return ErrInvalidAmount
	}
	_, err := s.mutate(ctx, "spend_coins", func(r *models.ProgressRecord) (Grant, error) {
		if r.Coins < amount {
			return Grant{}, ErrInsufficientCoins
		}
		r.Coins -= amount
		return Grant{LevelBefore: r.Level, LevelAfter: r.Level, Applied: true}, nil
	})
	return err
}

// AddXP credits amount xp, levelling up as thresholds are crossed
func (s *ProgressStore) AddXP(ctx context.Context, amount int) (Grant, error) {
	if amount <= 0 || amount > MaxGrant {
		return Grant{}, ErrInvalidAmount
	}
	return s.mutate(ctx, "add_xp", func(r *models.ProgressRecord) (Grant, error) {
		return reward(r, 0, amount)
	})
}

// CompleteStory rewards the first completion of a story
func (s *ProgressStore) CompleteStory(ctx context.Context, storyID string) (Grant, error) {
	if err := validation.ValidateID("storyId", storyID); err != nil {
		return Grant{}, err
	}
	return s.mutate(ctx, "complete_story", func(r *models.ProgressRecord) (Grant, error) {
		if !r.StoriesCompleted.Add(storyID) {
			return noop(r), nil
		}
		return reward(r, StoryCoins, StoryXP)
	})
}

// RecordGamePlayed counts a mini-game and rewards it; every game counts
func (s *ProgressStore) RecordGamePlayed(ctx context.Context, won bool) (Grant, error) {
	return s.mutate(ctx, "record_game", func(r *models.ProgressRecord) (Grant, error) {
		r.GamesPlayed++
		if won {
			r.GamesWon++
			return reward(r, GameWonCoins, GameWonXP)
		}
		return reward(r, GameLostCoins, GameLostXP)
	})
}

// CompleteQuiz records the first score for a quiz and rewards it
func (s *ProgressStore) CompleteQuiz(ctx context.Context, quizID string, score int) (Grant, error) {
	if err := validation.ValidateID("quizId", quizID); err != nil {
		return Grant{}, err
	}
	if score < 0 || score > 100 {
		return Grant{}, ErrInvalidScore
	}
	return s.mutate(ctx, "complete_quiz", func(r *models.ProgressRecord) (Grant, error) {
		if !r.QuizzesCompleted.Add(quizID) {
			return noop(r), nil
		}
		r.QuizScores[quizID] = score
		coins, xp := quizReward(score)
		return reward(r, coins, xp)
	})
}

// quizReward pays a bonus for a perfect score, otherwise half the score in coins
func quizReward(score int) (coins, xp int) {
	if score == 100 {
		return PerfectQuizCoins, PerfectQuizXP
	}
	return int(math.Round(float64(score) * 0.5)), score
}

// PurchaseItem buys an item at cost
func (s *ProgressStore) PurchaseItem(ctx context.Context, itemID string, cost int) error {
	if err := validation.ValidateID("itemId", itemID); err != nil {
		return err
	}
	if cost < 0 || cost > models.MaxPoints {
		return ErrInvalidAmount
	}
	_, err := s.mutate(ctx, "purchase_item", func(r *models.ProgressRecord) (Grant, error) {
		if r.OwnedItems.Has(itemID) {
			return Grant{}, ErrAlreadyOwned
		}
		if r.Coins < cost {
			return Grant{}, ErrInsufficientCoins
		}
		r.Coins -= cost
		r.OwnedItems.Add(itemID)
		return Grant{LevelBefore: r.Level, LevelAfter: r.Level, Applied: true}, nil
	})
	return err
}

// UnlockAchievement rewards the first unlock of an achievement
func (s *ProgressStore) UnlockAchievement(ctx context.Context, achievementID string) (Grant, error) {
	if err := validation.ValidateID("achievementId", achievementID); err != nil {
		return Grant{}, err
	}
	return s.mutate(ctx, "unlock_achievement", func(r *models.ProgressRecord) (Grant, error) {
		if !r.UnlockedAchievements.Add(achievementID) {
			return noop(r), nil
		}
		return reward(r, AchievementCoins, AchievementXP)
	})
}

// CompleteActivity rewards the first completion of a hands-on activity
func (s *ProgressStore) CompleteActivity(ctx context.Context, activityID string) (Grant, error) {
	if err := validation.ValidateID("activityId", activityID); err != nil {
		return Grant{}, err
	}
	return s.mutate(ctx, "complete_activity", func(r *models.ProgressRecord) (Grant, error) {
		if !r.ActivitiesCompleted.Add(activityID) {
			return noop(r), nil
		}
		return reward(r, ActivityCoins, ActivityXP)
	})
}

// SetActiveTheme selects an owned theme, or the default one
func (s *ProgressStore) SetActiveTheme(ctx context.Context, themeID string) error {
	return s.selectOwned(ctx, "set_theme", "themeId", themeID, func(r *models.ProgressRecord) *string {
		return &r.ActiveTheme
	})
}

// SetActiveAvatar selects an owned avatar, or the default one
func (s *ProgressStore) SetActiveAvatar(ctx context.Context, avatarID string) error {
	return s.selectOwned(ctx, "set_avatar", "avatarId", avatarID, func(r *models.ProgressRecord) *string {
		return &r.ActiveAvatar
	})
}

func (s *ProgressStore) selectOwned(ctx context.Context, op, field, id string, slot func(*models.ProgressRecord) *string) error {
	if err := validation.ValidateID(field, id); err != nil {
		return err
	}
	_, err := s.mutate(ctx, op, func(r *models.ProgressRecord) (Grant, error) {
		if id != models.DefaultSelection && !r.OwnedItems.Has(id) {
			return Grant{}, ErrItemNotOwned
		}
		current := slot(r)
		if *current == id {
			return noop(r), nil
		}
		*current = id
		return Grant{LevelBefore: r.Level, LevelAfter: r.Level, Applied: true}, nil
	})
	return err
}

// ActivateBoost turns on an owned boost; activating twice keeps one entry
func (s *ProgressStore) ActivateBoost(ctx context.Context, boostID string) error {
	if err := validation.ValidateID("boostId", boostID); err != nil {
		return err
	}
	_, err := s.mutate(ctx, "activate_boost", func(r *models.ProgressRecord) (Grant, error) {
		if !r.OwnedItems.Has(boostID) {
			return Grant{}, ErrItemNotOwned
		}
		if !r.ActiveBoosts.Add(boostID) {
			return noop(r), nil
		}
		return Grant{LevelBefore: r.Level, LevelAfter: r.Level, Applied: true}, nil
	})
	return err
}

// DeactivateBoost turns a boost off; inactive boosts are ignored
func (s *ProgressStore) DeactivateBoost(ctx context.Context, boostID string) error {
	if err := validation.ValidateID("boostId", boostID); err != nil {
		return err
	}
	_, err := s.mutate(ctx, "deactivate_boost", func(r *models.ProgressRecord) (Grant, error) {
		if !r.ActiveBoosts.Remove(boostID) {
			return noop(r), nil
		}
		return Grant{LevelBefore: r.Level, LevelAfter: r.Level, Applied: true}, nil
	})
	return err
}

// Reset restores the default record and removes the persisted one
func (s *ProgressStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Delete(ctx, s.playerID); err != nil {
		return fmt.Errorf("failed to delete progress: %w", err)
	}
	s.record = models.NewProgressRecord(s.now())
	s.log.Info("Progress reset")
	return nil
}

// mutate applies fn to a copy of the record and swaps it in when fn
// succeeds with an applied change. A store whose last load could not read
// storage refuses all changes. The copy is then persisted; a failed
// write is logged and the in-memory record stays authoritative.
func (s *ProgressStore) mutate(ctx context.Context, op string, fn func(*models.ProgressRecord) (Grant, error)) (Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded.ReadFailed() {
		return Grant{}, fmt.Errorf("%w: %w", ErrProgressUnavailable, s.loaded.Err)
	}

	next := s.record.Clone()
	grant, err := fn(next)
	if err != nil {
		return Grant{}, err
	}
	if !grant.Applied {
		return grant, nil
	}

	next.LastActive = s.now().Format(time.RFC3339)
	s.record = next

	if err := s.repo.Save(ctx, s.playerID, next); err != nil {
		s.log.Warn("Failed to persist progress", "op", op, "error", err)
	}
	return grant, nil
}

// reward credits coins and xp, recomputes the level and pays the level-up
// bonus. Bonus coins are not counted in totalPoints. A grant that would push
// a counter past models.MaxPoints fails with ErrInvalidAmount and leaves r
// untouched.
func reward(r *models.ProgressRecord, coins, xp int) (Grant, error) {
	g := Grant{Coins: coins, XP: xp, LevelBefore: r.Level, Applied: true}

	if xp > models.MaxPoints-r.XP || coins+xp > models.MaxPoints-r.TotalPoints {
		return Grant{}, ErrInvalidAmount
	}
	level := models.LevelForXP(r.XP + xp)
	bonus := 0
	if level > r.Level {
		bonus = LevelUpBonus * (level - r.Level)
	}
	if coins+bonus > models.MaxPoints-r.Coins {
		return Grant{}, ErrInvalidAmount
	}

	r.Coins += coins + bonus
	r.XP += xp
	r.Level = level
	r.TotalPoints += coins + xp

	g.BonusCoins = bonus
	g.LevelAfter = r.Level
	return g, nil
}

func noop(r *models.ProgressRecord) Grant {
	return Grant{LevelBefore: r.Level, LevelAfter: r.Level}
}
