package models

import (
	"encoding/json"
	"slices"
	"time"
)

// DefaultSelection is the theme and avatar every player starts with
const DefaultSelection = "default"

// IDList is an insertion-ordered set of ids, stored as a JSON array
type IDList []string

// Has reports whether id is in the list
func (l IDList) Has(id string) bool {
	return slices.Contains(l, id)
}

// Add appends id if it is not already present and reports whether it was added
func (l *IDList) Add(id string) bool {
	if l.Has(id) {
		return false
	}
	*l = append(*l, id)
	return true
}

// Remove drops id from the list and reports whether it was present
func (l *IDList) Remove(id string) bool {
	idx := slices.Index(*l, id)
	if idx < 0 {
		return false
	}
	*l = slices.Delete(*l, idx, idx+1)
	return true
}

// MarshalJSON always writes an array, never null
func (l IDList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// ProgressRecord is a player's complete economy state
type ProgressRecord struct {
	Coins                int            `json:"coins"`
	XP                   int            `json:"xp"`
	Level                int            `json:"level"`
	StoriesCompleted     IDList         `json:"storiesCompleted"`
	GamesPlayed          int            `json:"gamesPlayed"`
	GamesWon             int            `json:"gamesWon"`
	QuizzesCompleted     IDList         `json:"quizzesCompleted"`
	QuizScores           map[string]int `json:"quizScores"`
	ActivitiesCompleted  IDList         `json:"activitiesCompleted"`
	OwnedItems           IDList         `json:"ownedItems"`
	ActiveTheme          string         `json:"activeTheme"`
	ActiveAvatar         string         `json:"activeAvatar"`
	ActiveBoosts         IDList         `json:"activeBoosts"`
	UnlockedAchievements IDList         `json:"unlockedAchievements"`
	TotalPoints          int            `json:"totalPoints"`
	JoinDate             string         `json:"joinDate"`
	LastActive           string         `json:"lastActive"`
}

// NewProgressRecord returns the default record for a player who joined at now
func NewProgressRecord(now time.Time) *ProgressRecord {
	return &ProgressRecord{
		Level:                1,
		StoriesCompleted:     IDList{},
		QuizzesCompleted:     IDList{},
		QuizScores:           map[string]int{},
		ActivitiesCompleted:  IDList{},
		OwnedItems:           IDList{},
		ActiveTheme:          DefaultSelection,
		ActiveAvatar:         DefaultSelection,
		ActiveBoosts:         IDList{},
		UnlockedAchievements: IDList{},
		JoinDate:             now.Format(time.DateOnly),
		LastActive:           now.Format(time.RFC3339),
	}
}

// Clone returns a deep copy of the record
func (r *ProgressRecord) Clone() *ProgressRecord {
	c := *r
	c.StoriesCompleted = slices.Clone(r.StoriesCompleted)
	c.QuizzesCompleted = slices.Clone(r.QuizzesCompleted)
	c.ActivitiesCompleted = slices.Clone(r.ActivitiesCompleted)
	c.OwnedItems = slices.Clone(r.OwnedItems)
	c.ActiveBoosts = slices.Clone(r.ActiveBoosts)
	c.UnlockedAchievements = slices.Clone(r.UnlockedAchievements)
	if r.QuizScores != nil {
		c.QuizScores = make(map[string]int, len(r.QuizScores))
		for id, score := range r.QuizScores {
			c.QuizScores[id] = score
		}
	}
	return &c
}

// Normalize repairs a decoded record so the store invariants hold:
// nil collections become empty, counters are clamped to [0, MaxPoints]
// and the level is rederived from xp.
func (r *ProgressRecord) Normalize() {
	r.Coins = clampPoints(r.Coins)
	r.XP = clampPoints(r.XP)
	r.TotalPoints = clampPoints(r.TotalPoints)

	for _, l := range []*IDList{
		&r.StoriesCompleted, &r.QuizzesCompleted, &r.ActivitiesCompleted,
		&r.OwnedItems, &r.ActiveBoosts, &r.UnlockedAchievements,
	} {
		if *l == nil {
			*l = IDList{}
		}
	}
	if r.QuizScores == nil {
		r.QuizScores = map[string]int{}
	}
	if r.ActiveTheme == "" {
		r.ActiveTheme = DefaultSelection
	}
	if r.ActiveAvatar == "" {
		r.ActiveAvatar = DefaultSelection
	}
	r.Level = LevelForXP(r.XP)
}

// PerfectQuizzes counts quizzes completed with a score of 100
func (r *ProgressRecord) PerfectQuizzes() int {
	count := 0
	for _, score := range r.QuizScores {
		if score == 100 {
			count++
		}
	}
	return count
}

// XPForNextLevel is the xp still needed to reach the next level
func (r *ProgressRecord) XPForNextLevel() int {
	return XPForNextLevel(r.XP, r.Level)
}

// LevelProgressPercent is how full the current level's xp band is
func (r *ProgressRecord) LevelProgressPercent() float64 {
	return LevelProgressPercent(r.XP, r.Level)
}
