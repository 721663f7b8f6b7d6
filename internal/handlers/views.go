package handlers

import (
	"luminexus/internal/catalog"
	"luminexus/internal/models"
	"luminexus/internal/service"
)

// ProgressView is a progress record plus derived level progress
type ProgressView struct {
	models.ProgressRecord
	XPForNextLevel       int     `json:"xpForNextLevel"`
	LevelProgressPercent float64 `json:"levelProgressPercent"`
}

func newProgressView(record models.ProgressRecord) ProgressView {
	return ProgressView{
		ProgressRecord:       record,
		XPForNextLevel:       record.XPForNextLevel(),
		LevelProgressPercent: record.LevelProgressPercent(),
	}
}

type outcomeView struct {
	Grant        service.Grant         `json:"grant"`
	Achievements []catalog.Achievement `json:"achievements"`
	Progress     ProgressView          `json:"progress"`
}

func newOutcomeView(o *service.Outcome) outcomeView {
	return outcomeView{
		Grant:        o.Grant,
		Achievements: o.Achievements,
		Progress:     newProgressView(o.Progress),
	}
}

type playerView struct {
	ID             string `json:"id"`
	DisplayName    string `json:"displayName"`
	HasParentEmail bool   `json:"hasParentEmail"`
	HasParentPIN   bool   `json:"hasParentPin"`
}

func newPlayerView(p *models.Player) playerView {
	return playerView{
		ID:             p.ID,
		DisplayName:    p.DisplayName,
		HasParentEmail: p.ParentEmail != "",
		HasParentPIN:   p.HasParentPIN(),
	}
}

type shopItemView struct {
	catalog.Item
	Owned  bool `json:"owned"`
	Active bool `json:"active"`
}

type achievementView struct {
	catalog.Achievement
	Unlocked bool `json:"unlocked"`
}
