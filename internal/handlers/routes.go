package handlers

import (
	"net/http"

	"luminexus/internal/logger"
	"luminexus/internal/service"
)

// RouterDeps holds what the HTTP API needs
type RouterDeps struct {
	Players    *service.PlayerService
	Progress   *service.ProgressService
	Middleware *Middleware
	Startup    *StartupStatus
	Log        *logger.Logger
}

// NewRouter registers every route and wraps the mux in the common middleware
func NewRouter(deps RouterDeps) http.Handler {
	m := deps.Middleware
	playerHandler := NewPlayerHandler(deps.Players, deps.Progress, deps.Log)
	progressHandler := NewProgressHandler(deps.Progress, deps.Log)
	shopHandler := NewShopHandler(deps.Progress, deps.Log)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", deps.Startup.Health)

	mux.HandleFunc("POST /api/players", m.RateLimit(playerHandler.Register))
	mux.HandleFunc("GET /api/players/me", m.RequirePlayer(playerHandler.Me))

	mux.HandleFunc("GET /api/progress", m.RequirePlayer(progressHandler.GetProgress))
	mux.HandleFunc("POST /api/progress/coins", m.RequirePlayer(progressHandler.AddCoins))
	mux.HandleFunc("POST /api/progress/coins/spend", m.RequirePlayer(progressHandler.SpendCoins))
	mux.HandleFunc("POST /api/progress/xp", m.RequirePlayer(progressHandler.AddXP))
	mux.HandleFunc("POST /api/progress/stories/{id}/complete", m.RequirePlayer(progressHandler.CompleteStory))
	mux.HandleFunc("POST /api/progress/games", m.RequirePlayer(progressHandler.RecordGame))
	mux.HandleFunc("POST /api/progress/quizzes/{id}/complete", m.RequirePlayer(progressHandler.CompleteQuiz))
	mux.HandleFunc("POST /api/progress/activities/{id}/complete", m.RequirePlayer(progressHandler.CompleteActivity))
	mux.HandleFunc("POST /api/progress/achievements/{id}/unlock", m.RequirePlayer(progressHandler.UnlockAchievement))
	mux.HandleFunc("POST /api/progress/theme", m.RequirePlayer(progressHandler.SetTheme))
	mux.HandleFunc("POST /api/progress/avatar", m.RequirePlayer(progressHandler.SetAvatar))
	mux.HandleFunc("POST /api/progress/boosts/{id}", m.RequirePlayer(progressHandler.ActivateBoost))
	mux.HandleFunc("DELETE /api/progress/boosts/{id}", m.RequirePlayer(progressHandler.DeactivateBoost))
	mux.HandleFunc("POST /api/progress/reset", m.RequirePlayer(progressHandler.Reset))

	mux.HandleFunc("GET /api/shop", m.RequirePlayer(shopHandler.ListItems))
	mux.HandleFunc("POST /api/shop/{id}/purchase", m.RequirePlayer(shopHandler.Purchase))
	mux.HandleFunc("POST /api/shop/{id}/equip", m.RequirePlayer(shopHandler.Equip))
	mux.HandleFunc("GET /api/achievements", m.RequirePlayer(shopHandler.ListAchievements))

	return Recover(deps.Log, Logging(deps.Log, deps.Startup.RequireReady(mux)))
}
