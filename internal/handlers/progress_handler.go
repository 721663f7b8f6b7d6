package handlers

import (
	"net/http"

	"luminexus/internal/logger"
	"luminexus/internal/service"
)

// ProgressHandler serves the progression API
type ProgressHandler struct {
	progress *service.ProgressService
	log      *logger.Logger
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(progress *service.ProgressService, log *logger.Logger) *ProgressHandler {
	return &ProgressHandler{progress: progress, log: log}
}

type amountRequest struct {
	Amount int `json:"amount"`
}

type gameRequest struct {
	Won bool `json:"won"`
}

type quizRequest struct {
	Score *int `json:"score"`
}

type selectionRequest struct {
	ItemID string `json:"itemId"`
}

type resetRequest struct {
	PIN string `json:"pin"`
}

// GetProgress returns the player's record with level progress
func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	record, err := h.progress.Progress(r.Context(), PlayerIDFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to load progress", err)
		return
	}
	respondWithJSON(w, http.StatusOK, newProgressView(record))
}

func (h *ProgressHandler) AddCoins(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}
	h.respond(w, "Failed to add coins")(h.progress.AddCoins(r.Context(), PlayerIDFromContext(r.Context()), req.Amount))
}

func (h *ProgressHandler) SpendCoins(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}
	h.respond(w, "Failed to spend coins")(h.progress.SpendCoins(r.Context(), PlayerIDFromContext(r.Context()), req.Amount))
}

func (h *ProgressHandler) AddXP(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}
	h.respond(w, "Failed to add xp")(h.progress.AddXP(r.Context(), PlayerIDFromContext(r.Context()), req.Amount))
}

func (h *ProgressHandler) CompleteStory(w http.ResponseWriter, r *http.Request) {
	h.respond(w, "Failed to complete story")(h.progress.CompleteStory(r.Context(), PlayerIDFromContext(r.Context()), r.PathValue("id")))
}

func (h *ProgressHandler) RecordGame(w http.ResponseWriter, r *http.Request) {
	var req gameRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}
	h.respond(w, "Failed to record game")(h.progress.RecordGamePlayed(r.Context(), PlayerIDFromContext(r.Context()), req.Won))
}

func (h *ProgressHandler) CompleteQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if err := decodeJSON(w, r, &req, false); err != nil || req.Score == nil {
		respondWithError(w, h.log, http.StatusBadRequest, "score is required", "", nil)
		return
	}
	h.respond(w, "Failed to complete quiz")(h.progress.CompleteQuiz(r.Context(), PlayerIDFromContext(r.Context()), r.PathValue("id"), *req.Score))
}

func (h *ProgressHandler) CompleteActivity(w http.ResponseWriter, r *http.Request) {
	h.respond(w, "Failed to complete activity")(h.progress.CompleteActivity(r.Context(), PlayerIDFromContext(r.Context()), r.PathValue("id")))
}

func (h *ProgressHandler) UnlockAchievement(w http.ResponseWriter, r *http.Request) {
	h.respond(w, "Failed to unlock achievement")(h.progress.UnlockAchievement(r.Context(), PlayerIDFromContext(r.Context()), r.PathValue("id")))
}

func (h *ProgressHandler) SetTheme(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}
	h.respond(w, "Failed to set theme")(h.progress.SetActiveTheme(r.Context(), PlayerIDFromContext(r.Context()), req.ItemID))
}

func (h *ProgressHandler) SetAvatar(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}
	h.respond(w, "Failed to set avatar")(h.progress.SetActiveAvatar(r.Context(), PlayerIDFromContext(r.Context()), req.ItemID))
}

func (h *ProgressHandler) ActivateBoost(w http.ResponseWriter, r *http.Request) {
	h.respond(w, "Failed to activate boost")(h.progress.ActivateBoost(r.Context(), PlayerIDFromContext(r.Context()), r.PathValue("id")))
}

func (h *ProgressHandler) DeactivateBoost(w http.ResponseWriter, r *http.Request) {
	h.respond(w, "Failed to deactivate boost")(h.progress.DeactivateBoost(r.Context(), PlayerIDFromContext(r.Context()), r.PathValue("id")))
}

// Reset wipes the player's progress; a parent PIN is required when set
func (h *ProgressHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}
	h.respond(w, "Failed to reset progress")(h.progress.Reset(r.Context(), PlayerIDFromContext(r.Context()), req.PIN))
}

// respond writes an operation's outcome or its error
func (h *ProgressHandler) respond(w http.ResponseWriter, logMsg string) func(*service.Outcome, error) {
	return func(outcome *service.Outcome, err error) {
		if err != nil {
			respondWithServiceError(w, h.log, logMsg, err)
			return
		}
		respondWithJSON(w, http.StatusOK, newOutcomeView(outcome))
	}
}
