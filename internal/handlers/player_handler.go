package handlers

import (
	"net/http"

	"luminexus/internal/logger"
	"luminexus/internal/service"
)

// PlayerHandler registers players
type PlayerHandler struct {
	players  *service.PlayerService
	progress *service.ProgressService
	log      *logger.Logger
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(players *service.PlayerService, progress *service.ProgressService, log *logger.Logger) *PlayerHandler {
	return &PlayerHandler{players: players, progress: progress, log: log}
}

type registerRequest struct {
	DisplayName string `json:"displayName"`
	ParentEmail string `json:"parentEmail"`
	ParentPIN   string `json:"parentPin"`
}

type registerResponse struct {
	Player   playerView   `json:"player"`
	Token    string       `json:"token"`
	Progress ProgressView `json:"progress"`
}

// Register creates a player and returns its token and starting progress
func (h *PlayerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	reg, err := h.players.Register(r.Context(), service.RegisterInput{
		DisplayName: req.DisplayName,
		ParentEmail: req.ParentEmail,
		ParentPIN:   req.ParentPIN,
	})
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to register player", err)
		return
	}

	record, err := h.progress.Progress(r.Context(), reg.Player.ID)
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to load progress", err)
		return
	}

	respondWithJSON(w, http.StatusCreated, registerResponse{
		Player:   newPlayerView(reg.Player),
		Token:    reg.Token,
		Progress: newProgressView(record),
	})
}

// Me returns the authenticated player's profile
func (h *PlayerHandler) Me(w http.ResponseWriter, r *http.Request) {
	player, err := h.players.Get(r.Context(), PlayerIDFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to load player", err)
		return
	}
	respondWithJSON(w, http.StatusOK, newPlayerView(player))
}
