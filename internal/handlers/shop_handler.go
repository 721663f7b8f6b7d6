package handlers

import (
	"net/http"

	"luminexus/internal/logger"
	"luminexus/internal/service"
)

// ShopHandler serves the shop and the achievement list
type ShopHandler struct {
	progress *service.ProgressService
	log      *logger.Logger
}

// NewShopHandler creates a new shop handler
func NewShopHandler(progress *service.ProgressService, log *logger.Logger) *ShopHandler {
	return &ShopHandler{progress: progress, log: log}
}

// ListItems returns the catalog items with the player's ownership
func (h *ShopHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	record, err := h.progress.Progress(r.Context(), PlayerIDFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to load progress", err)
		return
	}

	items := h.progress.Catalog().Items()
	views := make([]shopItemView, 0, len(items))
	for _, item := range items {
		views = append(views, shopItemView{
			Item:   item,
			Owned:  record.OwnedItems.Has(item.ID),
			Active: item.ID == record.ActiveTheme || item.ID == record.ActiveAvatar || record.ActiveBoosts.Has(item.ID),
		})
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"coins": record.Coins,
		"items": views,
	})
}

// Purchase buys an item at its catalog price
func (h *ShopHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.progress.Purchase(r.Context(), PlayerIDFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to purchase item", err)
		return
	}
	respondWithJSON(w, http.StatusOK, newOutcomeView(outcome))
}

// Equip selects an owned item by its kind
func (h *ShopHandler) Equip(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.progress.Equip(r.Context(), PlayerIDFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to equip item", err)
		return
	}
	respondWithJSON(w, http.StatusOK, newOutcomeView(outcome))
}

// ListAchievements returns the catalog achievements with unlock state
func (h *ShopHandler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	record, err := h.progress.Progress(r.Context(), PlayerIDFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to load progress", err)
		return
	}

	achievements := h.progress.Catalog().Achievements()
	views := make([]achievementView, 0, len(achievements))
	for _, ach := range achievements {
		views = append(views, achievementView{
			Achievement: ach,
			Unlocked:    record.UnlockedAchievements.Has(ach.ID),
		})
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"achievements": views})
}
