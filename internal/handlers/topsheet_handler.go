package handlers

import (
	"net/http"

	"production-budget-service/internal/services"
)

type TopSheetHandler struct {
	topsheet *services.TopSheetService
}

func NewTopSheetHandler(topsheet *services.TopSheetService) *TopSheetHandler {
	return &TopSheetHandler{topsheet: topsheet}
}

// GetTopSheet serves the cached summary, recompiling it first when a
// mutation has marked it stale.
func (h *TopSheetHandler) GetTopSheet(w http.ResponseWriter, r *http.Request) {
	budgetID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid budget id")
		return
	}

	ts, err := h.topsheet.GetTopSheet(budgetID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, ts)
}
