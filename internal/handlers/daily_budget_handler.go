package handlers

import (
	"encoding/json"
	"net/http"

	"production-budget-service/internal/services"
)

type DailyBudgetHandler struct {
	mutations *services.MutationService
	query     *services.QueryService
}

func NewDailyBudgetHandler(mutations *services.MutationService, query *services.QueryService) *DailyBudgetHandler {
	return &DailyBudgetHandler{mutations: mutations, query: query}
}

func (h *DailyBudgetHandler) ListDailyBudgets(w http.ResponseWriter, r *http.Request) {
	budgetID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid budget id")
		return
	}

	days, err := h.query.ListDailyBudgets(budgetID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, days)
}

func (h *DailyBudgetHandler) CreateDailyBudget(w http.ResponseWriter, r *http.Request) {
	budgetID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid budget id")
		return
	}

	var body struct {
		DayID string `json:"day_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	day, err := h.mutations.CreateDailyBudget(userFrom(r), budgetID, body.DayID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, SuccessResponse{
		Message: "Daily budget created",
		Data:    day,
	})
}

func (h *DailyBudgetHandler) GetDailyBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid daily budget id")
		return
	}

	detail, err := h.query.GetDailyBudget(id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, detail)
}

func (h *DailyBudgetHandler) CreateDailyBudgetItem(w http.ResponseWriter, r *http.Request) {
	dailyBudgetID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid daily budget id")
		return
	}

	var in services.DailyBudgetItemInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.mutations.CreateDailyBudgetItem(userFrom(r), dailyBudgetID, in)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, SuccessResponse{
		Message: "Daily budget item created",
		Data:    item,
	})
}

func (h *DailyBudgetHandler) UpdateDailyBudgetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid daily budget item id")
		return
	}

	var in services.DailyBudgetItemInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.mutations.UpdateDailyBudgetItem(userFrom(r), id, in)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, SuccessResponse{
		Message: "Daily budget item updated",
		Data:    item,
	})
}

func (h *DailyBudgetHandler) DeleteDailyBudgetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid daily budget item id")
		return
	}

	if err := h.mutations.DeleteDailyBudgetItem(userFrom(r), id); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, SuccessResponse{Message: "Daily budget item deleted"})
}

func (h *DailyBudgetHandler) CreateDayLink(w http.ResponseWriter, r *http.Request) {
	var in services.BudgetDayLinkInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	link, err := h.mutations.CreateBudgetDayLink(userFrom(r), in)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, SuccessResponse{
		Message: "Day link created",
		Data:    link,
	})
}

func (h *DailyBudgetHandler) DeleteDayLink(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid day link id")
		return
	}

	if err := h.mutations.DeleteBudgetDayLink(userFrom(r), id); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, SuccessResponse{Message: "Day link deleted"})
}
