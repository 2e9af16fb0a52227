package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"production-budget-service/internal/auth"
	"production-budget-service/internal/models"
	"production-budget-service/internal/services"
)

type BudgetHandler struct {
	mutations *services.MutationService
	query     *services.QueryService
}

func NewBudgetHandler(mutations *services.MutationService, query *services.QueryService) *BudgetHandler {
	return &BudgetHandler{mutations: mutations, query: query}
}

// pathID extracts a numeric path variable set by the router.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *BudgetHandler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	var in services.CreateBudgetInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	budget, err := h.mutations.CreateBudget(userFrom(r), in)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, SuccessResponse{
		Message: "Budget created",
		Data:    budget,
	})
}

func (h *BudgetHandler) GetBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid budget id")
		return
	}

	detail, err := h.query.GetBudget(id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, detail)
}

func (h *BudgetHandler) UpdateContingency(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid budget id")
		return
	}

	var body struct {
		ContingencyPercent float64 `json:"contingency_percent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	budget, err := h.mutations.UpdateBudgetContingency(userFrom(r), id, body.ContingencyPercent)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, SuccessResponse{
		Message: "Contingency updated",
		Data:    budget,
	})
}

// statusTransition builds the handler for one lifecycle action.
func (h *BudgetHandler) statusTransition(
	action string,
	fn func(user auth.User, budgetID int64) (*models.Budget, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid budget id")
			return
		}

		budget, err := fn(userFrom(r), id)
		if err != nil {
			respondWithServiceError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, SuccessResponse{
			Message: "Budget " + action,
			Data:    budget,
		})
	}
}

func (h *BudgetHandler) SubmitBudget() http.HandlerFunc {
	return h.statusTransition("submitted for approval", h.mutations.SubmitBudget)
}

func (h *BudgetHandler) ApproveBudget() http.HandlerFunc {
	return h.statusTransition("approved", h.mutations.ApproveBudget)
}

func (h *BudgetHandler) LockBudget() http.HandlerFunc {
	return h.statusTransition("locked", h.mutations.LockBudget)
}

func (h *BudgetHandler) UnlockBudget() http.HandlerFunc {
	return h.statusTransition("unlocked", h.mutations.UnlockBudget)
}

func (h *BudgetHandler) ArchiveBudget() http.HandlerFunc {
	return h.statusTransition("archived", h.mutations.ArchiveBudget)
}
