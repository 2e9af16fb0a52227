package handlers

import (
	"encoding/json"
	"net/http"

	"production-budget-service/internal/services"
)

type CategoryHandler struct {
	mutations *services.MutationService
	query     *services.QueryService
}

func NewCategoryHandler(mutations *services.MutationService, query *services.QueryService) *CategoryHandler {
	return &CategoryHandler{mutations: mutations, query: query}
}

func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	budgetID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid budget id")
		return
	}

	cats, err := h.query.ListCategories(budgetID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, cats)
}

func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	budgetID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid budget id")
		return
	}

	var in services.CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cat, err := h.mutations.CreateCategory(userFrom(r), budgetID, in)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, SuccessResponse{
		Message: "Category created",
		Data:    cat,
	})
}

func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	var in services.CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cat, err := h.mutations.UpdateCategory(userFrom(r), id, in)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, SuccessResponse{
		Message: "Category updated",
		Data:    cat,
	})
}

func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	if err := h.mutations.DeleteCategory(userFrom(r), id); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, SuccessResponse{Message: "Category deleted"})
}
