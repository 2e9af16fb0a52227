package handlers

import (
	"encoding/json"
	"net/http"

	"production-budget-service/internal/services"
)

type LineItemHandler struct {
	mutations *services.MutationService
	query     *services.QueryService
}

func NewLineItemHandler(mutations *services.MutationService, query *services.QueryService) *LineItemHandler {
	return &LineItemHandler{mutations: mutations, query: query}
}

func (h *LineItemHandler) ListLineItems(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	items, err := h.query.ListLineItems(categoryID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, items)
}

func (h *LineItemHandler) GetLineItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid line item id")
		return
	}

	li, err := h.query.GetLineItem(id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, li)
}

func (h *LineItemHandler) CreateLineItem(w http.ResponseWriter, r *http.Request) {
	budgetID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid budget id")
		return
	}

	var in services.LineItemInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	li, err := h.mutations.CreateLineItem(userFrom(r), budgetID, in)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, SuccessResponse{
		Message: "Line item created",
		Data:    li,
	})
}

func (h *LineItemHandler) UpdateLineItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid line item id")
		return
	}

	var in services.LineItemInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	li, err := h.mutations.UpdateLineItem(userFrom(r), id, in)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, SuccessResponse{
		Message: "Line item updated",
		Data:    li,
	})
}

func (h *LineItemHandler) DeleteLineItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid line item id")
		return
	}

	if err := h.mutations.DeleteLineItem(userFrom(r), id); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, SuccessResponse{Message: "Line item deleted"})
}
