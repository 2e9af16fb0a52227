package handlers

import (
	"encoding/json"
	"net/http"

	"production-budget-service/internal/services"
)

type ReceiptHandler struct {
	mutations *services.MutationService
	query     *services.QueryService
}

func NewReceiptHandler(mutations *services.MutationService, query *services.QueryService) *ReceiptHandler {
	return &ReceiptHandler{mutations: mutations, query: query}
}

func (h *ReceiptHandler) ListReceipts(w http.ResponseWriter, r *http.Request) {
	budgetID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid budget id")
		return
	}

	receipts, err := h.query.ListReceipts(budgetID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, receipts)
}

func (h *ReceiptHandler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid receipt id")
		return
	}

	rc, err := h.query.GetReceipt(id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, rc)
}

func (h *ReceiptHandler) CreateReceipt(w http.ResponseWriter, r *http.Request) {
	budgetID, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid budget id")
		return
	}

	var in services.ReceiptInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rc, err := h.mutations.CreateReceipt(userFrom(r), budgetID, in)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, SuccessResponse{
		Message: "Receipt created",
		Data:    rc,
	})
}

func (h *ReceiptHandler) UpdateReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid receipt id")
		return
	}

	var in services.ReceiptInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rc, err := h.mutations.UpdateReceipt(userFrom(r), id, in)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, SuccessResponse{
		Message: "Receipt updated",
		Data:    rc,
	})
}

func (h *ReceiptHandler) MapReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid receipt id")
		return
	}

	var in services.MapReceiptInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rc, err := h.mutations.MapReceipt(userFrom(r), id, in)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, SuccessResponse{
		Message: "Receipt mapped",
		Data:    rc,
	})
}

func (h *ReceiptHandler) UnmapReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid receipt id")
		return
	}

	rc, err := h.mutations.UnmapReceipt(userFrom(r), id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, SuccessResponse{
		Message: "Receipt unmapped",
		Data:    rc,
	})
}

func (h *ReceiptHandler) VerifyReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid receipt id")
		return
	}

	rc, err := h.mutations.VerifyReceipt(userFrom(r), id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, SuccessResponse{
		Message: "Receipt verified",
		Data:    rc,
	})
}
