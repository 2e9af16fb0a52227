package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"production-budget-service/internal/services"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error marshaling response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

// respondWithServiceError maps the service error taxonomy onto HTTP
// status codes. Anything unrecognized is a 500 with a generic body so
// database details never leak to clients.
func respondWithServiceError(w http.ResponseWriter, err error) {
	var (
		validation *services.ValidationError
		locked     *services.LockedBudgetError
		cycle      *services.DependencyCycleError
		notFound   *services.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		respondWithError(w, http.StatusBadRequest, validation.Error())
	case errors.As(err, &cycle):
		respondWithError(w, http.StatusConflict, cycle.Error())
	case errors.As(err, &locked):
		respondWithError(w, http.StatusForbidden, locked.Error())
	case errors.Is(err, services.ErrForbidden):
		respondWithError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &notFound):
		respondWithError(w, http.StatusNotFound, notFound.Error())
	default:
		log.Printf("Internal error: %v", err)
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}
