package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"production-budget-service/internal/auth"
	"production-budget-service/internal/services"
)

func TestAuthMiddleware(t *testing.T) {
	secret := []byte("test-secret")
	var gotUser auth.User
	handler := authMiddleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = userFrom(r)
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/budgets/1", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/budgets/1", nil)
		req.Header.Set("Authorization", "Basic abc")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("bad signature", func(t *testing.T) {
		token, err := auth.NewToken([]byte("other-secret"), auth.User{ID: 7, Role: auth.RoleProducer})
		if err != nil {
			t.Fatalf("NewToken: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/budgets/1", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("valid token", func(t *testing.T) {
		want := auth.User{ID: 7, Login: "upm", Role: auth.RoleProducer}
		token, err := auth.NewToken(secret, want)
		if err != nil {
			t.Fatalf("NewToken: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/budgets/1", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", rec.Code)
		}
		if gotUser != want {
			t.Errorf("context user = %+v, want %+v", gotUser, want)
		}
	})
}

func TestServiceErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &services.ValidationError{Field: "rate_amount", Reason: "must not be negative"}, http.StatusBadRequest},
		{"locked", &services.LockedBudgetError{BudgetID: 1, Status: "locked"}, http.StatusForbidden},
		{"forbidden", services.ErrForbidden, http.StatusForbidden},
		{"cycle", &services.DependencyCycleError{LineItemID: 3}, http.StatusConflict},
		{"not found", &services.NotFoundError{Entity: "budget", ID: 9}, http.StatusNotFound},
		{"unknown", http.ErrBodyNotAllowed, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondWithServiceError(rec, tc.err)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}
