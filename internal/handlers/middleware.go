package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"

	"production-budget-service/internal/auth"
)

type contextKey string

const userContextKey contextKey = "user"

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("%s %s %s", r.RemoteAddr, r.Method, r.URL)
		next.ServeHTTP(w, r)
	})
}

func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// authMiddleware resolves the acting user from the bearer token and stores
// it on the request context. Every /api/v1 route requires a valid token;
// role checks happen later in the mutation router.
func authMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				respondWithError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}
			tokenStr, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "authorization header must be a bearer token")
				return
			}

			user, err := auth.ParseToken(secret, tokenStr)
			if err != nil {
				respondWithError(w, http.StatusUnauthorized, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// userFrom returns the authenticated user placed on the context by
// authMiddleware.
func userFrom(r *http.Request) auth.User {
	user, _ := r.Context().Value(userContextKey).(auth.User)
	return user
}
