package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"production-budget-service/internal/models"
)

// Role constants carried in the token's role claim.
const (
	RoleProducer   = "producer"
	RoleAccountant = "accountant"
	RoleViewer     = "viewer"
)

// User is the acting identity resolved from the bearer token. Identity
// itself is owned by the external identity service; this service only
// needs the id and role.
type User struct {
	ID    int64
	Login string
	Role  string
}

// Authorizer answers the single question the engine asks of the identity
// collaborator: may this user mutate this budget.
type Authorizer interface {
	CanMutate(user User, budget *models.Budget) bool
}

// RoleAuthorizer grants mutation to producers and accountants. The locked
// gate is separate and enforced by the mutation router regardless of role.
type RoleAuthorizer struct{}

func NewRoleAuthorizer() *RoleAuthorizer {
	return &RoleAuthorizer{}
}

func (a *RoleAuthorizer) CanMutate(user User, budget *models.Budget) bool {
	switch user.Role {
	case RoleProducer, RoleAccountant:
		return true
	}
	return false
}

var ErrInvalidToken = errors.New("invalid or expired token")

// ParseToken validates an HMAC-signed bearer token and extracts the acting
// user from its claims.
func ParseToken(secret []byte, tokenStr string) (User, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return User{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return User{}, ErrInvalidToken
	}

	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		return User{}, ErrInvalidToken
	}
	user := User{ID: int64(userIDFloat)}
	if login, ok := claims["login"].(string); ok {
		user.Login = login
	}
	if role, ok := claims["role"].(string); ok {
		user.Role = role
	}
	return user, nil
}

// NewToken signs a token for the given user. Used by tests and local
// tooling; production tokens come from the identity service.
func NewToken(secret []byte, user User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"login":   user.Login,
		"role":    user.Role,
	})
	return token.SignedString(secret)
}
