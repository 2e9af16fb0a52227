package auth

import (
	"testing"

	"production-budget-service/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	user := User{ID: 42, Login: "line.producer", Role: RoleProducer}

	tokenStr, err := NewToken(secret, user)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}

	got, err := ParseToken(secret, tokenStr)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if got != user {
		t.Fatalf("round trip = %+v, want %+v", got, user)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	tokenStr, err := NewToken([]byte("secret-a"), User{ID: 1, Role: RoleViewer})
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	if _, err := ParseToken([]byte("secret-b"), tokenStr); err == nil {
		t.Fatal("expected error for token signed with a different secret")
	}
}

func TestRoleAuthorizer(t *testing.T) {
	authz := NewRoleAuthorizer()
	budget := &models.Budget{ID: 1, Status: models.BudgetStatusDraft}

	cases := []struct {
		role string
		want bool
	}{
		{RoleProducer, true},
		{RoleAccountant, true},
		{RoleViewer, false},
		{"", false},
	}
	for _, tc := range cases {
		if got := authz.CanMutate(User{Role: tc.role}, budget); got != tc.want {
			t.Errorf("CanMutate(role=%q) = %v, want %v", tc.role, got, tc.want)
		}
	}
}
