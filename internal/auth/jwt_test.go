package auth

import (
	"testing"

	"github.com/gnezdoapp/gnezdo/internal/model"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret"

	token, err := GenerateToken(secret, 42, "mojca", model.RoleUser)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}

	claims, err := ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != 42 || claims.Username != "mojca" || claims.Role != model.RoleUser {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.ID == "" {
		t.Error("expected a JTI")
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret-a", 1, "admin", model.RoleAdmin)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := ValidateToken("secret-b", token); err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	if _, err := ValidateToken("secret", "not-a-token"); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestUniqueJTIs(t *testing.T) {
	t1, _ := GenerateToken("s", 1, "a", model.RoleUser)
	t2, _ := GenerateToken("s", 1, "a", model.RoleUser)
	c1, _ := ValidateToken("s", t1)
	c2, _ := ValidateToken("s", t2)
	if c1.ID == c2.ID {
		t.Error("expected unique JTIs per token")
	}
}
