package jwt

import (
	"errors"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndParse(t *testing.T) {
	token, err := GenerateToken("user-1", "admin", "secret", time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := Parse(token, "secret")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "user-1" || claims.Role != "admin" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Subject != "user:user-1" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken("user-1", "", "secret", time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := Parse(token, "other"); !errors.Is(err, jwtlib.ErrTokenSignatureInvalid) {
		t.Fatalf("expected signature error, got %v", err)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	token, err := GenerateToken("user-1", "", "secret", -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := Parse(token, "secret"); !errors.Is(err, jwtlib.ErrTokenExpired) {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func TestGenerateRequiresSecret(t *testing.T) {
	if _, err := GenerateToken("user-1", "", "", time.Minute); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
