package crypto

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCompare(t *testing.T) {
	hash, err := HashPassword("123456", MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if string(hash) == "123456" {
		t.Fatalf("hash must not equal plaintext")
	}
	if err := ComparePassword(hash, "123456"); err != nil {
		t.Fatalf("expected match: %v", err)
	}
	if err := ComparePassword(hash, "654321"); err == nil {
		t.Fatalf("expected mismatch")
	}
}

func TestHashPasswordCost(t *testing.T) {
	cases := map[int]int{MinCost: MinCost, 5: 5, 0: DefaultCost, 99: DefaultCost}
	for in, want := range cases {
		hash, err := HashPassword("secret1", in)
		if err != nil {
			t.Fatalf("cost %d: %v", in, err)
		}
		got, err := bcrypt.Cost(hash)
		if err != nil || got != want {
			t.Fatalf("cost %d: got %d (%v), want %d", in, got, err, want)
		}
	}
}

func TestHashPasswordTooLong(t *testing.T) {
	_, err := HashPassword(strings.Repeat("a", 73), MinCost)
	if !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}
