package migrate

import (
	"path/filepath"
	"testing"

	"github.com/FolkodeGroup/mediapp/pkg/logger"
)

func TestNewValidatesArguments(t *testing.T) {
	log := logger.Discard()
	if _, err := New("", t.TempDir(), log); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
	if _, err := New("postgres://x", "", log); err == nil {
		t.Fatalf("expected error for empty dir")
	}
	if _, err := New("postgres://x", filepath.Join(t.TempDir(), "missing"), log); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}

func TestNewAcceptsRepositoryMigrations(t *testing.T) {
	runner, err := New("postgres://mediapp@localhost/mediapp", filepath.Join("..", "..", "..", "db", "migrations"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runner.log == nil {
		t.Fatalf("expected default logger")
	}
}
