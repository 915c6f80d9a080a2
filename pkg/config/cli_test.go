package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCLIConfigDefaultsWhenMissing(t *testing.T) {
	t.Setenv("MEDIAPP_API_URL", "")
	os.Unsetenv("MEDIAPP_API_URL")

	cfg, err := LoadCLIConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIBaseURL != defaultAPIBaseURL {
		t.Fatalf("unexpected base url: %q", cfg.APIBaseURL)
	}
	if cfg.Storage != StorageFile {
		t.Fatalf("unexpected storage: %q", cfg.Storage)
	}
}

func TestSaveAndLoadCLIConfig(t *testing.T) {
	t.Setenv("MEDIAPP_API_URL", "")
	os.Unsetenv("MEDIAPP_API_URL")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	in := CLIConfig{APIBaseURL: "http://api.local:9000", Storage: "SQLite", StoragePath: "/tmp/s.db"}
	if err := SaveCLIConfig(path, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := LoadCLIConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out.APIBaseURL != in.APIBaseURL || out.Storage != StorageSQLite || out.StoragePath != in.StoragePath {
		t.Fatalf("unexpected config: %+v", out)
	}
}

func TestLoadCLIConfigEnvOverride(t *testing.T) {
	t.Setenv("MEDIAPP_API_URL", "https://mediapp.example")
	cfg, err := LoadCLIConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIBaseURL != "https://mediapp.example" {
		t.Fatalf("expected env override, got %q", cfg.APIBaseURL)
	}
}

func TestGetListDropsEmptyItems(t *testing.T) {
	t.Setenv("TEST_LIST", " a, ,b ,")
	got := GetList("TEST_LIST", nil)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected list: %#v", got)
	}
}

func TestReadCLIConfigFileSkipsEnvAndDefaults(t *testing.T) {
	t.Setenv("MEDIAPP_API_URL", "https://env.example")
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("storage: memory\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := ReadCLIConfigFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if cfg.APIBaseURL != "" || cfg.Storage != StorageMemory {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestAPIConfigBcryptCost(t *testing.T) {
	t.Setenv("BCRYPT_COST", "")
	os.Unsetenv("BCRYPT_COST")
	if got := LoadAPIConfig().BcryptCost; got != 10 {
		t.Fatalf("expected default cost 10, got %d", got)
	}
	t.Setenv("BCRYPT_COST", "12")
	if got := LoadAPIConfig().BcryptCost; got != 12 {
		t.Fatalf("expected cost 12, got %d", got)
	}
}
