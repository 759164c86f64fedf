package backend

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"txdash/internal/config"
	"txdash/internal/storage/memory"
)

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(&config.Config{DataBackend: "postgres", DatabaseURL: "postgres://x"})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != PostgresBackend || cfg.DatabaseURL != "postgres://x" {
		t.Errorf("config = %+v", cfg)
	}

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	if err == nil || !strings.Contains(err.Error(), "want one of sqlite, postgres, memory") {
		t.Errorf("unknown backend error = %v, want the list of valid backends", err)
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected an error for a nil config")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{"sqlite ok", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, ""},
		{"sqlite missing path", Config{Type: SQLiteBackend}, "SQLite database path"},
		{"postgres missing url", Config{Type: PostgresBackend}, "database URL"},
		{"memory ok", Config{Type: MemoryBackend}, ""},
		{"unknown", Config{Type: "mongo"}, `invalid backend type: "mongo" (want one of sqlite, postgres, memory)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend(t *testing.T) {
	factory := NewFactory(nil)
	ctx := context.Background()

	t.Run("sqlite", func(t *testing.T) {
		res, err := factory.CreateBackend(ctx, Config{
			Type:         SQLiteBackend,
			SQLiteDBPath: filepath.Join(t.TempDir(), "txdash.db"),
		})
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		defer res.Cleanup()
		if err := res.Store.Ping(ctx); err != nil {
			t.Errorf("Ping: %v", err)
		}
	})

	t.Run("memory with seed file", func(t *testing.T) {
		dir := t.TempDir()
		seed := `[{"id":1,"title":"x","price":5,"dateOfSale":"2022-01-01T00:00:00Z","category":"A","sold":true}]`
		if err := os.WriteFile(filepath.Join(dir, memory.SeedFile), []byte(seed), 0o644); err != nil {
			t.Fatal(err)
		}
		res, err := factory.CreateBackend(ctx, Config{Type: MemoryBackend, DataDirectory: dir})
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		if n, _ := res.Store.Count(ctx); n != 1 {
			t.Errorf("count = %d, want 1", n)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		if _, err := factory.CreateBackend(ctx, Config{Type: PostgresBackend}); err == nil {
			t.Error("expected an error without a database URL")
		}
	})
}

func TestGetBackendTypeStrings(t *testing.T) {
	got := strings.Join(GetBackendTypeStrings(), ",")
	if got != "sqlite,postgres,memory" {
		t.Errorf("GetBackendTypeStrings() = %s", got)
	}
}
