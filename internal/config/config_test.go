package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
bot:
  token: "123:abc"
  admin_ids: [42]
sheets:
  spreadsheet_id: "sheet-1"
`)
	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Bot.Workers != 8 {
		t.Errorf("Workers = %d, want default 8", cfg.Bot.Workers)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("log defaults = %s/%s", cfg.Log.Level, cfg.Log.Format)
	}
	if cfg.Sheets.RetryAttempts != 3 || cfg.Sheets.RetryBackoff != time.Second {
		t.Errorf("retry defaults = %d/%v", cfg.Sheets.RetryAttempts, cfg.Sheets.RetryBackoff)
	}
	if cfg.State.Backend != "memory" {
		t.Errorf("state backend = %q, want memory", cfg.State.Backend)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing token", "bot:\n  admin_ids: [1]\nsheets:\n  spreadsheet_id: x\n"},
		{"missing admins", "bot:\n  token: t\nsheets:\n  spreadsheet_id: x\n"},
		{"missing spreadsheet", "bot:\n  token: t\n  admin_ids: [1]\n"},
		{"bad backend", "bot:\n  token: t\n  admin_ids: [1]\nsheets:\n  spreadsheet_id: x\nstate:\n  backend: mongo\n"},
		{"redis without addr", "bot:\n  token: t\n  admin_ids: [1]\nsheets:\n  spreadsheet_id: x\nstate:\n  backend: redis\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body), false); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
