package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BaseURL != DefaultBaseURL || cfg.Timeout != DefaultTimeout || cfg.HistoryPath != DefaultHistoryPath {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.PrettyJSON == nil || !*cfg.PrettyJSON {
		t.Fatalf("pretty output should default on")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STACKIT_TEST_BASE", "http://forum.internal:8080")
	path := filepath.Join(t.TempDir(), "cli.yaml")
	content := "baseURL: ${STACKIT_TEST_BASE}\ntimeout: 3s\nprettyJSON: false\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BaseURL != "http://forum.internal:8080" || cfg.Timeout != 3*time.Second {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.PrettyJSON == nil || *cfg.PrettyJSON {
		t.Fatalf("prettyJSON override lost")
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.yaml")
	if err := os.WriteFile(path, []byte("baseURL: [unterminated"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
