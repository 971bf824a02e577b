package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/openrisk-labs/kestrel/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if !cfg.Sectors[domain.SectorMedical].TwoStage {
		t.Error("expected medical sector to default to two-stage")
	}
	if got := len(cfg.Sectors[domain.SectorBanking].Candidates()); got != 3 {
		t.Errorf("expected 3 banking candidates, got %d", got)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kestrel.yaml")
	data := `
server:
  port: 9090
retry:
  maxRetries: 5
overlayRules:
  - id: big_wire
    sector: banking
    expression: 'record.amount > 250000.0 ? 10.0 : 0.0'
    weight: 10
    enabled: true
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Retry.MaxRetries != 5 {
		t.Errorf("expected 5 retries, got %d", cfg.Retry.MaxRetries)
	}
	if len(cfg.OverlayRules) != 1 || cfg.OverlayRules[0].ID != "big_wire" {
		t.Errorf("overlay rules not loaded: %+v", cfg.OverlayRules)
	}
	// Untouched sections keep defaults.
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("expected default topK 5, got %d", cfg.Retrieval.TopK)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("KESTREL_PORT", "7070")
	t.Setenv("KESTREL_REDIS_ADDR", "localhost:6379")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("expected env port 7070, got %d", cfg.Server.Port)
	}
	if cfg.Cache.Type != "redis" || cfg.Cache.RedisAddr != "localhost:6379" {
		t.Errorf("redis env override not applied: %+v", cfg.Cache)
	}
}

func TestValidateRejectsBadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kestrel.yaml")
	data := `
overlayRules:
  - id: broken
    sector: banking
    expression: ""
    weight: 5
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for empty expression")
	}
}
