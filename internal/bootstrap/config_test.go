package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSetupDefaults(t *testing.T) {
	cfg, err := Setup(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("missing config file should fall back to defaults: %v", err)
	}
	if cfg.ServerPort != "8080" || cfg.DefaultDepth != 12 || cfg.MultiPV != 2 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.HandshakeTimeout != 8*time.Second || cfg.CoalesceWindow != 5*time.Second || cfg.MaxJobTimeout != 20*time.Second {
		t.Fatalf("unexpected timeout defaults: %+v", cfg)
	}
}

func TestSetupFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "SERVER_PORT=9090\nANALYSIS_DEFAULT_DEPTH=16\nCOALESCE_WINDOW=2s\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ANALYSIS_DEFAULT_DEPTH", "20")
	t.Setenv("STOCKFISH_PATH", "/opt/sf")

	cfg, err := Setup(path)
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if cfg.ServerPort != "9090" {
		t.Fatalf("file value not applied: %q", cfg.ServerPort)
	}
	if cfg.DefaultDepth != 20 || cfg.StockfishPath != "/opt/sf" {
		t.Fatalf("environment should win over the file: %+v", cfg)
	}
	if cfg.CoalesceWindow != 2*time.Second {
		t.Fatalf("duration not parsed: %s", cfg.CoalesceWindow)
	}
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	log := NewLogger("chatty")
	if log == nil {
		t.Fatalf("expected a logger")
	}
	if log.Desugar().Core().Enabled(-1) {
		t.Fatalf("debug should be disabled for an unknown level")
	}
}
