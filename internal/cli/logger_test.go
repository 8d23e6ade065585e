package cli

import (
	"testing"

	"scenario-solver-service/internal/config"
)

func TestCommandLoggerWritesToStderr(t *testing.T) {
	var cfg config.Config
	cfg.Log.Level = "debug"
	cfg.Log.Encoding = "json"

	got := commandLoggerConfig(cfg)
	if got.OutputPath != "stderr" {
		t.Fatalf("expected stderr output, got %q", got.OutputPath)
	}
	if got.Level != "debug" || got.Encoding != "json" {
		t.Fatalf("expected configured level and encoding to be kept, got %+v", got)
	}

	log, err := newCommandLogger(cfg)
	if err != nil {
		t.Fatalf("newCommandLogger: %v", err)
	}
	_ = log.Sync()
}
