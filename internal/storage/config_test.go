package storage

import "testing"

func TestConfigFromEnvOverridePath(t *testing.T) {
	t.Setenv("GHESTA_DB_PATH", "/tmp/ghesta-custom.db")

	cfg, err := configFromEnv()
	if err != nil {
		t.Fatalf("configFromEnv() unexpected error: %v", err)
	}
	if cfg.Mode != ModeSecure {
		t.Fatalf("cfg.Mode = %q, want %q", cfg.Mode, ModeSecure)
	}
	if cfg.Path != "/tmp/ghesta-custom.db" {
		t.Fatalf("cfg.Path = %q, want %q", cfg.Path, "/tmp/ghesta-custom.db")
	}
}
