package app

import "testing"

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.HTTPAddr != "0.0.0.0:8080" {
		t.Fatalf("HTTPAddr = %q, want 0.0.0.0:8080", cfg.HTTPAddr)
	}
	if cfg.DatabaseURL != "" {
		t.Fatalf("DatabaseURL = %q, want empty by default", cfg.DatabaseURL)
	}
	if cfg.RequireFieldHMAC {
		t.Fatalf("RequireFieldHMAC should default to false")
	}
	if cfg.SessionMaxInvites != 100 {
		t.Fatalf("SessionMaxInvites = %d, want 100", cfg.SessionMaxInvites)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("CANVASD_HTTP_ADDR", "127.0.0.1:9090")
	t.Setenv("CANVASD_SESSION_MAX_INVITES", "5")

	cfg := LoadConfig()
	if cfg.HTTPAddr != "127.0.0.1:9090" {
		t.Fatalf("HTTPAddr = %q, want 127.0.0.1:9090", cfg.HTTPAddr)
	}
	if cfg.SessionMaxInvites != 5 {
		t.Fatalf("SessionMaxInvites = %d, want 5", cfg.SessionMaxInvites)
	}
}
