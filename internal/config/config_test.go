package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Env != "dev" {
		t.Fatalf("env = %q, want dev", cfg.Env)
	}
	if cfg.Port != "8080" {
		t.Fatalf("port = %q, want 8080", cfg.Port)
	}
	if cfg.StorageBackend != StorageMemory {
		t.Fatalf("storage backend = %q, want memory", cfg.StorageBackend)
	}
	if len(cfg.JWTSecret) == 0 || len(cfg.PaymentSecret) == 0 {
		t.Fatalf("expected generated secrets when unset")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	clearEnv(t)
	os.Setenv("HYPRCAT_PORT", "9999")
	os.Setenv("HYPRCAT_STORAGE_BACKEND", "file")
	os.Setenv("HYPRCAT_CORS_ORIGINS", "https://a.example, https://b.example")
	defer clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9999" {
		t.Fatalf("port = %q, want 9999", cfg.Port)
	}
	if cfg.StorageBackend != StorageFile {
		t.Fatalf("storage backend = %q, want file", cfg.StorageBackend)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[0] != "https://a.example" {
		t.Fatalf("cors origins = %v", cfg.CORSOrigins)
	}
}

func TestLoadRejectsUnknownStorageBackend(t *testing.T) {
	clearEnv(t)
	os.Setenv("HYPRCAT_STORAGE_BACKEND", "s3")
	defer clearEnv(t)

	if _, err := Load(""); err == nil {
		t.Fatal("expected error for unrecognized storage backend")
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HYPRCAT_PORT", "HYPRCAT_STORAGE_BACKEND", "HYPRCAT_CORS_ORIGINS",
		"HYPRCAT_ENV", "HYPRCAT_JWT_SECRET", "HYPRCAT_PAYMENT_SECRET",
	} {
		os.Unsetenv(key)
	}
}
