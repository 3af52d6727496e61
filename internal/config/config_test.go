package config

import (
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg, err := LoadFromEnv(envMap(nil))
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Env != "dev" {
		t.Fatalf("Env: got %q", cfg.Env)
	}
	if cfg.Addr != "127.0.0.1:8080" {
		t.Fatalf("Addr: got %q", cfg.Addr)
	}
	if cfg.AvatarDir != "content/images" {
		t.Fatalf("AvatarDir: got %q", cfg.AvatarDir)
	}
	if cfg.SessionTTL != 30*24*time.Hour {
		t.Fatalf("SessionTTL: got %s", cfg.SessionTTL)
	}
	if cfg.DBMigrate {
		t.Fatalf("DBMigrate: expected false by default")
	}
}

func TestLoadFromEnvProdRequirements(t *testing.T) {
	base := map[string]string{
		"APP_ENV":               "prod",
		"APP_PUBLIC_URL":        "https://forum.example.com",
		"APP_DB_DSN":            "postgres://u:p@127.0.0.1:5432/forum",
		"APP_COOKIE_SECRET":     "0123456789abcdef0123456789abcdef",
		"APP_PHONE_CODE_SECRET": "0123456789abcdef0123456789abcdef",
	}

	if _, err := LoadFromEnv(envMap(base)); err != nil {
		t.Fatalf("expected valid prod config, got %v", err)
	}

	for _, missing := range []string{"APP_PUBLIC_URL", "APP_DB_DSN", "APP_COOKIE_SECRET", "APP_PHONE_CODE_SECRET"} {
		m := map[string]string{}
		for k, v := range base {
			m[k] = v
		}
		delete(m, missing)
		if _, err := LoadFromEnv(envMap(m)); err == nil {
			t.Fatalf("expected error when %s is missing in prod", missing)
		}
	}
}

func TestLoadFromEnvRejectsBadValues(t *testing.T) {
	cases := []map[string]string{
		{"APP_ENV": "staging"},
		{"APP_SESSION_TTL": "soon"},
		{"APP_SESSION_TTL": "-1h"},
		{"APP_PUBLIC_URL": "not a url://"},
		{"APP_PUBLIC_URL": "ftp://forum.example.com"},
		{"APP_DB_MIGRATE": "maybe"},
		{"APP_SMS_GATEWAY_URL": "/relative"},
		{"APP_ADMIN_BOOTSTRAP_PASSWORD": "hunter2hunter2"},
	}
	for _, m := range cases {
		if _, err := LoadFromEnv(envMap(m)); err == nil {
			t.Fatalf("expected error for %v", m)
		}
	}
}

func TestExternalProviders(t *testing.T) {
	cfg, err := LoadFromEnv(envMap(map[string]string{
		"APP_GOOGLE_WEB_CLIENT_ID": "google-client",
		"APP_APPLE_SERVICE_ID":     "apple-service",
	}))
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	got := cfg.ExternalProviders()
	if len(got) != 2 || got[0] != "google" || got[1] != "apple" {
		t.Fatalf("ExternalProviders: got %v", got)
	}

	cfg, err = LoadFromEnv(envMap(nil))
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if got := cfg.ExternalProviders(); len(got) != 0 {
		t.Fatalf("expected no providers, got %v", got)
	}
}
