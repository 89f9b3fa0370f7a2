package config

import (
	"testing"
)

// memBackend is an in-memory ConfigBackend for tests.
type memBackend struct {
	data map[string]any
}

func newMemBackend() *memBackend {
	return &memBackend{data: make(map[string]any)}
}

func (b *memBackend) GetString(key string) (string, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return "", false, nil
	}
	return v.(string), true, nil
}

func (b *memBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return 0, false, nil
	}
	return v.(int), true, nil
}

func (b *memBackend) SetString(key, val string) error {
	b.data[key] = val
	return nil
}

func (b *memBackend) SetInt(key string, val int) error {
	b.data[key] = val
	return nil
}

func (b *memBackend) Delete(key string) error {
	delete(b.data, key)
	return nil
}

func TestDefaults(t *testing.T) {
	cfg, err := loadWith(newMemBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4280 {
		t.Errorf("Server.Port = %d, want 4280", cfg.Server.Port)
	}
	if cfg.Storage.DataDir == "" {
		t.Error("Storage.DataDir is empty")
	}
	if cfg.Auth.Token != "" {
		t.Errorf("Auth.Token = %q, want empty (auth off by default)", cfg.Auth.Token)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
}

func TestBackendOverridesDefaults(t *testing.T) {
	b := newMemBackend()
	b.SetInt("server.port", 9999)
	b.SetString("storage.data_dir", "/tmp/duebook-test")
	b.SetString("log.level", "debug")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Storage.DataDir != "/tmp/duebook-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
}

func TestEnvOverridesBackend(t *testing.T) {
	b := newMemBackend()
	b.SetInt("server.port", 9999)

	t.Setenv("DUEBOOK_SERVER_PORT", "4444")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4444 {
		t.Errorf("Server.Port = %d, want env override 4444", cfg.Server.Port)
	}
}

func TestAuthTokenFromEnvOnly(t *testing.T) {
	t.Setenv("DUEBOOK_AUTH_TOKEN", "secret-token")

	cfg, err := loadWith(newMemBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Auth.Token != "secret-token" {
		t.Errorf("Auth.Token = %q, want %q", cfg.Auth.Token, "secret-token")
	}
}

func TestInvalidEnvIntIgnored(t *testing.T) {
	t.Setenv("DUEBOOK_SERVER_PORT", "not-a-number")

	cfg, err := loadWith(newMemBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4280 {
		t.Errorf("Server.Port = %d, want default 4280", cfg.Server.Port)
	}
}

func TestSetKeyRejectsSecretsAndUnknownKeys(t *testing.T) {
	if err := SetKey("auth.token", "x"); err == nil {
		t.Error("SetKey(auth.token) succeeded, want refusal")
	}
	if err := SetKey("nope.nothing", "x"); err == nil {
		t.Error("SetKey(unknown) succeeded, want error")
	}
}

func TestShowAllSkipsSecrets(t *testing.T) {
	cfg, err := loadWith(newMemBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, info := range ShowAll(cfg) {
		if info.Key == "auth.token" {
			t.Error("ShowAll exposed auth.token")
		}
	}
	if len(ShowAll(cfg)) == 0 {
		t.Error("ShowAll returned no keys")
	}
}
