package config

import (
	"strings"
	"testing"
)

// mapBackend is an in-memory ConfigBackend for tests.
type mapBackend struct {
	data map[string]any
}

func (m *mapBackend) GetString(key string) (string, bool, error) {
	v, ok := m.data[key]
	if !ok {
		return "", false, nil
	}
	if s, isStr := v.(string); isStr {
		return s, true, nil
	}
	return "", false, nil
}

func (m *mapBackend) GetInt(key string) (int, bool, error) {
	v, ok := m.data[key]
	if !ok {
		return 0, false, nil
	}
	if i, isInt := v.(int); isInt {
		return i, true, nil
	}
	return 0, false, nil
}

func (m *mapBackend) SetString(key, val string) error { m.data[key] = val; return nil }
func (m *mapBackend) SetInt(key string, val int) error { m.data[key] = val; return nil }
func (m *mapBackend) Delete(key string) error         { delete(m.data, key); return nil }

// mockKeychain is a test double for the keychain interface.
type mockKeychain struct {
	values map[string]string
	err    error
}

func (m mockKeychain) Get(service, account string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.values[account], nil
}

func emptyBackend() *mapBackend {
	return &mapBackend{data: make(map[string]any)}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		if s.env != "" {
			t.Setenv(s.env, "")
		}
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("KBFLOW_KB_API_KEY", "vf-key")

	cfg, err := loadWith(emptyBackend(), mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4000 {
		t.Errorf("Server.Port = %d, want 4000", cfg.Server.Port)
	}
	if cfg.Server.MCPPort != 4001 {
		t.Errorf("Server.MCPPort = %d, want 4001", cfg.Server.MCPPort)
	}
	if cfg.KnowledgeBase.BaseURL != "https://api.voiceflow.com" {
		t.Errorf("KnowledgeBase.BaseURL = %q", cfg.KnowledgeBase.BaseURL)
	}
	if cfg.OpenAI.Model != "gpt-4o" {
		t.Errorf("OpenAI.Model = %q", cfg.OpenAI.Model)
	}
	if cfg.Upload.MaxChunkSize != 1000 {
		t.Errorf("Upload.MaxChunkSize = %d", cfg.Upload.MaxChunkSize)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestBackendValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("KBFLOW_KB_API_KEY", "vf-key")

	b := emptyBackend()
	b.data["server.port"] = 5000
	b.data["kb.base_url"] = "https://kb.internal.example.com"
	b.data["openai.model"] = "gpt-4o-mini"
	b.data["upload.max_chunk_size"] = 750
	b.data["upload.overwrite"] = "true"

	cfg, err := loadWith(b, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.KnowledgeBase.BaseURL != "https://kb.internal.example.com" {
		t.Errorf("KnowledgeBase.BaseURL = %q", cfg.KnowledgeBase.BaseURL)
	}
	if cfg.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("OpenAI.Model = %q", cfg.OpenAI.Model)
	}
	if cfg.Upload.MaxChunkSize != 750 {
		t.Errorf("Upload.MaxChunkSize = %d", cfg.Upload.MaxChunkSize)
	}
	if !cfg.Upload.Overwrite {
		t.Error("Upload.Overwrite = false, want true")
	}
}

func TestEnvOverridesBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("KBFLOW_KB_API_KEY", "vf-key")
	t.Setenv("KBFLOW_SERVER_PORT", "6000")

	b := emptyBackend()
	b.data["server.port"] = 5000

	cfg, err := loadWith(b, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want env override 6000", cfg.Server.Port)
	}
}

func TestMissingRequiredKey(t *testing.T) {
	clearEnv(t)

	_, err := loadWith(emptyBackend(), mockKeychain{})
	if err == nil {
		t.Fatal("expected error for missing API key, got nil")
	}
	if !strings.Contains(err.Error(), "missing required config") {
		t.Errorf("error = %q", err)
	}
	if !strings.Contains(err.Error(), "KBFLOW_KB_API_KEY") {
		t.Errorf("error should name the env var: %q", err)
	}
}

func TestKeychainFallback(t *testing.T) {
	clearEnv(t)

	kc := mockKeychain{values: map[string]string{
		"kb_api_key":     "keychain-kb",
		"openai_api_key": "keychain-openai",
	}}
	cfg, err := loadWith(emptyBackend(), kc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.KnowledgeBase.APIKey != "keychain-kb" {
		t.Errorf("KnowledgeBase.APIKey = %q", cfg.KnowledgeBase.APIKey)
	}
	if cfg.OpenAI.APIKey != "keychain-openai" {
		t.Errorf("OpenAI.APIKey = %q", cfg.OpenAI.APIKey)
	}
}

func TestEnvBeatsKeychain(t *testing.T) {
	clearEnv(t)
	t.Setenv("KBFLOW_KB_API_KEY", "env-key")

	kc := mockKeychain{values: map[string]string{"kb_api_key": "keychain-key"}}
	cfg, err := loadWith(emptyBackend(), kc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.KnowledgeBase.APIKey != "env-key" {
		t.Errorf("KnowledgeBase.APIKey = %q, want env-key", cfg.KnowledgeBase.APIKey)
	}
}

func TestShowAll_HidesSecrets(t *testing.T) {
	cfg := defaults()
	cfg.KnowledgeBase.APIKey = "secret-value"

	for _, info := range ShowAll(cfg) {
		if strings.Contains(info.Value, "secret-value") {
			t.Errorf("secret leaked through %s", info.Key)
		}
		if info.Key == "kb.api_key" {
			t.Error("secret key listed")
		}
	}
}

func TestSetKey_RejectsSecrets(t *testing.T) {
	err := SetKey("kb.api_key", "x")
	if err == nil || !strings.Contains(err.Error(), "secret") {
		t.Errorf("err = %v, want secret rejection", err)
	}
}

func TestSetKey_Unknown(t *testing.T) {
	err := SetKey("no.such.key", "x")
	if err == nil || !strings.Contains(err.Error(), "unknown config key") {
		t.Errorf("err = %v", err)
	}
}

func TestValidKeys(t *testing.T) {
	keys := ValidKeys()
	for _, k := range keys {
		if k == "kb.api_key" || k == "openai.api_key" {
			t.Errorf("secret %s listed as settable", k)
		}
	}
	found := false
	for _, k := range keys {
		if k == "server.port" {
			found = true
		}
	}
	if !found {
		t.Error("server.port missing from valid keys")
	}
}
