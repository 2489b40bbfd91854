package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Server        ServerConfig
	KnowledgeBase KnowledgeBaseConfig
	OpenAI        OpenAIConfig
	Firecrawl     FirecrawlConfig
	LlamaParse    LlamaParseConfig
	Upload        UploadConfig
	Storage       StorageConfig
	Log           LogConfig
}

type ServerConfig struct {
	Port    int
	MCPPort int
}

type KnowledgeBaseConfig struct {
	BaseURL string
	APIKey  string
}

type OpenAIConfig struct {
	APIKey string
	Model  string
}

type FirecrawlConfig struct {
	APIKey string
}

type LlamaParseConfig struct {
	APIKey string
}

type UploadConfig struct {
	MaxChunkSize int
	Overwrite    bool
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	dataDir := defaultDataDir()
	return Config{
		Server: ServerConfig{
			Port:    4000,
			MCPPort: 4001,
		},
		KnowledgeBase: KnowledgeBaseConfig{
			BaseURL: "https://api.voiceflow.com",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o",
		},
		Upload: UploadConfig{
			MaxChunkSize: 1000,
		},
		Storage: StorageConfig{
			DataDir: dataDir,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.kbflow.app) and secrets
// fall back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/kbflow/config.json
// and secrets must be provided via environment variables.
//
// Environment variables (KBFLOW_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts Keychain access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// Try platform keychain for secrets that are still empty.
	if cfg.KnowledgeBase.APIKey == "" {
		if key, err := kc.Get("kbflow", "kb_api_key"); err == nil && key != "" {
			cfg.KnowledgeBase.APIKey = key
		}
	}
	if cfg.OpenAI.APIKey == "" {
		if key, err := kc.Get("kbflow", "openai_api_key"); err == nil && key != "" {
			cfg.OpenAI.APIKey = key
		}
	}

	if cfg.KnowledgeBase.APIKey == "" {
		msg := "missing required config: knowledge base API key. " +
			"Set it via environment variable KBFLOW_KB_API_KEY" +
			apiKeyHint()
		return Config{}, fmt.Errorf("%s", msg)
	}

	return cfg, nil
}

// keychainReader reads from macOS Keychain via the security CLI.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
