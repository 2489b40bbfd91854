package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "KBFLOW_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.mcp_port", typ: kInt, env: "KBFLOW_SERVER_MCP_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.MCPPort = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.MCPPort },
	},
	{
		key: "kb.base_url", typ: kString, env: "KBFLOW_KB_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.KnowledgeBase.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.KnowledgeBase.BaseURL },
	},
	{
		key: "kb.api_key", typ: kString, env: "KBFLOW_KB_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.KnowledgeBase.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.KnowledgeBase.APIKey },
	},
	{
		key: "openai.api_key", typ: kString, env: "KBFLOW_OPENAI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.OpenAI.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.APIKey },
	},
	{
		key: "openai.model", typ: kString, env: "KBFLOW_OPENAI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.Model },
	},
	{
		key: "firecrawl.api_key", typ: kString, env: "KBFLOW_FIRECRAWL_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Firecrawl.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Firecrawl.APIKey },
	},
	{
		key: "llamaparse.api_key", typ: kString, env: "KBFLOW_LLAMAPARSE_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.LlamaParse.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.LlamaParse.APIKey },
	},
	{
		key: "upload.max_chunk_size", typ: kInt, env: "KBFLOW_UPLOAD_MAX_CHUNK_SIZE",
		apply:   func(cfg *Config, v any) { cfg.Upload.MaxChunkSize = v.(int) },
		extract: func(cfg Config) any { return cfg.Upload.MaxChunkSize },
	},
	{
		key: "upload.overwrite", typ: kBool, env: "KBFLOW_UPLOAD_OVERWRITE",
		apply:   func(cfg *Config, v any) { cfg.Upload.Overwrite = v.(bool) },
		extract: func(cfg Config) any { return cfg.Upload.Overwrite },
	},
	{
		key: "storage.data_dir", typ: kString, env: "KBFLOW_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "KBFLOW_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
