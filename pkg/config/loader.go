package config

import (
	"fmt"

	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envMappings binds the environment surface to config paths. Variables not
// listed here are ignored.
var envMappings = map[string]string{
	"LOG_LEVEL":                "log.level",
	"LOG_FILE":                 "log.file",
	"LOG_MAX_BYTES":            "log.max_bytes",
	"LOG_BACKUP_COUNT":         "log.backup_count",
	"ENGINE_CACHE_TTL_SECONDS": "engine.cache_ttl_seconds",
	"DATA_DIR":                 "engine.data_dir",
	"SESSION_TTL_SECONDS":      "session.ttl_seconds",
	"SESSION_CLEANUP_INTERVAL": "session.cleanup_interval",
	"REDIS_URL":                "session.redis_url",
	"SESSION_REDIS_URL":        "session.redis_url",
	"SERVER_HOST":              "server.host",
	"SERVER_PORT":              "server.port",
}

// Load builds the configuration from defaults overlaid with environment
// variables. SESSION_REDIS_URL wins over REDIS_URL when both are set
// because the env provider applies mappings in lexical order of the
// process environment; Load re-checks the pair explicitly to make the
// precedence deterministic.
func Load(environ func(string) string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading config defaults: %w", err)
	}
	if err := k.Load(env.Provider(".", env.Opt{
		TransformFunc: func(key string, value string) (string, any) {
			if path, ok := envMappings[key]; ok {
				return path, value
			}
			return "", nil
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("loading config environment: %w", err)
	}
	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if environ != nil {
		if url := environ("SESSION_REDIS_URL"); url != "" {
			cfg.Session.RedisURL = url
		} else if url := environ("REDIS_URL"); url != "" {
			cfg.Session.RedisURL = url
		}
	}
	return cfg, nil
}
