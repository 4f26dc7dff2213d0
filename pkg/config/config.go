package config

// Config is the full application configuration. Values come from defaults
// overlaid with environment variables (see Load).
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Log     LogConfig     `koanf:"log"`
	Engine  EngineConfig  `koanf:"engine"`
	Session SessionConfig `koanf:"session"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

type LogConfig struct {
	Level       string `koanf:"level"`
	File        string `koanf:"file"`
	MaxBytes    int64  `koanf:"max_bytes"`
	BackupCount int    `koanf:"backup_count"`
}

type EngineConfig struct {
	// DataDir holds one subdirectory per language (En, Cn) of YAML modules.
	DataDir         string `koanf:"data_dir"`
	CacheTTLSeconds int    `koanf:"cache_ttl_seconds"`
}

type SessionConfig struct {
	TTLSeconds      int    `koanf:"ttl_seconds"`
	CleanupInterval int    `koanf:"cleanup_interval"`
	RedisURL        string `koanf:"redis_url"`
}

// Default returns the built-in configuration values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Log: LogConfig{
			Level:       "info",
			MaxBytes:    10 * 1024 * 1024,
			BackupCount: 5,
		},
		Engine: EngineConfig{
			DataDir:         "resources",
			CacheTTLSeconds: 0,
		},
		Session: SessionConfig{
			TTLSeconds:      7200,
			CleanupInterval: 300,
		},
	}
}
