package config

import "path/filepath"

// DefaultConfig returns the configuration used when no file or environment
// overrides are present.
func DefaultConfig() *Config {
	return &Config{
		Port:    8080,
		DataDir: "data",
		AuditDB: filepath.Join("data", "audit.db"),
		BotName: "drill_bit_bot",
	}
}
