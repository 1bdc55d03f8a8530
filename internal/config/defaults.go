package config

import (
	"strings"
	"time"

	"github.com/marmos91/driftvault/internal/timer"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields. Called after unmarshaling, before Validate.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTimersDefaults(&cfg.Timers)
	applyDirectoryDefaults(&cfg.Directory)
	applyEncryptorDefaults(&cfg.Encryptor)
	applyChunkStoreDefaults(&cfg.ChunkStore)
	applyVersionStoreDefaults(&cfg.VersionStore)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)
}

func applyTimersDefaults(cfg *TimersConfig) {
	if cfg.FileInactivityDelay == 0 {
		cfg.FileInactivityDelay = 3 * time.Second
	}
	if cfg.DirectoryInactivityDelay == 0 {
		cfg.DirectoryInactivityDelay = 2 * time.Second
	}
	if cfg.Workers == 0 {
		cfg.Workers = timer.DefaultWorkers
	}
}

func applyDirectoryDefaults(cfg *DirectoryConfig) {
	if cfg.MaxVersions == 0 {
		cfg.MaxVersions = 10
	}
	if cfg.HandlerCacheSize == 0 {
		cfg.HandlerCacheSize = 1024
	}
}

func applyEncryptorDefaults(cfg *EncryptorConfig) {
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = 1 << 20 // 1MB
	}
}

func applyChunkStoreDefaults(cfg *ChunkStoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if _, ok := cfg.Filesystem["path"]; !ok {
		cfg.Filesystem["path"] = "/tmp/drivecore-chunks"
	}
	if _, ok := cfg.Badger["path"]; !ok {
		cfg.Badger["path"] = "/tmp/drivecore-chunks-badger"
	}
}

func applyVersionStoreDefaults(cfg *VersionStoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if _, ok := cfg.Badger["path"]; !ok {
		cfg.Badger["path"] = "/tmp/drivecore-versions-badger"
	}
}

// GetDefaultConfig returns a Config with all defaults applied, used for
// tests and sample config generation.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
