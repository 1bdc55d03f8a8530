// Package config loads and validates the drive core's configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete drive core configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (DRIVECORE_*)
//  3. Configuration file (YAML, via viper)
//  4. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each store implementation defines its own configuration section. The
// Config struct carries type-specific sections (e.g. chunk_store.filesystem,
// chunk_store.badger) and only the section matching the selected Type is
// consulted.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging"`

	// Timers controls the file/directory inactivity delays and the
	// timer executor's worker count.
	Timers TimersConfig `mapstructure:"timers"`

	// Directory controls directory-level tunables: bounded version
	// history and the resolver's LRU cache size.
	Directory DirectoryConfig `mapstructure:"directory"`

	// Encryptor controls the streaming codec's chunking behavior.
	Encryptor EncryptorConfig `mapstructure:"encryptor"`

	// ChunkStore selects and configures the content-addressed blob store.
	ChunkStore ChunkStoreConfig `mapstructure:"chunk_store"`

	// VersionStore selects and configures the structured-version store.
	VersionStore VersionStoreConfig `mapstructure:"version_store"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
}

// TimersConfig controls the inactivity-timer and executor tunables.
type TimersConfig struct {
	// FileInactivityDelay is how long an idle, open-count-zero file
	// waits before its encryptor is flushed and torn down.
	FileInactivityDelay time.Duration `mapstructure:"file_inactivity_delay" validate:"required,gt=0"`

	// DirectoryInactivityDelay is the debounce window after which a
	// dirty directory is serialised and stored.
	DirectoryInactivityDelay time.Duration `mapstructure:"directory_inactivity_delay" validate:"required,gt=0"`

	// Workers is the timer executor's worker-pool size. Must be at
	// least timer.DefaultWorkers; lower values are raised silently by
	// the executor itself, this just documents the intended minimum.
	Workers int `mapstructure:"workers" validate:"gte=0"`
}

// DirectoryConfig controls directory-level tunables.
type DirectoryConfig struct {
	// MaxVersions bounds the in-memory and persisted version history
	// kept per directory.
	MaxVersions int `mapstructure:"max_versions" validate:"required,gt=0"`

	// HandlerCacheSize bounds the DirectoryHandler's LRU cache of
	// resolved, in-memory Directory instances.
	HandlerCacheSize int `mapstructure:"handler_cache_size" validate:"required,gt=0"`
}

// EncryptorConfig controls the streaming codec.
type EncryptorConfig struct {
	// ChunkSize is the plaintext size of each chunk before
	// compression/encryption.
	ChunkSize int `mapstructure:"chunk_size" validate:"required,gt=0"`
}

// ChunkStoreConfig specifies chunk store configuration.
//
// The Type field determines which store implementation is used; only
// the corresponding type-specific section is consulted.
type ChunkStoreConfig struct {
	// Type selects the backend implementation.
	// Valid values: memory, filesystem, s3, badger.
	Type string `mapstructure:"type" validate:"required,oneof=memory filesystem s3 badger"`

	Filesystem map[string]any `mapstructure:"filesystem"`
	S3         map[string]any `mapstructure:"s3"`
	Badger     map[string]any `mapstructure:"badger"`
}

// VersionStoreConfig specifies version store configuration.
type VersionStoreConfig struct {
	// Type selects the backend implementation.
	// Valid values: memory, badger.
	Type string `mapstructure:"type" validate:"required,oneof=memory badger"`

	Badger map[string]any `mapstructure:"badger"`
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: path to a config file (empty string uses the default
//     XDG location).
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper's environment and config-file search.
func setupViper(v *viper.Viper, configPath string) {
	// DRIVECORE_TIMERS_FILE_INACTIVITY_DELAY=5s, etc.
	v.SetEnvPrefix("DRIVECORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}

	configDir := getConfigDir()
	v.AddConfigPath(configDir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper, configPath string) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns $XDG_CONFIG_HOME/drivecore, falling back to
// ~/.config/drivecore, or "." if the home directory can't be resolved.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "drivecore")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "drivecore")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists reports whether a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}
