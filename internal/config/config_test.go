package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDefaultConfigPassesValidation(t *testing.T) {
	cfg := GetDefaultConfig()
	require.NoError(t, Validate(cfg))

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "memory", cfg.ChunkStore.Type)
	assert.Equal(t, "memory", cfg.VersionStore.Type)
	assert.Equal(t, 10, cfg.Directory.MaxVersions)
}

func TestApplyDefaultsUppercasesLogLevel(t *testing.T) {
	cfg := &Config{}
	cfg.Logging.Level = "debug"
	ApplyDefaults(cfg)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "VERBOSE"

	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsZeroChunkSize(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Encryptor.ChunkSize = 0

	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsUnknownChunkStoreType(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.ChunkStore.Type = "unknown"

	assert.Error(t, Validate(cfg))
}

func TestValidateRequiresS3BucketWhenChunkStoreIsS3(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.ChunkStore.Type = "s3"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket is required")
}

func TestValidateAcceptsS3WithBucketConfigured(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.ChunkStore.Type = "s3"
	cfg.ChunkStore.S3["bucket"] = "my-bucket"

	assert.NoError(t, Validate(cfg))
}

func TestValidateRejectsZeroDirectoryInactivityDelay(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Timers.DirectoryInactivityDelay = 0

	assert.Error(t, Validate(cfg))
}
