package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags plus a small
// set of cross-field rules that struct tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	if cfg.ChunkStore.Type == "s3" {
		if _, ok := cfg.ChunkStore.S3["bucket"]; !ok {
			return fmt.Errorf("chunk_store.s3: bucket is required when chunk_store.type is s3")
		}
	}

	if cfg.Timers.DirectoryInactivityDelay <= 0 {
		return fmt.Errorf("timers.directory_inactivity_delay must be positive")
	}

	return nil
}

func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
