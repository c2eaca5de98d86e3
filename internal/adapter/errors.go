package adapter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfiguration matches every *ConfigurationError via errors.Is.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports a required option that is still empty after
// merging caller options over the defaults.
type ConfigurationError struct {
	Option string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: missing required option `%s`", e.Option)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// NameGenerationError wraps a failure of the filename strategy. No provider
// call is made when it is returned.
type NameGenerationError struct {
	Attempt int
	Err     error
}

func (e *NameGenerationError) Error() string {
	return fmt.Sprintf("generate filename (attempt %d): %v", e.Attempt, e.Err)
}

func (e *NameGenerationError) Unwrap() error { return e.Err }

// ProviderError wraps any failure reported by the storage provider. The
// underlying error is passed through unclassified.
type ProviderError struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Bucket, strings.TrimPrefix(e.Key, "/"), e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
