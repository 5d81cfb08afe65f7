package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfigError signals an invalid turn configuration. The first violation
// encountered stops validation.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config field '%s': %s", e.Field, e.Message)
}

// TurnConfig holds the parameters governing a single conversation turn.
// A config must pass Validate before it is used; orchestrator construction
// rejects invalid configs up front.
type TurnConfig struct {
	// ModelName is the provider specific model identifier.
	ModelName string
	// Temperature controls sampling randomness. Valid range is [0, 2].
	Temperature float64
	// MaxTokens caps the model response length. Must be positive.
	MaxTokens int
	// MaxFileSize caps file tool reads and writes in bytes. Must be positive.
	MaxFileSize int64
	// AllowedExtensions lists permitted file extensions for file tools.
	// Entries must be lowercase and start with a dot.
	AllowedExtensions []string
	// WorkingDir is the sandbox root for file tools. Must be absolute.
	WorkingDir string
}

// DefaultTurnConfig returns the baseline configuration. The sandbox root
// defaults to the process working directory.
func DefaultTurnConfig() TurnConfig {
	return TurnConfig{
		ModelName:         "gpt-4o-mini",
		Temperature:       0.7,
		MaxTokens:         1000,
		MaxFileSize:       10 * 1024 * 1024,
		AllowedExtensions: []string{".txt", ".py", ".md", ".json", ".go"},
		WorkingDir:        defaultWorkingDir(),
	}
}

func defaultWorkingDir() string {
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return os.TempDir()
}

// Validate checks the configuration and returns the first violation found.
func (c TurnConfig) Validate() error {
	if strings.TrimSpace(c.ModelName) == "" {
		return &ConfigError{Field: "ModelName", Message: "must not be empty"}
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return &ConfigError{Field: "Temperature", Message: fmt.Sprintf("must be in [0, 2], got %v", c.Temperature)}
	}
	if c.MaxTokens <= 0 {
		return &ConfigError{Field: "MaxTokens", Message: fmt.Sprintf("must be positive, got %d", c.MaxTokens)}
	}
	if c.MaxFileSize <= 0 {
		return &ConfigError{Field: "MaxFileSize", Message: fmt.Sprintf("must be positive, got %d", c.MaxFileSize)}
	}
	if len(c.AllowedExtensions) == 0 {
		return &ConfigError{Field: "AllowedExtensions", Message: "must not be empty"}
	}
	for _, ext := range c.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") || ext != strings.ToLower(ext) {
			return &ConfigError{Field: "AllowedExtensions", Message: fmt.Sprintf("entry %q must be lowercase and start with a dot", ext)}
		}
	}
	if !filepath.IsAbs(c.WorkingDir) {
		return &ConfigError{Field: "WorkingDir", Message: fmt.Sprintf("must be an absolute path, got %q", c.WorkingDir)}
	}
	return nil
}

// ExtensionAllowed reports whether the given extension is in the allow list.
// Comparison is case insensitive.
func (c TurnConfig) ExtensionAllowed(ext string) bool {
	ext = strings.ToLower(ext)
	for _, allowed := range c.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
