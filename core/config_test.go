package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTurnConfig_IsValid(t *testing.T) {
	require.NoError(t, DefaultTurnConfig().Validate())
}

func TestDefaultTurnConfig_WorkingDirIsProcessCwd(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	cfg := DefaultTurnConfig()
	assert.Equal(t, wd, cfg.WorkingDir)
	assert.True(t, filepath.IsAbs(cfg.WorkingDir))
}

func TestTurnConfig_Validate(t *testing.T) {
	base := DefaultTurnConfig()

	tests := []struct {
		name   string
		mutate func(c *TurnConfig)
		field  string
	}{
		{"empty model name", func(c *TurnConfig) { c.ModelName = "  " }, "ModelName"},
		{"negative temperature", func(c *TurnConfig) { c.Temperature = -0.1 }, "Temperature"},
		{"temperature above two", func(c *TurnConfig) { c.Temperature = 2.5 }, "Temperature"},
		{"zero max tokens", func(c *TurnConfig) { c.MaxTokens = 0 }, "MaxTokens"},
		{"zero max file size", func(c *TurnConfig) { c.MaxFileSize = 0 }, "MaxFileSize"},
		{"no extensions", func(c *TurnConfig) { c.AllowedExtensions = nil }, "AllowedExtensions"},
		{"extension without dot", func(c *TurnConfig) { c.AllowedExtensions = []string{"txt"} }, "AllowedExtensions"},
		{"uppercase extension", func(c *TurnConfig) { c.AllowedExtensions = []string{".TXT"} }, "AllowedExtensions"},
		{"relative working dir", func(c *TurnConfig) { c.WorkingDir = "work" }, "WorkingDir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			cfgErr, ok := err.(*ConfigError)
			require.True(t, ok)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestTurnConfig_ExtensionAllowed(t *testing.T) {
	cfg := DefaultTurnConfig()
	assert.True(t, cfg.ExtensionAllowed(".txt"))
	assert.True(t, cfg.ExtensionAllowed(".TXT"))
	assert.False(t, cfg.ExtensionAllowed(".exe"))
}
