package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 9020, cfg.Server.Port)
	assert.Equal(t, "demo-token", cfg.Server.AuthToken)
	assert.Equal(t, 50000, cfg.Server.MaxContentLength)
	assert.Equal(t, "llama3", cfg.Model.ID)
	assert.Empty(t, cfg.Model.BaseURL)
	assert.InDelta(t, 0.1, cfg.Model.Temperature, 1e-9)
	assert.True(t, cfg.Model.JSONMode)
	assert.Equal(t, ModeMulti, cfg.Execution.Mode)
	assert.Equal(t, 4, cfg.Execution.MaxConcurrency)
	assert.Equal(t, "1.0.0", cfg.Policy.Version)
	require.NoError(t, Validate(cfg))
}

func TestPolicyLookups(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		s         Strictness
		k         int
		threshold float64
	}{
		{StrictnessLow, 6, 0.85},
		{StrictnessMedium, 10, 0.75},
		{StrictnessHigh, 14, 0.70},
		{Strictness("extreme"), 10, 0.75},
	}
	for _, tt := range tests {
		t.Run(string(tt.s), func(t *testing.T) {
			assert.Equal(t, tt.k, p.Retrieval.K(tt.s))
			assert.InDelta(t, tt.threshold, p.Thresholds.Violation(tt.s), 1e-9)
		})
	}
}

func TestFallbackThresholdIgnoresConfiguredMedium(t *testing.T) {
	th := Thresholds{ViolationLow: 0.9, ViolationMedium: 0.6, ViolationHigh: 0.5}
	assert.InDelta(t, 0.6, th.Violation(StrictnessMedium), 1e-9)
	assert.InDelta(t, FallbackViolationThreshold, th.Violation("unknown"), 1e-9)
}

func TestStrictnessValid(t *testing.T) {
	assert.True(t, StrictnessLow.Valid())
	assert.True(t, StrictnessHigh.Valid())
	assert.False(t, Strictness("").Valid())
	assert.False(t, Strictness("MEDIUM").Valid())
}

func TestPromptInstructionFallback(t *testing.T) {
	p := DefaultPrompts()
	assert.Equal(t, "Be lenient. Only flag clear, unambiguous issues.", p.Instruction(StrictnessLow))
	assert.Equal(t, "Apply standard review criteria.", p.Instruction("bogus"))
}

func TestMergeEnv(t *testing.T) {
	t.Setenv("CSR_MODEL_ID", "gemma3:27b")
	t.Setenv("CSR_PORT", "8080")
	t.Setenv("CSR_MODEL_JSON_MODE", "false")
	t.Setenv("CSR_POLICY_THRESHOLDS_VIOLATION_LOW", "0.9")
	t.Setenv("CSR_POLICY_RETRIEVAL_K_HIGH", "20")
	t.Setenv("CSR_LOG_LEVEL", "DEBUG")

	cfg := Default()
	require.NoError(t, mergeEnv(&cfg))
	assert.Equal(t, "gemma3:27b", cfg.Model.ID)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, cfg.Model.JSONMode)
	assert.InDelta(t, 0.9, cfg.Policy.Thresholds.ViolationLow, 1e-9)
	assert.Equal(t, 20, cfg.Policy.Retrieval.KHigh)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestMergeEnvBadValue(t *testing.T) {
	t.Setenv("CSR_POLICY_DEFAULTS_MAX_OBSERVATIONS", "lots")
	cfg := Default()
	err := mergeEnv(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CSR_POLICY_DEFAULTS_MAX_OBSERVATIONS")
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "csr.yaml")
	yml := `
model:
  id: from-file
  temperature: 0.3
policy:
  defaults:
    max_observations: 40
execution:
  mode: single
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("CSR_MODEL_TEMPERATURE", "0.5")

	cfg, err := Load(path, map[string]string{"model": "from-flag"})
	require.NoError(t, err)

	assert.Equal(t, "from-flag", cfg.Model.ID)
	assert.InDelta(t, 0.5, cfg.Model.Temperature, 1e-9)
	assert.Equal(t, 40, cfg.Policy.Defaults.MaxObservations)
	assert.Equal(t, ModeSingle, cfg.Execution.Mode)
	// untouched sections keep their defaults
	assert.InDelta(t, 0.55, cfg.Policy.Defaults.MinConfidence, 1e-9)
	assert.Equal(t, 10, cfg.Policy.Retrieval.KMedium)
	assert.Equal(t, "Apply standard review criteria.", cfg.Prompts.Instruction(StrictnessMedium))
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadMissingDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "llama3", cfg.Model.ID)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad mode", func(c *Config) { c.Execution.Mode = "batch" }},
		{"bad provider", func(c *Config) { c.Model.Provider = "mystery" }},
		{"threshold above one", func(c *Config) { c.Policy.Thresholds.ViolationHigh = 1.5 }},
		{"zero k", func(c *Config) { c.Policy.Retrieval.KLow = 0 }},
		{"max observations over limit", func(c *Config) { c.Policy.Defaults.MaxObservations = 101 }},
		{"policy version not semver", func(c *Config) { c.Policy.Version = "one" }},
		{"missing medium instruction", func(c *Config) { delete(c.Prompts.StrictnessInstructions, "medium") }},
		{"empty system prompt", func(c *Config) { c.Prompts.SystemPrompt = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestSetField(t *testing.T) {
	cfg := Default()
	require.NoError(t, SetField(&cfg, "maxConcurrency", "8"))
	assert.Equal(t, 8, cfg.Execution.MaxConcurrency)

	assert.Error(t, SetField(&cfg, "nonexistent", "x"))
	assert.Error(t, SetField(&cfg, "port", "abc"))
}

func TestSaveRoundTripKeepsPrompts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "csr.yaml")
	cfg := Default()
	cfg.Model.ID = "mistral"
	require.NoError(t, Save(path, cfg))

	loaded, err := LoadFile(path, true, Default())
	require.NoError(t, err)
	assert.Equal(t, "mistral", loaded.Model.ID)
	assert.Equal(t, cfg.Prompts.SystemPrompt, loaded.Prompts.SystemPrompt)
}

func TestMasked(t *testing.T) {
	cfg := Default()
	cfg.Model.APIKey = "sk-live-abcdef"
	m := cfg.Masked()
	assert.NotEqual(t, "sk-live-abcdef", m.Model.APIKey)
	assert.NotEqual(t, "demo-token", m.Server.AuthToken)
	assert.Equal(t, "sk-live-abcdef", cfg.Model.APIKey)
}
