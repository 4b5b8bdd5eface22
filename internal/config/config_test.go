package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "X-Tenant-Id", cfg.Server.TenantHeaderName)
	assert.Equal(t, 0.8, cfg.Pipeline.ReviewConfidenceThreshold)
	assert.Equal(t, "global-default", cfg.Validation.RulePackID)
	assert.Equal(t, 5, cfg.Webhooks.MaxRetries)
	assert.True(t, cfg.IsDev())
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9090"
  env: production
pipeline:
  review_confidence_threshold: 0.9
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 0.9, cfg.Pipeline.ReviewConfidenceThreshold)
	assert.False(t, cfg.IsDev())
	// Untouched knobs keep their defaults.
	assert.Equal(t, "global-default", cfg.Validation.RulePackID)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("REVIEW_CONFIDENCE_THRESHOLD", "0.65")
	t.Setenv("VALIDATION_RULE_PACK_ID", "australia-export")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, 0.65, cfg.Pipeline.ReviewConfidenceThreshold)
	assert.Equal(t, "australia-export", cfg.Validation.RulePackID)
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	t.Setenv("REVIEW_CONFIDENCE_THRESHOLD", "1.5")
	_, err := Load("")
	assert.Error(t, err)
}

func TestMissingFileIsNotAnError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.NoError(t, err)
}
