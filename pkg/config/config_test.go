package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/config"
)

// TestDefault verifies the built-in defaults are valid.
func TestDefault(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, uint64(config.DefaultConditionLimit), cfg.ConditionLimit)
	assert.Equal(t, config.DefaultASTCacheSize, cfg.ASTCache.Size)
	assert.Equal(t, config.ByteSize(1<<20), cfg.ASTCache.MaxBlobSize)
	assert.Empty(t, cfg.ASTCache.SQLitePath)
}

// TestFromYAML verifies YAML decoding over defaults.
func TestFromYAML(t *testing.T) {
	data := []byte(`
condition_limit: 50
debug: true
ast_cache:
  sqlite_path: ":memory:"
  max_blob_size: 512KiB
regex:
  match_timeout: 250ms
variables:
  disabled: [user_age]
  deprecated:
    old_name: user_name
observability:
  metrics: true
`)
	cfg, err := config.FromYAML(data)
	require.NoError(t, err)

	assert.Equal(t, uint64(50), cfg.ConditionLimit)
	assert.True(t, cfg.Debug)
	assert.Equal(t, config.DefaultFunctionCacheSize, cfg.FunctionCacheSize)
	assert.Equal(t, config.DefaultASTCacheSize, cfg.ASTCache.Size)
	assert.Equal(t, ":memory:", cfg.ASTCache.SQLitePath)
	assert.Equal(t, config.ByteSize(512*1024), cfg.ASTCache.MaxBlobSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Regex.MatchTimeout.Std())
	assert.Equal(t, []string{"user_age"}, cfg.Variables.Disabled)
	assert.Equal(t, map[string]string{"old_name": "user_name"}, cfg.Variables.Deprecated)
	assert.True(t, cfg.Observability.Metrics)
	assert.False(t, cfg.Observability.Tracing)
}

// TestFromJSON verifies JSON decoding over defaults.
func TestFromJSON(t *testing.T) {
	data := []byte(`{
		"condition_limit": 0,
		"max_depth": 32,
		"ast_cache": {"size": 8, "max_blob_size": 4096},
		"regex": {"cache_size": 16, "match_timeout": 2}
	}`)
	cfg, err := config.FromJSON(data)
	require.NoError(t, err)

	assert.Equal(t, uint64(0), cfg.ConditionLimit)
	assert.Equal(t, 32, cfg.MaxDepth)
	assert.Equal(t, 8, cfg.ASTCache.Size)
	assert.Equal(t, config.ByteSize(4096), cfg.ASTCache.MaxBlobSize)
	assert.Equal(t, 16, cfg.Regex.CacheSize)
	assert.Equal(t, 2*time.Second, cfg.Regex.MatchTimeout.Std())
}

// TestFromYAML_Empty verifies an empty document yields the defaults.
func TestFromYAML_Empty(t *testing.T) {
	cfg, err := config.FromYAML(nil)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

// TestLoadErrors verifies malformed and invalid input is rejected.
func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		load    func([]byte) (config.Config, error)
		data    string
		wantErr string
	}{
		{"yaml syntax", config.FromYAML, "condition_limit: [", "parse yaml"},
		{"yaml unknown key", config.FromYAML, "conditon_limit: 5", "parse yaml"},
		{"yaml bad size", config.FromYAML, "ast_cache:\n  max_blob_size: lots", "invalid size"},
		{"yaml bad duration", config.FromYAML, "regex:\n  match_timeout: soon", "invalid duration"},
		{"yaml negative size", config.FromYAML, "ast_cache:\n  size: -1", "ast_cache.size"},
		{"json syntax", config.FromJSON, "{", "parse json"},
		{"json unknown key", config.FromJSON, `{"nope": 1}`, "parse json"},
		{"json negative depth", config.FromJSON, `{"max_depth": -2}`, "max_depth"},
		{"json empty alias", config.FromJSON, `{"variables": {"deprecated": {"a": ""}}}`, "variables.deprecated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.load([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// TestValidate_Joins verifies every problem is reported.
func TestValidate_Joins(t *testing.T) {
	cfg := config.Default()
	cfg.FunctionCacheSize = -1
	cfg.Regex.CacheSize = -1
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "function_cache_size")
	assert.Contains(t, err.Error(), "regex.cache_size")
}

// TestFromFile verifies format detection by extension.
func TestFromFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "engine.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("condition_limit: 7\n"), 0o600))
	cfg, err := config.FromFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), cfg.ConditionLimit)

	jsonPath := filepath.Join(dir, "engine.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"condition_limit": 9}`), 0o600))
	cfg, err = config.FromFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), cfg.ConditionLimit)

	tomlPath := filepath.Join(dir, "engine.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(""), 0o600))
	_, err = config.FromFile(tomlPath)
	assert.ErrorContains(t, err, "unsupported config file extension")

	_, err = config.FromFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "read config file")
}

// TestByteSize verifies parsing and rendering of sizes.
func TestByteSize(t *testing.T) {
	tests := []struct {
		in   string
		want config.ByteSize
	}{
		{"1024", 1024},
		{"1KiB", 1024},
		{"1MiB", 1 << 20},
		{"2MB", 2 << 20},
		{" 3 GiB ", 3 << 30},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := config.ParseByteSize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "1MiB", config.ByteSize(1<<20).String())
}

// TestMarshalRoundTrip verifies encoded configs load back unchanged.
func TestMarshalRoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.Regex.MatchTimeout = config.Duration(1500 * time.Millisecond)
	cfg.Variables.Disabled = []string{"user_age"}

	y, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	fromYAML, err := config.FromYAML(y)
	require.NoError(t, err)
	assert.Equal(t, cfg, fromYAML)

	j, err := json.Marshal(cfg)
	require.NoError(t, err)
	fromJSON, err := config.FromJSON(j)
	require.NoError(t, err)
	assert.Equal(t, cfg, fromJSON)
}
