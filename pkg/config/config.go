package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-units"
	"gopkg.in/yaml.v3"
)

// Defaults applied to keys missing from a loaded file.
const (
	DefaultConditionLimit    = 1000
	DefaultFunctionCacheSize = 1000
	DefaultMaxDepth          = 256
	DefaultASTCacheSize      = 1024
	DefaultMaxBlobSize       = ByteSize(1 << 20)
	DefaultRegexCacheSize    = 512
)

// Config is the engine configuration.
type Config struct {
	// ConditionLimit fails an evaluation once it consumes more conditions.
	// Zero means unlimited.
	ConditionLimit uint64 `yaml:"condition_limit" json:"condition_limit"`
	// FunctionCacheSize bounds the per-evaluation function-result cache.
	// Zero disables memoization.
	FunctionCacheSize int `yaml:"function_cache_size" json:"function_cache_size"`
	// MaxDepth bounds parser nesting. Zero means unlimited.
	MaxDepth int  `yaml:"max_depth" json:"max_depth"`
	Debug    bool `yaml:"debug" json:"debug"`

	ASTCache      ASTCache      `yaml:"ast_cache" json:"ast_cache"`
	Regex         Regex         `yaml:"regex" json:"regex"`
	Variables     Variables     `yaml:"variables" json:"variables"`
	Observability Observability `yaml:"observability" json:"observability"`
}

// ASTCache configures the parsed-filter cache.
type ASTCache struct {
	// Size is the capacity of the in-memory LRU.
	Size int `yaml:"size" json:"size"`
	// SQLitePath enables the persistent store when set. ":memory:" is
	// accepted.
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path"`
	// MaxBlobSize is the largest encoded AST written to the store.
	MaxBlobSize ByteSize `yaml:"max_blob_size" json:"max_blob_size"`
}

// Regex configures compiled-pattern caching and matching.
type Regex struct {
	CacheSize    int      `yaml:"cache_size" json:"cache_size"`
	MatchTimeout Duration `yaml:"match_timeout" json:"match_timeout"`
}

// Variables adjusts the built-in variable registry.
type Variables struct {
	Disabled   []string          `yaml:"disabled,omitempty" json:"disabled,omitempty"`
	Deprecated map[string]string `yaml:"deprecated,omitempty" json:"deprecated,omitempty"`
}

// Observability switches metrics and tracing on.
type Observability struct {
	Metrics bool `yaml:"metrics" json:"metrics"`
	Tracing bool `yaml:"tracing" json:"tracing"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		ConditionLimit:    DefaultConditionLimit,
		FunctionCacheSize: DefaultFunctionCacheSize,
		MaxDepth:          DefaultMaxDepth,
		ASTCache: ASTCache{
			Size:        DefaultASTCacheSize,
			MaxBlobSize: DefaultMaxBlobSize,
		},
		Regex: Regex{
			CacheSize: DefaultRegexCacheSize,
		},
	}
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.FunctionCacheSize < 0 {
		errs = append(errs, fmt.Errorf("function_cache_size must not be negative, got %d", c.FunctionCacheSize))
	}
	if c.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("max_depth must not be negative, got %d", c.MaxDepth))
	}
	if c.ASTCache.Size < 0 {
		errs = append(errs, fmt.Errorf("ast_cache.size must not be negative, got %d", c.ASTCache.Size))
	}
	if c.ASTCache.MaxBlobSize < 0 {
		errs = append(errs, fmt.Errorf("ast_cache.max_blob_size must not be negative, got %d", c.ASTCache.MaxBlobSize))
	}
	if c.Regex.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("regex.cache_size must not be negative, got %d", c.Regex.CacheSize))
	}
	if c.Regex.MatchTimeout < 0 {
		errs = append(errs, fmt.Errorf("regex.match_timeout must not be negative, got %s", time.Duration(c.Regex.MatchTimeout)))
	}
	for from, to := range c.Variables.Deprecated {
		if from == "" || to == "" {
			errs = append(errs, fmt.Errorf("variables.deprecated has an empty name in %q -> %q", from, to))
		}
	}
	return errors.Join(errs...)
}

// ByteSize is a size in bytes. It decodes from a number or a
// human-readable string such as "1MiB".
type ByteSize int64

// ParseByteSize parses a human-readable size.
func ParseByteSize(s string) (ByteSize, error) {
	n, err := units.RAMInBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return ByteSize(n), nil
}

// String renders the size with binary units.
func (b ByteSize) String() string {
	return units.BytesSize(float64(b))
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	if value.ShortTag() == "!!int" {
		n, err := strconv.ParseInt(value.Value, 0, 64)
		if err != nil {
			return fmt.Errorf("invalid size %q: %w", value.Value, err)
		}
		*b = ByteSize(n)
		return nil
	}
	size, err := ParseByteSize(value.Value)
	if err != nil {
		return err
	}
	*b = size
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (b ByteSize) MarshalYAML() (any, error) {
	return b.String(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *ByteSize) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		size, err := ParseByteSize(s)
		if err != nil {
			return err
		}
		*b = size
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid size %s: %w", data, err)
	}
	*b = ByteSize(n)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (b ByteSize) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// Duration is a time.Duration that decodes from a duration string or a
// number of seconds.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String implements fmt.Stringer.
func (d Duration) String() string {
	return time.Duration(d).String()
}

func parseDuration(s string) (Duration, error) {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return Duration(d), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	v, err := parseDuration(value.Value)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		s = string(data)
	}
	v, err := parseDuration(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}
