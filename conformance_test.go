package abusefilter_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	abusefilter "github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001"
	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/evaluator"
	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/types"
	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/variables"
)

// ConformanceCase is one entry of a testdata/conformance/*.yaml file.
type ConformanceCase struct {
	Name       string         `yaml:"name"`
	Filter     string         `yaml:"filter"`
	Vars       map[string]any `yaml:"vars"`
	Result     any            `yaml:"result"`
	Conditions *uint64        `yaml:"conditions"`
	Limit      uint64         `yaml:"limit"`
	Error      *ExpectedError `yaml:"error"`
}

// ExpectedError describes the filter error a case must fail with.
type ExpectedError struct {
	Kind     string   `yaml:"kind"`
	Position *int     `yaml:"position"`
	Params   []string `yaml:"params"`
}

func loadConformance(t *testing.T) map[string][]ConformanceCase {
	t.Helper()
	files, err := filepath.Glob(filepath.Join("testdata", "conformance", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	groups := make(map[string][]ConformanceCase, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var cases []ConformanceCase
		require.NoError(t, yaml.Unmarshal(data, &cases), path)
		groups[strings.TrimSuffix(filepath.Base(path), ".yaml")] = cases
	}
	return groups
}

// normalize widens YAML integers to int64 so they compare equal to
// Value.Native output.
func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = normalize(item)
		}
		return out
	}
	return v
}

func TestConformance(t *testing.T) {
	for group, cases := range loadConformance(t) {
		t.Run(group, func(t *testing.T) {
			for _, tc := range cases {
				t.Run(tc.Name, func(t *testing.T) {
					runConformanceCase(t, tc)
				})
			}
		})
	}
}

func runConformanceCase(t *testing.T, tc ConformanceCase) {
	env, err := variables.FromMap(tc.Vars)
	require.NoError(t, err)

	var opts []evaluator.EvalOption
	if tc.Limit > 0 {
		opts = append(opts, evaluator.WithConditionLimit(tc.Limit))
	}

	res, err := abusefilter.Evaluate(context.Background(), tc.Filter, env, opts...)
	if tc.Conditions != nil {
		assert.Equal(t, *tc.Conditions, res.Conditions)
	}

	if tc.Error != nil {
		require.Error(t, err)
		fe, ok := types.AsError(err)
		require.True(t, ok, "expected a filter error, got %v", err)
		assert.Equal(t, tc.Error.Kind, fe.Kind.String())
		if tc.Error.Position != nil {
			assert.Equal(t, *tc.Error.Position, fe.Position)
		}
		if tc.Error.Params != nil {
			assert.Equal(t, tc.Error.Params, fe.Params)
		}
		return
	}

	require.NoError(t, err)
	assert.Equal(t, normalize(tc.Result), res.Value.Native())
}
