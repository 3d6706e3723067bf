package cache_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/cache"
	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/parser"
	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/types"
)

const filterSource = `user_editcount < 10 & lcase(added_lines) irlike "sp[a@]m"; x := [1, 2.5, 'a']`

func countingParse(calls *int) cache.ParseFunc {
	return func(source string) (*types.Expression, error) {
		*calls++
		return parser.Parse(source)
	}
}

func TestKeyNormalizesSource(t *testing.T) {
	// "é" precomposed and decomposed hash to the same key.
	assert.Equal(t, cache.Key("\"caf\u00e9\""), cache.Key("\"cafe\u0301\""))
	assert.NotEqual(t, cache.Key("a"), cache.Key("b"))
	assert.Len(t, cache.Key("a"), 64)
}

func TestASTCacheMemory(t *testing.T) {
	ctx := context.Background()
	c := cache.NewASTCache(8)
	calls := 0

	first, lookup, err := c.GetOrParse(ctx, filterSource, countingParse(&calls))
	require.NoError(t, err)
	assert.Equal(t, cache.Miss, lookup)

	second, lookup, err := c.GetOrParse(ctx, filterSource, countingParse(&calls))
	require.NoError(t, err)
	assert.Equal(t, cache.MemoryHit, lookup)
	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.MemoryHits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestASTCacheEquivalentVariants(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	c := cache.NewASTCache(8, cache.WithStore(store))
	calls := 0

	composed := "a === \"caf\u00e9\""
	decomposed := "a === \"cafe\u0301\""

	first, lookup, err := c.GetOrParse(ctx, composed, countingParse(&calls))
	require.NoError(t, err)
	assert.Equal(t, cache.Miss, lookup)
	assert.Equal(t, composed, first.Source())

	second, lookup, err := c.GetOrParse(ctx, decomposed, countingParse(&calls))
	require.NoError(t, err)
	assert.Equal(t, cache.Miss, lookup)
	assert.Equal(t, decomposed, second.Source())
	assert.Equal(t, 2, calls)

	// A fresh cache does not serve the stored variant for the other spelling.
	cold := cache.NewASTCache(8, cache.WithStore(store))
	_, lookup = cold.Get(ctx, composed)
	assert.Equal(t, cache.Miss, lookup)
	expr, lookup := cold.Get(ctx, decomposed)
	assert.Equal(t, cache.StoreHit, lookup)
	assert.Equal(t, decomposed, expr.Source())
}

func TestASTCacheParseErrorNotCached(t *testing.T) {
	ctx := context.Background()
	c := cache.NewASTCache(8)
	calls := 0

	for range 2 {
		_, _, err := c.GetOrParse(ctx, "1 +", countingParse(&calls))
		assert.ErrorIs(t, err, types.ErrUnexpectedToken)
	}
	assert.Equal(t, 2, calls)
}

func TestASTCacheStoreFallback(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	calls := 0

	warm := cache.NewASTCache(8, cache.WithStore(store))
	original, _, err := warm.GetOrParse(ctx, filterSource, countingParse(&calls))
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())

	// A fresh cache sharing the store finds the tree without parsing.
	cold := cache.NewASTCache(8, cache.WithStore(store))
	restored, lookup, err := cold.GetOrParse(ctx, filterSource, countingParse(&calls))
	require.NoError(t, err)
	assert.Equal(t, cache.StoreHit, lookup)
	assert.Equal(t, 1, calls)
	assert.True(t, original.AST().Equal(restored.AST()))
	assert.Equal(t, original.Source(), restored.Source())

	_, lookup = cold.Get(ctx, filterSource)
	assert.Equal(t, cache.MemoryHit, lookup)

	require.NoError(t, cold.Invalidate(ctx, filterSource))
	assert.Equal(t, 0, store.Len())
}

func TestASTCacheMaxBlobSize(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	c := cache.NewASTCache(8, cache.WithStore(store), cache.WithMaxBlobSize(8))

	_, _, err := c.GetOrParse(ctx, filterSource, parser.Parse)
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestASTCacheCorruptBlob(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	require.NoError(t, store.Put(ctx, cache.Key(filterSource), []byte("not lz4")))

	c := cache.NewASTCache(8, cache.WithStore(store))
	calls := 0
	_, lookup, err := c.GetOrParse(ctx, filterSource, countingParse(&calls))
	require.NoError(t, err)
	assert.Equal(t, cache.Miss, lookup)
	assert.Equal(t, 1, calls)

	// The corrupt blob was replaced by a good one.
	blob, err := store.Get(ctx, cache.Key(filterSource))
	require.NoError(t, err)
	_, err = cache.DecodeExpression(blob)
	assert.NoError(t, err)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) { return nil, errors.New("down") }
func (failingStore) Put(context.Context, string, []byte) error   { return errors.New("down") }
func (failingStore) Delete(context.Context, string) error        { return errors.New("down") }
func (failingStore) Close() error                                { return nil }

func TestASTCacheStoreFailuresAreSoft(t *testing.T) {
	c := cache.NewASTCache(8, cache.WithStore(failingStore{}))
	expr, lookup, err := c.GetOrParse(context.Background(), "1 + 1", parser.Parse)
	require.NoError(t, err)
	assert.Equal(t, cache.Miss, lookup)
	assert.NotNil(t, expr)
}

func TestASTCacheConcurrentPopulation(t *testing.T) {
	ctx := context.Background()
	c := cache.NewASTCache(8)

	var wg sync.WaitGroup
	results := make([]*types.Expression, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			expr, _, err := c.GetOrParse(ctx, filterSource, parser.Parse)
			assert.NoError(t, err)
			results[i] = expr
		}()
	}
	wg.Wait()

	for _, expr := range results {
		assert.True(t, results[0].AST().Equal(expr.AST()))
	}
}

func TestCodecRoundTrip(t *testing.T) {
	expr, err := parser.Parse(`ccnorm_contains_any(a, "b") ? 1fx : -.5`)
	require.NoError(t, err)

	blob, err := cache.EncodeExpression(expr)
	require.NoError(t, err)
	back, err := cache.DecodeExpression(blob)
	require.NoError(t, err)
	assert.True(t, expr.AST().Equal(back.AST()))
	assert.Equal(t, parser.Format(expr.AST()), parser.Format(back.AST()))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := cache.NewMemoryStore()

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrNotFound)

	data := []byte("blob")
	require.NoError(t, s.Put(ctx, "k", data))
	data[0] = 'X'
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("blob"), got)

	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))

	require.NoError(t, s.Close())
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrStoreClosed)
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	s, err := cache.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrNotFound)

	require.NoError(t, s.Put(ctx, "k", []byte("one")))
	require.NoError(t, s.Put(ctx, "k", []byte("two")))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)

	n, err := s.Prune(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, s.Delete(ctx, "missing"))
}

func TestSQLiteStorePersistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ast.db")

	store1, err := cache.NewSQLiteStore(path)
	require.NoError(t, err)
	c := cache.NewASTCache(8, cache.WithStore(store1))
	_, _, err = c.GetOrParse(ctx, filterSource, parser.Parse)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	store2, err := cache.NewSQLiteStore(path)
	require.NoError(t, err)
	defer store2.Close()

	c = cache.NewASTCache(8, cache.WithStore(store2))
	_, lookup := c.Get(ctx, filterSource)
	assert.Equal(t, cache.StoreHit, lookup)
}

func TestSQLiteStoreClosed(t *testing.T) {
	s, err := cache.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())

	err = s.Put(context.Background(), "k", nil)
	assert.ErrorIs(t, err, cache.ErrStoreClosed)
}
