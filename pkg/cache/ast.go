package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync/atomic"

	"golang.org/x/text/unicode/norm"

	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/observability"
	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/types"
)

// ParseFunc parses filter source into an expression.
type ParseFunc func(source string) (*types.Expression, error)

// Lookup reports where GetOrParse found an expression.
type Lookup uint8

// Lookup results.
const (
	Miss Lookup = iota
	MemoryHit
	StoreHit
)

// String returns the lookup name used in logs and metric attributes.
func (l Lookup) String() string {
	switch l {
	case MemoryHit:
		return "memory"
	case StoreHit:
		return "store"
	}
	return "miss"
}

// Hit reports whether the expression came from a cache.
func (l Lookup) Hit() bool {
	return l != Miss
}

// Stats is a snapshot of ASTCache counters.
type Stats struct {
	MemoryHits uint64
	StoreHits  uint64
	Misses     uint64
	Entries    int
}

// ASTCache caches parsed filters by a hash of their normalized source.
// Lookups consult an in-memory LRU first and then an optional Store. An
// entry only serves a lookup whose source matches it byte for byte, so
// canonically equivalent variants never share literal bytes.
//
// Safe for concurrent use by multiple goroutines.
type ASTCache struct {
	lru         *LRU[string, *types.Expression]
	store       Store
	maxBlobSize int64
	logger      *slog.Logger

	memoryHits atomic.Uint64
	storeHits  atomic.Uint64
	misses     atomic.Uint64
}

// ASTCacheOption configures an ASTCache.
type ASTCacheOption func(*ASTCache)

// WithStore adds a persistent backing store.
func WithStore(store Store) ASTCacheOption {
	return func(c *ASTCache) {
		c.store = store
	}
}

// WithMaxBlobSize skips persisting blobs larger than n bytes. Zero means
// no limit.
func WithMaxBlobSize(n int64) ASTCacheOption {
	return func(c *ASTCache) {
		c.maxBlobSize = n
	}
}

// WithLogger sets the logger used for store failures.
func WithLogger(logger *slog.Logger) ASTCacheOption {
	return func(c *ASTCache) {
		c.logger = logger
	}
}

// NewASTCache creates an AST cache holding up to capacity expressions in
// memory.
func NewASTCache(capacity int, opts ...ASTCacheOption) *ASTCache {
	c := &ASTCache{lru: NewLRU[string, *types.Expression](capacity)}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Normalize returns the canonical form of filter source used for hashing.
func Normalize(source string) string {
	return norm.NFC.String(source)
}

// Key returns the hex SHA-256 of the normalized source.
func Key(source string) string {
	sum := sha256.Sum256([]byte(Normalize(source)))
	return hex.EncodeToString(sum[:])
}

// Get returns a cached expression without parsing.
func (c *ASTCache) Get(ctx context.Context, source string) (*types.Expression, Lookup) {
	return c.get(ctx, Key(source), source)
}

func (c *ASTCache) get(ctx context.Context, key, source string) (*types.Expression, Lookup) {
	if expr, ok := c.lru.Get(key); ok && expr.Source() == source {
		c.memoryHits.Add(1)
		return expr, MemoryHit
	}
	if c.store == nil {
		return nil, Miss
	}

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			observability.LogCacheStoreError(c.logger, "get", key, err)
		}
		return nil, Miss
	}
	expr, err := DecodeExpression(data)
	if err != nil {
		c.logger.Warn("discarding undecodable ast blob", "key", key, "error", err)
		if err := c.store.Delete(ctx, key); err != nil {
			observability.LogCacheStoreError(c.logger, "delete", key, err)
		}
		return nil, Miss
	}
	if expr.Source() != source {
		return nil, Miss
	}
	c.lru.Set(key, expr)
	c.storeHits.Add(1)
	return expr, StoreHit
}

// GetOrParse returns the cached expression for source, or parses source
// and caches the result. Parse errors are not cached.
// Store failures are logged and never fail the call.
func (c *ASTCache) GetOrParse(ctx context.Context, source string, parse ParseFunc) (*types.Expression, Lookup, error) {
	key := Key(source)
	if expr, lookup := c.get(ctx, key, source); lookup.Hit() {
		return expr, lookup, nil
	}
	c.misses.Add(1)

	expr, err := parse(source)
	if err != nil {
		return nil, Miss, err
	}
	c.lru.Set(key, expr)
	c.persist(ctx, key, expr)
	return expr, Miss, nil
}

func (c *ASTCache) persist(ctx context.Context, key string, expr *types.Expression) {
	if c.store == nil {
		return
	}
	data, err := EncodeExpression(expr)
	if err != nil {
		c.logger.Warn("ast encode failed", "key", key, "error", err)
		return
	}
	if c.maxBlobSize > 0 && int64(len(data)) > c.maxBlobSize {
		c.logger.Debug("ast blob too large to persist", "key", key, "size", len(data), "max", c.maxBlobSize)
		return
	}
	if err := c.store.Put(ctx, key, data); err != nil {
		observability.LogCacheStoreError(c.logger, "put", key, err)
	}
}

// Invalidate drops source from memory and from the store.
func (c *ASTCache) Invalidate(ctx context.Context, source string) error {
	key := Key(source)
	c.lru.Invalidate(key)
	if c.store == nil {
		return nil
	}
	return c.store.Delete(ctx, key)
}

// Stats returns a snapshot of the hit and miss counters.
func (c *ASTCache) Stats() Stats {
	return Stats{
		MemoryHits: c.memoryHits.Load(),
		StoreHits:  c.storeHits.Load(),
		Misses:     c.misses.Load(),
		Entries:    c.lru.Len(),
	}
}

// Close closes the backing store, if any.
func (c *ASTCache) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}
