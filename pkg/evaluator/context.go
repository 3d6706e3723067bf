package evaluator

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/functions"
	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/types"
)

// evalState is the per-call state of one evaluation.
type evalState struct {
	ctx context.Context
	env Environment

	// conditions only ever grows.
	conditions uint64
	limit      uint64

	fnCache *funcCache

	// discarded holds names declared by skipped branches. They read as
	// Null until assigned.
	discarded map[string]struct{}
}

func newState(ctx context.Context, env Environment, limit uint64, cacheSize int) *evalState {
	return &evalState{
		ctx:     ctx,
		env:     env,
		limit:   limit,
		fnCache: newFuncCache(cacheSize),
	}
}

// raiseConditions adds n to the condition count and fails once the count
// exceeds the limit.
func (s *evalState) raiseConditions(n uint64, position int) error {
	s.conditions += n
	if s.limit > 0 && s.conditions > s.limit {
		return types.NewError(types.ErrConditionLimit, position, strconv.FormatUint(s.limit, 10))
	}
	return nil
}

// declare records name as declared but undefined.
func (s *evalState) declare(name string) {
	if s.discarded == nil {
		s.discarded = make(map[string]struct{})
	}
	s.discarded[name] = struct{}{}
}

// isUndefined reports whether name was declared by a skipped branch and
// never assigned.
func (s *evalState) isUndefined(name string) bool {
	if _, ok := s.discarded[name]; !ok {
		return false
	}
	return !s.env.Has(name)
}

func (s *evalState) String() string {
	return fmt.Sprintf("State{conditions=%d, limit=%d, cached=%d}", s.conditions, s.limit, s.fnCache.len())
}

// funcCache memoizes pure function results within one evaluation. When it
// grows past its size it is cleared entirely.
type funcCache struct {
	size    int
	entries map[string]types.Value
}

func newFuncCache(size int) *funcCache {
	return &funcCache{size: size}
}

func (c *funcCache) enabled() bool {
	return c.size > 0
}

func (c *funcCache) key(id functions.ID, args []types.Value) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(int(id)))
	b.WriteByte('(')
	for _, a := range args {
		b.WriteString(a.Key())
	}
	b.WriteByte(')')
	return b.String()
}

func (c *funcCache) get(key string) (types.Value, bool) {
	v, ok := c.entries[key]
	return v, ok
}

func (c *funcCache) put(key string, v types.Value) {
	if c.entries == nil {
		c.entries = make(map[string]types.Value)
	}
	c.entries[key] = v
	if len(c.entries) > c.size {
		clear(c.entries)
	}
}

func (c *funcCache) len() int {
	return len(c.entries)
}
