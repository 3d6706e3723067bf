package evaluator

import (
	"time"

	"github.com/dlclark/regexp2"

	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/cache"
)

// DefaultRegexCacheSize bounds the process-wide regex cache.
const DefaultRegexCacheSize = 512

// regexKey identifies a compiled pattern.
type regexKey struct {
	pattern string
	opts    regexp2.RegexOptions
}

// RegexCache is a bounded LRU of compiled patterns shared by evaluators.
//
// THREAD-SAFETY AUDIT: safe.
//   - The LRU is guarded by its own RWMutex.
//   - *regexp2.Regexp may be used by several goroutines at once.
//   - Two goroutines compiling the same pattern both store an equivalent
//     value; the later write is harmless.
type RegexCache struct {
	lru     *cache.LRU[regexKey, *regexp2.Regexp]
	timeout time.Duration
}

// NewRegexCache creates a cache holding up to size patterns. A positive
// timeout bounds every match made with a cached pattern.
func NewRegexCache(size int, timeout time.Duration) *RegexCache {
	return &RegexCache{
		lru:     cache.NewLRU[regexKey, *regexp2.Regexp](size),
		timeout: timeout,
	}
}

// defaultRegexCache is used by evaluators configured without a cache or
// timeout.
var defaultRegexCache = NewRegexCache(DefaultRegexCacheSize, 0)

// Compile returns the compiled form of pattern, compiling it on a miss.
// Compilation errors are not cached.
func (c *RegexCache) Compile(pattern string, opts regexp2.RegexOptions) (*regexp2.Regexp, error) {
	return c.lru.GetOrCompute(regexKey{pattern: pattern, opts: opts}, func() (*regexp2.Regexp, error) {
		re, err := regexp2.Compile(pattern, opts)
		if err != nil {
			return nil, err
		}
		if c.timeout > 0 {
			re.MatchTimeout = c.timeout
		}
		return re, nil
	})
}

// Len returns the number of cached patterns.
func (c *RegexCache) Len() int {
	return c.lru.Len()
}
