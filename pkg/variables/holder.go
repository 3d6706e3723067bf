package variables

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/types"
)

// ErrNoResolver is returned when a lazy entry is read from a Holder that
// has no Resolver.
var ErrNoResolver = errors.New("variables: no resolver for lazy entry")

// Lazy describes a value the host computes on first read. Method and Params
// are opaque to the engine.
type Lazy struct {
	Method string         `json:"method" yaml:"method"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// Resolver computes lazy entries. The Holder is passed so a resolver can
// derive one variable from others.
type Resolver interface {
	Resolve(ctx context.Context, lazy Lazy, vars *Holder) (types.Value, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, lazy Lazy, vars *Holder) (types.Value, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, lazy Lazy, vars *Holder) (types.Value, error) {
	return f(ctx, lazy, vars)
}

// Holder is a case-insensitive variable environment. A resolved lazy entry
// is replaced by its value, so the resolver runs at most once per name.
//
// A Holder is not safe for concurrent use.
type Holder struct {
	values   map[string]types.Value
	lazy     map[string]Lazy
	resolver Resolver
}

// NewHolder returns an empty Holder. resolver may be nil when no lazy
// entries are used.
func NewHolder(resolver Resolver) *Holder {
	return &Holder{
		values:   make(map[string]types.Value),
		lazy:     make(map[string]Lazy),
		resolver: resolver,
	}
}

// FromMap builds a Holder from plain Go values.
func FromMap(vars map[string]any) (*Holder, error) {
	h := NewHolder(nil)
	for name, v := range vars {
		if err := h.SetNative(name, v); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Set stores a concrete value, replacing any lazy entry of the same name.
func (h *Holder) Set(name string, v types.Value) {
	name = strings.ToLower(name)
	delete(h.lazy, name)
	h.values[name] = v
}

// SetNative converts v with types.FromNative and stores it.
func (h *Holder) SetNative(name string, v any) error {
	val, err := types.FromNative(v)
	if err != nil {
		return fmt.Errorf("variable %s: %w", name, err)
	}
	h.Set(name, val)
	return nil
}

// SetLazy stores a lazy entry, replacing any value of the same name.
func (h *Holder) SetLazy(name string, lazy Lazy) {
	name = strings.ToLower(name)
	delete(h.values, name)
	h.lazy[name] = lazy
}

// Has reports whether name is set, concretely or lazily.
func (h *Holder) Has(name string) bool {
	name = strings.ToLower(name)
	if _, ok := h.values[name]; ok {
		return true
	}
	_, ok := h.lazy[name]
	return ok
}

// IsLazy reports whether name holds an unresolved lazy entry.
func (h *Holder) IsLazy(name string) bool {
	_, ok := h.lazy[strings.ToLower(name)]
	return ok
}

// Get returns the value of name, resolving a lazy entry if needed.
func (h *Holder) Get(ctx context.Context, name string) (types.Value, bool, error) {
	name = strings.ToLower(name)
	if v, ok := h.values[name]; ok {
		return v, true, nil
	}
	lazy, ok := h.lazy[name]
	if !ok {
		return types.NullValue, false, nil
	}
	if h.resolver == nil {
		return types.NullValue, true, fmt.Errorf("resolve %s (%s): %w", name, lazy.Method, ErrNoResolver)
	}
	v, err := h.resolver.Resolve(ctx, lazy, h)
	if err != nil {
		return types.NullValue, true, fmt.Errorf("resolve %s (%s): %w", name, lazy.Method, err)
	}
	h.Set(name, v)
	return v, true, nil
}

// Remove deletes name.
func (h *Holder) Remove(name string) {
	name = strings.ToLower(name)
	delete(h.values, name)
	delete(h.lazy, name)
}

// Names returns every set name in sorted order.
func (h *Holder) Names() []string {
	names := slices.Collect(maps.Keys(h.values))
	for name := range h.lazy {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Snapshot returns the concrete values converted to plain Go data. Lazy
// entries are not resolved.
func (h *Holder) Snapshot() map[string]any {
	out := make(map[string]any, len(h.values))
	for name, v := range h.values {
		out[name] = v.Native()
	}
	return out
}

// Clone returns an independent copy of h sharing its resolver.
func (h *Holder) Clone() *Holder {
	return &Holder{
		values:   maps.Clone(h.values),
		lazy:     maps.Clone(h.lazy),
		resolver: h.resolver,
	}
}
