// Package variables provides the environment a filter is evaluated against
// and the catalogue of built-in variable names the host may supply.
//
// A Holder maps case-insensitive names to either concrete values or lazy
// entries that a host Resolver computes on first read:
//
//	vars := variables.NewHolder(resolver)
//	vars.Set("user_name", types.NewString("192.0.2.1"))
//	vars.SetLazy("added_lines", variables.Lazy{Method: "diff-added", Params: map[string]any{"rev": 42}})
//
// A Registry lists the reserved names: built-ins that filters may read but
// never assign, deprecated aliases that resolve to their replacement, and
// disabled names whose use fails at evaluation time.
package variables

import (
	"maps"
	"slices"
	"strings"

	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/functions"
)

// Registry is an immutable catalogue of built-in variable names.
type Registry struct {
	builtins   map[string]struct{}
	deprecated map[string]string
	disabled   map[string]struct{}
}

// NewRegistry builds a Registry. Names are lower-cased. Deprecated aliases
// map an old name to its canonical replacement.
func NewRegistry(builtins []string, deprecated map[string]string, disabled []string) *Registry {
	r := &Registry{
		builtins:   make(map[string]struct{}, len(builtins)),
		deprecated: make(map[string]string, len(deprecated)),
		disabled:   make(map[string]struct{}, len(disabled)),
	}
	for _, name := range builtins {
		r.builtins[strings.ToLower(name)] = struct{}{}
	}
	for from, to := range deprecated {
		r.deprecated[strings.ToLower(from)] = strings.ToLower(to)
	}
	for _, name := range disabled {
		r.disabled[strings.ToLower(name)] = struct{}{}
	}
	return r
}

var defaultRegistry = NewRegistry(defaultBuiltins, defaultDeprecated, defaultDisabled)

// DefaultRegistry returns the registry of the standard edit, move, upload
// and account-creation variables.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// WithDisabled returns a copy of r with additional disabled names.
func (r *Registry) WithDisabled(names ...string) *Registry {
	c := r.clone()
	for _, name := range names {
		c.disabled[strings.ToLower(name)] = struct{}{}
	}
	return c
}

// WithDeprecated returns a copy of r with additional deprecated aliases.
func (r *Registry) WithDeprecated(aliases map[string]string) *Registry {
	c := r.clone()
	for from, to := range aliases {
		c.deprecated[strings.ToLower(from)] = strings.ToLower(to)
	}
	return c
}

// WithBuiltins returns a copy of r with additional built-in names.
func (r *Registry) WithBuiltins(names ...string) *Registry {
	c := r.clone()
	for _, name := range names {
		c.builtins[strings.ToLower(name)] = struct{}{}
	}
	return c
}

func (r *Registry) clone() *Registry {
	return &Registry{
		builtins:   maps.Clone(r.builtins),
		deprecated: maps.Clone(r.deprecated),
		disabled:   maps.Clone(r.disabled),
	}
}

// IsBuiltin reports whether name is a current built-in variable.
func (r *Registry) IsBuiltin(name string) bool {
	_, ok := r.builtins[strings.ToLower(name)]
	return ok
}

// IsDisabled reports whether reading name must fail.
func (r *Registry) IsDisabled(name string) bool {
	_, ok := r.disabled[strings.ToLower(name)]
	return ok
}

// IsDeprecated reports whether name is an alias of another built-in.
func (r *Registry) IsDeprecated(name string) bool {
	_, ok := r.deprecated[strings.ToLower(name)]
	return ok
}

// Canonical lower-cases name and resolves a deprecated alias to its
// replacement. The boolean reports whether an alias was followed.
func (r *Registry) Canonical(name string) (string, bool) {
	name = strings.ToLower(name)
	if to, ok := r.deprecated[name]; ok {
		return to, true
	}
	return name, false
}

// IsReserved reports whether filters may not assign to name: built-ins,
// deprecated aliases, disabled variables and function names are reserved.
func (r *Registry) IsReserved(name string) bool {
	name = strings.ToLower(name)
	if _, ok := r.builtins[name]; ok {
		return true
	}
	if _, ok := r.deprecated[name]; ok {
		return true
	}
	if _, ok := r.disabled[name]; ok {
		return true
	}
	_, ok := functions.Lookup(name)
	return ok
}

// Builtins returns the sorted built-in names.
func (r *Registry) Builtins() []string {
	return slices.Sorted(maps.Keys(r.builtins))
}

// Deprecated returns a copy of the alias map.
func (r *Registry) Deprecated() map[string]string {
	return maps.Clone(r.deprecated)
}

// Disabled returns the sorted disabled names.
func (r *Registry) Disabled() []string {
	return slices.Sorted(maps.Keys(r.disabled))
}

var defaultBuiltins = []string{
	"accountname",
	"action",
	"added_lines",
	"added_lines_pst",
	"added_links",
	"all_links",
	"edit_delta",
	"edit_diff",
	"edit_diff_pst",
	"file_bits_per_channel",
	"file_height",
	"file_mediatype",
	"file_mime",
	"file_sha1",
	"file_size",
	"file_width",
	"moved_from_age",
	"moved_from_first_contributor",
	"moved_from_id",
	"moved_from_last_edit_age",
	"moved_from_namespace",
	"moved_from_prefixedtitle",
	"moved_from_recent_contributors",
	"moved_from_restrictions_create",
	"moved_from_restrictions_edit",
	"moved_from_restrictions_move",
	"moved_from_restrictions_upload",
	"moved_from_title",
	"moved_to_age",
	"moved_to_first_contributor",
	"moved_to_id",
	"moved_to_last_edit_age",
	"moved_to_namespace",
	"moved_to_prefixedtitle",
	"moved_to_recent_contributors",
	"moved_to_restrictions_create",
	"moved_to_restrictions_edit",
	"moved_to_restrictions_move",
	"moved_to_restrictions_upload",
	"moved_to_title",
	"new_content_model",
	"new_html",
	"new_pst",
	"new_size",
	"new_text",
	"new_wikitext",
	"old_content_model",
	"old_links",
	"old_size",
	"old_wikitext",
	"page_age",
	"page_first_contributor",
	"page_id",
	"page_last_edit_age",
	"page_namespace",
	"page_prefixedtitle",
	"page_recent_contributors",
	"page_restrictions_create",
	"page_restrictions_edit",
	"page_restrictions_move",
	"page_restrictions_upload",
	"page_title",
	"removed_lines",
	"removed_links",
	"summary",
	"timestamp",
	"user_age",
	"user_app",
	"user_blocked",
	"user_editcount",
	"user_emailconfirm",
	"user_groups",
	"user_mobile",
	"user_name",
	"user_rights",
	"user_type",
	"user_unnamed_ip",
	"wiki_language",
	"wiki_name",
}

var defaultDeprecated = map[string]string{
	"article_articleid":           "page_id",
	"article_first_contributor":   "page_first_contributor",
	"article_namespace":           "page_namespace",
	"article_prefixedtext":        "page_prefixedtitle",
	"article_recent_contributors": "page_recent_contributors",
	"article_restrictions_create": "page_restrictions_create",
	"article_restrictions_edit":   "page_restrictions_edit",
	"article_restrictions_move":   "page_restrictions_move",
	"article_restrictions_upload": "page_restrictions_upload",
	"article_text":                "page_title",
	"moved_from_articleid":        "moved_from_id",
	"moved_from_prefixedtext":     "moved_from_prefixedtitle",
	"moved_from_text":             "moved_from_title",
	"moved_to_articleid":          "moved_to_id",
	"moved_to_prefixedtext":       "moved_to_prefixedtitle",
	"moved_to_text":               "moved_to_title",
}

var defaultDisabled = []string{
	"minor_edit",
	"old_html",
	"old_text",
}
