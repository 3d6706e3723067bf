// Package functions defines the closed set of built-in filter functions.
//
// Function names are resolved to an [ID] once, at parse time, so the
// evaluator dispatches on a small integer instead of a string. Each ID
// carries an arity contract ([Spec.MinArgs], [Spec.MaxArgs]) and a purity
// flag that decides whether results may be memoized.
//
// # Example
//
//	id, ok := functions.Lookup("ccnorm")
//	if ok {
//	    fmt.Println(id.Spec().MinArgs) // 1
//	}
package functions

import (
	"fmt"
	"sort"
	"strings"
)

// Variadic is the MaxArgs value of functions accepting any number of
// trailing arguments.
const Variadic = -1

// ID identifies a built-in function.
type ID uint8

// Built-in functions.
const (
	Invalid ID = iota
	Lcase
	Ucase
	Length
	Strlen
	String
	Int
	Float
	Bool
	Norm
	CCNorm
	CCNormContainsAny
	CCNormContainsAll
	SpecialRatio
	RmSpecials
	RmDoubles
	RmWhitespace
	Count
	RCount
	GetMatches
	IPInRange
	IPInRanges
	ContainsAny
	ContainsAll
	EqualsToAny
	Substr
	Strpos
	StrReplace
	StrReplaceRegexp
	Rescape
	Set
	SetVar
	Sanitize

	numFunctions
)

// Spec is the static contract of a built-in function.
type Spec struct {
	// Name is the lower-case name used in filter source.
	Name string
	// MinArgs is the minimum number of arguments.
	MinArgs int
	// MaxArgs is the maximum number of arguments, or Variadic.
	MaxArgs int
	// Impure functions touch the environment and are never memoized.
	Impure bool
}

var specs = [numFunctions]Spec{
	Lcase:             {Name: "lcase", MinArgs: 1, MaxArgs: 1},
	Ucase:             {Name: "ucase", MinArgs: 1, MaxArgs: 1},
	Length:            {Name: "length", MinArgs: 1, MaxArgs: 1},
	Strlen:            {Name: "strlen", MinArgs: 1, MaxArgs: 1},
	String:            {Name: "string", MinArgs: 1, MaxArgs: 1},
	Int:               {Name: "int", MinArgs: 1, MaxArgs: 1},
	Float:             {Name: "float", MinArgs: 1, MaxArgs: 1},
	Bool:              {Name: "bool", MinArgs: 1, MaxArgs: 1},
	Norm:              {Name: "norm", MinArgs: 1, MaxArgs: 1},
	CCNorm:            {Name: "ccnorm", MinArgs: 1, MaxArgs: 1},
	CCNormContainsAny: {Name: "ccnorm_contains_any", MinArgs: 2, MaxArgs: Variadic},
	CCNormContainsAll: {Name: "ccnorm_contains_all", MinArgs: 2, MaxArgs: Variadic},
	SpecialRatio:      {Name: "specialratio", MinArgs: 1, MaxArgs: 1},
	RmSpecials:        {Name: "rmspecials", MinArgs: 1, MaxArgs: 1},
	RmDoubles:         {Name: "rmdoubles", MinArgs: 1, MaxArgs: 1},
	RmWhitespace:      {Name: "rmwhitespace", MinArgs: 1, MaxArgs: 1},
	Count:             {Name: "count", MinArgs: 1, MaxArgs: 2},
	RCount:            {Name: "rcount", MinArgs: 1, MaxArgs: 2},
	GetMatches:        {Name: "get_matches", MinArgs: 2, MaxArgs: 2},
	IPInRange:         {Name: "ip_in_range", MinArgs: 2, MaxArgs: 2},
	IPInRanges:        {Name: "ip_in_ranges", MinArgs: 2, MaxArgs: Variadic},
	ContainsAny:       {Name: "contains_any", MinArgs: 2, MaxArgs: Variadic},
	ContainsAll:       {Name: "contains_all", MinArgs: 2, MaxArgs: Variadic},
	EqualsToAny:       {Name: "equals_to_any", MinArgs: 2, MaxArgs: Variadic},
	Substr:            {Name: "substr", MinArgs: 2, MaxArgs: 3},
	Strpos:            {Name: "strpos", MinArgs: 2, MaxArgs: 3},
	StrReplace:        {Name: "str_replace", MinArgs: 3, MaxArgs: 3},
	StrReplaceRegexp:  {Name: "str_replace_regexp", MinArgs: 3, MaxArgs: 3},
	Rescape:           {Name: "rescape", MinArgs: 1, MaxArgs: 1},
	Set:               {Name: "set", MinArgs: 2, MaxArgs: 2, Impure: true},
	SetVar:            {Name: "set_var", MinArgs: 2, MaxArgs: 2, Impure: true},
	Sanitize:          {Name: "sanitize", MinArgs: 1, MaxArgs: 1},
}

var byName = func() map[string]ID {
	m := make(map[string]ID, numFunctions)
	for id := Invalid + 1; id < numFunctions; id++ {
		m[specs[id].Name] = id
	}
	return m
}()

// Lookup resolves a function name, case-insensitively.
func Lookup(name string) (ID, bool) {
	id, ok := byName[strings.ToLower(name)]
	return id, ok
}

// All returns every built-in function ID in declaration order.
func All() []ID {
	ids := make([]ID, 0, numFunctions-1)
	for id := Invalid + 1; id < numFunctions; id++ {
		ids = append(ids, id)
	}
	return ids
}

// Names returns the sorted names of all built-in functions.
func Names() []string {
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Valid reports whether id names a built-in function.
func (id ID) Valid() bool {
	return id > Invalid && id < numFunctions
}

// Spec returns the contract of id. It returns the zero Spec for invalid IDs.
func (id ID) Spec() Spec {
	if !id.Valid() {
		return Spec{}
	}
	return specs[id]
}

// String returns the function name.
func (id ID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("function(%d)", uint8(id))
	}
	return specs[id].Name
}

// Pure reports whether results of id may be memoized.
func (id ID) Pure() bool {
	return id.Valid() && !specs[id].Impure
}

// MarshalText encodes the ID by name so serialized trees survive
// reordering of the enum.
func (id ID) MarshalText() ([]byte, error) {
	if id == Invalid {
		return []byte{}, nil
	}
	if !id.Valid() {
		return nil, fmt.Errorf("invalid function id %d", uint8(id))
	}
	return []byte(specs[id].Name), nil
}

// UnmarshalText decodes a function name produced by MarshalText.
func (id *ID) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*id = Invalid
		return nil
	}
	v, ok := Lookup(string(text))
	if !ok {
		return fmt.Errorf("unknown function %q", text)
	}
	*id = v
	return nil
}
