package evaluator

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/types"
)

// confusables folds characters commonly substituted for Latin letters.
var confusables = map[rune]rune{
	'0': 'O', '1': 'I', '3': 'E', '4': 'A', '5': 'S', '7': 'T', '8': 'B',
	'@': 'A', '$': 'S', '|': 'I', '!': 'I',
	'Ɛ': 'E', 'Ʒ': 'E', 'ɛ': 'E',

	// Cyrillic
	'А': 'A', 'а': 'A', 'В': 'B', 'в': 'B', 'Е': 'E', 'е': 'E', 'Ё': 'E', 'ё': 'E',
	'К': 'K', 'к': 'K', 'М': 'M', 'м': 'M', 'Н': 'H', 'н': 'H', 'О': 'O', 'о': 'O',
	'Р': 'P', 'р': 'P', 'С': 'C', 'с': 'C', 'Т': 'T', 'т': 'T', 'У': 'Y', 'у': 'Y',
	'Х': 'X', 'х': 'X', 'І': 'I', 'і': 'I', 'Ј': 'J', 'ј': 'J', 'Ѕ': 'S', 'ѕ': 'S',
	'Ԁ': 'D', 'ԁ': 'D', 'Ԛ': 'Q', 'ԛ': 'Q', 'Ԝ': 'W', 'ԝ': 'W', 'Ү': 'Y', 'ү': 'Y',

	// Greek
	'Α': 'A', 'α': 'A', 'Β': 'B', 'β': 'B', 'Ε': 'E', 'ε': 'E', 'Ζ': 'Z', 'Η': 'H',
	'Ι': 'I', 'ι': 'I', 'Κ': 'K', 'κ': 'K', 'Μ': 'M', 'Ν': 'N', 'ν': 'V', 'Ο': 'O',
	'ο': 'O', 'Ρ': 'P', 'ρ': 'P', 'Τ': 'T', 'τ': 'T', 'Υ': 'Y', 'υ': 'U', 'Χ': 'X',
	'χ': 'X',
}

func foldConfusable(r rune) rune {
	if f, ok := confusables[r]; ok {
		return f
	}
	return r
}

// ccnorm folds look-alike characters onto a canonical upper-case form.
// Compatibility decomposition strips accents and font variants first.
func ccnorm(s string) string {
	t := transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Map(foldConfusable),
		norm.NFC,
	)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return cases.Upper(language.Und).String(folded)
}

func fnCCNorm(_ context.Context, call *Call) (types.Value, error) {
	return types.NewString(ccnorm(call.Arg(0).ToString())), nil
}

// fnContains builds contains_any and contains_all, optionally comparing
// ccnorm forms. The first argument is the haystack; a list haystack
// matches needles equal to one of its items.
func fnContains(matchAny, normalize bool) Handler {
	return func(_ context.Context, call *Call) (types.Value, error) {
		fold := func(s string) string {
			if normalize {
				return ccnorm(s)
			}
			return s
		}

		haystack := call.Arg(0)
		var (
			text  string
			items map[string]struct{}
		)
		if haystack.IsList() {
			if haystack.Len() == 0 {
				return types.NewBool(false), nil
			}
			items = make(map[string]struct{}, haystack.Len())
			for _, item := range haystack.Items() {
				items[fold(item.ToString())] = struct{}{}
			}
		} else {
			text = fold(haystack.ToString())
			if text == "" {
				return types.NewBool(false), nil
			}
		}

		for _, needle := range call.Args[1:] {
			n := fold(needle.ToString())
			var found bool
			if items != nil {
				_, found = items[n]
			} else {
				found = strings.Contains(text, n)
			}
			if found && matchAny {
				return types.NewBool(true), nil
			}
			if !found && !matchAny {
				return types.NewBool(false), nil
			}
		}
		return types.NewBool(!matchAny), nil
	}
}

// fnEqualsToAny reports whether the first argument strictly equals any of
// the others.
func fnEqualsToAny(_ context.Context, call *Call) (types.Value, error) {
	first := call.Arg(0)
	for _, candidate := range call.Args[1:] {
		if types.StrictEquals(first, candidate) {
			return types.NewBool(true), nil
		}
	}
	return types.NewBool(false), nil
}
