package evaluator

import (
	"context"
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/types"
)

func fnLcase(_ context.Context, call *Call) (types.Value, error) {
	return types.NewString(cases.Lower(language.Und).String(call.Arg(0).ToString())), nil
}

func fnUcase(_ context.Context, call *Call) (types.Value, error) {
	return types.NewString(cases.Upper(language.Und).String(call.Arg(0).ToString())), nil
}

// fnLength counts list items, or the characters of a string.
func fnLength(_ context.Context, call *Call) (types.Value, error) {
	v := call.Arg(0)
	if v.IsList() {
		return types.NewInt(int64(v.Len())), nil
	}
	return types.NewInt(int64(utf8.RuneCountInString(v.ToString()))), nil
}

func fnCast(kind types.Kind) Handler {
	return func(_ context.Context, call *Call) (types.Value, error) {
		return call.Arg(0).Cast(kind), nil
	}
}

// fnNorm is ccnorm followed by rmdoubles, rmspecials and rmwhitespace.
func fnNorm(_ context.Context, call *Call) (types.Value, error) {
	s := ccnorm(call.Arg(0).ToString())
	s = rmDoubles(s)
	s = rmSpecials(s)
	s = rmWhitespace(s)
	return types.NewString(s), nil
}

func fnRmSpecials(_ context.Context, call *Call) (types.Value, error) {
	return types.NewString(rmSpecials(call.Arg(0).ToString())), nil
}

func fnRmDoubles(_ context.Context, call *Call) (types.Value, error) {
	return types.NewString(rmDoubles(call.Arg(0).ToString())), nil
}

func fnRmWhitespace(_ context.Context, call *Call) (types.Value, error) {
	return types.NewString(rmWhitespace(call.Arg(0).ToString())), nil
}

// rmSpecials keeps letters, numbers and whitespace.
func rmSpecials(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
}

// rmDoubles collapses runs of the same character.
func rmDoubles(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prev := utf8.RuneError
	first := true
	for _, r := range s {
		if !first && r == prev {
			continue
		}
		b.WriteRune(r)
		prev, first = r, false
	}
	return b.String()
}

func rmWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// fnSpecialRatio returns the share of bytes that are not ASCII word
// characters.
func fnSpecialRatio(_ context.Context, call *Call) (types.Value, error) {
	s := call.Arg(0).ToString()
	if s == "" {
		return types.NewFloat(0), nil
	}
	specials := 0
	for i := 0; i < len(s); i++ {
		if c := s[i]; !isASCIIAlnum(c) && c != '_' {
			specials++
		}
	}
	return types.NewFloat(float64(specials) / float64(len(s))), nil
}

// fnCount counts list items or comma-separated parts with one argument,
// and non-overlapping occurrences of the needle with two.
func fnCount(_ context.Context, call *Call) (types.Value, error) {
	if len(call.Args) == 1 {
		return types.NewInt(int64(countParts(call.Arg(0)))), nil
	}
	needle := call.Arg(0).ToString()
	if needle == "" {
		return types.NewInt(0), nil
	}
	return types.NewInt(int64(strings.Count(call.Arg(1).ToString(), needle))), nil
}

func countParts(v types.Value) int {
	if v.IsList() {
		return v.Len()
	}
	return strings.Count(v.ToString(), ",") + 1
}

// fnSubstr returns a character range. Negative offsets count from the end;
// a negative length stops that many characters before the end.
func fnSubstr(_ context.Context, call *Call) (types.Value, error) {
	r := []rune(call.Arg(0).ToString())
	n := int64(len(r))

	start := call.Arg(1).ToInt()
	if start < 0 {
		start = max(n+start, 0)
	}
	if start > n {
		return types.NewString(""), nil
	}

	end := n
	if length := call.Arg(2); len(call.Args) > 2 && !length.IsNull() {
		l := length.ToInt()
		if l < 0 {
			end = n + l
		} else if start+l < n {
			end = start + l
		}
	}
	if end <= start {
		return types.NewString(""), nil
	}
	return types.NewString(string(r[start:end])), nil
}

// fnStrpos returns the character position of the needle, or -1.
func fnStrpos(_ context.Context, call *Call) (types.Value, error) {
	haystack := []rune(call.Arg(0).ToString())
	needle := call.Arg(1).ToString()
	if needle == "" {
		return types.NewInt(-1), nil
	}
	n := int64(len(haystack))

	var offset int64
	if len(call.Args) > 2 {
		offset = call.Arg(2).ToInt()
	}
	if offset < 0 {
		offset += n
	}
	if offset < 0 || offset > n {
		return types.NewInt(-1), nil
	}

	tail := string(haystack[offset:])
	idx := strings.Index(tail, needle)
	if idx < 0 {
		return types.NewInt(-1), nil
	}
	return types.NewInt(offset + int64(utf8.RuneCountInString(tail[:idx]))), nil
}

func fnStrReplace(_ context.Context, call *Call) (types.Value, error) {
	subject := call.Arg(0).ToString()
	search := call.Arg(1).ToString()
	if search == "" {
		return types.NewString(subject), nil
	}
	return types.NewString(strings.ReplaceAll(subject, search, call.Arg(2).ToString())), nil
}

// rescapeChars are the characters a regex escape must protect.
const rescapeChars = `.\+*?[^]$(){}=!<>|:-#`

// fnRescape escapes regex metacharacters so the result matches literally.
func fnRescape(_ context.Context, call *Call) (types.Value, error) {
	s := call.Arg(0).ToString()
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == 0:
			b.WriteString(`\000`)
		case strings.IndexByte(rescapeChars, c) >= 0:
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return types.NewString(b.String()), nil
}

// fnSanitize decodes HTML character references.
func fnSanitize(_ context.Context, call *Call) (types.Value, error) {
	return types.NewString(html.UnescapeString(call.Arg(0).ToString())), nil
}
