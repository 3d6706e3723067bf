package evaluator

import (
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"

	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/types"
)

// evalKeyword evaluates the keyword operators; each costs one condition.
func (e *Evaluator) evalKeyword(s *evalState, node *types.ASTNode) (types.Value, error) {
	left, right, err := e.evalPair(s, node)
	if err != nil {
		return types.NullValue, err
	}
	if err := s.raiseConditions(1, node.Position); err != nil {
		return types.NullValue, err
	}

	switch node.Op {
	case "in":
		return types.In(left, right), nil
	case "contains":
		return types.Contains(left, right), nil
	case "like", "matches":
		return e.keywordLike(left, right, node.Position)
	case "rlike", "regex":
		return e.keywordRegex(left, right, regexp2.None, node.Position)
	case "irlike":
		return e.keywordRegex(left, right, regexp2.IgnoreCase, node.Position)
	}
	panic(types.Internalf(node.Position, "invalid keyword operator %q", node.Op))
}

// keywordLike matches the subject against a shell wildcard pattern.
func (e *Evaluator) keywordLike(subject, pattern types.Value, position int) (types.Value, error) {
	p := pattern.ToString()
	re, err := e.regexes.Compile(wildcardToRegex(p), regexp2.Singleline)
	if err != nil {
		return types.NullValue, regexError(err, p, position)
	}
	return matchRegex(re, subject.ToString(), p, position)
}

// keywordRegex matches the subject against a regular expression.
func (e *Evaluator) keywordRegex(subject, pattern types.Value, opts regexp2.RegexOptions, position int) (types.Value, error) {
	p := pattern.ToString()
	re, err := e.regexes.Compile(p, opts)
	if err != nil {
		return types.NullValue, regexError(err, p, position)
	}
	return matchRegex(re, subject.ToString(), p, position)
}

func matchRegex(re *regexp2.Regexp, subject, pattern string, position int) (types.Value, error) {
	ok, err := re.MatchString(subject)
	if err != nil {
		return types.NullValue, regexError(err, pattern, position)
	}
	return types.NewBool(ok), nil
}

// regexError reports a pattern that failed to compile or match.
func regexError(err error, pattern string, position int) error {
	return types.NewError(types.ErrRegexFailure, position, err.Error(), pattern).WithCause(err)
}

// wildcardToRegex translates a shell wildcard into an anchored pattern.
// `*` matches any run of characters, `?` a single character, `[...]` a
// class (negated by a leading `!` or `^`) and a backslash escapes the
// next character. An unterminated class is literal.
func wildcardToRegex(pattern string) string {
	var b strings.Builder
	b.WriteString(`\A(?:`)
	for i := 0; i < len(pattern); {
		r, size := utf8.DecodeRuneInString(pattern[i:])
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteByte('.')
		case '\\':
			if i+size < len(pattern) {
				next, nsize := utf8.DecodeRuneInString(pattern[i+size:])
				b.WriteString(regexp2.Escape(string(next)))
				size += nsize
			} else {
				b.WriteString(`\\`)
			}
		case '[':
			if class, n, ok := wildcardClass(pattern[i:]); ok {
				b.WriteString(class)
				size = n
			} else {
				b.WriteString(`\[`)
			}
		default:
			b.WriteString(regexp2.Escape(string(r)))
		}
		i += size
	}
	b.WriteString(`)\z`)
	return b.String()
}

// wildcardClass translates the bracket expression at the start of s and
// returns the regex class and the number of bytes consumed.
func wildcardClass(s string) (string, int, bool) {
	i := 1
	var b strings.Builder
	b.WriteByte('[')
	if i < len(s) && (s[i] == '!' || s[i] == '^') {
		b.WriteByte('^')
		i++
	}
	// A leading ] is a member, not the terminator.
	if i < len(s) && s[i] == ']' {
		b.WriteString(`\]`)
		i++
	}
	for ; i < len(s); i++ {
		switch c := s[i]; c {
		case ']':
			b.WriteByte(']')
			return b.String(), i + 1, true
		case '\\':
			switch {
			case i+1 < len(s) && isASCIIAlnum(s[i+1]):
				b.WriteByte(s[i+1])
				i++
			case i+1 < len(s) && s[i+1] < utf8.RuneSelf:
				b.WriteByte('\\')
				b.WriteByte(s[i+1])
				i++
			case i+1 < len(s):
				// Escaped non-ASCII runes are plain members.
			default:
				b.WriteString(`\\`)
			}
		case '[':
			b.WriteString(`\[`)
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, false
}

func isASCIIAlnum(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
