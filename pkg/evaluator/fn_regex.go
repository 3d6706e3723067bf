package evaluator

import (
	"context"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/types"
)

// fnRCount counts comma-separated parts with one argument, and regex
// matches of the first argument in the second with two.
func fnRCount(_ context.Context, call *Call) (types.Value, error) {
	if len(call.Args) == 1 {
		return types.NewInt(int64(countParts(call.Arg(0)))), nil
	}
	pattern := call.Arg(0).ToString()
	re, err := call.Regex(pattern, regexp2.None)
	if err != nil {
		return types.NullValue, err
	}

	var count int64
	m, err := re.FindStringMatch(call.Arg(1).ToString())
	for err == nil && m != nil {
		count++
		m, err = re.FindNextMatch(m)
	}
	if err != nil {
		return types.NullValue, regexError(err, pattern, call.Position)
	}
	return types.NewInt(count), nil
}

// fnGetMatches returns the first match and its groups. Groups that did not
// participate, or every slot when nothing matched, are false.
func fnGetMatches(_ context.Context, call *Call) (types.Value, error) {
	pattern := call.Arg(0).ToString()
	re, err := call.Regex(pattern, regexp2.None)
	if err != nil {
		return types.NullValue, err
	}

	slots := make([]types.Value, len(re.GetGroupNumbers()))
	for i := range slots {
		slots[i] = types.NewBool(false)
	}

	m, err := re.FindStringMatch(call.Arg(1).ToString())
	if err != nil {
		return types.NullValue, regexError(err, pattern, call.Position)
	}
	if m != nil {
		slots[0] = types.NewString(m.String())
		for _, g := range m.Groups()[1:] {
			if len(g.Captures) == 0 {
				continue
			}
			if n := re.GroupNumberFromName(g.Name); n >= 0 && n < len(slots) {
				slots[n] = types.NewString(g.String())
			}
		}
	}
	return types.NewList(slots...), nil
}

// fnStrReplaceRegexp replaces every match. The replacement may reference
// groups as \N, $N or ${N}.
func fnStrReplaceRegexp(_ context.Context, call *Call) (types.Value, error) {
	subject := call.Arg(0).ToString()
	pattern := call.Arg(1).ToString()
	re, err := call.Regex(pattern, regexp2.None)
	if err != nil {
		return types.NullValue, err
	}
	out, err := re.Replace(subject, replacementTemplate(call.Arg(2).ToString()), -1, -1)
	if err != nil {
		return types.NullValue, regexError(err, pattern, call.Position)
	}
	return types.NewString(out), nil
}

// replacementTemplate rewrites group references into regexp2 syntax and
// escapes every other dollar sign.
func replacementTemplate(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s) && isDigit(s[i+1]):
			j := groupDigits(s, i+1)
			b.WriteString("${" + s[i+1:j] + "}")
			i = j - 1
		case c == '$' && i+1 < len(s) && isDigit(s[i+1]):
			j := groupDigits(s, i+1)
			b.WriteString("${" + s[i+1:j] + "}")
			i = j - 1
		case c == '$' && i+1 < len(s) && s[i+1] == '{':
			end := strings.IndexByte(s[i:], '}')
			if end > 2 && allDigits(s[i+2:i+end]) {
				b.WriteString(s[i : i+end+1])
				i += end
				continue
			}
			b.WriteString("$$")
		case c == '$':
			b.WriteString("$$")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// groupDigits returns the end of a group number of at most two digits.
func groupDigits(s string, start int) int {
	end := start + 1
	if end < len(s) && isDigit(s[end]) {
		end++
	}
	return end
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return s != ""
}
