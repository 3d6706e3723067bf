package parser

import "github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/types"

// punctuation maps single-character punctuation to token types.
var punctuation = [...]types.TokenType{
	',': types.TokenComma,
	'(': types.TokenBrace,
	')': types.TokenBrace,
	'[': types.TokenSquareBracket,
	']': types.TokenSquareBracket,
	';': types.TokenStatementSeparator,
}

// symbols1 marks single-character operators.
var symbols1 = [...]bool{
	'!': true,
	'*': true,
	'/': true,
	'+': true,
	'-': true,
	'%': true,
	'&': true,
	'|': true,
	'^': true,
	'?': true,
	':': true,
	'<': true,
	'>': true,
	'=': true,
}

// symbols2 lists multi-character operators by their first character,
// longest first.
var symbols2 = [...][]string{
	'!': {"!==", "!="},
	'*': {"**"},
	':': {":="},
	'<': {"<="},
	'>': {">="},
	'=': {"===", "=="},
}

const (
	punctuationCount = rune(len(punctuation))
	symbol1Count     = rune(len(symbols1))
	symbol2Count     = rune(len(symbols2))
)

// lookupPunctuation returns the token type of a punctuation rune, or
// TokenNone.
func lookupPunctuation(r rune) types.TokenType {
	if r < 0 || r >= punctuationCount || punctuation[r] == "" {
		return types.TokenNone
	}
	return punctuation[r]
}

// lookupSymbol1 reports whether r is a single-character operator.
func lookupSymbol1(r rune) bool {
	return r >= 0 && r < symbol1Count && symbols1[r]
}

// lookupSymbol2 returns the multi-character operators starting with r.
func lookupSymbol2(r rune) []string {
	if r < 0 || r >= symbol2Count {
		return nil
	}
	return symbols2[r]
}

// keywords are matched case-insensitively.
var keywords = map[string]struct{}{
	"in":       {},
	"like":     {},
	"true":     {},
	"false":    {},
	"null":     {},
	"contains": {},
	"matches":  {},
	"rlike":    {},
	"irlike":   {},
	"regex":    {},
	"if":       {},
	"then":     {},
	"else":     {},
	"end":      {},
}

// keywordOperators are the binary operators spelled as keywords.
var keywordOperators = map[string]struct{}{
	"in":       {},
	"like":     {},
	"contains": {},
	"matches":  {},
	"rlike":    {},
	"irlike":   {},
	"regex":    {},
}

// IsKeyword reports whether the lower-cased word is reserved.
func IsKeyword(word string) bool {
	_, ok := keywords[word]
	return ok
}

// radixes maps number suffixes to their base.
var radixes = map[byte]int{
	'b': 2,
	'o': 8,
	'x': 16,
}

// equalityOperators and orderingOperators are the two comparison classes;
// a comparison cannot be directly followed by another of the same class.
var equalityOperators = map[string]struct{}{
	"==":  {},
	"===": {},
	"!=":  {},
	"!==": {},
	"=":   {},
}

var orderingOperators = map[string]struct{}{
	"<":  {},
	">":  {},
	"<=": {},
	">=": {},
}
