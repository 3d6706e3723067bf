package parser

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/types"
)

const eof = -1

// Lexer converts filter source into a sequence of tokens.
// The implementation is based on Rob Pike's "Lexical Scanning in Go" technique.
type Lexer struct {
	input   string // Input string being scanned
	length  int    // Length of input string
	start   int    // Start position of current token
	current int    // Current position in input
	width   int    // Width of last rune read
}

// NewLexer creates a new lexer from the provided input string.
// The input is tokenized by successive calls to the Next method.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input:  input,
		length: len(input),
	}
}

// Tokenize splits source into tokens. The returned slice always ends with
// a TokenEOF token positioned at the end of the input.
func Tokenize(source string) ([]types.Token, error) {
	l := NewLexer(source)
	tokens := make([]types.Token, 0, len(source)/3+1)
	for {
		t, err := l.Next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
		if t.Type == types.TokenEOF {
			return tokens, nil
		}
	}
}

// Next returns the next token from the input.
// When the end of the input is reached, Next returns TokenEOF for all subsequent calls.
func (l *Lexer) Next() (types.Token, error) {
	if err := l.skipWhitespace(); err != nil {
		return types.Token{}, err
	}

	ch := l.nextRune()
	if ch == eof {
		return types.NewToken(types.TokenEOF, "", l.length), nil
	}

	if tt := lookupPunctuation(ch); tt != types.TokenNone {
		return l.newToken(tt), nil
	}

	for _, op := range lookupSymbol2(ch) {
		if strings.HasPrefix(l.input[l.start:], op) {
			l.current = l.start + len(op)
			return l.newToken(types.TokenOperator), nil
		}
	}
	if lookupSymbol1(ch) {
		return l.newToken(types.TokenOperator), nil
	}

	if ch == '"' || ch == '\'' {
		return l.scanString(ch)
	}

	l.backup()
	if t, ok := l.scanNumber(); ok {
		return t, nil
	}
	if t, ok := l.scanIdentifier(); ok {
		return t, nil
	}

	r, _ := utf8.DecodeRuneInString(l.input[l.start:])
	return types.Token{}, types.NewError(types.ErrUnrecognisedToken, l.start, string(r))
}

// scanString reads a string literal from the current position.
// The opening quote has already been consumed.
func (l *Lexer) scanString(quote rune) (types.Token, error) {
	var b strings.Builder
	q := byte(quote)

	for l.current < l.length {
		c := l.input[l.current]
		switch {
		case c == q:
			l.current++
			t := types.NewToken(types.TokenString, b.String(), l.start)
			l.start = l.current
			return t, nil

		case c == '\\':
			if l.current+1 >= l.length {
				l.current = l.length
				break
			}
			next := l.input[l.current+1]
			switch next {
			case '\\':
				b.WriteByte('\\')
			case q:
				b.WriteByte(q)
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'x':
				if hex := l.peekHexByte(l.current + 2); hex >= 0 {
					b.WriteByte(byte(hex))
					l.current += 2
				} else {
					b.WriteString(`\x`)
				}
			default:
				b.WriteByte('\\')
				b.WriteByte(next)
			}
			l.current += 2

		default:
			end := strings.IndexAny(l.input[l.current:], string(quote)+`\`)
			if end < 0 {
				end = l.length - l.current
			}
			b.WriteString(l.input[l.current : l.current+end])
			l.current += end
		}
	}

	return types.Token{}, types.NewError(types.ErrUnclosedString, l.start)
}

// peekHexByte decodes the two hex digits at pos, or returns -1.
func (l *Lexer) peekHexByte(pos int) int {
	if pos+2 > l.length {
		return -1
	}
	v, err := strconv.ParseUint(l.input[pos:pos+2], 16, 8)
	if err != nil {
		return -1
	}
	return int(v)
}

// scanNumber reads a number literal from the current position.
// Format: ([0-9A-Fa-f]+(\.[0-9]*)?|\.[0-9]+)[bxo]? not followed by an
// identifier character. The suffix selects the radix; digits that are not
// valid in that radix make the text lex as an identifier instead.
func (l *Lexer) scanNumber() (types.Token, bool) {
	s := l.input
	i := l.start
	j := i
	for j < l.length && isHexDigit(s[j]) {
		j++
	}
	switch {
	case j > i:
		if j < l.length && s[j] == '.' {
			j++
			for j < l.length && isDigit(s[j]) {
				j++
			}
		}
	case j+1 < l.length && s[j] == '.' && isDigit(s[j+1]):
		j += 2
		for j < l.length && isDigit(s[j]) {
			j++
		}
	default:
		return types.Token{}, false
	}

	text, end := s[i:j], j
	base := 10
	if r, ok := radixes[at(s, j)]; ok && !isIdentChar(at(s, j+1)) {
		base, end = r, j+1
	} else if isIdentChar(at(s, j)) {
		return types.Token{}, false
	} else if r, ok := radixes[text[len(text)-1]]; ok {
		// A trailing "b" is swallowed by the hex digits.
		base, text = r, text[:len(text)-1]
	}

	if !validDigits(text, base) {
		return types.Token{}, false
	}

	t := types.NewToken(types.TokenInt, s[i:end], i)
	if strings.Contains(text, ".") {
		t.Type = types.TokenFloat
		t.Float, _ = strconv.ParseFloat(text, 64)
	} else {
		v, err := strconv.ParseInt(text, base, 64)
		if err != nil {
			v = math.MaxInt64
		}
		t.Int = v
	}
	l.current = end
	l.start = end
	return t, true
}

func validDigits(text string, base int) bool {
	if text == "" {
		return false
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		var ok bool
		switch base {
		case 2:
			ok = c == '0' || c == '1'
		case 8:
			ok = c >= '0' && c <= '7'
		case 10:
			ok = isDigit(c) || c == '.'
		case 16:
			ok = isHexDigit(c)
		}
		if !ok {
			return false
		}
	}
	return true
}

// scanIdentifier reads an identifier or keyword.
func (l *Lexer) scanIdentifier() (types.Token, bool) {
	j := l.start
	for j < l.length && isIdentChar(l.input[j]) {
		j++
	}
	if j == l.start {
		return types.Token{}, false
	}
	l.current = j

	t := l.newToken(types.TokenID)
	if word := strings.ToLower(t.Value); IsKeyword(word) {
		t.Type = types.TokenKeyword
		t.Value = word
	}
	return t, true
}

// Helper methods

func (l *Lexer) newToken(tt types.TokenType) types.Token {
	t := types.NewToken(tt, l.input[l.start:l.current], l.start)
	l.width = 0
	l.start = l.current
	return t
}

func (l *Lexer) nextRune() rune {
	if l.current >= l.length {
		l.width = 0
		return eof
	}

	r, w := utf8.DecodeRuneInString(l.input[l.current:])
	l.width = w
	l.current += w
	return r
}

func (l *Lexer) backup() {
	l.current -= l.width
}

func (l *Lexer) ignore() {
	l.start = l.current
}

// skipWhitespace skips whitespace and /* */ comments.
func (l *Lexer) skipWhitespace() error {
	for {
		for l.current < l.length && isWhitespace(l.input[l.current]) {
			l.current++
		}
		l.ignore()

		if !strings.HasPrefix(l.input[l.current:], "/*") {
			return nil
		}
		end := strings.Index(l.input[l.current+1:], "*/")
		if end < 0 {
			return types.NewError(types.ErrUnclosedComment, l.current)
		}
		l.current += end + 3
	}
}

// Character classification functions

func at(s string, i int) byte {
	if i < len(s) {
		return s[i]
	}
	return 0
}

func isWhitespace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentChar(c byte) bool {
	return isDigit(c) || c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
