package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/parser"
	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/types"
)

type lexerTestCase struct {
	name     string
	input    string
	expected []types.Token
}

// runLexerTests tokenizes each input and compares every token but the
// trailing end-of-input token.
func runLexerTests(t *testing.T, tests []lexerTestCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := parser.Tokenize(tt.input)
			require.NoError(t, err)
			require.NotEmpty(t, tokens)

			last := tokens[len(tokens)-1]
			assert.Equal(t, types.TokenEOF, last.Type)
			assert.Equal(t, len(tt.input), last.Position)
			assert.Equal(t, tt.expected, tokens[:len(tokens)-1])
		})
	}
}

func tok(tt types.TokenType, value string, pos int) types.Token {
	return types.Token{Type: tt, Value: value, Position: pos}
}

func intTok(value string, n int64, pos int) types.Token {
	return types.Token{Type: types.TokenInt, Value: value, Int: n, Position: pos}
}

func floatTok(value string, f float64, pos int) types.Token {
	return types.Token{Type: types.TokenFloat, Value: value, Float: f, Position: pos}
}

func TestLexerWhitespaceAndComments(t *testing.T) {
	runLexerTests(t, []lexerTestCase{
		{"empty", "", []types.Token{}},
		{"leading whitespace", "  \t\nabc", []types.Token{tok(types.TokenID, "abc", 4)}},
		{"comment", "/* hi */abc", []types.Token{tok(types.TokenID, "abc", 8)}},
		{"short comment", "/*/x", []types.Token{tok(types.TokenID, "x", 3)}},
		{"comments only", "/* a */ /* b */", []types.Token{}},
	})
}

func TestLexerStrings(t *testing.T) {
	runLexerTests(t, []lexerTestCase{
		{"double quoted", `"hello"`, []types.Token{tok(types.TokenString, "hello", 0)}},
		{"single quoted", `'world'`, []types.Token{tok(types.TokenString, "world", 0)}},
		{"empty", `""`, []types.Token{tok(types.TokenString, "", 0)}},
		{"escapes", `"a\nb\tc\\d\"e"`, []types.Token{tok(types.TokenString, "a\nb\tc\\d\"e", 0)}},
		{"other quote kept", `'it\'s "x"'`, []types.Token{tok(types.TokenString, `it's "x"`, 0)}},
		{"hex escape", `"\x41\x4a"`, []types.Token{tok(types.TokenString, "AJ", 0)}},
		{"bad hex escape", `"\xZZ"`, []types.Token{tok(types.TokenString, `\xZZ`, 0)}},
		{"unknown escape", `"\d"`, []types.Token{tok(types.TokenString, `\d`, 0)}},
		{"unicode", `"héllo"`, []types.Token{tok(types.TokenString, "héllo", 0)}},
	})
}

func TestLexerNumbers(t *testing.T) {
	runLexerTests(t, []lexerTestCase{
		{"decimal", "42", []types.Token{intTok("42", 42, 0)}},
		{"float", "3.25", []types.Token{floatTok("3.25", 3.25, 0)}},
		{"leading dot", ".5", []types.Token{floatTok(".5", 0.5, 0)}},
		{"trailing dot", "5.", []types.Token{floatTok("5.", 5, 0)}},
		{"hex", "1fx", []types.Token{intTok("1fx", 31, 0)}},
		{"octal", "17o", []types.Token{intTok("17o", 15, 0)}},
		{"binary", "101b", []types.Token{intTok("101b", 5, 0)}},
		{"invalid binary is identifier", "12b", []types.Token{tok(types.TokenID, "12b", 0)}},
		{"hex word is identifier", "deadbeef", []types.Token{tok(types.TokenID, "deadbeef", 0)}},
		{"followed by letters", "5abc", []types.Token{tok(types.TokenID, "5abc", 0)}},
		{"prefix radix is identifier", "0x1A", []types.Token{tok(types.TokenID, "0x1A", 0)}},
		{"negative is operator", "-3", []types.Token{
			tok(types.TokenOperator, "-", 0),
			intTok("3", 3, 1),
		}},
	})
}

func TestLexerOperators(t *testing.T) {
	runLexerTests(t, []lexerTestCase{
		{"longest match", "a!==b", []types.Token{
			tok(types.TokenID, "a", 0),
			tok(types.TokenOperator, "!==", 1),
			tok(types.TokenID, "b", 4),
		}},
		{"assignment", "x:=1", []types.Token{
			tok(types.TokenID, "x", 0),
			tok(types.TokenOperator, ":=", 1),
			intTok("1", 1, 3),
		}},
		{"pow and not", "!a**2", []types.Token{
			tok(types.TokenOperator, "!", 0),
			tok(types.TokenID, "a", 1),
			tok(types.TokenOperator, "**", 2),
			intTok("2", 2, 4),
		}},
		{"strict equality", "a===b", []types.Token{
			tok(types.TokenID, "a", 0),
			tok(types.TokenOperator, "===", 1),
			tok(types.TokenID, "b", 4),
		}},
		{"punctuation", "f([1],2);", []types.Token{
			tok(types.TokenID, "f", 0),
			tok(types.TokenBrace, "(", 1),
			tok(types.TokenSquareBracket, "[", 2),
			intTok("1", 1, 3),
			tok(types.TokenSquareBracket, "]", 4),
			tok(types.TokenComma, ",", 5),
			intTok("2", 2, 6),
			tok(types.TokenBrace, ")", 7),
			tok(types.TokenStatementSeparator, ";", 8),
		}},
	})
}

func TestLexerKeywords(t *testing.T) {
	runLexerTests(t, []lexerTestCase{
		{"lower-cased", "a IRLIKE b", []types.Token{
			tok(types.TokenID, "a", 0),
			tok(types.TokenKeyword, "irlike", 2),
			tok(types.TokenID, "b", 9),
		}},
		{"identifier keeps case", "User_Name", []types.Token{tok(types.TokenID, "User_Name", 0)}},
		{"literals", "true null", []types.Token{
			tok(types.TokenKeyword, "true", 0),
			tok(types.TokenKeyword, "null", 5),
		}},
	})
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		kind     types.ErrorKind
		position int
	}{
		{"unclosed string", `a := "abc`, types.ErrUnclosedString, 5},
		{"trailing backslash", `"abc\`, types.ErrUnclosedString, 0},
		{"unclosed comment", `1 /* never`, types.ErrUnclosedComment, 2},
		{"unknown character", `a # b`, types.ErrUnrecognisedToken, 2},
		{"dot alone", `a.b`, types.ErrUnrecognisedToken, 1},
		{"non-ascii identifier", `é`, types.ErrUnrecognisedToken, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Tokenize(tt.input)
			require.Error(t, err)

			fe, ok := types.AsError(err)
			require.True(t, ok)
			assert.Equal(t, tt.kind, fe.Kind)
			assert.Equal(t, tt.position, fe.Position)
			assert.True(t, fe.IsSyntax())
		})
	}
}
