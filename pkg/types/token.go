package types

// TokenType identifies the lexical class of a token.
type TokenType string

// Token classes. The string forms are the names reported in error
// parameters.
const (
	TokenNone               TokenType = "T_NONE"
	TokenID                 TokenType = "T_ID"
	TokenKeyword            TokenType = "T_KEYWORD"
	TokenString             TokenType = "T_STRING"
	TokenInt                TokenType = "T_INT"
	TokenFloat              TokenType = "T_FLOAT"
	TokenOperator           TokenType = "T_OP"
	TokenBrace              TokenType = "T_BRACE"
	TokenSquareBracket      TokenType = "T_SQUARE_BRACKET"
	TokenComma              TokenType = "T_COMMA"
	TokenStatementSeparator TokenType = "T_STATEMENT_SEPARATOR"
	TokenEOF                TokenType = "T_EOF"
)

// Token is a lexical unit of filter source.
//
// Value holds the decoded text: the unescaped content for strings, the
// lower-cased word for keywords and the literal text for everything else.
// Numeric tokens additionally carry their parsed value in Int or Float.
type Token struct {
	Type     TokenType `json:"type"`
	Value    string    `json:"value,omitempty"`
	Int      int64     `json:"int,omitempty"`
	Float    float64   `json:"float,omitempty"`
	Position int       `json:"pos"`
}

// NewToken creates a token of the given type.
func NewToken(tokenType TokenType, value string, position int) Token {
	return Token{Type: tokenType, Value: value, Position: position}
}

// Is reports whether the token has the given type and value.
func (t Token) Is(tokenType TokenType, value string) bool {
	return t.Type == tokenType && t.Value == value
}

// IsOperator reports whether the token is the operator op.
func (t Token) IsOperator(op string) bool {
	return t.Is(TokenOperator, op)
}

// IsKeyword reports whether the token is the keyword kw.
func (t Token) IsKeyword(kw string) bool {
	return t.Is(TokenKeyword, kw)
}

// Equal compares type and value, ignoring the position. Numbers compare
// by parsed value, so 1fx equals 31.
func (t Token) Equal(o Token) bool {
	if t.Type != o.Type {
		return false
	}
	switch t.Type {
	case TokenInt:
		return t.Int == o.Int
	case TokenFloat:
		return t.Float == o.Float
	}
	return t.Value == o.Value
}

// String returns the token value, or its type for end-of-input.
func (t Token) String() string {
	if t.Type == TokenEOF {
		return string(t.Type)
	}
	return t.Value
}
