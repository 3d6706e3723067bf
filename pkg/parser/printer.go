package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/types"
)

// Format renders an AST back into filter source. Binary operations are
// fully parenthesised, so parsing the output yields an equal tree. Numbers
// keep their literal spelling.
func Format(node *types.ASTNode) string {
	var b strings.Builder
	formatNode(&b, node)
	return b.String()
}

func formatNode(b *strings.Builder, node *types.ASTNode) {
	if node == nil {
		return
	}

	switch node.Type {
	case types.NodeSemicolon:
		for i, c := range node.Children {
			if i > 0 {
				b.WriteString("; ")
			}
			if c.Type == types.NodeSemicolon {
				b.WriteByte('(')
				formatNode(b, c)
				b.WriteByte(')')
				continue
			}
			formatNode(b, c)
		}

	case types.NodeAssignment:
		b.WriteString(node.Name)
		b.WriteString(" := ")
		formatOperand(b, node.Child(0))

	case types.NodeIndexAssignment:
		b.WriteString(node.Name)
		b.WriteByte('[')
		formatNode(b, node.Child(0))
		b.WriteString("] := ")
		formatOperand(b, node.Child(1))

	case types.NodeArrayAppend:
		b.WriteString(node.Name)
		b.WriteString("[] := ")
		formatOperand(b, node.Child(0))

	case types.NodeConditional:
		b.WriteString("if ")
		formatOperand(b, node.Child(0))
		b.WriteString(" then ")
		formatOperand(b, node.Child(1))
		if len(node.Children) > 2 {
			b.WriteString(" else ")
			formatOperand(b, node.Child(2))
		}
		b.WriteString(" end")

	case types.NodeLogic, types.NodeCompare, types.NodeSumRel, types.NodeMulRel,
		types.NodePow, types.NodeKeywordOperator:
		b.WriteByte('(')
		formatOperand(b, node.Child(0))
		b.WriteByte(' ')
		b.WriteString(node.Op)
		b.WriteByte(' ')
		formatOperand(b, node.Child(1))
		b.WriteByte(')')

	case types.NodeBoolInvert, types.NodeUnary:
		b.WriteString(node.Op)
		b.WriteByte('(')
		formatNode(b, node.Child(0))
		b.WriteByte(')')

	case types.NodeArrayIndex:
		list := node.Child(0)
		switch list.Type {
		case types.NodeAtom, types.NodeArrayDefinition, types.NodeFunctionCall, types.NodeArrayIndex:
			formatNode(b, list)
		default:
			b.WriteByte('(')
			formatNode(b, list)
			b.WriteByte(')')
		}
		b.WriteByte('[')
		formatNode(b, node.Child(1))
		b.WriteByte(']')

	case types.NodeFunctionCall:
		b.WriteString(node.Func.String())
		b.WriteByte('(')
		formatList(b, node.Children)
		b.WriteByte(')')

	case types.NodeArrayDefinition:
		b.WriteByte('[')
		formatList(b, node.Children)
		b.WriteByte(']')

	case types.NodeAtom:
		formatToken(b, *node.Token)

	default:
		panic(types.Internalf(node.Position, "cannot format node %s", node.Type))
	}
}

func formatList(b *strings.Builder, nodes []*types.ASTNode) {
	for i, c := range nodes {
		if i > 0 {
			b.WriteString(", ")
		}
		formatOperand(b, c)
	}
}

// formatOperand parenthesises nodes that would otherwise bind differently
// in operand position.
func formatOperand(b *strings.Builder, node *types.ASTNode) {
	switch node.Type {
	case types.NodeSemicolon, types.NodeAssignment, types.NodeIndexAssignment,
		types.NodeArrayAppend, types.NodeConditional:
		b.WriteByte('(')
		formatNode(b, node)
		b.WriteByte(')')
	default:
		formatNode(b, node)
	}
}

func formatToken(b *strings.Builder, tok types.Token) {
	switch tok.Type {
	case types.TokenString:
		b.WriteString(QuoteString(tok.Value))
	case types.TokenInt:
		if tok.Value != "" {
			b.WriteString(tok.Value)
			return
		}
		b.WriteString(strconv.FormatInt(tok.Int, 10))
	case types.TokenFloat:
		if tok.Value != "" {
			b.WriteString(tok.Value)
			return
		}
		s := strconv.FormatFloat(tok.Float, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		b.WriteString(s)
	default:
		b.WriteString(tok.Value)
	}
}

// QuoteString renders s as a double-quoted filter string literal.
func QuoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(&b, `\x%02x`, c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
