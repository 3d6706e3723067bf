package types

import "github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/functions"

// NodeType identifies the type of an AST node.
type NodeType string

// AST node types. The comment lists the children each kind carries.
const (
	NodeSemicolon       NodeType = "semicolon"        // statements...
	NodeAssignment      NodeType = "assignment"       // value; Name is the target
	NodeIndexAssignment NodeType = "index_assignment" // index, value; Name is the target
	NodeArrayAppend     NodeType = "array_append"     // value; Name is the target
	NodeConditional     NodeType = "conditional"      // cond, then, else (else may be nil)
	NodeLogic           NodeType = "logic"            // left, right; Op in & | ^
	NodeCompare         NodeType = "compare"          // left, right
	NodeSumRel          NodeType = "sum_rel"          // left, right; Op in + -
	NodeMulRel          NodeType = "mul_rel"          // left, right; Op in * / %
	NodePow             NodeType = "pow"              // base, exponent
	NodeBoolInvert      NodeType = "bool_invert"      // operand
	NodeKeywordOperator NodeType = "keyword_operator" // left, right; Op is the keyword
	NodeUnary           NodeType = "unary"            // operand; Op in + -
	NodeArrayIndex      NodeType = "array_index"      // list, index
	NodeFunctionCall    NodeType = "function_call"    // args...; Func is resolved
	NodeArrayDefinition NodeType = "array_definition" // elements...
	NodeAtom            NodeType = "atom"             // none; Token holds the literal or identifier
)

// ASTNode represents a node in the Abstract Syntax Tree.
type ASTNode struct {
	Type     NodeType     `json:"t"`
	Position int          `json:"p"`
	Op       string       `json:"op,omitempty"`
	Name     string       `json:"name,omitempty"`
	Func     functions.ID `json:"fn,omitempty"`
	Token    *Token       `json:"tok,omitempty"`
	Children []*ASTNode   `json:"c,omitempty"`
}

// NewASTNode creates a new AST node of the specified type.
// Prefer NodeArena.Alloc when parsing to reduce per-node heap allocations.
func NewASTNode(nodeType NodeType, position int) *ASTNode {
	return &ASTNode{
		Type:     nodeType,
		Position: position,
	}
}

// arenaChunkSize is the number of ASTNode values pre-allocated per arena chunk.
// Most filters fit in a single chunk.
const arenaChunkSize = 64

// NodeArena is a bump-pointer allocator for ASTNode values.
//
// The arena pre-allocates fixed-size chunks of ASTNode structs and returns
// pointers into them, so a typical filter costs one allocation for all of
// its nodes.
//
// The arena must stay alive as long as any pointer returned by Alloc is
// reachable. Attaching it to the [Expression] achieves this.
//
// NodeArena is NOT thread-safe. Each parser owns its own arena.
type NodeArena struct {
	chunks [][]ASTNode
	pos    int
}

// NewNodeArena allocates an arena pre-warmed with one initial chunk.
func NewNodeArena() *NodeArena {
	return &NodeArena{
		chunks: [][]ASTNode{make([]ASTNode, arenaChunkSize)},
	}
}

// Alloc returns a pointer to a zero-valued ASTNode inside the arena,
// with Type and Position set.
func (a *NodeArena) Alloc(nodeType NodeType, position int) *ASTNode {
	if a.pos >= arenaChunkSize {
		a.chunks = append(a.chunks, make([]ASTNode, arenaChunkSize))
		a.pos = 0
	}
	n := &a.chunks[len(a.chunks)-1][a.pos]
	a.pos++
	n.Type = nodeType
	n.Position = position
	return n
}

// Len returns the number of nodes handed out so far.
func (a *NodeArena) Len() int {
	return (len(a.chunks)-1)*arenaChunkSize + a.pos
}

// String returns a string representation of the node type.
func (n *ASTNode) String() string {
	return string(n.Type)
}

// Child returns the i-th child, or nil when absent.
func (n *ASTNode) Child(i int) *ASTNode {
	if i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// Walk visits n and its descendants depth-first, skipping nil children.
// Returning false from fn prunes the subtree.
func (n *ASTNode) Walk(fn func(*ASTNode) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// InnerAssignments returns the variable names a subtree would assign,
// in source order and without duplicates. Calls to set/set_var count only
// when their name argument is a string literal.
func (n *ASTNode) InnerAssignments() []string {
	var names []string
	seen := make(map[string]struct{})
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	n.Walk(func(node *ASTNode) bool {
		switch node.Type {
		case NodeAssignment, NodeIndexAssignment, NodeArrayAppend:
			add(node.Name)
		case NodeFunctionCall:
			if node.Func != functions.Set && node.Func != functions.SetVar {
				break
			}
			if first := node.Child(0); first != nil && first.Type == NodeAtom &&
				first.Token != nil && first.Token.Type == TokenString {
				add(first.Token.Value)
			}
		}
		return true
	})
	return names
}

// Equal reports whether two trees have the same shape, operators, names
// and literal tokens. Positions are ignored.
func (n *ASTNode) Equal(o *ASTNode) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.Type != o.Type || n.Op != o.Op || n.Name != o.Name || n.Func != o.Func {
		return false
	}
	if (n.Token == nil) != (o.Token == nil) {
		return false
	}
	if n.Token != nil && !n.Token.Equal(*o.Token) {
		return false
	}
	if len(n.Children) != len(o.Children) {
		return false
	}
	for i := range n.Children {
		if !n.Children[i].Equal(o.Children[i]) {
			return false
		}
	}
	return true
}
