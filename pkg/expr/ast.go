package expr

import (
	"fmt"

	"github.com/lemonberrylabs/unitcalc/pkg/types"
)

// Node is the interface for all expression tree nodes. The set of
// implementations is closed: *LiteralNode and *BinaryNode.
type Node interface {
	nodeType() string
	String() string
}

// LiteralNode is a terminal quantity.
type LiteralNode struct {
	Quantity types.Quantity
}

func (n *LiteralNode) nodeType() string { return "Literal" }

// String renders the quantity as "value unit".
func (n *LiteralNode) String() string { return n.Quantity.String() }

// BinaryOp identifies the operation of a BinaryNode.
type BinaryOp int

const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	Exp
	Convert
)

// String returns the operator symbol.
func (op BinaryOp) String() string {
	switch op {
	case Add:
		return OpAdd
	case Sub:
		return OpSub
	case Mul:
		return OpMul
	case Div:
		return OpDiv
	case Exp:
		return OpExp
	case Convert:
		return OpConvert
	default:
		return "?"
	}
}

// binaryOps maps operator symbols to node operations.
var binaryOps = map[string]BinaryOp{
	OpAdd:     Add,
	OpSub:     Sub,
	OpMul:     Mul,
	OpDiv:     Div,
	OpExp:     Exp,
	OpConvert: Convert,
}

// BinaryNode is a binary operation over two subtrees.
type BinaryNode struct {
	Op    BinaryOp
	Left  Node
	Right Node
}

func (n *BinaryNode) nodeType() string { return "Binary" }

// String renders the node fully parenthesized. Exponentiation also wraps
// each operand so that the output parses back to the same tree.
func (n *BinaryNode) String() string {
	if n.Op == Exp {
		return fmt.Sprintf("((%s)^(%s))", n.Left, n.Right)
	}
	return fmt.Sprintf("(%s %s %s)", n.Left, n.Op, n.Right)
}
