package mpcalc

import (
	"strconv"
	"strings"
)

// node is a node in the abstract syntax tree of an expression.
type node struct {
	kind nodeKind

	name string
	fn   Func

	left  *node
	right *node
}

type nodeKind int8

const (
	nodeNone nodeKind = iota

	nodeNum  // push num
	nodeRef  // push literal table entry name
	nodeName // push lookup(name)

	nodeCall // name is Func to call, right is link to nodeArg unless niladic
	nodeArg  // eval left, right is link to next arg

	nodeNeg    // evaluate left, then negate
	nodeAdd    // evaluate left, add right
	nodeSub    // evaluate left, sub right
	nodeMul    // evaluate left, mul right
	nodeDiv    // evaluate left, div by right
	nodePow    // evaluate left, exp by right
	nodeNop    // evaluate left
	nodeAssign // evaluate left, bind to name
)

var nodeNames = [...]string{
	nodeNone:   "None",
	nodeNum:    "Num",
	nodeRef:    "Ref",
	nodeName:   "Name",
	nodeCall:   "Call",
	nodeArg:    "Arg",
	nodeNeg:    "Neg",
	nodeAdd:    "Add",
	nodeSub:    "Sub",
	nodeMul:    "Mul",
	nodeDiv:    "Div",
	nodePow:    "Pow",
	nodeNop:    "Nop",
	nodeAssign: "Assign",
}

func (k nodeKind) String() string {
	if k < 0 || int(k) >= len(nodeNames) {
		return "nodeKind(" + strconv.Itoa(int(k)) + ")"
	}
	return nodeNames[k]
}

func (n *node) String() string {
	var b strings.Builder
	n.fmt(&b, false)
	return b.String()
}

func (n *node) fmt(b *strings.Builder, square bool) {
	var l, r byte = '(', ')'
	if square {
		l, r = '[', ']'
	}
	b.WriteByte(l)
	defer b.WriteByte(r)
	switch n.kind {
	case nodeNone:
		// Invalid nodes use invalid characters.
		b.WriteByte('$')
		if n.left != nil {
			n.left.fmt(b, square)
		}
		b.WriteByte('#')
		if n.right != nil {
			n.right.fmt(b, square)
		}
		b.WriteByte('$')
	case nodeNum, nodeName:
		b.WriteString(n.name)
	case nodeRef:
		b.WriteString(RefOpen)
		b.WriteString(n.name)
		b.WriteString(RefClose)
	case nodeCall:
		b.WriteString(n.name)
		n.fmtargs(b, !square)
	case nodeArg:
		// Args usually only appear inside calls, which are handled by fmtargs.
		b.WriteByte(':')
		n.left.fmt(b, !square)
		if n.right != nil {
			n.right.fmt(b, !square)
		}
	case nodeNeg:
		b.WriteByte('-')
		n.left.fmt(b, !square)
	case nodeAdd:
		n.left.fmt(b, !square)
		b.WriteString(" + ")
		n.right.fmt(b, !square)
	case nodeSub:
		n.left.fmt(b, !square)
		b.WriteString(" - ")
		n.right.fmt(b, !square)
	case nodeMul:
		n.left.fmt(b, !square)
		b.WriteString(" * ")
		n.right.fmt(b, !square)
	case nodeDiv:
		n.left.fmt(b, !square)
		b.WriteString(" / ")
		n.right.fmt(b, !square)
	case nodePow:
		n.left.fmt(b, !square)
		b.WriteString(" ^ ")
		n.right.fmt(b, !square)
	case nodeNop:
		b.WriteByte('+')
		n.left.fmt(b, !square)
	case nodeAssign:
		b.WriteString(n.name)
		b.WriteString(" := ")
		n.left.fmt(b, !square)
	default:
		panic("mpcalc: invalid node kind " + n.kind.String() + " after writing " + b.String())
	}
}

// fmtargs formats the argument list of a call. Argument lists always use
// round brackets; square controls the brackets around each argument.
func (n *node) fmtargs(b *strings.Builder, square bool) {
	b.WriteByte('(')
	defer b.WriteByte(')')
	if n.right == nil {
		// Niladic call.
		return
	}
	n = n.right
	if n.kind != nodeArg {
		b.WriteString("***")
		n.fmt(b, !square)
		return
	}
	n.left.fmt(b, !square)
	for n.right != nil {
		n = n.right
		if n.kind != nodeArg {
			b.WriteString("***")
			n.fmt(b, !square)
			return
		}
		b.WriteString(", ")
		n.left.fmt(b, !square)
	}
}
