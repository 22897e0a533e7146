package mpcalc

import (
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Items = Item { ',' Item }
// Item = name ':=' Item | Expr
// Expr = num | ref | name | Call | Neg | Plus | Add | Sub | Mul | Div | Pow | '(' Item ')' | '[' Item ']'
// Call = funcname | funcname '(' [ Expr { ',' Expr } ] ')'
// Neg = '-' Expr
// Plus = '+' Expr
// Add = Expr '+' Expr
// Sub = Expr '-' Expr
// Mul = Expr '*' Expr
// Div = Expr '/' Expr
// Pow = Expr '^' Expr | Expr '**' Expr

// Expr is a parsed expression that can be evaluated with a context.
type Expr struct {
	// items are the root nodes of the comma-separated expressions.
	items []*node
	// names is the list of local variable names used in the expression.
	names []string
}

// Parse parses an expression so it can be evaluated with a context. The given
// options are applied in order.
func Parse(src io.RuneScanner, opts ...ParseOption) (*Expr, error) {
	scan := lex(src)
	p := parsectx{
		names: make(map[string]bool),
	}
	for _, opt := range opts {
		p = opt.parseOption(p)
	}
	if p.funcs == nil {
		p.funcs = globalfuncs
	} else if !p.nodefaults {
		// Only set default functions that aren't already set.
		for k, v := range globalfuncs {
			if _, ok := p.funcs[k]; !ok {
				p.funcs[k] = v
			}
		}
	}
	var items []*node
	for {
		n, err := parseitem(scan, &p)
		if err != nil {
			return nil, err
		}
		tok := scan.must()
		if n == nil {
			return nil, itShouldNotHaveEndedThisWay(tok, -1)
		}
		items = append(items, n)
		if tok.kind == tokenEOF {
			break
		}
		if tok.kind != tokenSep {
			return nil, itShouldNotHaveEndedThisWay(tok, -1)
		}
	}
	ex := Expr{
		items: items,
		names: make([]string, 0, len(p.names)),
	}
	for k := range p.names {
		ex.names = append(ex.names, k)
	}
	sortstrs(ex.names)
	return &ex, nil
}

// ParseString is a shortcut to parse a string expression.
func ParseString(src string, opts ...ParseOption) (*Expr, error) {
	return Parse(strings.NewReader(src), opts...)
}

// sortstrs sorts a string slice without using package sort because that has
// reflection and allocation problems.
func sortstrs(names []string) {
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j] < names[j-1]; j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
}

// parseitem parses a term that may be an assignment to a local name. Like
// parseterm, it pushes the last token it scans.
func parseitem(scan *lexer, p *parsectx) (*node, error) {
	n, err := parseterm(scan, p, exprprec)
	if err != nil || n == nil {
		return n, err
	}
	tok := scan.must()
	if tok.kind != tokenOp || tok.text != ":=" {
		scan.push(tok)
		return n, nil
	}
	if n.kind != nodeName {
		return nil, &AssignError{Col: tok.pos}
	}
	rhs, err := parseitem(scan, p)
	if err != nil {
		return nil, err
	}
	if rhs == nil {
		end := scan.must()
		return nil, &EmptyExpressionError{Col: end.pos, End: end.text}
	}
	return &node{kind: nodeAssign, name: n.name, left: rhs}, nil
}

// parseterm parses a single term. If there is no error, then parseterm pushes
// the last token it scans, including EOF. If the input is an empty
// subexpression, the result is nil with no error; callers must create an error
// in contexts where empty subexpressions are illegal.
func parseterm(scan *lexer, p *parsectx, until operator) (*node, error) {
	n, err := parselhs(scan, p, until)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, nil
	}
	for {
		tok, err := scan.next()
		if err != nil {
			return nil, err
		}
		switch tok.kind {
		case tokenNum, tokenRef, tokenIdent, tokenOpen:
			// Terms are never implied to multiply.
			return nil, &TermError{Col: tok.pos, Term: tok.text}
		case tokenOp:
			if tok.text == ":=" {
				// parseitem decides whether this is a valid assignment.
				scan.push(tok)
				return n, nil
			}
			prec := binop(tok.text)
			if prec.op == nodeNone {
				return nil, &OperatorError{Col: tok.pos, Operator: tok.text, Unary: false}
			}
			if !prec.moreBinding(until) {
				scan.push(tok)
				return n, nil
			}
			rhs, err := parseterm(scan, p, prec)
			if err != nil {
				return nil, err
			}
			if rhs == nil {
				return nil, missingOperand(scan)
			}
			n = &node{kind: prec.op, left: n, right: rhs}
		case tokenClose, tokenSep, tokenEOF:
			// End of expression.
			scan.push(tok)
			return n, nil
		default:
			panic("mpcalc: unknown token: " + tok.String())
		}
	}
}

// missingOperand creates an error for an operator with nothing after it.
func missingOperand(scan *lexer) error {
	end := scan.must()
	return &EmptyExpressionError{Col: end.pos, End: end.text}
}

// parselhs parses the first component of a term. I.e., operators are unary and
// any encountered token must be valid as the start of a subexpression.
func parselhs(scan *lexer, p *parsectx, until operator) (*node, error) {
	tok, err := scan.next()
	if err != nil {
		return nil, err
	}
	var n *node
	switch tok.kind {
	case tokenNum:
		n = &node{kind: nodeNum, name: tok.text}
	case tokenRef:
		n = &node{kind: nodeRef, name: tok.text}
	case tokenIdent:
		name, fn, ok := p.resolve(tok.text)
		switch {
		case !ok:
			// A qualified name that isn't in the namespace. If it's being
			// assigned, say how to assign it instead.
			next, err := scan.next()
			if err != nil {
				return nil, err
			}
			if next.kind == tokenOp && next.text == ":=" {
				return nil, &AssignError{Col: next.pos, Target: tok.text}
			}
			return nil, &NameError{Name: tok.text, Col: tok.pos}
		case fn == nil:
			p.names[name] = true
			n = &node{kind: nodeName, name: name}
		default:
			rhs, err := parsecall(scan, p, fn, name)
			if err != nil {
				return nil, err
			}
			n = &node{kind: nodeCall, name: name, fn: fn, right: rhs}
		}
	case tokenOp:
		// unary operator
		prec := unop(tok.text)
		if prec.op == nodeNone {
			return nil, &OperatorError{Col: tok.pos, Operator: tok.text, Unary: true}
		}
		if !prec.moreBinding(until) {
			// x^-y -> x^(-y)
			// Just use the new operator's precedence to simplify.
			prec.prec, prec.right = until.prec, until.right
		}
		rhs, err := parseterm(scan, p, prec)
		if err != nil {
			return nil, err
		}
		if rhs == nil {
			return nil, missingOperand(scan)
		}
		n = &node{kind: prec.op, left: rhs}
	case tokenOpen:
		match := rightbracket(tok.text)
		rhs, err := parseitem(scan, p)
		if err != nil {
			return nil, err
		}
		end := scan.must()
		if end.kind != tokenClose || end.text != closebrackets[match] {
			return nil, itShouldNotHaveEndedThisWay(end, match)
		}
		if rhs == nil {
			return nil, &EmptyExpressionError{Col: end.pos, End: end.text}
		}
		n = rhs
	case tokenClose:
		// This might be part of niladic func(), so just let the caller decide
		// what to do.
		scan.push(tok)
		return nil, nil
	case tokenSep:
		return nil, &SeparatorError{Col: tok.pos, Sep: tok.text}
	case tokenEOF:
		return nil, &EmptyExpressionError{Col: tok.pos, End: ""}
	default:
		panic("mpcalc: unknown token: " + tok.String())
	}
	return n, nil
}

// parsecall parses the arguments to a call of a given Func. Arguments must be
// in parentheses; a function name alone is a call with no arguments.
func parsecall(scan *lexer, p *parsectx, fn Func, name string) (*node, error) {
	tok, err := scan.next()
	if err != nil {
		return nil, err
	}
	if tok.kind != tokenOpen || tok.text != "(" {
		scan.push(tok)
		if !fn.CanCall(0) {
			return nil, &CallError{Col: tok.pos, Func: name, Len: 0}
		}
		return nil, nil
	}
	n, len, err := parsearglist(scan, p, tok.text)
	if err != nil {
		return nil, err
	}
	end := scan.must()
	if end.kind != tokenClose {
		panic("mpcalc: parsearglist ended on " + end.String() + " instead of close bracket")
	}
	if end.text != closebrackets[rightbracket(tok.text)] {
		return nil, &BracketError{Col: end.pos, Left: tok.text, Right: end.text}
	}
	if !fn.CanCall(len) {
		return nil, &CallError{Col: tok.pos, Func: name, Len: len}
	}
	return n, nil
}

// parsearglist parses a bracketed list of zero or more args.
func parsearglist(scan *lexer, p *parsectx, open string) (*node, int, error) {
	var n node
	l := &n
	len := 0
	for {
		rhs, err := parseterm(scan, p, exprprec)
		if err != nil {
			// As a special case, reporting mismatched brackets is more helpful
			// than empty expression, if that's what we'd do here.
			if ee, _ := err.(*EmptyExpressionError); ee != nil && ee.End == "" {
				err = &BracketError{Col: ee.Col, Left: open}
			}
			return nil, 0, err
		}
		end := scan.must()
		switch end.kind {
		case tokenClose:
			// Caller checks that brackets match.
			scan.push(end)
			if rhs == nil {
				// No expression parsed.
				// func() is allowed, but func(a,) isn't.
				if len != 0 {
					return nil, 0, &EmptyExpressionError{Col: end.pos, End: end.text}
				}
				return nil, 0, nil
			}
			l.right = &node{kind: nodeArg, left: rhs}
			return n.right, len + 1, nil
		case tokenSep:
			len++
			l.right = &node{kind: nodeArg, left: rhs}
			l = l.right
		case tokenOp:
			// The only operator parseterm leaves is :=.
			return nil, 0, &AssignError{Col: end.pos}
		case tokenEOF:
			return nil, 0, &BracketError{Col: end.pos, Left: open, Right: ""}
		default:
			panic("mpcalc: parseexpr ended on non-end token " + end.String())
		}
	}
}

// rightbracket gets the closing bracket index for an opening bracket.
func rightbracket(left string) int {
	r, sz := utf8.DecodeRuneInString(left)
	k := strings.IndexRune(OpenBrackets, r)
	if k < 0 || sz != len(left) {
		panic("mpcalc: invalid bracket " + strconv.Quote(left))
	}
	return k
}

// leftbracket gets the opening bracket matching right. If right is no bracket,
// then the result is the empty string.
func leftbracket(right int) string {
	if right == -1 {
		return ""
	}
	return openbrackets[right]
}

// itShouldNotHaveEndedThisWay returns an error appropriate for an unexpected
// token at the end of a subexpression. match is the bracket rune index that
// the expression should have matched, or -1 if none.
func itShouldNotHaveEndedThisWay(tok lexToken, match int) error {
	switch tok.kind {
	case tokenEOF:
		// Unexpected EOF implies an open bracket that was not closed.
		return &BracketError{Col: tok.pos, Left: leftbracket(match), Right: ""}
	case tokenClose:
		// A bracket could be the wrong bracket for the opening brace or any
		// bracket at the end of an input.
		return &BracketError{Col: tok.pos, Left: leftbracket(match), Right: tok.text}
	case tokenSep:
		// Separator outside a function call or top-level list.
		return &SeparatorError{Col: tok.pos, Sep: tok.text}
	case tokenOp:
		return &AssignError{Col: tok.pos}
	default:
		panic("mpcalc: it really should not have ended this way: " + tok.String())
	}
}

// Vars returns the local variable names used when evaluating the expression.
func (e *Expr) Vars() []string {
	return append(([]string)(nil), e.names...)
}

// Len returns the number of comma-separated expressions in e.
func (e *Expr) Len() int {
	return len(e.items)
}

// String creates a string representation of the parsed expression, with
// alternating round and square brackets grouping each term.
func (e *Expr) String() string {
	var b strings.Builder
	for i, n := range e.items {
		if i > 0 {
			b.WriteString(", ")
		}
		n.fmt(&b, false)
	}
	return b.String()
}

type operator struct {
	// prec is the precedence value. Lower is more binding.
	prec int8
	// right indicates right-associativity.
	right bool
	// op is the node kind to use when this operator is selected.
	op nodeKind
}

func (p operator) moreBinding(than operator) bool {
	if p.prec != than.prec {
		return p.prec > than.prec
	}
	return p.right
}

// binop gets a binary operator for a token string. If there is no such binary
// operator, then the result has an op of nodeNone.
func binop(text string) operator {
	switch text {
	case "+":
		return operator{1, false, nodeAdd}
	case "-":
		return operator{1, false, nodeSub}
	case "*":
		return operator{5, false, nodeMul}
	case "/":
		return operator{5, false, nodeDiv}
	case "^", "**":
		return operator{15, true, nodePow}
	default:
		return operator{}
	}
}

// unop gets a unary operator for a token string. If there is no such unary
// operator, then the result has an op of nodeNone.
func unop(text string) operator {
	switch text {
	case "+":
		return operator{10, true, nodeNop}
	case "-":
		return operator{10, true, nodeNeg}
	default:
		return operator{}
	}
}

var (
	// exprprec is the precedence required to parse an entire subexpression.
	exprprec = operator{-128, true, nodeNone}
)
