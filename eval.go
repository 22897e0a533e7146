package mpcalc

import (
	"context"
	"errors"
	"io"
	"math/big"
	"strconv"
	"strings"
)

// Context is a context for evaluating expressions. It is not safe to use a
// Context concurrently.
type Context struct {
	stack []Value
	nums  map[string]Value
	names map[string]Value
	lits  *Literals
	prec  uint
	res   *Result
	err   error
	done  context.Context
}

// ContextOption is an option used when creating a context.
type ContextOption interface {
	ctxOption()
}

type (
	varopt struct {
		name string
		val  Value
	}
	varsopt map[string]Value
	precopt uint
	litsopt struct {
		lits *Literals
	}
	doneopt struct {
		ctx context.Context
	}
)

func (varopt) ctxOption()  {}
func (varsopt) ctxOption() {}
func (precopt) ctxOption() {}
func (litsopt) ctxOption() {}
func (doneopt) ctxOption() {}

// SetVar sets the value of a variable in the context.
func SetVar(name string, val Value) ContextOption {
	return varopt{name, val}
}

// SetVars sets the values of any number of variables in the context.
func SetVars(vars map[string]Value) ContextOption {
	return varsopt(vars)
}

// Prec sets the precision of calculations in bits.
func Prec(prec uint) ContextOption {
	return precopt(prec)
}

// WithLiterals sets the literal table used to resolve literal references.
func WithLiterals(lits *Literals) ContextOption {
	return litsopt{lits}
}

// WithContext stops evaluation with ctx's error once ctx is done.
func WithContext(ctx context.Context) ContextOption {
	return doneopt{ctx}
}

// NewContext creates a new evaluation context. If no precision is given, the
// default is 64.
func NewContext(opts ...ContextOption) *Context {
	ctx := Context{
		nums: make(map[string]Value),
		prec: 64,
		done: context.Background(),
	}
	return ctx.Clone(opts...)
}

// Eval evaluates an expression and returns the result. If an error occurs,
// e.g. a missing variable definition or an argument to a function is outside
// the function's domain, then the result is nil and ctx.Err returns the error.
// Assignments in the expression update the context's variables.
func (ctx *Context) Eval(e *Expr) *Result {
	if len(ctx.stack) != 0 {
		panic("mpcalc: Eval during Eval")
	}
	ctx.res, ctx.err = nil, nil
	r := Result{Values: make([]Value, 0, len(e.items))}
	for _, n := range e.items {
		if err := ctx.evalItem(n); err != nil {
			ctx.err = err
			ctx.stack = ctx.stack[:0]
			return nil
		}
		r.Values = append(r.Values, ctx.pop())
	}
	ctx.res = &r
	return &r
}

// evalItem evaluates a single top-level item, converting NaN panics from
// package big into DomainErrors.
func (ctx *Context) evalItem(n *node) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		nan, ok := r.(big.ErrNaN)
		if !ok {
			panic(r)
		}
		err = &DomainError{Reason: nan.Error()}
	}()
	return n.eval(ctx)
}

// Result returns the result of the last evaluated expression. Returns nil if
// an error occurred.
func (ctx *Context) Result() *Result {
	return ctx.res
}

// Err returns the error that occurred during the last evaluation with ctx, if
// any.
func (ctx *Context) Err() error {
	return ctx.err
}

// Set sets the value of a variable. Returns ctx for chaining. Calling Set
// while the context is being used to evaluate an expression panics.
func (ctx *Context) Set(name string, value Value) *Context {
	if len(ctx.stack) > 0 {
		panic("mpcalc: Set on in-use context")
	}
	if ctx.names == nil {
		ctx.names = make(map[string]Value)
	}
	ctx.names[name] = value.Copy(ctx.prec)
	return ctx
}

// Lookup returns a copy of the value of a variable. If there is no such
// variable in the context, then ok is false.
func (ctx *Context) Lookup(name string) (v Value, ok bool) {
	v, ok = ctx.names[name]
	if !ok {
		return Value{}, false
	}
	return v.Copy(v.Re.Prec()), true
}

// Prec returns the precision in bits to which values are computed in the
// context.
func (ctx *Context) Prec() uint {
	return ctx.prec
}

// Clone creates a copy of a context and applies options to it. The returned
// context is safe to use to evaluate an expression.
func (ctx *Context) Clone(opts ...ContextOption) *Context {
	n := Context{
		stack: make([]Value, 0, cap(ctx.stack)),
		nums:  make(map[string]Value, len(ctx.nums)),
		names: make(map[string]Value, len(ctx.names)),
		lits:  ctx.lits,
		prec:  ctx.prec,
		done:  ctx.done,
	}
	// First, check for a precision setting. Loop backward so we apply the last
	// precision.
	for i := len(opts) - 1; i >= 0; i-- {
		if p, ok := opts[i].(precopt); ok {
			n.prec = uint(p)
			break
		}
	}
	// Copy numbers only if the new precision is no higher than the old, so
	// that we always use the precision we need.
	if n.prec <= ctx.prec {
		for k, v := range ctx.nums {
			n.nums[k] = v.Copy(n.prec)
		}
	}
	// Copy variables. Values are never modified in place, so with the same
	// precision we can share them.
	for name, val := range ctx.names {
		if n.prec != ctx.prec {
			val = val.Copy(n.prec)
		}
		n.names[name] = val
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		switch opt := opt.(type) {
		case varopt:
			n.names[opt.name] = opt.val.Copy(n.prec)
		case varsopt:
			for k, v := range opt {
				n.names[k] = v.Copy(n.prec)
			}
		case litsopt:
			n.lits = opt.lits
		case doneopt:
			n.done = opt.ctx
		case precopt:
			// Already done. Do nothing.
		default:
			panic("mpcalc: unknown option type")
		}
	}
	return &n
}

func (ctx *Context) push(v Value) {
	ctx.stack = append(ctx.stack, v)
}

// pop removes the top from the stack and returns it.
func (ctx *Context) pop() Value {
	r := ctx.stack[len(ctx.stack)-1]
	ctx.stack = ctx.stack[:len(ctx.stack)-1]
	return r
}

// num gets a possibly cached number from its text.
func (ctx *Context) num(s string) (Value, error) {
	if r, ok := ctx.nums[s]; ok {
		return r, nil
	}
	r, err := ParseLiteral(s, ctx.prec)
	if err != nil {
		return Value{}, err
	}
	ctx.nums[s] = r
	return r, nil
}

// binary evaluates both operands of n and returns them.
func (n *node) binary(ctx *Context) (l, r Value, err error) {
	if err := n.left.eval(ctx); err != nil {
		return Value{}, Value{}, err
	}
	if err := n.right.eval(ctx); err != nil {
		return Value{}, Value{}, err
	}
	r = ctx.pop()
	l = ctx.pop()
	return l, r, nil
}

// eval pushes the node's value to the context's stack.
func (n *node) eval(ctx *Context) error {
	if err := ctx.done.Err(); err != nil {
		return err
	}
	switch n.kind {
	case nodeNum:
		v, err := ctx.num(n.name)
		if err != nil {
			return err
		}
		ctx.push(v)
	case nodeRef:
		var v Value
		ok := false
		if ctx.lits != nil {
			v, ok = ctx.lits.Lookup(n.name)
		}
		if !ok {
			return &NameError{Name: RefOpen + n.name + RefClose}
		}
		ctx.push(v)
	case nodeName:
		v, ok := ctx.names[n.name]
		if !ok {
			return &NameError{Name: n.name}
		}
		ctx.push(v)
	case nodeCall:
		k := len(ctx.stack)
		for l := n.right; l != nil; l = l.right {
			if err := l.left.eval(ctx); err != nil {
				return err
			}
		}
		invoc := ctx.stack[k:len(ctx.stack):len(ctx.stack)]
		r, err := n.fn.Call(ctx, invoc)
		if err != nil {
			return blame(err, n.name)
		}
		ctx.stack = ctx.stack[:k]
		ctx.push(r)
	case nodeArg:
		panic("mpcalc: eval on nodeArg")
	case nodeNeg:
		if err := n.left.eval(ctx); err != nil {
			return err
		}
		ctx.push(neg(ctx.pop(), ctx.prec))
	case nodeAdd:
		l, r, err := n.binary(ctx)
		if err != nil {
			return err
		}
		ctx.push(add(l, r, ctx.prec))
	case nodeSub:
		l, r, err := n.binary(ctx)
		if err != nil {
			return err
		}
		ctx.push(sub(l, r, ctx.prec))
	case nodeMul:
		l, r, err := n.binary(ctx)
		if err != nil {
			return err
		}
		ctx.push(mul(l, r, ctx.prec))
	case nodeDiv:
		l, r, err := n.binary(ctx)
		if err != nil {
			return err
		}
		q, err := quo(l, r, ctx.prec)
		if err != nil {
			return err
		}
		ctx.push(q)
	case nodePow:
		l, r, err := n.binary(ctx)
		if err != nil {
			return err
		}
		p, err := pow(ctx.done, l, r, ctx.prec)
		if err != nil {
			return blame(err, "^")
		}
		ctx.push(p)
	case nodeNop:
		if err := n.left.eval(ctx); err != nil {
			return err
		}
	case nodeAssign:
		if err := n.left.eval(ctx); err != nil {
			return err
		}
		v := ctx.stack[len(ctx.stack)-1]
		if ctx.names == nil {
			ctx.names = make(map[string]Value)
		}
		ctx.names[n.name] = v
	default:
		panic("mpcalc: invalid AST node " + n.kind.String())
	}
	return nil
}

// blame names fn as the function of a DomainError that does not name one.
func blame(err error, fn string) error {
	var de *DomainError
	if errors.As(err, &de) && de.Func == "" {
		de.Func = fn
	}
	return err
}

// Result is the result of evaluating an expression. An expression of several
// comma-separated items produces one value per item.
type Result struct {
	Values []Value
}

// Tuple reports whether r holds anything other than exactly one value.
func (r *Result) Tuple() bool {
	return len(r.Values) != 1
}

// Value returns the first value of r.
func (r *Result) Value() Value {
	return r.Values[0]
}

// String formats r with default precision.
func (r *Result) String() string {
	return FormatResult(r, 0, false)
}

// Eval is a shortcut to parse an expression and return its result using the
// default functions.
func Eval(src io.RuneScanner, opts ...ContextOption) (*Result, error) {
	ctx := NewContext(opts...)
	a, err := Parse(src)
	if err != nil {
		return nil, err
	}
	r := ctx.Eval(a)
	return r, ctx.Err()
}

// EvalString is a shortcut to parse and evaluate a string expression.
func EvalString(src string, opts ...ContextOption) (*Result, error) {
	return Eval(strings.NewReader(src), opts...)
}

// NameError is an error from a lookup for a name that is neither in the
// namespace nor defined in the evaluation context.
type NameError struct {
	// Name is the name that was missing.
	Name string
	// Col is the position of the name if it was found during parsing, or 0
	// if it was found during evaluation.
	Col int
}

func (err *NameError) Error() string {
	msg := "undefined name: " + strconv.Quote(err.Name)
	if err.Col > 0 {
		return errpos(err.Col, msg)
	}
	return msg
}
