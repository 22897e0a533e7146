package mpcalc

import (
	"context"
	"errors"
	"math/big"
	"sort"
	"strconv"

	"github.com/zephyrtronium/bigfloat"
)

// Func is a function on real or complex values. Functions may but generally
// should not look up variables.
type Func interface {
	// Call evaluates the function. The function arguments are passed in invoc,
	// which has a length for which CanCall returned true. Call must not modify
	// the values in invoc. The result should be computed to ctx.Prec() bits.
	Call(ctx *Context, invoc []Value) (Value, error)

	// CanCall returns whether the function can be called with n arguments.
	// A function name written without an argument list is a call with zero
	// arguments, so constants are functions for which CanCall(0).
	CanCall(n int) bool
}

var globalfuncs = map[string]Func{
	// constants
	"pi":     constant(pi),
	"e":      constant(func(prec uint) *big.Float { return realexp(big.NewFloat(1), prec) }),
	"inf":    constant(func(prec uint) *big.Float { return newf(prec).SetInf(false) }),
	"degree": constant(degree),
	"ln2":    constant(func(prec uint) *big.Float { return reallog(big.NewFloat(2), prec) }),
	"ln10":   constant(func(prec uint) *big.Float { return reallog(big.NewFloat(10), prec) }),
	"phi":    constant(phi),
	"j":      imagunit{},

	// powers and logarithms
	"exp":   unary(fexp),
	"ln":    unary(clog),
	"log":   logfunc{},
	"log10": unary(log10),
	"sqrt":  unary(func(_ context.Context, x Value, prec uint) (Value, error) { return csqrt(x, prec), nil }),
	"cbrt":  unary(cbrt),
	"power": binary(pow),

	// trigonometry
	"sin":   unary(fsin),
	"cos":   unary(fcos),
	"tan":   unary(ftan),
	"asin":  realunary("asin", asin),
	"acos":  realunary("acos", acos),
	"atan":  realunary("atan", atan),
	"atan2": realbinary("atan2", atan2),
	"sinh":  unary(fsinh),
	"cosh":  unary(fcosh),
	"tanh":  unary(ftanh),
	"hypot": realbinary("hypot", func(_ context.Context, x, y *big.Float, prec uint) (*big.Float, error) { return hypot(x, y, prec), nil }),

	"radians": realunary("radians", func(_ context.Context, x *big.Float, prec uint) (*big.Float, error) {
		return newf(prec).Mul(x, degree(prec+guard)), nil
	}),
	"degrees": realunary("degrees", func(_ context.Context, x *big.Float, prec uint) (*big.Float, error) {
		return newf(prec).Quo(x, degree(prec+guard)), nil
	}),

	// parts and rounding
	"fabs":  unary(func(_ context.Context, x Value, prec uint) (Value, error) { return Value{Re: cabs(x, prec)}, nil }),
	"re":    unary(func(_ context.Context, x Value, prec uint) (Value, error) { return Value{Re: newf(prec).Set(x.Re)}, nil }),
	"im":    unary(func(_ context.Context, x Value, prec uint) (Value, error) { return Value{Re: newf(prec).Set(x.imag(prec))}, nil }),
	"conj":  unary(conj),
	"arg":   unary(carg),
	"floor": unary(parts(floor)),
	"ceil":  unary(parts(ceil)),
	"mpf":   realunary("mpf", func(_ context.Context, x *big.Float, prec uint) (*big.Float, error) { return newf(prec).Set(x), nil }),
	"mpc":   mpc{},
}

// Names returns the sorted names of the default functions and constants.
func Names() []string {
	r := make([]string, 0, len(globalfuncs))
	for k := range globalfuncs {
		r = append(r, k)
	}
	sort.Strings(r)
	return r
}

// constant is a Func that computes a real constant.
type constant func(prec uint) *big.Float

func (f constant) Call(ctx *Context, invoc []Value) (Value, error) {
	return Value{Re: f(ctx.Prec())}, nil
}

func (constant) CanCall(n int) bool {
	return n == 0
}

// imagunit is the Func for the imaginary unit.
type imagunit struct{}

func (imagunit) Call(ctx *Context, invoc []Value) (Value, error) {
	return Value{Re: newf(ctx.Prec()), Im: newf(ctx.Prec()).SetInt64(1)}, nil
}

func (imagunit) CanCall(n int) bool {
	return n == 0
}

// unary is a Func of one real or complex argument. Long computations stop with
// done's error.
type unary func(done context.Context, x Value, prec uint) (Value, error)

func (f unary) Call(ctx *Context, invoc []Value) (Value, error) {
	return f(ctx.done, invoc[0], ctx.Prec())
}

func (unary) CanCall(n int) bool {
	return n == 1
}

// binary is a Func of two real or complex arguments.
type binary func(done context.Context, x, y Value, prec uint) (Value, error)

func (f binary) Call(ctx *Context, invoc []Value) (Value, error) {
	return f(ctx.done, invoc[0], invoc[1], ctx.Prec())
}

func (binary) CanCall(n int) bool {
	return n == 2
}

// realunary is a Func of one real argument.
func realunary(name string, f func(done context.Context, x *big.Float, prec uint) (*big.Float, error)) Func {
	return unary(func(done context.Context, x Value, prec uint) (Value, error) {
		a, err := realarg(name, 1, x)
		if err != nil {
			return Value{}, err
		}
		r, err := f(done, a, prec)
		if err != nil {
			return Value{}, err
		}
		return Value{Re: r}, nil
	})
}

// realbinary is a Func of two real arguments.
func realbinary(name string, f func(done context.Context, x, y *big.Float, prec uint) (*big.Float, error)) Func {
	return binary(func(done context.Context, x, y Value, prec uint) (Value, error) {
		a, err := realarg(name, 1, x)
		if err != nil {
			return Value{}, err
		}
		b, err := realarg(name, 2, y)
		if err != nil {
			return Value{}, err
		}
		r, err := f(done, a, b, prec)
		if err != nil {
			return Value{}, err
		}
		return Value{Re: r}, nil
	})
}

// realarg returns the real part of x, or a DomainError if x has a nonzero
// imaginary part.
func realarg(name string, arg int, x Value) (*big.Float, error) {
	if x.Im != nil && x.Im.Sign() != 0 {
		return nil, &DomainError{X: x.Im, Arg: arg, Func: name, Reason: "complex argument"}
	}
	return x.Re, nil
}

// finite returns a DomainError if either part of x is infinite.
func finite(name string, x Value) error {
	if x.Re.IsInf() {
		return &DomainError{X: x.Re, Arg: 1, Func: name}
	}
	if x.Im != nil && x.Im.IsInf() {
		return &DomainError{X: x.Im, Arg: 1, Func: name}
	}
	return nil
}

// parts applies a real function to each part of x.
func parts(f func(x *big.Float, prec uint) *big.Float) unary {
	return func(_ context.Context, x Value, prec uint) (Value, error) {
		r := Value{Re: f(x.Re, prec)}
		if x.Im != nil {
			r.Im = f(x.Im, prec)
		}
		return r, nil
	}
}

// logfunc is ln(x) with one argument or the base-b logarithm log(x, b) with
// two.
type logfunc struct{}

func (logfunc) Call(ctx *Context, invoc []Value) (Value, error) {
	prec := ctx.Prec()
	if len(invoc) == 1 {
		return clog(ctx.done, invoc[0], prec)
	}
	wp := prec + guard
	x, err := clog(ctx.done, invoc[0], wp)
	if err != nil {
		return Value{}, err
	}
	b, err := clog(ctx.done, invoc[1], wp)
	if err != nil {
		return Value{}, err
	}
	r, err := quo(x, b, wp)
	if err != nil {
		return Value{}, &DomainError{X: invoc[1].Re, Arg: 2, Func: "log"}
	}
	return r.Copy(prec), nil
}

func (logfunc) CanCall(n int) bool {
	return n == 1 || n == 2
}

// mpc builds a complex value from one or two real parts.
type mpc struct{}

func (mpc) Call(ctx *Context, invoc []Value) (Value, error) {
	prec := ctx.Prec()
	re, err := realarg("mpc", 1, invoc[0])
	if err != nil {
		return Value{}, err
	}
	r := Value{Re: newf(prec).Set(re), Im: newf(prec)}
	if len(invoc) == 2 {
		im, err := realarg("mpc", 2, invoc[1])
		if err != nil {
			return Value{}, err
		}
		r.Im.Set(im)
	}
	return r, nil
}

func (mpc) CanCall(n int) bool {
	return n == 1 || n == 2
}

func degree(prec uint) *big.Float {
	r := pi(prec + guard)
	return newf(prec).Quo(r, big.NewFloat(180))
}

func phi(prec uint) *big.Float {
	wp := prec + guard
	r := newf(wp).SetInt64(5)
	r.Sqrt(r)
	r.Add(r, big.NewFloat(1))
	return newf(prec).SetMantExp(r, -1)
}

func fexp(done context.Context, x Value, prec uint) (Value, error) {
	if x.Im != nil && x.Im.IsInf() {
		return Value{}, &DomainError{X: x.Im, Arg: 1, Func: "exp"}
	}
	return cexp(done, x, prec)
}

func log10(done context.Context, x Value, prec uint) (Value, error) {
	wp := prec + guard
	l, err := clog(done, x, wp)
	if err != nil {
		return Value{}, err
	}
	r, _ := quo(l, Value{Re: reallog(big.NewFloat(10), wp)}, wp)
	return r.Copy(prec), nil
}

func cbrt(done context.Context, x Value, prec uint) (Value, error) {
	wp := prec + guard
	third := newf(wp).Quo(big.NewFloat(1), big.NewFloat(3))
	r, err := pow(done, x, Value{Re: third}, wp)
	if err != nil {
		return Value{}, err
	}
	return r.Copy(prec), nil
}

func fsin(done context.Context, x Value, prec uint) (Value, error) {
	if err := finite("sin", x); err != nil {
		return Value{}, err
	}
	return csin(done, x, prec)
}

func fcos(done context.Context, x Value, prec uint) (Value, error) {
	if err := finite("cos", x); err != nil {
		return Value{}, err
	}
	return ccos(done, x, prec)
}

func ftan(done context.Context, x Value, prec uint) (Value, error) {
	if err := finite("tan", x); err != nil {
		return Value{}, err
	}
	return ctan(done, x, prec)
}

// csinhcosh computes sinh z and cosh z from e^z and e^-z.
func csinhcosh(done context.Context, name string, z Value, prec uint) (sinh, cosh Value, err error) {
	if z.Im == nil {
		s, c := sinhcosh(z.Re, prec)
		return Value{Re: s}, Value{Re: c}, nil
	}
	if err := finite(name, z); err != nil {
		return Value{}, Value{}, err
	}
	wp := prec + guard
	a, err := cexp(done, z, wp)
	if err != nil {
		return Value{}, Value{}, err
	}
	b, err := cexp(done, neg(z, wp), wp)
	if err != nil {
		return Value{}, Value{}, err
	}
	half := Value{Re: big.NewFloat(0.5)}
	return mul(sub(a, b, wp), half, prec), mul(add(a, b, wp), half, prec), nil
}

func fsinh(done context.Context, x Value, prec uint) (Value, error) {
	s, _, err := csinhcosh(done, "sinh", x, prec)
	return s, err
}

func fcosh(done context.Context, x Value, prec uint) (Value, error) {
	_, c, err := csinhcosh(done, "cosh", x, prec)
	return c, err
}

func ftanh(done context.Context, x Value, prec uint) (Value, error) {
	if x.Im == nil {
		return Value{Re: tanh(x.Re, prec)}, nil
	}
	wp := prec + guard
	s, c, err := csinhcosh(done, "tanh", x, wp)
	if err != nil {
		return Value{}, err
	}
	r, err := quo(s, c, wp)
	if err != nil {
		return Value{}, &DomainError{X: x.Im, Arg: 1, Func: "tanh"}
	}
	return r.Copy(prec), nil
}

func conj(_ context.Context, x Value, prec uint) (Value, error) {
	r := Value{Re: newf(prec).Set(x.Re)}
	if x.Im != nil {
		r.Im = newf(prec).Neg(x.Im)
	}
	return r, nil
}

func carg(done context.Context, x Value, prec uint) (Value, error) {
	r, err := atan2(done, x.imag(prec), x.Re, prec)
	return Value{Re: r}, err
}

func floor(x *big.Float, prec uint) *big.Float {
	if x.IsInf() || x.IsInt() {
		return newf(prec).Set(x)
	}
	n, _ := x.Int(nil)
	if x.Sign() < 0 {
		n.Sub(n, big.NewInt(1))
	}
	return newf(prec).SetInt(n)
}

func ceil(x *big.Float, prec uint) *big.Float {
	if x.IsInf() || x.IsInt() {
		return newf(prec).Set(x)
	}
	n, _ := x.Int(nil)
	if x.Sign() > 0 {
		n.Add(n, big.NewInt(1))
	}
	return newf(prec).SetInt(n)
}

type monadic struct {
	name string
	f    func(out, in *big.Float) *big.Float
}

func (m monadic) Call(ctx *Context, invoc []Value) (r Value, err error) {
	in, err := realarg(m.name, 1, invoc[0])
	if err != nil {
		return Value{}, err
	}
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		e, ok := p.(error)
		if !ok {
			panic(p)
		}
		var de *DomainError
		if errors.As(e, &de) {
			err = de
			return
		}
		var nan big.ErrNaN
		if errors.As(e, &nan) {
			err = &DomainError{X: in, Arg: 1, Func: m.name, Reason: nan.Error()}
			return
		}
		panic(p)
	}()
	out := newf(ctx.Prec())
	m.f(out, newf(ctx.Prec()).Set(in))
	return Value{Re: out}, nil
}

func (m monadic) CanCall(n int) bool {
	return n == 1
}

// Monadic wraps a real function of one variable into a Func. f must set out to
// its result, to the precision of out; its return value is always ignored. If
// f is called on an argument outside its domain, it should panic with an error
// of type big.ErrNaN or *DomainError, or that unwraps to one. Complex
// arguments with a nonzero imaginary part are rejected before calling f.
func Monadic(name string, f func(out, in *big.Float) *big.Float) Func {
	return monadic{name, f}
}

type niladic struct {
	f func(out *big.Float) *big.Float
}

func (n niladic) Call(ctx *Context, invoc []Value) (Value, error) {
	r := newf(ctx.Prec())
	n.f(r)
	return Value{Re: r}, nil
}

func (n niladic) CanCall(k int) bool {
	return k == 0
}

// Niladic wraps a function of zero variables, generally a function which
// computes a constant, into a Func. f must set out to its result; its return
// value is always ignored. Unlike Monadic, the wrapped function is expected
// never to panic.
func Niladic(f func(out *big.Float) *big.Float) Func {
	return niladic{f}
}

// BigfloatFuncs returns real functions backed directly by package bigfloat,
// for use with ParseFuncs when only real results are wanted. Arguments outside
// the real domain produce DomainErrors instead of complex results.
func BigfloatFuncs() map[string]Func {
	return map[string]Func{
		"exp": Monadic("exp", bigfloat.Exp),
		"ln": Monadic("ln", func(out, in *big.Float) *big.Float {
			if in.Sign() < 0 {
				panic(&DomainError{X: in, Arg: 1, Func: "ln"})
			}
			return bigfloat.Log(out, in)
		}),
		"sqrt": Monadic("sqrt", (*big.Float).Sqrt),
	}
}

// DomainError is an error returned when a function is called on arguments
// outside its domain. DomainError unwraps to big.ErrNaN.
type DomainError struct {
	// X is the out-of-domain argument. It is nil if the failing operation
	// was detected only by package big.
	X *big.Float
	// Arg is the 1-based index of the argument.
	Arg int
	// Func is a name identifying the function.
	Func string
	// Reason is an optional detail.
	Reason string
}

func (err *DomainError) Error() string {
	if err.Func == "/" && err.X != nil && err.X.Sign() == 0 {
		return "division by zero"
	}
	r := "argument outside domain"
	if err.X != nil {
		r = err.X.String() + " outside domain"
	}
	if err.Func != "" {
		r += " of " + err.Func
	}
	if err.Arg > 0 {
		r += " (argument " + strconv.Itoa(err.Arg) + ")"
	}
	if err.Reason != "" {
		r += ": " + err.Reason
	}
	return r
}

func (err *DomainError) Unwrap() error {
	return big.ErrNaN{}
}
