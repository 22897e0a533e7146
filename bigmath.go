package mpcalc

import (
	"context"
	"math/big"

	"github.com/zephyrtronium/bigfloat"
)

// guard is the number of extra bits carried through series evaluations.
const guard = 32

// maxReduce is the largest binary exponent of an argument to sin and cos.
// Reducing larger arguments would need π to more bits than is reasonable.
const maxReduce = 1 << 14

// pollEvery is the number of series terms between cancellation checks.
const pollEvery = 16

var unity = big.NewFloat(1)

// poll returns done's error on every pollEvery'th iteration.
func poll(done context.Context, i int) error {
	if i%pollEvery != 0 {
		return nil
	}
	return done.Err()
}

// cmpAbs compares |x| and |y|.
func cmpAbs(x, y *big.Float) int {
	return new(big.Float).Abs(x).Cmp(new(big.Float).Abs(y))
}

// small reports whether |x| < 2^exp, treating zero as small.
func small(x *big.Float, exp int) bool {
	return x.Sign() == 0 || x.MantExp(nil) < exp
}

// pi computes π to prec bits.
func pi(prec uint) *big.Float {
	return bigfloat.Pi(newf(prec))
}

// realexp computes e^x.
func realexp(x *big.Float, prec uint) *big.Float {
	if x.IsInf() {
		if x.Signbit() {
			return newf(prec)
		}
		return newf(prec).SetInf(false)
	}
	wp := prec + guard
	r := bigfloat.Exp(newf(wp), newf(wp).Set(x))
	return newf(prec).Set(r)
}

// reallog computes ln x for x > 0. ln 0 is -inf.
func reallog(x *big.Float, prec uint) *big.Float {
	switch {
	case x.Sign() == 0:
		return newf(prec).SetInf(true)
	case x.IsInf():
		return newf(prec).SetInf(false)
	case x.Cmp(unity) == 0:
		return newf(prec)
	}
	wp := prec + guard
	r := bigfloat.Log(newf(wp), newf(wp).Set(x))
	return newf(prec).Set(r)
}

// realpow computes x^y for finite x > 0.
func realpow(x, y *big.Float, prec uint) *big.Float {
	wp := prec + guard
	r := bigfloat.Pow(newf(wp), newf(wp).Set(x), newf(wp).Set(y))
	return newf(prec).Set(r)
}

// sincos computes sin x and cos x for finite x. Arguments of magnitude
// 2^maxReduce or more give a DomainError with no Func.
func sincos(done context.Context, x *big.Float, prec uint) (sin, cos *big.Float, err error) {
	wp := prec + guard
	e := x.MantExp(nil)
	if e > maxReduce {
		return nil, nil, &DomainError{X: x, Arg: 1, Reason: "too large to reduce"}
	}
	if e > 2 {
		// Reduction of large arguments needs π to more bits than the result.
		wp += uint(e)
	}
	t := newf(wp).Set(x)
	if e > 2 {
		twopi := pi(wp)
		twopi.SetMantExp(twopi, 1)
		if cmpAbs(t, twopi) > 0 {
			q := newf(wp).Quo(t, twopi)
			n := roundInt(q)
			t.Sub(t, newf(wp).Mul(newf(wp).SetInt(n), twopi))
		}
	}
	// Halve k times, evaluate the Taylor series, then double k times.
	const k = 8
	t.SetMantExp(t, -k)
	s := newf(wp).Set(t)
	c := newf(wp).SetInt64(1)
	term := newf(wp).Set(t)
	eps := -int(wp) - 4
	for n := int64(2); ; n++ {
		if err := poll(done, int(n)); err != nil {
			return nil, nil, err
		}
		term.Mul(term, t)
		term.Quo(term, newf(wp).SetInt64(n))
		if small(term, eps) {
			break
		}
		switch n % 4 {
		case 0:
			c.Add(c, term)
		case 1:
			s.Add(s, term)
		case 2:
			c.Sub(c, term)
		case 3:
			s.Sub(s, term)
		}
	}
	one := newf(wp).SetInt64(1)
	for i := 0; i < k; i++ {
		// sin 2t = 2 sin t cos t; cos 2t = 1 - 2 sin² t
		s2 := newf(wp).Mul(s, s)
		s.Mul(s, c)
		s.SetMantExp(s, 1)
		s2.SetMantExp(s2, 1)
		c.Sub(one, s2)
	}
	return newf(prec).Set(s), newf(prec).Set(c), nil
}

// roundInt rounds x to the nearest integer.
func roundInt(x *big.Float) *big.Int {
	h := new(big.Float).SetPrec(x.Prec() + 1).SetFloat64(0.5)
	if x.Signbit() {
		h.Neg(h)
	}
	h.Add(h, x)
	n, _ := h.Int(nil)
	return n
}

// atan computes the arctangent of x.
func atan(done context.Context, x *big.Float, prec uint) (*big.Float, error) {
	if x.IsInf() {
		r := pi(prec)
		r.SetMantExp(r, -1)
		if x.Signbit() {
			r.Neg(r)
		}
		return r, nil
	}
	wp := prec + guard
	t := newf(wp).Set(x)
	one := newf(wp).SetInt64(1)
	// atan x = 2 atan(x / (1 + sqrt(1 + x²))) until |x| < 1/32.
	k := 0
	for !small(t, -4) {
		u := newf(wp).Mul(t, t)
		u.Add(u, one)
		u.Sqrt(u)
		u.Add(u, one)
		t.Quo(t, u)
		k++
		if err := poll(done, k); err != nil {
			return nil, err
		}
	}
	t2 := newf(wp).Mul(t, t)
	sum := newf(wp).Set(t)
	p := newf(wp).Set(t)
	eps := -int(wp) - 4
	for n := int64(3); ; n += 2 {
		if err := poll(done, int(n/2)); err != nil {
			return nil, err
		}
		p.Mul(p, t2)
		term := newf(wp).Quo(p, newf(wp).SetInt64(n))
		if small(term, eps) {
			break
		}
		if (n/2)%2 == 1 {
			sum.Sub(sum, term)
		} else {
			sum.Add(sum, term)
		}
	}
	sum.SetMantExp(sum, k)
	return newf(prec).Set(sum), nil
}

// atan2 computes the angle of the point (x, y).
func atan2(done context.Context, y, x *big.Float, prec uint) (*big.Float, error) {
	wp := prec + guard
	switch {
	case x.Sign() == 0 && y.Sign() == 0:
		return newf(prec), nil
	case x.Sign() == 0:
		r := pi(wp)
		r.SetMantExp(r, -1)
		if y.Signbit() {
			r.Neg(r)
		}
		return newf(prec).Set(r), nil
	}
	r, err := atan(done, newf(wp).Quo(y, x), wp)
	if err != nil {
		return nil, err
	}
	if x.Sign() < 0 {
		if y.Signbit() {
			r.Sub(r, pi(wp))
		} else {
			r.Add(r, pi(wp))
		}
	}
	return newf(prec).Set(r), nil
}

// asin computes the arcsine of x for |x| <= 1.
func asin(done context.Context, x *big.Float, prec uint) (*big.Float, error) {
	wp := prec + guard
	one := newf(wp).SetInt64(1)
	switch cmpAbs(x, one) {
	case 1:
		return nil, &DomainError{X: x, Arg: 1, Func: "asin"}
	case 0:
		r := pi(prec)
		r.SetMantExp(r, -1)
		if x.Signbit() {
			r.Neg(r)
		}
		return r, nil
	}
	// asin x = atan(x / sqrt(1 - x²))
	d := newf(wp).Mul(x, x)
	d.Sub(one, d)
	d.Sqrt(d)
	return atan(done, d.Quo(x, d), prec)
}

// acos computes the arccosine of x for |x| <= 1.
func acos(done context.Context, x *big.Float, prec uint) (*big.Float, error) {
	if cmpAbs(x, unity) > 0 {
		return nil, &DomainError{X: x, Arg: 1, Func: "acos"}
	}
	wp := prec + guard
	r, err := asin(done, x, wp)
	if err != nil {
		return nil, err
	}
	h := pi(wp)
	h.SetMantExp(h, -1)
	return newf(prec).Sub(h, r), nil
}

// sinhcosh computes sinh x and cosh x.
func sinhcosh(x *big.Float, prec uint) (sinh, cosh *big.Float) {
	if x.IsInf() {
		return newf(prec).Set(x), newf(prec).SetInf(false)
	}
	wp := prec + guard
	if e := x.MantExp(nil); e < 0 && x.Sign() != 0 {
		// e^x - e^-x cancels for small x.
		wp += uint(-e)
	}
	a := realexp(x, wp)
	b := newf(wp).Quo(newf(wp).SetInt64(1), a)
	s := newf(wp).Sub(a, b)
	c := newf(wp).Add(a, b)
	s.SetMantExp(s, -1)
	c.SetMantExp(c, -1)
	return newf(prec).Set(s), newf(prec).Set(c)
}

// tanh computes the hyperbolic tangent of x.
func tanh(x *big.Float, prec uint) *big.Float {
	if x.IsInf() {
		return newf(prec).SetInt64(int64(x.Sign()))
	}
	wp := prec + guard
	s, c := sinhcosh(x, wp)
	if c.IsInf() {
		return newf(prec).SetInt64(int64(x.Sign()))
	}
	return newf(prec).Quo(s, c)
}

// hypot computes sqrt(x² + y²).
func hypot(x, y *big.Float, prec uint) *big.Float {
	if x.IsInf() || y.IsInf() {
		return newf(prec).SetInf(false)
	}
	wp := prec + guard
	r := newf(wp).Mul(x, x)
	r.Add(r, newf(wp).Mul(y, y))
	return newf(prec).Sqrt(r)
}

// cexp computes e^z.
func cexp(done context.Context, z Value, prec uint) (Value, error) {
	if z.Im == nil {
		return Value{Re: realexp(z.Re, prec)}, nil
	}
	wp := prec + guard
	s, c, err := sincos(done, z.Im, wp)
	if err != nil {
		return Value{}, err
	}
	m := realexp(z.Re, wp)
	return Value{
		Re: newf(prec).Mul(m, c),
		Im: newf(prec).Mul(m, s),
	}, nil
}

// clog computes the principal natural logarithm of z. Logarithms of negative
// reals are complex.
func clog(done context.Context, z Value, prec uint) (Value, error) {
	if z.Im == nil && z.Re.Sign() >= 0 {
		return Value{Re: reallog(z.Re, prec)}, nil
	}
	if z.IsZero() {
		return Value{Re: newf(prec).SetInf(true), Im: newf(prec)}, nil
	}
	wp := prec + guard
	im := z.imag(wp)
	a, err := atan2(done, im, z.Re, prec)
	if err != nil {
		return Value{}, err
	}
	return Value{Re: reallog(hypot(z.Re, im, wp), prec), Im: a}, nil
}

// csqrt computes the principal square root of z. Roots of negative reals are
// complex.
func csqrt(z Value, prec uint) Value {
	if z.Im == nil {
		if z.Re.Sign() >= 0 {
			return Value{Re: newf(prec).Sqrt(z.Re)}
		}
		r := newf(prec).Neg(z.Re)
		return Value{Re: newf(prec), Im: r.Sqrt(r)}
	}
	if z.IsZero() {
		return Value{Re: newf(prec), Im: newf(prec)}
	}
	wp := prec + guard
	m := hypot(z.Re, z.Im, wp)
	// re = sqrt((|z| + a)/2), im = ±sqrt((|z| - a)/2)
	re := newf(wp).Add(m, z.Re)
	re.SetMantExp(re, -1)
	re.Sqrt(re)
	im := newf(wp).Sub(m, z.Re)
	im.SetMantExp(im, -1)
	im.Sqrt(im)
	if z.Im.Signbit() {
		im.Neg(im)
	}
	return Value{Re: newf(prec).Set(re), Im: newf(prec).Set(im)}
}

// csin computes sin z.
func csin(done context.Context, z Value, prec uint) (Value, error) {
	if z.Im == nil {
		s, _, err := sincos(done, z.Re, prec)
		return Value{Re: s}, err
	}
	wp := prec + guard
	s, c, err := sincos(done, z.Re, wp)
	if err != nil {
		return Value{}, err
	}
	sh, ch := sinhcosh(z.Im, wp)
	// sin(a+bi) = sin a cosh b + i cos a sinh b
	return Value{
		Re: newf(prec).Mul(s, ch),
		Im: newf(prec).Mul(c, sh),
	}, nil
}

// ccos computes cos z.
func ccos(done context.Context, z Value, prec uint) (Value, error) {
	if z.Im == nil {
		_, c, err := sincos(done, z.Re, prec)
		return Value{Re: c}, err
	}
	wp := prec + guard
	s, c, err := sincos(done, z.Re, wp)
	if err != nil {
		return Value{}, err
	}
	sh, ch := sinhcosh(z.Im, wp)
	// cos(a+bi) = cos a cosh b - i sin a sinh b
	im := newf(prec).Mul(s, sh)
	return Value{
		Re: newf(prec).Mul(c, ch),
		Im: im.Neg(im),
	}, nil
}

// ctan computes tan z.
func ctan(done context.Context, z Value, prec uint) (Value, error) {
	wp := prec + guard
	s, err := csin(done, z, wp)
	if err != nil {
		return Value{}, err
	}
	c, err := ccos(done, z, wp)
	if err != nil {
		return Value{}, err
	}
	r, err := quo(s, c, wp)
	if err != nil {
		return Value{}, &DomainError{X: z.Re, Arg: 1, Func: "tan"}
	}
	return r.Copy(prec), nil
}

// cabs computes |z|.
func cabs(z Value, prec uint) *big.Float {
	if z.Im == nil {
		return newf(prec).Abs(z.Re)
	}
	return hypot(z.Re, z.Im, prec)
}
