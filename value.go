package mpcalc

import (
	"context"
	"math"
	"math/big"
)

// Value is a real or complex arbitrary-precision number. Im is nil for reals.
// Operations on a complex Value produce complex Values even when the
// imaginary part is zero.
type Value struct {
	Re *big.Float
	Im *big.Float
}

// Real creates a real Value.
func Real(x *big.Float) Value {
	return Value{Re: x}
}

// Complex creates a complex Value.
func Complex(re, im *big.Float) Value {
	return Value{Re: re, Im: im}
}

// IsComplex reports whether v is complex.
func (v Value) IsComplex() bool {
	return v.Im != nil
}

// IsZero reports whether both parts of v are zero.
func (v Value) IsZero() bool {
	return v.Re.Sign() == 0 && (v.Im == nil || v.Im.Sign() == 0)
}

// imag returns the imaginary part of v, which is zero for reals.
func (v Value) imag(prec uint) *big.Float {
	if v.Im == nil {
		return newf(prec)
	}
	return v.Im
}

// Copy returns a deep copy of v rounded to prec.
func (v Value) Copy(prec uint) Value {
	r := Value{Re: newf(prec).Set(v.Re)}
	if v.Im != nil {
		r.Im = newf(prec).Set(v.Im)
	}
	return r
}

// String formats v with default precision.
func (v Value) String() string {
	return FormatValue(v, 0, false)
}

// DigitsToPrec converts a count of decimal digits to a binary precision.
func DigitsToPrec(digits int) uint {
	p := math.Round(float64(digits+1) * math.Log2(10))
	if p < 1 {
		return 1
	}
	return uint(p)
}

func newf(prec uint) *big.Float {
	return new(big.Float).SetPrec(prec)
}

func neg(x Value, prec uint) Value {
	r := Value{Re: newf(prec).Neg(x.Re)}
	if x.Im != nil {
		r.Im = newf(prec).Neg(x.Im)
	}
	return r
}

func add(x, y Value, prec uint) Value {
	r := Value{Re: newf(prec).Add(x.Re, y.Re)}
	if x.Im != nil || y.Im != nil {
		r.Im = newf(prec).Add(x.imag(prec), y.imag(prec))
	}
	return r
}

func sub(x, y Value, prec uint) Value {
	r := Value{Re: newf(prec).Sub(x.Re, y.Re)}
	if x.Im != nil || y.Im != nil {
		r.Im = newf(prec).Sub(x.imag(prec), y.imag(prec))
	}
	return r
}

func mul(x, y Value, prec uint) Value {
	if x.Im == nil && y.Im == nil {
		return Value{Re: newf(prec).Mul(x.Re, y.Re)}
	}
	wp := prec + 16
	a, b := x.Re, x.imag(wp)
	c, d := y.Re, y.imag(wp)
	// (a+bi)(c+di) = (ac-bd) + (ad+bc)i
	re := newf(wp).Mul(a, c)
	re.Sub(re, newf(wp).Mul(b, d))
	im := newf(wp).Mul(a, d)
	im.Add(im, newf(wp).Mul(b, c))
	return Value{Re: newf(prec).Set(re), Im: newf(prec).Set(im)}
}

func quo(x, y Value, prec uint) (Value, error) {
	if y.IsZero() {
		return Value{}, &DomainError{X: y.Re, Arg: 2, Func: "/"}
	}
	if x.Im == nil && y.Im == nil {
		if x.Re.IsInf() && y.Re.IsInf() {
			return Value{}, &DomainError{X: y.Re, Arg: 2, Func: "/"}
		}
		return Value{Re: newf(prec).Quo(x.Re, y.Re)}, nil
	}
	wp := prec + 16
	a, b := x.Re, x.imag(wp)
	c, d := y.Re, y.imag(wp)
	// (a+bi)/(c+di) = ((ac+bd) + (bc-ad)i) / (c²+d²)
	den := newf(wp).Mul(c, c)
	den.Add(den, newf(wp).Mul(d, d))
	re := newf(wp).Mul(a, c)
	re.Add(re, newf(wp).Mul(b, d))
	im := newf(wp).Mul(b, c)
	im.Sub(im, newf(wp).Mul(a, d))
	return Value{Re: newf(prec).Quo(re, den), Im: newf(prec).Quo(im, den)}, nil
}

// maxIntPow is the largest exponent magnitude computed by repeated squaring.
const maxIntPow = 1 << 20

// pow computes x^y.
func pow(done context.Context, x, y Value, prec uint) (Value, error) {
	if y.Im == nil {
		if n, ok := smallInt(y.Re); ok {
			return intpow(done, x, n, prec)
		}
		if n, ok := halfInt(y.Re); ok && finite("^", x) == nil {
			// x^(n+1/2) = x^n sqrt x, which keeps exact zero parts: (-1)^0.5 = j.
			wp := prec + guard
			p, err := intpow(done, x, n, wp)
			if err != nil {
				return Value{}, err
			}
			return mul(p, csqrt(x, wp), wp).Copy(prec), nil
		}
	}
	if x.Im == nil && y.Im == nil {
		switch x.Re.Sign() {
		case 1:
			if x.Re.IsInf() || y.Re.IsInf() {
				return Value{Re: realInfPow(x.Re, y.Re, prec)}, nil
			}
			return Value{Re: realpow(x.Re, y.Re, prec)}, nil
		case 0:
			if y.Re.Sign() < 0 {
				return Value{}, &DomainError{X: x.Re, Arg: 1, Func: "^"}
			}
			return Value{Re: newf(prec)}, nil
		}
		if y.Re.IsInf() {
			return Value{}, &DomainError{X: y.Re, Arg: 2, Func: "^"}
		}
		if n, ok := bigInt(y.Re); ok {
			// Negative base with a huge integer exponent keeps a real result.
			r := realpow(newf(prec).Neg(x.Re), y.Re, prec)
			if n.Bit(0) == 1 {
				r.Neg(r)
			}
			return Value{Re: r}, nil
		}
		// Negative base, fractional exponent: complex result.
	}
	if x.IsZero() {
		if y.Re.Sign() <= 0 {
			return Value{}, &DomainError{X: x.Re, Arg: 1, Func: "^"}
		}
		return Value{Re: newf(prec), Im: newf(prec)}, nil
	}
	wp := prec + 32
	l, err := clog(done, x, wp)
	if err != nil {
		return Value{}, err
	}
	r, err := cexp(done, mul(l, y, wp), wp)
	if err != nil {
		return Value{}, err
	}
	return Value{Re: newf(prec).Set(r.Re), Im: newf(prec).Set(r.imag(wp))}, nil
}

// intpow computes x^n by binary exponentiation.
func intpow(done context.Context, x Value, n int64, prec uint) (Value, error) {
	inv := n < 0
	if inv {
		n = -n
		if x.IsZero() {
			return Value{}, &DomainError{X: x.Re, Arg: 1, Func: "^"}
		}
	}
	wp := prec + 2*uint(bitlen(n)) + 16
	r := Value{Re: newf(wp).SetInt64(1)}
	if x.Im != nil {
		r.Im = newf(wp)
	}
	b := x.Copy(wp)
	for n > 0 {
		if err := done.Err(); err != nil {
			return Value{}, err
		}
		if n&1 != 0 {
			r = mul(r, b, wp)
		}
		n >>= 1
		if n > 0 {
			b = mul(b, b, wp)
		}
	}
	if inv {
		one := Value{Re: newf(wp).SetInt64(1)}
		q, err := quo(one, r, wp)
		if err != nil {
			return Value{}, err
		}
		r = q
	}
	return r.Copy(prec), nil
}

func bitlen(n int64) int {
	k := 0
	for ; n > 0; n >>= 1 {
		k++
	}
	return k
}

// smallInt returns x as an int64 if it is an integer of magnitude at most
// maxIntPow.
func smallInt(x *big.Float) (int64, bool) {
	if x.IsInf() || !x.IsInt() {
		return 0, false
	}
	n, acc := x.Int64()
	if acc != big.Exact || n > maxIntPow || n < -maxIntPow {
		return 0, false
	}
	return n, true
}

// halfInt returns n if x is n + 1/2 for an integer n of magnitude at most
// maxIntPow.
func halfInt(x *big.Float) (int64, bool) {
	if x.IsInf() || x.IsInt() {
		return 0, false
	}
	m, ok := smallInt(new(big.Float).SetMantExp(x, 1))
	if !ok {
		return 0, false
	}
	return (m - 1) / 2, true
}

// bigInt returns x as a big.Int if it is an integer.
func bigInt(x *big.Float) (*big.Int, bool) {
	if x.IsInf() || !x.IsInt() {
		return nil, false
	}
	n, _ := x.Int(nil)
	return n, true
}

// realInfPow handles x^y for positive x where x or y is infinite.
func realInfPow(x, y *big.Float, prec uint) *big.Float {
	r := newf(prec)
	one := big.NewFloat(1)
	switch c := x.Cmp(one); {
	case c == 0:
		return r.SetInt64(1)
	case y.IsInf():
		// x^±inf
		if (c > 0) == (y.Sign() > 0) {
			return r.SetInf(false)
		}
		return r
	default:
		// inf^y
		if y.Sign() > 0 {
			return r.SetInf(false)
		}
		return r
	}
}
