package mpcalc

import (
	"math/big"
	"strconv"
	"strings"
)

// FormatValue formats v to the given number of significant decimal digits.
// If digits is not positive, v is formatted with the fewest digits that
// identify it at its precision. By default trailing zeros are dropped and
// integers print without a decimal point. If all is true, exactly digits
// significant digits are printed, trailing zeros included, in fixed notation
// when the decimal exponent lies strictly between min(-digits/3, -5) and
// digits and in scientific notation otherwise. Complex values are formatted as
// (re + imj).
func FormatValue(v Value, digits int, all bool) string {
	if v.Re == nil {
		return "<nil>"
	}
	if v.Im == nil {
		return formatReal(v.Re, digits, all)
	}
	im := v.Im
	op := " + "
	if im.Sign() < 0 {
		im = new(big.Float).Neg(im)
		op = " - "
	}
	return "(" + formatReal(v.Re, digits, all) + op + formatReal(im, digits, all) + string(ImaginaryMarker) + ")"
}

// FormatResult formats each value of r with FormatValue. A result with other
// than one value is formatted as a parenthesized, comma-separated tuple.
func FormatResult(r *Result, digits int, all bool) string {
	if !r.Tuple() {
		return FormatValue(r.Value(), digits, all)
	}
	var b strings.Builder
	b.WriteByte('(')
	for i, v := range r.Values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(FormatValue(v, digits, all))
	}
	b.WriteByte(')')
	return b.String()
}

func formatReal(x *big.Float, digits int, all bool) string {
	if x.Sign() == 0 {
		// No negative zero.
		x = new(big.Float)
	}
	if x.IsInf() {
		if x.Signbit() {
			return "-inf"
		}
		return "+inf"
	}
	if !all || digits <= 0 {
		if digits <= 0 {
			digits = -1
		}
		return exponent(x.Text('g', digits))
	}
	// Decide the notation from the exponent after rounding to digits.
	s := x.Text('e', digits-1)
	k := strings.IndexByte(s, 'e')
	e, _ := strconv.Atoi(s[k+1:])
	lo := -digits / 3
	if lo > -5 {
		lo = -5
	}
	if e <= lo || e >= digits {
		return exponent(s)
	}
	r := x.Text('f', digits-1-e)
	if !strings.ContainsRune(r, '.') {
		r += ".0"
	}
	return r
}

// exponent rewrites the exponent of a formatted number without leading zeros,
// e.g. 1.5e+05 as 1.5e+5.
func exponent(s string) string {
	k := strings.IndexByte(s, 'e')
	if k < 0 {
		return s
	}
	e, err := strconv.Atoi(s[k+1:])
	if err != nil {
		return s
	}
	sign := "+"
	if e < 0 {
		sign = "-"
		e = -e
	}
	return s[:k] + "e" + sign + strconv.Itoa(e)
}
