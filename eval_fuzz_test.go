//go:build go1.18
// +build go1.18

package mpcalc_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/zephyrtronium/mpcalc"
)

func FuzzEval(f *testing.F) {
	f.Add("x")
	f.Add("y")
	f.Add("x := 2, x^-x")
	f.Add("1Ã—2")
	f.Fuzz(func(t *testing.T, s string) {
		mpcalc.EvalString(s, mpcalc.SetVar("x", mpcalc.Real(new(big.Float))))
	})
}

func FuzzCalculate(f *testing.F) {
	f.Add("2 + 2")
	f.Add(`\x := sqrt(-4), \x*j`)
	f.Add("1.")
	f.Add("sin(1e-3j)")
	calc := mpcalc.New(mpcalc.Digits(20))
	f.Fuzz(func(t *testing.T, s string) {
		calc.Calculate(context.Background(), s)
	})
}
