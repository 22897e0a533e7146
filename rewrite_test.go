package mpcalc_test

import (
	"bytes"
	"testing"

	"github.com/jcgregorio/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zephyrtronium/mpcalc"
)

type fauxSyncWriter struct {
	b *bytes.Buffer
}

func newFauxSyncWriter() *fauxSyncWriter {
	return &fauxSyncWriter{
		b: &bytes.Buffer{},
	}
}

func (f *fauxSyncWriter) Write(p []byte) (n int, err error) {
	return f.b.Write(p)
}

func (f *fauxSyncWriter) Sync() error {
	return nil
}

func (f *fauxSyncWriter) String() string {
	return f.b.String()
}

func TestQualify(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"call", "sin(x)", "mp.sin(mp.x)"},
		{"escaped", `\x + y`, `\x + mp.y`},
		{"escaped-call", `\sin(x)`, `\sin(mp.x)`},
		{"digits", "x1y2", "mp.x1y2"},
		{"underscore", "_a", "mp._a"},
		{"exponent", "2e5 + e", "2e5 + mp.e"},
		{"imaginary", "2j*j", "2j*mp.j"},
		{"qualified", "mp.pi", "mp.mp.pi"},
		{"assign", `\x := pi, \x`, `\x := mp.pi, \x`},
		{"nothing", "1 + 2", "1 + 2"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, mpcalc.Qualify(c.src, "mp"))
		})
	}
}

func TestExtractLiterals(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
		keys []string
	}{
		{"single", "1.5", "${1.5}", []string{"1.5"}},
		{"repeat", "1.5 + 1.5", "${1.5} + ${1.5}", []string{"1.5"}},
		{"negative", "-3.5", "${-3.5}", []string{"-3.5"}},
		{"subtract", "x - 3", "x - ${3}", []string{"3"}},
		{"subtract-tight", "2-3", "${2}-${3}", []string{"2", "3"}},
		{"pow-neg", "2^-3", "${2}^${-3}", []string{"2", "-3"}},
		{"exponent", "1e-3j", "${1e-3j}", []string{"1e-3j"}},
		{"underscores", "1_000_000", "${1_000_000}", []string{"1_000_000"}},
		{"escaped", `\2 + 2`, `\2 + ${2}`, []string{"2"}},
		{"name-digits", "mp.x2 + 2", "mp.x2 + ${2}", []string{"2"}},
		{"call", "mp.sin(0.5)", "mp.sin(${0.5})", []string{"0.5"}},
		{"dangling-exponent", "3e", "3e", nil},
		{"trailing-underscore", "1_", "1_", nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			lits := mpcalc.NewLiterals(64)
			got, err := mpcalc.ExtractLiterals(c.src, lits)
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
			assert.Equal(t, c.keys, lits.Keys())
		})
	}
}

func TestExtractLiteralsError(t *testing.T) {
	_, err := mpcalc.ExtractLiterals("1 + 1e9999999999", mpcalc.NewLiterals(64))
	var lp *mpcalc.LiteralParseError
	require.ErrorAs(t, err, &lp)
	assert.Equal(t, "1e9999999999", lp.Text)
}

func TestStripEscapes(t *testing.T) {
	assert.Equal(t, "x := ${2}, x^2", mpcalc.StripEscapes(`\x := ${2}, \x^\2`))
	assert.Equal(t, "", mpcalc.StripEscapes(`\\`))
}

func TestRewrite(t *testing.T) {
	w := newFauxSyncWriter()
	l := logger.NewFromOptions(&logger.Options{
		SyncWriter:   w,
		IncludeDebug: true,
	})
	r, err := mpcalc.Rewrite(`\x := sin(1.5), \x + 1.5`, "mp", 64, l)
	require.NoError(t, err)
	assert.Equal(t, `\x := sin(1.5), \x + 1.5`, r.Input)
	assert.Equal(t, `\x := mp.sin(1.5), \x + 1.5`, r.Qualified)
	assert.Equal(t, `\x := mp.sin(${1.5}), \x + ${1.5}`, r.Extracted)
	assert.Equal(t, `x := mp.sin(${1.5}), x + ${1.5}`, r.Stripped)
	assert.Equal(t, 1, r.Literals.Len())
	assert.Equal(t, uint(64), r.Literals.Prec())

	logs := w.String()
	for _, want := range []string{"Input:", "Replaced names:", "Replaced numbers:", "Contents of literals:", "Removed escapes:", "x := mp.sin(${1.5}), x + ${1.5}"} {
		assert.Contains(t, logs, want)
	}
}

func TestRewriteNoPrefix(t *testing.T) {
	r, err := mpcalc.Rewrite("sin(2)", "", 64, nil)
	require.NoError(t, err)
	assert.Equal(t, "sin(2)", r.Qualified)
	assert.Equal(t, "sin(${2})", r.Stripped)
}

func TestRewriteErrors(t *testing.T) {
	_, err := mpcalc.Rewrite("2 × 3", "mp", 64, nil)
	var ic *mpcalc.InvalidCharacterError
	require.ErrorAs(t, err, &ic)
	assert.Equal(t, '×', ic.Char)

	_, err = mpcalc.Rewrite("1. + 2", "mp", 64, nil)
	var af *mpcalc.AmbiguousFloatError
	require.ErrorAs(t, err, &af)

	_, err = mpcalc.Rewrite("1e9999999999", "mp", 64, nil)
	var lp *mpcalc.LiteralParseError
	require.ErrorAs(t, err, &lp)
}

func TestRewriteNothingLoggedWithoutDebug(t *testing.T) {
	w := newFauxSyncWriter()
	l := logger.NewFromOptions(&logger.Options{
		SyncWriter: w,
	})
	_, err := mpcalc.Rewrite("1 + 1", "mp", 64, l)
	require.NoError(t, err)
	assert.Empty(t, w.String())
}
