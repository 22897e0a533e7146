package mpcalc

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// ImaginaryMarker is the suffix that makes a numeric literal imaginary.
const ImaginaryMarker = 'j'

// Literals is a table of numeric literals extracted from an expression, keyed
// by their exact source text. A Literals belongs to a single evaluation; it is
// not safe for concurrent use.
type Literals struct {
	prec uint
	keys []string
	vals map[string]Value
}

// NewLiterals creates an empty literal table that parses values to prec bits.
func NewLiterals(prec uint) *Literals {
	return &Literals{prec: prec, vals: make(map[string]Value)}
}

// Intern returns the value for the literal text key, parsing and storing it
// if it is not already in the table.
func (l *Literals) Intern(key string) (Value, error) {
	if v, ok := l.vals[key]; ok {
		return v, nil
	}
	v, err := ParseLiteral(key, l.prec)
	if err != nil {
		return Value{}, err
	}
	l.keys = append(l.keys, key)
	l.vals[key] = v
	return v, nil
}

// Lookup returns the value stored for key.
func (l *Literals) Lookup(key string) (Value, bool) {
	v, ok := l.vals[key]
	return v, ok
}

// Keys returns the literal texts in the order they were first interned.
func (l *Literals) Keys() []string {
	return append(([]string)(nil), l.keys...)
}

// Len returns the number of distinct literals in the table.
func (l *Literals) Len() int {
	return len(l.keys)
}

// Prec returns the precision to which literals are parsed.
func (l *Literals) Prec() uint {
	return l.prec
}

// String renders the table with one row per literal.
func (l *Literals) String() string {
	var b strings.Builder
	t := tablewriter.NewWriter(&b)
	t.SetHeader([]string{"Literal", "Value"})
	t.SetAutoFormatHeaders(false)
	for _, k := range l.keys {
		t.Append([]string{k, FormatValue(l.vals[k], 0, false)})
	}
	t.Render()
	return b.String()
}

// ParseLiteral parses the text of a numeric literal to prec bits. Underscore
// separators are ignored, and a trailing ImaginaryMarker produces a complex
// value with zero real part.
func ParseLiteral(text string, prec uint) (Value, error) {
	s := strings.ReplaceAll(text, "_", "")
	imag := false
	if n := len(s); n > 0 && s[n-1] == ImaginaryMarker {
		s = s[:n-1]
		imag = true
	}
	x, _, err := new(big.Float).SetPrec(prec).Parse(s, 10)
	if err != nil {
		return Value{}, &LiteralParseError{Text: text, Err: err}
	}
	if imag {
		return Value{Re: newf(prec), Im: x}, nil
	}
	return Value{Re: x}, nil
}

// LiteralParseError is an error indicating a numeric literal that has the form
// of a number but cannot be represented, e.g. because its exponent overflows.
type LiteralParseError struct {
	// Text is the literal as it appeared in the expression.
	Text string
	// Err is the error from the number parser.
	Err error
}

func (err *LiteralParseError) Error() string {
	return "invalid numeric literal " + strconv.Quote(err.Text) + ": " + err.Err.Error()
}

func (err *LiteralParseError) Unwrap() error {
	return err.Err
}
