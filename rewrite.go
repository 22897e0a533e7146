package mpcalc

import (
	"strings"
)

// EscapeMarker is the character which, placed immediately before a name or
// number, prevents it from being qualified or extracted.
const EscapeMarker = '\\'

// DefaultNamespace is the prefix with which unescaped names are qualified.
const DefaultNamespace = "mp"

// RefOpen and RefClose enclose the key of a literal table lookup in rewritten
// expressions. Neither may appear in validated input, so every lookup in a
// rewritten expression was produced by ExtractLiterals.
const (
	RefOpen  = "${"
	RefClose = "}"
)

// Logger receives the intermediate results of rewriting and evaluation.
// *github.com/jcgregorio/logger.Logger satisfies it.
type Logger interface {
	Debugf(format string, args ...interface{})
}

// Rewritten holds each stage of a rewritten expression.
type Rewritten struct {
	// Input is the original expression.
	Input string
	// Qualified is Input with unescaped names qualified.
	Qualified string
	// Extracted is Qualified with unescaped numeric literals replaced by
	// literal table lookups.
	Extracted string
	// Stripped is Extracted with escape markers removed. It is the text to
	// evaluate.
	Stripped string
	// Literals is the literal table referenced by Stripped.
	Literals *Literals
}

// Rewrite validates src and runs the rewriting stages in order, stopping at
// the first error. Names are qualified with prefix unless it is empty, and
// literals are parsed to prec bits into a new literal table. If trace is not
// nil, each intermediate result is logged to it.
func Rewrite(src, prefix string, prec uint, trace Logger) (*Rewritten, error) {
	if trace == nil {
		trace = nopLogger{}
	}
	trace.Debugf("%-25s %s", "Input:", src)
	if err := Validate(src); err != nil {
		return nil, err
	}
	r := Rewritten{Input: src, Literals: NewLiterals(prec)}
	r.Qualified = src
	if prefix != "" {
		r.Qualified = Qualify(src, prefix)
	}
	trace.Debugf("%-25s %s", "Replaced names:", r.Qualified)
	s, err := ExtractLiterals(r.Qualified, r.Literals)
	if err != nil {
		return nil, err
	}
	r.Extracted = s
	trace.Debugf("%-25s %s", "Replaced numbers:", r.Extracted)
	trace.Debugf("%-25s\n%s", "Contents of literals:", r.Literals)
	r.Stripped = StripEscapes(r.Extracted)
	trace.Debugf("%-25s %s", "Removed escapes:", r.Stripped)
	return &r, nil
}

// cannotStartAfter reports whether a name or number may not begin immediately
// after c. This keeps the stages from reaching into the middle of names,
// qualified names, numbers, and escaped text.
func cannotStartAfter(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '_' || c == '.' || c == EscapeMarker
}

// before reports whether the byte preceding src[i] forbids a match at i.
func before(src string, i int) bool {
	return i > 0 && cannotStartAfter(src[i-1])
}

// Qualify prefixes each unescaped name in src with prefix and a dot. A name is
// a letter or underscore followed by letters and digits, and it is qualified
// only when it does not follow a letter, digit, underscore, period, or
// EscapeMarker. Everything else is copied unchanged.
func Qualify(src, prefix string) string {
	var b strings.Builder
	b.Grow(len(src))
	for i := 0; i < len(src); {
		c := src[i]
		if !(isLetter(c) || c == '_') || before(src, i) {
			b.WriteByte(c)
			i++
			continue
		}
		j := i + 1
		for j < len(src) && (isLetter(src[j]) || isDigit(src[j])) {
			j++
		}
		b.WriteString(prefix)
		b.WriteByte('.')
		b.WriteString(src[i:j])
		i = j
	}
	return b.String()
}

// ExtractLiterals replaces each unescaped numeric literal in src with a lookup
// of its text in lits, interning the literal if it is new. A literal has the
// form
//
//	-?INT(.INT)?(e-?INT)?j?
//
// where INT is a run of digits and underscores that starts with a digit and
// does not end with an underscore. It must not follow a letter, digit,
// underscore, period, or EscapeMarker, and it must not be followed by a
// letter, digit, underscore, or period.
func ExtractLiterals(src string, lits *Literals) (string, error) {
	var b strings.Builder
	b.Grow(len(src))
	for i := 0; i < len(src); {
		end := scanLiteral(src, i)
		if end < 0 {
			b.WriteByte(src[i])
			i++
			continue
		}
		key := src[i:end]
		if _, err := lits.Intern(key); err != nil {
			return "", err
		}
		b.WriteString(RefOpen)
		b.WriteString(key)
		b.WriteString(RefClose)
		i = end
	}
	return b.String(), nil
}

// scanLiteral returns the end of the numeric literal starting at src[i], or -1
// if there is none.
func scanLiteral(src string, i int) int {
	if before(src, i) {
		return -1
	}
	j := i
	if j < len(src) && src[j] == '-' {
		j++
	}
	j = scanInt(src, j)
	if j < 0 {
		return -1
	}
	if j < len(src) && src[j] == '.' {
		if k := scanInt(src, j+1); k >= 0 {
			j = k
		}
	}
	if j < len(src) && src[j] == 'e' {
		k := j + 1
		if k < len(src) && src[k] == '-' {
			k++
		}
		if k = scanInt(src, k); k >= 0 {
			j = k
		}
	}
	if j < len(src) && src[j] == ImaginaryMarker {
		j++
	}
	if j < len(src) {
		// Any shorter match would end before one of these too, so there is no
		// literal here at all.
		if c := src[j]; isLetter(c) || isDigit(c) || c == '_' || c == '.' {
			return -1
		}
	}
	return j
}

// scanInt returns the end of the digit run starting at src[i], or -1 if there
// is none. Underscores may separate digits but may not end the run.
func scanInt(src string, i int) int {
	if i >= len(src) || !isDigit(src[i]) {
		return -1
	}
	j := i + 1
	for j < len(src) && (isDigit(src[j]) || src[j] == '_') {
		j++
	}
	for src[j-1] == '_' {
		j--
	}
	return j
}

// StripEscapes removes every EscapeMarker from src.
func StripEscapes(src string) string {
	return strings.ReplaceAll(src, string(EscapeMarker), "")
}

type nopLogger struct{}

func (nopLogger) Debugf(format string, args ...interface{}) {}
