package mpcalc

import (
	"strconv"
	"strings"
	"unicode"
)

// Punctuation contains the non-alphanumeric, non-space runes allowed in an
// expression.
const Punctuation = `_:=\().+-/*^&|,[]`

// allowed reports whether r may appear in an expression.
func allowed(r rune) bool {
	switch {
	case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', '0' <= r && r <= '9':
		return true
	case unicode.IsSpace(r):
		return true
	default:
		return strings.ContainsRune(Punctuation, r)
	}
}

// Validate checks that src contains only allowed characters and no open
// floats, i.e. no decimal points without digits on both sides. The first
// violation is reported as an *InvalidCharacterError or an
// *AmbiguousFloatError. Characters are checked over the whole input before
// any literal is.
func Validate(src string) error {
	col := 0
	for _, r := range src {
		col++
		if !allowed(r) {
			return &InvalidCharacterError{Char: r, Col: col}
		}
	}
	// Every rune is now ASCII or whitespace, so bytes are enough to find
	// digits and dots.
	col = 0
	for i, r := range src {
		col++
		if r != '.' {
			continue
		}
		before := i > 0 && isDigit(src[i-1])
		after := i+1 < len(src) && isDigit(src[i+1])
		switch {
		case before && !after:
			// 123.
			return &AmbiguousFloatError{Col: col - 1, Text: src[i-1 : i+1]}
		case !before && after:
			// .123
			return &AmbiguousFloatError{Col: col, Text: src[i : i+2]}
		}
	}
	return nil
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isLetter(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

// InvalidCharacterError is an error indicating a character that may not appear
// in an expression. It implements InputError.
type InvalidCharacterError struct {
	// Char is the disallowed character.
	Char rune
	// Col is the position of the character in runes.
	Col int
}

func (err *InvalidCharacterError) Error() string {
	return errpos(err.Col, "character not allowed: "+strconv.QuoteRune(err.Char))
}

func (err *InvalidCharacterError) Pos() int {
	return err.Col
}

// AmbiguousFloatError is an error indicating an open float such as "123." or
// ".123". It implements InputError.
type AmbiguousFloatError struct {
	// Col is the position of the first rune of Text.
	Col int
	// Text is the digit and decimal point that form the open float.
	Text string
}

func (err *AmbiguousFloatError) Error() string {
	return errpos(err.Col, "open floats ('123.' or '.123') are not allowed: "+strconv.Quote(err.Text))
}

func (err *AmbiguousFloatError) Pos() int {
	return err.Col
}
