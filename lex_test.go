package mpcalc

import (
	"strings"
	"testing"
)

func TestLex(t *testing.T) {
	cases := []struct {
		src    string
		tokens []lexToken
		errs   int
	}{
		// spaces
		{"", nil, 0},
		{" \t \r\n ", nil, 0},
		// numbers
		{"0", []lexToken{{text: "0", kind: tokenNum, pos: 1}}, 0},
		{"9876543210", []lexToken{{text: "9876543210", kind: tokenNum, pos: 1}}, 0},
		{"1 0", []lexToken{{text: "1", kind: tokenNum, pos: 1}, {text: "0", kind: tokenNum, pos: 3}}, 0},
		{"1.0", []lexToken{{text: "1.0", kind: tokenNum, pos: 1}}, 0},
		{"-1", []lexToken{{text: "-", kind: tokenOp, pos: 1}, {text: "1", kind: tokenNum, pos: 2}}, 0},
		{"1e1", []lexToken{{text: "1e1", kind: tokenNum, pos: 1}}, 0},
		{"1e", []lexToken{{pos: 1}}, 1},
		{"1e+1", []lexToken{{text: "1e+1", kind: tokenNum, pos: 1}}, 0},
		{"1e-1", []lexToken{{text: "1e-1", kind: tokenNum, pos: 1}}, 0},
		{"1.1.1", []lexToken{{pos: 1}, {text: "1", kind: tokenNum, pos: 5}}, 1},
		{"1.0e1", []lexToken{{text: "1.0e1", kind: tokenNum, pos: 1}}, 0},
		{"1_000", []lexToken{{text: "1_000", kind: tokenNum, pos: 1}}, 0},
		{"2j", []lexToken{{text: "2j", kind: tokenNum, pos: 1}}, 0},
		{"1.5e-3j", []lexToken{{text: "1.5e-3j", kind: tokenNum, pos: 1}}, 0},
		{"2jj", []lexToken{{pos: 1}}, 1},
		{"1e_1", []lexToken{{pos: 1}, {text: "1", kind: tokenNum, pos: 4}}, 1},
		{".", []lexToken{{pos: 1}}, 1},
		{"1+0", []lexToken{{text: "1", kind: tokenNum, pos: 1}, {text: "+", kind: tokenOp, pos: 2}, {text: "0", kind: tokenNum, pos: 3}}, 0},
		{"1*0", []lexToken{{text: "1", kind: tokenNum, pos: 1}, {text: "*", kind: tokenOp, pos: 2}, {text: "0", kind: tokenNum, pos: 3}}, 0},
		{"(1)", []lexToken{{text: "(", kind: tokenOpen, pos: 1}, {text: "1", kind: tokenNum, pos: 2}, {text: ")", kind: tokenClose, pos: 3}}, 0},
		{"1a", []lexToken{{pos: 1}}, 1},
		// literal references
		{"${1.5}", []lexToken{{text: "1.5", kind: tokenRef, pos: 1}}, 0},
		{"${-2j}", []lexToken{{text: "-2j", kind: tokenRef, pos: 1}}, 0},
		{"${1}+${2}", []lexToken{{text: "1", kind: tokenRef, pos: 1}, {text: "+", kind: tokenOp, pos: 5}, {text: "2", kind: tokenRef, pos: 6}}, 0},
		{"${}", []lexToken{{pos: 1}}, 1},
		{"${1", []lexToken{{pos: 1}}, 1},
		// identifiers
		{"e", []lexToken{{text: "e", kind: tokenIdent, pos: 1}}, 0},
		{"e1", []lexToken{{text: "e1", kind: tokenIdent, pos: 1}}, 0},
		{"mp.sin", []lexToken{{text: "mp.sin", kind: tokenIdent, pos: 1}}, 0},
		{"_1234_", []lexToken{{text: "_1234_", kind: tokenIdent, pos: 1}}, 0},
		{"e(", []lexToken{{text: "e", kind: tokenIdent, pos: 1}, {text: "(", kind: tokenOpen, pos: 2}}, 0},
		// operators
		{"+", []lexToken{{text: "+", kind: tokenOp, pos: 1}}, 0},
		{"++", []lexToken{{text: "+", kind: tokenOp, pos: 1}, {text: "+", kind: tokenOp, pos: 2}}, 0},
		{"a--b", []lexToken{{text: "a", kind: tokenIdent, pos: 1}, {text: "-", kind: tokenOp, pos: 2}, {text: "-", kind: tokenOp, pos: 3}, {text: "b", kind: tokenIdent, pos: 4}}, 0},
		{"**", []lexToken{{text: "**", kind: tokenOp, pos: 1}}, 0},
		{"* *", []lexToken{{text: "*", kind: tokenOp, pos: 1}, {text: "*", kind: tokenOp, pos: 3}}, 0},
		{"x:=1", []lexToken{{text: "x", kind: tokenIdent, pos: 1}, {text: ":=", kind: tokenOp, pos: 2}, {text: "1", kind: tokenNum, pos: 4}}, 0},
		{":", []lexToken{{text: ":", kind: tokenOp, pos: 1}}, 0},
		{"=", []lexToken{{text: "=", kind: tokenOp, pos: 1}}, 0},
		{"&|", []lexToken{{text: "&", kind: tokenOp, pos: 1}, {text: "|", kind: tokenOp, pos: 2}}, 0},
		// brackets and separators
		{"()", []lexToken{{text: "(", kind: tokenOpen, pos: 1}, {text: ")", kind: tokenClose, pos: 2}}, 0},
		{"[]", []lexToken{{text: "[", kind: tokenOpen, pos: 1}, {text: "]", kind: tokenClose, pos: 2}}, 0},
		{"a,b", []lexToken{{text: "a", kind: tokenIdent, pos: 1}, {text: ",", kind: tokenSep, pos: 2}, {text: "b", kind: tokenIdent, pos: 3}}, 0},
		// erroneous symbols
		{"{", []lexToken{{pos: 1}}, 1},
		{"$", []lexToken{{pos: 1}}, 1},
		{"a$", []lexToken{{text: "a", kind: tokenIdent, pos: 1}, {pos: 2}}, 1},
		{"$a", []lexToken{{pos: 1}}, 1},
		{"0$", []lexToken{{pos: 1}}, 1},
		{"$$", []lexToken{{pos: 1}}, 1},
	}

	for _, c := range cases {
		scan := lex(strings.NewReader(c.src))
		errs := c.errs
		for _, want := range c.tokens {
			got, err := scan.next()
			if got.kind == tokenEOF {
				t.Errorf("scanning %q: expected token %v but got EOF", c.src, want)
				break
			}
			if got != want {
				t.Errorf("scanning %q: want %v, got %v", c.src, want, got)
			}
			if err != nil {
				if _, ok := err.(*LexError); !ok {
					t.Errorf("scanning %q: wrong error type %T", c.src, err)
				}
				if errs > 0 {
					errs--
					continue
				}
				t.Errorf("scanning %q: unexpected error %v", c.src, err)
			}
		}
		got, err := scan.next()
		if got.kind != tokenEOF || err != nil {
			t.Errorf("scanning %q: extra token %v with error: %v", c.src, got, err)
		}
		if errs > 0 {
			t.Errorf("scanning %q: not enough errors", c.src)
		}
	}
}

func TestLexErrorPos(t *testing.T) {
	scan := lex(strings.NewReader("1 + 2x"))
	for {
		_, err := scan.next()
		if err == nil {
			continue
		}
		lerr, ok := err.(*LexError)
		if !ok {
			t.Fatalf("wrong error type %T: %v", err, err)
		}
		if lerr.Kind != "number" {
			t.Errorf("wrong kind %q", lerr.Kind)
		}
		if lerr.Pos() != 7 {
			t.Errorf("wrong position %d", lerr.Pos())
		}
		return
	}
}
