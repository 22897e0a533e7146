// Package mpcalc implements an arbitrary-precision calculator.
//
// An expression is first rewritten: unescaped names are qualified with a
// namespace prefix, so "sin(x)" becomes "mp.sin(mp.x)", and numeric literals
// are moved into a literal table, so "1.5 + 1.5" becomes "${1.5} + ${1.5}"
// with a single table entry for "1.5". A backslash before a name or number
// opts it out of rewriting; "\x := 2, \x^2" binds and uses a local x.
//
// The rewritten text is then parsed with a small fixed grammar and evaluated
// at the requested precision. Nothing in the input is ever handed to a general
// purpose evaluator: names resolve either to the namespace's functions and
// constants or to locals bound with ":=".
//
// Literal tables and precision belong to a single evaluation, so a Calculator
// may be shared by any number of goroutines.
//
package mpcalc
