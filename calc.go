package mpcalc

import (
	"context"
	"regexp"
	"strconv"
)

// DefaultDigits is the precision in decimal digits of a Calculator created
// without the Digits option.
const DefaultDigits = 100

// Calculator rewrites, parses, and evaluates expressions. A Calculator is
// immutable once created and is safe for concurrent use, provided its Logger
// and functions are.
type Calculator struct {
	digits int
	all    bool
	prefix string
	funcs  map[string]Func
	trace  Logger
}

// Option configures a Calculator.
type Option func(*Calculator)

// Digits sets the number of significant decimal digits to which expressions
// are evaluated and formatted.
func Digits(n int) Option {
	return func(c *Calculator) {
		c.digits = n
	}
}

// AllDigits sets whether results are formatted with exactly the configured
// number of digits, trailing zeros included.
func AllDigits(all bool) Option {
	return func(c *Calculator) {
		c.all = all
	}
}

// Namespace sets the prefix with which names are qualified. The default is
// DefaultNamespace. An empty prefix disables qualification, so that names
// resolve to functions first and to locals otherwise. A prefix that is not
// empty must be a dotted sequence of identifiers, or every evaluation fails
// with a *NamespaceError.
func Namespace(prefix string) Option {
	return func(c *Calculator) {
		c.prefix = prefix
	}
}

// Funcs adds functions to the namespace or replaces default ones. A nil Func
// removes a name.
func Funcs(fns map[string]Func) Option {
	return func(c *Calculator) {
		if c.funcs == nil {
			c.funcs = make(map[string]Func, len(fns))
		}
		for k, v := range fns {
			c.funcs[k] = v
		}
	}
}

// Debug sets a logger to receive every intermediate stage of evaluation.
func Debug(l Logger) Option {
	return func(c *Calculator) {
		c.trace = l
	}
}

// New creates a Calculator.
func New(opts ...Option) *Calculator {
	c := Calculator{
		digits: DefaultDigits,
		prefix: DefaultNamespace,
		trace:  nopLogger{},
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.trace == nil {
		c.trace = nopLogger{}
	}
	return &c
}

// Digits returns the number of decimal digits the calculator uses.
func (c *Calculator) Digits() int {
	return c.digits
}

// Evaluate computes the value of src. Errors from validation and literal
// extraction are returned unchanged; errors parsing or evaluating the
// rewritten expression are returned as *EvaluationError. If ctx ends before
// evaluation finishes, the cause is ctx's error.
func (c *Calculator) Evaluate(ctx context.Context, src string) (*Result, error) {
	if c.digits < 1 {
		return nil, &PrecisionError{Digits: c.digits}
	}
	if !ValidNamespace(c.prefix) {
		return nil, &NamespaceError{Prefix: c.prefix}
	}
	prec := DigitsToPrec(c.digits)
	rw, err := Rewrite(src, c.prefix, prec, c.trace)
	if err != nil {
		return nil, err
	}
	opts := []ParseOption{Prefix(c.prefix)}
	if c.funcs != nil {
		opts = append(opts, ParseFuncs(c.funcs))
	}
	e, err := ParseString(rw.Stripped, opts...)
	if err != nil {
		return nil, &EvaluationError{Expr: rw.Stripped, Cause: err}
	}
	ev := NewContext(Prec(prec), WithLiterals(rw.Literals), WithContext(ctx))
	r := ev.Eval(e)
	if err := ev.Err(); err != nil {
		return nil, &EvaluationError{Expr: rw.Stripped, Cause: err}
	}
	if err := ctx.Err(); err != nil {
		// The deadline passed during the last step.
		return nil, &EvaluationError{Expr: rw.Stripped, Cause: err}
	}
	c.trace.Debugf("%-25s %s", "Result:", FormatResult(r, c.digits, c.all))
	return r, nil
}

// Calculate evaluates src and formats the result.
func (c *Calculator) Calculate(ctx context.Context, src string) (string, error) {
	r, err := c.Evaluate(ctx, src)
	if err != nil {
		return "", err
	}
	return FormatResult(r, c.digits, c.all), nil
}

// EvaluationError is an error parsing or evaluating a rewritten expression.
type EvaluationError struct {
	// Expr is the rewritten expression.
	Expr string
	// Cause is the underlying error.
	Cause error
}

func (err *EvaluationError) Error() string {
	return "evaluation failed: " + err.Cause.Error()
}

func (err *EvaluationError) Unwrap() error {
	return err.Cause
}

// PrecisionError is an error indicating a number of digits that is not
// positive.
type PrecisionError struct {
	Digits int
}

func (err *PrecisionError) Error() string {
	return "digits must be positive, not " + strconv.Itoa(err.Digits)
}

var namespacePattern = regexp.MustCompile(`^(?:[A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*)?$`)

// ValidNamespace reports whether prefix can qualify names: either empty or
// identifiers joined by dots, like "mp" or "my.ns".
func ValidNamespace(prefix string) bool {
	return namespacePattern.MatchString(prefix)
}

// NamespaceError is an error indicating a namespace prefix that is not a
// dotted sequence of identifiers.
type NamespaceError struct {
	Prefix string
}

func (err *NamespaceError) Error() string {
	return "invalid namespace " + strconv.Quote(err.Prefix)
}
