// Command mpcalc evaluates an expression to a given number of digits.
package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jcgregorio/logger"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/zephyrtronium/mpcalc"
)

// flag names
const (
	digitsFlagName    = "digits"
	allFlagName       = "all"
	debugFlagName     = "debug"
	timeoutFlagName   = "timeout"
	namespaceFlagName = "namespace"
	realFlagName      = "real"
	listFlagName      = "list"
)

const description = `Calculates an expression with a given number of digits, by default 100.

All names are qualified with "mp." and all numbers are converted to
arbitrary-precision reals or complex numbers before evaluation. Names and
numbers can be escaped with backslashes to prevent this, for example to bind
a local variable: \x := 2, \x^2

With no expression, each line of standard input is evaluated separately.`

func newApp(stdin io.Reader, stdout io.Writer, stderr logger.SyncWriter) *cli.App {
	return &cli.App{
		Name:        "mpcalc",
		Usage:       "arbitrary-precision calculator",
		UsageText:   "mpcalc [options] [EXPRESSION]",
		Description: description,
		Writer:      stdout,
		ErrWriter:   stderr,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    digitsFlagName,
				Aliases: []string{"d"},
				Value:   mpcalc.DefaultDigits,
				Usage:   "How many digits to calculate the result with.",
			},
			&cli.BoolFlag{
				Name:    allFlagName,
				Aliases: []string{"a", "all-digits"},
				Usage:   "Print all digits, including trailing zeros.",
			},
			&cli.BoolFlag{
				Name:  debugFlagName,
				Usage: "Print debug output.",
			},
			&cli.DurationFlag{
				Name:  timeoutFlagName,
				Usage: "Give up on an evaluation after this long. Zero means never.",
			},
			&cli.StringFlag{
				Name:  namespaceFlagName,
				Value: mpcalc.DefaultNamespace,
				Usage: "Prefix with which unescaped names are qualified.",
			},
			&cli.BoolFlag{
				Name:  realFlagName,
				Usage: "Reject complex results of exp, ln, and sqrt instead of computing them.",
			},
			&cli.BoolFlag{
				Name:  listFlagName,
				Usage: "List the names in the namespace and exit.",
			},
		},
		Action: func(c *cli.Context) error {
			if c.Bool(listFlagName) {
				for _, name := range mpcalc.Names() {
					if _, err := io.WriteString(stdout, name+"\n"); err != nil {
						return err
					}
				}
				return nil
			}
			if c.NArg() > 1 {
				return errors.Errorf("expected one expression, got %d; quote the expression", c.NArg())
			}
			l := logger.NewFromOptions(&logger.Options{
				SyncWriter:   stderr,
				IncludeDebug: c.Bool(debugFlagName),
			})
			opts := []mpcalc.Option{
				mpcalc.Digits(c.Int(digitsFlagName)),
				mpcalc.AllDigits(c.Bool(allFlagName)),
				mpcalc.Namespace(c.String(namespaceFlagName)),
				mpcalc.Debug(l),
			}
			if c.Bool(realFlagName) {
				opts = append(opts, mpcalc.Funcs(mpcalc.BigfloatFuncs()))
			}
			calc := mpcalc.New(opts...)
			timeout := c.Duration(timeoutFlagName)
			if c.NArg() == 1 {
				return run(c.Context, calc, timeout, c.Args().First(), stdout)
			}
			lines := bufio.NewScanner(stdin)
			for lines.Scan() {
				line := strings.TrimSpace(lines.Text())
				if line == "" {
					continue
				}
				if err := run(c.Context, calc, timeout, line, stdout); err != nil {
					return err
				}
			}
			return errors.Wrap(lines.Err(), "reading expressions")
		},
	}
}

// run evaluates a single expression and prints its result.
func run(ctx context.Context, calc *mpcalc.Calculator, timeout time.Duration, expr string, stdout io.Writer) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	r, err := calc.Calculate(ctx, expr)
	if err != nil {
		return errors.Wrapf(err, "evaluating %q", expr)
	}
	_, err = io.WriteString(stdout, r+"\n")
	return err
}

func main() {
	if err := newApp(os.Stdin, os.Stdout, os.Stderr).Run(os.Args); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
