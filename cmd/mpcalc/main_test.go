package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func runApp(t *testing.T, stdin string, args ...string) (string, string, error) {
	var stdout bytes.Buffer
	stderr := newFauxSyncWriter()
	app := newApp(strings.NewReader(stdin), &stdout, stderr)
	err := app.Run(append([]string{"mpcalc"}, args...))
	return stdout.String(), stderr.String(), err
}

func TestAppExpression(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"add", []string{"-d", "10", "2 + 2"}, "4\n"},
		{"pi", []string{"--digits", "5", "pi"}, "3.1416\n"},
		{"all", []string{"-d", "3", "-a", "2"}, "2.00\n"},
		{"all-long", []string{"-d", "3", "--all-digits", "2"}, "2.00\n"},
		{"complex", []string{"-d", "10", "sqrt(-1)"}, "(0 + 1j)\n"},
		{"tuple", []string{"-d", "10", `\x := 3, \x^2`}, "(3, 9)\n"},
		{"namespace", []string{"-d", "10", "--namespace", "calc", "sin(0) + e^0"}, "1\n"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out, _, err := runApp(t, "", c.args...)
			require.NoError(t, err)
			assert.Equal(t, c.want, out)
		})
	}
}

func TestAppStdin(t *testing.T) {
	out, _, err := runApp(t, "1 + 1\n\n  2 * 3  \n", "-d", "5")
	require.NoError(t, err)
	assert.Equal(t, "2\n6\n", out)
}

func TestAppStdinError(t *testing.T) {
	out, _, err := runApp(t, "1 + 1\n1/0\n2 + 2\n", "-d", "5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `evaluating "1/0"`)
	assert.Equal(t, "2\n", out)
}

func TestAppErrors(t *testing.T) {
	cases := []struct {
		name string
		args []string
		msg  string
	}{
		{"div-zero", []string{"1/0"}, "division by zero"},
		{"open-float", []string{"1."}, "open floats"},
		{"args", []string{"1", "+", "1"}, "quote the expression"},
		{"digits", []string{"-d", "0", "1"}, "digits must be positive"},
		{"real", []string{"--real", "sqrt(-1)"}, "sqrt"},
		{"namespace", []string{"--namespace", "1", "x"}, "invalid namespace"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out, _, err := runApp(t, "", c.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), c.msg)
			assert.Empty(t, out)
		})
	}
}

func TestAppList(t *testing.T) {
	out, _, err := runApp(t, "", "--list")
	require.NoError(t, err)
	names := strings.Split(strings.TrimSpace(out), "\n")
	assert.Contains(t, names, "sin")
	assert.Contains(t, names, "pi")
	assert.Contains(t, names, "mpc")
	assert.NotContains(t, names, "nan")
}

func TestAppDebug(t *testing.T) {
	out, logs, err := runApp(t, "", "-d", "10", "--debug", "sin(1.5)")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	for _, want := range []string{"Input:", "mp.sin(1.5)", "mp.sin(${1.5})", "Result:"} {
		assert.Contains(t, logs, want)
	}

	_, logs, err = runApp(t, "", "-d", "10", "sin(1.5)")
	require.NoError(t, err)
	assert.Empty(t, logs)
}
