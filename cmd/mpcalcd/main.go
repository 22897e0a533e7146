// Command mpcalcd serves expression evaluation over HTTP.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/jcgregorio/logger"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/zephyrtronium/mpcalc/server"
)

// flag names
const (
	portFlagName          = "port"
	digitsFlagName        = "digits"
	maxDigitsFlagName     = "max-digits"
	timeoutFlagName       = "timeout"
	maxConcurrentFlagName = "max-concurrent"
	cacheSizeFlagName     = "cache-size"
	namespaceFlagName     = "namespace"
	debugFlagName         = "debug"
)

func main() {
	def := server.DefaultConfig()
	app := &cli.App{
		Name:  "mpcalcd",
		Usage: "serve arbitrary-precision expression evaluation over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    portFlagName,
				Value:   ":8000",
				Usage:   "HTTP service address (e.g., ':8000')",
				EnvVars: []string{"MPCALCD_PORT"},
			},
			&cli.IntFlag{
				Name:    digitsFlagName,
				Value:   def.DefaultDigits,
				Usage:   "Digits for requests that do not give any.",
				EnvVars: []string{"MPCALCD_DIGITS"},
			},
			&cli.IntFlag{
				Name:    maxDigitsFlagName,
				Value:   def.MaxDigits,
				Usage:   "Largest number of digits a request may ask for.",
				EnvVars: []string{"MPCALCD_MAX_DIGITS"},
			},
			&cli.DurationFlag{
				Name:    timeoutFlagName,
				Value:   def.Timeout,
				Usage:   "Time limit for each evaluation. Zero means none.",
				EnvVars: []string{"MPCALCD_TIMEOUT"},
			},
			&cli.Int64Flag{
				Name:    maxConcurrentFlagName,
				Value:   def.MaxConcurrent,
				Usage:   "Number of evaluations that may run at once.",
				EnvVars: []string{"MPCALCD_MAX_CONCURRENT"},
			},
			&cli.IntFlag{
				Name:    cacheSizeFlagName,
				Value:   def.CacheSize,
				Usage:   "Number of results to cache.",
				EnvVars: []string{"MPCALCD_CACHE_SIZE"},
			},
			&cli.StringFlag{
				Name:    namespaceFlagName,
				Value:   def.Namespace,
				Usage:   "Prefix with which unescaped names are qualified.",
				EnvVars: []string{"MPCALCD_NAMESPACE"},
			},
			&cli.BoolFlag{
				Name:    debugFlagName,
				Usage:   "Log every stage of every evaluation.",
				EnvVars: []string{"MPCALCD_DEBUG"},
			},
		},
		Action: func(c *cli.Context) error {
			l := logger.NewFromOptions(&logger.Options{
				SyncWriter:   os.Stderr,
				IncludeDebug: c.Bool(debugFlagName),
			})
			cfg := server.Config{
				DefaultDigits: c.Int(digitsFlagName),
				MaxDigits:     c.Int(maxDigitsFlagName),
				Timeout:       c.Duration(timeoutFlagName),
				MaxConcurrent: c.Int64(maxConcurrentFlagName),
				CacheSize:     c.Int(cacheSizeFlagName),
				Namespace:     c.String(namespaceFlagName),
			}
			srv, err := server.New(cfg, l)
			if err != nil {
				return errors.Wrap(err, "creating server")
			}
			return serve(c.Context, c.String(portFlagName), srv, l)
		},
	}
	if err := app.Run(os.Args); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// serve runs h on addr until interrupted.
func serve(ctx context.Context, addr string, h http.Handler, l *logger.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	hs := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		errc <- hs.ListenAndServe()
	}()
	l.Infof("Ready to serve on %s", addr)
	select {
	case err := <-errc:
		return errors.Wrap(err, "serving")
	case <-ctx.Done():
	}
	l.Infof("Shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return errors.Wrap(hs.Shutdown(sctx), "shutting down")
}
