// Package server serves expression evaluation over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/semaphore"

	"github.com/zephyrtronium/mpcalc"
)

// maxBodyBytes limits the size of POST bodies.
const maxBodyBytes = 1 << 20

// Logger is the leveled logger the server writes to.
// *github.com/jcgregorio/logger.Logger satisfies it.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Config configures a Server.
type Config struct {
	// DefaultDigits is the precision used for requests that give none.
	DefaultDigits int
	// MaxDigits is the largest precision a request may ask for.
	MaxDigits int
	// Timeout bounds each evaluation, including the wait for a slot.
	Timeout time.Duration
	// MaxConcurrent is the number of evaluations that may run at once.
	MaxConcurrent int64
	// CacheSize is the number of formatted results to remember.
	CacheSize int
	// Namespace is the prefix with which names are qualified.
	Namespace string
}

// DefaultConfig returns the configuration used by mpcalcd without flags.
func DefaultConfig() Config {
	return Config{
		DefaultDigits: mpcalc.DefaultDigits,
		MaxDigits:     10000,
		Timeout:       10 * time.Second,
		MaxConcurrent: 8,
		CacheSize:     1024,
		Namespace:     mpcalc.DefaultNamespace,
	}
}

// Server evaluates expressions sent over HTTP.
type Server struct {
	cfg    Config
	log    Logger
	sem    *semaphore.Weighted
	cache  *lru.Cache
	reg    *prometheus.Registry
	router chi.Router

	evals     *prometheus.CounterVec
	latency   prometheus.Histogram
	cacheHits prometheus.Counter
}

// New creates a server. Its metrics are registered to a registry of its own,
// served at /metrics.
func New(cfg Config, log Logger) (*Server, error) {
	if cfg.DefaultDigits < 1 || cfg.MaxDigits < cfg.DefaultDigits {
		return nil, errors.Errorf("invalid digits: default %d, max %d", cfg.DefaultDigits, cfg.MaxDigits)
	}
	if !mpcalc.ValidNamespace(cfg.Namespace) {
		return nil, errors.Errorf("invalid namespace %q", cfg.Namespace)
	}
	if cfg.MaxConcurrent < 1 {
		return nil, errors.Errorf("max concurrent evaluations must be positive, not %d", cfg.MaxConcurrent)
	}
	cache, err := lru.New(cfg.CacheSize)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create result cache of size: %d", cfg.CacheSize)
	}
	s := &Server{
		cfg:   cfg,
		log:   log,
		sem:   semaphore.NewWeighted(cfg.MaxConcurrent),
		cache: cache,
		reg:   prometheus.NewRegistry(),
		evals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mpcalc_evaluations_total",
			Help: "Evaluations by outcome.",
		}, []string{"outcome"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mpcalc_evaluation_seconds",
			Help:    "Time spent evaluating expressions that were not cached.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mpcalc_cache_hits_total",
			Help: "Requests answered from the result cache.",
		}),
	}
	if err := s.reg.Register(s.evals); err != nil {
		return nil, errors.Wrap(err, "registering evaluation counter")
	}
	if err := s.reg.Register(s.latency); err != nil {
		return nil, errors.Wrap(err, "registering latency histogram")
	}
	if err := s.reg.Register(s.cacheHits); err != nil {
		return nil, errors.Wrap(err, "registering cache counter")
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/eval", s.getEval)
	r.Post("/eval", s.postEval)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		if _, err := w.Write([]byte("ok")); err != nil {
			s.log.Errorf("writing HTTP response: %s", err)
		}
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	s.router = r
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Registry returns the registry holding the server's metrics.
func (s *Server) Registry() *prometheus.Registry {
	return s.reg
}

// Request is the body of a POST to /eval.
type Request struct {
	Expr   string `json:"expr"`
	Digits int    `json:"digits,omitempty"`
	All    bool   `json:"all,omitempty"`
}

// Response is the body of every response from /eval.
type Response struct {
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
	// Kind classifies errors: bad_request, invalid_character,
	// ambiguous_float, literal, precision, evaluation, or timeout.
	Kind string `json:"kind,omitempty"`
}

func (s *Server) getEval(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := Request{Expr: q.Get("expr")}
	if d := q.Get("digits"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil {
			s.reply(w, http.StatusBadRequest, Response{Error: "digits must be an integer", Kind: "bad_request"})
			return
		}
		req.Digits = n
	}
	if a := q.Get("all"); a != "" {
		all, err := strconv.ParseBool(a)
		if err != nil {
			s.reply(w, http.StatusBadRequest, Response{Error: "all must be a boolean", Kind: "bad_request"})
			return
		}
		req.All = all
	}
	s.eval(w, r, req)
}

func (s *Server) postEval(w http.ResponseWriter, r *http.Request) {
	var req Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		s.reply(w, http.StatusBadRequest, Response{Error: "invalid request body: " + err.Error(), Kind: "bad_request"})
		return
	}
	s.eval(w, r, req)
}

func (s *Server) eval(w http.ResponseWriter, r *http.Request, req Request) {
	if req.Expr == "" {
		s.reply(w, http.StatusBadRequest, Response{Error: "missing expression", Kind: "bad_request"})
		return
	}
	if req.Digits == 0 {
		req.Digits = s.cfg.DefaultDigits
	}
	if req.Digits < 1 || req.Digits > s.cfg.MaxDigits {
		s.evals.WithLabelValues("error").Inc()
		msg := "digits must be between 1 and " + strconv.Itoa(s.cfg.MaxDigits)
		s.reply(w, http.StatusBadRequest, Response{Error: msg, Kind: "precision"})
		return
	}
	key := cacheKey(req)
	if v, ok := s.cache.Get(key); ok {
		s.cacheHits.Inc()
		s.evals.WithLabelValues("cached").Inc()
		s.reply(w, http.StatusOK, Response{Result: v.(string)})
		return
	}

	ctx := r.Context()
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.evals.WithLabelValues("timeout").Inc()
		s.reply(w, http.StatusServiceUnavailable, Response{Error: "too busy: " + err.Error(), Kind: "timeout"})
		return
	}
	defer s.sem.Release(1)

	calc := mpcalc.New(
		mpcalc.Digits(req.Digits),
		mpcalc.AllDigits(req.All),
		mpcalc.Namespace(s.cfg.Namespace),
		mpcalc.Debug(s.log),
	)
	start := time.Now()
	result, err := calc.Calculate(ctx, req.Expr)
	s.latency.Observe(time.Since(start).Seconds())
	if err != nil {
		code, kind := classify(err)
		outcome := "error"
		if kind == "timeout" {
			outcome = "timeout"
		}
		s.evals.WithLabelValues(outcome).Inc()
		s.log.Debugf("evaluating %q: %s", req.Expr, err)
		s.reply(w, code, Response{Error: err.Error(), Kind: kind})
		return
	}
	s.evals.WithLabelValues("ok").Inc()
	s.cache.Add(key, result)
	s.reply(w, http.StatusOK, Response{Result: result})
}

func cacheKey(req Request) string {
	return strconv.Itoa(req.Digits) + "\x00" + strconv.FormatBool(req.All) + "\x00" + req.Expr
}

// classify picks the status code and kind for an evaluation error.
func classify(err error) (int, string) {
	var (
		ic *mpcalc.InvalidCharacterError
		af *mpcalc.AmbiguousFloatError
		lp *mpcalc.LiteralParseError
		pe *mpcalc.PrecisionError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "timeout"
	case errors.As(err, &ic):
		return http.StatusBadRequest, "invalid_character"
	case errors.As(err, &af):
		return http.StatusBadRequest, "ambiguous_float"
	case errors.As(err, &lp):
		return http.StatusBadRequest, "literal"
	case errors.As(err, &pe):
		return http.StatusBadRequest, "precision"
	default:
		return http.StatusBadRequest, "evaluation"
	}
}

func (s *Server) reply(w http.ResponseWriter, code int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Errorf("writing HTTP response: %s", err)
	}
}
