package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jcgregorio/logger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	s, err := New(cfg, logger.NewNopLogger())
	require.NoError(t, err)
	return s
}

func get(t *testing.T, s *Server, expr string, params url.Values) (int, Response) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("expr", expr)
	r := httptest.NewRequest("GET", "/eval?"+params.Encode(), nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, r)
	return decode(t, w)
}

func post(t *testing.T, s *Server, body string) (int, Response) {
	r := httptest.NewRequest("POST", "/eval", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.ServeHTTP(w, r)
	return decode(t, w)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) (int, Response) {
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return w.Code, resp
}

func TestEvalGet(t *testing.T) {
	s := newTestServer(t, DefaultConfig())
	code, resp := get(t, s, "2 + 2", url.Values{"digits": {"10"}})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, Response{Result: "4"}, resp)

	code, resp = get(t, s, "2 + 2", url.Values{"digits": {"10"}, "all": {"true"}})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, Response{Result: "4.000000000"}, resp)

	code, resp = get(t, s, "pi", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, strings.HasPrefix(resp.Result, "3.14159265358979"), resp.Result)
}

func TestEvalPost(t *testing.T) {
	s := newTestServer(t, DefaultConfig())
	code, resp := post(t, s, `{"expr": "pi", "digits": 5}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, Response{Result: "3.1416"}, resp)

	code, resp = post(t, s, `{"expr": "\\x := 2, \\x^2", "digits": 3, "all": true}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, Response{Result: "(2.00, 4.00)"}, resp)
}

func TestEvalErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDigits = 200
	s := newTestServer(t, cfg)
	cases := []struct {
		name   string
		expr   string
		params url.Values
		code   int
		kind   string
		msg    string
	}{
		{"missing", "", nil, http.StatusBadRequest, "bad_request", "missing expression"},
		{"digits-nan", "1", url.Values{"digits": {"ten"}}, http.StatusBadRequest, "bad_request", "integer"},
		{"all-nan", "1", url.Values{"all": {"sometimes"}}, http.StatusBadRequest, "bad_request", "boolean"},
		{"digits-high", "1", url.Values{"digits": {"201"}}, http.StatusBadRequest, "precision", "200"},
		{"digits-negative", "1", url.Values{"digits": {"-1"}}, http.StatusBadRequest, "precision", "200"},
		{"div-zero", "1/0", nil, http.StatusBadRequest, "evaluation", "division by zero"},
		{"open-float", "1.", nil, http.StatusBadRequest, "ambiguous_float", "open floats"},
		{"char", "2 % 3", nil, http.StatusBadRequest, "invalid_character", "not allowed"},
		{"literal", "1e9999999999", nil, http.StatusBadRequest, "literal", "1e9999999999"},
		{"name", "nope", nil, http.StatusBadRequest, "evaluation", "mp.nope"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			code, resp := get(t, s, c.expr, c.params)
			assert.Equal(t, c.code, code)
			assert.Equal(t, c.kind, resp.Kind)
			assert.Empty(t, resp.Result)
			assert.Contains(t, resp.Error, c.msg)
		})
	}
}

func TestEvalBadBody(t *testing.T) {
	s := newTestServer(t, DefaultConfig())
	code, resp := post(t, s, `{"expr": `)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "bad_request", resp.Kind)

	code, resp = post(t, s, `{"expr": "`+strings.Repeat("1+", maxBodyBytes)+`1"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "bad_request", resp.Kind)
}

func TestEvalCache(t *testing.T) {
	s := newTestServer(t, DefaultConfig())
	for i := 0; i < 3; i++ {
		code, resp := get(t, s, "sqrt(2)", url.Values{"digits": {"20"}})
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "1.4142135623730950488", resp.Result)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(s.cacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.evals.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.evals.WithLabelValues("cached")))

	// Different digits or formatting is a different entry.
	code, resp := get(t, s, "sqrt(2)", url.Values{"digits": {"5"}})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1.4142", resp.Result)
	code, resp = get(t, s, "sqrt(2)", url.Values{"digits": {"20"}, "all": {"1"}})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1.4142135623730950488", resp.Result)
	assert.Equal(t, 2.0, testutil.ToFloat64(s.cacheHits))
	assert.Equal(t, 3.0, testutil.ToFloat64(s.evals.WithLabelValues("ok")))

	// Errors aren't cached.
	get(t, s, "1/0", nil)
	get(t, s, "1/0", nil)
	assert.Equal(t, 2.0, testutil.ToFloat64(s.evals.WithLabelValues("error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.cacheHits))
}

func TestEvalBusy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConcurrent = 1
	cfg.Timeout = 10 * time.Millisecond
	s := newTestServer(t, cfg)
	require.NoError(t, s.sem.Acquire(context.Background(), 1))
	defer s.sem.Release(1)

	code, resp := get(t, s, "1 + 1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "timeout", resp.Kind)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.evals.WithLabelValues("timeout")))
}

func TestEvalDeadline(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConcurrent = 1
	cfg.MaxDigits = 200000
	cfg.Timeout = 200 * time.Millisecond
	s := newTestServer(t, cfg)

	start := time.Now()
	code, resp := get(t, s, "sin(1/3)", url.Values{"digits": {"200000"}})
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "timeout", resp.Kind)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.evals.WithLabelValues("timeout")))
	// The slot is free again.
	require.True(t, s.sem.TryAcquire(1))
	s.sem.Release(1)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, DefaultConfig())
	w := httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t, DefaultConfig())
	get(t, s, "1 + 1", nil)
	get(t, s, "1 + 1", nil)

	w := httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	b, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	for _, want := range []string{
		`mpcalc_evaluations_total{outcome="ok"} 1`,
		`mpcalc_evaluations_total{outcome="cached"} 1`,
		`mpcalc_cache_hits_total 1`,
		`mpcalc_evaluation_seconds_count 1`,
	} {
		assert.True(t, bytes.Contains(b, []byte(want)), "metrics lack %q:\n%s", want, b)
	}
	n, err := testutil.GatherAndCount(s.Registry(), "mpcalc_evaluation_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNewInvalidConfig(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*Config)
	}{
		{"zero-digits", func(c *Config) { c.DefaultDigits = 0 }},
		{"max-below-default", func(c *Config) { c.MaxDigits = c.DefaultDigits - 1 }},
		{"no-concurrency", func(c *Config) { c.MaxConcurrent = 0 }},
		{"no-cache", func(c *Config) { c.CacheSize = 0 }},
		{"namespace", func(c *Config) { c.Namespace = "1" }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := DefaultConfig()
			c.mod(&cfg)
			_, err := New(cfg, logger.NewNopLogger())
			assert.Error(t, err)
		})
	}
}
