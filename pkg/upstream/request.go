package upstream

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"
)

// Request describes one HTTP call.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Get builds a GET request for url.
func Get(u string) Request {
	return Request{Method: http.MethodGet, URL: u}
}

// WithHeader returns a copy of r with the header set.
func (r Request) WithHeader(key, value string) Request {
	h := r.Header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set(key, value)
	r.Header = h
	return r
}

func (r Request) host() string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return r.URL
	}
	return u.Host
}

// Options tune a single call.
type Options struct {
	// CacheKey enables memoization when set. Keys must be scoped by every request parameter.
	CacheKey string
	CacheTTL time.Duration
	// RateLimited routes the call through the provider's limiter before each attempt.
	RateLimited bool
	// MaxRetries bounds the total number of attempts made on 429 answers, the first included.
	MaxRetries int
	// Timeout bounds each attempt and the pacing wait before it.
	Timeout time.Duration
	// Accept, when set, vets a 2xx body before it is cached or returned. A rejected body
	// counts as an unavailable source.
	Accept func(body []byte) bool
}

// Result is the outcome of a call: a body when Kind is KindNone, nothing otherwise.
type Result struct {
	Status   int
	Body     []byte
	Kind     ErrorKind
	Attempts int
	Cached   bool
}

// OK reports whether the call produced a usable body.
func (r Result) OK() bool {
	return r.Kind == KindNone && r.Body != nil
}

// DecodeJSON unmarshals a successful result. A failed result or a body that does not fit T
// yields ok=false.
func DecodeJSON[T any](r Result) (T, bool) {
	var out T
	if !r.OK() {
		return out, false
	}
	if err := json.Unmarshal(r.Body, &out); err != nil {
		return out, false
	}
	return out, true
}

// envelope is the {code,msg,data} wrapper used by the indexer and swap APIs.
type envelope[T any] struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data *T     `json:"data"`
}

// envelopeOK reports whether body is an envelope carrying data. Indexers answer some failures,
// rate limiting included, with 200 and a nonzero code.
func envelopeOK(body []byte) bool {
	var env struct {
		Code int             `json:"code"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return false
	}
	return env.Code == 0 && len(env.Data) > 0 && string(env.Data) != "null"
}

// decodeEnvelope unwraps an envelope; a nonzero code or missing data counts as no data.
func decodeEnvelope[T any](r Result) (T, bool) {
	var zero T
	env, ok := DecodeJSON[envelope[T]](r)
	if !ok || env.Code != 0 || env.Data == nil {
		return zero, false
	}
	return *env.Data, true
}
