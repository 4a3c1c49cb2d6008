package rate

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimitError is returned when calls are blocked.
type RateLimitError struct {
	Provider string
	Reason   string
	RetryAt  time.Time
}

func (e RateLimitError) Error() string {
	if e.RetryAt.IsZero() {
		return fmt.Sprintf("%s rate limited: %s", e.Provider, e.Reason)
	}
	return fmt.Sprintf("%s rate limited: %s (retry at %s)", e.Provider, e.Reason, e.RetryAt.UTC().Format(time.RFC3339))
}

type Decision struct {
	Allowed bool
	Reason  string
	RetryAt time.Time
}

type bucket struct {
	capacity int
	tokens   float64
	last     time.Time
}

type cacheEntry struct {
	status  int
	header  http.Header
	body    []byte
	expires time.Time
}

// Guard enforces rate limits for a provider.
type Guard struct {
	decl Declaration

	mu       sync.Mutex
	buckets  map[Window]*bucket
	cooldown time.Time
	cache    map[string]cacheEntry
}

// WrapHTTP wraps an http.Client with rate-limit enforcement.
func WrapHTTP(decl Declaration, base *http.Client) *http.Client {
	if base == nil {
		base = &http.Client{}
	}
	client := *base
	transport := client.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	client.Transport = &roundTripper{
		base:  transport,
		guard: NewGuard(decl),
	}
	return &client
}

func NewGuard(decl Declaration) *Guard {
	buckets := make(map[Window]*bucket)
	for window, limit := range decl.Limits() {
		buckets[window] = &bucket{
			capacity: limit,
			tokens:   float64(limit),
			last:     time.Now(),
		}
	}
	return &Guard{
		decl:    decl,
		buckets: buckets,
		cache:   make(map[string]cacheEntry),
	}
}

type roundTripper struct {
	base  http.RoundTripper
	guard *Guard
}

func (rt *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	bodyBytes, err := drainBody(req)
	if err != nil {
		return nil, err
	}

	decision := rt.guard.ShouldCall(time.Now())
	if !decision.Allowed {
		blockedTotal.WithLabelValues(rt.guard.decl.ProviderName(), decision.Reason).Inc()
		if cached := rt.guard.cachedResponse(req, bodyBytes); cached != nil {
			return cached, nil
		}
		return nil, RateLimitError{
			Provider: rt.guard.decl.ProviderName(),
			Reason:   decision.Reason,
			RetryAt:  decision.RetryAt,
		}
	}

	resp, err := rt.base.RoundTrip(req)
	if err != nil {
		return resp, err
	}

	rt.guard.RecordResponse(resp.StatusCode, resp.Header)
	return rt.guard.maybeCacheResponse(req, bodyBytes, resp)
}

func (g *Guard) ShouldCall(now time.Time) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.decl.HasLimits() {
		return Decision{Allowed: false, Reason: "disabled"}
	}

	if !g.cooldown.IsZero() && now.Before(g.cooldown) {
		return Decision{Allowed: false, Reason: "cooldown", RetryAt: g.cooldown}
	}

	for window, b := range g.buckets {
		if b.capacity <= 0 {
			return Decision{Allowed: false, Reason: "disabled"}
		}
		if !consumeToken(b, window.Duration(), now) {
			retryAt := b.last.Add(window.Duration() / time.Duration(b.capacity))
			return Decision{Allowed: false, Reason: "budget", RetryAt: retryAt}
		}
	}

	return Decision{Allowed: true}
}

// RecordResponse observes a provider response and arms the cooldown when
// the provider ordered a back-off.
func (g *Guard) RecordResponse(status int, headers http.Header) {
	g.mu.Lock()
	defer g.mu.Unlock()

	lastStatusGauge.WithLabelValues(g.decl.ProviderName()).Set(float64(status))

	if status != http.StatusTooManyRequests {
		return
	}

	retryAfter := headerSeconds(headers, "Retry-After")
	if retryAfter <= 0 {
		retryAfter = 60
	}
	g.cooldown = time.Now().Add(time.Duration(retryAfter) * time.Second)
	retryAfterGauge.WithLabelValues(g.decl.ProviderName()).Set(float64(retryAfter))
}

func (g *Guard) cachedResponse(req *http.Request, body []byte) *http.Response {
	if g.decl.CacheTTL() <= 0 {
		return nil
	}
	key := cacheKey(req, body)
	g.mu.Lock()
	defer g.mu.Unlock()
	entry, ok := g.cache[key]
	if !ok || time.Now().After(entry.expires) {
		return nil
	}
	return cloneResponse(req, entry.status, entry.header, entry.body)
}

func (g *Guard) maybeCacheResponse(req *http.Request, body []byte, resp *http.Response) (*http.Response, error) {
	if g.decl.CacheTTL() <= 0 {
		return resp, nil
	}
	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()

	clone := cloneResponse(req, resp.StatusCode, resp.Header, buf)

	g.mu.Lock()
	g.cache[cacheKey(req, body)] = cacheEntry{
		status:  resp.StatusCode,
		header:  clone.Header.Clone(),
		body:    buf,
		expires: time.Now().Add(g.decl.CacheTTL()),
	}
	g.mu.Unlock()

	return clone, nil
}

func headerSeconds(h http.Header, key string) int {
	val := h.Get(key)
	if val == "" {
		return -1
	}
	out, err := strconv.Atoi(val)
	if err != nil {
		return -1
	}
	return out
}

func consumeToken(b *bucket, window time.Duration, now time.Time) bool {
	if b.last.IsZero() {
		b.last = now
	}
	elapsed := now.Sub(b.last).Seconds()
	refillRate := float64(b.capacity) / window.Seconds()
	b.tokens = min(float64(b.capacity), b.tokens+elapsed*refillRate)
	b.last = now
	if b.tokens >= 1 {
		b.tokens -= 1
		return true
	}
	return false
}

func drainBody(req *http.Request) ([]byte, error) {
	if req.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}

func cacheKey(req *http.Request, body []byte) string {
	hash := sha256.Sum256(body)
	return req.Method + " " + req.URL.String() + " " + hex.EncodeToString(hash[:])
}

func cloneResponse(req *http.Request, status int, header http.Header, body []byte) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     header.Clone(),
		Body:       io.NopCloser(bytes.NewReader(body)),
		Request:    req,
	}
}
