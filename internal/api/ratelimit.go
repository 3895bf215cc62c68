package api

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Limit is a token bucket: Rate tokens per second, at most Burst held.
type Limit struct {
	Rate  float64
	Burst int
}

// DefaultLimits are keyed by "METHOD /template" for HTTP routes and by full
// method name for gRPC.
var DefaultLimits = map[string]Limit{
	"POST /simulate":         {Rate: 5, Burst: 10},
	"DELETE /clear_readings": {Rate: 1, Burst: 2},

	"GET /readings":    {Rate: 50, Burst: 100},
	"GET /history":     {Rate: 50, Burst: 100},
	"GET /breakdown":   {Rate: 50, Burst: 100},
	"GET /predict":     {Rate: 50, Burst: 100},
	"GET /suggestions": {Rate: 50, Burst: 100},

	"GET /metrics":                 {Rate: 10, Burst: 20},
	"GET /health":                  {Rate: 1000, Burst: 1000},
	"/grpc.health.v1.Health/Check": {Rate: 1000, Burst: 1000},
	"/grpc.health.v1.Health/Watch": {Rate: 10, Burst: 20},
}

// maxRetryAfter bounds the wait reported for a bucket that never refills.
const maxRetryAfter = time.Minute

type bucket struct {
	limit  Limit
	tokens float64
	last   time.Time

	allowed int64
	denied  int64
}

func newBucket(limit Limit, now time.Time) *bucket {
	return &bucket{limit: limit, tokens: float64(limit.Burst), last: now}
}

func (b *bucket) refill(now time.Time) {
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = math.Min(b.tokens+elapsed*b.limit.Rate, float64(b.limit.Burst))
	}
	b.last = now
}

// wait is how long until one token is available; zero when one is.
func (b *bucket) wait() time.Duration {
	if b.tokens >= 1 {
		return 0
	}
	if b.limit.Rate <= 0 {
		return maxRetryAfter
	}
	d := time.Duration((1 - b.tokens) / b.limit.Rate * float64(time.Second))
	if d > maxRetryAfter {
		return maxRetryAfter
	}
	return d
}

// RateLimiter holds one bucket per route key plus an optional global bucket.
// A request spends a token from both or from neither.
type RateLimiter struct {
	mu      sync.Mutex
	enabled bool
	limits  map[string]Limit
	buckets map[string]*bucket
	global  *Limit
	shared  *bucket
	now     func() time.Time
	totals  Counts
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithLimits overrides or adds per-route limits.
func WithLimits(limits map[string]Limit) RateLimiterOption {
	return func(rl *RateLimiter) {
		for key, l := range limits {
			rl.limits[key] = l
		}
	}
}

// WithGlobalLimit adds a bucket shared by every route.
func WithGlobalLimit(l Limit) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.global = &l
	}
}

// WithEnabled turns limiting on or off.
func WithEnabled(enabled bool) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.enabled = enabled
	}
}

// WithLimiterClock replaces time.Now.
func WithLimiterClock(now func() time.Time) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.now = now
	}
}

// NewRateLimiter starts from DefaultLimits.
func NewRateLimiter(opts ...RateLimiterOption) *RateLimiter {
	rl := &RateLimiter{
		enabled: true,
		limits:  make(map[string]Limit, len(DefaultLimits)),
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
	for key, l := range DefaultLimits {
		rl.limits[key] = l
	}
	for _, opt := range opts {
		opt(rl)
	}
	if rl.global != nil {
		rl.shared = newBucket(*rl.global, rl.now())
	}
	return rl
}

// Reserve spends a token for key. When denied it reports how long the
// caller should wait before retrying. Keys without a limit only draw from
// the global bucket.
func (rl *RateLimiter) Reserve(key string) (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if !rl.enabled {
		return 0, true
	}

	now := rl.now()
	route := rl.bucketLocked(key, now)

	var wait time.Duration
	for _, b := range []*bucket{route, rl.shared} {
		if b == nil {
			continue
		}
		b.refill(now)
		if w := b.wait(); w > wait {
			wait = w
		}
	}

	ok := wait == 0
	if ok {
		rl.totals.Allowed++
	} else {
		rl.totals.Denied++
	}
	for _, b := range []*bucket{route, rl.shared} {
		if b == nil {
			continue
		}
		if ok {
			b.tokens--
			b.allowed++
		} else {
			b.denied++
		}
	}
	return wait, ok
}

// Allow is Reserve without the wait.
func (rl *RateLimiter) Allow(key string) bool {
	_, ok := rl.Reserve(key)
	return ok
}

func (rl *RateLimiter) bucketLocked(key string, now time.Time) *bucket {
	if b, ok := rl.buckets[key]; ok {
		return b
	}
	l, ok := rl.limits[key]
	if !ok {
		return nil
	}
	b := newBucket(l, now)
	rl.buckets[key] = b
	return b
}

// Counts tallies decisions for one bucket.
type Counts struct {
	Allowed int64 `json:"allowed"`
	Denied  int64 `json:"denied"`
}

// Usage is a snapshot of limiter decisions. Global is nil without a global
// limit and Routes only lists keys that have seen traffic.
type Usage struct {
	Counts
	Global *Counts           `json:"global,omitempty"`
	Routes map[string]Counts `json:"routes"`
}

// Usage snapshots the totals and the per-bucket counters.
func (rl *RateLimiter) Usage() Usage {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	u := Usage{Counts: rl.totals, Routes: make(map[string]Counts, len(rl.buckets))}
	for key, b := range rl.buckets {
		u.Routes[key] = Counts{Allowed: b.allowed, Denied: b.denied}
	}
	if rl.shared != nil {
		u.Global = &Counts{Allowed: rl.shared.allowed, Denied: rl.shared.denied}
	}
	return u
}

// Middleware answers 429 with Retry-After when the route's bucket is empty.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := routeKey(r)
		wait, ok := rl.Reserve(key)
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded for "+key)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func retryAfterSeconds(wait time.Duration) int {
	secs := int(math.Ceil(wait.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// routeKey prefers the mux path template so path variables share a bucket.
func routeKey(r *http.Request) string {
	path := r.URL.Path
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			path = tmpl
		}
	}
	return r.Method + " " + path
}

func (rl *RateLimiter) checkRPC(method string) error {
	if wait, ok := rl.Reserve(method); !ok {
		return status.Errorf(codes.ResourceExhausted,
			"rate limit exceeded for %s, retry in %s", method, wait.Round(time.Millisecond))
	}
	return nil
}

// UnaryServerInterceptor limits unary gRPC calls by full method name.
func (rl *RateLimiter) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if err := rl.checkRPC(info.FullMethod); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor limits stream creation, not individual messages.
func (rl *RateLimiter) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if err := rl.checkRPC(info.FullMethod); err != nil {
			return err
		}
		return handler(srv, ss)
	}
}
