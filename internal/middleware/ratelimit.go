package middleware

import (
	"context"
	"errors"
	"sync"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a caller exceeds its request budget.
var ErrRateLimited = errors.New("too many requests, try again later")

// RateLimiter keeps one token bucket per (procedure, peer) pair.
type RateLimiter struct {
	limit      rate.Limit
	burst      int
	procedures map[string]bool

	mu       sync.Mutex
	limiters map[string]*limiterEntry
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per peer and procedure with the given burst.
// Only the listed procedures are limited; an empty list limits every procedure.
func NewRateLimiter(perMinute, burst int, procedures ...string) *RateLimiter {
	procs := make(map[string]bool, len(procedures))
	for _, p := range procedures {
		procs[p] = true
	}
	return &RateLimiter{
		limit:      rate.Limit(float64(perMinute) / 60),
		burst:      burst,
		procedures: procs,
		limiters:   make(map[string]*limiterEntry),
	}
}

// Allow reports whether a request for procedure from peer may proceed.
func (rl *RateLimiter) Allow(procedure, peer string) bool {
	if len(rl.procedures) > 0 && !rl.procedures[procedure] {
		return true
	}

	key := procedure + "|" + peer
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = now
	rl.cleanup(now)

	return entry.limiter.AllowN(now, 1)
}

// cleanup drops peers idle for an hour. Must be called with rl.mu held.
func (rl *RateLimiter) cleanup(now time.Time) {
	for key, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > time.Hour {
			delete(rl.limiters, key)
		}
	}
}

// Interceptor rejects limited calls with CodeResourceExhausted.
func (rl *RateLimiter) Interceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if !rl.Allow(req.Spec().Procedure, req.Peer().Addr) {
				return nil, connect.NewError(connect.CodeResourceExhausted, ErrRateLimited)
			}
			return next(ctx, req)
		}
	}
}
