package security

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jnsquire/dapper/internal/core/dapperr"
)

// RateLimiter bounds how fast commands are issued per backend operation
// class, implementing the IPC writer backpressure requires: queue
// depth is bounded and overflow surfaces as BackendOverloaded rather than
// growing without limit.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{limiters: make(map[string]*rate.Limiter)}
}

// operationLimits are per-class defaults; "command" covers ordinary
// backend command issuance, "output" the higher-volume debuggee
// stdout/stderr forwarding path.
var operationLimits = map[string]struct {
	rps   float64
	burst int
}{
	"command": {rps: 50, burst: 100},
	"output":  {rps: 200, burst: 400},
	"default": {rps: 20, burst: 40},
}

func (rl *RateLimiter) limiterFor(operation string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[operation]
	if exists {
		return limiter
	}
	limit, ok := operationLimits[operation]
	if !ok {
		limit = operationLimits["default"]
	}
	limiter = rate.NewLimiter(rate.Limit(limit.rps), limit.burst)
	rl.limiters[operation] = limiter
	return limiter
}

// Allow reports whether operation may proceed immediately without
// blocking, for call sites on the loop thread that must never wait.
func (rl *RateLimiter) Allow(operation string) bool {
	return rl.limiterFor(operation).Allow()
}

// Wait blocks up to a short bound for operation to become allowed,
// returning BackendOverloaded if the limiter cannot admit it in time.
func (rl *RateLimiter) Wait(ctx context.Context, operation string) error {
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rl.limiterFor(operation).Wait(waitCtx); err != nil {
		return dapperr.Wrap(dapperr.BackendOverloaded, "rate limit exceeded for "+operation, err)
	}
	return nil
}
