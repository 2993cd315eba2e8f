package backend

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jnsquire/dapper/internal/core/dapperr"
)

// withTimeout runs issue under a deadline derived from timeout (or
// DefaultCommandTimeout if zero), converting a context deadline exceeded
// into the BackendTimeout kind rather than leaking a bare
// context.DeadlineExceeded to callers.
func withTimeout(ctx context.Context, timeout time.Duration, issue func(ctx context.Context) (json.RawMessage, error)) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := issue(cctx)
	if err != nil {
		if cctx.Err() == context.DeadlineExceeded {
			return nil, dapperr.Wrap(dapperr.BackendTimeout, "backend command timed out", err)
		}
		return nil, err
	}
	return result, nil
}
