package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/go-dap"
)

// cancelRegistry tracks the cancel func for every in-flight request;
// cancellation is cooperative. The adapter's request loop registers one
// entry per inbound request and removes it once that request's response
// has been sent.
type cancelRegistry struct {
	mu      sync.Mutex
	byReq   map[int]context.CancelFunc
	byProg  map[string]context.CancelFunc
}

var cancelables = &cancelRegistry{
	byReq:  make(map[int]context.CancelFunc),
	byProg: make(map[string]context.CancelFunc),
}

// RegisterRequest associates seq with cancel for the duration of one
// inbound request's handling.
func RegisterRequest(seq int, cancel context.CancelFunc) {
	cancelables.mu.Lock()
	cancelables.byReq[seq] = cancel
	cancelables.mu.Unlock()
}

// UnregisterRequest removes seq's entry once the request has completed,
// successfully or not.
func UnregisterRequest(seq int) {
	cancelables.mu.Lock()
	delete(cancelables.byReq, seq)
	cancelables.mu.Unlock()
}

// RegisterProgress associates a long-running operation's progressId with
// cancel, for cancellation by progress token instead of request id.
func RegisterProgress(progressID string, cancel context.CancelFunc) {
	cancelables.mu.Lock()
	cancelables.byProg[progressID] = cancel
	cancelables.mu.Unlock()
}

func UnregisterProgress(progressID string) {
	cancelables.mu.Lock()
	delete(cancelables.byProg, progressID)
	cancelables.mu.Unlock()
}

func handleCancel(ctx context.Context, d *Deps, raw []byte) (Result, error) {
	var args dap.CancelArguments
	_ = json.Unmarshal(raw, &args)

	cancelables.mu.Lock()
	defer cancelables.mu.Unlock()

	if args.RequestId != 0 {
		if cancel, ok := cancelables.byReq[args.RequestId]; ok {
			cancel()
		}
	}
	if args.ProgressId != "" {
		if cancel, ok := cancelables.byProg[args.ProgressId]; ok {
			cancel()
		}
	}
	return Result{}, nil
}
