package ipcmanager

import (
	"sync"
	"time"

	"github.com/jnsquire/dapper/internal/core/dapperr"
)

// pendingCommand tracks one in-flight launcher command awaiting its
// response. The manager resolves it either when a matching response frame
// arrives or when its deadline expires (BackendTimeout).
type pendingCommand struct {
	resultCh chan pendingResult
	deadline time.Time
}

type pendingResult struct {
	payload []byte
	err     error
}

// pendingTable is the id-keyed map of commands awaiting a launcher
// response, guarded independently of the manager's connection state so a
// reconnect or shutdown can drain it without holding the write lock on I/O.
type pendingTable struct {
	mu    sync.Mutex
	table map[string]*pendingCommand
}

func newPendingTable() *pendingTable {
	return &pendingTable{table: make(map[string]*pendingCommand)}
}

func (t *pendingTable) register(id string, timeout time.Duration) *pendingCommand {
	pc := &pendingCommand{
		resultCh: make(chan pendingResult, 1),
		deadline: time.Now().Add(timeout),
	}
	t.mu.Lock()
	t.table[id] = pc
	t.mu.Unlock()
	return pc
}

func (t *pendingTable) resolve(id string, payload []byte, err error) bool {
	t.mu.Lock()
	pc, ok := t.table[id]
	if ok {
		delete(t.table, id)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	pc.resultCh <- pendingResult{payload: payload, err: err}
	return true
}

func (t *pendingTable) forget(id string) {
	t.mu.Lock()
	delete(t.table, id)
	t.mu.Unlock()
}

// drain resolves every outstanding command with cause, used on shutdown or
// a broken connection so no caller blocks forever.
func (t *pendingTable) drain(cause error) {
	t.mu.Lock()
	entries := t.table
	t.table = make(map[string]*pendingCommand)
	t.mu.Unlock()

	for _, pc := range entries {
		pc.resultCh <- pendingResult{err: cause}
	}
}

// sweepExpired resolves any command past its deadline with BackendTimeout.
// Called periodically by the manager's sweep loop.
func (t *pendingTable) sweepExpired(now time.Time) {
	t.mu.Lock()
	var expired []*pendingCommand
	for id, pc := range t.table {
		if now.After(pc.deadline) {
			expired = append(expired, pc)
			delete(t.table, id)
		}
	}
	t.mu.Unlock()

	for _, pc := range expired {
		pc.resultCh <- pendingResult{err: dapperr.New(dapperr.BackendTimeout, "launcher command timed out")}
	}
}
