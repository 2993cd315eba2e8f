package session

import (
	"sync"

	"github.com/jnsquire/dapper/internal/core/dapperr"
)

// handleEntry pairs a value with the generation it was allocated in. A
// lookup whose generation no longer matches the arena's current generation
// is treated as invalid without needing to walk or clear the map itself.
type handleEntry struct {
	generation uint64
	value      any
}

// HandleArena allocates DAP variablesReference / frameId-style integer
// handles backed by arbitrary Go values, and invalidates every outstanding
// handle at once by bumping a generation counter and dropping the map:
// variable references become invalid the moment the debuggee resumes.
type HandleArena struct {
	mu         sync.Mutex
	generation uint64
	next       int
	entries    map[int]handleEntry
}

func NewHandleArena() *HandleArena {
	return &HandleArena{
		generation: 1,
		next:       1, // DAP reserves 0 to mean "no reference"
		entries:    make(map[int]handleEntry),
	}
}

// Alloc assigns a fresh handle to value, valid until the next Invalidate.
func (a *HandleArena) Alloc(value any) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	h := a.next
	a.next++
	a.entries[h] = handleEntry{generation: a.generation, value: value}
	return h
}

// Resolve returns the value for handle if it was allocated in the current
// generation, InvalidHandle otherwise.
func (a *HandleArena) Resolve(handle int) (any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.entries[handle]
	if !ok || e.generation != a.generation {
		return nil, dapperr.New(dapperr.InvalidHandle, "variable or frame reference is no longer valid")
	}
	return e.value, nil
}

// Invalidate bumps the generation and replaces the map, so no handle issued
// so far resolves any more. Numbering restarts at 1, so a later Alloc can
// hand out a number that was in use before the call.
func (a *HandleArena) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.generation++
	// Bound unbounded growth across many resume cycles: a fresh map costs
	// one allocation but guarantees memory doesn't accumulate forever.
	a.entries = make(map[int]handleEntry)
	a.next = 1
}
