package session

import "sync"

// ThreadState mirrors the lifecycle a debuggee thread goes through between
// its introducing event and its exit event.
type ThreadState int

const (
	ThreadRunning ThreadState = iota
	ThreadPaused
	ThreadExited
)

// Thread is the session's view of one debuggee thread.
type Thread struct {
	ID    int
	Name  string
	State ThreadState
}

// ThreadRegistry tracks live threads: a thread only appears in `threads`
// once it has been introduced by a `thread started` event (or is the
// initial thread on launch), and only until its `thread exited` event.
type ThreadRegistry struct {
	mu      sync.Mutex
	threads map[int]*Thread
}

func NewThreadRegistry() *ThreadRegistry {
	return &ThreadRegistry{threads: make(map[int]*Thread)}
}

// Introduce registers a thread as running, whether from the initial launch
// thread or a `thread started` event. Re-introducing an id already present
// refreshes its name rather than erroring, since launchers may resend it.
func (r *ThreadRegistry) Introduce(id int, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.threads[id]; ok {
		t.Name = name
		return
	}
	r.threads[id] = &Thread{ID: id, Name: name, State: ThreadRunning}
}

// Exit removes id from the registry; subsequent List calls omit it.
func (r *ThreadRegistry) Exit(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.threads, id)
}

// SetState updates the running/paused state of an already-introduced
// thread. A no-op for an id that was never introduced or has exited.
func (r *ThreadRegistry) SetState(id int, state ThreadState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.threads[id]; ok {
		t.State = state
	}
}

// List returns every currently-live thread, in no particular order.
func (r *ThreadRegistry) List() []Thread {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Thread, 0, len(r.threads))
	for _, t := range r.threads {
		out = append(out, *t)
	}
	return out
}

// Get returns the thread for id and whether it is currently live.
func (r *ThreadRegistry) Get(id int) (Thread, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.threads[id]
	if !ok {
		return Thread{}, false
	}
	return *t, true
}
