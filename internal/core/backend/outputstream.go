package backend

import (
	"bufio"
	"io"
	"sync"

	"github.com/jnsquire/dapper/internal/models"
)

// OutputStream buffers the most recent lines of debuggee stdout/stderr in
// a fixed-size ring, so a client that attaches after the debuggee has
// already produced output still sees recent history, and forwards every
// new line to onLine as it arrives.
type OutputStream struct {
	mu       sync.Mutex
	capacity int
	lines    []models.OutputLine

	onLine func(models.OutputLine)
}

// NewOutputStream creates a ring buffer holding at most capacity lines.
func NewOutputStream(capacity int, onLine func(models.OutputLine)) *OutputStream {
	if capacity <= 0 {
		capacity = 2000
	}
	return &OutputStream{capacity: capacity, onLine: onLine}
}

// Pump reads lines from r and records/forwards each as category until r
// returns an error (typically io.EOF when the debuggee's pipe closes).
// Intended to run in its own goroutine, one per stdout/stderr pipe.
func (s *OutputStream) Pump(r io.Reader, category models.OutputCategory, stamp func() models.OutputLine) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := stamp()
		line.Category = category
		line.Text = scanner.Text()
		s.record(line)
	}
}

func (s *OutputStream) record(line models.OutputLine) {
	s.mu.Lock()
	s.lines = append(s.lines, line)
	if len(s.lines) > s.capacity {
		s.lines = s.lines[len(s.lines)-s.capacity:]
	}
	s.mu.Unlock()

	if s.onLine != nil {
		s.onLine(line)
	}
}

// Recent returns a snapshot of the currently buffered lines, oldest first.
func (s *OutputStream) Recent() []models.OutputLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.OutputLine, len(s.lines))
	copy(out, s.lines)
	return out
}
