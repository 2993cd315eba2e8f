// Package workers provides the single-worker serialization pool the
// in-process backend uses to funnel every debuggee operation through one
// goroutine, since a BreakpointExecutor embedded in the adapter's own
// process is not safe to call concurrently from multiple DAP requests.
package workers

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Task represents a unit of work submitted to the pool.
type Task struct {
	ID      string
	Execute func(ctx context.Context) (interface{}, error)
	Result  chan TaskResult
}

// TaskResult carries a task's outcome and how long it took.
type TaskResult struct {
	ID       string
	Data     interface{}
	Error    error
	Duration time.Duration
}

// Pool runs submitted tasks one at a time, in submission order, on a
// single worker goroutine. This is deliberate: it is the serialization
// point required for the in-process backend, not a throughput
// optimization, so it is never sized beyond one worker.
type Pool struct {
	tasks chan Task
	wg    sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	taskTimeout time.Duration

	mu     sync.RWMutex
	stats  PoolStats
	closed bool
}

// PoolStats tracks pool activity for diagnostics.
type PoolStats struct {
	TasksSubmitted int64
	TasksCompleted int64
	TasksFailed    int64
	TotalDuration  time.Duration
}

// NewPool starts the single worker goroutine. taskTimeout bounds how long
// any one task may run before it is abandoned as timed out; zero means 30s.
func NewPool(taskTimeout time.Duration) *Pool {
	if taskTimeout <= 0 {
		taskTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())

	p := &Pool{
		tasks:       make(chan Task, 16),
		ctx:         ctx,
		cancel:      cancel,
		taskTimeout: taskTimeout,
	}

	p.wg.Add(1)
	go p.worker()
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			p.processTask(task)
		}
	}
}

func (p *Pool) processTask(task Task) {
	start := time.Now()

	taskCtx, cancel := context.WithTimeout(p.ctx, p.taskTimeout)
	defer cancel()

	done := make(chan struct {
		data interface{}
		err  error
	}, 1)

	go func() {
		data, err := task.Execute(taskCtx)
		done <- struct {
			data interface{}
			err  error
		}{data, err}
	}()

	var data interface{}
	var err error
	select {
	case result := <-done:
		data, err = result.data, result.err
	case <-taskCtx.Done():
		err = fmt.Errorf("task timed out after %s: %w", p.taskTimeout, taskCtx.Err())
	}

	duration := time.Since(start)

	p.mu.Lock()
	p.stats.TasksCompleted++
	p.stats.TotalDuration += duration
	if err != nil {
		p.stats.TasksFailed++
	}
	p.mu.Unlock()

	select {
	case task.Result <- TaskResult{ID: task.ID, Data: data, Error: err, Duration: duration}:
	case <-p.ctx.Done():
	}
}

// Submit enqueues task for execution, returning an error if the pool is
// closed or shutting down.
func (p *Pool) Submit(task Task) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return fmt.Errorf("workers: pool is closed")
	}

	p.mu.Lock()
	p.stats.TasksSubmitted++
	p.mu.Unlock()

	select {
	case p.tasks <- task:
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("workers: pool is shutting down")
	}
}

// SubmitAndWait submits fn and blocks for its result.
func (p *Pool) SubmitAndWait(ctx context.Context, id string, fn func(ctx context.Context) (interface{}, error)) TaskResult {
	resultChan := make(chan TaskResult, 1)
	task := Task{ID: id, Execute: fn, Result: resultChan}

	if err := p.Submit(task); err != nil {
		return TaskResult{ID: id, Error: err}
	}

	select {
	case result := <-resultChan:
		return result
	case <-ctx.Done():
		return TaskResult{ID: id, Error: ctx.Err()}
	}
}

// Stats returns a snapshot of pool counters.
func (p *Pool) Stats() PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats
}

// Close drains in-flight work and stops the worker. Idempotent.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.tasks)
	p.wg.Wait()
	p.cancel()
}

// CloseWithTimeout closes the pool, returning an error if shutdown exceeds
// timeout instead of blocking indefinitely.
func (p *Pool) CloseWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		p.Close()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("workers: pool shutdown timeout exceeded")
	}
}
