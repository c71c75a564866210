// Package concurrency backs the concurrency module's parallelMap
// (internal/stdlib/concurrencymod.go): a bounded worker pool plus a rate
// limiter and a semaphore, the same shapes the teacher's own
// internal/concurrency used, generalized from a security-scanner's
// fixed job-type switch (port_scan/vuln_scan/...) to an arbitrary
// func() (interface{}, error) payload so any native Go work can be
// dispatched through it.
package concurrency

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// ConcurrencyModule owns every worker pool, rate limiter, and semaphore an
// embedder has created, keyed by the id the caller chose.
type ConcurrencyModule struct {
	WorkerPools  map[string]*WorkerPool
	RateLimiters map[string]*RateLimiter
	Semaphores   map[string]*Semaphore
	Metrics      *ConcurrencyMetrics
	mu           sync.RWMutex
}

// WorkerPool runs Jobs across a fixed number of goroutines (Size), tracked
// for the pool's lifetime with an errgroup.Group. Workers always return nil
// to the group: a job's error or recovered panic is reported in its
// JobResult, not through Wait.
type WorkerPool struct {
	ID      string
	Size    int
	Jobs    chan Job
	Results chan JobResult
	Running bool
	Ctx     context.Context
	Cancel  context.CancelFunc
	group   *errgroup.Group
	Created time.Time

	TasksTotal int64
	TasksDone  int64
}

// Worker is one goroutine draining Jobs off its pool's channel.
type Worker struct {
	ID   int
	Pool *WorkerPool
}

// Job is one unit of dispatched work. ID lets the caller correlate a
// JobResult back to whatever it originally submitted (e.g. an array
// index), since results can arrive out of submission order.
type Job struct {
	ID      string
	Fn      func() (interface{}, error)
	Timeout time.Duration
	Created time.Time
}

// JobResult is what a worker hands back on Pool.Results once Fn returns.
type JobResult struct {
	JobID     string
	Success   bool
	Result    interface{}
	Error     error
	Duration  time.Duration
	WorkerID  int
	Completed time.Time
}

// RateLimiter is a token-bucket limiter: Rate tokens refill every second,
// up to Burst tokens banked.
type RateLimiter struct {
	ID         string
	Rate       int
	Burst      int
	Interval   time.Duration
	Tokens     chan struct{}
	LastRefill time.Time
	mu         sync.Mutex
}

// Semaphore caps concurrent access to a limited resource at Capacity.
type Semaphore struct {
	ID       string
	Capacity int
	ch       chan struct{}
}

// ConcurrencyMetrics tracks aggregate pool activity across the module.
type ConcurrencyMetrics struct {
	WorkerPoolsActive int64
	WorkersTotal      int64
	TasksQueued       int64
	TasksProcessing   int64
	TasksCompleted    int64
	TasksFailed       int64
}

func NewConcurrencyModule() *ConcurrencyModule {
	return &ConcurrencyModule{
		WorkerPools:  make(map[string]*WorkerPool),
		RateLimiters: make(map[string]*RateLimiter),
		Semaphores:   make(map[string]*Semaphore),
		Metrics:      &ConcurrencyMetrics{},
	}
}

// CreateWorkerPool allocates (but does not start) a pool of size workers,
// defaulting to GOMAXPROCS-ish parallelism when size <= 0.
func (cm *ConcurrencyModule) CreateWorkerPool(id string, size, bufferSize int) (*WorkerPool, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if size <= 0 {
		size = runtime.NumCPU()
	}
	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)

	pool := &WorkerPool{
		ID:      id,
		Size:    size,
		Jobs:    make(chan Job, bufferSize),
		Results: make(chan JobResult, bufferSize),
		Ctx:     gctx,
		Cancel:  cancel,
		group:   group,
		Created: time.Now(),
	}
	cm.WorkerPools[id] = pool
	atomic.AddInt64(&cm.Metrics.WorkerPoolsActive, 1)
	atomic.AddInt64(&cm.Metrics.WorkersTotal, int64(size))
	return pool, nil
}

// StartWorkerPool launches every worker goroutine.
func (cm *ConcurrencyModule) StartWorkerPool(poolID string) error {
	cm.mu.RLock()
	pool, exists := cm.WorkerPools[poolID]
	cm.mu.RUnlock()
	if !exists {
		return fmt.Errorf("worker pool not found: %s", poolID)
	}
	if pool.Running {
		return fmt.Errorf("worker pool already running: %s", poolID)
	}
	pool.Running = true
	for i := 0; i < pool.Size; i++ {
		worker := &Worker{ID: i, Pool: pool}
		pool.group.Go(func() error {
			cm.runWorker(worker)
			return nil
		})
	}
	return nil
}

func (cm *ConcurrencyModule) runWorker(worker *Worker) {
	pool := worker.Pool
	for {
		select {
		case job, ok := <-pool.Jobs:
			if !ok {
				return
			}
			start := time.Now()
			atomic.AddInt64(&cm.Metrics.TasksProcessing, 1)
			result := cm.executeJob(job, worker)
			result.Duration = time.Since(start)
			result.WorkerID = worker.ID
			atomic.AddInt64(&cm.Metrics.TasksProcessing, -1)
			if result.Success {
				atomic.AddInt64(&cm.Metrics.TasksCompleted, 1)
			} else {
				atomic.AddInt64(&cm.Metrics.TasksFailed, 1)
			}
			select {
			case pool.Results <- result:
				atomic.AddInt64(&pool.TasksDone, 1)
			case <-pool.Ctx.Done():
				return
			}
		case <-pool.Ctx.Done():
			return
		}
	}
}

func (cm *ConcurrencyModule) executeJob(job Job, worker *Worker) JobResult {
	result := JobResult{JobID: job.ID, Completed: time.Now()}

	ctx := worker.Pool.Ctx
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	done := make(chan struct{})
	go func() {
		defer func() {
			if r := recover(); r != nil {
				result.Error = fmt.Errorf("job panicked: %v", r)
			}
			close(done)
		}()
		result.Result, result.Error = job.Fn()
		result.Success = result.Error == nil
	}()

	select {
	case <-done:
		return result
	case <-ctx.Done():
		result.Error = fmt.Errorf("job timed out")
		return result
	}
}

// SubmitJob enqueues job on poolID, failing fast if the queue is full.
func (cm *ConcurrencyModule) SubmitJob(poolID string, job Job) error {
	cm.mu.RLock()
	pool, exists := cm.WorkerPools[poolID]
	cm.mu.RUnlock()
	if !exists {
		return fmt.Errorf("worker pool not found: %s", poolID)
	}
	if !pool.Running {
		return fmt.Errorf("worker pool not running: %s", poolID)
	}
	atomic.AddInt64(&pool.TasksTotal, 1)
	select {
	case pool.Jobs <- job:
		return nil
	case <-pool.Ctx.Done():
		return fmt.Errorf("worker pool shutting down")
	default:
		return fmt.Errorf("job queue full")
	}
}

// StopWorkerPool cancels the pool's context and waits for every worker
// goroutine to drain. Workers never return an error to the group, so the
// result is nil whenever the pool exists; job errors arrive in JobResult.
func (cm *ConcurrencyModule) StopWorkerPool(poolID string) error {
	cm.mu.Lock()
	pool, exists := cm.WorkerPools[poolID]
	if exists {
		delete(cm.WorkerPools, poolID)
	}
	cm.mu.Unlock()
	if !exists {
		return fmt.Errorf("worker pool not found: %s", poolID)
	}
	pool.Cancel()
	return pool.group.Wait()
}

// CreateRateLimiter creates a token-bucket limiter, pre-filled to burst and
// refilling at rate tokens/sec.
func (cm *ConcurrencyModule) CreateRateLimiter(id string, rate, burst int) (*RateLimiter, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if rate <= 0 {
		return nil, fmt.Errorf("rate must be positive")
	}
	rl := &RateLimiter{
		ID:         id,
		Rate:       rate,
		Burst:      burst,
		Interval:   time.Second / time.Duration(rate),
		Tokens:     make(chan struct{}, burst),
		LastRefill: time.Now(),
	}
	for i := 0; i < burst; i++ {
		rl.Tokens <- struct{}{}
	}
	go cm.refillTokens(rl)
	cm.RateLimiters[id] = rl
	return rl, nil
}

func (cm *ConcurrencyModule) refillTokens(rl *RateLimiter) {
	ticker := time.NewTicker(rl.Interval)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		select {
		case rl.Tokens <- struct{}{}:
		default:
		}
		rl.LastRefill = time.Now()
		rl.mu.Unlock()
	}
}

// Acquire blocks up to timeout for one token from limiterID.
func (cm *ConcurrencyModule) Acquire(limiterID string, timeout time.Duration) error {
	cm.mu.RLock()
	rl, exists := cm.RateLimiters[limiterID]
	cm.mu.RUnlock()
	if !exists {
		return fmt.Errorf("rate limiter not found: %s", limiterID)
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	select {
	case <-rl.Tokens:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("rate limit timeout")
	}
}

// CreateSemaphore creates a counting semaphore with the given capacity.
func (cm *ConcurrencyModule) CreateSemaphore(id string, capacity int) (*Semaphore, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	sem := &Semaphore{ID: id, Capacity: capacity, ch: make(chan struct{}, capacity)}
	cm.Semaphores[id] = sem
	return sem, nil
}

// AcquireSemaphore blocks up to timeout for one permit.
func (cm *ConcurrencyModule) AcquireSemaphore(semID string, timeout time.Duration) error {
	cm.mu.RLock()
	sem, exists := cm.Semaphores[semID]
	cm.mu.RUnlock()
	if !exists {
		return fmt.Errorf("semaphore not found: %s", semID)
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	select {
	case sem.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("semaphore acquire timeout")
	}
}

// ReleaseSemaphore returns a permit to semID.
func (cm *ConcurrencyModule) ReleaseSemaphore(semID string) error {
	cm.mu.RLock()
	sem, exists := cm.Semaphores[semID]
	cm.mu.RUnlock()
	if !exists {
		return fmt.Errorf("semaphore not found: %s", semID)
	}
	select {
	case <-sem.ch:
	default:
	}
	return nil
}
