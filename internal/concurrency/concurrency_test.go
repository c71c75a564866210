package concurrency

import (
	"fmt"
	"testing"
	"time"
)

func TestWorkerPoolRunsAllJobs(t *testing.T) {
	cm := NewConcurrencyModule()
	if _, err := cm.CreateWorkerPool("pool", 4, 16); err != nil {
		t.Fatalf("CreateWorkerPool: %v", err)
	}
	if err := cm.StartWorkerPool("pool"); err != nil {
		t.Fatalf("StartWorkerPool: %v", err)
	}
	defer cm.StopWorkerPool("pool")

	const n = 10
	for i := 0; i < n; i++ {
		i := i
		job := Job{ID: fmt.Sprint(i), Fn: func() (interface{}, error) { return i * i, nil }}
		if err := cm.SubmitJob("pool", job); err != nil {
			t.Fatalf("SubmitJob: %v", err)
		}
	}

	seen := make(map[string]int)
	for i := 0; i < n; i++ {
		select {
		case res := <-cm.WorkerPools["pool"].Results:
			if !res.Success {
				t.Fatalf("job %s failed: %v", res.JobID, res.Error)
			}
			seen[res.JobID] = res.Result.(int)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for job results")
		}
	}
	if len(seen) != n {
		t.Fatalf("expected %d distinct results, got %d", n, len(seen))
	}
}

func TestRateLimiterBlocksPastBurst(t *testing.T) {
	cm := NewConcurrencyModule()
	if _, err := cm.CreateRateLimiter("rl", 1, 1); err != nil {
		t.Fatalf("CreateRateLimiter: %v", err)
	}
	if err := cm.Acquire("rl", 100*time.Millisecond); err != nil {
		t.Fatalf("first acquire should succeed: %v", err)
	}
	if err := cm.Acquire("rl", 50*time.Millisecond); err == nil {
		t.Fatal("second acquire within the same window should time out")
	}
}

func TestSemaphoreCapsConcurrentHolders(t *testing.T) {
	cm := NewConcurrencyModule()
	if _, err := cm.CreateSemaphore("sem", 1); err != nil {
		t.Fatalf("CreateSemaphore: %v", err)
	}
	if err := cm.AcquireSemaphore("sem", 50*time.Millisecond); err != nil {
		t.Fatalf("first acquire should succeed: %v", err)
	}
	if err := cm.AcquireSemaphore("sem", 50*time.Millisecond); err == nil {
		t.Fatal("second acquire should time out while the permit is held")
	}
	if err := cm.ReleaseSemaphore("sem"); err != nil {
		t.Fatalf("ReleaseSemaphore: %v", err)
	}
	if err := cm.AcquireSemaphore("sem", 50*time.Millisecond); err != nil {
		t.Fatalf("acquire after release should succeed: %v", err)
	}
}
