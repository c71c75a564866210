package stdlib

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"duskvm/internal/concurrency"
	"duskvm/internal/host"
	"duskvm/internal/vm"
)

var parallelMapSeq int64

// acquireTimeout bounds how long parallelMapLimited waits for a rate-limit
// token or semaphore permit before giving up on an element.
const acquireTimeout = 30 * time.Second

// registerConcurrency generalizes the teacher's WorkerPool concept (a
// capped set of goroutines draining a job queue) into one script-visible
// operation: parallelMap. Script itself is still single-threaded -- one
// process runs one frame at a time, per spec §3 -- so this module's job is
// narrower than true concurrent script execution: it fans native work out
// across a duskvm/internal/concurrency.WorkerPool, but every actual
// callback invocation back into the VM is serialized behind callMu, since
// two goroutines cannot run script call stacks against the same VM
// concurrently. Ordering is preserved by writing each result into its
// index of a pre-sized slice, keyed off Job.ID, rather than appending as
// results arrive off the pool.
func registerConcurrency(h *host.Host) {
	var callMu sync.Mutex
	cm := concurrency.NewConcurrencyModule()

	m := h.AddModule("concurrency")
	m.AddFunction("parallelMap", 3, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		arr := args[0].Obj.AsArray()
		fn := args[1]
		workers := int(args[2].AsIntCoerced())
		if workers < 1 {
			workers = 1
		}

		n := len(arr.Elements)
		results := make([]vm.Value, n)
		if n == 0 {
			return vmm.NewArray(results), nil
		}

		poolID := "parallelMap-" + strconv.FormatInt(atomic.AddInt64(&parallelMapSeq, 1), 10)
		pool, _ := cm.CreateWorkerPool(poolID, workers, n)
		_ = cm.StartWorkerPool(poolID)
		defer cm.StopWorkerPool(poolID)

		var firstErr *vm.DuskError
		var errOnce sync.Once

		for i, elem := range arr.Elements {
			elem := elem
			job := concurrency.Job{
				ID: strconv.Itoa(i),
				Fn: func() (interface{}, error) {
					callMu.Lock()
					result, err := h.CallFunction(fn, []vm.Value{elem})
					callMu.Unlock()
					if err != nil {
						errOnce.Do(func() { firstErr = err })
						return nil, nil
					}
					return result, nil
				},
			}
			if err := cm.SubmitJob(poolID, job); err != nil {
				return vm.Nil, vm.NewHostErrorValue(err.Error())
			}
		}

		for i := 0; i < n; i++ {
			res := <-pool.Results
			if res.Result != nil {
				idx, _ := strconv.Atoi(res.JobID)
				results[idx] = res.Result.(vm.Value)
			}
		}

		if firstErr != nil {
			return vm.Nil, firstErr
		}
		return vmm.NewArray(results), nil
	})

	// parallelMapLimited is parallelMap with throughput capped at
	// ratePerSecond callback dispatches/sec, for script code that fans out
	// over a rate-limited external resource (an API with its own quota, a
	// shared downstream service) rather than raw CPU-bound work.
	// CreateSemaphore/AcquireSemaphore/ReleaseSemaphore bound concurrency to
	// workers and CreateRateLimiter/Acquire bound dispatch rate; both come
	// straight off duskvm/internal/concurrency's token-bucket limiter and
	// counting semaphore rather than a second, bespoke implementation here.
	m.AddFunction("parallelMapLimited", 4, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		arr := args[0].Obj.AsArray()
		fn := args[1]
		workers := int(args[2].AsIntCoerced())
		ratePerSecond := int(args[3].AsIntCoerced())
		if workers < 1 {
			workers = 1
		}
		if ratePerSecond < 1 {
			ratePerSecond = 1
		}

		n := len(arr.Elements)
		results := make([]vm.Value, n)
		if n == 0 {
			return vmm.NewArray(results), nil
		}

		id := "parallelMapLimited-" + strconv.FormatInt(atomic.AddInt64(&parallelMapSeq, 1), 10)
		if _, err := cm.CreateSemaphore(id, workers); err != nil {
			return vm.Nil, vm.NewHostErrorValue(err.Error())
		}
		if _, err := cm.CreateRateLimiter(id, ratePerSecond, ratePerSecond); err != nil {
			return vm.Nil, vm.NewHostErrorValue(err.Error())
		}

		var wg sync.WaitGroup
		var firstErr *vm.DuskError
		var errOnce sync.Once
		fail := func(err *vm.DuskError) { errOnce.Do(func() { firstErr = err }) }

		for i, elem := range arr.Elements {
			i, elem := i, elem
			if err := cm.AcquireSemaphore(id, acquireTimeout); err != nil {
				fail(vm.NewHostErrorValue(err.Error()))
				continue
			}
			if err := cm.Acquire(id, acquireTimeout); err != nil {
				cm.ReleaseSemaphore(id)
				fail(vm.NewHostErrorValue(err.Error()))
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer cm.ReleaseSemaphore(id)
				callMu.Lock()
				result, err := h.CallFunction(fn, []vm.Value{elem})
				callMu.Unlock()
				if err != nil {
					fail(err)
					return
				}
				results[i] = result
			}()
		}
		wg.Wait()

		if firstErr != nil {
			return vm.Nil, firstErr
		}
		return vmm.NewArray(results), nil
	})
}
