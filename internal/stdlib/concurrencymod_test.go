package stdlib

import (
	"testing"

	"duskvm/internal/host"
	"duskvm/internal/vm"
	"duskvm/internal/vmconfig"
)

func TestParallelMapAppliesFnToEveryElementInOrder(t *testing.T) {
	h := host.New(vmconfig.Minimal())
	registerConcurrency(h)

	square := h.RegisterNative("square", 1, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		n := args[0].AsIntCoerced()
		return vm.Int(int32(n * n)), nil
	})

	arr := h.VM.NewArray([]vm.Value{vm.Int(1), vm.Int(2), vm.Int(3), vm.Int(4)})
	parallelMap := moduleFn(t, h, "concurrency", "parallelMap")

	result, err := h.CallFunction(parallelMap, []vm.Value{arr, square, vm.Int(2)})
	if err != nil {
		t.Fatalf("concurrency.parallelMap: %v", err)
	}
	out := result.Obj.AsArray().Elements
	want := []int64{1, 4, 9, 16}
	if len(out) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(out))
	}
	for i, w := range want {
		if out[i].AsIntCoerced() != w {
			t.Fatalf("index %d: expected %d, got %d", i, w, out[i].AsIntCoerced())
		}
	}
}

func TestParallelMapPropagatesCallbackError(t *testing.T) {
	h := host.New(vmconfig.Minimal())
	registerConcurrency(h)

	boom := h.RegisterNative("boom", 1, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		return vm.Nil, vm.NewRuntimeErrorValue("boom")
	})

	arr := h.VM.NewArray([]vm.Value{vm.Int(1)})
	parallelMap := moduleFn(t, h, "concurrency", "parallelMap")

	if _, err := h.CallFunction(parallelMap, []vm.Value{arr, boom, vm.Int(1)}); err == nil {
		t.Fatal("expected parallelMap to propagate the callback's error")
	}
}

func TestParallelMapLimitedAppliesFnToEveryElement(t *testing.T) {
	h := host.New(vmconfig.Minimal())
	registerConcurrency(h)

	square := h.RegisterNative("square", 1, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		n := args[0].AsIntCoerced()
		return vm.Int(int32(n * n)), nil
	})

	arr := h.VM.NewArray([]vm.Value{vm.Int(1), vm.Int(2), vm.Int(3), vm.Int(4), vm.Int(5)})
	parallelMapLimited := moduleFn(t, h, "concurrency", "parallelMapLimited")

	result, err := h.CallFunction(parallelMapLimited, []vm.Value{arr, square, vm.Int(2), vm.Int(1000)})
	if err != nil {
		t.Fatalf("concurrency.parallelMapLimited: %v", err)
	}
	out := result.Obj.AsArray().Elements
	want := []int64{1, 4, 9, 16, 25}
	if len(out) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(out))
	}
	for i, w := range want {
		if out[i].AsIntCoerced() != w {
			t.Fatalf("index %d: expected %d, got %d", i, w, out[i].AsIntCoerced())
		}
	}
}

func TestParallelMapLimitedPropagatesCallbackError(t *testing.T) {
	h := host.New(vmconfig.Minimal())
	registerConcurrency(h)

	boom := h.RegisterNative("boom", 1, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		return vm.Nil, vm.NewRuntimeErrorValue("boom")
	})

	arr := h.VM.NewArray([]vm.Value{vm.Int(1)})
	parallelMapLimited := moduleFn(t, h, "concurrency", "parallelMapLimited")

	if _, err := h.CallFunction(parallelMapLimited, []vm.Value{arr, boom, vm.Int(1), vm.Int(1000)}); err == nil {
		t.Fatal("expected parallelMapLimited to propagate the callback's error")
	}
}
