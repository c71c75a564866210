package host_test

import (
	"testing"

	"duskvm/internal/host"
	"duskvm/internal/vm"
	"duskvm/internal/vmconfig"
)

func TestRegisterNativeCallableFromHost(t *testing.T) {
	h := host.New(vmconfig.Minimal())
	fn := h.RegisterNative("double", 1, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		return vm.Int(int32(args[0].AsIntCoerced() * 2)), nil
	})

	result, err := h.CallFunction(fn, []vm.Value{vm.Int(21)})
	if err != nil {
		t.Fatalf("CallFunction: %v", err)
	}
	if result.AsIntCoerced() != 42 {
		t.Fatalf("expected 42, got %d", result.AsIntCoerced())
	}
}

func TestAddModuleExposesFunctionsUnderNamespace(t *testing.T) {
	h := host.New(vmconfig.Minimal())
	mb := h.AddModule("greet")
	fn := mb.AddFunction("hello", 1, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		return vmm.Pool.Create("hello, " + vmm.Pool.Content(args[0])), nil
	})

	result, err := h.CallFunction(fn, []vm.Value{h.VM.Pool.Create("world")})
	if err != nil {
		t.Fatalf("CallFunction: %v", err)
	}
	if h.VM.Pool.Content(result) != "hello, world" {
		t.Fatalf("expected greeting, got %q", h.VM.Pool.Content(result))
	}
}

func TestRegisterNativeClassConstructsAndInvokesMethods(t *testing.T) {
	h := host.New(vmconfig.Minimal())
	h.RegisterNativeClass("Counter", 1, func(vmm *vm.VM, args []vm.Value) (interface{}, *vm.DuskError) {
		n := args[0].AsIntCoerced()
		return &n, nil
	}, nil).AddMethod("incr", 0, func(vmm *vm.VM, self interface{}, args []vm.Value) (vm.Value, *vm.DuskError) {
		n := self.(*int64)
		*n++
		return vm.Int(int32(*n)), nil
	})

	classVal, ok := h.VM.GetGlobalByName("Counter")
	if !ok {
		t.Fatal("expected Counter to be defined as a global")
	}

	instance, err := h.CallFunction(classVal, []vm.Value{vm.Int(9)})
	if err != nil {
		t.Fatalf("construct Counter: %v", err)
	}

	result, err := h.CallMethod(instance, "incr", nil)
	if err != nil {
		t.Fatalf("CallMethod incr: %v", err)
	}
	if result.AsIntCoerced() != 10 {
		t.Fatalf("expected 10 after incr, got %d", result.AsIntCoerced())
	}
}
