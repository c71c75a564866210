package stdlib

import (
	"testing"

	"duskvm/internal/host"
	"duskvm/internal/vm"
	"duskvm/internal/vmconfig"
)

func moduleFn(t *testing.T, h *host.Host, module, name string) vm.Value {
	t.Helper()
	m, ok := h.VM.Module(module)
	if !ok {
		t.Fatalf("module %q was not registered", module)
	}
	fn, ok := m.Function(name)
	if !ok {
		t.Fatalf("module %q has no function %q", module, name)
	}
	return fn
}

func TestMathMinMaxAndConstants(t *testing.T) {
	h := host.New(vmconfig.Minimal())
	registerMath(h)

	min := moduleFn(t, h, "math", "min")
	result, err := h.CallFunction(min, []vm.Value{vm.Float64(3), vm.Float64(1)})
	if err != nil {
		t.Fatalf("math.min: %v", err)
	}
	if result.AsDoubleCoerced() != 1 {
		t.Fatalf("expected 1, got %v", result.AsDoubleCoerced())
	}

	pi, ok := h.VM.GetGlobalByName("PI")
	if !ok || pi.AsDoubleCoerced() < 3.14 || pi.AsDoubleCoerced() > 3.15 {
		t.Fatalf("expected PI global near 3.14159, got %v (ok=%v)", pi.AsDoubleCoerced(), ok)
	}
}

func TestMathRandomRangeStaysInBounds(t *testing.T) {
	h := host.New(vmconfig.Minimal())
	registerMath(h)
	rr := moduleFn(t, h, "math", "randomRange")

	for i := 0; i < 50; i++ {
		result, err := h.CallFunction(rr, []vm.Value{vm.Int(10), vm.Int(20)})
		if err != nil {
			t.Fatalf("math.randomRange: %v", err)
		}
		v := result.AsIntCoerced()
		if v < 10 || v >= 20 {
			t.Fatalf("expected a value in [10, 20), got %d", v)
		}
	}
}
