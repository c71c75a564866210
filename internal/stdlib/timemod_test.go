package stdlib

import (
	"testing"

	"duskvm/internal/host"
	"duskvm/internal/vm"
	"duskvm/internal/vmconfig"
)

func TestTimeFormatRendersStrftimeLayout(t *testing.T) {
	h := host.New(vmconfig.Minimal())
	registerTime(h)

	format := moduleFn(t, h, "time", "format")
	// 2024-01-02T00:00:00Z
	result, err := h.CallFunction(format, []vm.Value{vm.Float64(1704153600), h.VM.Pool.Create("%Y-%m-%d")})
	if err != nil {
		t.Fatalf("time.format: %v", err)
	}
	if got := h.VM.Pool.Content(result); got != "2024-01-02" {
		t.Fatalf("expected %q, got %q", "2024-01-02", got)
	}
}

func TestTimeNowReturnsPositiveSeconds(t *testing.T) {
	h := host.New(vmconfig.Minimal())
	registerTime(h)
	now := moduleFn(t, h, "time", "now")

	first, err := h.CallFunction(now, nil)
	if err != nil {
		t.Fatalf("time.now: %v", err)
	}
	if first.AsDoubleCoerced() <= 0 {
		t.Fatalf("expected a positive unix timestamp, got %v", first.AsDoubleCoerced())
	}
}
