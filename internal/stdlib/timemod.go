package stdlib

import (
	"time"

	"github.com/ncruces/go-strftime"

	"duskvm/internal/host"
	"duskvm/internal/vm"
)

// registerTime exposes wall-clock access and strftime-style formatting --
// vmClockSeconds in internal/vm stays a stub since CORE itself has no
// wall-clock dependency (spec §4.6), this module is where that dependency
// actually lives, same separation the teacher draws between its VM package
// and its os/time-touching stdlib modules.
func registerTime(h *host.Host) {
	m := h.AddModule("time")
	m.AddFunction("now", 0, func(_ *vm.VM, _ []vm.Value) (vm.Value, *vm.DuskError) {
		return vm.Float64(float64(time.Now().UnixNano()) / 1e9), nil
	})
	m.AddFunction("format", 2, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		sec := args[0].AsDoubleCoerced()
		layout := vmm.Pool.Content(args[1])
		t := time.Unix(int64(sec), 0).UTC()
		return vmm.Pool.Create(strftime.Format(layout, t)), nil
	})
	m.AddFunction("sleepMillis", 1, func(_ *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		time.Sleep(time.Duration(args[0].AsIntCoerced()) * time.Millisecond)
		return vm.Nil, nil
	})
}
