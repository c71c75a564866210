package stdlib

import (
	"path/filepath"

	"duskvm/internal/host"
	"duskvm/internal/vm"
)

// registerPath wires filepath join/base/dir/ext so script can build paths
// portably instead of hand-concatenating "/".
func registerPath(h *host.Host) {
	m := h.AddModule("path")
	m.AddFunction("join", 2, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		return vmm.Pool.Create(filepath.Join(vmm.Pool.Content(args[0]), vmm.Pool.Content(args[1]))), nil
	})
	m.AddFunction("base", 1, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		return vmm.Pool.Create(filepath.Base(vmm.Pool.Content(args[0]))), nil
	})
	m.AddFunction("dir", 1, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		return vmm.Pool.Create(filepath.Dir(vmm.Pool.Content(args[0]))), nil
	})
	m.AddFunction("ext", 1, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		return vmm.Pool.Create(filepath.Ext(vmm.Pool.Content(args[0]))), nil
	})
	m.AddFunction("abs", 1, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		abs, err := filepath.Abs(vmm.Pool.Content(args[0]))
		if err != nil {
			return vm.Nil, vm.NewHostErrorValue(err.Error())
		}
		return vmm.Pool.Create(abs), nil
	})
}
