package stdlib

import (
	"os"

	"github.com/google/uuid"

	"duskvm/internal/host"
	"duskvm/internal/vm"
)

// registerOS exposes a small, read-mostly slice of os: env vars, arg
// list, and whole-file read/write (EnableFileIO gates the latter
// separately in RegisterAll since a host may want env/args without
// filesystem access).
func registerOS(h *host.Host, enableFileIO bool) {
	m := h.AddModule("os")
	m.AddFunction("getenv", 1, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		return vmm.Pool.Create(os.Getenv(vmm.Pool.Content(args[0]))), nil
	})
	m.AddFunction("args", 0, func(vmm *vm.VM, _ []vm.Value) (vm.Value, *vm.DuskError) {
		out := make([]vm.Value, len(os.Args))
		for i, a := range os.Args {
			out[i] = vmm.Pool.Create(a)
		}
		return vmm.NewArray(out), nil
	})
	m.AddFunction("exit", 1, func(_ *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		os.Exit(int(args[0].AsIntCoerced()))
		return vm.Nil, nil
	})
	m.AddFunction("uuid", 0, func(vmm *vm.VM, _ []vm.Value) (vm.Value, *vm.DuskError) {
		return vmm.Pool.Create(uuid.NewString()), nil
	})

	if !enableFileIO {
		return
	}
	m.AddFunction("readFile", 1, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		data, err := os.ReadFile(vmm.Pool.Content(args[0]))
		if err != nil {
			return vm.Nil, vm.NewHostErrorValue(err.Error())
		}
		return vmm.Pool.Create(string(data)), nil
	})
	m.AddFunction("writeFile", 2, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		path := vmm.Pool.Content(args[0])
		content := vmm.Pool.Content(args[1])
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return vm.Nil, vm.NewHostErrorValue(err.Error())
		}
		return vm.Bool(true), nil
	})
	m.AddFunction("remove", 1, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		if err := os.Remove(vmm.Pool.Content(args[0])); err != nil {
			return vm.Nil, vm.NewHostErrorValue(err.Error())
		}
		return vm.Bool(true), nil
	})
	m.AddFunction("exists", 1, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		_, err := os.Stat(vmm.Pool.Content(args[0]))
		return vm.Bool(err == nil), nil
	})
	m.AddFunction("mkdir", 1, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		if err := os.MkdirAll(vmm.Pool.Content(args[0]), 0o755); err != nil {
			return vm.Nil, vm.NewHostErrorValue(err.Error())
		}
		return vm.Bool(true), nil
	})
}
