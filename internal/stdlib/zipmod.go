package stdlib

import (
	"archive/zip"
	"io"
	"os"

	"duskvm/internal/host"
	"duskvm/internal/vm"
)

// registerZip wires archive/zip behind two whole-archive operations rather
// than a streaming reader/writer class: scripts deal in small asset
// bundles, not multi-gigabyte archives, so "read every entry into a map"
// and "write a map of entries to a file" cover the real use case without a
// stateful handle to manage.
func registerZip(h *host.Host) {
	m := h.AddModule("zip")
	m.AddFunction("extract", 1, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		r, err := zip.OpenReader(vmm.Pool.Content(args[0]))
		if err != nil {
			return vm.Nil, vm.NewHostErrorValue(err.Error())
		}
		defer r.Close()

		out := vmm.NewMap()
		m := out.Obj.AsMap()
		for _, f := range r.File {
			rc, err := f.Open()
			if err != nil {
				return vm.Nil, vm.NewHostErrorValue(err.Error())
			}
			data, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return vm.Nil, vm.NewHostErrorValue(err.Error())
			}
			m.Items[f.Name] = vmm.Pool.Create(string(data))
		}
		return out, nil
	})
	m.AddFunction("create", 2, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		path := vmm.Pool.Content(args[0])
		entries := args[1].Obj.AsMap()

		f, err := os.Create(path)
		if err != nil {
			return vm.Nil, vm.NewHostErrorValue(err.Error())
		}
		defer f.Close()

		zw := zip.NewWriter(f)
		for name, content := range entries.Items {
			w, err := zw.Create(name)
			if err != nil {
				return vm.Nil, vm.NewHostErrorValue(err.Error())
			}
			if _, err := w.Write([]byte(vmm.Pool.Content(content))); err != nil {
				return vm.Nil, vm.NewHostErrorValue(err.Error())
			}
		}
		if err := zw.Close(); err != nil {
			return vm.Nil, vm.NewHostErrorValue(err.Error())
		}
		return vm.Bool(true), nil
	})
}
