package stdlib

import (
	"time"

	"duskvm/internal/filesystem"
	"duskvm/internal/host"
	"duskvm/internal/vm"
)

// registerFS exposes content-hash snapshotting and change watching --
// scripts name their own snapshots/watchers with a string id, so a process
// can poll for what changed on a file tree without the host needing to
// push callbacks into script on every tick.
func registerFS(h *host.Host) {
	fs := filesystem.New()
	m := h.AddModule("fs")

	m.AddFunction("snapshot", 2, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		id := vmm.Pool.Content(args[0])
		path := vmm.Pool.Content(args[1])
		bl, err := fs.Snapshot(id, path)
		if err != nil {
			return vm.Nil, vm.NewHostErrorValue(err.Error())
		}
		return vmm.Pool.Create(bl.SHA256), nil
	})

	m.AddFunction("diff", 2, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		id := vmm.Pool.Content(args[0])
		path := vmm.Pool.Content(args[1])
		ev, err := fs.Diff(id, path)
		if err != nil {
			return vm.Nil, vm.NewHostErrorValue(err.Error())
		}
		if ev == nil {
			return vm.Nil, nil
		}
		return eventToValue(vmm, *ev), nil
	})

	m.AddFunction("watch", 3, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		id := vmm.Pool.Content(args[0])
		root := vmm.Pool.Content(args[1])
		recursive := args[2].IsTruthy()
		if _, err := fs.CreateWatcher(id, root, recursive, time.Second); err != nil {
			return vm.Nil, vm.NewHostErrorValue(err.Error())
		}
		return vm.Bool(true), nil
	})

	m.AddFunction("poll", 1, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		id := vmm.Pool.Content(args[0])
		events, err := fs.Poll(id)
		if err != nil {
			return vm.Nil, vm.NewHostErrorValue(err.Error())
		}
		out := make([]vm.Value, len(events))
		for i, ev := range events {
			out[i] = eventToValue(vmm, ev)
		}
		return vmm.NewArray(out), nil
	})

	m.AddFunction("unwatch", 1, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		fs.StopWatcher(vmm.Pool.Content(args[0]))
		return vm.Bool(true), nil
	})
}

func eventToValue(vmm *vm.VM, ev filesystem.Event) vm.Value {
	mv := vmm.NewMap()
	m := mv.Obj.AsMap()
	m.Items["type"] = vmm.Pool.Create(ev.Type)
	m.Items["path"] = vmm.Pool.Create(ev.Path)
	return mv
}
