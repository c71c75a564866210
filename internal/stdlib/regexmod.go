package stdlib

import (
	"regexp"

	"duskvm/internal/host"
	"duskvm/internal/vm"
)

// registerRegex wires a native class over *regexp.Regexp rather than raw
// module functions, since a compiled pattern is exactly the kind of
// stateful handle spec §4.9's registerNativeClass exists for: compile once,
// reuse across many test()/find()/replace() calls.
func registerRegex(h *host.Host) {
	h.RegisterNativeClass("Regex", 1, func(vmm *vm.VM, args []vm.Value) (interface{}, *vm.DuskError) {
		pattern := vmm.Pool.Content(args[0])
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, vm.NewRuntimeErrorValue("Regex: " + err.Error())
		}
		return re, nil
	}, nil).
		AddMethod("test", 1, func(vmm *vm.VM, self interface{}, args []vm.Value) (vm.Value, *vm.DuskError) {
			re := self.(*regexp.Regexp)
			return vm.Bool(re.MatchString(vmm.Pool.Content(args[0]))), nil
		}).
		AddMethod("find", 1, func(vmm *vm.VM, self interface{}, args []vm.Value) (vm.Value, *vm.DuskError) {
			re := self.(*regexp.Regexp)
			m := re.FindString(vmm.Pool.Content(args[0]))
			return vmm.Pool.Create(m), nil
		}).
		AddMethod("findAll", 1, func(vmm *vm.VM, self interface{}, args []vm.Value) (vm.Value, *vm.DuskError) {
			re := self.(*regexp.Regexp)
			matches := re.FindAllString(vmm.Pool.Content(args[0]), -1)
			out := make([]vm.Value, len(matches))
			for i, s := range matches {
				out[i] = vmm.Pool.Create(s)
			}
			return vmm.NewArray(out), nil
		}).
		AddMethod("replace", 2, func(vmm *vm.VM, self interface{}, args []vm.Value) (vm.Value, *vm.DuskError) {
			re := self.(*regexp.Regexp)
			out := re.ReplaceAllString(vmm.Pool.Content(args[0]), vmm.Pool.Content(args[1]))
			return vmm.Pool.Create(out), nil
		})
}
