// Package stdlib holds the optional host modules SPEC_FULL.md's domain
// stack describes: each is gated by a vmconfig.Config toggle and wires a
// real third-party or standard library behind a thin native-function
// surface, grounded the way sentra/internal/module's createXModule
// factories build an exports table per builtin module.
package stdlib

import (
	"math"
	"math/rand"

	"duskvm/internal/host"
	"duskvm/internal/vm"
)

// registerMath adds constants and functions CORE's math unary opcodes
// don't already cover (sin/cos/sqrt/... are opcodes, not module calls, per
// spec §4.6) -- random numbers, min/max, and the named constants.
func registerMath(h *host.Host) {
	m := h.AddModule("math")
	m.AddFunction("random", 0, func(_ *vm.VM, _ []vm.Value) (vm.Value, *vm.DuskError) {
		return vm.Float64(rand.Float64()), nil
	})
	m.AddFunction("randomRange", 2, func(_ *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		lo := args[0].AsIntCoerced()
		hi := args[1].AsIntCoerced()
		if hi <= lo {
			return vm.Int(int32(lo)), nil
		}
		return vm.Int(int32(lo + rand.Int63n(hi-lo))), nil
	})
	m.AddFunction("min", 2, func(_ *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		a, b := args[0].AsDoubleCoerced(), args[1].AsDoubleCoerced()
		return vm.Float64(math.Min(a, b)), nil
	})
	m.AddFunction("max", 2, func(_ *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		a, b := args[0].AsDoubleCoerced(), args[1].AsDoubleCoerced()
		return vm.Float64(math.Max(a, b)), nil
	})
	h.VM.DefineGlobal("PI", vm.Float64(math.Pi))
	h.VM.DefineGlobal("EPSILON", vm.Float64(2.220446049250313e-16))
}
