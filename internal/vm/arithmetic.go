package vm

import "math"

// performAdd implements spec §4.6's arithmetic coercion rule for `+`:
// numeric+numeric widens per the integer/double rule below; a string on
// either side concatenates, formatting the non-string side via the pool's
// ToString. Grounded on sentra/internal/vm/vm.go's performAdd, generalized
// to the tagged Value model.
func (vm *VM) performAdd(a, b Value) Value {
	if a.Kind == KindString || b.Kind == KindString {
		as := vm.toStringValue(a)
		bs := vm.toStringValue(b)
		return vm.Pool.Create(vm.Pool.Content(as) + vm.Pool.Content(bs))
	}
	return vm.numericBinOp(a, b, func(x, y int64) int64 { return x + y }, func(x, y float64) float64 { return x + y })
}

func (vm *VM) toStringValue(v Value) Value {
	if v.Kind == KindString {
		return v
	}
	return vm.Pool.Create(vm.Pool.ToString(v))
}

func (vm *VM) performSub(a, b Value) Value {
	return vm.numericBinOp(a, b, func(x, y int64) int64 { return x - y }, func(x, y float64) float64 { return x - y })
}

func (vm *VM) performMul(a, b Value) Value {
	return vm.numericBinOp(a, b, func(x, y int64) int64 { return x * y }, func(x, y float64) float64 { return x * y })
}

// performDiv always widens to double (division is never integral in spec
// §4.6's table: "Division by zero raises a catchable exception"; only
// modulo gets an integer fast path).
func (vm *VM) performDiv(a, b Value) (Value, *DuskError) {
	bd := b.AsDoubleCoerced()
	if bd == 0 {
		return Nil, NewRuntimeErrorValue("division by zero")
	}
	return Float64(a.AsDoubleCoerced() / bd), nil
}

// performMod uses fmod for any non-integer path, integer modulo otherwise
// (spec §4.6).
func (vm *VM) performMod(a, b Value) (Value, *DuskError) {
	if a.IsInteger() && b.IsInteger() {
		bi := b.AsIntCoerced()
		if bi == 0 {
			return Nil, NewRuntimeErrorValue("division by zero")
		}
		return Int(int32(a.AsIntCoerced() % bi)), nil
	}
	return Float64(math.Mod(a.AsDoubleCoerced(), b.AsDoubleCoerced())), nil
}

func (vm *VM) performNegate(v Value) Value {
	if v.IsInteger() {
		return Int(int32(-v.AsIntCoerced()))
	}
	return Float64(-v.AsDoubleCoerced())
}

// numericBinOp implements "integer+integer yields integer, otherwise both
// operands are widened to double" (spec §4.6).
func (vm *VM) numericBinOp(a, b Value, intOp func(int64, int64) int64, floatOp func(float64, float64) float64) Value {
	if a.IsInteger() && b.IsInteger() {
		return Int(int32(intOp(a.AsIntCoerced(), b.AsIntCoerced())))
	}
	return Float64(floatOp(a.AsDoubleCoerced(), b.AsDoubleCoerced()))
}

func (vm *VM) performGreater(a, b Value) bool      { return a.AsDoubleCoerced() > b.AsDoubleCoerced() }
func (vm *VM) performLess(a, b Value) bool         { return a.AsDoubleCoerced() < b.AsDoubleCoerced() }
func (vm *VM) performGreaterEqual(a, b Value) bool { return a.AsDoubleCoerced() >= b.AsDoubleCoerced() }
func (vm *VM) performLessEqual(a, b Value) bool    { return a.AsDoubleCoerced() <= b.AsDoubleCoerced() }

func (vm *VM) performBitOp(a, b Value, op func(int64, int64) int64) Value {
	return Int(int32(op(a.AsIntCoerced(), b.AsIntCoerced())))
}
