package vm

import "fmt"

// Kind tags the payload carried by a Value. Per the design notes in
// spec §9, Value is a dedicated enum-with-payload rather than an
// interface{} box: every heap-object Kind carries an *Obj handle into the
// VM's own GC-tracked object list instead of a bare Go pointer, so object
// identity and lifetime are both owned by the VM, not by Go's GC.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindByte
	KindInt
	KindUint
	KindFloat
	KindDouble
	KindString
	KindArray
	KindMap
	KindBuffer
	KindStructBlueprint
	KindStructInstance
	KindFunction
	KindNativeFunction
	KindNativeClass
	KindNativeClassInstance
	KindNativeStruct
	KindNativeStructInstance
	KindProcessBlueprint
	KindProcess
	KindClassBlueprint
	KindClassInstance
	KindRawPointer
	KindModuleRef
	KindClosure
)

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

var kindNames = [...]string{
	"nil", "bool", "byte", "int", "uint", "float", "double", "string",
	"array", "map", "buffer", "struct_blueprint", "struct_instance",
	"function", "native_function", "native_class", "native_class_instance",
	"native_struct", "native_struct_instance", "process_blueprint", "process",
	"class_blueprint", "class_instance", "raw_pointer", "module_ref", "closure",
}

// Value is the tagged container spec §3 describes. Numeric payloads are
// stored directly; every heap-object kind stores its handle in Obj, an
// owning pointer into a GC-tracked object (see objects.go, gc.go).
type Value struct {
	Kind Kind
	// num is the raw bit pattern for byte/int/uint/float/double/bool/
	// module-ref payloads, and a PooledString index for KindString.
	num uint64
	// Obj is the GC-owned handle for every heap-object Kind.
	Obj *Obj
	// Ptr is used only by KindRawPointer, an opaque host-supplied pointer
	// spec §3 says the value model must carry without VM ownership.
	Ptr interface{}
}

var Nil = Value{Kind: KindNil}

func Bool(b bool) Value {
	var n uint64
	if b {
		n = 1
	}
	return Value{Kind: KindBool, num: n}
}

func Byte(b uint8) Value    { return Value{Kind: KindByte, num: uint64(b)} }
func Int(i int32) Value     { return Value{Kind: KindInt, num: uint64(uint32(i))} }
func Uint(u uint32) Value   { return Value{Kind: KindUint, num: uint64(u)} }
func Float32(f float32) Value { return Value{Kind: KindFloat, num: uint64(f32bits(f))} }
func Float64(f float64) Value { return Value{Kind: KindDouble, num: f64bits(f)} }

func RawPointer(p interface{}) Value { return Value{Kind: KindRawPointer, Ptr: p} }

// ModuleRef packs moduleId:funcId into one value per spec §3.
func ModuleRef(moduleID, funcID uint32) Value {
	return Value{Kind: KindModuleRef, num: uint64(moduleID)<<32 | uint64(funcID)}
}

func (v Value) ModuleRef() (moduleID, funcID uint32) {
	return uint32(v.num >> 32), uint32(v.num)
}

func (v Value) AsBool() bool    { return v.num != 0 }
func (v Value) AsByte() uint8   { return uint8(v.num) }
func (v Value) AsInt() int32    { return int32(uint32(v.num)) }
func (v Value) AsUint() uint32  { return uint32(v.num) }
func (v Value) AsFloat32() float32 { return f32frombits(uint32(v.num)) }
func (v Value) AsDouble() float64  { return f64frombits(v.num) }

// IsNumeric reports whether the value participates in arithmetic coercion.
func (v Value) IsNumeric() bool {
	switch v.Kind {
	case KindByte, KindInt, KindUint, KindFloat, KindDouble:
		return true
	}
	return false
}

// IsInteger reports whether the numeric value is one of the integral
// variants (as opposed to float/double), per the arithmetic coercion rule
// in spec §4.6: integer+integer yields integer.
func (v Value) IsInteger() bool {
	switch v.Kind {
	case KindByte, KindInt, KindUint:
		return true
	}
	return false
}

// AsDoubleCoerced widens any numeric variant to a double.
func (v Value) AsDoubleCoerced() float64 {
	switch v.Kind {
	case KindByte:
		return float64(v.AsByte())
	case KindInt:
		return float64(v.AsInt())
	case KindUint:
		return float64(v.AsUint())
	case KindFloat:
		return float64(v.AsFloat32())
	case KindDouble:
		return v.AsDouble()
	}
	return 0
}

// AsIntCoerced truncates any integral numeric variant to int64; callers must
// already know the value IsInteger().
func (v Value) AsIntCoerced() int64 {
	switch v.Kind {
	case KindByte:
		return int64(v.AsByte())
	case KindInt:
		return int64(v.AsInt())
	case KindUint:
		return int64(v.AsUint())
	}
	return 0
}

// IsTruthy implements spec §3's truthiness rule: nil and zero-valued
// numerics are false, everything else is true.
func (v Value) IsTruthy() bool {
	switch v.Kind {
	case KindNil:
		return false
	case KindBool:
		return v.AsBool()
	case KindByte, KindInt, KindUint:
		return v.AsIntCoerced() != 0
	case KindFloat:
		return v.AsFloat32() != 0
	case KindDouble:
		return v.AsDouble() != 0
	default:
		return true
	}
}

// ValuesEqual implements spec §3's equality rule: both numeric and equal as
// doubles; both strings with identical content; both nil; or same kind tag
// with identical payload (pointer/handle equality for object variants).
func ValuesEqual(a, b Value) bool {
	if a.Kind == KindNil && b.Kind == KindNil {
		return true
	}
	if a.IsNumeric() && b.IsNumeric() {
		return a.AsDoubleCoerced() == b.AsDoubleCoerced()
	}
	if a.Kind == KindString && b.Kind == KindString {
		return a.num == b.num // pooled string index identity
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindBool:
		return a.AsBool() == b.AsBool()
	case KindModuleRef:
		return a.num == b.num
	case KindRawPointer:
		return a.Ptr == b.Ptr
	default:
		return a.Obj == b.Obj
	}
}

func (v Value) String() string {
	return fmt.Sprintf("Value(%s)", v.Kind)
}
