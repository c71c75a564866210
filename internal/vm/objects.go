package vm

import "duskvm/internal/bytecode"

// ObjType tags the payload a heap-allocated Obj carries. This mirrors the
// teacher's Object{Type, Marked, Next} header (sentra/internal/vmregister
// /value.go) but backs a tagged Value struct instead of a NaN-boxed
// pointer, per spec §9's design note that object variants should own a
// handle rather than a raw pointer.
type ObjType uint8

const (
	ObjArray ObjType = iota
	ObjMap
	ObjBuffer
	ObjStructBlueprint
	ObjStructInstance
	ObjFunction
	ObjNativeFunction
	ObjNativeClass
	ObjNativeClassInstance
	ObjNativeStruct
	ObjNativeStructInstance
	ObjProcessBlueprint
	ObjProcess
	ObjClassBlueprint
	ObjClassInstance
	ObjClosure
	ObjUpvalue
)

// Obj is the GC object header every heap object embeds: a type tag, a mark
// bit, and the intrusive next-pointer threading it into the VM-global
// object list (spec §3, "GC object").
type Obj struct {
	Type    ObjType
	Marked  bool
	Next    *Obj
	Payload interface{}
}

// --- Array -------------------------------------------------------------

type Array struct {
	Elements []Value
}

func (o *Obj) AsArray() *Array { return o.Payload.(*Array) }

// --- Map -----------------------------------------------------------------

// Map maps pooled-string content to values. Keys are stored by their raw
// string content (not the pool index) so maps remain usable even if the
// pool is not reachable from the call site; lookups still go through the
// same interning the rest of the VM uses for key comparison.
type Map struct {
	Items map[string]Value
}

func (o *Obj) AsMap() *Map { return o.Payload.(*Map) }

func NewMapObj() *Map { return &Map{Items: make(map[string]Value)} }

// --- Buffer --------------------------------------------------------------

type BufferElemType uint8

const (
	BufU8 BufferElemType = iota
	BufI16
	BufU16
	BufI32
	BufU32
	BufF32
	BufF64
)

func (t BufferElemType) Size() int {
	switch t {
	case BufU8:
		return 1
	case BufI16, BufU16:
		return 2
	case BufI32, BufU32, BufF32:
		return 4
	case BufF64:
		return 8
	}
	return 1
}

// Buffer is a contiguous typed array with a mutable cursor (spec §3).
// Data is stored as raw bytes so every element type shares one backing
// allocation, matching the "typed buffer" the spec describes rather than a
// Go slice-of-float64 that would waste space for u8 buffers.
type Buffer struct {
	ElemType BufferElemType
	Count    int
	Data     []byte
	Cursor   int
}

func (o *Obj) AsBuffer() *Buffer { return o.Payload.(*Buffer) }

func NewBuffer(elemType BufferElemType, count int) *Buffer {
	return &Buffer{ElemType: elemType, Count: count, Data: make([]byte, count*elemType.Size())}
}

// readBufferElem/writeBufferElem marshal a single typed element at logical
// index i through the buffer's byte-addressed backing store (spec §3,
// "Buffer"), matching the offset arithmetic native struct fields use.
func readBufferElem(b *Buffer, i int) Value {
	return decodeElem(b.ElemType, b.Data[i*b.ElemType.Size():])
}

func writeBufferElem(b *Buffer, i int, v Value) {
	encodeElem(b.ElemType, b.Data[i*b.ElemType.Size():], v)
}

// decodeElem/encodeElem hold the per-type wire format shared by the
// logical-index GET_INDEX/SET_INDEX path above and the cursor-based
// writeByte/writeShort/writeInt/writeFloat method family in
// builtins_methods.go -- both address the same raw byte store, just with
// different offset bookkeeping (element index vs. running cursor).
func decodeElem(t BufferElemType, d []byte) Value {
	switch t {
	case BufU8:
		return Byte(d[0])
	case BufI16:
		return Int(int32(int16(uint16(d[0]) | uint16(d[1])<<8)))
	case BufU16:
		return Uint(uint32(uint16(d[0]) | uint16(d[1])<<8))
	case BufI32:
		return Int(int32(leU32(d)))
	case BufU32:
		return Uint(leU32(d))
	case BufF32:
		return Float32(f32frombits(leU32(d)))
	case BufF64:
		return Float64(f64frombits(leU64(d)))
	}
	return Nil
}

func encodeElem(t BufferElemType, d []byte, v Value) {
	switch t {
	case BufU8:
		d[0] = byte(v.AsIntCoerced())
	case BufI16, BufU16:
		putLeU16(d, uint16(v.AsIntCoerced()))
	case BufI32, BufU32:
		putLeU32(d, uint32(v.AsIntCoerced()))
	case BufF32:
		putLeU32(d, f32bits(float32(v.AsDoubleCoerced())))
	case BufF64:
		putLeU64(d, f64bits(v.AsDoubleCoerced()))
	}
}

// --- Struct blueprint / instance ------------------------------------------

type StructBlueprint struct {
	Name       string
	FieldNames []string
	FieldIndex map[string]int
}

func (o *Obj) AsStructBlueprint() *StructBlueprint { return o.Payload.(*StructBlueprint) }

type StructInstance struct {
	Blueprint *StructBlueprint
	Fields    []Value
}

func (o *Obj) AsStructInstance() *StructInstance { return o.Payload.(*StructInstance) }

// --- Function --------------------------------------------------------------

// Function is the runtime counterpart of a bytecode.FunctionProto: metadata
// for a callable unit (spec §3, "Function & closure" component).
type Function struct {
	Name     string
	Arity    int
	Proto    *bytecode.FunctionProto
	IsMethod bool

	// obj back-references the heap Obj NewFunction wrapped this Function in,
	// so code holding only the raw *Function (a ClassBlueprint method table
	// entry, a ProcessDef.Root, a Closure.Function) can still hand the GC a
	// markable Value for it (spec §4.4 phase 1).
	obj *Obj
}

// AsRoot produces the markable Value for a Function reached through a raw
// *Function field rather than through an ordinary script Value.
func (f *Function) AsRoot() Value { return Value{Kind: KindFunction, Obj: f.obj} }

func (o *Obj) AsFunction() *Function { return o.Payload.(*Function) }

type NativeFn func(vm *VM, args []Value) (Value, *DuskError)

type NativeFunction struct {
	Name  string
	Arity int // -1 disables arity checking
	Fn    NativeFn
}

func (o *Obj) AsNativeFunction() *NativeFunction { return o.Payload.(*NativeFunction) }

// --- Closure / Upvalue -----------------------------------------------------

type Closure struct {
	Function *Function
	Upvalues []*Upvalue
}

func (o *Obj) AsClosure() *Closure { return o.Payload.(*Closure) }

// Upvalue is open while Location points into a live process's value stack,
// and closed once it owns its value directly (spec §3).
type Upvalue struct {
	Location *Value // points into Process.stack while open
	Closed   Value
	open     bool
	proc     *Process
	slot     int // index into proc.stack, used to dedupe/order open upvalues
}

func (o *Obj) AsUpvalue() *Upvalue { return o.Payload.(*Upvalue) }

func (u *Upvalue) Get() Value {
	if u.open {
		return *u.Location
	}
	return u.Closed
}

func (u *Upvalue) Set(v Value) {
	if u.open {
		*u.Location = v
		return
	}
	u.Closed = v
}

func (u *Upvalue) close() {
	u.Closed = *u.Location
	u.Location = &u.Closed
	u.open = false
}
