package vm

// ClassBlueprint carries the fields, methods, and optional superclasses of
// a class declaration (spec §3). Method resolution walks ScriptSuper first,
// then NativeSuper's method table.
type ClassBlueprint struct {
	Name          string
	FieldNames    []string
	FieldDefaults []Value // parallel to FieldNames; KindNil if no default expr
	FieldIndex    map[string]int
	Methods       map[string]*Function
	ScriptSuper   *ClassBlueprint
	NativeSuper   *NativeClass
}

func (o *Obj) AsClassBlueprint() *ClassBlueprint { return o.Payload.(*ClassBlueprint) }

// ResolveMethod walks the script superclass chain first, then the native
// superclass's method table, per spec §3/§4.6.
func (c *ClassBlueprint) ResolveMethod(name string) (*Function, *NativeMethod, bool) {
	for cur := c; cur != nil; cur = cur.ScriptSuper {
		if m, ok := cur.Methods[name]; ok {
			return m, nil, true
		}
	}
	if c.NativeSuper != nil {
		if m, ok := c.NativeSuper.Methods[name]; ok {
			return nil, m, true
		}
	}
	return nil, nil, false
}

// ClassInstance holds a blueprint pointer, a dense field-value array, and
// (when any ancestor is a native class) an opaque native user-data pointer.
type ClassInstance struct {
	Blueprint *ClassBlueprint
	Fields    []Value
	NativeData interface{}
}

func (o *Obj) AsClassInstance() *ClassInstance { return o.Payload.(*ClassInstance) }

// --- Native class / struct registry ---------------------------------------

type NativeCtor func(vm *VM, args []Value) (interface{}, *DuskError)
type NativeDtor func(userData interface{})

type NativeMethod struct {
	Name  string
	Arity int
	Fn    func(vm *VM, self interface{}, args []Value) (Value, *DuskError)
}

type NativeProperty struct {
	Name   string
	Getter func(vm *VM, self interface{}) (Value, *DuskError)
	Setter func(vm *VM, self interface{}, v Value) *DuskError // nil => read-only
}

// NativeClass is a host-provided type surface usable from script, spec §4.9.
type NativeClass struct {
	Name       string
	Ctor       NativeCtor
	Dtor       NativeDtor
	Arity      int
	Persistent bool // excludes instances from GC reclamation
	Methods    map[string]*NativeMethod
	Properties map[string]*NativeProperty
}

func (o *Obj) AsNativeClass() *NativeClass { return o.Payload.(*NativeClass) }

type NativeClassInstance struct {
	Class    *NativeClass
	UserData interface{}
}

func (o *Obj) AsNativeClassInstance() *NativeClassInstance { return o.Payload.(*NativeClassInstance) }

// PrimitiveType names the primitive a native struct field marshals through
// its offset, per spec §4.9/§9 ("native struct marshalling").
type PrimitiveType uint8

const (
	PrimI8 PrimitiveType = iota
	PrimU8
	PrimI16
	PrimU16
	PrimI32
	PrimU32
	PrimF32
	PrimF64
	PrimBool
)

type StructFieldDef struct {
	Name      string
	Offset    int
	Type      PrimitiveType
	ReadOnly  bool
}

type NativeStruct struct {
	Name       string
	Size       int
	Ctor       func(vm *VM, data []byte, args []Value) *DuskError
	Dtor       NativeDtor
	Persistent bool
	Fields     map[string]*StructFieldDef
}

func (o *Obj) AsNativeStruct() *NativeStruct { return o.Payload.(*NativeStruct) }

type NativeStructInstance struct {
	Def  *NativeStruct
	Data []byte
}

func (o *Obj) AsNativeStructInstance() *NativeStructInstance { return o.Payload.(*NativeStructInstance) }

// ReadField marshals a primitive field directly through the byte buffer.
func (n *NativeStructInstance) ReadField(f *StructFieldDef) Value {
	b := n.Data[f.Offset:]
	switch f.Type {
	case PrimI8:
		return Int(int32(int8(b[0])))
	case PrimU8:
		return Byte(b[0])
	case PrimI16:
		return Int(int32(int16(uint16(b[0]) | uint16(b[1])<<8)))
	case PrimU16:
		return Uint(uint32(uint16(b[0]) | uint16(b[1])<<8))
	case PrimI32:
		return Int(int32(leU32(b)))
	case PrimU32:
		return Uint(leU32(b))
	case PrimF32:
		return Float32(f32frombits(leU32(b)))
	case PrimF64:
		return Float64(f64frombits(leU64(b)))
	case PrimBool:
		return Bool(b[0] != 0)
	}
	return Nil
}

// WriteField marshals v into the byte buffer at f's offset, coercing to the
// field's primitive type.
func (n *NativeStructInstance) WriteField(f *StructFieldDef, v Value) {
	b := n.Data[f.Offset:]
	switch f.Type {
	case PrimI8, PrimU8, PrimBool:
		b[0] = byte(v.AsIntCoerced())
	case PrimI16, PrimU16:
		putLeU16(b, uint16(v.AsIntCoerced()))
	case PrimI32, PrimU32:
		putLeU32(b, uint32(v.AsIntCoerced()))
	case PrimF32:
		putLeU32(b, f32bits(float32(v.AsDoubleCoerced())))
	case PrimF64:
		putLeU64(b, f64bits(v.AsDoubleCoerced()))
	}
}

func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
func leU64(b []byte) uint64 {
	return uint64(leU32(b)) | uint64(leU32(b[4:]))<<32
}
func putLeU16(b []byte, v uint16) { b[0] = byte(v); b[1] = byte(v >> 8) }
func putLeU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
func putLeU64(b []byte, v uint64) {
	putLeU32(b, uint32(v))
	putLeU32(b[4:], uint32(v>>32))
}
