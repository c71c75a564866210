// Package vm implements the CORE bytecode execution engine: opcode
// dispatch, the tagged value/object model, the process/frame scheduler,
// the mark-and-sweep garbage collector, the string pool, and the host
// embedding boundary (spec §§3-4, 9).
package vm

import (
	"duskvm/internal/bytecode"
	"duskvm/internal/diag"
	"duskvm/internal/errors"
	"duskvm/internal/vmconfig"
)

// VMHooks carries optional embedder callbacks fired on process spawn and
// teardown (spec §6).
type VMHooks struct {
	OnCreate  func(vm *VM, p *Process)
	OnDestroy func(vm *VM, p *Process, exitCode int64)
}

// VM is the embeddable interpreter: owner of the string pool, the heap,
// the global table, every registered blueprint/native surface, and the
// set of currently alive processes.
type VM struct {
	Config vmconfig.Config
	Log    *diag.Logger
	Hooks  VMHooks

	Pool *StringPool
	Heap *Heap

	globals     []Value
	globalMap   map[string]int
	globalNames []string

	natives map[string]*NativeFunction

	classes      map[string]*ClassBlueprint
	structs      map[string]*StructBlueprint
	nativeClass  map[string]*NativeClass
	nativeStruct map[string]*NativeStruct
	processDefs  []*ProcessDef
	processByName map[string]int

	modules map[string]*Module

	aliveProcesses []*Process
	nextProcessID  int

	mainProcess *Process

	lastError *errors.DuskError

	// iterCursors tracks FOR-loop iteration position per container object,
	// keyed by heap identity rather than stored on Array/Map themselves so
	// two concurrent iterations over independently-referenced containers
	// never collide (spec §4.6, OP_ITER_NEXT/OP_ITER_VALUE).
	iterCursors map[*Obj]int
}

// NewVM constructs a VM with its string pool, heap, and registries
// initialized and the main process (id 0, per spec §3) created.
func NewVM(cfg vmconfig.Config) *VM {
	v := &VM{
		Config:        cfg,
		Log:           diag.Stderr(cfg.Debug),
		Pool:          NewStringPool(),
		Heap:          NewHeap(),
		globalMap:     make(map[string]int),
		natives:       make(map[string]*NativeFunction),
		classes:       make(map[string]*ClassBlueprint),
		structs:       make(map[string]*StructBlueprint),
		nativeClass:   make(map[string]*NativeClass),
		nativeStruct:  make(map[string]*NativeStruct),
		processByName: make(map[string]int),
		modules:       make(map[string]*Module),
		nextProcessID: 1,
	}
	v.mainProcess = newProcess(0)
	v.mainProcess.Name = "main"
	v.mainProcess.BlueprintID = -1
	v.aliveProcesses = append(v.aliveProcesses, v.mainProcess)
	return v
}

func (v *VM) MainProcess() *Process { return v.mainProcess }

// SpawnMain installs fn as the root frame of an already-created process
// (normally the VM's main process) and marks it running -- the entry point
// a host uses to start the top-level program, as opposed to spawnProcess
// which clones a registered ProcessDef (spec §3: the main process is not
// itself an instance of any blueprint).
func (v *VM) SpawnMain(p *Process, fn *Function) {
	p.frames[0] = CallFrame{Function: fn, IP: 0, Slots: 0}
	p.frameCount = 1
	p.State = StateRunning
}

// --- Globals ---------------------------------------------------------------

// DefineGlobal allocates (or reuses) a named global slot, storing name so
// diagnostics and getGlobal/setGlobal-by-name can resolve it (spec §6,
// "Global name table").
func (v *VM) DefineGlobal(name string, val Value) int {
	if idx, ok := v.globalMap[name]; ok {
		v.globals[idx] = val
		return idx
	}
	idx := len(v.globals)
	v.globals = append(v.globals, val)
	v.globalNames = append(v.globalNames, name)
	v.globalMap[name] = idx
	return idx
}

func (v *VM) GetGlobalIndex(idx int) Value   { return v.globals[idx] }
func (v *VM) SetGlobalIndex(idx int, val Value) { v.globals[idx] = val }

func (v *VM) GetGlobalByName(name string) (Value, bool) {
	idx, ok := v.globalMap[name]
	if !ok {
		return Nil, false
	}
	return v.globals[idx], true
}

func (v *VM) SetGlobalByName(name string, val Value) bool {
	idx, ok := v.globalMap[name]
	if !ok {
		return false
	}
	v.globals[idx] = val
	return true
}

// --- Object construction ---------------------------------------------------
// Every constructor here follows spec §4.3: check GC pressure, allocate,
// link into the heap, account, return a tagged Value.

func (v *VM) maybeCollectGC() {
	if v.Heap.ShouldCollect() {
		v.CollectGarbage()
	}
}

func (v *VM) NewArray(elements []Value) Value {
	v.maybeCollectGC()
	arr := &Array{Elements: elements}
	o := v.Heap.alloc(ObjArray, arr, 32+len(elements)*8)
	return Value{Kind: KindArray, Obj: o}
}

func (v *VM) NewMap() Value {
	v.maybeCollectGC()
	m := NewMapObj()
	o := v.Heap.alloc(ObjMap, m, 48)
	return Value{Kind: KindMap, Obj: o}
}

func (v *VM) NewBuffer(elemType BufferElemType, count int) Value {
	v.maybeCollectGC()
	buf := NewBuffer(elemType, count)
	o := v.Heap.alloc(ObjBuffer, buf, len(buf.Data)+16)
	return Value{Kind: KindBuffer, Obj: o}
}

func (v *VM) NewClosure(fn *Function, upvalues []*Upvalue) Value {
	v.maybeCollectGC()
	cl := &Closure{Function: fn, Upvalues: upvalues}
	o := v.Heap.alloc(ObjClosure, cl, 24+len(upvalues)*8)
	return Value{Kind: KindClosure, Obj: o}
}

func (v *VM) newUpvalue(proc *Process, slot int) *Upvalue {
	up := &Upvalue{Location: &proc.stack[slot], open: true, proc: proc, slot: slot}
	v.Heap.alloc(ObjUpvalue, up, 24)
	return up
}

func (v *VM) NewFunction(name string, proto *bytecode.FunctionProto) *Function {
	fn := &Function{Name: name, Arity: proto.Arity, Proto: proto}
	fn.obj = v.Heap.alloc(ObjFunction, fn, 48)
	return fn
}

func (v *VM) NewStructInstance(bp *StructBlueprint, args []Value) Value {
	v.maybeCollectGC()
	fields := make([]Value, len(bp.FieldNames))
	for i := range fields {
		if i < len(args) {
			fields[i] = args[i]
		} else {
			fields[i] = Nil
		}
	}
	inst := &StructInstance{Blueprint: bp, Fields: fields}
	o := v.Heap.alloc(ObjStructInstance, inst, 32+len(fields)*8)
	return Value{Kind: KindStructInstance, Obj: o}
}

// --- Blueprint / native surface registration (spec §4.9's registerX calls
// all eventually produce one of these tagged Values, stored in a global by
// internal/host's registration wrappers) -------------------------------------

func (v *VM) RegisterProcessDef(def *ProcessDef) Value {
	def.ID = len(v.processDefs)
	v.processDefs = append(v.processDefs, def)
	v.processByName[def.Name] = def.ID
	o := v.Heap.alloc(ObjProcessBlueprint, def, 32)
	return Value{Kind: KindProcessBlueprint, Obj: o}
}

func (v *VM) RegisterStructBlueprint(bp *StructBlueprint) Value {
	if bp.FieldIndex == nil {
		bp.FieldIndex = make(map[string]int, len(bp.FieldNames))
		for i, n := range bp.FieldNames {
			bp.FieldIndex[n] = i
		}
	}
	v.structs[bp.Name] = bp
	o := v.Heap.alloc(ObjStructBlueprint, bp, 32)
	return Value{Kind: KindStructBlueprint, Obj: o}
}

func (v *VM) RegisterClassBlueprint(bp *ClassBlueprint) Value {
	if bp.FieldIndex == nil {
		bp.FieldIndex = make(map[string]int, len(bp.FieldNames))
		for i, n := range bp.FieldNames {
			bp.FieldIndex[n] = i
		}
	}
	v.classes[bp.Name] = bp
	o := v.Heap.alloc(ObjClassBlueprint, bp, 48)
	return Value{Kind: KindClassBlueprint, Obj: o}
}

func (v *VM) RegisterNativeClass(nc *NativeClass) Value {
	v.nativeClass[nc.Name] = nc
	o := v.Heap.alloc(ObjNativeClass, nc, 32)
	return Value{Kind: KindNativeClass, Obj: o}
}

func (v *VM) RegisterNativeStruct(ns *NativeStruct) Value {
	v.nativeStruct[ns.Name] = ns
	o := v.Heap.alloc(ObjNativeStruct, ns, 32)
	return Value{Kind: KindNativeStruct, Obj: o}
}

func (v *VM) RegisterNativeFunction(nf *NativeFunction) Value {
	v.natives[nf.Name] = nf
	o := v.Heap.alloc(ObjNativeFunction, nf, 32)
	return Value{Kind: KindNativeFunction, Obj: o}
}

func (v *VM) NativeFunctionByName(name string) (*NativeFunction, bool) {
	nf, ok := v.natives[name]
	return nf, ok
}

// CollectGarbage runs one mark-and-sweep pass rooted in every live
// process's stack/frames/privates, the globals array, every script
// function's captured closures, and the class/struct/process-blueprint
// registries (spec §4.4 phase 1).
func (v *VM) CollectGarbage() {
	v.Heap.Collect(func(mark func(Value)) {
		for _, g := range v.globals {
			mark(g)
		}
		for _, p := range v.aliveProcesses {
			v.markProcess(p, mark)
		}
		v.markRegistries(mark)
	})
}

// markRegistries roots every registered blueprint's own nested Values, not
// just the blueprint object a global might point to: a class is ordinarily
// kept alive through the global its declaration binds, but blacken never
// descends into an ObjClassBlueprint/ObjProcessBlueprint payload, so a
// class's field-default expressions (spec §3's "default" on a field decl)
// or a method/process-root Function would otherwise be swept the moment no
// live instance or closure happens to reference them yet (spec §4.4 phase
// 1's "class-field-default lists, registered-class method tables, and
// process blueprint captures").
func (v *VM) markRegistries(mark func(Value)) {
	for _, bp := range v.classes {
		for _, d := range bp.FieldDefaults {
			mark(d)
		}
		for _, fn := range bp.Methods {
			mark(fn.AsRoot())
		}
	}
	for _, def := range v.processDefs {
		if def.Root != nil {
			mark(def.Root.AsRoot())
		}
	}
}

func (v *VM) markProcess(p *Process, mark func(Value)) {
	for i := 0; i < p.stackTop; i++ {
		mark(p.stack[i])
	}
	for i := 0; i < MaxPrivates; i++ {
		mark(p.Privates[i])
	}
	for i := 0; i < p.frameCount; i++ {
		f := &p.frames[i]
		for _, up := range f.openUps {
			mark(up.Get())
		}
	}
	for _, h := range p.tryHandlers {
		if h.HasPending {
			mark(h.PendingError)
		}
		for _, rv := range h.PendingReturn {
			mark(rv)
		}
	}
}
