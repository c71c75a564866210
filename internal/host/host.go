// Package host is the embedding boundary spec §4.9 describes: the surface a
// Go program hosting duskvm uses to register native functions, classes,
// structs, and processes, and to call back into running script from native
// code. Nothing here is reachable from script directly -- it is the
// mirror image of internal/vm's opcode dispatch, grounded the same way
// sentra's cmd/sentra wires native builtins into its VM before running a
// program.
package host

import (
	"duskvm/internal/vm"
	"duskvm/internal/vmconfig"
)

// Host wraps a *vm.VM with the registration and re-entrant call API an
// embedder uses. Script code never sees a Host value; it only sees the
// globals, classes, and modules a Host set up.
type Host struct {
	VM *vm.VM
}

// New constructs a Host around a fresh VM configured by cfg.
func New(cfg vmconfig.Config) *Host {
	return &Host{VM: vm.NewVM(cfg)}
}

// --- Native functions --------------------------------------------------

// RegisterNative exposes a Go function to script under name, with the given
// arity (-1 disables arity checking), and binds it as a global so an
// unqualified call in script resolves to it directly (spec §4.9
// registerNative).
func (h *Host) RegisterNative(name string, arity int, fn vm.NativeFn) vm.Value {
	v := h.VM.RegisterNativeFunction(&vm.NativeFunction{Name: name, Arity: arity, Fn: fn})
	h.VM.DefineGlobal(name, v)
	return v
}

// --- Native classes ------------------------------------------------------

// ClassBuilder accumulates methods and properties for a native class
// registration before the class is usable from script.
type ClassBuilder struct {
	host *Host
	nc   *vm.NativeClass
}

// RegisterNativeClass begins registering a Go-backed class under name
// (spec §4.9 registerNativeClass). ctor builds the instance's opaque user
// data from constructor args; dtor, if non-nil, runs when the GC reclaims
// an unreferenced instance.
func (h *Host) RegisterNativeClass(name string, arity int, ctor vm.NativeCtor, dtor vm.NativeDtor) *ClassBuilder {
	nc := &vm.NativeClass{
		Name:       name,
		Ctor:       ctor,
		Dtor:       dtor,
		Arity:      arity,
		Methods:    make(map[string]*vm.NativeMethod),
		Properties: make(map[string]*vm.NativeProperty),
	}
	v := h.VM.RegisterNativeClass(nc)
	h.VM.DefineGlobal(name, v)
	return &ClassBuilder{host: h, nc: nc}
}

// Persistent excludes every instance of this class from GC reclamation --
// for native classes that wrap a resource the host itself owns the
// lifetime of (spec §4.9).
func (b *ClassBuilder) Persistent() *ClassBuilder {
	b.nc.Persistent = true
	return b
}

// AddMethod attaches a native method callable from script as
// instance.name(...) (spec §4.9 addNativeMethod).
func (b *ClassBuilder) AddMethod(name string, arity int, fn func(vm *vm.VM, self interface{}, args []vm.Value) (vm.Value, *vm.DuskError)) *ClassBuilder {
	b.nc.Methods[name] = &vm.NativeMethod{Name: name, Arity: arity, Fn: fn}
	return b
}

// AddProperty attaches a native getter/setter pair reachable as
// instance.name (spec §4.9 addNativeProperty). A nil setter makes the
// property read-only.
func (b *ClassBuilder) AddProperty(name string,
	getter func(vm *vm.VM, self interface{}) (vm.Value, *vm.DuskError),
	setter func(vm *vm.VM, self interface{}, v vm.Value) *vm.DuskError,
) *ClassBuilder {
	b.nc.Properties[name] = &vm.NativeProperty{Name: name, Getter: getter, Setter: setter}
	return b
}

// --- Native structs --------------------------------------------------------

// StructBuilder accumulates field layout for a native struct registration.
type StructBuilder struct {
	host *Host
	ns   *vm.NativeStruct
}

// RegisterNativeStruct begins registering a fixed-size, byte-addressed
// native struct type under name (spec §4.9 registerNativeStruct / §9
// "native struct marshalling"). size is the backing buffer's length in
// bytes; ctor runs once per instance to populate initial field values.
func (h *Host) RegisterNativeStruct(name string, size int, ctor func(vm *vm.VM, data []byte, args []vm.Value) *vm.DuskError) *StructBuilder {
	ns := &vm.NativeStruct{Name: name, Size: size, Ctor: ctor, Fields: make(map[string]*vm.StructFieldDef)}
	v := h.VM.RegisterNativeStruct(ns)
	h.VM.DefineGlobal(name, v)
	return &StructBuilder{host: h, ns: ns}
}

// Persistent excludes every instance of this struct from GC reclamation.
func (b *StructBuilder) Persistent() *StructBuilder {
	b.ns.Persistent = true
	return b
}

// AddField declares one byte-offset field of the given primitive type
// (spec §4.9 addStructField). readOnly fields reject script-side writes.
func (b *StructBuilder) AddField(name string, offset int, typ vm.PrimitiveType, readOnly bool) *StructBuilder {
	b.ns.Fields[name] = &vm.StructFieldDef{Name: name, Offset: offset, Type: typ, ReadOnly: readOnly}
	return b
}

// --- Native (host-driven) processes ----------------------------------------

// RegisterNativeProcess registers a process blueprint whose body is a Go
// callback rather than script bytecode (spec §4.9 registerNativeProcess):
// spawning it runs root to completion immediately and the resulting
// process is dead the instant spawn() or callProcess() returns. This is
// meant for host-internal background work an embedder wants addressed
// through the ordinary process/signal vocabulary (ProcessByID,
// SignalByBlueprint) without writing it in script.
func (h *Host) RegisterNativeProcess(name string, root func(vm *vm.VM, p *vm.Process, args []vm.Value) (int64, *vm.DuskError)) vm.Value {
	def := &vm.ProcessDef{Name: name, NativeRoot: root}
	v := h.VM.RegisterProcessDef(def)
	h.VM.DefineGlobal(name, v)
	return v
}

// --- Modules ----------------------------------------------------------------

// ModuleBuilder accumulates functions for a named native module (spec §4.9
// addModule), grounded on sentra/internal/module's ModuleLoader pattern of
// a per-module exports table the compiler resolves import statements
// against.
type ModuleBuilder struct {
	host   *Host
	module *vm.Module
}

// AddModule begins (or resumes) registering a module under name.
func (h *Host) AddModule(name string) *ModuleBuilder {
	return &ModuleBuilder{host: h, module: h.VM.AddModule(name)}
}

// AddFunction attaches a native function to the module, reachable from
// script as name.fn(...) once the module is imported.
func (b *ModuleBuilder) AddFunction(name string, arity int, fn vm.NativeFn) vm.Value {
	return b.module.AddFunction(&vm.NativeFunction{Name: name, Arity: arity, Fn: fn})
}

// --- Re-entrant calls (spec §4.9's CALL_RETURN boundary) --------------------

// CallFunction invokes fn (a function or closure Value) on the VM's main
// process and blocks until it resolves, for a host that needs to call back
// into script synchronously -- e.g. firing a registered script callback in
// response to a native event.
func (h *Host) CallFunction(fn vm.Value, args []vm.Value) (vm.Value, *vm.DuskError) {
	return h.VM.CallSync(h.VM.MainProcess(), fn, args)
}

// CallFunctionOn is CallFunction against a specific process rather than
// the main process, for callbacks fired while that process is itself
// mid-native-call.
func (h *Host) CallFunctionOn(p *vm.Process, fn vm.Value, args []vm.Value) (vm.Value, *vm.DuskError) {
	return h.VM.CallSync(p, fn, args)
}

// CallMethod invokes receiver.method(args...) synchronously, the re-entrant
// counterpart of OP_INVOKE.
func (h *Host) CallMethod(receiver vm.Value, method string, args []vm.Value) (vm.Value, *vm.DuskError) {
	return h.VM.InvokeSync(h.VM.MainProcess(), receiver, method, args)
}

// CallProcess spawns def and runs it to completion before returning its
// exit code -- spawn+run-to-completion as one blocking call, rather than
// scheduling it onto the normal Tick loop (spec §4.9 callProcess).
func (h *Host) CallProcess(blueprint vm.Value, args []vm.Value) (int64, *vm.DuskError) {
	def := blueprint.Obj.Payload.(*vm.ProcessDef)
	return h.VM.SpawnAndRun(def, args)
}

// --- Scheduler passthroughs --------------------------------------------------

// Spawn schedules the blueprint onto the normal process list without
// running it; the embedder's own Tick loop (or Run) advances it
// cooperatively. This goes through the same CALL-on-a-process-blueprint
// path OP_CALL uses for a script-side spawn expression, so host-initiated
// and script-initiated spawns behave identically.
func (h *Host) Spawn(blueprint vm.Value, args []vm.Value) (vm.Value, *vm.DuskError) {
	return h.VM.CallSync(h.VM.MainProcess(), blueprint, args)
}

// Tick advances every RUNNING process one step (spec §4.7).
func (h *Host) Tick() { h.VM.Tick() }

// Run drives Tick until no process remains alive, the blocking run-loop an
// embedder uses for a script with no host-level scheduling needs of its
// own.
func (h *Host) Run() {
	for h.VM.AliveProcessCount() > 0 {
		h.VM.Tick()
	}
}
