package vm

import (
	"testing"

	"duskvm/internal/bytecode"
	"duskvm/internal/vmconfig"
)

// asm is a minimal hand-rolled bytecode assembler for tests -- CORE has no
// source-level compiler to lean on, so every scenario builds its Chunk
// directly the way a real front-end's code generator would.
type asm struct {
	c *Chunk0
}

// Chunk0 aliases bytecode.Chunk so test helpers read a little shorter.
type Chunk0 = bytecode.Chunk

func newAsm(name string) *asm {
	return &asm{c: bytecode.NewChunk(name)}
}

func (a *asm) op(op bytecode.OpCode)        { a.c.WriteOp(op, bytecode.DebugInfo{}) }
func (a *asm) b(v byte)                     { a.c.WriteByte(v, bytecode.DebugInfo{}) }
func (a *asm) u16(v uint16)                 { a.c.WriteU16(v, bytecode.DebugInfo{}) }
func (a *asm) constIdx(v interface{}) int   { return a.c.AddConstant(v) }
func (a *asm) pushConst(v interface{}) {
	a.op(bytecode.OpConstant)
	a.u16(uint16(a.constIdx(v)))
}

func (a *asm) proto(name string, arity int) *bytecode.FunctionProto {
	return &bytecode.FunctionProto{Name: name, Arity: arity, Chunk: a.c}
}

func newTestVM() *VM {
	return NewVM(vmconfig.Minimal())
}

func runMain(t *testing.T, vmm *VM, proto *bytecode.FunctionProto) *Process {
	t.Helper()
	p := vmm.MainProcess()
	fn := vmm.NewFunction(proto.Name, proto)
	vmm.SpawnMain(p, fn)
	if _, err := vmm.RunProcess(p); err != nil {
		t.Fatalf("RunProcess: %v", err)
	}
	return p
}

func TestArithmeticCoercion(t *testing.T) {
	vmm := newTestVM()

	// int + int stays integer.
	sum := vmm.performAdd(Int(1), Int(2))
	if sum.Kind != KindInt || sum.AsIntCoerced() != 3 {
		t.Fatalf("expected integer 3, got %v (%v)", sum.Kind, sum.AsIntCoerced())
	}

	// int + float widens both operands to double.
	widened := vmm.performAdd(Int(1), Float64(2.5))
	if widened.Kind != KindDouble || widened.AsDoubleCoerced() != 3.5 {
		t.Fatalf("expected double 3.5, got %v (%v)", widened.Kind, widened.AsDoubleCoerced())
	}

	// end to end through the interpreter: 40 + 2 then OP_EXIT.
	a := newAsm("coerce")
	a.pushConst(int64(40))
	a.pushConst(int64(2))
	a.op(bytecode.OpAdd)
	a.op(bytecode.OpExit)
	p := runMain(t, vmm, a.proto("coerce", 0))
	if p.exitCode != 42 {
		t.Fatalf("expected exit code 42, got %d", p.exitCode)
	}
}

func TestStringConcatCoercesNonString(t *testing.T) {
	vmm := newTestVM()
	got := vmm.performAdd(vmm.Pool.Create("n="), Int(7))
	if vmm.Pool.Content(got) != "n=7" {
		t.Fatalf("expected concatenated string, got %q", vmm.Pool.Content(got))
	}
}

func TestFinallyRunsOnExceptionThenRethrows(t *testing.T) {
	// try { throw "boom" } finally { marker = true } -- the finally block
	// must run before the exception keeps propagating past it uncaught.
	vmm := newTestVM()
	markerIdx := vmm.DefineGlobal("marker", Bool(false))

	a := newAsm("tryfinally")
	tryPos := a.c.Len()
	a.op(bytecode.OpTry)
	a.u16(0xFFFF) // no catch
	a.u16(0)      // finally target patched below
	finallyOperandAt := tryPos + 3

	a.pushConst("boom")
	a.op(bytecode.OpThrow)

	finallyIP := a.c.Len()
	a.c.PatchU16(finallyOperandAt, uint16(finallyIP))
	a.op(bytecode.OpEnterFinally)
	a.pushConst(true)
	a.op(bytecode.OpSetGlobal)
	a.u16(uint16(markerIdx))
	a.op(bytecode.OpPop)
	a.op(bytecode.OpExitFinally)

	p := vmm.MainProcess()
	fn := vmm.NewFunction("tryfinally", a.proto("tryfinally", 0))
	vmm.SpawnMain(p, fn)

	result, _ := vmm.RunProcess(p)
	if result != ResultError {
		t.Fatalf("expected the rethrown exception to kill the process, got %v", result)
	}
	if !vmm.GetGlobalIndex(markerIdx).IsTruthy() {
		t.Fatalf("expected the finally block to run before the exception escaped")
	}
}

func TestReturnInsideTryRunsFinallyBeforeExiting(t *testing.T) {
	// def f() { try { return 1 } finally { marker = 2 } }
	// f() + marker must be 3 -- the finally has to run, and its side effect
	// has to be visible, before the return actually unwinds the frame.
	vmm := newTestVM()
	markerIdx := vmm.DefineGlobal("marker", Int(0))

	callee := newAsm("f")
	tryPos := callee.c.Len()
	callee.op(bytecode.OpTry)
	callee.u16(0xFFFF) // no catch
	callee.u16(0)      // finally target patched below
	finallyOperandAt := tryPos + 3

	callee.pushConst(int64(1))
	callee.op(bytecode.OpReturn)

	finallyIP := callee.c.Len()
	callee.c.PatchU16(finallyOperandAt, uint16(finallyIP))
	callee.op(bytecode.OpEnterFinally)
	callee.pushConst(int64(2))
	callee.op(bytecode.OpSetGlobal)
	callee.u16(uint16(markerIdx))
	callee.op(bytecode.OpPop)
	callee.op(bytecode.OpExitFinally)
	calleeProto := callee.proto("f", 0)

	caller := newAsm("caller")
	calleeFn := caller.constIdx(calleeProto)
	caller.op(bytecode.OpClosure)
	caller.u16(uint16(calleeFn))
	caller.b(0) // no upvalues
	caller.op(bytecode.OpCall)
	caller.b(0) // argCount
	caller.op(bytecode.OpGetGlobal)
	caller.u16(uint16(markerIdx))
	caller.op(bytecode.OpAdd)
	caller.op(bytecode.OpExit)

	p := runMain(t, vmm, caller.proto("caller", 0))
	if p.exitCode != 3 {
		t.Fatalf("expected exit code 3 (finally's marker=2 plus the returned 1), got %d", p.exitCode)
	}
}

func TestExceptionPropagatesAcrossFrames(t *testing.T) {
	// callee throws; caller has no handler, so the process dies with
	// ResultError and the error is recorded on the VM.
	callee := newAsm("callee")
	callee.pushConst("boom")
	callee.op(bytecode.OpThrow)
	calleeProto := callee.proto("callee", 0)

	caller := newAsm("caller")
	calleeFn := caller.constIdx(calleeProto)
	caller.op(bytecode.OpClosure)
	caller.u16(uint16(calleeFn))
	caller.b(0) // no upvalues
	caller.op(bytecode.OpCall)
	caller.b(0) // argCount
	caller.op(bytecode.OpExit)

	vmm := newTestVM()
	p := vmm.MainProcess()
	fn := vmm.NewFunction("caller", caller.proto("caller", 0))
	vmm.SpawnMain(p, fn)

	result, _ := vmm.RunProcess(p)
	if result != ResultError {
		t.Fatalf("expected ResultError, got %v", result)
	}
	if p.State != StateDead {
		t.Fatalf("expected process to be dead after uncaught exception")
	}
}

func TestFrameYieldsOncePerTick(t *testing.T) {
	// A body that FRAMEs once and then exits yields on the first RunProcess
	// call and exits on the second.
	a := newAsm("ticker")
	a.pushConst(int64(0))
	a.op(bytecode.OpFrame)
	a.pushConst(int64(0))
	a.op(bytecode.OpExit)

	// Five independent FRAME-then-continue chunks chained by re-entering
	// RunProcess is awkward to hand-assemble as a true loop without a
	// compiler; instead verify the one-yield-per-RunProcess-call contract
	// directly, which is what Tick relies on.
	vmm := newTestVM()
	p := vmm.MainProcess()
	fn := vmm.NewFunction("ticker", a.proto("ticker", 0))
	vmm.SpawnMain(p, fn)

	result, err := vmm.RunProcess(p)
	if err != nil {
		t.Fatalf("RunProcess: %v", err)
	}
	if result != ResultYielded {
		t.Fatalf("expected ResultYielded from OP_FRAME, got %v", result)
	}

	result, err = vmm.RunProcess(p)
	if err != nil {
		t.Fatalf("RunProcess: %v", err)
	}
	if result != ResultExited {
		t.Fatalf("expected ResultExited after the second run, got %v", result)
	}
}

func TestSignalByBlueprintKillsOnlyMatchingProcesses(t *testing.T) {
	vmm := newTestVM()

	bodyA := newAsm("a")
	bodyA.op(bytecode.OpFrame)
	defA := &ProcessDef{Name: "alpha"}
	defA.Root = vmm.NewFunction("alpha", bodyA.proto("alpha", 0))
	vmm.RegisterProcessDef(defA)

	bodyB := newAsm("b")
	bodyB.op(bytecode.OpFrame)
	defB := &ProcessDef{Name: "beta"}
	defB.Root = vmm.NewFunction("beta", bodyB.proto("beta", 0))
	vmm.RegisterProcessDef(defB)

	if _, err := vmm.spawnProcess(defA, nil, nil); err != nil {
		t.Fatalf("spawn alpha: %v", err)
	}
	if _, err := vmm.spawnProcess(defA, nil, nil); err != nil {
		t.Fatalf("spawn alpha: %v", err)
	}
	if _, err := vmm.spawnProcess(defB, nil, nil); err != nil {
		t.Fatalf("spawn beta: %v", err)
	}

	killed := vmm.SignalByBlueprint(defA.ID, SigKill)
	if killed != 2 {
		t.Fatalf("expected 2 alpha processes killed, got %d", killed)
	}

	betaProcs := vmm.ProcessesByBlueprint(defB.ID)
	if len(betaProcs) != 1 || betaProcs[0].State == StateDead {
		t.Fatalf("beta process should be unaffected by signaling alpha")
	}
}

func TestProcSpawnPopulatesIDAndFatherPrivates(t *testing.T) {
	// PROC child() spawns a process whose "id" must be its own real ID and
	// whose "father" must be the spawning (main) process's ID -- both are
	// read-only privates per spec §3, not left as zero Values.
	vmm := newTestVM()

	child := newAsm("child")
	child.op(bytecode.OpFrame)
	def := &ProcessDef{Name: "child"}
	def.Root = vmm.NewFunction("child", child.proto("child", 0))
	vmm.RegisterProcessDef(def)

	caller := newAsm("caller")
	nameIdx := caller.constIdx("child")
	caller.op(bytecode.OpProc)
	caller.u16(uint16(nameIdx))
	caller.b(0) // argCount
	caller.op(bytecode.OpDup)
	idIdx := caller.constIdx("id")
	caller.op(bytecode.OpGetProperty)
	caller.u16(uint16(idIdx))
	caller.op(bytecode.OpExit)

	p := runMain(t, vmm, caller.proto("caller", 0))
	mainID := p.ID

	childProcs := vmm.ProcessesByBlueprint(def.ID)
	if len(childProcs) != 1 {
		t.Fatalf("expected exactly one spawned child process, got %d", len(childProcs))
	}
	child0 := childProcs[0]

	if p.exitCode != int64(child0.ID) {
		t.Fatalf("expected process.id to read back the real spawned ID %d, got %d", child0.ID, p.exitCode)
	}
	if got := child0.Privates[PrivFather].AsIntCoerced(); got != int64(mainID) {
		t.Fatalf("expected child's father private to be the spawning process's ID %d, got %d", mainID, got)
	}
}

func TestGarbageCollectionReclaimsUnreachableCycle(t *testing.T) {
	vmm := newTestVM()

	// Build two maps that reference each other but are reachable from
	// nowhere once the local variable holding them goes out of scope.
	m1 := vmm.NewMap()
	m2 := vmm.NewMap()
	m1.Obj.AsMap().Items["next"] = m2
	m2.Obj.AsMap().Items["next"] = m1

	before := vmm.Heap.Count(ObjMap)
	// drop every reference and collect
	m1, m2 = Nil, Nil
	_ = m1
	_ = m2
	vmm.CollectGarbage()
	after := vmm.Heap.Count(ObjMap)
	if after >= before {
		t.Fatalf("expected GC to reclaim the unreachable cycle: before=%d after=%d", before, after)
	}
}
