package vm

import (
	"testing"

	"duskvm/internal/bytecode"
	"duskvm/internal/vmconfig"
)

// TestCollectGarbageKeepsClassFieldDefaultsAlive covers spec §4.4 phase 1's
// registry roots: a class's array-valued field default must survive a
// collection that runs before any instance has been constructed from it --
// nothing else references the array, only bp.FieldDefaults does.
func TestCollectGarbageKeepsClassFieldDefaultsAlive(t *testing.T) {
	vmm := NewVM(vmconfig.Minimal())

	defaultArr := vmm.NewArray([]Value{Int(1), Int(2), Int(3)})
	bp := &ClassBlueprint{
		Name:          "Widget",
		FieldNames:    []string{"tags"},
		FieldDefaults: []Value{defaultArr},
	}
	vmm.RegisterClassBlueprint(bp)
	defaultArr = Nil
	_ = defaultArr

	before := vmm.Heap.Count(ObjArray)
	vmm.CollectGarbage()
	after := vmm.Heap.Count(ObjArray)
	if after != before {
		t.Fatalf("expected the class's field-default array to survive GC (count %d -> %d), it was swept while still reachable only from the class registry", before, after)
	}

	tags := bp.FieldDefaults[0]
	if len(tags.Obj.AsArray().Elements) != 3 {
		t.Fatalf("expected the surviving default array to still have 3 elements, got %d", len(tags.Obj.AsArray().Elements))
	}
}

// TestCollectGarbageKeepsProcessBlueprintRootAlive covers the same root gap
// for a process blueprint's Root function: it is reached only through the
// blueprint registry, never through an ordinary script Value, so blacken
// must be told about it explicitly (spec §4.4 phase 1).
func TestCollectGarbageKeepsProcessBlueprintRootAlive(t *testing.T) {
	vmm := NewVM(vmconfig.Minimal())

	body := newAsm("worker")
	body.op(bytecode.OpFrame)
	def := &ProcessDef{Name: "worker"}
	def.Root = vmm.NewFunction("worker", body.proto("worker", 0))
	vmm.RegisterProcessDef(def)

	before := vmm.Heap.Count(ObjFunction)
	vmm.CollectGarbage()
	after := vmm.Heap.Count(ObjFunction)
	if after != before {
		t.Fatalf("expected the process blueprint's Root function to survive GC (count %d -> %d)", before, after)
	}
}
