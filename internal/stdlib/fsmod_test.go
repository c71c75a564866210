package stdlib

import (
	"os"
	"path/filepath"
	"testing"

	"duskvm/internal/host"
	"duskvm/internal/vm"
	"duskvm/internal/vmconfig"
)

func TestFSSnapshotDiffAndWatchPoll(t *testing.T) {
	h := host.New(vmconfig.Minimal())
	registerFS(h)

	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	snapshot := moduleFn(t, h, "fs", "snapshot")
	diff := moduleFn(t, h, "fs", "diff")
	watch := moduleFn(t, h, "fs", "watch")
	poll := moduleFn(t, h, "fs", "poll")

	if _, err := h.CallFunction(snapshot, []vm.Value{h.VM.Pool.Create("f"), h.VM.Pool.Create(path)}); err != nil {
		t.Fatalf("fs.snapshot: %v", err)
	}

	if result, err := h.CallFunction(diff, []vm.Value{h.VM.Pool.Create("f"), h.VM.Pool.Create(path)}); err != nil || result.Kind != vm.KindNil {
		t.Fatalf("expected no diff for an unchanged file, got %v err=%v", result, err)
	}

	if err := os.WriteFile(path, []byte("v2"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	ev, err := h.CallFunction(diff, []vm.Value{h.VM.Pool.Create("f"), h.VM.Pool.Create(path)})
	if err != nil {
		t.Fatalf("fs.diff: %v", err)
	}
	if ev.Kind != vm.KindMap || h.VM.Pool.Content(ev.Obj.AsMap().Items["type"]) != "modified" {
		t.Fatalf("expected a modified event, got %v", ev)
	}

	if _, err := h.CallFunction(watch, []vm.Value{h.VM.Pool.Create("w"), h.VM.Pool.Create(dir), vm.Bool(false)}); err != nil {
		t.Fatalf("fs.watch: %v", err)
	}
	newFile := filepath.Join(dir, "new.txt")
	if err := os.WriteFile(newFile, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	events, err := h.CallFunction(poll, []vm.Value{h.VM.Pool.Create("w")})
	if err != nil {
		t.Fatalf("fs.poll: %v", err)
	}
	arr := events.Obj.AsArray()
	if len(arr.Elements) != 1 {
		t.Fatalf("expected one created event, got %d", len(arr.Elements))
	}
	created := arr.Elements[0].Obj.AsMap()
	if h.VM.Pool.Content(created.Items["type"]) != "created" {
		t.Fatalf("expected a created event, got %v", created.Items["type"])
	}
}
