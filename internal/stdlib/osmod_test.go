package stdlib

import (
	"os"
	"path/filepath"
	"testing"

	"duskvm/internal/host"
	"duskvm/internal/vm"
	"duskvm/internal/vmconfig"
)

func TestOSGetenvReadsProcessEnvironment(t *testing.T) {
	os.Setenv("DUSKVM_TEST_VAR", "hi")
	defer os.Unsetenv("DUSKVM_TEST_VAR")

	h := host.New(vmconfig.Minimal())
	registerOS(h, false)

	getenv := moduleFn(t, h, "os", "getenv")
	result, err := h.CallFunction(getenv, []vm.Value{h.VM.Pool.Create("DUSKVM_TEST_VAR")})
	if err != nil {
		t.Fatalf("os.getenv: %v", err)
	}
	if got := h.VM.Pool.Content(result); got != "hi" {
		t.Fatalf("expected %q, got %q", "hi", got)
	}
}

func TestOSFileIOWriteReadExistsRemove(t *testing.T) {
	h := host.New(vmconfig.Minimal())
	registerOS(h, true)

	writeFile := moduleFn(t, h, "os", "writeFile")
	readFile := moduleFn(t, h, "os", "readFile")
	exists := moduleFn(t, h, "os", "exists")
	remove := moduleFn(t, h, "os", "remove")

	path := filepath.Join(t.TempDir(), "note.txt")
	if _, err := h.CallFunction(writeFile, []vm.Value{h.VM.Pool.Create(path), h.VM.Pool.Create("hi")}); err != nil {
		t.Fatalf("os.writeFile: %v", err)
	}

	present, err := h.CallFunction(exists, []vm.Value{h.VM.Pool.Create(path)})
	if err != nil || !present.AsBool() {
		t.Fatalf("expected the written file to exist, err=%v present=%v", err, present)
	}

	content, err := h.CallFunction(readFile, []vm.Value{h.VM.Pool.Create(path)})
	if err != nil {
		t.Fatalf("os.readFile: %v", err)
	}
	if got := h.VM.Pool.Content(content); got != "hi" {
		t.Fatalf("expected %q, got %q", "hi", got)
	}

	if _, err := h.CallFunction(remove, []vm.Value{h.VM.Pool.Create(path)}); err != nil {
		t.Fatalf("os.remove: %v", err)
	}
	present, err = h.CallFunction(exists, []vm.Value{h.VM.Pool.Create(path)})
	if err != nil || present.AsBool() {
		t.Fatalf("expected the removed file to no longer exist, err=%v present=%v", err, present)
	}
}

func TestOSFileIODisabledOmitsFileFunctions(t *testing.T) {
	h := host.New(vmconfig.Minimal())
	registerOS(h, false)

	m, ok := h.VM.Module("os")
	if !ok {
		t.Fatal("expected os module to be registered")
	}
	if _, ok := m.Function("readFile"); ok {
		t.Fatal("expected readFile to be absent when file IO is disabled")
	}
}
