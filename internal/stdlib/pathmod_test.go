package stdlib

import (
	"testing"

	"duskvm/internal/host"
	"duskvm/internal/vm"
	"duskvm/internal/vmconfig"
)

func TestPathJoinBaseDirExt(t *testing.T) {
	h := host.New(vmconfig.Minimal())
	registerPath(h)

	join := moduleFn(t, h, "path", "join")
	result, err := h.CallFunction(join, []vm.Value{h.VM.Pool.Create("a"), h.VM.Pool.Create("b.txt")})
	if err != nil {
		t.Fatalf("path.join: %v", err)
	}
	if got := h.VM.Pool.Content(result); got != "a/b.txt" {
		t.Fatalf("expected %q, got %q", "a/b.txt", got)
	}

	base := moduleFn(t, h, "path", "base")
	result, err = h.CallFunction(base, []vm.Value{h.VM.Pool.Create("a/b.txt")})
	if err != nil {
		t.Fatalf("path.base: %v", err)
	}
	if got := h.VM.Pool.Content(result); got != "b.txt" {
		t.Fatalf("expected %q, got %q", "b.txt", got)
	}

	dir := moduleFn(t, h, "path", "dir")
	result, err = h.CallFunction(dir, []vm.Value{h.VM.Pool.Create("a/b.txt")})
	if err != nil {
		t.Fatalf("path.dir: %v", err)
	}
	if got := h.VM.Pool.Content(result); got != "a" {
		t.Fatalf("expected %q, got %q", "a", got)
	}

	ext := moduleFn(t, h, "path", "ext")
	result, err = h.CallFunction(ext, []vm.Value{h.VM.Pool.Create("a/b.txt")})
	if err != nil {
		t.Fatalf("path.ext: %v", err)
	}
	if got := h.VM.Pool.Content(result); got != ".txt" {
		t.Fatalf("expected %q, got %q", ".txt", got)
	}
}
