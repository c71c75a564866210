// Package loader turns a serialized bytecode program on disk into the
// runtime Function the VM's main process runs. CORE has no source-level
// front end (spec's scope is the execution engine, not lexing/parsing): a
// program here is whatever upstream tooling assembled a *bytecode.Chunk
// into, gob-encoded so cmd/duskvm and tests can round-trip one without
// hand-writing a wire format of their own.
package loader

import (
	"bytes"
	"encoding/gob"
	"io"
	"os"

	"duskvm/internal/bytecode"
)

func init() {
	gob.Register(&bytecode.FunctionProto{})
}

// Program is the on-disk unit: a root function prototype, matching what
// internal/vm.NewFunction wraps into a callable Function.
type Program struct {
	Name string
	Root *bytecode.FunctionProto
}

// Encode gob-serializes prog to w.
func Encode(w io.Writer, prog *Program) error {
	return gob.NewEncoder(w).Encode(prog)
}

// Decode reads a gob-serialized Program from r.
func Decode(r io.Reader) (*Program, error) {
	var prog Program
	if err := gob.NewDecoder(r).Decode(&prog); err != nil {
		return nil, err
	}
	return &prog, nil
}

// LoadFile reads and decodes a Program from path.
func LoadFile(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(bytes.NewReader(data))
}
