package main

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"duskvm/internal/bytecode"
	"duskvm/internal/loader"
)

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"duskvm": func() int { return run(os.Args[1:]) },
	}))
}

// TestCLI drives the real duskvm binary end to end over golden scripts
// (testdata/script/*.txtar). Since CORE has no source compiler, the
// scripts can't embed program text directly -- the custom "mkprog" command
// assembles a tiny gob-encoded program fixture on the fly instead.
func TestCLI(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
		Cmds: map[string]func(ts *testscript.TestScript, neg bool, args []string){
			"mkprog": func(ts *testscript.TestScript, neg bool, args []string) {
				if len(args) != 1 {
					ts.Fatalf("usage: mkprog <path>")
				}
				path := ts.MkAbs(args[0])
				if err := writeSampleProgram(path); err != nil {
					ts.Fatalf("writeSampleProgram: %v", err)
				}
			},
		},
	})
}

// writeSampleProgram gob-encodes a program that pushes 7 and exits with it
// -- just enough bytecode to exercise "duskvm run" and "duskvm dump"
// without a real front end to compile one from source.
func writeSampleProgram(path string) error {
	chunk := bytecode.NewChunk("sample")
	idx := chunk.AddConstant(int64(7))
	chunk.WriteOp(bytecode.OpConstant, bytecode.DebugInfo{})
	chunk.WriteU16(uint16(idx), bytecode.DebugInfo{})
	chunk.WriteOp(bytecode.OpExit, bytecode.DebugInfo{})

	proto := &bytecode.FunctionProto{Name: "sample", Arity: 0, Chunk: chunk}
	prog := &loader.Program{Name: "sample", Root: proto}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return loader.Encode(f, prog)
}
