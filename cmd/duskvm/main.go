// cmd/duskvm is the embeddable interpreter's standalone driver: run a
// compiled program, disassemble one, or sit in a REPL loop inspecting live
// process state. Flag parsing is hand-rolled os.Args switching, matching
// cmd/sentra's own style rather than reaching for a flag-parsing library
// the teacher never used either.
package main

import (
	"fmt"
	"os"

	"duskvm/internal/bytecode"
	"duskvm/internal/host"
	"duskvm/internal/loader"
	"duskvm/internal/repl"
	"duskvm/internal/stdlib"
	"duskvm/internal/vmconfig"
)

const version = "0.1.0"

var commandAliases = map[string]string{
	"r": "run",
	"d": "dump",
	"i": "repl",
	"v": "version",
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is main's logic factored out so cmd/duskvm's testscript-based CLI
// tests can drive it in-process (via testscript.RunMain's re-exec
// mechanism) without main itself ever calling os.Exit outside of a real
// process boundary.
func run(args []string) int {
	if len(args) == 0 {
		showUsage()
		return 0
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "--help", "-h", "help":
		showUsage()
	case "--version", "-v", "version":
		fmt.Println("duskvm", version)
	case "run":
		if len(args) < 2 {
			return errf("usage: duskvm run <program.dvc>")
		}
		return runProgram(args[1])
	case "dump":
		if len(args) < 2 {
			return errf("usage: duskvm dump <program.dvc>")
		}
		return dumpProgram(args[1])
	case "repl":
		repl.Start()
	default:
		return errf("unknown command: %s", cmd)
	}
	return 0
}

func runProgram(path string) int {
	prog, err := loader.LoadFile(path)
	if err != nil {
		return errf("loading %s: %v", path, err)
	}

	h := host.New(vmconfig.Default())
	stdlib.RegisterAll(h, h.VM.Config)

	fn := h.VM.NewFunction(prog.Name, prog.Root)
	proc := h.VM.MainProcess()
	h.VM.SpawnMain(proc, fn)

	h.Run()
	fmt.Println("exit code:", proc.ExitCode())
	return 0
}

func dumpProgram(path string) int {
	prog, err := loader.LoadFile(path)
	if err != nil {
		return errf("loading %s: %v", path, err)
	}
	dumpProto(prog.Root)
	return 0
}

func dumpProto(proto *bytecode.FunctionProto) {
	fmt.Print(bytecode.Dump(proto.Chunk))
	for _, c := range proto.Chunk.Constants {
		if nested, ok := c.(*bytecode.FunctionProto); ok {
			dumpProto(nested)
		}
	}
}

func showUsage() {
	fmt.Println(`duskvm -- embeddable bytecode VM

Usage:
  duskvm run <program.dvc>     run a compiled program to completion
  duskvm dump <program.dvc>    disassemble a compiled program
  duskvm repl                  start an interactive process inspector
  duskvm version               print the version

Aliases: r=run d=dump i=repl v=version`)
}

func errf(format string, args ...interface{}) int {
	fmt.Fprintf(os.Stderr, "duskvm: "+format+"\n", args...)
	return 1
}
