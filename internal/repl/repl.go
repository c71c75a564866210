// Package repl is an interactive process inspector, not a source REPL:
// CORE has no lexer/parser of its own (spec's scope is the execution
// engine a compiled program runs on), so what this loop offers is the
// scheduler-level equivalent -- load a compiled program, step it tick by
// tick, and inspect live process state between steps. Grounded on
// sentra/internal/repl's bufio.Scanner command loop, with the
// compile-a-line step replaced by scheduler commands.
package repl

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"duskvm/internal/host"
	"duskvm/internal/loader"
	"duskvm/internal/stdlib"
	"duskvm/internal/vmconfig"
)

// Start opens an interactive loop over a freshly constructed VM. Commands:
//
//	load <path>   decode a compiled program and install it as the main process
//	tick          advance every running process one step
//	run           tick until no process remains alive
//	ps            show how many processes are alive
//	exit          quit
func Start() {
	fmt.Println("duskvm process inspector | type 'exit' to quit, 'help' for commands")
	scanner := bufio.NewScanner(os.Stdin)

	h := host.New(vmconfig.Default())
	stdlib.RegisterAll(h, h.VM.Config)

	for {
		fmt.Print(">>> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "exit", "quit":
			return
		case "help":
			printHelp()
		case "load":
			if len(fields) < 2 {
				fmt.Println("usage: load <path>")
				continue
			}
			loadProgram(h, fields[1])
		case "tick":
			h.Tick()
			fmt.Println("ticked")
		case "run":
			h.Run()
			fmt.Println("ran to completion")
		case "ps":
			listProcesses(h)
		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
}

func loadProgram(h *host.Host, path string) {
	prog, err := loader.LoadFile(path)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fn := h.VM.NewFunction(prog.Name, prog.Root)
	h.VM.SpawnMain(h.VM.MainProcess(), fn)
	fmt.Println("loaded", prog.Name)
}

func listProcesses(h *host.Host) {
	fmt.Println("alive processes:", h.VM.AliveProcessCount())
}

func printHelp() {
	fmt.Println(`commands:
  load <path>   decode a compiled program into the main process
  tick          advance every running process one step
  run           tick until nothing is left alive
  ps            show how many processes are alive
  exit          quit`)
}
