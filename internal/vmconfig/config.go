// Package vmconfig holds the compile-time-ish toggle set spec §6 names, as
// a plain Go struct the embedder fills in rather than a build-tag matrix --
// the teacher never reaches for a flag/config library either, so this
// mirrors cmd/sentra's hand-rolled option structs.
package vmconfig

// Config gates optional host modules and dispatch strategy. None of these
// affect CORE opcode semantics, only module registration (spec §6).
type Config struct {
	// UseComputedGoto names the threaded-dispatch option. Go has no
	// computed goto; the interpreter always dispatches through a switch
	// and does not read this field.
	UseComputedGoto bool

	EnableMath        bool
	EnableOS          bool
	EnablePath        bool
	EnableTime        bool
	EnableFileIO      bool
	EnableJSON        bool
	EnableRegex       bool
	EnableZip         bool
	EnableSockets     bool
	EnableFS          bool
	EnableBytecodeDump bool

	// Domain-stack additions (SPEC_FULL expansion, appended to the
	// original toggle enumeration without replacing it).
	EnableDatabase    bool
	EnableConcurrency bool
	EnableCrypto      bool

	Debug bool
}

// Default returns the toggle set a standalone embedder gets out of the box:
// every module on, debug off.
func Default() Config {
	return Config{
		EnableMath:         true,
		EnableOS:           true,
		EnablePath:         true,
		EnableTime:         true,
		EnableFileIO:       true,
		EnableJSON:         true,
		EnableRegex:        true,
		EnableZip:          true,
		EnableSockets:      true,
		EnableFS:           true,
		EnableBytecodeDump: true,
		EnableDatabase:     true,
		EnableConcurrency:  true,
		EnableCrypto:       true,
	}
}

// Minimal returns every toggle off -- the CORE runs with no host modules
// beyond its built-in opcodes and the string/array/map/buffer methods.
func Minimal() Config {
	return Config{}
}
