package vm

// ProcessState is one of the four lifecycle states spec §3 names.
type ProcessState uint8

const (
	StateRunning ProcessState = iota
	StateSuspended
	StateFrozen
	StateDead
)

func (s ProcessState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateFrozen:
		return "frozen"
	case StateDead:
		return "dead"
	}
	return "unknown"
}

// MaxPrivates is the number of indexed per-process private slots (spec §3).
const MaxPrivates = 28

// Named private slot indices agreed between CORE and hosting bindings.
// id and father are read-only from script (spec §3).
const (
	PrivX = iota
	PrivY
	PrivZ
	PrivGraph
	PrivAngle
	PrivSize
	PrivFlags
	PrivID
	PrivFather
	PrivRed
	PrivGreen
	PrivBlue
	PrivAlpha
	PrivTag
	PrivState
	PrivSpeed
	PrivGroup
	privReserved17
	privReserved18
	privReserved19
	privReserved20
	privReserved21
	privReserved22
	privReserved23
	privReserved24
	privGroupTag // [EXPANSION] reserved for debugging parity, unused by CORE
	privTimer    // [EXPANSION] reserved for debugging parity, unused by CORE
	privReserved27
)

var privateNames = map[string]int{
	"x": PrivX, "y": PrivY, "z": PrivZ, "graph": PrivGraph, "angle": PrivAngle,
	"size": PrivSize, "flags": PrivFlags, "id": PrivID, "father": PrivFather,
	"red": PrivRed, "green": PrivGreen, "blue": PrivBlue, "alpha": PrivAlpha,
	"tag": PrivTag, "state": PrivState, "speed": PrivSpeed, "group": PrivGroup,
}

// readOnlyPrivates cannot be written to from script (spec §3/§4.6).
var readOnlyPrivates = map[int]bool{PrivID: true, PrivFather: true}

const (
	valueStackCapacity = 1024
	callFrameCapacity  = 1024
	gosubStackCapacity = 16
	tryHandlerCapacity = 8
)

// CallFrame is a single activation record (spec §3). Slot 0 of a frame
// always holds the callee or, for methods, the receiver.
type CallFrame struct {
	Function *Function
	Closure  *Closure
	IP       int
	Slots    int // base index into the owning process's value stack
	openUps  []*Upvalue
}

// TryHandler captures one level of try/catch/finally bookkeeping (spec §3).
// FrameDepth is the process's frameCount at the moment OpTry ran, so an
// exception raised several calls deeper knows how many frames to unwind to
// reach this handler's catch/finally block (spec §4.8).
type TryHandler struct {
	CatchIP       int
	HasCatch      bool
	FinallyIP     int
	HasFinally    bool
	StackRestore  int
	FrameDepth    int
	InFinally     bool
	PendingError  Value
	HasPending    bool
	PendingReturn []Value
	HasReturn     bool
	CatchConsumed bool
}

// Process is a runtime clone of a ProcessDef: an independent execution
// context with its own stacks and private slots (spec §3).
type Process struct {
	ID          int
	BlueprintID int
	Name        string
	State       ProcessState

	Privates [MaxPrivates]Value

	stack    []Value
	stackTop int

	frames     []CallFrame
	frameCount int

	gosubStack []int
	gosubTop   int

	tryHandlers []TryHandler

	ip       int // valid only between inner-loop entries
	exitCode int64

	UserData interface{}

	// destroyed guards VMHooks.OnDestroy against firing twice: once when
	// RunProcess itself observes exit/error, and once more on the next
	// Tick's sweep for a process killed out-of-band via Signal/CallSync.
	destroyed bool

	// stopOnCallReturn is the re-entrancy boundary marker (spec §4.9/§5):
	// run_process stops and returns CALL_RETURN once frameCount drops back
	// to boundaryFrameCount, rather than continuing into the caller's
	// frame.
	stopOnCallReturn   bool
	boundaryFrameCount int
}

func newProcess(id int) *Process {
	p := &Process{
		ID:          id,
		State:       StateRunning,
		stack:       make([]Value, valueStackCapacity),
		frames:      make([]CallFrame, callFrameCapacity),
		gosubStack:  make([]int, gosubStackCapacity),
		tryHandlers: make([]TryHandler, 0, tryHandlerCapacity),
	}
	return p
}

func (p *Process) push(v Value) {
	p.stack[p.stackTop] = v
	p.stackTop++
}

func (p *Process) pop() Value {
	p.stackTop--
	return p.stack[p.stackTop]
}

func (p *Process) peek(offset int) Value {
	return p.stack[p.stackTop-1-offset]
}

func (p *Process) currentFrame() *CallFrame {
	return &p.frames[p.frameCount-1]
}

// ExitCode reports the value OP_EXIT (or falling off the root frame) left
// the process with; meaningful once State is StateDead.
func (p *Process) ExitCode() int64 { return p.exitCode }

// PrivateIndexByName resolves a named private-slot access (spec §3/§4.6).
func PrivateIndexByName(name string) (int, bool) {
	idx, ok := privateNames[name]
	return idx, ok
}
