// Package errors defines the CORE's error taxonomy: compile, runtime,
// fatal, and host errors (spec §7), each rendered as a single concise
// line in release mode or a full per-frame stack trace in debug mode.
package errors

import (
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Kind distinguishes the four error categories spec §7 names.
type Kind string

const (
	Compile Kind = "CompileError"
	Runtime Kind = "RuntimeError"
	Fatal   Kind = "FatalError"
	Host    Kind = "HostError"
)

// SourceLocation pins an error to a line/column in a named file.
type SourceLocation struct {
	File   string
	Line   int
	Column int
}

// StackFrame is one activation record rendered in a debug-mode trace.
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// DuskError is the error value carried through the exception machinery
// (§4.8) and surfaced to the embedder on an uncaught exception.
type DuskError struct {
	Kind      Kind
	Message   string
	Location  SourceLocation
	CallStack []StackFrame
	Source    string

	// cause is set only for Fatal errors: an invariant-violation stack
	// captured with github.com/pkg/errors at the point of detection, shown
	// only when the embedder runs with debug output enabled.
	cause error
}

func (e *DuskError) Error() string {
	if e.Location.File == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s (at %s:%d)", e.Kind, e.Message, e.Location.File, e.Location.Line)
}

// DebugString renders the full multi-line form: error line, offending
// source line with a caret, and a per-frame call stack -- used only when
// the VM is run in debug mode.
func (e *DuskError) DebugString() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s\n", e.Kind, e.Message)
	if e.Location.File != "" {
		fmt.Fprintf(&sb, "  at %s:%d:%d\n", e.Location.File, e.Location.Line, e.Location.Column)
		if e.Source != "" {
			fmt.Fprintf(&sb, "\n  %d | %s\n", e.Location.Line, e.Source)
			pad := strings.Repeat(" ", len(fmt.Sprintf("%d | ", e.Location.Line)))
			if e.Location.Column > 0 {
				pad += strings.Repeat(" ", e.Location.Column-1)
			}
			sb.WriteString("  " + pad + "^\n")
		}
	}
	if len(e.CallStack) > 0 {
		sb.WriteString("\nCall Stack:\n")
		for _, f := range e.CallStack {
			if f.Function != "" {
				fmt.Fprintf(&sb, "  at %s (%s:%d)\n", f.Function, f.File, f.Line)
			} else {
				fmt.Fprintf(&sb, "  at %s:%d\n", f.File, f.Line)
			}
		}
	}
	if e.cause != nil {
		fmt.Fprintf(&sb, "\n%+v\n", e.cause)
	}
	return sb.String()
}

func NewRuntimeError(message, file string, line, column int) *DuskError {
	return &DuskError{Kind: Runtime, Message: message, Location: SourceLocation{File: file, Line: line, Column: column}}
}

func NewFatalError(message string) *DuskError {
	return &DuskError{Kind: Fatal, Message: message, cause: pkgerrors.New(message)}
}

func NewHostError(message string) *DuskError {
	return &DuskError{Kind: Host, Message: message}
}

func (e *DuskError) WithSource(src string) *DuskError {
	e.Source = src
	return e
}

func (e *DuskError) AddStackFrame(function, file string, line int) *DuskError {
	e.CallStack = append(e.CallStack, StackFrame{Function: function, File: file, Line: line})
	return e
}
