// Package diag is the CORE's only logging surface. Nothing in the teacher
// corpus reaches for a structured-logging library -- every subsystem prints
// with fmt.Printf/fmt.Fprintf directly -- so this wraps the same pattern
// behind a small Logger rather than importing one.
package diag

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

type Logger struct {
	out     io.Writer
	debug   bool
	colored bool
}

func NewLogger(out io.Writer, debug bool) *Logger {
	colored := false
	if f, ok := out.(*os.File); ok {
		colored = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Logger{out: out, debug: debug, colored: colored}
}

func Stderr(debug bool) *Logger {
	return NewLogger(os.Stderr, debug)
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.writeln("debug", format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.writeln("info", format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.writeln("warn", format, args...)
}

func (l *Logger) writeln(level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if l.colored {
		fmt.Fprintf(l.out, "\x1b[2m[%s]\x1b[0m %s\n", level, msg)
		return
	}
	fmt.Fprintf(l.out, "[%s] %s\n", level, msg)
}
