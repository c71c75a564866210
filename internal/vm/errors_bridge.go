package vm

import "duskvm/internal/errors"

// DuskError is the error type threaded through the interpreter's exception
// machinery; see internal/errors for the taxonomy (spec §7).
type DuskError = errors.DuskError

func NewRuntimeErrorValue(message string) *DuskError {
	return errors.NewRuntimeError(message, "", 0, 0)
}

func NewFatalErrorValue(message string) *DuskError {
	return errors.NewFatalError(message)
}

func NewHostErrorValue(message string) *DuskError {
	return errors.NewHostError(message)
}
