package command

import "errors"

// ErrWorkingCounter is returned when a command's response working
// counter did not match the caller's expectation.
var ErrWorkingCounter = errors.New("command: unexpected working counter")

// ErrShortResponse is returned when a response's payload is smaller
// than the buffer the caller asked to fill.
var ErrShortResponse = errors.New("command: response payload shorter than requested")
