// ABOUTME: Error taxonomy for capture sessions
// ABOUTME: Classifies failures by the stage that produced them
package capture

import (
	"errors"
	"fmt"
)

// Kind classifies a session failure
type Kind int

const (
	// KindDevice covers device lookup and config selection
	KindDevice Kind = iota + 1
	// KindStream covers building and starting the stream
	KindStream
	// KindCallback covers errors reported while the stream runs
	KindCallback
	// KindIO covers writing the output file
	KindIO
	// KindCapacity means the capture limit was reached
	KindCapacity
)

func (k Kind) String() string {
	switch k {
	case KindDevice:
		return "device"
	case KindStream:
		return "stream"
	case KindCallback:
		return "callback"
	case KindIO:
		return "io"
	case KindCapacity:
		return "capacity"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is returned by Session.Run
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("capture: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or 0 if err is not a capture error
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
