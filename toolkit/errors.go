package toolkit

import (
	"errors"
	"fmt"
)

// StructuralError is an invalid tree mutation. The tree is left unchanged.
type StructuralError struct {
	Message string
}

func (self *StructuralError) Error() string {
	return fmt.Sprintf("structural error: %s", self.Message)
}

func structuralErrorf(format string, a ...any) *StructuralError {
	return &StructuralError{
		Message: fmt.Sprintf(format, a...),
	}
}

func IsStructuralError(err error) bool {
	var structuralErr *StructuralError
	return errors.As(err, &structuralErr)
}

var ErrCycle = &StructuralError{Message: "child is the parent or one of its ancestors"}
var ErrSelfChild = &StructuralError{Message: "component cannot be its own child"}
var ErrNilChild = &StructuralError{Message: "child is nil"}

// routing
var ErrComponentNotFound = errors.New("component not found")
var ErrNoRoot = errors.New("no root component")
var ErrCallNotHandled = errors.New("component does not handle calls")

// transport
var ErrTransportClosed = errors.New("transport closed")
var ErrSendTimeout = errors.New("send timeout")
var ErrSendBufferFull = errors.New("send buffer full")

// HandlerError is an error returned or a panic raised by a component handler.
type HandlerError struct {
	ComponentKey int64
	Err          error
}

func (self *HandlerError) Error() string {
	return fmt.Sprintf("handler error (%d): %s", self.ComponentKey, self.Err)
}

func (self *HandlerError) Unwrap() error {
	return self.Err
}
