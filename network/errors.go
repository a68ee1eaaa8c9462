package network

import (
	"errors"
	"fmt"

	"github.com/MixinNetwork/telemetry/config"
)

var (
	ErrConfig         = config.ErrCertificate
	ErrBind           = errors.New("bind failed")
	ErrConnect        = errors.New("connect failed")
	ErrStreamOpen     = errors.New("stream open failed")
	ErrStreamWrite    = errors.New("stream write failed")
	ErrStreamAccept   = errors.New("stream accept failed")
	ErrListenerClosed = errors.New("listener closed")
)

// Error pairs one of the kinds above with its cause, errors.Is matches both.
type Error struct {
	Kind error
	Err  error
}

func newError(kind error, format string, v ...interface{}) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, v...)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
