package network

import (
	"context"
	"io"
	"net"
)

// SendStream carries exactly one payload, Close finishes the write side.
type SendStream interface {
	io.Writer
	Close() error
	Abort()
}

// ReceiveStream is read until io.EOF, the end of stream delimits the payload.
type ReceiveStream interface {
	io.Reader
	Abort()
}

type Session interface {
	OpenUniStream(ctx context.Context) (SendStream, error)
	AcceptUniStream(ctx context.Context) (ReceiveStream, error)
	RemoteAddr() net.Addr
	Close(reason string) error
}

type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

type Listener interface {
	Accept(ctx context.Context) (Session, error)
	Addr() net.Addr
	Close() error
}
