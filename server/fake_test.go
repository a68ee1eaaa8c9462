package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/MixinNetwork/telemetry/common"
	"github.com/MixinNetwork/telemetry/logger"
	"github.com/MixinNetwork/telemetry/network"
)

type lockedBuffer struct {
	sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.Lock()
	defer b.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.Lock()
	defer b.Unlock()
	return b.buf.String()
}

func testLogger(w io.Writer) *logger.Logger {
	if w == nil {
		w = io.Discard
	}
	return logger.New(w, logger.DEBUG).Named("collector")
}

func sampleBytes(sender string, value float32) []byte {
	data, err := common.NewSample(sender, value).Marshal()
	if err != nil {
		panic(err)
	}
	return data
}

type gatedStream struct {
	gate    chan struct{}
	entered chan struct{}
	once    sync.Once
	reader  io.Reader
	aborted atomic.Bool
}

func newGatedStream(data []byte) *gatedStream {
	return &gatedStream{
		gate:    make(chan struct{}),
		entered: make(chan struct{}),
		reader:  bytes.NewReader(data),
	}
}

func (s *gatedStream) Read(p []byte) (int, error) {
	s.once.Do(func() { close(s.entered) })
	<-s.gate
	return s.reader.Read(p)
}

func (s *gatedStream) Abort() {
	s.aborted.Store(true)
}

func (s *gatedStream) reading() bool {
	select {
	case <-s.entered:
		return true
	default:
		return false
	}
}

func countReading(streams ...*gatedStream) int {
	var n int
	for _, s := range streams {
		if s.reading() {
			n++
		}
	}
	return n
}

type failingStream struct{}

func (failingStream) Read(p []byte) (int, error) {
	return 0, errors.New("stream reset by peer")
}

func (failingStream) Abort() {}

type fakeSession struct {
	streams chan network.ReceiveStream
	closed  chan struct{}
	once    sync.Once
}

func newFakeSession(streams ...network.ReceiveStream) *fakeSession {
	s := &fakeSession{
		streams: make(chan network.ReceiveStream, len(streams)),
		closed:  make(chan struct{}),
	}
	for _, stm := range streams {
		s.streams <- stm
	}
	close(s.streams)
	return s
}

// newOpenSession yields streams sent by the test until end is called.
func newOpenSession() *fakeSession {
	return &fakeSession{
		streams: make(chan network.ReceiveStream, 64),
		closed:  make(chan struct{}),
	}
}

func (s *fakeSession) end() {
	close(s.streams)
}

func (s *fakeSession) OpenUniStream(ctx context.Context) (network.SendStream, error) {
	return nil, &network.Error{Kind: network.ErrStreamOpen, Err: errors.New("server session")}
}

func (s *fakeSession) AcceptUniStream(ctx context.Context) (network.ReceiveStream, error) {
	select {
	case stm, ok := <-s.streams:
		if ok {
			return stm, nil
		}
		return nil, &network.Error{Kind: network.ErrStreamAccept, Err: errors.New("application error 0x0: DONE")}
	case <-ctx.Done():
		return nil, &network.Error{Kind: network.ErrStreamAccept, Err: ctx.Err()}
	}
}

func (s *fakeSession) RemoteAddr() net.Addr {
	return &net.UDPAddr{IP: net.IPv4(192, 168, 1, 20), Port: 50123}
}

func (s *fakeSession) Close(reason string) error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

type fakeListener struct {
	sessions chan network.Session
	done     chan struct{}
	once     sync.Once
}

func newFakeListener() *fakeListener {
	return &fakeListener{sessions: make(chan network.Session), done: make(chan struct{})}
}

func (l *fakeListener) Accept(ctx context.Context) (network.Session, error) {
	select {
	case s := <-l.sessions:
		if s == nil {
			return nil, errors.New("transient accept failure")
		}
		return s, nil
	case <-l.done:
		return nil, &network.Error{Kind: network.ErrListenerClosed, Err: errors.New("closed")}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *fakeListener) Addr() net.Addr {
	return &net.UDPAddr{IP: net.IPv6zero, Port: 4433}
}

func (l *fakeListener) Close() error {
	l.once.Do(func() { close(l.done) })
	return nil
}
