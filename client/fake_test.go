package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/MixinNetwork/telemetry/network"
)

type recorder struct {
	sync.Mutex
	events []string
}

func (r *recorder) add(format string, v ...interface{}) {
	r.Lock()
	defer r.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, v...))
}

func (r *recorder) list() []string {
	r.Lock()
	defer r.Unlock()
	return append([]string{}, r.events...)
}

type fakeStream struct {
	buf      bytes.Buffer
	writeErr error
	closeErr error
	closed   bool
	aborted  bool
}

func (s *fakeStream) Write(p []byte) (int, error) {
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	return s.buf.Write(p)
}

func (s *fakeStream) Close() error {
	s.closed = true
	return s.closeErr
}

func (s *fakeStream) Abort() {
	s.aborted = true
}

type fakeSession struct {
	sync.Mutex
	id      int
	rec     *recorder
	opens   int
	streams []*fakeStream
	closed  bool

	// open fails on this call number, counted from one, zero never fails
	failAt    int
	prepare   func(n int, s *fakeStream)
	afterOpen func(n int)
}

func (s *fakeSession) OpenUniStream(ctx context.Context) (network.SendStream, error) {
	s.Lock()
	s.opens++
	n := s.opens
	s.Unlock()
	if s.rec != nil {
		s.rec.add("open %d.%d", s.id, n)
	}
	if s.failAt > 0 && n >= s.failAt {
		return nil, &network.Error{Kind: network.ErrStreamOpen, Err: errors.New("connection lost")}
	}
	stm := &fakeStream{}
	if s.prepare != nil {
		s.prepare(n, stm)
	}
	s.Lock()
	s.streams = append(s.streams, stm)
	s.Unlock()
	if s.afterOpen != nil {
		s.afterOpen(n)
	}
	return stm, nil
}

func (s *fakeSession) AcceptUniStream(ctx context.Context) (network.ReceiveStream, error) {
	return nil, &network.Error{Kind: network.ErrStreamAccept, Err: errors.New("client session")}
}

func (s *fakeSession) RemoteAddr() net.Addr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4433}
}

func (s *fakeSession) Close(reason string) error {
	s.Lock()
	s.closed = true
	s.Unlock()
	if s.rec != nil {
		s.rec.add("close %d", s.id)
	}
	return nil
}

func (s *fakeSession) payloads() [][]byte {
	s.Lock()
	defer s.Unlock()
	var out [][]byte
	for _, stm := range s.streams {
		if stm.closed && !stm.aborted {
			out = append(out, stm.buf.Bytes())
		}
	}
	return out
}

type fakeDialer struct {
	sync.Mutex
	rec      *recorder
	results  []func() (network.Session, error)
	attempts int
}

func (d *fakeDialer) Dial(ctx context.Context) (network.Session, error) {
	d.Lock()
	defer d.Unlock()
	d.attempts++
	if d.rec != nil {
		d.rec.add("dial %d", d.attempts)
	}
	if len(d.results) == 0 {
		return nil, &network.Error{Kind: network.ErrConnect, Err: errors.New("connection refused")}
	}
	next := d.results[0]
	d.results = d.results[1:]
	return next()
}

func failDial() (network.Session, error) {
	return nil, &network.Error{Kind: network.ErrConnect, Err: errors.New("connection refused")}
}

func session(s *fakeSession) func() (network.Session, error) {
	return func() (network.Session, error) { return s, nil }
}
