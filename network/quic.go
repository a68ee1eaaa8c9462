package network

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"sync/atomic"
	"time"

	"github.com/MixinNetwork/telemetry/config"
	"github.com/quic-go/quic-go"
)

type DialOptions struct {
	Server     string
	ServerName string
	Bind       string
	Trust      *TrustPolicy
}

type ListenOptions struct {
	MaxIncomingUniStreams int
}

type QuicDialer struct {
	server string
	bind   *net.UDPAddr
	tls    *tls.Config
}

type QuicListener struct {
	listener *quic.Listener
	closed   atomic.Bool
}

type QuicSession struct {
	conn      quic.Connection
	transport *quic.Transport
	udp       net.PacketConn
}

type quicSendStream struct {
	stream quic.SendStream
}

type quicReceiveStream struct {
	stream quic.ReceiveStream
}

func NewQuicDialer(opts DialOptions) (*QuicDialer, error) {
	if opts.Trust == nil {
		return nil, newError(ErrConfig, "no trust policy for %s", opts.Server)
	}
	if opts.ServerName == "" {
		opts.ServerName = config.DefaultServerName
	}
	if opts.Bind == "" {
		opts.Bind = config.DefaultBind
	}
	bind, err := net.ResolveUDPAddr("udp", opts.Bind)
	if err != nil {
		return nil, newError(ErrBind, "net.ResolveUDPAddr(%s) => %w", opts.Bind, err)
	}
	return &QuicDialer{
		server: opts.Server,
		bind:   bind,
		tls:    opts.Trust.ClientTLS(opts.ServerName),
	}, nil
}

// Dial opens a fresh local endpoint for every attempt and never retries.
func (d *QuicDialer) Dial(ctx context.Context) (Session, error) {
	raddr, err := net.ResolveUDPAddr("udp", d.server)
	if err != nil {
		return nil, newError(ErrConnect, "net.ResolveUDPAddr(%s) => %w", d.server, err)
	}
	udp, err := net.ListenUDP("udp", d.bind)
	if err != nil {
		return nil, newError(ErrConnect, "net.ListenUDP(%s) => %w", d.bind, err)
	}
	tr := &quic.Transport{Conn: udp}
	conn, err := tr.Dial(ctx, raddr, d.tls.Clone(), &quic.Config{
		MaxIncomingStreams:    -1,
		MaxIncomingUniStreams: -1,
		HandshakeIdleTimeout:  config.HandshakeTimeout,
		MaxIdleTimeout:        config.IdleTimeout,
		KeepAlivePeriod:       config.IdleTimeout / 2,
	})
	if err != nil {
		tr.Close()
		udp.Close()
		return nil, newError(ErrConnect, "quic.Dial(%s, %s) => %w", d.server, d.tls.ServerName, err)
	}
	return &QuicSession{
		conn:      conn,
		transport: tr,
		udp:       udp,
	}, nil
}

func ListenQuic(addr string, cert *Certificate, opts ListenOptions) (*QuicListener, error) {
	if cert == nil {
		return nil, newError(ErrConfig, "no certificate for %s", addr)
	}
	streams := opts.MaxIncomingUniStreams
	if streams <= 0 {
		streams = config.MaxIncomingUniStreams
	}
	l, err := quic.ListenAddr(addr, cert.ServerTLS(), &quic.Config{
		MaxIncomingStreams:    -1,
		MaxIncomingUniStreams: int64(streams),
		HandshakeIdleTimeout:  config.HandshakeTimeout,
		MaxIdleTimeout:        config.IdleTimeout,
	})
	if err != nil {
		return nil, newError(ErrBind, "quic.ListenAddr(%s) => %w", addr, err)
	}
	return &QuicListener{listener: l}, nil
}

func (l *QuicListener) Accept(ctx context.Context) (Session, error) {
	conn, err := l.listener.Accept(ctx)
	if err != nil {
		if l.closed.Load() || errors.Is(err, quic.ErrServerClosed) {
			return nil, newError(ErrListenerClosed, "quic.Accept(%s) => %w", l.Addr(), err)
		}
		return nil, err
	}
	return &QuicSession{conn: conn}, nil
}

func (l *QuicListener) Addr() net.Addr {
	return l.listener.Addr()
}

func (l *QuicListener) Close() error {
	l.closed.Store(true)
	return l.listener.Close()
}

func (s *QuicSession) OpenUniStream(ctx context.Context) (SendStream, error) {
	stm, err := s.conn.OpenUniStreamSync(ctx)
	if err != nil {
		return nil, newError(ErrStreamOpen, "quic.OpenUniStreamSync(%s) => %w", s.RemoteAddr(), err)
	}
	err = stm.SetWriteDeadline(time.Now().Add(config.WriteDeadline))
	if err != nil {
		stm.CancelWrite(0)
		return nil, newError(ErrStreamOpen, "quic.SetWriteDeadline(%s) => %w", s.RemoteAddr(), err)
	}
	return &quicSendStream{stream: stm}, nil
}

func (s *QuicSession) AcceptUniStream(ctx context.Context) (ReceiveStream, error) {
	stm, err := s.conn.AcceptUniStream(ctx)
	if err != nil {
		return nil, newError(ErrStreamAccept, "quic.AcceptUniStream(%s) => %w", s.RemoteAddr(), err)
	}
	err = stm.SetReadDeadline(time.Now().Add(config.ReadDeadline))
	if err != nil {
		stm.CancelRead(0)
		return nil, newError(ErrStreamAccept, "quic.SetReadDeadline(%s) => %w", s.RemoteAddr(), err)
	}
	return &quicReceiveStream{stream: stm}, nil
}

func (s *QuicSession) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

func (s *QuicSession) Close(reason string) error {
	err := s.conn.CloseWithError(0, reason)
	if s.transport != nil {
		s.transport.Close()
		s.udp.Close()
	}
	return err
}

func (s *quicSendStream) Write(p []byte) (int, error) {
	n, err := s.stream.Write(p)
	if err != nil {
		return n, newError(ErrStreamWrite, "quic.Write(%d, %d) => %w", s.stream.StreamID(), len(p), err)
	}
	return n, nil
}

func (s *quicSendStream) Close() error {
	err := s.stream.Close()
	if err != nil {
		return newError(ErrStreamWrite, "quic.Close(%d) => %w", s.stream.StreamID(), err)
	}
	return nil
}

func (s *quicSendStream) Abort() {
	s.stream.CancelWrite(0)
}

func (s *quicReceiveStream) Read(p []byte) (int, error) {
	return s.stream.Read(p)
}

func (s *quicReceiveStream) Abort() {
	s.stream.CancelRead(0)
}
