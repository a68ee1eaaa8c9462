package server

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/MixinNetwork/telemetry/logger"
	"github.com/MixinNetwork/telemetry/network"
	"github.com/gofrs/uuid"
	"golang.org/x/sync/semaphore"
)

type Options struct {
	// MaxConcurrentHandlers caps running stream handlers across all
	// sessions, zero leaves them unbounded.
	MaxConcurrentHandlers int
	Metric                bool
}

type Server struct {
	Name string

	listener network.Listener
	metric   *MetricPool
	handlers *semaphore.Weighted
	log      *logger.Logger
	startAt  time.Time
}

func NewServer(name string, listener network.Listener, opts Options, log *logger.Logger) *Server {
	s := &Server{
		Name:     name,
		listener: listener,
		metric:   NewMetricPool(opts.Metric),
		log:      log,
		startAt:  time.Now(),
	}
	if opts.MaxConcurrentHandlers > 0 {
		s.handlers = semaphore.NewWeighted(int64(opts.MaxConcurrentHandlers))
	}
	return s
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) Metric() *MetricPool {
	return s.metric
}

func (s *Server) Uptime() time.Duration {
	return time.Since(s.startAt)
}

// Serve accepts sessions until the listener is closed or ctx is done,
// every session runs on its own goroutine and never affects this loop.
func (s *Server) Serve(ctx context.Context) error {
	s.log.Printf("server.Serve(%s)", s.listener.Addr())
	for {
		session, err := s.listener.Accept(ctx)
		if errors.Is(err, network.ErrListenerClosed) || ctx.Err() != nil {
			s.log.Printf("server.Serve(%s) DONE %v", s.listener.Addr(), err)
			return nil
		}
		if err != nil {
			s.log.Errorf("listener.Accept(%s) => %v", s.listener.Addr(), err)
			continue
		}
		go s.serveSession(ctx, session)
	}
}

func (s *Server) serveSession(ctx context.Context, session network.Session) {
	id := uuid.Must(uuid.NewV4())
	log := s.log.Named(id.String())
	handler := NewHandler(log, s.metric)
	s.metric.handle(MetricSessionAccepted)
	defer s.metric.handle(MetricSessionClosed)
	defer session.Close("DONE")

	// streams still waiting for a handler slot are aborted once the
	// session is gone
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Printf("server.serveSession(%s) connected", session.RemoteAddr())
	for {
		stm, err := session.AcceptUniStream(ctx)
		if err != nil {
			log.Printf("session.AcceptUniStream(%s) => %v", session.RemoteAddr(), err)
			return
		}
		s.metric.handle(MetricStreamAccepted)
		go s.serveStream(ctx, log, handler, stm)
	}
}

func (s *Server) serveStream(ctx context.Context, log *logger.Logger, handler *Handler, stm network.ReceiveStream) {
	if s.handlers != nil {
		err := s.handlers.Acquire(ctx, 1)
		if err != nil {
			s.metric.handle(MetricStreamRejected)
			stm.Abort()
			log.Verbosef("handlers.Acquire() => %v", err)
			return
		}
		defer s.handlers.Release(1)
	}
	handler.Handle(stm)
}
