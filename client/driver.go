package client

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/MixinNetwork/telemetry/logger"
	"github.com/MixinNetwork/telemetry/network"
	"github.com/MixinNetwork/telemetry/util"
)

type State int32

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	}
	return "unknown"
}

// Producer uses a session until it becomes unusable, the returned error
// tells why the session was given up.
type Producer interface {
	Produce(ctx context.Context, session network.Session) error
}

// Driver keeps one session alive. Failed dials are retried after a
// constant delay without limit, and a session the producer gives up is
// closed and replaced right away.
type Driver struct {
	dialer   network.Dialer
	producer Producer
	delay    time.Duration
	log      *logger.Logger

	state    atomic.Int32
	attempts atomic.Uint64
}

func NewDriver(dialer network.Dialer, producer Producer, delay time.Duration, log *logger.Logger) *Driver {
	return &Driver{
		dialer:   dialer,
		producer: producer,
		delay:    delay,
		log:      log,
	}
}

func (d *Driver) State() State {
	return State(d.state.Load())
}

func (d *Driver) Attempts() uint64 {
	return d.attempts.Load()
}

// Run only returns when ctx is done.
func (d *Driver) Run(ctx context.Context) error {
	timer := util.NewTimer(d.delay)
	defer timer.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := d.attempts.Add(1)
		d.log.Printf("driver.Dial(%d) connecting", n)
		session, err := d.dialer.Dial(ctx)
		if err != nil {
			d.log.Errorf("driver.Dial(%d) => %v", n, err)
			if err := timer.Wait(ctx, d.delay); err != nil {
				return err
			}
			continue
		}

		d.transit(Connected)
		d.log.Printf("driver.Dial(%d) => %s connected", n, session.RemoteAddr())
		err = d.producer.Produce(ctx, session)
		d.log.Printf("producer.Produce(%s) => %v", session.RemoteAddr(), err)
		session.Close("DISCONNECTED")
		d.transit(Disconnected)
	}
}

func (d *Driver) transit(s State) {
	old := State(d.state.Swap(int32(s)))
	if old != s {
		d.log.Verbosef("driver.transit(%s => %s)", old, s)
	}
}
