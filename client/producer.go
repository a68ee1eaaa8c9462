package client

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/MixinNetwork/telemetry/common"
	"github.com/MixinNetwork/telemetry/config"
	"github.com/MixinNetwork/telemetry/logger"
	"github.com/MixinNetwork/telemetry/network"
	"github.com/MixinNetwork/telemetry/util"
)

type StreamProducer struct {
	name     string
	interval time.Duration
	rand     *rand.Rand
	log      *logger.Logger

	sent    atomic.Uint64
	dropped atomic.Uint64
}

func NewStreamProducer(name string, interval time.Duration, r *rand.Rand, log *logger.Logger) *StreamProducer {
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &StreamProducer{
		name:     name,
		interval: interval,
		rand:     r,
		log:      log,
	}
}

func (p *StreamProducer) Sent() uint64 {
	return p.sent.Load()
}

func (p *StreamProducer) Dropped() uint64 {
	return p.dropped.Load()
}

// Produce sends one sample per stream every interval. Only a failure to
// open a stream gives the session up, a broken stream loses its sample.
func (p *StreamProducer) Produce(ctx context.Context, session network.Session) error {
	timer := util.NewTimer(p.interval)
	defer timer.Stop()

	for {
		s := common.NewSample(p.name, p.nextValue())
		p.log.Printf("producer.send(%.2f)", s.Value)
		err := p.send(ctx, session, s)
		if errors.Is(err, network.ErrStreamOpen) {
			p.dropped.Add(1)
			p.log.Errorf("producer.send(%s) => %v", session.RemoteAddr(), err)
			return err
		} else if err != nil {
			p.dropped.Add(1)
			p.log.Errorf("producer.send(%s) => %v", session.RemoteAddr(), err)
		} else {
			p.sent.Add(1)
		}

		if err := timer.Wait(ctx, p.interval); err != nil {
			return err
		}
	}
}

func (p *StreamProducer) send(ctx context.Context, session network.Session, s *common.Sample) error {
	data, err := s.Marshal()
	if err != nil {
		return err
	}
	stm, err := session.OpenUniStream(ctx)
	if err != nil {
		if errors.Is(err, network.ErrStreamOpen) {
			return err
		}
		return &network.Error{Kind: network.ErrStreamOpen, Err: err}
	}
	_, err = stm.Write(data)
	if err != nil {
		stm.Abort()
		return err
	}
	return stm.Close()
}

func (p *StreamProducer) nextValue() float32 {
	span := config.SampleValueMaximum - config.SampleValueMinimum
	v := float32(config.SampleValueMinimum + p.rand.Float64()*span)
	if v >= config.SampleValueMaximum {
		v = math.Nextafter32(config.SampleValueMaximum, 0)
	}
	return v
}
