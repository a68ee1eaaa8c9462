package server

import (
	"encoding/json"
	"sync/atomic"
)

const (
	MetricSessionAccepted = iota + 1
	MetricSessionClosed
	MetricStreamAccepted
	MetricStreamRejected
	MetricSampleDecoded
	MetricSampleMalformed
	MetricStreamReadFailed
)

type MetricPool struct {
	enabled bool

	SessionAccepted  uint32 `json:"session-accepted"`
	SessionClosed    uint32 `json:"session-closed"`
	StreamAccepted   uint32 `json:"stream-accepted"`
	StreamRejected   uint32 `json:"stream-rejected"`
	SampleDecoded    uint32 `json:"sample-decoded"`
	SampleMalformed  uint32 `json:"sample-malformed"`
	StreamReadFailed uint32 `json:"stream-read-failed"`
}

func NewMetricPool(enabled bool) *MetricPool {
	return &MetricPool{enabled: enabled}
}

func (mp *MetricPool) Enabled() bool {
	return mp.enabled
}

func (mp *MetricPool) handle(event uint8) {
	if !mp.enabled {
		return
	}

	switch event {
	case MetricSessionAccepted:
		atomic.AddUint32(&mp.SessionAccepted, 1)
	case MetricSessionClosed:
		atomic.AddUint32(&mp.SessionClosed, 1)
	case MetricStreamAccepted:
		atomic.AddUint32(&mp.StreamAccepted, 1)
	case MetricStreamRejected:
		atomic.AddUint32(&mp.StreamRejected, 1)
	case MetricSampleDecoded:
		atomic.AddUint32(&mp.SampleDecoded, 1)
	case MetricSampleMalformed:
		atomic.AddUint32(&mp.SampleMalformed, 1)
	case MetricStreamReadFailed:
		atomic.AddUint32(&mp.StreamReadFailed, 1)
	}
}

func (mp *MetricPool) Load(event uint8) uint32 {
	switch event {
	case MetricSessionAccepted:
		return atomic.LoadUint32(&mp.SessionAccepted)
	case MetricSessionClosed:
		return atomic.LoadUint32(&mp.SessionClosed)
	case MetricStreamAccepted:
		return atomic.LoadUint32(&mp.StreamAccepted)
	case MetricStreamRejected:
		return atomic.LoadUint32(&mp.StreamRejected)
	case MetricSampleDecoded:
		return atomic.LoadUint32(&mp.SampleDecoded)
	case MetricSampleMalformed:
		return atomic.LoadUint32(&mp.SampleMalformed)
	case MetricStreamReadFailed:
		return atomic.LoadUint32(&mp.StreamReadFailed)
	}
	panic(event)
}

func (mp *MetricPool) Snapshot() map[string]uint32 {
	return map[string]uint32{
		"session-accepted":   mp.Load(MetricSessionAccepted),
		"session-closed":     mp.Load(MetricSessionClosed),
		"stream-accepted":    mp.Load(MetricStreamAccepted),
		"stream-rejected":    mp.Load(MetricStreamRejected),
		"sample-decoded":     mp.Load(MetricSampleDecoded),
		"sample-malformed":   mp.Load(MetricSampleMalformed),
		"stream-read-failed": mp.Load(MetricStreamReadFailed),
	}
}

func (mp *MetricPool) String() string {
	b, err := json.Marshal(mp.Snapshot())
	if err != nil {
		panic(err)
	}
	return string(b)
}
