package rpc

import (
	"github.com/MixinNetwork/telemetry/server"
	"github.com/prometheus/client_golang/prometheus"
)

func NewRegistry(srv *server.Server) *prometheus.Registry {
	mp := srv.Metric()
	labels := prometheus.Labels{"server": srv.Name}
	counters := []struct {
		name  string
		help  string
		event uint8
	}{
		{"sessions_accepted_total", "Sessions accepted from clients.", server.MetricSessionAccepted},
		{"sessions_closed_total", "Sessions whose stream accept loop ended.", server.MetricSessionClosed},
		{"streams_accepted_total", "Unidirectional streams accepted.", server.MetricStreamAccepted},
		{"streams_rejected_total", "Streams aborted while waiting for a handler slot.", server.MetricStreamRejected},
		{"samples_decoded_total", "Samples decoded from streams.", server.MetricSampleDecoded},
		{"samples_malformed_total", "Stream payloads that failed to decode.", server.MetricSampleMalformed},
		{"stream_read_failures_total", "Streams that failed before the end of stream.", server.MetricStreamReadFailed},
	}

	reg := prometheus.NewRegistry()
	for _, c := range counters {
		reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   "telemetry",
			Name:        c.name,
			Help:        c.help,
			ConstLabels: labels,
		}, func() float64 {
			return float64(mp.Load(c.event))
		}))
	}
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   "telemetry",
		Name:        "uptime_seconds",
		Help:        "Seconds since the server started.",
		ConstLabels: labels,
	}, func() float64 {
		return srv.Uptime().Seconds()
	}))
	return reg
}
