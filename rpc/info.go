package rpc

import (
	"github.com/MixinNetwork/telemetry/config"
	"github.com/MixinNetwork/telemetry/server"
)

// Info describes a running collector, Metric is only set when the
// metric pool is enabled.
type Info struct {
	Name     string            `json:"name"`
	Version  string            `json:"version"`
	Protocol string            `json:"protocol"`
	Listener string            `json:"listener"`
	Uptime   string            `json:"uptime"`
	Metric   map[string]uint32 `json:"metric,omitempty"`
}

func getInfo(srv *server.Server) *Info {
	info := &Info{
		Name:     srv.Name,
		Version:  config.BuildVersion,
		Protocol: config.ProtocolName,
		Listener: srv.Addr().String(),
		Uptime:   srv.Uptime().String(),
	}
	if mp := srv.Metric(); mp.Enabled() {
		info.Metric = mp.Snapshot()
	}
	return info
}
