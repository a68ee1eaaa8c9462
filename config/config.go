package config

import "time"

const (
	BuildVersion = "v0.1.0-BUILD_VERSION"
	ProtocolName = "mixin-telemetry"

	DefaultListen     = "[::]:4433"
	DefaultServer     = "127.0.0.1:4433"
	DefaultServerName = "localhost"
	DefaultBind       = "[::]:0"

	SampleInterval = 5 * time.Second
	RetryDelay     = 5 * time.Second

	MaxIncomingUniStreams = 16
	HandshakeTimeout      = 10 * time.Second
	IdleTimeout           = 60 * time.Second
	ReadDeadline          = 30 * time.Second
	WriteDeadline         = 10 * time.Second

	SampleValueMinimum = 20.0
	SampleValueMaximum = 35.0
)
