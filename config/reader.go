package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml"
)

// ErrCertificate marks unusable certificate material, the network
// package reports the same kind for certificates it fails to load.
var ErrCertificate = errors.New("invalid certificate material")

type Custom struct {
	Node struct {
		Name string `toml:"name"`
	} `toml:"node"`
	Server struct {
		Listen                string `toml:"listen"`
		Cert                  string `toml:"cert"`
		Key                   string `toml:"key"`
		MaxIncomingUniStreams int    `toml:"max-incoming-streams"`
		MaxConcurrentHandlers int    `toml:"max-concurrent-handlers"`
	} `toml:"server"`
	Client struct {
		Server     string `toml:"server"`
		ServerName string `toml:"server-name"`
		Bind       string `toml:"bind"`
		CA         string `toml:"ca"`
		Interval   int    `toml:"interval"`
		RetryDelay int    `toml:"retry-delay"`
	} `toml:"client"`
	RPC struct {
		Port int `toml:"port"`
	} `toml:"rpc"`
	Log struct {
		Level   int    `toml:"level"`
		Filter  string `toml:"filter"`
		Limiter int    `toml:"limiter"`
	} `toml:"log"`
}

func Initialize(file string) (*Custom, error) {
	var config Custom
	if file != "" {
		f, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		err = toml.Unmarshal(f, &config)
		if err != nil {
			return nil, err
		}
	}
	if config.Server.Listen == "" {
		config.Server.Listen = DefaultListen
	}
	if config.Server.MaxIncomingUniStreams == 0 {
		config.Server.MaxIncomingUniStreams = MaxIncomingUniStreams
	}
	if config.Client.Server == "" {
		config.Client.Server = DefaultServer
	}
	if config.Client.ServerName == "" {
		config.Client.ServerName = DefaultServerName
	}
	if config.Client.Bind == "" {
		config.Client.Bind = DefaultBind
	}
	if config.Client.Interval == 0 {
		config.Client.Interval = int(SampleInterval / time.Second)
	}
	if config.Client.RetryDelay == 0 {
		config.Client.RetryDelay = int(RetryDelay / time.Second)
	}
	if config.Log.Level == 0 {
		config.Log.Level = 2
	}
	err := config.Validate()
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks values again after command line flags override them.
func (c *Custom) Validate() error {
	if (c.Server.Cert == "") != (c.Server.Key == "") {
		return fmt.Errorf("%w: server cert and key must be given together", ErrCertificate)
	}
	if c.Server.MaxIncomingUniStreams < 0 {
		return fmt.Errorf("invalid max incoming streams %d", c.Server.MaxIncomingUniStreams)
	}
	if c.Server.MaxConcurrentHandlers < 0 {
		return fmt.Errorf("invalid max concurrent handlers %d", c.Server.MaxConcurrentHandlers)
	}
	if c.Client.Interval <= 0 || c.Client.RetryDelay < 0 {
		return fmt.Errorf("invalid client timing %d %d", c.Client.Interval, c.Client.RetryDelay)
	}
	return nil
}

func (c *Custom) SampleInterval() time.Duration {
	return time.Duration(c.Client.Interval) * time.Second
}

func (c *Custom) RetryDelay() time.Duration {
	return time.Duration(c.Client.RetryDelay) * time.Second
}
