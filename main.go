package main

import (
	"fmt"
	"os"

	"github.com/MixinNetwork/telemetry/config"
	"github.com/MixinNetwork/telemetry/logger"
	"github.com/urfave/cli/v2"
)

func main() {
	defaultRPC := os.Getenv("TELEMETRY_RPC")
	if defaultRPC == "" {
		defaultRPC = "http://127.0.0.1:6870"
	}

	app := cli.NewApp()
	app.Name = "telemetry"
	app.Usage = "Send and collect device samples over QUIC unidirectional streams."
	app.Version = config.BuildVersion
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "node",
			Aliases: []string{"n"},
			Value:   defaultRPC,
			Usage:   "the RPC endpoint, and the default value is read from environment variable TELEMETRY_RPC",
		},
	}
	app.EnableBashCompletion = true
	app.Commands = []*cli.Command{
		{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Start the telemetry collector",
			Action:  serverCmd,
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:  "listen",
					Usage: "the UDP address to accept sessions on",
				},
				&cli.StringFlag{
					Name:  "cert",
					Usage: "the PEM certificate `FILE`, a self-signed one is generated if empty",
				},
				&cli.StringFlag{
					Name:  "key",
					Usage: "the PEM private key `FILE` for the certificate",
				},
				&cli.IntFlag{
					Name:  "rpc-port",
					Usage: "the status RPC port, disabled if zero",
				},
				&cli.IntFlag{
					Name:  "max-handlers",
					Usage: "the maximum concurrent stream handlers, unbounded if zero",
				},
			}, commonFlags()...),
		},
		{
			Name:    "client",
			Aliases: []string{"c"},
			Usage:   "Start a device client sending samples to the collector",
			Action:  clientCmd,
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:  "server",
					Usage: "the collector `HOST:PORT`",
				},
				&cli.StringFlag{
					Name:  "server-name",
					Usage: "the name to verify in the server certificate",
				},
				&cli.StringFlag{
					Name:  "bind",
					Usage: "the local UDP address to dial from",
				},
				&cli.StringFlag{
					Name:  "ca",
					Usage: "the trusted authority `FILE`, server certificates are NOT verified if empty",
				},
				&cli.IntFlag{
					Name:  "interval",
					Usage: "the seconds between two samples",
				},
			}, commonFlags()...),
		},
		{
			Name:   "gencert",
			Usage:  "Generate a self-signed server certificate and key",
			Action: generateCertificateCmd,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "cert",
					Value: "server.crt",
					Usage: "the certificate output `FILE`",
				},
				&cli.StringFlag{
					Name:  "key",
					Value: "server.key",
					Usage: "the private key output `FILE`",
				},
				&cli.StringSliceFlag{
					Name:  "name",
					Usage: "extra DNS names or IP addresses for the certificate",
				},
			},
		},
		{
			Name:   "getinfo",
			Usage:  "Get info from the collector RPC",
			Action: getInfoCmd,
		},
		{
			Name:   "getmetric",
			Usage:  "Get the event counters from the collector RPC",
			Action: getMetricCmd,
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "name",
			Usage: "the identifier of this node",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "the TOML configuration `FILE`",
		},
		&cli.IntFlag{
			Name:    "log",
			Aliases: []string{"l"},
			Value:   logger.INFO,
			Usage:   "the log level",
		},
		&cli.StringFlag{
			Name:  "filter",
			Usage: "the RE2 regex pattern to filter log",
		},
	}
}
