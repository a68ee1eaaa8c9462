package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/MixinNetwork/telemetry/client"
	"github.com/MixinNetwork/telemetry/config"
	"github.com/MixinNetwork/telemetry/logger"
	"github.com/MixinNetwork/telemetry/network"
	"github.com/MixinNetwork/telemetry/rpc"
	"github.com/MixinNetwork/telemetry/server"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func serverCmd(c *cli.Context) error {
	err := os.Setenv("QUIC_GO_DISABLE_GSO", "true")
	if err != nil {
		return err
	}

	custom, err := config.Initialize(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("listen") {
		custom.Server.Listen = c.String("listen")
	}
	if c.IsSet("cert") || c.IsSet("key") {
		custom.Server.Cert, custom.Server.Key = c.String("cert"), c.String("key")
	}
	if c.IsSet("rpc-port") {
		custom.RPC.Port = c.Int("rpc-port")
	}
	if c.IsSet("max-handlers") {
		custom.Server.MaxConcurrentHandlers = c.Int("max-handlers")
	}
	err = custom.Validate()
	if err != nil {
		return err
	}
	name := nodeName(c, custom, "collector")
	log, err := newLogger(c, custom, name)
	if err != nil {
		return err
	}

	var cert *network.Certificate
	if custom.Server.Cert != "" {
		cert, err = network.LoadCertificate(custom.Server.Cert, custom.Server.Key)
	} else {
		cert, err = network.GenerateCertificate(name)
	}
	if err != nil {
		return err
	}
	log.Printf("serverCmd() certificate for %v expires at %s", cert.Leaf().DNSNames, cert.Leaf().NotAfter)

	listener, err := network.ListenQuic(custom.Server.Listen, cert, network.ListenOptions{
		MaxIncomingUniStreams: custom.Server.MaxIncomingUniStreams,
	})
	if err != nil {
		return err
	}
	srv := server.NewServer(name, listener, server.Options{
		MaxConcurrentHandlers: custom.Server.MaxConcurrentHandlers,
		Metric:                custom.RPC.Port > 0,
	}, log)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return listener.Close()
	})
	g.Go(func() error {
		return srv.Serve(ctx)
	})
	if p := custom.RPC.Port; p > 0 {
		api := rpc.NewServer(srv, p)
		g.Go(func() error {
			<-ctx.Done()
			sc, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return api.Shutdown(sc)
		})
		g.Go(func() error {
			log.Printf("rpc.ListenAndServe(%d)", p)
			err := api.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

func clientCmd(c *cli.Context) error {
	err := os.Setenv("QUIC_GO_DISABLE_GSO", "true")
	if err != nil {
		return err
	}

	custom, err := config.Initialize(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("server") {
		custom.Client.Server = c.String("server")
	}
	if c.IsSet("server-name") {
		custom.Client.ServerName = c.String("server-name")
	}
	if c.IsSet("bind") {
		custom.Client.Bind = c.String("bind")
	}
	if c.IsSet("ca") {
		custom.Client.CA = c.String("ca")
	}
	if c.IsSet("interval") {
		custom.Client.Interval = c.Int("interval")
	}
	err = custom.Validate()
	if err != nil {
		return err
	}
	hostname, _ := os.Hostname()
	name := nodeName(c, custom, hostname)
	log, err := newLogger(c, custom, name)
	if err != nil {
		return err
	}

	trust := network.InsecureTrust()
	if custom.Client.CA != "" {
		trust, err = network.LoadAuthorityTrust(custom.Client.CA)
		if err != nil {
			return err
		}
	} else {
		log.Printf("clientCmd() WARNING server certificate verification is disabled, use --ca to pin an authority")
	}
	dialer, err := network.NewQuicDialer(network.DialOptions{
		Server:     custom.Client.Server,
		ServerName: custom.Client.ServerName,
		Bind:       custom.Client.Bind,
		Trust:      trust,
	})
	if err != nil {
		return err
	}

	producer := client.NewStreamProducer(name, custom.SampleInterval(), nil, log)
	driver := client.NewDriver(dialer, producer, custom.RetryDelay(), log)
	log.Printf("clientCmd(%s, %s, %s)", name, custom.Client.Server, trust)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = driver.Run(ctx)
	log.Printf("clientCmd() DONE %v sent %d dropped %d", err, producer.Sent(), producer.Dropped())
	return nil
}

func generateCertificateCmd(c *cli.Context) error {
	cert, err := network.GenerateCertificate(c.StringSlice("name")...)
	if err != nil {
		return err
	}
	err = cert.WriteFiles(c.String("cert"), c.String("key"))
	if err != nil {
		return err
	}
	fmt.Printf("cert:\t%s\nkey:\t%s\nnames:\t%v %v\nexpire:\t%s\n", c.String("cert"), c.String("key"),
		cert.Leaf().DNSNames, cert.Leaf().IPAddresses, cert.Leaf().NotAfter.Format(time.RFC3339))
	return nil
}

func getInfoCmd(c *cli.Context) error {
	info, err := rpc.GetInfo(c.String("node"))
	if err != nil {
		return err
	}
	fmt.Printf("name:\t\t%s\nversion:\t%s\nprotocol:\t%s\nlistener:\t%s\nuptime:\t\t%s\n",
		info.Name, info.Version, info.Protocol, info.Listener, info.Uptime)
	printMetric(info.Metric)
	return nil
}

func getMetricCmd(c *cli.Context) error {
	metric, err := rpc.GetMetric(c.String("node"))
	if err != nil {
		return err
	}
	printMetric(metric)
	return nil
}

func printMetric(metric map[string]uint32) {
	keys := make([]string, 0, len(metric))
	for k := range metric {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s:\t%d\n", k, metric[k])
	}
}

func nodeName(c *cli.Context, custom *config.Custom, fallback string) string {
	if c.IsSet("name") {
		return c.String("name")
	}
	if custom.Node.Name != "" {
		return custom.Node.Name
	}
	return fallback
}

func newLogger(c *cli.Context, custom *config.Custom, name string) (*logger.Logger, error) {
	level, filter := custom.Log.Level, custom.Log.Filter
	if c.IsSet("log") {
		level = c.Int("log")
	}
	if c.IsSet("filter") {
		filter = c.String("filter")
	}
	log := logger.New(os.Stdout, level)
	log.SetLimiter(custom.Log.Limiter)
	err := log.SetFilter(filter)
	if err != nil {
		return nil, err
	}
	return log.Named(name), nil
}
