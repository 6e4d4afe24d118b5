package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/itzg/go-flagsfiller"
	"github.com/sirupsen/logrus"

	"github.com/itzg/mc-relay/server"
)

const usageBanner = `proxy [flags] <target-ip> [listening-ip:port] [motd-json] [favicon-data-url]

Proxies Minecraft Java Edition client connections to a single upstream server,
synthesizing server-list-ping responses and relaying login sessions.
`

// ambientFlags holds every flag that layers on top of the mandated
// positional CLI contract. Populated by go-flagsfiller so usage strings live
// next to the field they document.
type ambientFlags struct {
	ApiBinding          string        `usage:"host:port for the optional HTTP status/metrics API"`
	MetricsBackend      string        `default:"discard" usage:"discard|expvar|prometheus|influxdb"`
	ConnectionRateLimit int           `default:"1" usage:"max accepted connections per second"`
	StatusProbeTimeout  time.Duration `default:"1500ms" usage:"upstream status probe bound"`
	CacheStatus         bool          `usage:"enable the upstream status cache"`
	StatusCacheTTL      time.Duration `default:"5s" usage:"status cache entry lifetime"`
	AllowDenyList       string        `usage:"path to a JSON allow/deny list of players"`
	ClientsToAllow      string        `usage:"comma-separated client IPs/CIDRs to allow; empty allows all"`
	ClientsToDeny       string        `usage:"comma-separated client IPs/CIDRs to deny"`
	MOTDFile            string        `usage:"path to a MOTD override file, hot-reloaded on write"`
	NgrokToken          string        `usage:"enable an ngrok TCP tunnel instead of a plain listener"`
	SendProxyProto      bool          `usage:"send a PROXY protocol v2 header to the upstream on login"`
	Debug               bool          `usage:"enable debug logging"`
}

func main() {
	var flags ambientFlags
	filler := flagsfiller.New()
	if err := filler.Fill(flag.CommandLine, &flags); err != nil {
		logrus.WithError(err).Fatal("could not register flags")
	}
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usageBanner)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 || len(args) > 4 {
		flag.Usage()
		os.Exit(0)
	}

	if flags.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	config := &server.Config{
		TargetIP:      args[0],
		ListenAddress: argOrDefault(args, 1, server.DefaultListenAddress),
		MOTD:          argOrDefault(args, 2, server.DefaultMOTD),
		OfflineMOTD:   server.DefaultOfflineMOTD,
		Favicon:       argOrDefault(args, 3, ""),

		ApiBinding:          flags.ApiBinding,
		MetricsBackend:      flags.MetricsBackend,
		ConnectionRateLimit: flags.ConnectionRateLimit,
		StatusProbeTimeout:  flags.StatusProbeTimeout,
		CacheStatus:         flags.CacheStatus,
		StatusCacheTTL:      flags.StatusCacheTTL,
		AllowDenyListPath:   flags.AllowDenyList,
		ClientsToAllow:      splitCommaList(flags.ClientsToAllow),
		ClientsToDeny:       splitCommaList(flags.ClientsToDeny),
		MOTDFile:            flags.MOTDFile,
		NgrokToken:          flags.NgrokToken,
		SendProxyProto:      flags.SendProxyProto,
		Debug:               flags.Debug,
	}

	if _, _, err := net.SplitHostPort(config.ListenAddress); err != nil {
		logrus.WithError(err).Fatal("invalid listening-ip:port")
	}

	server.PrintMOTD(config.MOTD)

	ctx, cancel := context.WithCancel(context.Background())

	s, err := server.NewServer(ctx, config)
	if err != nil {
		logrus.WithError(err).Fatal("could not start proxy")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	go s.Run()

	<-sig
	logrus.Info("shutting down")
	cancel()
	<-s.Done()
}

func argOrDefault(args []string, i int, def string) string {
	if i < len(args) {
		return args[i]
	}
	return def
}

func splitCommaList(val string) []string {
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
