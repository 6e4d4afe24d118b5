package server

import "time"

// DefaultMOTD and DefaultOfflineMOTD mirror the fabricated status JSON's
// description field when no MOTD argument is given on the command line.
const (
	DefaultMOTD          = `[{"text":"A ","color":"gold"},{"text":"mc-relay","color":"green"},{"text":" proxy.","color":"gold"}]`
	DefaultOfflineMOTD   = `[{"text":"A ","color":"gold"},{"text":"mc-relay","color":"green"},{"text":" proxy. ","color":"gold"},{"text":"(","color":"gray"},{"text":"Offline","color":"red"},{"text":")","color":"gray"}]`
	DefaultListenAddress = "0.0.0.0:25565"

	defaultUpstreamPort = "25565"
	statusVersionName   = "Paper 1.20.4"
	statusProtocolMax   = 765
	offlineProtocol     = -1
)

// Config holds every runtime setting the proxy needs, whether sourced from
// the mandated positional CLI arguments or from the ambient flags layered
// on top of them. It is built once at startup (MOTDWatcher's initial load may
// overwrite MOTD/OfflineMOTD/Favicon) and never mutated afterward; later MOTD
// file changes are swapped into the Connector's own copies instead.
type Config struct {
	TargetIP       string
	ListenAddress  string
	MOTD           string
	OfflineMOTD    string
	Favicon        string

	ApiBinding          string
	MetricsBackend      string
	MetricsConfig       MetricsBackendConfig
	ConnectionRateLimit int
	StatusProbeTimeout  time.Duration
	CacheStatus         bool
	StatusCacheTTL      time.Duration
	AllowDenyListPath   string
	ClientsToAllow      []string
	ClientsToDeny       []string
	MOTDFile            string
	NgrokToken          string
	SendProxyProto      bool
	Debug               bool
}
