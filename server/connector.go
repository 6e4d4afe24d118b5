package server

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"regexp"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/juju/ratelimit"
	"github.com/pires/go-proxyproto"
	"github.com/pkg/errors"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
	"golang.ngrok.com/ngrok"
	"golang.ngrok.com/ngrok/config"

	"github.com/itzg/mc-relay/mcproto"
)

const (
	handshakeTimeout        = 5 * time.Second
	defaultStatusProbeTimeout = 1500 * time.Millisecond
	backendRetryInterval    = 3 * time.Second
)

var noDeadline time.Time

// playersObjectPattern mirrors original_source's regex, which finds
// "players":{...} only when it is immediately followed by one more closing
// brace (i.e. players is the last field before the upstream response's
// outer object closes).
var playersObjectPattern = regexp.MustCompile(`("players":\{.+})}`)
var onlineCountPattern = regexp.MustCompile(`"online":(\d+)`)
var maxCountPattern = regexp.MustCompile(`"max":(\d+)`)

// Connector owns the listening socket and, per accepted connection, drives
// the Handshake -> {Status, LoginHandoff} -> {ForwardingRaw, Closed} state
// machine against a single fixed upstream target.
type Connector struct {
	config  Config
	metrics *ConnectorMetrics

	activeConnections int32

	clientGate   *AllowDenyConfig
	clientFilter *ClientFilter
	cache        *StatusCache

	motdMu      sync.RWMutex
	motd        string
	offlineMOTD string
	favicon     string
}

func NewConnector(config Config, metrics *ConnectorMetrics, cache *StatusCache, clientGate *AllowDenyConfig, clientFilter *ClientFilter) *Connector {
	if clientFilter == nil {
		clientFilter = NewClientFilterAllowAll()
	}
	return &Connector{
		config:       config,
		metrics:      metrics,
		cache:        cache,
		clientGate:   clientGate,
		clientFilter: clientFilter,
		motd:         config.MOTD,
		offlineMOTD:  config.OfflineMOTD,
		favicon:      config.Favicon,
	}
}

// UpdateMOTD hot-swaps the status response fields the connector reports,
// without disturbing in-flight connections.
func (c *Connector) UpdateMOTD(motd, offlineMOTD, favicon string) {
	c.motdMu.Lock()
	defer c.motdMu.Unlock()
	c.motd = motd
	c.offlineMOTD = offlineMOTD
	c.favicon = favicon
}

func (c *Connector) probeTimeout() time.Duration {
	if c.config.StatusProbeTimeout > 0 {
		return c.config.StatusProbeTimeout
	}
	return defaultStatusProbeTimeout
}

func (c *Connector) faviconField() string {
	c.motdMu.RLock()
	defer c.motdMu.RUnlock()
	if c.favicon == "" {
		return ""
	}
	return `"favicon":"` + c.favicon + `",`
}

func (c *Connector) motdFields() (motd, offlineMOTD string) {
	c.motdMu.RLock()
	defer c.motdMu.RUnlock()
	return c.motd, c.offlineMOTD
}

// StartAcceptingConnections binds the listening socket (or an ngrok tunnel,
// if configured) and begins accepting connections in the background.
func (c *Connector) StartAcceptingConnections(ctx context.Context) error {
	ln, err := c.createListener(ctx)
	if err != nil {
		return err
	}

	go c.acceptConnections(ctx, ln)
	return nil
}

func (c *Connector) createListener(ctx context.Context) (net.Listener, error) {
	if c.config.NgrokToken != "" {
		tun, err := ngrok.Listen(ctx, config.TCPEndpoint(), ngrok.WithAuthtoken(c.config.NgrokToken))
		if err != nil {
			return nil, errors.Wrap(err, "start ngrok tunnel")
		}
		logrus.WithField("ngrokUrl", tun.URL()).Info("listening via ngrok tunnel")
		return tun, nil
	}

	listener, err := net.Listen("tcp", c.config.ListenAddress)
	if err != nil {
		return nil, errors.Wrap(err, "listen")
	}
	logrus.WithField("listenAddress", c.config.ListenAddress).Info("listening for Minecraft client connections")
	return listener, nil
}

func (c *Connector) acceptConnections(ctx context.Context, ln net.Listener) {
	defer ln.Close()

	rate := float64(c.config.ConnectionRateLimit)
	if rate <= 0 {
		rate = 1
	}
	bucket := ratelimit.NewBucketWithRate(rate, int64(rate*2))

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(bucket.Take(1)):
			c.metrics.RateLimitAvailable.Set(float64(bucket.Available()))
			conn, err := ln.Accept()
			if err != nil {
				logrus.WithError(err).Error("failed to accept connection")
				continue
			}

			if addrPort, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
				if !c.clientFilter.Allow(addrPort.AddrPort()) {
					logrus.WithField("client", addrPort).Info("rejected connection from filtered client address")
					conn.Close()
					continue
				}
			}

			go c.HandleConnection(ctx, conn)
		}
	}
}

// HandleConnection drives one accepted connection through the full state
// machine: AwaitingHandshake, then Status or LoginHandoff.
func (c *Connector) HandleConnection(ctx context.Context, frontendConn net.Conn) {
	c.metrics.ConnectionsFrontend.Add(1)
	defer frontendConn.Close()

	clientAddr := frontendConn.RemoteAddr()
	logger := logrus.WithField("client", clientAddr)

	reader := bufio.NewReader(frontendConn)

	if err := frontendConn.SetReadDeadline(time.Now().Add(handshakeTimeout)); err != nil {
		logger.WithError(err).Error("failed to set handshake read deadline")
		c.metrics.Errors.With("type", "read_deadline").Add(1)
		return
	}

	marker, err := reader.Peek(1)
	if err != nil {
		logger.WithError(err).Debug("failed to peek first byte")
		c.metrics.Errors.With("type", "read").Add(1)
		return
	}

	if marker[0] == mcproto.LegacyPingMarker {
		c.handleLegacyPing(frontendConn, reader, logger)
		return
	}

	handshake, err := mcproto.ReadPacket[mcproto.Handshake, *mcproto.Handshake](reader)
	if err != nil {
		logger.WithError(err).Error("failed to read handshake")
		c.metrics.Errors.With("type", "read").Add(1)
		return
	}

	logger = logger.WithField("serverAddress", handshake.ServerAddress)

	switch handshake.NextState {
	case mcproto.NextStateStatus:
		c.handleStatus(ctx, frontendConn, reader, logger)
	case mcproto.NextStateLogin:
		c.handleLoginHandoff(ctx, frontendConn, reader, handshake, logger)
	}
}

func (c *Connector) handleLegacyPing(frontendConn net.Conn, reader *bufio.Reader, logger *logrus.Entry) {
	ping, err := mcproto.ReadLegacyPing(reader)
	if err != nil {
		logger.WithError(err).Debug("failed to read legacy ping")
		c.metrics.Errors.With("type", "read").Add(1)
		return
	}

	logger.WithField("legacyPing", ping).Debug("got legacy server list ping")

	probeCtx, cancel := context.WithTimeout(context.Background(), c.probeTimeout())
	defer cancel()

	online, max := 0, 0
	if response, err := c.probeUpstream(probeCtx); err == nil {
		online, max = extractPlayerCounts(response)
	}

	motd, _ := c.motdFields()
	if err := mcproto.WriteLegacyPingResponse(frontendConn, 127, "1.20.4", motd, online, max); err != nil {
		logger.WithError(err).Error("failed to write legacy ping response")
		c.metrics.Errors.With("type", "write").Add(1)
	}
}

// handleStatus performs up to two request/response round-trips per §4.4:
// a StatusRequest followed by a PingRequest. A client that closes after the
// first exchange is tolerated rather than treated as an error.
func (c *Connector) handleStatus(ctx context.Context, frontendConn net.Conn, reader *bufio.Reader, logger *logrus.Entry) {
	for i := 0; i < 2; i++ {
		frame, err := mcproto.ReadFrame(reader)
		if err != nil {
			if errors.Cause(err) == io.EOF {
				logger.Debug("client closed after status exchange")
			} else {
				logger.WithError(err).Debug("failed to read status-phase frame")
				c.metrics.Errors.With("type", "read").Add(1)
			}
			return
		}

		switch frame.ID {
		case 0x00:
			c.respondToStatusRequest(ctx, frontendConn, logger)
		case 0x01:
			payload, err := mcproto.ReadI64(bytes.NewReader(frame.Body))
			if err != nil {
				logger.WithError(err).Debug("failed to decode ping request")
				c.metrics.Errors.With("type", "read").Add(1)
				return
			}
			if err := mcproto.WritePacket[*mcproto.PongResponse](frontendConn, &mcproto.PongResponse{Payload: payload}); err != nil {
				logger.WithError(err).Error("failed to write pong response")
				c.metrics.Errors.With("type", "write").Add(1)
				return
			}
			return
		default:
			logger.WithField("frameID", frame.ID).Warn("unexpected frame id in status phase")
			return
		}
	}
}

func (c *Connector) respondToStatusRequest(ctx context.Context, frontendConn net.Conn, logger *logrus.Entry) {
	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout())
	defer cancel()

	var response string
	upstreamResponse, err := c.probeUpstream(probeCtx)
	if err != nil {
		logger.WithError(err).Debug("upstream status probe failed, sending offline status")
		c.metrics.Errors.With("type", "probe_failed").Add(1)
		response = c.offlineStatusJSON()
	} else {
		response = c.spliceOnlineStatusJSON(upstreamResponse)
		if c.config.CacheStatus {
			c.cache.Set(c.config.TargetIP, upstreamResponse)
		}
	}

	if err := mcproto.WritePacket[*mcproto.StatusResponse](frontendConn, &mcproto.StatusResponse{Response: response}); err != nil {
		logger.WithError(err).Error("failed to write status response")
		c.metrics.Errors.With("type", "write").Add(1)
	}
}

// probeUpstream implements §4.5: a time-bounded connect, handshake,
// StatusRequest, StatusResponse round trip against the fixed target.
func (c *Connector) probeUpstream(ctx context.Context) (string, error) {
	if c.config.CacheStatus {
		if cached, ok := c.cache.Get(c.config.TargetIP); ok {
			return cached, nil
		}
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(c.config.TargetIP, defaultUpstreamPort))
	if err != nil {
		return "", errors.Wrap(err, "dial upstream")
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	handshake := &mcproto.Handshake{
		ProtocolVersion: 0,
		ServerAddress:   c.config.TargetIP,
		ServerPort:      25565,
		NextState:       mcproto.NextStateStatus,
	}
	if err := mcproto.WritePacket[*mcproto.Handshake](conn, handshake); err != nil {
		return "", errors.Wrap(err, "write probe handshake")
	}
	if err := mcproto.WritePacket[*mcproto.StatusRequest](conn, &mcproto.StatusRequest{}); err != nil {
		return "", errors.Wrap(err, "write probe status request")
	}

	status, err := mcproto.ReadPacket[mcproto.StatusResponse, *mcproto.StatusResponse](conn)
	if err != nil {
		return "", errors.Wrap(err, "read probe status response")
	}
	return status.Response, nil
}

func (c *Connector) offlineStatusJSON() string {
	_, offlineMOTD := c.motdFields()
	return `{"version":{"name":"Offline","protocol":` + strconv.Itoa(offlineProtocol) + `},"players":{"max":0,"online":0,"sample":[]},"description":` +
		offlineMOTD + `,` + c.faviconField() + `"enforcesSecureChat":true,"previewsChat":true}`
}

// spliceOnlineStatusJSON extracts the upstream's "players":{...} object via
// regular expression and grafts it into a locally composed status JSON,
// replacing the upstream's own version/description/favicon with configured
// values. Falls back to the offline status if the upstream response does
// not contain a recognizable players object.
func (c *Connector) spliceOnlineStatusJSON(upstreamResponse string) string {
	match := playersObjectPattern.FindStringSubmatch(upstreamResponse)
	if match == nil {
		return c.offlineStatusJSON()
	}
	playersField := match[1]

	motd, _ := c.motdFields()
	return `{"version":{"name":"` + statusVersionName + `","protocol":` + strconv.Itoa(statusProtocolMax) + `},` +
		playersField + `,"description":` + motd + `,` + c.faviconField() +
		`"enforcesSecureChat":true,"previewsChat":true}`
}

func extractPlayerCounts(statusJSON string) (online, max int) {
	if m := onlineCountPattern.FindStringSubmatch(statusJSON); m != nil {
		online, _ = strconv.Atoi(m[1])
	}
	if m := maxCountPattern.FindStringSubmatch(statusJSON); m != nil {
		max, _ = strconv.Atoi(m[1])
	}
	return
}

// handleLoginHandoff implements §4.4's LoginHandoff state: rewrite the
// handshake's server_address, read LoginStart, connect upstream, replay the
// rewritten handshake and LoginStart, then degrade to byte splicing. The
// frontend's original handshake/LoginStart bytes are never replayed upstream
// verbatim; the backend only ever sees the rewritten re-encoding of them.
func (c *Connector) handleLoginHandoff(ctx context.Context, frontendConn net.Conn, reader *bufio.Reader,
	handshake *mcproto.Handshake, logger *logrus.Entry) {

	loginStart, err := mcproto.ReadPacket[mcproto.LoginStart, *mcproto.LoginStart](reader)
	if err != nil {
		logger.WithError(err).Error("failed to read login start")
		c.metrics.Errors.With("type", "read").Add(1)
		return
	}

	player := &PlayerInfo{Name: loginStart.Name, UUID: loginStart.PlayerUUID}
	logger = logger.WithField("player", player)

	if !c.clientGate.Allows(player) {
		logger.Info("player denied by allow/deny list")
		c.metrics.Errors.With("type", "denied").Add(1)
		return
	}

	rewritten := *handshake
	rewritten.ServerAddress = c.config.TargetIP

	backendConn, err := c.retryBackendConnection(ctx, handshakeTimeout)
	if err != nil {
		logger.WithError(err).Warn("unable to connect to backend")
		c.metrics.Errors.With("type", "backend_failed").Add(1)
		return
	}
	defer backendConn.Close()

	if err := mcproto.WritePacket[*mcproto.Handshake](backendConn, &rewritten); err != nil {
		logger.WithError(err).Error("failed to replay handshake to backend")
		c.metrics.Errors.With("type", "backend_failed").Add(1)
		return
	}
	if err := mcproto.WritePacket[*mcproto.LoginStart](backendConn, loginStart); err != nil {
		logger.WithError(err).Error("failed to replay login start to backend")
		c.metrics.Errors.With("type", "backend_failed").Add(1)
		return
	}

	c.metrics.ConnectionsBackend.With("host", c.config.TargetIP).Add(1)
	c.metrics.ActiveConnections.Set(float64(atomic.AddInt32(&c.activeConnections, 1)))
	defer c.metrics.ActiveConnections.Set(float64(atomic.AddInt32(&c.activeConnections, -1)))

	c.metrics.Logins.With("player_name", player.Name, "player_uuid", player.UUID.String()).Add(1)
	c.metrics.ActivePlayer.With("player_name", player.Name, "player_uuid", player.UUID.String()).Set(1)
	defer c.metrics.ActivePlayer.With("player_name", player.Name, "player_uuid", player.UUID.String()).Set(0)

	if c.config.SendProxyProto {
		header := &proxyproto.Header{
			Version:           2,
			Command:           proxyproto.PROXY,
			TransportProtocol: proxyproto.TCPv4,
			SourceAddr:        frontendConn.RemoteAddr(),
			DestinationAddr:   frontendConn.LocalAddr(),
		}
		if _, err := header.WriteTo(backendConn); err != nil {
			logger.WithError(err).Error("failed to write PROXY header")
			c.metrics.Errors.With("type", "proxy_write").Add(1)
			return
		}
	}

	if err := frontendConn.SetReadDeadline(noDeadline); err != nil {
		logger.WithError(err).Error("failed to clear read deadline")
		return
	}

	c.pumpConnections(ctx, frontendConn, backendConn, logger)
}

func (c *Connector) retryBackendConnection(ctx context.Context, timeout time.Duration) (net.Conn, error) {
	base, err := retry.NewConstant(backendRetryInterval)
	if err != nil {
		return nil, errors.Wrap(err, "construct retry backoff")
	}
	backoff := retry.WithMaxDuration(timeout, base)

	var conn net.Conn
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		var d net.Dialer
		c2, err := d.DialContext(ctx, "tcp", net.JoinHostPort(c.config.TargetIP, defaultUpstreamPort))
		if err != nil {
			return retry.RetryableError(err)
		}
		conn = c2
		return nil
	})
	return conn, err
}

// pumpConnections is the byte splicer (§4.6): copy both directions
// concurrently until either side errors or EOFs, then close the peer.
func (c *Connector) pumpConnections(ctx context.Context, frontendConn, backendConn net.Conn, logger *logrus.Entry) {
	errs := make(chan error, 2)

	go c.pumpFrames(backendConn, frontendConn, errs)
	go c.pumpFrames(frontendConn, backendConn, errs)

	select {
	case err := <-errs:
		if err != io.EOF {
			logger.WithError(err).Error("error observed on connection relay")
			c.metrics.Errors.With("type", "relay").Add(1)
		}
	case <-ctx.Done():
		logger.Debug("context cancelled")
	}
}

func (c *Connector) pumpFrames(dst io.Writer, src io.Reader, errs chan<- error) {
	amount, err := io.Copy(dst, src)
	c.metrics.BytesTransmitted.Add(float64(amount))
	if err != nil {
		errs <- err
		return
	}
	errs <- io.EOF
}
