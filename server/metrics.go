package server

import (
	"context"
	"strings"
	"time"

	kitlogrus "github.com/go-kit/kit/log/logrus"
	"github.com/go-kit/kit/metrics"
	discardMetrics "github.com/go-kit/kit/metrics/discard"
	expvarMetrics "github.com/go-kit/kit/metrics/expvar"
	kitinflux "github.com/go-kit/kit/metrics/influx"
	prometheusMetrics "github.com/go-kit/kit/metrics/prometheus"
	influx "github.com/influxdata/influxdb1-client/v2"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

// ConnectorMetrics is the set of counters and gauges the connection state
// machine reports into, regardless of which backend renders them.
type ConnectorMetrics struct {
	Errors              metrics.Counter
	BytesTransmitted    metrics.Counter
	ConnectionsFrontend metrics.Counter
	ConnectionsBackend  metrics.Counter
	ActiveConnections   metrics.Gauge
	ActivePlayer        metrics.Gauge
	Logins              metrics.Counter
	RateLimitAvailable  metrics.Gauge
}

const (
	MetricsBackendExpvar     = "expvar"
	MetricsBackendPrometheus = "prometheus"
	MetricsBackendInfluxDB   = "influxdb"
	MetricsBackendDiscard    = "discard"
)

type MetricsBackendConfig struct {
	Influxdb struct {
		Interval        time.Duration
		Tags            map[string]string
		Addr            string
		Username        string
		Password        string
		Database        string
		RetentionPolicy string
	}
}

// MetricsBuilder constructs a ConnectorMetrics bound to a concrete reporting
// backend and, for backends that push rather than get scraped, starts the
// background reporting loop.
type MetricsBuilder interface {
	BuildConnectorMetrics() *ConnectorMetrics
	Start(ctx context.Context) error
}

func NewMetricsBuilder(backend string, config *MetricsBackendConfig) MetricsBuilder {
	switch strings.ToLower(backend) {
	case MetricsBackendExpvar:
		return &expvarMetricsBuilder{}
	case MetricsBackendPrometheus:
		return &prometheusMetricsBuilder{}
	case MetricsBackendInfluxDB:
		return &influxMetricsBuilder{config: config}
	default:
		return &discardMetricsBuilder{}
	}
}

type expvarMetricsBuilder struct{}

func (b expvarMetricsBuilder) Start(context.Context) error { return nil }

func (b expvarMetricsBuilder) BuildConnectorMetrics() *ConnectorMetrics {
	c := expvarMetrics.NewCounter("connections")
	return &ConnectorMetrics{
		Errors:              expvarMetrics.NewCounter("errors"),
		BytesTransmitted:    expvarMetrics.NewCounter("bytes"),
		ConnectionsFrontend: c,
		ConnectionsBackend:  c,
		ActiveConnections:   expvarMetrics.NewGauge("active_connections"),
		ActivePlayer:        expvarMetrics.NewGauge("active_player"),
		Logins:              expvarMetrics.NewCounter("logins"),
		RateLimitAvailable:  expvarMetrics.NewGauge("rate_limit_available"),
	}
}

type discardMetricsBuilder struct{}

func (b discardMetricsBuilder) Start(context.Context) error { return nil }

func (b discardMetricsBuilder) BuildConnectorMetrics() *ConnectorMetrics {
	return &ConnectorMetrics{
		Errors:              discardMetrics.NewCounter(),
		BytesTransmitted:    discardMetrics.NewCounter(),
		ConnectionsFrontend: discardMetrics.NewCounter(),
		ConnectionsBackend:  discardMetrics.NewCounter(),
		ActiveConnections:   discardMetrics.NewGauge(),
		ActivePlayer:        discardMetrics.NewGauge(),
		Logins:              discardMetrics.NewCounter(),
		RateLimitAvailable:  discardMetrics.NewGauge(),
	}
}

type influxMetricsBuilder struct {
	config  *MetricsBackendConfig
	metrics *kitinflux.Influx
}

func (b *influxMetricsBuilder) Start(ctx context.Context) error {
	cfg := &b.config.Influxdb
	if cfg.Addr == "" {
		return errors.New("influx addr is required")
	}

	ticker := time.NewTicker(cfg.Interval)
	client, err := influx.NewHTTPClient(influx.HTTPConfig{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		return errors.Wrap(err, "create influx http client")
	}

	go b.metrics.WriteLoop(ctx, ticker.C, client)

	logrus.WithField("addr", cfg.Addr).Debug("reporting metrics to influxdb")
	return nil
}

func (b *influxMetricsBuilder) BuildConnectorMetrics() *ConnectorMetrics {
	cfg := &b.config.Influxdb

	m := kitinflux.New(cfg.Tags, influx.BatchPointsConfig{
		Database:        cfg.Database,
		RetentionPolicy: cfg.RetentionPolicy,
	}, kitlogrus.NewLogger(logrus.StandardLogger()))
	b.metrics = m

	c := m.NewCounter("mc_relay_connections")
	return &ConnectorMetrics{
		Errors:              m.NewCounter("mc_relay_errors"),
		BytesTransmitted:    m.NewCounter("mc_relay_transmitted_bytes"),
		ConnectionsFrontend: c.With("side", "frontend"),
		ConnectionsBackend:  c.With("side", "backend"),
		ActiveConnections:   m.NewGauge("mc_relay_connections_active"),
		ActivePlayer:        m.NewGauge("mc_relay_player_active"),
		Logins:              m.NewCounter("mc_relay_logins"),
		RateLimitAvailable:  m.NewGauge("mc_relay_rate_limit_available"),
	}
}

type prometheusMetricsBuilder struct{}

func (b prometheusMetricsBuilder) Start(context.Context) error { return nil }

func (b prometheusMetricsBuilder) BuildConnectorMetrics() *ConnectorMetrics {
	return &ConnectorMetrics{
		Errors: prometheusMetrics.NewCounter(promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mc_relay",
			Name:      "errors",
			Help:      "The total number of errors",
		}, []string{"type"})),
		BytesTransmitted: prometheusMetrics.NewCounter(promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mc_relay",
			Name:      "bytes",
			Help:      "The total number of bytes transmitted",
		}, nil)),
		ConnectionsFrontend: prometheusMetrics.NewCounter(promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "mc_relay",
			Subsystem:   "frontend",
			Name:        "connections",
			Help:        "The total number of frontend connections",
			ConstLabels: prometheus.Labels{"side": "frontend"},
		}, nil)),
		ConnectionsBackend: prometheusMetrics.NewCounter(promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "mc_relay",
			Subsystem:   "backend",
			Name:        "connections",
			Help:        "The total number of backend connections",
			ConstLabels: prometheus.Labels{"side": "backend"},
		}, []string{"host"})),
		ActiveConnections: prometheusMetrics.NewGauge(promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mc_relay",
			Name:      "active_connections",
			Help:      "The number of active connections",
		}, nil)),
		ActivePlayer: prometheusMetrics.NewGauge(promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mc_relay",
			Name:      "active_player",
			Help:      "Player is currently connected",
		}, []string{"player_name", "player_uuid"})),
		Logins: prometheusMetrics.NewCounter(promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mc_relay",
			Name:      "logins",
			Help:      "The total number of player logins",
		}, []string{"player_name", "player_uuid"})),
		RateLimitAvailable: prometheusMetrics.NewGauge(promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mc_relay",
			Name:      "rate_limit_available",
			Help:      "The number of available tokens in the connection rate limit bucket",
		}, nil)),
	}
}
