package server

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Server wires together the connector, metrics backend, MOTD watcher and API
// endpoint, and owns their lifecycle for the life of the process.
type Server struct {
	ctx       context.Context
	config    *Config
	connector *Connector
	doneChan  chan struct{}
}

func NewServer(ctx context.Context, config *Config) (*Server, error) {
	var clientGate *AllowDenyConfig
	if config.AllowDenyListPath != "" {
		var err error
		clientGate, err = ParseAllowDenyConfig(config.AllowDenyListPath)
		if err != nil {
			return nil, errors.Wrap(err, "parse allow/deny list")
		}
	}

	clientFilter, err := NewClientFilter(config.ClientsToAllow, config.ClientsToDeny)
	if err != nil {
		return nil, errors.Wrap(err, "create client filter")
	}

	metricsBuilder := NewMetricsBuilder(config.MetricsBackend, &config.MetricsConfig)

	var cache *StatusCache
	if config.CacheStatus {
		cache = NewStatusCache(config.StatusCacheTTL)
	}

	var motdWatcher *MOTDWatcher
	if config.MOTDFile != "" {
		var err error
		motdWatcher, err = NewMOTDWatcher(config.MOTDFile, config)
		if err != nil {
			return nil, errors.Wrap(err, "load motd file")
		}
	}

	connector := NewConnector(*config, metricsBuilder.BuildConnectorMetrics(), cache, clientGate, clientFilter)

	if motdWatcher != nil {
		motdWatcher.bindConnector(connector)
		go motdWatcher.Watch(ctx)
	}

	if config.ApiBinding != "" {
		StartApiServer(config.ApiBinding, connector)
	}

	if err := metricsBuilder.Start(ctx); err != nil {
		return nil, errors.Wrap(err, "start metrics reporter")
	}

	return &Server{
		ctx:       ctx,
		config:    config,
		connector: connector,
		doneChan:  make(chan struct{}),
	}, nil
}

// Done provides a channel notified when the server has stopped accepting
// connections.
func (s *Server) Done() <-chan struct{} {
	return s.doneChan
}

// Run starts accepting connections and blocks until the context is done.
func (s *Server) Run() {
	if err := s.connector.StartAcceptingConnections(s.ctx); err != nil {
		logrus.WithError(err).Error("could not start accepting connections")
		close(s.doneChan)
		return
	}

	<-s.ctx.Done()
	logrus.Info("stopping")
	close(s.doneChan)
}
