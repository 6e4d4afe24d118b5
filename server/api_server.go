package server

import (
	"context"
	"encoding/json"
	"expvar"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// StartApiServer exposes expvar, Prometheus, and the proxy's own status
// endpoint over HTTP, in the background.
func StartApiServer(apiBinding string, connector *Connector) {
	logrus.WithField("binding", apiBinding).Info("serving API requests")

	router := mux.NewRouter()
	router.Path("/vars").Handler(expvar.Handler())
	router.Path("/metrics").Handler(promhttp.Handler())
	router.Path("/status").Methods("GET").HandlerFunc(statusHandler(connector))

	go func() {
		logrus.WithError(http.ListenAndServe(apiBinding, router)).Error("api server stopped")
	}()
}

func statusHandler(connector *Connector) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		ctx, cancel := context.WithTimeout(request.Context(), 2*time.Second)
		defer cancel()

		response, err := connector.probeUpstream(ctx)
		body := struct {
			TargetIP string `json:"targetIp"`
			Online   bool   `json:"online"`
			Status   string `json:"status,omitempty"`
		}{
			TargetIP: connector.config.TargetIP,
			Online:   err == nil,
			Status:   response,
		}

		writer.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(writer).Encode(body); err != nil {
			logrus.WithError(err).Error("failed to write status response")
		}
	}
}
