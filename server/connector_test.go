package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestConnector(t *testing.T, cfg Config) *Connector {
	t.Helper()
	metrics := NewMetricsBuilder(MetricsBackendDiscard, &MetricsBackendConfig{}).BuildConnectorMetrics()
	return NewConnector(cfg, metrics, NewStatusCache(cfg.StatusCacheTTL), nil, nil)
}

func TestOfflineStatusJSON(t *testing.T) {
	c := newTestConnector(t, Config{
		OfflineMOTD: `"offline"`,
	})

	response := c.offlineStatusJSON()
	assert.Contains(t, response, `"protocol":-1`)
	assert.Contains(t, response, `"description":"offline"`)
	assert.Contains(t, response, `"online":0`)
}

func TestSpliceOnlineStatusJSON(t *testing.T) {
	c := newTestConnector(t, Config{
		MOTD: `"hello"`,
	})

	// players must be the last field for the splice regex to match, mirroring
	// original_source's own regex constraint.
	upstream := `{"version":{"name":"Vanilla 1.20.4","protocol":765},"description":"ignored","players":{"max":20,"online":3,"sample":[]}}`
	response := c.spliceOnlineStatusJSON(upstream)

	assert.Contains(t, response, `"name":"Paper 1.20.4"`)
	assert.Contains(t, response, `"players":{"max":20,"online":3,"sample":[]}`)
	assert.Contains(t, response, `"description":"hello"`)
}

func TestSpliceOnlineStatusJSON_FallsBackToOfflineWhenUnparseable(t *testing.T) {
	c := newTestConnector(t, Config{
		OfflineMOTD: `"offline"`,
	})

	response := c.spliceOnlineStatusJSON("not even json")
	assert.Contains(t, response, `"description":"offline"`)
}

func TestSpliceOnlineStatusJSON_FallsBackWhenPlayersNotLastField(t *testing.T) {
	c := newTestConnector(t, Config{
		OfflineMOTD: `"offline"`,
	})

	upstream := `{"players":{"max":20,"online":3,"sample":[]},"description":"ignored"}`
	response := c.spliceOnlineStatusJSON(upstream)
	assert.Contains(t, response, `"description":"offline"`)
}

func TestExtractPlayerCounts(t *testing.T) {
	online, max := extractPlayerCounts(`{"players":{"online":5,"max":20}}`)
	assert.Equal(t, 5, online)
	assert.Equal(t, 20, max)
}

func TestExtractPlayerCounts_MissingFieldsDefaultToZero(t *testing.T) {
	online, max := extractPlayerCounts(`{}`)
	assert.Equal(t, 0, online)
	assert.Equal(t, 0, max)
}

func TestUpdateMOTD(t *testing.T) {
	c := newTestConnector(t, Config{
		MOTD:        `"original"`,
		OfflineMOTD: `"original-offline"`,
	})

	c.UpdateMOTD(`"updated"`, `"updated-offline"`, "data:image/png;base64,xyz")

	motd, offlineMOTD := c.motdFields()
	assert.Equal(t, `"updated"`, motd)
	assert.Equal(t, `"updated-offline"`, offlineMOTD)
	assert.Equal(t, `"favicon":"data:image/png;base64,xyz",`, c.faviconField())
}

func TestProbeTimeout_DefaultsWhenUnset(t *testing.T) {
	c := newTestConnector(t, Config{})
	assert.Equal(t, defaultStatusProbeTimeout, c.probeTimeout())
}
