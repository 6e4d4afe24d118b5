package server

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// CachedStatus holds a prior upstream status probe result, keyed by the
// configured upstream target.
type CachedStatus struct {
	Response    string
	LastUpdated time.Time
}

// StatusCache memoizes raw upstream StatusResponse bodies for StatusCacheTTL
// so a burst of server-list pings does not open one upstream connection per
// client. A miss (absent or expired entry) always falls through to a fresh
// probe.
type StatusCache struct {
	mu    sync.RWMutex
	cache map[string]*CachedStatus
	ttl   time.Duration
}

func NewStatusCache(ttl time.Duration) *StatusCache {
	return &StatusCache{
		cache: make(map[string]*CachedStatus),
		ttl:   ttl,
	}
}

func (sc *StatusCache) Get(serverAddress string) (string, bool) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	status, ok := sc.cache[serverAddress]
	if !ok || time.Since(status.LastUpdated) > sc.ttl {
		return "", false
	}
	return status.Response, true
}

func (sc *StatusCache) Set(serverAddress string, response string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cache[serverAddress] = &CachedStatus{
		Response:    response,
		LastUpdated: time.Now(),
	}
	logrus.WithField("serverAddress", serverAddress).Debug("cached upstream status")
}
