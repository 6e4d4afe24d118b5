package server

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"
)

// PlayerInfo identifies a connecting player by the fields carried in
// LoginStart: its Mojang username and account UUID.
type PlayerInfo struct {
	Name string    `json:"name"`
	UUID uuid.UUID `json:"uuid"`
}

// AllowDenyConfig gates which players may complete a login handoff. An
// empty allowlist falls through to the denylist; an empty denylist with an
// empty allowlist allows everyone.
type AllowDenyConfig struct {
	Allowlist []PlayerInfo `json:"allowlist"`
	Denylist  []PlayerInfo `json:"denylist"`
}

func ParseAllowDenyConfig(path string) (*AllowDenyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := AllowDenyConfig{}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func entryMatchesPlayer(entry PlayerInfo, player *PlayerInfo) bool {
	if entry.Name == "" && entry.UUID == uuid.Nil {
		return false
	}
	if entry.Name != "" && entry.UUID != uuid.Nil {
		return entry.Name == player.Name && entry.UUID == player.UUID
	}
	if entry.UUID != uuid.Nil {
		return entry.UUID == player.UUID
	}
	return entry.Name == player.Name
}

// Allows reports whether player may proceed past login handoff.
func (c *AllowDenyConfig) Allows(player *PlayerInfo) bool {
	if c == nil || player == nil {
		return true
	}

	for _, allowed := range c.Allowlist {
		if entryMatchesPlayer(allowed, player) {
			return true
		}
	}
	if len(c.Allowlist) > 0 {
		return false
	}

	for _, denied := range c.Denylist {
		if entryMatchesPlayer(denied, player) {
			return false
		}
	}
	return true
}
