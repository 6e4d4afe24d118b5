package server

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAllowDenyConfig_Allows(t *testing.T) {
	validPlayer := &PlayerInfo{
		Name: "player_name",
		UUID: uuid.MustParse("53036a8f-cbc8-4074-bbc5-98e5e19b0b14"),
	}
	otherPlayer := &PlayerInfo{
		Name: "other_player",
		UUID: uuid.MustParse("0d51a0ca-f498-44bf-813f-635c18594b8c"),
	}

	tests := []struct {
		name   string
		config *AllowDenyConfig
		player *PlayerInfo
		want   bool
	}{
		{
			name:   "nil config",
			config: nil,
			player: validPlayer,
			want:   true,
		},
		{
			name:   "empty config",
			config: &AllowDenyConfig{},
			player: validPlayer,
			want:   true,
		},
		{
			name: "impossible allowlist entry never matches",
			config: &AllowDenyConfig{
				Allowlist: []PlayerInfo{{}},
			},
			player: validPlayer,
			want:   false,
		},
		{
			name: "player allowed",
			config: &AllowDenyConfig{
				Allowlist: []PlayerInfo{*validPlayer},
			},
			player: validPlayer,
			want:   true,
		},
		{
			name: "player not in allowlist",
			config: &AllowDenyConfig{
				Allowlist: []PlayerInfo{*otherPlayer},
			},
			player: validPlayer,
			want:   false,
		},
		{
			name: "player denied",
			config: &AllowDenyConfig{
				Denylist: []PlayerInfo{*validPlayer},
			},
			player: validPlayer,
			want:   false,
		},
		{
			name: "allowlist takes precedence over denylist",
			config: &AllowDenyConfig{
				Allowlist: []PlayerInfo{*validPlayer},
				Denylist:  []PlayerInfo{*validPlayer},
			},
			player: validPlayer,
			want:   true,
		},
		{
			name: "name-only entry matches regardless of uuid",
			config: &AllowDenyConfig{
				Allowlist: []PlayerInfo{{Name: "player_name"}},
			},
			player: validPlayer,
			want:   true,
		},
		{
			name: "uuid-only entry matches regardless of name",
			config: &AllowDenyConfig{
				Allowlist: []PlayerInfo{{UUID: validPlayer.UUID}},
			},
			player: validPlayer,
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.config.Allows(tt.player))
		})
	}
}
