package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/1804crypto/protect-the-streams-sub000/internal/game"
)

type missionEntry struct {
	StreamerID string          `json:"streamer_id"`
	Waves      []game.EnemyDef `json:"waves"`
}

type rawConfig struct {
	StreamerList []game.StreamerDef `json:"streamer_list"`
	MissionList  []missionEntry     `json:"mission_list"`
	ItemList     []game.Item        `json:"item_list"`
	Server       *struct {
		Address string `json:"address"`
	} `json:"server"`
	DifficultyMultiplier float64 `json:"difficulty_multiplier"`
	StaleMatchMinutes    int     `json:"stale_match_minutes"`
}

// LoadedConfig holds the parsed content catalog and server settings.
type LoadedConfig struct {
	Streamers            []game.StreamerDef
	Missions             map[string][]game.EnemyDef
	Items                []game.Item
	ServerAddress        string
	DifficultyMultiplier float64
	StaleMatchTTL        time.Duration
}

// StreamerByID looks up a streamer definition.
func (c *LoadedConfig) StreamerByID(id string) (game.StreamerDef, bool) {
	for _, s := range c.Streamers {
		if s.ID == id {
			return s, true
		}
	}
	return game.StreamerDef{}, false
}

// LoadConfig reads the configuration file at path. It requires the key
// `streamer_list` (snake_case) and a mission wave list per streamer.
func LoadConfig(path string) (*LoadedConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var rc rawConfig
	if err := json.Unmarshal(b, &rc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if len(rc.StreamerList) == 0 {
		return nil, fmt.Errorf("config file %s: streamer_list is empty (provide 'streamer_list' array)", path)
	}

	// Cross-entry validation: unique streamer IDs, natures from the known
	// set, moves with positive PP.
	idSet := make(map[string]struct{}, len(rc.StreamerList))
	natureSet := make(map[game.Nature]struct{}, len(game.AllNatures))
	for _, n := range game.AllNatures {
		natureSet[n] = struct{}{}
	}
	for _, s := range rc.StreamerList {
		id := strings.TrimSpace(s.ID)
		if id == "" {
			return nil, fmt.Errorf("config file %s: streamer entry missing 'id'", path)
		}
		if _, exists := idSet[id]; exists {
			return nil, fmt.Errorf("config file %s: duplicate streamer id '%s'", path, id)
		}
		idSet[id] = struct{}{}
		if s.MaxHP <= 0 {
			return nil, fmt.Errorf("config file %s: streamer '%s' needs max_hp > 0", path, id)
		}
		if _, ok := natureSet[s.Nature]; !ok {
			return nil, fmt.Errorf("config file %s: streamer '%s' has unknown nature '%s'", path, id, s.Nature)
		}
		if len(s.Moves) == 0 {
			return nil, fmt.Errorf("config file %s: streamer '%s' has no moves", path, id)
		}
		for _, m := range s.Moves {
			if m.PP <= 0 {
				return nil, fmt.Errorf("config file %s: move '%s' of streamer '%s' needs pp > 0", path, m.Name, id)
			}
		}
	}

	missions := make(map[string][]game.EnemyDef, len(rc.MissionList))
	for _, me := range rc.MissionList {
		if _, ok := idSet[me.StreamerID]; !ok {
			return nil, fmt.Errorf("config file %s: mission references unknown streamer '%s'", path, me.StreamerID)
		}
		if len(me.Waves) == 0 {
			return nil, fmt.Errorf("config file %s: mission for '%s' has no waves", path, me.StreamerID)
		}
		missions[me.StreamerID] = me.Waves
	}

	addr := ":8080"
	if rc.Server != nil && rc.Server.Address != "" {
		addr = rc.Server.Address
	}
	diff := rc.DifficultyMultiplier
	if diff <= 0 {
		diff = 1.0
	}
	staleTTL := 10 * time.Minute
	if rc.StaleMatchMinutes > 0 {
		staleTTL = time.Duration(rc.StaleMatchMinutes) * time.Minute
	}

	return &LoadedConfig{
		Streamers:            rc.StreamerList,
		Missions:             missions,
		Items:                rc.ItemList,
		ServerAddress:        addr,
		DifficultyMultiplier: diff,
		StaleMatchTTL:        staleTTL,
	}, nil
}
