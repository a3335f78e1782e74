package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pts_config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validConfig = `{
  "streamer_list": [
    {
      "id": "glitch_queen",
      "name": "Glitch Queen",
      "nature": "CRACKED",
      "max_hp": 100,
      "stats": {"influence": 40, "chaos": 70, "charisma": 30, "rebellion": 50},
      "moves": [{"name": "Static Surge", "type": "CHAOS", "power": 50, "pp": 10}]
    }
  ],
  "mission_list": [
    {
      "streamer_id": "glitch_queen",
      "waves": [{"id": "drone", "name": "Copyright Drone", "max_hp": 60, "base_attack": 10}]
    }
  ],
  "item_list": [{"id": "energy_drink", "name": "Energy Drink", "effect": {"kind": "heal", "value": 30}}],
  "server": {"address": ":9090"},
  "difficulty_multiplier": 1.5,
  "stale_match_minutes": 30
}`

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validConfig))
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Streamers) != 1 || cfg.Streamers[0].ID != "glitch_queen" {
		t.Errorf("streamers = %+v", cfg.Streamers)
	}
	if len(cfg.Missions["glitch_queen"]) != 1 {
		t.Errorf("missions = %+v", cfg.Missions)
	}
	if cfg.ServerAddress != ":9090" {
		t.Errorf("address = %s", cfg.ServerAddress)
	}
	if cfg.DifficultyMultiplier != 1.5 {
		t.Errorf("difficulty = %v", cfg.DifficultyMultiplier)
	}
	if cfg.StaleMatchTTL != 30*time.Minute {
		t.Errorf("stale TTL = %v", cfg.StaleMatchTTL)
	}

	s, ok := cfg.StreamerByID("glitch_queen")
	if !ok || s.Name != "Glitch Queen" {
		t.Errorf("StreamerByID = %+v, %v", s, ok)
	}
	if _, ok := cfg.StreamerByID("nobody"); ok {
		t.Error("unknown id resolved")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	minimal := `{
  "streamer_list": [
    {
      "id": "a", "name": "A", "nature": "CHILL", "max_hp": 50,
      "moves": [{"name": "Hit", "type": "CHAOS", "power": 10, "pp": 5}]
    }
  ]
}`
	cfg, err := LoadConfig(writeConfig(t, minimal))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerAddress != ":8080" {
		t.Errorf("default address = %s", cfg.ServerAddress)
	}
	if cfg.DifficultyMultiplier != 1.0 {
		t.Errorf("default difficulty = %v", cfg.DifficultyMultiplier)
	}
	if cfg.StaleMatchTTL != 10*time.Minute {
		t.Errorf("default stale TTL = %v", cfg.StaleMatchTTL)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	streamer := func(id, nature string, hp, pp int) string {
		return `{"id": "` + id + `", "name": "X", "nature": "` + nature + `", "max_hp": ` +
			strconv.Itoa(hp) + `, "moves": [{"name": "Hit", "type": "CHAOS", "power": 10, "pp": ` + strconv.Itoa(pp) + `}]}`
	}
	cases := []struct {
		name string
		body string
		want string
	}{
		{"empty streamer list", `{"streamer_list": []}`, "streamer_list is empty"},
		{"missing id", `{"streamer_list": [` + streamer("", "CHILL", 50, 5) + `]}`, "missing 'id'"},
		{"duplicate id", `{"streamer_list": [` + streamer("a", "CHILL", 50, 5) + `,` + streamer("a", "CHILL", 50, 5) + `]}`, "duplicate streamer id"},
		{"bad hp", `{"streamer_list": [` + streamer("a", "CHILL", 0, 5) + `]}`, "max_hp > 0"},
		{"unknown nature", `{"streamer_list": [` + streamer("a", "MOODY", 50, 5) + `]}`, "unknown nature"},
		{"zero pp", `{"streamer_list": [` + streamer("a", "CHILL", 50, 0) + `]}`, "pp > 0"},
		{"no moves", `{"streamer_list": [{"id": "a", "name": "X", "nature": "CHILL", "max_hp": 50, "moves": []}]}`, "no moves"},
		{"unknown mission streamer", `{"streamer_list": [` + streamer("a", "CHILL", 50, 5) + `], "mission_list": [{"streamer_id": "b", "waves": [{"id": "w", "max_hp": 10}]}]}`, "unknown streamer 'b'"},
		{"empty waves", `{"streamer_list": [` + streamer("a", "CHILL", 50, 5) + `], "mission_list": [{"streamer_id": "a", "waves": []}]}`, "no waves"},
		{"invalid json", `{`, "failed to parse"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.body))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("err = %v, want substring %q", err, tc.want)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	if err == nil || !strings.Contains(err.Error(), "failed to read") {
		t.Errorf("err = %v", err)
	}
}
