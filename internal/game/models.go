package game

import (
	"time"

	"gorm.io/gorm"
)

// Stats is the four-axis stat line shared by streamers, enemies and PvP
// combatants. Values are kept in [0,100].
type Stats struct {
	Influence int `json:"influence"`
	Chaos     int `json:"chaos"`
	Charisma  int `json:"charisma"`
	Rebellion int `json:"rebellion"`
}

// Clamp returns a copy of the stat line with every axis forced into [0,100].
func (s Stats) Clamp() Stats {
	c := func(v int) int {
		if v < 0 {
			return 0
		}
		if v > 100 {
			return 100
		}
		return v
	}
	return Stats{Influence: c(s.Influence), Chaos: c(s.Chaos), Charisma: c(s.Charisma), Rebellion: c(s.Rebellion)}
}

// Match status values. A match is created ACTIVE with both wagers escrowed
// and becomes FINISHED exactly once, at which point the pot is paid out.
const (
	MatchStatusActive   = "ACTIVE"
	MatchStatusFinished = "FINISHED"
)

// PvPMatch is the persisted, authoritative record for one PvP battle. HP and
// turn ownership are mutated exclusively through the validate-move service
// call; clients only ever read this record.
type PvPMatch struct {
	gorm.Model
	MatchUUID     string `json:"match_uuid" gorm:"uniqueIndex"`
	AttackerID    string `json:"attacker_id" gorm:"index"`
	DefenderID    string `json:"defender_id" gorm:"index"`
	AttackerHP    int    `json:"attacker_hp"`
	DefenderHP    int    `json:"defender_hp"`
	AttackerMax   int    `json:"attacker_max_hp"`
	DefenderMax   int    `json:"defender_max_hp"`
	AttackerStats Stats  `json:"attacker_stats" gorm:"embedded;embeddedPrefix:attacker_"`
	DefenderStats Stats  `json:"defender_stats" gorm:"embedded;embeddedPrefix:defender_"`
	TurnPlayerID  string `json:"turn_player_id"`
	WagerAmount   int64  `json:"wager_amount"`
	Status        string `json:"status"`
	WinnerID      string `json:"winner_id"`
}

func (PvPMatch) TableName() string { return "pvp_matches" }

// Mission ranks, worst to best. Rank only ever upgrades on repeat clears.
const (
	RankF = "F"
	RankB = "B"
	RankA = "A"
	RankS = "S"
)

var rankOrder = map[string]int{RankF: 0, RankB: 1, RankA: 2, RankS: 3}

// BetterRank returns the higher of two ranks.
func BetterRank(a, b string) string {
	if rankOrder[b] > rankOrder[a] {
		return b
	}
	return a
}

// LevelForXP maps cumulative mission XP to a streamer level (1..5) using the
// fixed 100/250/500/1000 thresholds.
func LevelForXP(xp int) int {
	switch {
	case xp >= 1000:
		return 5
	case xp >= 500:
		return 4
	case xp >= 250:
		return 3
	case xp >= 100:
		return 2
	default:
		return 1
	}
}

// MissionRecord stores a player's best result for one streamer's mission.
type MissionRecord struct {
	gorm.Model
	PlayerID   string    `json:"player_id" gorm:"index:idx_mission_player_streamer,unique"`
	StreamerID string    `json:"streamer_id" gorm:"index:idx_mission_player_streamer,unique"`
	Rank       string    `json:"rank"`
	XP         int       `json:"xp"`
	Level      int       `json:"level"`
	ClearedAt  time.Time `json:"cleared_at"`
}

func (MissionRecord) TableName() string { return "mission_records" }

// PlayerProfile stores identity, wager balance and PvP rating aggregates.
// Balance is mutated only inside the atomic escrow/payout boundaries.
type PlayerProfile struct {
	gorm.Model
	PlayerID      string `json:"player_id" gorm:"uniqueIndex"`
	DisplayName   string `json:"display_name"`
	Balance       int64  `json:"balance"`
	Rating        int    `json:"rating"`
	Wins          int    `json:"wins"`
	Losses        int    `json:"losses"`
	MatchesPlayed int    `json:"matches_played"`
}

func (PlayerProfile) TableName() string { return "player_profiles" }
