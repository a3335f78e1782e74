package engine

import (
	"math"

	"github.com/1804crypto/protect-the-streams-sub000/internal/game"
)

const (
	missionBaseXP     = 50
	missionBossBaseXP = 150
	consolationXP     = 10
)

// RankForClear grades a successful mission: S for a near-flawless fast
// clear, A for either healthy HP or a quick finish, B otherwise.
func RankForClear(hpRatio float64, turns int) string {
	if hpRatio > 0.8 && turns < 10 {
		return game.RankS
	}
	if hpRatio > 0.5 || turns < 15 {
		return game.RankA
	}
	return game.RankB
}

// MissionXP converts a clear rank into XP. Boss missions pay the boss base.
func MissionXP(rank string, boss bool) int {
	base := missionBaseXP
	if boss {
		base = missionBossBaseXP
	}
	mult := 1.0
	switch rank {
	case game.RankS:
		mult = 1.5
	case game.RankA:
		mult = 1.2
	case game.RankB:
		mult = 1.0
	case game.RankF:
		return consolationXP
	}
	return int(math.Floor(float64(base) * mult))
}
