package engine

import (
	"testing"

	"github.com/1804crypto/protect-the-streams-sub000/internal/game"
)

func TestRankForClear(t *testing.T) {
	cases := []struct {
		hpRatio float64
		turns   int
		want    string
	}{
		{0.9, 5, game.RankS},
		{0.81, 9, game.RankS},
		{0.9, 10, game.RankA},  // too slow for S, HP carries A
		{0.3, 12, game.RankA},  // low HP but fast
		{0.51, 30, game.RankA}, // slow but healthy
		{0.5, 15, game.RankB},
		{0.1, 40, game.RankB},
	}
	for _, c := range cases {
		if got := RankForClear(c.hpRatio, c.turns); got != c.want {
			t.Errorf("RankForClear(%v, %d) = %s, want %s", c.hpRatio, c.turns, got, c.want)
		}
	}
}

func TestMissionXP(t *testing.T) {
	cases := []struct {
		rank string
		boss bool
		want int
	}{
		{game.RankS, false, 75},
		{game.RankA, false, 60},
		{game.RankB, false, 50},
		{game.RankS, true, 225},
		{game.RankA, true, 180},
		{game.RankB, true, 150},
		{game.RankF, false, 10},
		{game.RankF, true, 10},
	}
	for _, c := range cases {
		if got := MissionXP(c.rank, c.boss); got != c.want {
			t.Errorf("MissionXP(%s, %v) = %d, want %d", c.rank, c.boss, got, c.want)
		}
	}
}
