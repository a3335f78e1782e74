package service

import (
	"github.com/1804crypto/protect-the-streams-sub000/internal/engine"
	"github.com/1804crypto/protect-the-streams-sub000/internal/game"
	"github.com/1804crypto/protect-the-streams-sub000/internal/logging"
	"github.com/1804crypto/protect-the-streams-sub000/internal/storage"
	"gorm.io/gorm"
)

// MoveRequest is the authoritative validate-move RPC input.
type MoveRequest struct {
	MatchUUID string        `json:"match_id"`
	SenderID  string        `json:"sender_id"`
	MoveName  string        `json:"move_name"`
	MoveType  game.MoveType `json:"move_type"`
	MovePower int           `json:"move_power"`
}

// MoveResult mirrors the RPC output contract: the resolved damage, the
// defender's new HP, whose turn is next and, on completion, the winner and
// their rating delta.
type MoveResult struct {
	Damage        int     `json:"damage"`
	Effectiveness float64 `json:"effectiveness"`
	IsCrit        bool    `json:"is_crit"`
	NextHP        int     `json:"next_hp"`
	TurnPlayerID  string  `json:"turn_player_id"`
	IsComplete    bool    `json:"is_complete"`
	WinnerID      string  `json:"winner_id,omitempty"`
	GLRChange     int     `json:"glr_change,omitempty"`
}

// ValidateMove is the single state-mutating operation of a PvP match. It
// recomputes damage server-side (clients cannot tamper with the numbers),
// rejects out-of-turn senders without touching any state, persists the new
// HP, flips turn ownership and settles the match when the defender drops
// to zero.
func ValidateMove(repo storage.Repository, rng engine.RNG, req MoveRequest) (*MoveResult, error) {
	m, err := repo.GetMatchByUUID(req.MatchUUID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	if m.Status != game.MatchStatusActive {
		return nil, ErrMatchNotActive
	}
	if req.SenderID != m.AttackerID && req.SenderID != m.DefenderID {
		return nil, ErrPlayerNotInMatch
	}
	if m.TurnPlayerID != req.SenderID {
		return nil, ErrNotYourTurn
	}

	attackerStats, defenderStats := m.AttackerStats, m.DefenderStats
	targetHP := m.DefenderHP
	opponentID := m.DefenderID
	if req.SenderID == m.DefenderID {
		attackerStats, defenderStats = m.DefenderStats, m.AttackerStats
		targetHP = m.AttackerHP
		opponentID = m.AttackerID
	}

	move := game.Move{Name: req.MoveName, Type: req.MoveType, Power: req.MovePower}
	// Boost items are intentionally not part of PvP resolution; the factor
	// stays at 1.0 here while solo missions apply real boosts.
	res := engine.ComputeDamage(move, attackerStats, defenderStats, 1.0, rng)

	nextHP := targetHP - res.Damage
	if nextHP < 0 {
		nextHP = 0
	}
	if req.SenderID == m.AttackerID {
		m.DefenderHP = nextHP
	} else {
		m.AttackerHP = nextHP
	}
	m.TurnPlayerID = opponentID

	out := &MoveResult{
		Damage:        res.Damage,
		Effectiveness: res.Effectiveness,
		IsCrit:        res.IsCrit,
		NextHP:        nextHP,
		TurnPlayerID:  m.TurnPlayerID,
	}

	if nextHP == 0 {
		m.TurnPlayerID = ""
		glr := ratingDelta(repo, req.SenderID, opponentID)
		settled, err := repo.SettleMatch(m, req.SenderID, glr)
		if err != nil {
			if err == storage.ErrAlreadySettled {
				return nil, ErrMatchNotActive
			}
			return nil, err
		}
		out.IsComplete = true
		out.WinnerID = settled.WinnerID
		out.GLRChange = glr
		out.TurnPlayerID = ""
		logging.Info("match finished", logging.Fields{"match_id": m.MatchUUID, "winner": settled.WinnerID, "glr_change": glr})
		return out, nil
	}

	if err := repo.UpdateMatch(m); err != nil {
		return nil, err
	}
	return out, nil
}

const (
	glrBase = 20
	glrMin  = 10
	glrMax  = 40
)

// ratingDelta computes the winner's GLR gain: a flat base adjusted by the
// rating gap (beating a stronger opponent pays more), clamped to [10,40].
// Missing profiles count as the default 1000 rating.
func ratingDelta(repo storage.Repository, winnerID, loserID string) int {
	ratingOf := func(id string) int {
		p, err := repo.GetProfile(id)
		if err != nil || p == nil {
			return 1000
		}
		return p.Rating
	}
	delta := glrBase + (ratingOf(loserID)-ratingOf(winnerID))/50
	if delta < glrMin {
		delta = glrMin
	}
	if delta > glrMax {
		delta = glrMax
	}
	return delta
}
