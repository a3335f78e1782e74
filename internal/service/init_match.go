package service

import (
	"errors"

	"github.com/1804crypto/protect-the-streams-sub000/internal/dedupe"
	"github.com/1804crypto/protect-the-streams-sub000/internal/game"
	"github.com/1804crypto/protect-the-streams-sub000/internal/keys"
	"github.com/1804crypto/protect-the-streams-sub000/internal/logging"
	"github.com/1804crypto/protect-the-streams-sub000/internal/storage"
	"github.com/google/uuid"
)

var (
	ErrMatchNotFound     = errors.New("match not found")
	ErrMatchNotActive    = errors.New("match is not active")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrPlayerNotInMatch  = errors.New("player not part of this match")
	ErrInsufficientFunds = errors.New("insufficient funds for wager")
	ErrInvalidOpponents  = errors.New("attacker and defender must differ")
	ErrInvalidWager      = errors.New("wager must not be negative")
)

const defaultBattleHP = 100

// InitMatchRequest is the atomic match-initialization RPC input. The caller
// (the elected matchmaking host) provides both sides' battle stats.
type InitMatchRequest struct {
	MatchUUID     string     `json:"match_id"`
	AttackerID    string     `json:"attacker_id"`
	DefenderID    string     `json:"defender_id"`
	WagerAmount   int64      `json:"wager_amount"`
	AttackerHP    int        `json:"attacker_hp"`
	DefenderHP    int        `json:"defender_hp"`
	AttackerStats game.Stats `json:"attacker_stats"`
	DefenderStats game.Stats `json:"defender_stats"`
}

// InitializeMatch creates the authoritative match record and escrows both
// wagers in a single transaction. If either player lacks funds the whole
// call fails and nothing is deducted. Concurrent init attempts for the same
// player pair (both peers believing they are host) collapse into one call
// through the shared singleflight group.
func InitializeMatch(repo storage.Repository, req InitMatchRequest) (*game.PvPMatch, error) {
	if req.AttackerID == "" || req.DefenderID == "" || req.AttackerID == req.DefenderID {
		return nil, ErrInvalidOpponents
	}
	if req.WagerAmount < 0 {
		return nil, ErrInvalidWager
	}
	if req.MatchUUID == "" {
		req.MatchUUID = uuid.NewString()
	}
	if req.AttackerHP <= 0 {
		req.AttackerHP = defaultBattleHP
	}
	if req.DefenderHP <= 0 {
		req.DefenderHP = defaultBattleHP
	}

	key := keys.PairKey(req.AttackerID, req.DefenderID)
	v, err, _ := dedupe.InitGroup.Do(key, func() (interface{}, error) {
		m := &game.PvPMatch{
			MatchUUID:     req.MatchUUID,
			AttackerID:    req.AttackerID,
			DefenderID:    req.DefenderID,
			AttackerHP:    req.AttackerHP,
			DefenderHP:    req.DefenderHP,
			AttackerMax:   req.AttackerHP,
			DefenderMax:   req.DefenderHP,
			AttackerStats: req.AttackerStats.Clamp(),
			DefenderStats: req.DefenderStats.Clamp(),
			TurnPlayerID:  req.AttackerID,
			WagerAmount:   req.WagerAmount,
			Status:        game.MatchStatusActive,
		}
		if err := repo.CreateMatchWithEscrow(m); err != nil {
			if err == storage.ErrInsufficientFunds {
				return nil, ErrInsufficientFunds
			}
			return nil, err
		}
		logging.Info("match initialized", logging.Fields{"match_id": m.MatchUUID, "wager": m.WagerAmount})
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*game.PvPMatch), nil
}
