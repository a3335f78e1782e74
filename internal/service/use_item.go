package service

import (
	"errors"

	"github.com/1804crypto/protect-the-streams-sub000/internal/engine"
	"github.com/1804crypto/protect-the-streams-sub000/internal/game"
	"github.com/1804crypto/protect-the-streams-sub000/internal/logging"
	"github.com/1804crypto/protect-the-streams-sub000/internal/storage"
	"gorm.io/gorm"
)

var (
	ErrUnknownItem  = errors.New("unknown item")
	ErrItemDepleted = errors.New("item not in inventory")
)

// ItemRequest is the authoritative use-item RPC input.
type ItemRequest struct {
	MatchUUID string `json:"match_id"`
	SenderID  string `json:"sender_id"`
	ItemID    string `json:"item_id"`
}

// ItemResult reports the sender's HP after the item resolved, whether the
// item had any effect in PvP, and whose turn is next.
type ItemResult struct {
	ItemID       string `json:"item_id"`
	NewHP        int    `json:"new_hp"`
	Applied      bool   `json:"applied"`
	TurnPlayerID string `json:"turn_player_id"`
}

// UseItem is the item-use counterpart of ValidateMove: using an item spends
// the sender's turn, so it goes through the same guard sequence, persists
// the HP change and flips turn ownership in the authoritative record. Only
// heal items change HP in PvP; other kinds are consumed without effect, the
// way boosts stay out of ValidateMove's damage factor.
func UseItem(repo storage.Repository, catalog *game.ItemCatalog, inv engine.Inventory, req ItemRequest) (*ItemResult, error) {
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

	item, ok := catalog.Lookup(req.ItemID)
	if !ok {
		return nil, ErrUnknownItem
	}
	if inv == nil || !inv.Consume(req.ItemID) {
		return nil, ErrItemDepleted
	}

	hp, maxHP := m.AttackerHP, m.AttackerMax
	opponentID := m.DefenderID
	if req.SenderID == m.DefenderID {
		hp, maxHP = m.DefenderHP, m.DefenderMax
		opponentID = m.AttackerID
	}

	applied := false
	if item.Effect.Kind == game.ItemEffectHeal {
		hp += item.Effect.Value
		if hp > maxHP {
			hp = maxHP
		}
		applied = true
	}

	if req.SenderID == m.AttackerID {
		m.AttackerHP = hp
	} else {
		m.DefenderHP = hp
	}
	m.TurnPlayerID = opponentID
	if err := repo.UpdateMatch(m); err != nil {
		return nil, err
	}

	logging.Info("item used", logging.Fields{"match_id": m.MatchUUID, "player": req.SenderID, "item": req.ItemID, "applied": applied})
	return &ItemResult{
		ItemID:       req.ItemID,
		NewHP:        hp,
		Applied:      applied,
		TurnPlayerID: opponentID,
	}, nil
}
