package pvp

import (
	"time"

	"github.com/1804crypto/protect-the-streams-sub000/internal/game"
)

// Named broadcast events exchanged on a match channel. ACTION and ITEM_USE
// are advisory mirrors of already-committed facts; SYNC and the recovery
// pair repair mirrors after loss or rejoin.
const (
	EventAction           = "ACTION"
	EventItemUse          = "ITEM_USE"
	EventChat             = "CHAT"
	EventSync             = "SYNC"
	EventRecoveryRequest  = "RECOVERY_REQUEST"
	EventRecoveryResponse = "RECOVERY_RESPONSE"
)

// ActionEvent mirrors one authoritative move result to the peer and any
// spectators. Receivers apply it without re-validating; trust is anchored at
// the authoritative call, not at the broadcast.
type ActionEvent struct {
	SenderID      string        `json:"sender_id"`
	MoveName      string        `json:"move_name"`
	MoveType      game.MoveType `json:"move_type"`
	Damage        int           `json:"damage"`
	Effectiveness float64       `json:"effectiveness"`
	IsCrit        bool          `json:"is_crit"`
	TargetHP      int           `json:"target_hp"`
	IsComplete    bool          `json:"is_complete"`
	WinnerID      string        `json:"winner_id,omitempty"`
}

// ItemUseEvent announces an item consumption. Only heals carry a mechanical
// HP change in PvP; boost items are informational.
type ItemUseEvent struct {
	SenderID string `json:"sender_id"`
	ItemID   string `json:"item_id"`
	NewHP    int    `json:"new_hp"`
	Applied  bool   `json:"applied"`
}

// ChatMessage is a lobby-style chat line, truncated to MaxChatLen runes.
type ChatMessage struct {
	SenderID string    `json:"sender_id"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"sent_at"`
}

// MaxChatLen caps chat message length.
const MaxChatLen = 50

// SyncEvent is the periodic full-state snapshot spectators use to bootstrap
// or correct their passive view.
type SyncEvent struct {
	MatchUUID  string `json:"match_id"`
	AttackerID string `json:"attacker_id"`
	DefenderID string `json:"defender_id"`
	AttackerHP int    `json:"attacker_hp"`
	DefenderHP int    `json:"defender_hp"`
	TurnOwner  string `json:"turn_player_id"`
	IsComplete bool   `json:"is_complete"`
	WinnerID   string `json:"winner_id,omitempty"`
}

// RecoveryRequest is broadcast by a rejoining peer.
type RecoveryRequest struct {
	SenderID string `json:"sender_id"`
}

// RecoveryResponse carries both HP values and turn ownership so the
// rejoining client can resynchronize without re-fetching the full record.
type RecoveryResponse struct {
	SenderID   string `json:"sender_id"`
	AttackerHP int    `json:"attacker_hp"`
	DefenderHP int    `json:"defender_hp"`
	TurnOwner  string `json:"turn_player_id"`
}
