package keys

import (
	"strings"
)

const botRoomPrefix = "bot_"
const pvpRoomPrefix = "pvp_"

// PvPRoomID returns the realtime channel key for a persisted match ID.
func PvPRoomID(matchID string) string {
	return pvpRoomPrefix + matchID
}

// BotRoomID builds a synthetic room key for a local bot match. Bot rooms are
// distinguishable by prefix so the synchronizer can skip server round trips.
func BotRoomID(sessionID string) string {
	return botRoomPrefix + sessionID
}

// IsBotRoom reports whether the given room key denotes a synthetic bot match.
func IsBotRoom(roomID string) bool {
	return strings.HasPrefix(roomID, botRoomPrefix)
}

// PairKey produces a canonical key for a pair of player IDs, order
// independent. Used to deduplicate concurrent match-creation attempts for
// the same discovered pair.
func PairKey(a, b string) string {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}
