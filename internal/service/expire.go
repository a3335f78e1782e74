package service

import (
	"time"

	"github.com/1804crypto/protect-the-streams-sub000/internal/logging"
	"github.com/1804crypto/protect-the-streams-sub000/internal/storage"
)

// ExpireStaleMatches voids ACTIVE matches that have seen no authoritative
// move for longer than staleAfter: the match finishes with no winner and
// both escrowed wagers are refunded. Returns how many matches were voided.
// Disconnect-timeout wins are a client-side declaration; this sweeper is the
// server-side backstop for matches both players abandoned.
func ExpireStaleMatches(repo storage.Repository, now time.Time, staleAfter time.Duration) int {
	stale, err := repo.FindStaleActiveMatches(now.Add(-staleAfter))
	if err != nil {
		logging.Error("stale match scan failed", err, nil)
		return 0
	}
	voided := 0
	for _, m := range stale {
		if _, err := repo.VoidMatch(m.MatchUUID); err != nil {
			if err == storage.ErrAlreadySettled {
				continue
			}
			logging.Error("failed to void stale match", err, logging.Fields{"match_id": m.MatchUUID})
			continue
		}
		voided++
		logging.Info("voided stale match", logging.Fields{"match_id": m.MatchUUID})
	}
	return voided
}
