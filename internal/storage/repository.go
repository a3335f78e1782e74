package storage

import (
	"errors"
	"time"

	"github.com/1804crypto/protect-the-streams-sub000/internal/game"
)

// ErrInsufficientFunds is returned by CreateMatchWithEscrow when either
// player cannot cover the wager. Nothing is deducted in that case.
var ErrInsufficientFunds = errors.New("insufficient funds for wager")

// ErrAlreadySettled is returned by SettleMatch when the match is no longer
// ACTIVE, guaranteeing the pot is paid out at most once.
var ErrAlreadySettled = errors.New("match already settled")

type Repository interface {
	// Match lifecycle. CreateMatchWithEscrow atomically creates the match
	// record and deducts the wager from both players; on any failure the
	// whole call rolls back and no money moves.
	CreateMatchWithEscrow(m *game.PvPMatch) error
	GetMatchByUUID(uuid string) (*game.PvPMatch, error)
	UpdateMatch(m *game.PvPMatch) error
	// SettleMatch marks the match FINISHED, persists the final HP values
	// carried on m, pays the full pot to the winner and applies the rating
	// delta, all in one transaction.
	SettleMatch(m *game.PvPMatch, winnerID string, glrChange int) (*game.PvPMatch, error)
	// VoidMatch finishes a match with no winner and refunds both escrowed
	// wagers. Used by the sweeper for abandoned matches.
	VoidMatch(matchUUID string) (*game.PvPMatch, error)
	// FindStaleActiveMatches returns ACTIVE matches not updated since the
	// given time; the sweeper expires them.
	FindStaleActiveMatches(olderThan time.Time) ([]game.PvPMatch, error)

	// Player profiles
	GetProfile(playerID string) (*game.PlayerProfile, error)
	UpsertProfile(playerID, displayName string) (*game.PlayerProfile, error)
	SaveProfile(p *game.PlayerProfile) error
	GetTopPlayers(limit int) ([]game.PlayerProfile, error)

	// Mission records. SaveMissionResult applies upgrade-only rank and
	// cumulative XP semantics.
	GetMissionRecord(playerID, streamerID string) (*game.MissionRecord, error)
	SaveMissionResult(playerID, streamerID, rank string, xp int) (*game.MissionRecord, error)
	CountClearedMissions(playerID string) (int64, error)
}
