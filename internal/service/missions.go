package service

import (
	"github.com/1804crypto/protect-the-streams-sub000/internal/game"
	"github.com/1804crypto/protect-the-streams-sub000/internal/storage"
	"gorm.io/gorm"
)

// CompleteMission records a mission outcome for a player. Rank only ever
// upgrades and XP is cumulative; the level is recomputed from the new total.
func CompleteMission(repo storage.Repository, playerID, streamerID, rank string, xp int) (*game.MissionRecord, error) {
	return repo.SaveMissionResult(playerID, streamerID, rank, xp)
}

// GetMissionRecord returns a player's record for one streamer, or nil when
// the mission was never attempted.
func GetMissionRecord(repo storage.Repository, playerID, streamerID string) (*game.MissionRecord, error) {
	rec, err := repo.GetMissionRecord(playerID, streamerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// ThreatLevel is the count of missions the player has already cleared; the
// solo engine scales enemy damage with it.
func ThreatLevel(repo storage.Repository, playerID string) int {
	n, err := repo.CountClearedMissions(playerID)
	if err != nil {
		return 0
	}
	return int(n)
}

// missionRecorder adapts the repository to the engine's MissionRecorder
// collaborator for a fixed player.
type missionRecorder struct {
	repo     storage.Repository
	playerID string
}

func (r missionRecorder) MarkMissionComplete(streamerID, rank string, xp int) error {
	_, err := r.repo.SaveMissionResult(r.playerID, streamerID, rank, xp)
	return err
}

// RecorderFor returns an engine.MissionRecorder bound to one player.
func RecorderFor(repo storage.Repository, playerID string) missionRecorder {
	return missionRecorder{repo: repo, playerID: playerID}
}
