package storage

import (
	"time"

	"github.com/1804crypto/protect-the-streams-sub000/internal/game"
	"gorm.io/gorm"
)

type sqliteRepository struct {
	db *gorm.DB
}

func NewSQLiteRepository(db *gorm.DB) Repository {
	return &sqliteRepository{db: db}
}

func (r *sqliteRepository) CreateMatchWithEscrow(m *game.PvPMatch) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if m.WagerAmount > 0 {
			for _, pid := range []string{m.AttackerID, m.DefenderID} {
				var p game.PlayerProfile
				if err := tx.Where("player_id = ?", pid).First(&p).Error; err != nil {
					if err == gorm.ErrRecordNotFound {
						return ErrInsufficientFunds
					}
					return err
				}
				if p.Balance < m.WagerAmount {
					return ErrInsufficientFunds
				}
				p.Balance -= m.WagerAmount
				if err := tx.Save(&p).Error; err != nil {
					return err
				}
			}
		}
		return tx.Create(m).Error
	})
}

func (r *sqliteRepository) GetMatchByUUID(uuid string) (*game.PvPMatch, error) {
	var m game.PvPMatch
	if err := r.db.Where("match_uuid = ?", uuid).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *sqliteRepository) UpdateMatch(m *game.PvPMatch) error {
	return r.db.Save(m).Error
}

func (r *sqliteRepository) SettleMatch(m *game.PvPMatch, winnerID string, glrChange int) (*game.PvPMatch, error) {
	var settled *game.PvPMatch
	err := r.db.Transaction(func(tx *gorm.DB) error {
		// Flip status with a guard on the previous value so concurrent
		// settlement attempts pay the pot at most once. The final HP
		// values from the killing move land in the same write.
		res := tx.Model(&game.PvPMatch{}).
			Where("match_uuid = ? AND status = ?", m.MatchUUID, game.MatchStatusActive).
			Updates(map[string]interface{}{
				"status":         game.MatchStatusFinished,
				"winner_id":      winnerID,
				"attacker_hp":    m.AttackerHP,
				"defender_hp":    m.DefenderHP,
				"turn_player_id": "",
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadySettled
		}
		m.Status = game.MatchStatusFinished
		m.WinnerID = winnerID
		m.TurnPlayerID = ""

		loserID := m.AttackerID
		if winnerID == m.AttackerID {
			loserID = m.DefenderID
		}
		pot := 2 * m.WagerAmount
		if err := r.applyResult(tx, winnerID, pot, glrChange, true); err != nil {
			return err
		}
		if err := r.applyResult(tx, loserID, 0, -glrChange, false); err != nil {
			return err
		}
		settled = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settled, nil
}

// applyResult credits winnings and adjusts rating/aggregate counters for one
// participant. Missing profiles are created on the fly (bot opponents and
// first-time players).
func (r *sqliteRepository) applyResult(tx *gorm.DB, playerID string, credit int64, ratingDelta int, won bool) error {
	var p game.PlayerProfile
	if err := tx.Where("player_id = ?", playerID).First(&p).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			return err
		}
		p = game.PlayerProfile{PlayerID: playerID, DisplayName: playerID, Rating: 1000}
	}
	p.Balance += credit
	p.Rating += ratingDelta
	if p.Rating < 0 {
		p.Rating = 0
	}
	p.MatchesPlayed++
	if won {
		p.Wins++
	} else {
		p.Losses++
	}
	return tx.Save(&p).Error
}

func (r *sqliteRepository) VoidMatch(matchUUID string) (*game.PvPMatch, error) {
	var voided *game.PvPMatch
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var m game.PvPMatch
		if err := tx.Where("match_uuid = ?", matchUUID).First(&m).Error; err != nil {
			return err
		}
		res := tx.Model(&game.PvPMatch{}).
			Where("match_uuid = ? AND status = ?", matchUUID, game.MatchStatusActive).
			Updates(map[string]interface{}{"status": game.MatchStatusFinished, "winner_id": ""})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadySettled
		}
		m.Status = game.MatchStatusFinished
		m.WinnerID = ""
		if m.WagerAmount > 0 {
			for _, pid := range []string{m.AttackerID, m.DefenderID} {
				var p game.PlayerProfile
				if err := tx.Where("player_id = ?", pid).First(&p).Error; err != nil {
					return err
				}
				p.Balance += m.WagerAmount
				if err := tx.Save(&p).Error; err != nil {
					return err
				}
			}
		}
		voided = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return voided, nil
}

func (r *sqliteRepository) FindStaleActiveMatches(olderThan time.Time) ([]game.PvPMatch, error) {
	var out []game.PvPMatch
	if err := r.db.Where("status = ? AND updated_at <= ?", game.MatchStatusActive, olderThan).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sqliteRepository) GetProfile(playerID string) (*game.PlayerProfile, error) {
	var p game.PlayerProfile
	if err := r.db.Where("player_id = ?", playerID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *sqliteRepository) UpsertProfile(playerID, displayName string) (*game.PlayerProfile, error) {
	var p game.PlayerProfile
	if err := r.db.Where("player_id = ?", playerID).First(&p).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
		p = game.PlayerProfile{PlayerID: playerID, DisplayName: displayName, Rating: 1000}
	}
	if displayName != "" {
		p.DisplayName = displayName
	}
	if err := r.db.Save(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *sqliteRepository) SaveProfile(p *game.PlayerProfile) error {
	return r.db.Save(p).Error
}

// GetTopPlayers returns the leaderboard ordered by rating, then wins.
func (r *sqliteRepository) GetTopPlayers(limit int) ([]game.PlayerProfile, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []game.PlayerProfile
	if err := r.db.Model(&game.PlayerProfile{}).
		Order("rating DESC").
		Order("wins DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sqliteRepository) GetMissionRecord(playerID, streamerID string) (*game.MissionRecord, error) {
	var rec game.MissionRecord
	if err := r.db.Where("player_id = ? AND streamer_id = ?", playerID, streamerID).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// SaveMissionResult persists a mission outcome: rank only ever upgrades, XP
// accumulates and level is recomputed from the cumulative total.
func (r *sqliteRepository) SaveMissionResult(playerID, streamerID, rank string, xp int) (*game.MissionRecord, error) {
	var rec game.MissionRecord
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("player_id = ? AND streamer_id = ?", playerID, streamerID).First(&rec).Error; err != nil {
			if err != gorm.ErrRecordNotFound {
				return err
			}
			rec = game.MissionRecord{PlayerID: playerID, StreamerID: streamerID, Rank: rank}
		}
		rec.Rank = game.BetterRank(rec.Rank, rank)
		rec.XP += xp
		rec.Level = game.LevelForXP(rec.XP)
		rec.ClearedAt = time.Now()
		return tx.Save(&rec).Error
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *sqliteRepository) CountClearedMissions(playerID string) (int64, error) {
	var n int64
	err := r.db.Model(&game.MissionRecord{}).Where("player_id = ?", playerID).Count(&n).Error
	return n, err
}
