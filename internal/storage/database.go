package storage

import (
	"github.com/1804crypto/protect-the-streams-sub000/internal/game"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// OpenDB opens (or creates) the sqlite database at the given path and keeps
// the schema current via AutoMigrate. Streamer, move and item definitions
// live in the config file and are intentionally not persisted; the database
// only holds match records, mission records and player profiles.
func OpenDB(dataSourceName string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dataSourceName), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&game.PvPMatch{}, &game.MissionRecord{}, &game.PlayerProfile{}); err != nil {
		return nil, err
	}
	return db, nil
}
