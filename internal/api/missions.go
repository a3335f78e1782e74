package api

import (
	"net/http"

	"github.com/1804crypto/protect-the-streams-sub000/internal/constants"
	"github.com/1804crypto/protect-the-streams-sub000/internal/game"
	"github.com/1804crypto/protect-the-streams-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

type completeMissionRequest struct {
	StreamerID string `json:"streamer_id" binding:"required"`
	Rank       string `json:"rank" binding:"required"`
	XP         int    `json:"xp"`
}

func validRank(rank string) bool {
	switch rank {
	case game.RankS, game.RankA, game.RankB, game.RankF:
		return true
	}
	return false
}

// CompleteMission records a mission clear for the session player. Ranks
// only upgrade and XP accumulates; replays can never lower a stored result.
func (h *Handler) CompleteMission(c *gin.Context) {
	var req completeMissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}
	if !validRank(req.Rank) || req.XP < 0 {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}
	if _, ok := h.cfg.StreamerByID(req.StreamerID); !ok {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrStreamerNotFound})
		return
	}
	record, err := service.CompleteMission(h.repo, callerID(c), req.StreamerID, req.Rank, req.XP)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedSaveMission})
		return
	}
	out, err := MarshalIntoSnakeTimestamps(record)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedSaveMission})
		return
	}
	c.JSON(http.StatusOK, out)
}

// GetMission returns the session player's stored result for one streamer's
// mission, or 404 when it has never been cleared.
func (h *Handler) GetMission(c *gin.Context) {
	streamerID := c.Param("streamerID")
	record, err := service.GetMissionRecord(h.repo, callerID(c), streamerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedSaveMission})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{constants.JSONKeyError: "Mission not cleared"})
		return
	}
	out, err := MarshalIntoSnakeTimestamps(record)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedSaveMission})
		return
	}
	c.JSON(http.StatusOK, out)
}

// MissionProgress reports the session player's overall campaign progress:
// how many missions they have cleared and the derived threat level applied
// to enemy attacks.
func (h *Handler) MissionProgress(c *gin.Context) {
	playerID := callerID(c)
	cleared, err := h.repo.CountClearedMissions(playerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedSaveMission})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cleared":      cleared,
		"threat_level": service.ThreatLevel(h.repo, playerID),
	})
}
