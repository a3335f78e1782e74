package api

import (
	"net/http"
	"strconv"

	"github.com/1804crypto/protect-the-streams-sub000/internal/constants"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const defaultLeaderboardSize = 10
const maxLeaderboardSize = 100

// ListLeaderboard returns the top player profiles ordered by rating.
func (h *Handler) ListLeaderboard(c *gin.Context) {
	limit := defaultLeaderboardSize
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxLeaderboardSize {
		limit = maxLeaderboardSize
	}
	players, err := h.repo.GetTopPlayers(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedFetchBoard})
		return
	}
	out, err := MarshalIntoSnakeTimestamps(players)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedFetchBoard})
		return
	}
	c.JSON(http.StatusOK, out)
}

// GetProfile returns the session player's profile (balance, rating, record).
func (h *Handler) GetProfile(c *gin.Context) {
	profile, err := h.repo.GetProfile(callerID(c))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{constants.JSONKeyError: constants.ErrFailedFetchStats})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedFetchStats})
		return
	}
	out, err := MarshalIntoSnakeTimestamps(profile)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedFetchStats})
		return
	}
	c.JSON(http.StatusOK, out)
}
