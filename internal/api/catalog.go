package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListStreamers returns the configured streamer roster, including movesets
// and nature-adjusted stats.
func (h *Handler) ListStreamers(c *gin.Context) {
	type streamerView struct {
		ID            string      `json:"id"`
		Name          string      `json:"name"`
		MaxHP         int         `json:"max_hp"`
		Nature        string      `json:"nature"`
		Stats         interface{} `json:"stats"`
		Moves         interface{} `json:"moves"`
		UltimateName  string      `json:"ultimate_name"`
		UltimatePower int         `json:"ultimate_power"`
	}
	out := make([]streamerView, 0, len(h.cfg.Streamers))
	for _, s := range h.cfg.Streamers {
		out = append(out, streamerView{
			ID:            s.ID,
			Name:          s.Name,
			MaxHP:         s.MaxHP,
			Nature:        string(s.Nature),
			Stats:         s.EffectiveStats(),
			Moves:         s.Moves,
			UltimateName:  s.UltimateName,
			UltimatePower: s.UltimatePower,
		})
	}
	c.JSON(http.StatusOK, out)
}

// ListItems returns the configured battle item catalog.
func (h *Handler) ListItems(c *gin.Context) {
	c.JSON(http.StatusOK, h.cfg.Items)
}

// GetInventory returns the session player's current item counts.
func (h *Handler) GetInventory(c *gin.Context) {
	playerID := callerID(c)
	counts := make(map[string]int, len(h.cfg.Items))
	for _, item := range h.cfg.Items {
		if n := h.inv.Count(playerID, item.ID); n > 0 {
			counts[item.ID] = n
		}
	}
	c.JSON(http.StatusOK, counts)
}
