package api

import (
	"github.com/1804crypto/protect-the-streams-sub000/internal/constants"
	"github.com/1804crypto/protect-the-streams-sub000/internal/logging"
	"github.com/gin-gonic/gin"
)

// ChannelSocket upgrades the request to a websocket and hands the
// connection to the realtime hub. Runs behind AuthRequired, so the hub
// session is bound to the verified player identity.
func (h *Handler) ChannelSocket(c *gin.Context) {
	playerID := callerID(c)
	if err := h.hub.ServeWS(c.Writer, c.Request, playerID); err != nil {
		logging.Error("websocket upgrade failed", err, logging.Fields{constants.LogFieldPlayerID: playerID})
	}
}
