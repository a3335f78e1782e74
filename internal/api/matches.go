package api

import (
	"net/http"

	"github.com/1804crypto/protect-the-streams-sub000/internal/constants"
	"github.com/1804crypto/protect-the-streams-sub000/internal/service"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type createMatchRequest struct {
	MatchUUID        string `json:"match_id"`
	DefenderID       string `json:"defender_id" binding:"required"`
	Wager            int64  `json:"wager"`
	AttackerStreamer string `json:"attacker_streamer" binding:"required"`
	DefenderStreamer string `json:"defender_streamer" binding:"required"`
}

// CreateMatch initializes a PvP match with the caller as attacker. Both
// sides' battle stats come from the configured streamer definitions, never
// from the request body.
func (h *Handler) CreateMatch(c *gin.Context) {
	var req createMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}
	attacker, ok := h.cfg.StreamerByID(req.AttackerStreamer)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrStreamerNotFound})
		return
	}
	defender, ok := h.cfg.StreamerByID(req.DefenderStreamer)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrStreamerNotFound})
		return
	}

	m, err := service.InitializeMatch(h.repo, service.InitMatchRequest{
		MatchUUID:     req.MatchUUID,
		AttackerID:    callerID(c),
		DefenderID:    req.DefenderID,
		WagerAmount:   req.Wager,
		AttackerHP:    attacker.MaxHP,
		DefenderHP:    defender.MaxHP,
		AttackerStats: attacker.EffectiveStats(),
		DefenderStats: defender.EffectiveStats(),
	})
	if err != nil {
		switch err {
		case service.ErrInvalidOpponents, service.ErrInvalidWager:
			c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: err.Error()})
		case service.ErrInsufficientFunds:
			c.JSON(http.StatusConflict, gin.H{constants.JSONKeyError: constants.CodeInsufficientFunds})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedCreateMatch})
		}
		return
	}

	out, err := MarshalIntoSnakeTimestamps(m)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedCreateMatch})
		return
	}
	c.JSON(http.StatusCreated, out)
}

// GetMatch returns the authoritative match record.
func (h *Handler) GetMatch(c *gin.Context) {
	matchID := c.Param("matchID")
	if matchID == "" {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidMatchID})
		return
	}
	m, err := h.repo.GetMatchByUUID(matchID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{constants.JSONKeyError: constants.ErrMatchNotFound})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrMatchNotFound})
		return
	}
	out, err := MarshalIntoSnakeTimestamps(m)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrMatchNotFound})
		return
	}
	c.JSON(http.StatusOK, out)
}

type submitMoveRequest struct {
	StreamerID string `json:"streamer_id" binding:"required"`
	MoveName   string `json:"move_name" binding:"required"`
}

// SubmitMove validates and applies one move on behalf of the session
// player. Move type and power are resolved from the configured streamer
// definition, so tampered clients cannot inflate damage.
func (h *Handler) SubmitMove(c *gin.Context) {
	matchID := c.Param("matchID")
	if matchID == "" {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidMatchID})
		return
	}
	var req submitMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}
	def, ok := h.cfg.StreamerByID(req.StreamerID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrStreamerNotFound})
		return
	}
	var found bool
	moveReq := service.MoveRequest{MatchUUID: matchID, SenderID: callerID(c), MoveName: req.MoveName}
	for _, mv := range def.Moves {
		if mv.Name == req.MoveName {
			moveReq.MoveType = mv.Type
			moveReq.MovePower = mv.Power
			found = true
			break
		}
	}
	if !found {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}

	res, err := service.ValidateMove(h.repo, h.rng, moveReq)
	if err != nil {
		switch err {
		case service.ErrMatchNotFound:
			c.JSON(http.StatusNotFound, gin.H{constants.JSONKeyError: constants.ErrMatchNotFound})
		case service.ErrMatchNotActive:
			c.JSON(http.StatusConflict, gin.H{constants.JSONKeyError: constants.CodeMatchFinished})
		case service.ErrNotYourTurn:
			c.JSON(http.StatusConflict, gin.H{constants.JSONKeyError: constants.CodeNotYourTurn})
		case service.ErrPlayerNotInMatch:
			c.JSON(http.StatusForbidden, gin.H{constants.JSONKeyError: constants.ErrPlayerNotInMatch})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedStoreMove})
		}
		return
	}
	c.JSON(http.StatusOK, res)
}
