package matchmaking

import (
	"sort"
	"sync"
	"time"

	"github.com/1804crypto/protect-the-streams-sub000/internal/constants"
	"github.com/1804crypto/protect-the-streams-sub000/internal/engine"
	"github.com/1804crypto/protect-the-streams-sub000/internal/game"
	"github.com/1804crypto/protect-the-streams-sub000/internal/keys"
	"github.com/1804crypto/protect-the-streams-sub000/internal/logging"
	"github.com/1804crypto/protect-the-streams-sub000/internal/service"
	"github.com/google/uuid"
)

// Status is the coordinator's lifecycle state.
type Status string

const (
	StatusIdle       Status = "IDLE"
	StatusSearching  Status = "SEARCHING"
	StatusMatchFound Status = "MATCH_FOUND"
	StatusError      Status = "ERROR"
)

// PresenceState is what a searching player announces on the lobby channel.
type PresenceState struct {
	PlayerID  string     `json:"player_id"`
	SessionID string     `json:"session_id"`
	Wager     int64      `json:"wager"`
	Stats     game.Stats `json:"stats"`
	MaxHP     int        `json:"max_hp"`
	Status    Status     `json:"status"`
}

// MatchProposal is the host's direct offer to the specific opponent after a
// successful atomic init. The receiver transitions straight to MATCH_FOUND.
type MatchProposal struct {
	MatchUUID  string `json:"match_id"`
	RoomID     string `json:"room_id"`
	HostID     string `json:"host_id"`
	Wager      int64  `json:"wager"`
	AttackerID string `json:"attacker_id"`
	DefenderID string `json:"defender_id"`
}

// Found describes the coordinator's terminal result.
type Found struct {
	MatchUUID  string
	RoomID     string
	OpponentID string
	Wager      int64
	IsHost     bool
	IsBot      bool
}

// Lobby is the outbound half of the shared presence channel.
type Lobby interface {
	Track(state PresenceState) error
	SendProposal(toPlayerID string, p MatchProposal) error
}

// Initializer issues the atomic match-creation call. Only the elected host
// ever calls it.
type Initializer interface {
	InitializeMatch(req service.InitMatchRequest) (*game.PvPMatch, error)
}

// Config wires a coordinator for one searching player.
type Config struct {
	PlayerID  string
	Wager     int64
	Stats     game.Stats
	MaxHP     int
	Lobby     Lobby
	Init      Initializer
	Scheduler engine.Scheduler
	Timeout   time.Duration
	OnFound   func(Found)
	OnError   func(err error)
}

// Coordinator negotiates a PvP match over the shared lobby channel: it
// announces presence, filters peers to exact-wager matches, elects the host
// by lexicographic session ID (only one side ever issues the init call) and
// falls back to a local bot match after the search timeout.
type Coordinator struct {
	mu  sync.Mutex
	cfg Config

	sessionID   string
	status      Status
	negotiating bool
	botFallback bool
	cancelTimer func()
	cancelGrace func()
}

// New returns an idle coordinator. Call Start to begin searching.
func New(cfg Config) *Coordinator {
	if cfg.Scheduler == nil {
		cfg.Scheduler = engine.NewScheduler()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.MatchmakingTimeout
	}
	return &Coordinator{cfg: cfg, status: StatusIdle, sessionID: uuid.NewString()}
}

// SessionID exposes the locally generated session identifier used for host
// election.
func (c *Coordinator) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Status returns the current lifecycle state.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Start announces presence and arms the search timeout.
func (c *Coordinator) Start() error {
	c.mu.Lock()
	if c.status == StatusSearching {
		c.mu.Unlock()
		return nil
	}
	c.status = StatusSearching
	c.negotiating = false
	state := c.presenceLocked()
	c.cancelTimer = c.cfg.Scheduler.After(c.cfg.Timeout, c.onTimeout)
	c.mu.Unlock()

	return c.cfg.Lobby.Track(state)
}

func (c *Coordinator) presenceLocked() PresenceState {
	return PresenceState{
		PlayerID:  c.cfg.PlayerID,
		SessionID: c.sessionID,
		Wager:     c.cfg.Wager,
		Stats:     c.cfg.Stats,
		MaxHP:     c.cfg.MaxHP,
		Status:    StatusSearching,
	}
}

// Retry resets to IDLE with a fresh session identifier and re-enters the
// search. A fresh session guards against stale presence entries carrying
// outdated wager or stat values.
func (c *Coordinator) Retry() error {
	c.mu.Lock()
	if c.cancelTimer != nil {
		c.cancelTimer()
		c.cancelTimer = nil
	}
	if c.cancelGrace != nil {
		c.cancelGrace()
		c.cancelGrace = nil
	}
	c.status = StatusIdle
	c.negotiating = false
	c.botFallback = false
	c.sessionID = uuid.NewString()
	c.mu.Unlock()
	return c.Start()
}

// Stop cancels the search without producing a match.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelTimer != nil {
		c.cancelTimer()
		c.cancelTimer = nil
	}
	if c.cancelGrace != nil {
		c.cancelGrace()
		c.cancelGrace = nil
	}
	c.status = StatusIdle
	c.negotiating = false
	c.botFallback = false
}

// HandlePresenceSync is invoked whenever the lobby presence set changes.
// Candidates must also be SEARCHING with an exact wager match (zero matches
// only zero). When a candidate exists and no negotiation is in flight, the
// peer whose session ID sorts lower becomes host and issues the single
// atomic init call.
func (c *Coordinator) HandlePresenceSync(peers []PresenceState) {
	c.mu.Lock()
	if c.status != StatusSearching || c.negotiating {
		c.mu.Unlock()
		return
	}
	candidates := make([]PresenceState, 0, len(peers))
	for _, p := range peers {
		if p.SessionID == c.sessionID {
			continue
		}
		if p.Status != StatusSearching {
			continue
		}
		if p.Wager != c.cfg.Wager {
			continue
		}
		candidates = append(candidates, p)
	}
	if len(candidates) == 0 {
		c.mu.Unlock()
		return
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].SessionID < candidates[j].SessionID })
	opponent := candidates[0]

	if c.sessionID >= opponent.SessionID {
		// The other side is host; wait for its proposal.
		c.mu.Unlock()
		return
	}
	c.negotiating = true
	req := service.InitMatchRequest{
		AttackerID:    c.cfg.PlayerID,
		DefenderID:    opponent.PlayerID,
		WagerAmount:   c.cfg.Wager,
		AttackerHP:    c.cfg.MaxHP,
		DefenderHP:    opponent.MaxHP,
		AttackerStats: c.cfg.Stats,
		DefenderStats: opponent.Stats,
	}
	c.mu.Unlock()

	m, err := c.cfg.Init.InitializeMatch(req)
	if err != nil {
		c.mu.Lock()
		c.status = StatusError
		c.negotiating = false
		c.mu.Unlock()
		logging.Warn("match init failed", logging.Fields{"player_id": c.cfg.PlayerID, "error": err.Error()})
		if c.cfg.OnError != nil {
			c.cfg.OnError(err)
		}
		return
	}

	c.mu.Lock()
	if c.cancelTimer != nil {
		c.cancelTimer()
		c.cancelTimer = nil
	}
	c.status = StatusMatchFound
	c.mu.Unlock()

	proposal := MatchProposal{
		MatchUUID:  m.MatchUUID,
		RoomID:     keys.PvPRoomID(m.MatchUUID),
		HostID:     c.cfg.PlayerID,
		Wager:      m.WagerAmount,
		AttackerID: m.AttackerID,
		DefenderID: m.DefenderID,
	}
	if err := c.cfg.Lobby.SendProposal(opponent.PlayerID, proposal); err != nil {
		logging.Error("failed to send match proposal", err, logging.Fields{"match_id": m.MatchUUID})
	}
	if c.cfg.OnFound != nil {
		c.cfg.OnFound(Found{
			MatchUUID:  m.MatchUUID,
			RoomID:     proposal.RoomID,
			OpponentID: opponent.PlayerID,
			Wager:      m.WagerAmount,
			IsHost:     true,
		})
	}
}

// HandleProposal is invoked when the host's direct proposal arrives. The
// receiver transitions straight to MATCH_FOUND without calling init itself.
// A proposal landing inside the short grace window after the search timeout
// still wins over the bot fallback: the host already escrowed both wagers,
// so abandoning the real match would strand them until the sweeper runs.
func (c *Coordinator) HandleProposal(p MatchProposal) {
	c.mu.Lock()
	if c.status != StatusSearching && !c.botFallback {
		c.mu.Unlock()
		return
	}
	c.botFallback = false
	if c.cancelTimer != nil {
		c.cancelTimer()
		c.cancelTimer = nil
	}
	if c.cancelGrace != nil {
		c.cancelGrace()
		c.cancelGrace = nil
	}
	c.status = StatusMatchFound
	c.mu.Unlock()

	if c.cfg.OnFound != nil {
		c.cfg.OnFound(Found{
			MatchUUID:  p.MatchUUID,
			RoomID:     p.RoomID,
			OpponentID: p.HostID,
			Wager:      p.Wager,
			IsHost:     false,
		})
	}
}

// onTimeout fabricates a local bot match: a distinctly prefixed room, the
// fixed bot opponent and the wager forced to zero. No server round trip is
// made since the opponent is synthetic.
func (c *Coordinator) onTimeout() {
	c.mu.Lock()
	if c.status != StatusSearching {
		c.mu.Unlock()
		return
	}
	c.status = StatusMatchFound
	// A host whose init call was in flight when the timer fired may still
	// deliver its proposal; stay receptive for a short grace window.
	c.botFallback = true
	c.cancelGrace = c.cfg.Scheduler.After(constants.LateProposalGrace, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.botFallback = false
		c.cancelGrace = nil
	})
	roomID := keys.BotRoomID(c.sessionID)
	c.mu.Unlock()

	logging.Info("matchmaking timed out; falling back to bot", logging.Fields{"player_id": c.cfg.PlayerID})
	if c.cfg.OnFound != nil {
		c.cfg.OnFound(Found{
			RoomID:     roomID,
			OpponentID: constants.BotOpponentID,
			Wager:      0,
			IsHost:     true,
			IsBot:      true,
		})
	}
}
