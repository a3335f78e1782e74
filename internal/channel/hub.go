package channel

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/1804crypto/protect-the-streams-sub000/internal/config"
	"github.com/1804crypto/protect-the-streams-sub000/internal/constants"
	"github.com/1804crypto/protect-the-streams-sub000/internal/engine"
	"github.com/1804crypto/protect-the-streams-sub000/internal/game"
	"github.com/1804crypto/protect-the-streams-sub000/internal/logging"
	"github.com/1804crypto/protect-the-streams-sub000/internal/matchmaking"
	"github.com/1804crypto/protect-the-streams-sub000/internal/pvp"
	"github.com/1804crypto/protect-the-streams-sub000/internal/service"
	"github.com/1804crypto/protect-the-streams-sub000/internal/storage"
	"github.com/gorilla/websocket"
)

// Outbound message types pushed to clients on top of the pvp event names.
const (
	MsgMatchFound    = "MATCH_FOUND"
	MsgMatchError    = "MATCH_ERROR"
	MsgJoined        = "JOINED"
	MsgPeerLeft      = "PEER_LEFT"
	MsgPeerReturned  = "PEER_RETURNED"
	MsgBattleLog     = "BATTLE_LOG"
	MsgPhaseBanner   = "PHASE_BANNER"
	MsgMissionUpdate = "MISSION_UPDATE"
	MsgErrorEnvelope = "ERROR"
)

// Inbound message types accepted from clients.
const (
	msgSearch          = "search"
	msgCancelSearch    = "cancel_search"
	msgRetrySearch     = "retry_search"
	msgJoinMatch       = "join_match"
	msgMove            = "move"
	msgUseItem         = "use_item"
	msgChat            = "chat"
	msgRecoveryRequest = "recovery_request"
	msgLeaveMatch      = "leave_match"
	msgMissionStart    = "mission_start"
	msgMissionMove     = "mission_move"
	msgMissionUltimate = "mission_ultimate"
	msgMissionItem     = "mission_item"
	msgMissionAbort    = "mission_abort"
)

var errUnknownPlayer = errors.New("no connected client for player")

// netrunnerBot is the opponent spawned when matchmaking times out. Wager is
// always zero in bot matches, so it never touches balances.
var netrunnerBot = game.EnemyDef{
	ID:    constants.BotOpponentID,
	Name:  "Netrunner",
	MaxHP: 100,
	Stats: game.Stats{Influence: 55, Chaos: 60, Charisma: 45, Rebellion: 50},
	Moves: []game.Move{
		{Name: "Packet Storm", Type: game.TypeChaos, Power: 40, PP: 15},
		{Name: "Trace Route", Type: game.TypeIntel, Power: 45, PP: 10},
		{Name: "Jam Signal", Type: game.TypeDisrupt, Power: 50, PP: 8},
	},
}

// Deps are the server-side collaborators every hub session shares.
type Deps struct {
	Repo      storage.Repository
	Config    *config.LoadedConfig
	Inventory *service.MemoryInventory

	// Optional overrides for tests.
	Scheduler engine.Scheduler
	RNG       engine.RNG
}

// playerSession is the hub's per-player state: at most one coordinator
// (while searching), one synchronizer (while in a match room) and one solo
// mission engine.
type playerSession struct {
	coordinator *matchmaking.Coordinator
	sync        *pvp.Synchronizer
	mission     *engine.MissionEngine
	roomID      string
	matchUUID   string
	streamerID  string
	isBot       bool
}

// Hub owns all websocket sessions. It is the shared presence channel the
// matchmaking coordinators announce on, and the per-match broadcast channel
// the synchronizers fan events through.
type Hub struct {
	deps    Deps
	catalog *game.ItemCatalog

	mu       sync.Mutex
	clients  map[string]*Client
	sessions map[string]*playerSession
	rooms    map[string]map[string]*Client
	presence map[string]matchmaking.PresenceState
}

// NewHub creates an empty hub.
func NewHub(deps Deps) *Hub {
	if deps.RNG == nil {
		deps.RNG = engine.DefaultRNG()
	}
	return &Hub{
		deps:     deps,
		catalog:  game.NewItemCatalog(deps.Config.Items),
		clients:  make(map[string]*Client),
		sessions: make(map[string]*playerSession),
		rooms:    make(map[string]map[string]*Client),
		presence: make(map[string]matchmaking.PresenceState),
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// ServeWS upgrades the request and registers the connection for playerID. A
// second connection for the same player replaces the first.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, playerID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &Client{hub: h, conn: conn, send: make(chan []byte, sendBuffer), playerID: playerID}

	h.mu.Lock()
	if old, ok := h.clients[playerID]; ok {
		close(old.send)
	}
	h.clients[playerID] = c
	if _, ok := h.sessions[playerID]; !ok {
		h.sessions[playerID] = &playerSession{}
	}
	h.mu.Unlock()

	logging.Info("websocket connected", logging.Fields{constants.LogFieldPlayerID: playerID})
	go c.writePump()
	go c.readPump()
	return nil
}

// dispatch routes one inbound envelope to the session state machine that
// handles it.
func (h *Hub) dispatch(c *Client, env Envelope) {
	switch env.Type {
	case msgSearch:
		h.handleSearch(c, env.Payload)
	case msgCancelSearch:
		h.handleCancelSearch(c)
	case msgRetrySearch:
		h.handleRetrySearch(c)
	case msgJoinMatch:
		h.handleJoinMatch(c, env.Payload)
	case msgMove:
		h.handleMove(c, env.Payload)
	case msgUseItem:
		h.handleUseItem(c, env.Payload)
	case msgChat:
		h.handleChat(c, env.Payload)
	case msgRecoveryRequest:
		if s := h.syncFor(c.playerID); s != nil {
			s.RequestRecovery()
		}
	case msgLeaveMatch:
		h.handleLeaveMatch(c)
	case msgMissionStart:
		h.handleMissionStart(c, env.Payload)
	case msgMissionMove:
		h.handleMissionMove(c, env.Payload)
	case msgMissionUltimate:
		h.handleMissionUltimate(c)
	case msgMissionItem:
		h.handleMissionItem(c, env.Payload)
	case msgMissionAbort:
		h.handleMissionAbort(c)
	default:
		c.Send(MsgErrorEnvelope, map[string]string{constants.JSONKeyError: "unknown message type"})
	}
}

func (h *Hub) sessionFor(playerID string) *playerSession {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessions[playerID]
}

func (h *Hub) syncFor(playerID string) *pvp.Synchronizer {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sess := h.sessions[playerID]; sess != nil {
		return sess.sync
	}
	return nil
}

type searchPayload struct {
	StreamerID string `json:"streamer_id"`
	Wager      int64  `json:"wager"`
}

func (h *Hub) handleSearch(c *Client, raw json.RawMessage) {
	var p searchPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		c.Send(MsgErrorEnvelope, map[string]string{constants.JSONKeyError: "malformed search payload"})
		return
	}
	def, ok := h.deps.Config.StreamerByID(p.StreamerID)
	if !ok {
		c.Send(MsgErrorEnvelope, map[string]string{constants.JSONKeyError: constants.ErrStreamerNotFound})
		return
	}
	if p.Wager < 0 {
		c.Send(MsgErrorEnvelope, map[string]string{constants.JSONKeyError: constants.ErrInvalidWager})
		return
	}

	playerID := c.playerID
	coord := matchmaking.New(matchmaking.Config{
		PlayerID:  playerID,
		Wager:     p.Wager,
		Stats:     def.EffectiveStats(),
		MaxHP:     def.MaxHP,
		Lobby:     h,
		Init:      initializerFunc(func(req service.InitMatchRequest) (*game.PvPMatch, error) { return service.InitializeMatch(h.deps.Repo, req) }),
		Scheduler: h.deps.Scheduler,
		OnFound:   func(f matchmaking.Found) { h.onMatchFound(playerID, f) },
		OnError: func(err error) {
			if cl := h.clientFor(playerID); cl != nil {
				cl.Send(MsgMatchError, map[string]string{constants.JSONKeyError: err.Error()})
			}
		},
	})

	h.mu.Lock()
	sess := h.sessions[playerID]
	if sess == nil {
		sess = &playerSession{}
		h.sessions[playerID] = sess
	}
	if sess.coordinator != nil {
		sess.coordinator.Stop()
	}
	sess.coordinator = coord
	sess.streamerID = p.StreamerID
	h.mu.Unlock()

	if err := coord.Start(); err != nil {
		logging.Error("failed to start matchmaking", err, logging.Fields{constants.LogFieldPlayerID: playerID})
		c.Send(MsgMatchError, map[string]string{constants.JSONKeyError: err.Error()})
	}
}

func (h *Hub) handleCancelSearch(c *Client) {
	h.mu.Lock()
	sess := h.sessions[c.playerID]
	var coord *matchmaking.Coordinator
	if sess != nil {
		coord = sess.coordinator
		sess.coordinator = nil
	}
	h.mu.Unlock()
	if coord != nil {
		coord.Stop()
	}
	h.untrack(c.playerID)
}

func (h *Hub) handleRetrySearch(c *Client) {
	h.mu.Lock()
	var coord *matchmaking.Coordinator
	if sess := h.sessions[c.playerID]; sess != nil {
		coord = sess.coordinator
	}
	h.mu.Unlock()
	if coord == nil {
		c.Send(MsgErrorEnvelope, map[string]string{constants.JSONKeyError: "no active search"})
		return
	}
	h.untrack(c.playerID)
	if err := coord.Retry(); err != nil {
		c.Send(MsgMatchError, map[string]string{constants.JSONKeyError: err.Error()})
	}
}

func (h *Hub) onMatchFound(playerID string, f matchmaking.Found) {
	h.mu.Lock()
	sess := h.sessions[playerID]
	if sess != nil {
		sess.roomID = f.RoomID
		sess.matchUUID = f.MatchUUID
		sess.isBot = f.IsBot
	}
	h.mu.Unlock()

	h.untrack(playerID)
	if cl := h.clientFor(playerID); cl != nil {
		cl.Send(MsgMatchFound, map[string]interface{}{
			"match_id":    f.MatchUUID,
			"room_id":     f.RoomID,
			"opponent_id": f.OpponentID,
			"wager":       f.Wager,
			"is_host":     f.IsHost,
			"is_bot":      f.IsBot,
		})
	}
}

type joinPayload struct {
	RoomID     string `json:"room_id"`
	MatchUUID  string `json:"match_id"`
	StreamerID string `json:"streamer_id"`
}

func (h *Hub) handleJoinMatch(c *Client, raw json.RawMessage) {
	var p joinPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			c.Send(MsgErrorEnvelope, map[string]string{constants.JSONKeyError: "malformed join payload"})
			return
		}
	}
	playerID := c.playerID

	h.mu.Lock()
	sess := h.sessions[playerID]
	if sess == nil {
		sess = &playerSession{}
		h.sessions[playerID] = sess
	}
	if p.RoomID != "" {
		sess.roomID = p.RoomID
	}
	if p.MatchUUID != "" {
		sess.matchUUID = p.MatchUUID
	}
	if p.StreamerID != "" {
		sess.streamerID = p.StreamerID
	}
	roomID, matchUUID, streamerID := sess.roomID, sess.matchUUID, sess.streamerID
	h.mu.Unlock()

	if roomID == "" {
		c.Send(MsgErrorEnvelope, map[string]string{constants.JSONKeyError: "no room to join"})
		return
	}

	cfg := pvp.Config{
		RoomID:    roomID,
		MatchUUID: matchUUID,
		PlayerID:  playerID,
		Reader:    h.deps.Repo,
		Validator: validatorFunc(func(req service.MoveRequest) (*service.MoveResult, error) {
			return service.ValidateMove(h.deps.Repo, h.deps.RNG, req)
		}),
		ItemUser: itemValidatorFunc(func(req service.ItemRequest) (*service.ItemResult, error) {
			return service.UseItem(h.deps.Repo, h.catalog, h.deps.Inventory.For(req.SenderID), req)
		}),
		Channel:   roomChannel{hub: h, roomID: roomID, senderID: playerID},
		Inventory: h.deps.Inventory.For(playerID),
		Items:     h.catalog,
		Scheduler: h.deps.Scheduler,
		RNG:       h.deps.RNG,
		Sink:      clientSink{c: c},
		BotFoe:    netrunnerBot,
	}
	if def, ok := h.deps.Config.StreamerByID(streamerID); ok {
		cfg.BotSelf = def
	}
	mirror := pvp.New(cfg)
	if err := mirror.Subscribe(); err != nil {
		c.Send(MsgErrorEnvelope, map[string]string{constants.JSONKeyError: err.Error()})
		return
	}

	h.mu.Lock()
	if sess.sync != nil {
		sess.sync.Abort()
	}
	sess.sync = mirror
	room := h.rooms[roomID]
	if room == nil {
		room = make(map[string]*Client)
		h.rooms[roomID] = room
	}
	room[playerID] = c
	peers := make([]*playerSession, 0, len(room))
	for pid := range room {
		if pid == playerID {
			continue
		}
		if ps := h.sessions[pid]; ps != nil && ps.sync != nil {
			peers = append(peers, ps)
		}
	}
	h.mu.Unlock()

	for _, ps := range peers {
		ps.sync.HandlePeerReturn(playerID)
	}
	h.roomNotify(roomID, playerID, MsgPeerReturned, map[string]string{constants.JSONKeyPlayerID: playerID})
	c.Send(MsgJoined, map[string]interface{}{
		"room_id":  roomID,
		"match_id": matchUUID,
		"role":     mirror.RoleOf(),
		"my_turn":  mirror.MyTurn(),
	})
}

type movePayload struct {
	Name string `json:"name"`
}

func (h *Hub) handleMove(c *Client, raw json.RawMessage) {
	var p movePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		c.Send(MsgErrorEnvelope, map[string]string{constants.JSONKeyError: "malformed move payload"})
		return
	}
	h.mu.Lock()
	sess := h.sessions[c.playerID]
	h.mu.Unlock()
	if sess == nil || sess.sync == nil {
		c.Send(MsgErrorEnvelope, map[string]string{constants.JSONKeyError: "not in a match"})
		return
	}
	move := h.lookupMove(sess.streamerID, p.Name)
	if move == nil {
		c.Send(MsgErrorEnvelope, map[string]string{constants.JSONKeyError: "unknown move"})
		return
	}
	sess.sync.ExecuteMove(*move)
}

// lookupMove resolves a move by name against the player's chosen streamer,
// so clients can never submit invented power or type values.
func (h *Hub) lookupMove(streamerID, name string) *game.Move {
	def, ok := h.deps.Config.StreamerByID(streamerID)
	if !ok {
		return nil
	}
	for i := range def.Moves {
		if def.Moves[i].Name == name {
			return &def.Moves[i]
		}
	}
	return nil
}

type itemPayload struct {
	ItemID string `json:"item_id"`
}

func (h *Hub) handleUseItem(c *Client, raw json.RawMessage) {
	var p itemPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		c.Send(MsgErrorEnvelope, map[string]string{constants.JSONKeyError: "malformed item payload"})
		return
	}
	if s := h.syncFor(c.playerID); s != nil {
		s.ExecuteUseItem(p.ItemID)
	}
}

type chatPayload struct {
	Text string `json:"text"`
}

func (h *Hub) handleChat(c *Client, raw json.RawMessage) {
	var p chatPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	if s := h.syncFor(c.playerID); s != nil {
		s.SendChat(p.Text)
	}
}

func (h *Hub) handleLeaveMatch(c *Client) {
	h.leaveRoom(c.playerID, true)
}

type missionStartPayload struct {
	StreamerID string `json:"streamer_id"`
}

// handleMissionStart spins up a solo mission engine for the player. The
// waves come from the content config, the threat level from their cleared
// mission count, and results are recorded through the repository when the
// engine completes.
func (h *Hub) handleMissionStart(c *Client, raw json.RawMessage) {
	var p missionStartPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		c.Send(MsgErrorEnvelope, map[string]string{constants.JSONKeyError: "malformed mission payload"})
		return
	}
	def, ok := h.deps.Config.StreamerByID(p.StreamerID)
	if !ok {
		c.Send(MsgErrorEnvelope, map[string]string{constants.JSONKeyError: constants.ErrStreamerNotFound})
		return
	}
	waves, ok := h.deps.Config.Missions[p.StreamerID]
	if !ok {
		c.Send(MsgErrorEnvelope, map[string]string{constants.JSONKeyError: "no mission for streamer " + p.StreamerID})
		return
	}

	playerID := c.playerID
	eng := engine.NewMissionEngine(engine.MissionConfig{
		Streamer:             def,
		Waves:                waves,
		ThreatLevel:          service.ThreatLevel(h.deps.Repo, playerID),
		DifficultyMultiplier: h.deps.Config.DifficultyMultiplier,
		Items:                h.catalog,
		Inventory:            h.deps.Inventory.For(playerID),
		Recorder:             service.RecorderFor(h.deps.Repo, playerID),
		Sink:                 clientSink{c: c},
		Scheduler:            h.deps.Scheduler,
		RNG:                  h.deps.RNG,
	})

	h.mu.Lock()
	sess := h.sessions[playerID]
	if sess == nil {
		sess = &playerSession{}
		h.sessions[playerID] = sess
	}
	if sess.mission != nil {
		sess.mission.Abandon()
	}
	sess.mission = eng
	sess.streamerID = p.StreamerID
	h.mu.Unlock()

	logging.Info("mission started", logging.Fields{constants.LogFieldPlayerID: playerID, "streamer": p.StreamerID})
	h.sendMissionUpdate(c, eng)
}

func (h *Hub) missionFor(playerID string) *engine.MissionEngine {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sess := h.sessions[playerID]; sess != nil {
		return sess.mission
	}
	return nil
}

func (h *Hub) handleMissionMove(c *Client, raw json.RawMessage) {
	var p movePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		c.Send(MsgErrorEnvelope, map[string]string{constants.JSONKeyError: "malformed move payload"})
		return
	}
	eng := h.missionFor(c.playerID)
	if eng == nil {
		c.Send(MsgErrorEnvelope, map[string]string{constants.JSONKeyError: "no mission in progress"})
		return
	}
	eng.ExecuteMove(p.Name)
	h.sendMissionUpdate(c, eng)
}

func (h *Hub) handleMissionUltimate(c *Client) {
	eng := h.missionFor(c.playerID)
	if eng == nil {
		c.Send(MsgErrorEnvelope, map[string]string{constants.JSONKeyError: "no mission in progress"})
		return
	}
	eng.ExecuteUltimate()
	h.sendMissionUpdate(c, eng)
}

func (h *Hub) handleMissionItem(c *Client, raw json.RawMessage) {
	var p itemPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		c.Send(MsgErrorEnvelope, map[string]string{constants.JSONKeyError: "malformed item payload"})
		return
	}
	eng := h.missionFor(c.playerID)
	if eng == nil {
		c.Send(MsgErrorEnvelope, map[string]string{constants.JSONKeyError: "no mission in progress"})
		return
	}
	eng.UseBattleItem(p.ItemID)
	h.sendMissionUpdate(c, eng)
}

func (h *Hub) handleMissionAbort(c *Client) {
	h.mu.Lock()
	var eng *engine.MissionEngine
	if sess := h.sessions[c.playerID]; sess != nil {
		eng = sess.mission
		sess.mission = nil
	}
	h.mu.Unlock()
	if eng != nil {
		eng.Abandon()
	}
}

// sendMissionUpdate pushes a full snapshot of the mission state after each
// player command; enemy turns resolving later reach the client through the
// battle log sink.
func (h *Hub) sendMissionUpdate(c *Client, eng *engine.MissionEngine) {
	c.Send(MsgMissionUpdate, map[string]interface{}{
		"state":     eng.State(),
		"stage":     eng.Stage(),
		"player_hp": eng.PlayerHP(),
		"enemy_hp":  eng.EnemyHP(),
		"charge":    eng.Charge(),
		"turns":     eng.Turns(),
		"outcome":   eng.Outcome(),
		"rank":      eng.Rank(),
		"xp":        eng.XP(),
	})
}

// leaveRoom removes the player from their room. Deliberate leaves abort the
// local mirror; socket drops keep the session so a reconnect inside the
// grace window can rejoin.
func (h *Hub) leaveRoom(playerID string, deliberate bool) {
	h.mu.Lock()
	sess := h.sessions[playerID]
	if sess == nil || sess.roomID == "" {
		h.mu.Unlock()
		return
	}
	roomID := sess.roomID
	s := sess.sync
	sess.sync = nil
	if deliberate {
		sess.roomID = ""
		sess.matchUUID = ""
	}
	if room := h.rooms[roomID]; room != nil {
		delete(room, playerID)
		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
	peers := h.roomSyncsLocked(roomID, playerID)
	h.mu.Unlock()

	if s != nil {
		s.Abort()
	}
	for _, ps := range peers {
		ps.HandlePeerLeave(playerID)
	}
	h.roomNotify(roomID, playerID, MsgPeerLeft, map[string]string{constants.JSONKeyPlayerID: playerID})
}

func (h *Hub) roomSyncsLocked(roomID, exceptID string) []*pvp.Synchronizer {
	var out []*pvp.Synchronizer
	for pid := range h.rooms[roomID] {
		if pid == exceptID {
			continue
		}
		if ps := h.sessions[pid]; ps != nil && ps.sync != nil {
			out = append(out, ps.sync)
		}
	}
	return out
}

// disconnect is invoked by the client's read pump when the socket drops.
func (h *Hub) disconnect(c *Client) {
	playerID := c.playerID

	h.mu.Lock()
	current, ok := h.clients[playerID]
	if !ok || current != c {
		// Already replaced by a newer connection.
		h.mu.Unlock()
		return
	}
	delete(h.clients, playerID)
	close(c.send)
	var coord *matchmaking.Coordinator
	var mission *engine.MissionEngine
	if sess := h.sessions[playerID]; sess != nil {
		coord = sess.coordinator
		sess.coordinator = nil
		mission = sess.mission
		sess.mission = nil
	}
	h.mu.Unlock()

	if coord != nil {
		coord.Stop()
	}
	if mission != nil {
		// Solo missions do not survive the socket; pending enemy timers
		// would otherwise fire into a dead connection.
		mission.Abandon()
	}
	h.untrack(playerID)
	h.leaveRoom(playerID, false)
	logging.Info("websocket disconnected", logging.Fields{constants.LogFieldPlayerID: playerID})
}

func (h *Hub) clientFor(playerID string) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clients[playerID]
}

// Track implements matchmaking.Lobby: it records the announced presence and
// fans the updated roster out to every searching coordinator.
func (h *Hub) Track(state matchmaking.PresenceState) error {
	h.mu.Lock()
	for sid, ps := range h.presence {
		if ps.PlayerID == state.PlayerID && sid != state.SessionID {
			delete(h.presence, sid)
		}
	}
	h.presence[state.SessionID] = state
	h.mu.Unlock()

	h.fanoutPresence()
	return nil
}

// untrack drops all presence entries for a player and re-announces the
// roster.
func (h *Hub) untrack(playerID string) {
	h.mu.Lock()
	changed := false
	for sid, ps := range h.presence {
		if ps.PlayerID == playerID {
			delete(h.presence, sid)
			changed = true
		}
	}
	h.mu.Unlock()
	if changed {
		h.fanoutPresence()
	}
}

func (h *Hub) fanoutPresence() {
	h.mu.Lock()
	roster := make([]matchmaking.PresenceState, 0, len(h.presence))
	for _, ps := range h.presence {
		roster = append(roster, ps)
	}
	coords := make([]*matchmaking.Coordinator, 0, len(roster))
	for _, ps := range roster {
		if sess := h.sessions[ps.PlayerID]; sess != nil && sess.coordinator != nil {
			coords = append(coords, sess.coordinator)
		}
	}
	h.mu.Unlock()

	for _, coord := range coords {
		coord.HandlePresenceSync(roster)
	}
}

// SendProposal implements matchmaking.Lobby: it delivers the host's offer
// directly to the chosen opponent.
func (h *Hub) SendProposal(toPlayerID string, p matchmaking.MatchProposal) error {
	h.mu.Lock()
	sess := h.sessions[toPlayerID]
	cl := h.clients[toPlayerID]
	h.mu.Unlock()
	if sess == nil || sess.coordinator == nil {
		return errUnknownPlayer
	}
	sess.coordinator.HandleProposal(p)
	if cl != nil {
		cl.Send("MATCH_PROPOSAL", p)
	}
	return nil
}

// roomNotify pushes an envelope to every room member except the sender.
func (h *Hub) roomNotify(roomID, exceptID, msgType string, payload interface{}) {
	h.mu.Lock()
	members := make([]*Client, 0, len(h.rooms[roomID]))
	for pid, cl := range h.rooms[roomID] {
		if pid != exceptID {
			members = append(members, cl)
		}
	}
	h.mu.Unlock()
	for _, cl := range members {
		cl.Send(msgType, payload)
	}
}

// roomChannel is the per-match BroadcastChannel handed to each synchronizer.
// A broadcast reaches the other members' sockets and their server-side
// mirrors, never the sender's own.
type roomChannel struct {
	hub      *Hub
	roomID   string
	senderID string
}

func (rc roomChannel) Broadcast(event string, payload interface{}) error {
	h := rc.hub
	h.mu.Lock()
	type target struct {
		cl   *Client
		sync *pvp.Synchronizer
	}
	targets := make([]target, 0, len(h.rooms[rc.roomID]))
	for pid, cl := range h.rooms[rc.roomID] {
		if pid == rc.senderID {
			continue
		}
		t := target{cl: cl}
		if ps := h.sessions[pid]; ps != nil {
			t.sync = ps.sync
		}
		targets = append(targets, t)
	}
	h.mu.Unlock()

	for _, t := range targets {
		t.cl.Send(event, payload)
		if t.sync != nil {
			deliverEvent(t.sync, event, payload)
		}
	}
	return nil
}

// deliverEvent feeds a typed broadcast into a peer's synchronizer.
func deliverEvent(s *pvp.Synchronizer, event string, payload interface{}) {
	switch event {
	case pvp.EventAction:
		if ev, ok := payload.(pvp.ActionEvent); ok {
			s.HandleAction(ev)
		}
	case pvp.EventItemUse:
		if ev, ok := payload.(pvp.ItemUseEvent); ok {
			s.HandleItemUse(ev)
		}
	case pvp.EventChat:
		if ev, ok := payload.(pvp.ChatMessage); ok {
			s.HandleChat(ev)
		}
	case pvp.EventSync:
		if ev, ok := payload.(pvp.SyncEvent); ok {
			s.HandleSync(ev)
		}
	case pvp.EventRecoveryRequest:
		if ev, ok := payload.(pvp.RecoveryRequest); ok {
			s.HandleRecoveryRequest(ev)
		}
	case pvp.EventRecoveryResponse:
		if ev, ok := payload.(pvp.RecoveryResponse); ok {
			s.HandleRecoveryResponse(ev)
		}
	}
}

// clientSink streams battle log lines and phase banners to one socket.
type clientSink struct {
	c *Client
}

func (s clientSink) BattleLog(msg string) {
	s.c.Send(MsgBattleLog, map[string]string{constants.JSONKeyMessage: msg})
}

func (s clientSink) PhaseBanner(name, message string) {
	s.c.Send(MsgPhaseBanner, map[string]string{"name": name, constants.JSONKeyMessage: message})
}

// initializerFunc adapts a function to matchmaking.Initializer.
type initializerFunc func(req service.InitMatchRequest) (*game.PvPMatch, error)

func (f initializerFunc) InitializeMatch(req service.InitMatchRequest) (*game.PvPMatch, error) {
	return f(req)
}

// validatorFunc adapts a function to pvp.MoveValidator.
type validatorFunc func(req service.MoveRequest) (*service.MoveResult, error)

func (f validatorFunc) ValidateMove(req service.MoveRequest) (*service.MoveResult, error) {
	return f(req)
}

// itemValidatorFunc adapts a function to pvp.ItemValidator.
type itemValidatorFunc func(req service.ItemRequest) (*service.ItemResult, error)

func (f itemValidatorFunc) UseItem(req service.ItemRequest) (*service.ItemResult, error) {
	return f(req)
}
