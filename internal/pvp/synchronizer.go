package pvp

import (
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/1804crypto/protect-the-streams-sub000/internal/constants"
	"github.com/1804crypto/protect-the-streams-sub000/internal/engine"
	"github.com/1804crypto/protect-the-streams-sub000/internal/game"
	"github.com/1804crypto/protect-the-streams-sub000/internal/keys"
	"github.com/1804crypto/protect-the-streams-sub000/internal/logging"
	"github.com/1804crypto/protect-the-streams-sub000/internal/service"
)

// ErrMalformedMatch is surfaced when the persisted record yields no valid
// role for this client. The synchronizer declines to proceed; there is no
// automatic retry.
var ErrMalformedMatch = errors.New("malformed match record: no valid role")

// Role is this client's relationship to the match.
type Role string

const (
	RoleAttacker  Role = "attacker"
	RoleDefender  Role = "defender"
	RoleSpectator Role = "spectator"
)

// BroadcastChannel is the outbound half of the per-match realtime channel.
type BroadcastChannel interface {
	Broadcast(event string, payload interface{}) error
}

// MatchReader fetches the persisted authoritative record.
type MatchReader interface {
	GetMatchByUUID(uuid string) (*game.PvPMatch, error)
}

// MoveValidator submits a move to the single authoritative validation call.
type MoveValidator interface {
	ValidateMove(req service.MoveRequest) (*service.MoveResult, error)
}

// ItemValidator submits an item use to the authoritative resolution call, so
// the HP change lands in the persisted record before peers mirror it.
type ItemValidator interface {
	UseItem(req service.ItemRequest) (*service.ItemResult, error)
}

// Config wires a synchronizer for one client and one match channel.
type Config struct {
	RoomID    string
	MatchUUID string
	PlayerID  string
	Reader    MatchReader
	Validator MoveValidator
	ItemUser  ItemValidator
	Channel   BroadcastChannel
	Inventory engine.Inventory
	Items     *game.ItemCatalog
	Scheduler engine.Scheduler
	RNG       engine.RNG
	Sink      engine.EventSink

	// Bot match inputs (used only when RoomID denotes a bot room).
	BotSelf game.StreamerDef
	BotFoe  game.EnemyDef
}

// Synchronizer keeps one client's mirrored battle state consistent with the
// authoritative match record and the peer's broadcasts. All entry points are
// serialized under one mutex; the machine is an event loop, not a
// multithreaded engine.
type Synchronizer struct {
	mu  sync.Mutex
	cfg Config

	role      Role
	isBot     bool
	self      game.CombatantState
	opponent  game.CombatantState
	selfMoves *game.MoveSet
	foeMoves  *game.MoveSet
	myTurn    bool
	complete  bool
	winnerID  string
	chat      []ChatMessage

	graceCancel func()
	graceArmed  bool
	declared    bool

	syncCancel func()
	cancelBot  func()
}

// New builds a synchronizer. Call Subscribe to resolve the role and start.
func New(cfg Config) *Synchronizer {
	if cfg.Scheduler == nil {
		cfg.Scheduler = engine.NewScheduler()
	}
	if cfg.RNG == nil {
		cfg.RNG = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Items == nil {
		cfg.Items = game.NewItemCatalog(nil)
	}
	return &Synchronizer{cfg: cfg}
}

// Subscribe performs the authoritative sync: it resolves this client's role
// from the persisted record (attacker, defender or spectator) and derives
// turn ownership: from turn_player_id when set (recovery), otherwise the
// attacker goes first. Bot rooms skip the fetch entirely.
func (s *Synchronizer) Subscribe() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keys.IsBotRoom(s.cfg.RoomID) {
		s.setupBotLocked()
		return nil
	}

	m, err := s.cfg.Reader.GetMatchByUUID(s.cfg.MatchUUID)
	if err != nil {
		return err
	}
	switch s.cfg.PlayerID {
	case m.AttackerID:
		s.role = RoleAttacker
		s.self = game.CombatantState{ID: m.AttackerID, MaxHP: m.AttackerMax, HP: m.AttackerHP, Stats: m.AttackerStats}
		s.opponent = game.CombatantState{ID: m.DefenderID, MaxHP: m.DefenderMax, HP: m.DefenderHP, Stats: m.DefenderStats}
	case m.DefenderID:
		s.role = RoleDefender
		s.self = game.CombatantState{ID: m.DefenderID, MaxHP: m.DefenderMax, HP: m.DefenderHP, Stats: m.DefenderStats}
		s.opponent = game.CombatantState{ID: m.AttackerID, MaxHP: m.AttackerMax, HP: m.AttackerHP, Stats: m.AttackerStats}
	default:
		if m.AttackerID == "" || m.DefenderID == "" {
			return ErrMalformedMatch
		}
		s.role = RoleSpectator
		s.self = game.CombatantState{ID: m.AttackerID, MaxHP: m.AttackerMax, HP: m.AttackerHP, Stats: m.AttackerStats}
		s.opponent = game.CombatantState{ID: m.DefenderID, MaxHP: m.DefenderMax, HP: m.DefenderHP, Stats: m.DefenderStats}
	}

	if m.Status == game.MatchStatusFinished {
		s.complete = true
		s.winnerID = m.WinnerID
	}
	if s.role != RoleSpectator {
		turnOwner := m.TurnPlayerID
		if turnOwner == "" {
			turnOwner = m.AttackerID
		}
		s.myTurn = turnOwner == s.cfg.PlayerID && !s.complete
		s.armSpectatorSyncLocked()
	}
	return nil
}

func (s *Synchronizer) setupBotLocked() {
	s.isBot = true
	s.role = RoleAttacker
	eff := s.cfg.BotSelf.EffectiveStats()
	s.self = game.CombatantState{ID: s.cfg.PlayerID, DisplayName: s.cfg.BotSelf.Name, MaxHP: s.cfg.BotSelf.MaxHP, HP: s.cfg.BotSelf.MaxHP, Stats: eff}
	s.opponent = game.CombatantState{ID: constants.BotOpponentID, DisplayName: s.cfg.BotFoe.Name, MaxHP: s.cfg.BotFoe.MaxHP, HP: s.cfg.BotFoe.MaxHP, Stats: s.cfg.BotFoe.Stats}
	s.selfMoves = game.NewMoveSet(s.cfg.BotSelf.Moves)
	s.foeMoves = game.NewMoveSet(s.cfg.BotFoe.Moves)
	s.myTurn = true
}

// armSpectatorSyncLocked schedules the periodic full-state SYNC snapshot
// that spectators use to bootstrap or correct their view.
func (s *Synchronizer) armSpectatorSyncLocked() {
	s.syncCancel = s.cfg.Scheduler.After(constants.SpectatorSyncPeriod, func() {
		s.broadcastSync()
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.complete {
			s.armSpectatorSyncLocked()
		}
	})
}

func (s *Synchronizer) broadcastSync() {
	s.mu.Lock()
	attackerHP, defenderHP := s.self.HP, s.opponent.HP
	attackerID, defenderID := s.self.ID, s.opponent.ID
	if s.role == RoleDefender {
		attackerHP, defenderHP = s.opponent.HP, s.self.HP
		attackerID, defenderID = s.opponent.ID, s.self.ID
	}
	turnOwner := s.opponent.ID
	if s.myTurn {
		turnOwner = s.cfg.PlayerID
	}
	ev := SyncEvent{
		MatchUUID:  s.cfg.MatchUUID,
		AttackerID: attackerID,
		DefenderID: defenderID,
		AttackerHP: attackerHP,
		DefenderHP: defenderHP,
		TurnOwner:  turnOwner,
		IsComplete: s.complete,
		WinnerID:   s.winnerID,
	}
	s.mu.Unlock()
	if err := s.cfg.Channel.Broadcast(EventSync, ev); err != nil {
		logging.Warn("sync broadcast failed", logging.Fields{"match_id": s.cfg.MatchUUID})
	}
}

// ExecuteMove submits a move. Spectators and non-turn-holders are rejected
// locally without network cost. PvP moves flow through the authoritative
// validator; bot rooms resolve everything locally with the same formula.
func (s *Synchronizer) ExecuteMove(move game.Move) {
	s.mu.Lock()
	if s.complete {
		s.logLocked("rejected: match is over")
		s.mu.Unlock()
		return
	}
	if s.role == RoleSpectator {
		s.logLocked("rejected: spectators cannot act")
		s.mu.Unlock()
		return
	}
	if !s.myTurn {
		s.logLocked("rejected: not your turn")
		s.mu.Unlock()
		return
	}
	if s.isBot {
		s.executeBotMoveLocked(move)
		s.mu.Unlock()
		return
	}
	// Optimistically release the turn before the round trip; restored on
	// failure so the player is never stuck.
	s.myTurn = false
	s.mu.Unlock()

	res, err := s.cfg.Validator.ValidateMove(service.MoveRequest{
		MatchUUID: s.cfg.MatchUUID,
		SenderID:  s.cfg.PlayerID,
		MoveName:  move.Name,
		MoveType:  move.Type,
		MovePower: move.Power,
	})
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if errors.Is(err, service.ErrNotYourTurn) {
			// Turn desync: recoverable, nothing was corrupted server-side.
			// Resync the local flag from the record instead of guessing.
			s.resyncTurnLocked()
			s.logLocked("turn desync; resynced from record")
			return
		}
		s.myTurn = true
		s.logLocked("move failed; turn restored")
		logging.Warn("validate move failed", logging.Fields{"match_id": s.cfg.MatchUUID, "error": err.Error()})
		return
	}

	s.mu.Lock()
	s.opponent.HP = res.NextHP
	if res.IsComplete {
		s.completeLocked(res.WinnerID)
	}
	s.logHitLocked(move.Name, res.Damage, res.Effectiveness, res.IsCrit)
	s.mu.Unlock()

	// Mirror the just-confirmed authoritative result to peer/spectators.
	ev := ActionEvent{
		SenderID:      s.cfg.PlayerID,
		MoveName:      move.Name,
		MoveType:      move.Type,
		Damage:        res.Damage,
		Effectiveness: res.Effectiveness,
		IsCrit:        res.IsCrit,
		TargetHP:      res.NextHP,
		IsComplete:    res.IsComplete,
		WinnerID:      res.WinnerID,
	}
	if err := s.cfg.Channel.Broadcast(EventAction, ev); err != nil {
		logging.Warn("action broadcast failed", logging.Fields{"match_id": s.cfg.MatchUUID})
	}
}

func (s *Synchronizer) resyncTurnLocked() {
	m, err := s.cfg.Reader.GetMatchByUUID(s.cfg.MatchUUID)
	if err != nil {
		s.myTurn = true
		return
	}
	s.myTurn = m.TurnPlayerID == s.cfg.PlayerID && m.Status == game.MatchStatusActive
	if m.Status == game.MatchStatusFinished {
		s.completeLocked(m.WinnerID)
	}
}

// executeBotMoveLocked resolves a move entirely locally against the bot and
// schedules the bot's retaliation. No wager settlement happens in this path.
func (s *Synchronizer) executeBotMoveLocked(move game.Move) {
	if s.selfMoves != nil && !s.selfMoves.Spend(move.Name) {
		s.logLocked("rejected: no PP left for " + move.Name)
		return
	}
	res := engine.ComputeDamage(move, s.self.Stats, s.opponent.Stats, 1.0, s.cfg.RNG)
	s.opponent.ApplyDamage(res.Damage)
	s.logHitLocked(move.Name, res.Damage, res.Effectiveness, res.IsCrit)
	if s.opponent.Defeated() {
		s.completeLocked(s.cfg.PlayerID)
		return
	}
	s.myTurn = false
	s.cancelBot = s.cfg.Scheduler.After(constants.EnemyTurnDelay, s.botTurn)
}

func (s *Synchronizer) botTurn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.complete {
		return
	}
	var res engine.DamageResult
	moves := s.cfg.BotFoe.Moves
	if len(moves) > 0 {
		pick := moves[s.cfg.RNG.Intn(len(moves))]
		res = engine.ComputeDamage(pick, s.opponent.Stats, s.self.Stats, 1.0, s.cfg.RNG)
		s.logHitLocked(pick.Name, res.Damage, res.Effectiveness, res.IsCrit)
	}
	s.self.ApplyDamage(res.Damage)
	if s.self.Defeated() {
		s.completeLocked(constants.BotOpponentID)
		return
	}
	s.myTurn = true
}

// ExecuteUseItem spends the turn on an item. PvP item use flows through the
// authoritative resolution call so the HP change is persisted before it is
// mirrored to peers; bot rooms resolve against the local inventory. Only
// heals change HP; other item kinds are consumed without combat effect.
func (s *Synchronizer) ExecuteUseItem(itemID string) {
	s.mu.Lock()
	if s.complete || s.role == RoleSpectator || !s.myTurn {
		s.logLocked("rejected: cannot use item now")
		s.mu.Unlock()
		return
	}
	item, ok := s.cfg.Items.Lookup(itemID)
	if !ok {
		s.logLocked("rejected: unknown item " + itemID)
		s.mu.Unlock()
		return
	}
	if s.isBot {
		s.executeBotItemLocked(item)
		s.mu.Unlock()
		return
	}
	// Optimistically release the turn before the round trip; restored on
	// failure so the player is never stuck.
	s.myTurn = false
	s.mu.Unlock()

	res, err := s.cfg.ItemUser.UseItem(service.ItemRequest{
		MatchUUID: s.cfg.MatchUUID,
		SenderID:  s.cfg.PlayerID,
		ItemID:    itemID,
	})
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if errors.Is(err, service.ErrNotYourTurn) {
			s.resyncTurnLocked()
			s.logLocked("turn desync; resynced from record")
			return
		}
		s.myTurn = true
		s.logLocked("item use failed; turn restored")
		logging.Warn("use item failed", logging.Fields{"match_id": s.cfg.MatchUUID, "error": err.Error()})
		return
	}

	s.mu.Lock()
	if res.Applied {
		s.self.HP = res.NewHP
		s.logLocked(item.Name + " restores HP")
	} else {
		s.logLocked(item.Name + " used")
	}
	s.mu.Unlock()

	// Mirror the just-confirmed authoritative result to peer/spectators.
	ev := ItemUseEvent{SenderID: s.cfg.PlayerID, ItemID: itemID, NewHP: res.NewHP, Applied: res.Applied}
	if err := s.cfg.Channel.Broadcast(EventItemUse, ev); err != nil {
		logging.Warn("item broadcast failed", logging.Fields{"match_id": s.cfg.MatchUUID})
	}
}

// executeBotItemLocked resolves an item entirely locally, like bot moves.
func (s *Synchronizer) executeBotItemLocked(item game.Item) {
	if s.cfg.Inventory == nil || !s.cfg.Inventory.Consume(item.ID) {
		s.logLocked("rejected: no " + item.Name + " left")
		return
	}
	if item.Effect.Kind == game.ItemEffectHeal {
		s.self.Heal(item.Effect.Value)
		s.logLocked(item.Name + " restores HP")
	} else {
		s.logLocked(item.Name + " used")
	}
	s.myTurn = false
	s.cancelBot = s.cfg.Scheduler.After(constants.EnemyTurnDelay, s.botTurn)
}

// SendChat broadcasts a chat line. Spectators cannot send; messages are
// truncated to MaxChatLen runes and appended locally without waiting for
// the round trip.
func (s *Synchronizer) SendChat(text string) {
	s.mu.Lock()
	if s.role == RoleSpectator {
		s.logLocked("rejected: spectators cannot chat")
		s.mu.Unlock()
		return
	}
	runes := []rune(text)
	if len(runes) > MaxChatLen {
		text = string(runes[:MaxChatLen])
	}
	msg := ChatMessage{SenderID: s.cfg.PlayerID, Text: text, SentAt: time.Now()}
	s.chat = append(s.chat, msg)
	s.mu.Unlock()

	if err := s.cfg.Channel.Broadcast(EventChat, msg); err != nil {
		logging.Warn("chat broadcast failed", logging.Fields{"match_id": s.cfg.MatchUUID})
	}
}

// HandleAction applies a peer's mirrored move result. The receiver trusts
// the broadcast because it mirrors an already-committed authoritative fact.
func (s *Synchronizer) HandleAction(ev ActionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.SenderID == s.cfg.PlayerID {
		return
	}
	if s.role == RoleSpectator {
		// Damage lands on whichever side did not send the move.
		if ev.SenderID == s.self.ID {
			s.opponent.HP = ev.TargetHP
		} else {
			s.self.HP = ev.TargetHP
		}
	} else {
		s.self.HP = ev.TargetHP
		if !ev.IsComplete {
			s.myTurn = true
		}
	}
	if ev.IsComplete {
		s.completeLocked(ev.WinnerID)
	}
	s.logHitLocked(ev.MoveName, ev.Damage, ev.Effectiveness, ev.IsCrit)
}

// HandleItemUse mirrors a peer's item consumption.
func (s *Synchronizer) HandleItemUse(ev ItemUseEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.SenderID == s.cfg.PlayerID {
		return
	}
	if s.role == RoleSpectator {
		if ev.SenderID == s.self.ID {
			s.self.HP = ev.NewHP
		} else {
			s.opponent.HP = ev.NewHP
		}
		return
	}
	if ev.Applied {
		s.opponent.HP = ev.NewHP
	}
	s.myTurn = true
}

// HandleChat mirrors a peer's chat line.
func (s *Synchronizer) HandleChat(msg ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.SenderID == s.cfg.PlayerID {
		return
	}
	s.chat = append(s.chat, msg)
}

// HandlePeerLeave starts the disconnect grace timer. If the peer does not
// return before it elapses, the survivor declares a timeout win, exactly
// once, even when the leave event fires repeatedly.
func (s *Synchronizer) HandlePeerLeave(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role == RoleSpectator || s.complete || playerID != s.opponent.ID {
		return
	}
	if s.graceArmed {
		return
	}
	s.graceArmed = true
	s.logLocked("opponent disconnected; grace timer started")
	s.graceCancel = s.cfg.Scheduler.After(constants.DisconnectGrace, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.complete || s.declared {
			return
		}
		// Local declaration, distinct from server-authoritative resolution.
		s.declared = true
		s.completeLocked(s.cfg.PlayerID)
		s.logLocked("opponent never returned; win by timeout")
	})
}

// HandlePeerReturn cancels the grace timer when the opponent reconnects in
// time.
func (s *Synchronizer) HandlePeerReturn(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if playerID != s.opponent.ID || !s.graceArmed {
		return
	}
	s.graceArmed = false
	if s.graceCancel != nil {
		s.graceCancel()
		s.graceCancel = nil
	}
	s.logLocked("opponent returned; grace timer cleared")
}

// RequestRecovery is broadcast by a rejoining peer to resynchronize its
// mirrored state without re-fetching the full record.
func (s *Synchronizer) RequestRecovery() {
	if err := s.cfg.Channel.Broadcast(EventRecoveryRequest, RecoveryRequest{SenderID: s.cfg.PlayerID}); err != nil {
		logging.Warn("recovery request failed", logging.Fields{"match_id": s.cfg.MatchUUID})
	}
}

// HandleRecoveryRequest answers a rejoining peer with both HP values and
// turn ownership. Any connected peer may reply.
func (s *Synchronizer) HandleRecoveryRequest(req RecoveryRequest) {
	s.mu.Lock()
	if req.SenderID == s.cfg.PlayerID {
		s.mu.Unlock()
		return
	}
	attackerHP, defenderHP := s.self.HP, s.opponent.HP
	if s.role == RoleDefender {
		attackerHP, defenderHP = s.opponent.HP, s.self.HP
	}
	turnOwner := s.opponent.ID
	if s.myTurn {
		turnOwner = s.cfg.PlayerID
	}
	resp := RecoveryResponse{SenderID: s.cfg.PlayerID, AttackerHP: attackerHP, DefenderHP: defenderHP, TurnOwner: turnOwner}
	s.mu.Unlock()

	if err := s.cfg.Channel.Broadcast(EventRecoveryResponse, resp); err != nil {
		logging.Warn("recovery response failed", logging.Fields{"match_id": s.cfg.MatchUUID})
	}
}

// HandleRecoveryResponse applies a peer's snapshot to the local mirrors.
func (s *Synchronizer) HandleRecoveryResponse(resp RecoveryResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if resp.SenderID == s.cfg.PlayerID {
		return
	}
	switch s.role {
	case RoleAttacker, RoleSpectator:
		s.self.HP = resp.AttackerHP
		s.opponent.HP = resp.DefenderHP
	case RoleDefender:
		s.self.HP = resp.DefenderHP
		s.opponent.HP = resp.AttackerHP
	}
	if s.role != RoleSpectator {
		s.myTurn = resp.TurnOwner == s.cfg.PlayerID
	}
}

// HandleSync lets spectators bootstrap or correct their passive view from a
// periodic snapshot.
func (s *Synchronizer) HandleSync(ev SyncEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role != RoleSpectator {
		return
	}
	s.self.ID = ev.AttackerID
	s.self.HP = ev.AttackerHP
	s.opponent.ID = ev.DefenderID
	s.opponent.HP = ev.DefenderHP
	if ev.IsComplete {
		s.completeLocked(ev.WinnerID)
	}
}

// Abort tears down the channel-local state. Voluntary aborts make no
// server-side forfeiture call; the sweeper handles abandoned records.
func (s *Synchronizer) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelTimersLocked()
	s.complete = true
}

func (s *Synchronizer) cancelTimersLocked() {
	if s.graceCancel != nil {
		s.graceCancel()
		s.graceCancel = nil
	}
	if s.syncCancel != nil {
		s.syncCancel()
		s.syncCancel = nil
	}
	if s.cancelBot != nil {
		s.cancelBot()
		s.cancelBot = nil
	}
}

func (s *Synchronizer) completeLocked(winnerID string) {
	if s.complete {
		return
	}
	s.complete = true
	s.winnerID = winnerID
	s.myTurn = false
	s.cancelTimersLocked()
}

func (s *Synchronizer) logLocked(msg string) {
	if s.cfg.Sink != nil {
		s.cfg.Sink.BattleLog(msg)
	}
}

func (s *Synchronizer) logHitLocked(moveName string, dmg int, eff float64, crit bool) {
	if s.cfg.Sink == nil {
		return
	}
	msg := moveName + " hits for " + strconv.Itoa(dmg)
	if crit {
		msg += " (critical)"
	}
	if eff > 1.0 {
		msg += " (super effective)"
	} else if eff < 1.0 && eff > 0 {
		msg += " (resisted)"
	}
	s.cfg.Sink.BattleLog(msg)
}

// --- read-side accessors -------------------------------------------------

func (s *Synchronizer) RoleOf() Role     { s.mu.Lock(); defer s.mu.Unlock(); return s.role }
func (s *Synchronizer) MyTurn() bool     { s.mu.Lock(); defer s.mu.Unlock(); return s.myTurn }
func (s *Synchronizer) IsComplete() bool { s.mu.Lock(); defer s.mu.Unlock(); return s.complete }
func (s *Synchronizer) WinnerID() string { s.mu.Lock(); defer s.mu.Unlock(); return s.winnerID }
func (s *Synchronizer) SelfHP() int      { s.mu.Lock(); defer s.mu.Unlock(); return s.self.HP }
func (s *Synchronizer) OpponentHP() int  { s.mu.Lock(); defer s.mu.Unlock(); return s.opponent.HP }

// Chat returns a copy of the local chat log.
func (s *Synchronizer) Chat() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatMessage, len(s.chat))
	copy(out, s.chat)
	return out
}
