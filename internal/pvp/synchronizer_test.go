package pvp

import (
	"strings"
	"testing"

	"github.com/1804crypto/protect-the-streams-sub000/internal/engine"
	"github.com/1804crypto/protect-the-streams-sub000/internal/game"
	"github.com/1804crypto/protect-the-streams-sub000/internal/service"
)

type fakeChannel struct {
	events []struct {
		name    string
		payload interface{}
	}
}

func (c *fakeChannel) Broadcast(event string, payload interface{}) error {
	c.events = append(c.events, struct {
		name    string
		payload interface{}
	}{event, payload})
	return nil
}

func (c *fakeChannel) count(event string) int {
	n := 0
	for _, e := range c.events {
		if e.name == event {
			n++
		}
	}
	return n
}

type fakeReader struct {
	match *game.PvPMatch
	err   error
}

func (r *fakeReader) GetMatchByUUID(string) (*game.PvPMatch, error) {
	if r.err != nil {
		return nil, r.err
	}
	cp := *r.match
	return &cp, nil
}

type fakeValidator struct {
	res   *service.MoveResult
	err   error
	calls int
}

func (v *fakeValidator) ValidateMove(service.MoveRequest) (*service.MoveResult, error) {
	v.calls++
	return v.res, v.err
}

type fakeItemValidator struct {
	res   *service.ItemResult
	err   error
	calls int
}

func (v *fakeItemValidator) UseItem(service.ItemRequest) (*service.ItemResult, error) {
	v.calls++
	return v.res, v.err
}

type logSink struct{ logs []string }

func (s *logSink) BattleLog(msg string)       { s.logs = append(s.logs, msg) }
func (s *logSink) PhaseBanner(string, string) {}

func (s *logSink) hasLog(substr string) bool {
	for _, l := range s.logs {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

// constRNG pins jitter to 1.0 and never crits.
type constRNG struct{}

func (constRNG) Float64() float64 { return 0.5 }
func (constRNG) Intn(int) int     { return 0 }

func baseMatch() *game.PvPMatch {
	return &game.PvPMatch{
		MatchUUID:     "m-1",
		AttackerID:    "alice",
		DefenderID:    "bob",
		AttackerHP:    100,
		DefenderHP:    100,
		AttackerMax:   100,
		DefenderMax:   100,
		AttackerStats: game.Stats{Influence: 40, Chaos: 60, Charisma: 40, Rebellion: 40},
		DefenderStats: game.Stats{Influence: 40, Chaos: 60, Charisma: 40, Rebellion: 40},
		TurnPlayerID:  "alice",
		Status:        game.MatchStatusActive,
	}
}

type syncFixture struct {
	s       *Synchronizer
	channel *fakeChannel
	reader  *fakeReader
	val     *fakeValidator
	items   *fakeItemValidator
	sched   *engine.ManualScheduler
	sink    *logSink
}

func newFixture(playerID string, m *game.PvPMatch) *syncFixture {
	f := &syncFixture{
		channel: &fakeChannel{},
		reader:  &fakeReader{match: m},
		val:     &fakeValidator{},
		items:   &fakeItemValidator{},
		sched:   engine.NewManualScheduler(),
		sink:    &logSink{},
	}
	f.s = New(Config{
		RoomID:    "pvp_m-1",
		MatchUUID: "m-1",
		PlayerID:  playerID,
		Reader:    f.reader,
		Validator: f.val,
		ItemUser:  f.items,
		Channel:   f.channel,
		Scheduler: f.sched,
		RNG:       constRNG{},
		Sink:      f.sink,
	})
	return f
}

func attackMove() game.Move {
	return game.Move{Name: "Static Surge", Type: game.TypeChaos, Power: 50, PP: 10}
}

func TestSubscribeResolvesRoles(t *testing.T) {
	m := baseMatch()

	a := newFixture("alice", m)
	if err := a.s.Subscribe(); err != nil {
		t.Fatal(err)
	}
	if a.s.RoleOf() != RoleAttacker || !a.s.MyTurn() {
		t.Errorf("alice: role=%s turn=%v", a.s.RoleOf(), a.s.MyTurn())
	}

	b := newFixture("bob", m)
	if err := b.s.Subscribe(); err != nil {
		t.Fatal(err)
	}
	if b.s.RoleOf() != RoleDefender || b.s.MyTurn() {
		t.Errorf("bob: role=%s turn=%v", b.s.RoleOf(), b.s.MyTurn())
	}

	w := newFixture("watcher", m)
	if err := w.s.Subscribe(); err != nil {
		t.Fatal(err)
	}
	if w.s.RoleOf() != RoleSpectator || w.s.MyTurn() {
		t.Errorf("watcher: role=%s turn=%v", w.s.RoleOf(), w.s.MyTurn())
	}
}

func TestSubscribeMalformedMatch(t *testing.T) {
	m := baseMatch()
	m.AttackerID = ""
	f := newFixture("watcher", m)
	if err := f.s.Subscribe(); err != ErrMalformedMatch {
		t.Errorf("err = %v, want ErrMalformedMatch", err)
	}
}

func TestExecuteMoveConfirmedAndMirrored(t *testing.T) {
	f := newFixture("alice", baseMatch())
	f.s.Subscribe()
	f.val.res = &service.MoveResult{Damage: 30, Effectiveness: 1.0, NextHP: 70, TurnPlayerID: "bob"}

	f.s.ExecuteMove(attackMove())

	if f.val.calls != 1 {
		t.Fatalf("validator calls = %d", f.val.calls)
	}
	if f.s.OpponentHP() != 70 || f.s.MyTurn() {
		t.Errorf("hp=%d turn=%v", f.s.OpponentHP(), f.s.MyTurn())
	}
	if f.channel.count(EventAction) != 1 {
		t.Errorf("action broadcasts = %d", f.channel.count(EventAction))
	}
	ev := f.channel.events[len(f.channel.events)-1].payload.(ActionEvent)
	if ev.SenderID != "alice" || ev.TargetHP != 70 || ev.Damage != 30 {
		t.Errorf("broadcast = %+v", ev)
	}
}

func TestExecuteMoveLocalRejections(t *testing.T) {
	f := newFixture("bob", baseMatch())
	f.s.Subscribe()

	// Not bob's turn: rejected locally, validator never called.
	f.s.ExecuteMove(attackMove())
	if f.val.calls != 0 {
		t.Error("out-of-turn move reached the validator")
	}
	if !f.sink.hasLog("not your turn") {
		t.Error("missing rejection log")
	}

	w := newFixture("watcher", baseMatch())
	w.s.Subscribe()
	w.s.ExecuteMove(attackMove())
	if w.val.calls != 0 || !w.sink.hasLog("spectators cannot act") {
		t.Error("spectator move was not rejected locally")
	}
}

func TestNotYourTurnResyncsFromRecord(t *testing.T) {
	m := baseMatch()
	f := newFixture("alice", m)
	f.s.Subscribe()

	// The server lost a race but the record still says it is our turn:
	// the optimistically released flag comes back.
	f.val.err = service.ErrNotYourTurn
	f.s.ExecuteMove(attackMove())

	if !f.s.MyTurn() {
		t.Error("turn not restored when the record says it is ours")
	}
	if !f.sink.hasLog("resynced") {
		t.Error("missing resync log")
	}
	if f.channel.count(EventAction) != 0 {
		t.Error("failed move was broadcast")
	}

	// The record disagrees: the flag follows the record, not a guess.
	m.TurnPlayerID = "bob"
	f.s.ExecuteMove(attackMove())
	if f.s.MyTurn() {
		t.Error("turn flag not resynced from the record")
	}
}

func TestOtherErrorsRestoreTurn(t *testing.T) {
	f := newFixture("alice", baseMatch())
	f.s.Subscribe()
	f.val.err = service.ErrMatchNotFound

	f.s.ExecuteMove(attackMove())
	if !f.s.MyTurn() {
		t.Error("turn lost after transient failure")
	}
}

func TestHandleActionMirrorsPeerMove(t *testing.T) {
	f := newFixture("bob", baseMatch())
	f.s.Subscribe()

	f.s.HandleAction(ActionEvent{SenderID: "alice", MoveName: "Static Surge", Damage: 30, Effectiveness: 1.0, TargetHP: 70})
	if f.s.SelfHP() != 70 {
		t.Errorf("self HP = %d, want 70", f.s.SelfHP())
	}
	if !f.s.MyTurn() {
		t.Error("turn not granted after peer's move")
	}

	// Completion in the broadcast finishes the mirror.
	f.s.HandleAction(ActionEvent{SenderID: "alice", MoveName: "Static Surge", Damage: 70, TargetHP: 0, IsComplete: true, WinnerID: "alice"})
	if !f.s.IsComplete() || f.s.WinnerID() != "alice" || f.s.MyTurn() {
		t.Errorf("complete=%v winner=%s turn=%v", f.s.IsComplete(), f.s.WinnerID(), f.s.MyTurn())
	}
}

func TestDisconnectGraceTimeoutWinExactlyOnce(t *testing.T) {
	f := newFixture("alice", baseMatch())
	f.s.Subscribe()

	// Repeated leave events arm a single timer alongside the sync snapshot.
	f.s.HandlePeerLeave("bob")
	f.s.HandlePeerLeave("bob")
	if got := f.sched.PendingCount(); got != 2 {
		t.Fatalf("pending timers = %d, want 2", got)
	}

	f.sched.FireNext() // periodic sync, armed at subscribe
	f.sched.FireNext() // grace elapses
	if !f.s.IsComplete() || f.s.WinnerID() != "alice" {
		t.Fatalf("timeout win not declared: complete=%v winner=%s", f.s.IsComplete(), f.s.WinnerID())
	}

	// Further leave events and timer firings change nothing.
	f.s.HandlePeerLeave("bob")
	f.sched.FireAll()
	if f.s.WinnerID() != "alice" {
		t.Error("winner changed after declaration")
	}
}

func TestPeerReturnCancelsGrace(t *testing.T) {
	f := newFixture("alice", baseMatch())
	f.s.Subscribe()

	f.s.HandlePeerLeave("bob")
	f.s.HandlePeerReturn("bob")
	if got := f.sched.PendingCount(); got != 1 { // only the periodic sync remains
		t.Fatalf("pending timers = %d, want 1", got)
	}
	if f.s.IsComplete() {
		t.Error("win declared although the opponent returned in time")
	}

	// The cycle can repeat after a second drop.
	f.s.HandlePeerLeave("bob")
	f.sched.FireNext() // periodic sync
	f.sched.FireNext() // grace elapses
	if !f.s.IsComplete() {
		t.Error("second disconnect never timed out")
	}
}

func TestLeaveOfStrangerIgnored(t *testing.T) {
	f := newFixture("alice", baseMatch())
	f.s.Subscribe()
	f.s.HandlePeerLeave("watcher")
	if got := f.sched.PendingCount(); got != 1 { // only the periodic sync
		t.Errorf("pending timers = %d, want 1", got)
	}
	if f.s.IsComplete() {
		t.Error("spectator leave triggered the grace timer")
	}
}

func TestChatTruncationAndMirroring(t *testing.T) {
	f := newFixture("alice", baseMatch())
	f.s.Subscribe()

	long := strings.Repeat("x", 80)
	f.s.SendChat(long)
	chat := f.s.Chat()
	if len(chat) != 1 || len([]rune(chat[0].Text)) != MaxChatLen {
		t.Fatalf("chat = %+v", chat)
	}
	if f.channel.count(EventChat) != 1 {
		t.Error("chat not broadcast")
	}

	f.s.HandleChat(ChatMessage{SenderID: "bob", Text: "gg"})
	if len(f.s.Chat()) != 2 {
		t.Error("peer chat not mirrored")
	}

	// Spectators cannot send.
	w := newFixture("watcher", baseMatch())
	w.s.Subscribe()
	w.s.SendChat("hi")
	if len(w.s.Chat()) != 0 || w.channel.count(EventChat) != 0 {
		t.Error("spectator chat was not rejected")
	}
}

func TestSpectatorSyncBootstrap(t *testing.T) {
	w := newFixture("watcher", baseMatch())
	w.s.Subscribe()

	w.s.HandleSync(SyncEvent{MatchUUID: "m-1", AttackerID: "alice", DefenderID: "bob", AttackerHP: 55, DefenderHP: 40, TurnOwner: "bob"})
	if w.s.SelfHP() != 55 || w.s.OpponentHP() != 40 {
		t.Errorf("spectator view = %d/%d", w.s.SelfHP(), w.s.OpponentHP())
	}

	// Participants ignore SYNC; their mirror is authoritative-confirmed.
	a := newFixture("alice", baseMatch())
	a.s.Subscribe()
	a.s.HandleSync(SyncEvent{AttackerHP: 1, DefenderHP: 1})
	if a.s.SelfHP() != 100 {
		t.Error("participant state overwritten by advisory sync")
	}
}

func TestPeriodicSyncBroadcast(t *testing.T) {
	f := newFixture("alice", baseMatch())
	f.s.Subscribe()

	f.sched.FireNext() // periodic snapshot
	if f.channel.count(EventSync) != 1 {
		t.Fatalf("sync broadcasts = %d", f.channel.count(EventSync))
	}
	ev := f.channel.events[0].payload.(SyncEvent)
	if ev.AttackerID != "alice" || ev.AttackerHP != 100 || ev.TurnOwner != "alice" {
		t.Errorf("sync = %+v", ev)
	}
	// It re-arms itself while the match runs.
	if f.sched.PendingCount() != 1 {
		t.Errorf("pending after fire = %d, want 1", f.sched.PendingCount())
	}
}

func TestRecoveryRoundTrip(t *testing.T) {
	m := baseMatch()
	b := newFixture("bob", m)
	b.s.Subscribe()
	b.s.HandleAction(ActionEvent{SenderID: "alice", MoveName: "Static Surge", Damage: 30, TargetHP: 70})

	b.s.HandleRecoveryRequest(RecoveryRequest{SenderID: "alice"})
	if b.channel.count(EventRecoveryResponse) != 1 {
		t.Fatal("no recovery response broadcast")
	}
	var resp RecoveryResponse
	for _, e := range b.channel.events {
		if e.name == EventRecoveryResponse {
			resp = e.payload.(RecoveryResponse)
		}
	}
	if resp.AttackerHP != 100 || resp.DefenderHP != 70 || resp.TurnOwner != "bob" {
		t.Errorf("response = %+v", resp)
	}

	// The rejoining attacker applies the snapshot.
	a := newFixture("alice", m)
	a.s.Subscribe()
	a.s.HandleRecoveryResponse(resp)
	if a.s.SelfHP() != 100 || a.s.OpponentHP() != 70 || a.s.MyTurn() {
		t.Errorf("after recovery: self=%d opp=%d turn=%v", a.s.SelfHP(), a.s.OpponentHP(), a.s.MyTurn())
	}
}

func TestBotMatchLocalResolution(t *testing.T) {
	f := &syncFixture{
		channel: &fakeChannel{},
		sched:   engine.NewManualScheduler(),
		sink:    &logSink{},
	}
	f.s = New(Config{
		RoomID:    "bot_session-1",
		PlayerID:  "alice",
		Channel:   f.channel,
		Scheduler: f.sched,
		RNG:       constRNG{},
		Sink:      f.sink,
		BotSelf: game.StreamerDef{
			ID: "glitch_queen", Name: "Glitch Queen", MaxHP: 100,
			Stats: game.Stats{Influence: 40, Chaos: 100, Charisma: 40, Rebellion: 40},
			Moves: []game.Move{{Name: "Hit", Type: game.TypeChaos, Power: 50, PP: 2}},
		},
		BotFoe: game.EnemyDef{
			ID: "netrunner-bot", Name: "Netrunner", MaxHP: 200,
			Stats: game.Stats{Influence: 30, Chaos: 60, Charisma: 30, Rebellion: 30},
			Moves: []game.Move{{Name: "Packet Storm", Type: game.TypeChaos, Power: 40, PP: 10}},
		},
	})
	if err := f.s.Subscribe(); err != nil {
		t.Fatal(err)
	}
	if !f.s.MyTurn() {
		t.Fatal("player does not open the bot match")
	}

	// Neutral matchup: floor(50 * 100/100) = 50 out, floor(40 * 60/100) = 24 back.
	f.s.ExecuteMove(game.Move{Name: "Hit", Type: game.TypeChaos, Power: 50, PP: 2})
	if f.s.OpponentHP() != 150 {
		t.Fatalf("bot HP = %d, want 150", f.s.OpponentHP())
	}
	if f.s.MyTurn() {
		t.Fatal("turn not handed to the bot")
	}
	f.sched.FireNext() // bot retaliates
	if f.s.SelfHP() != 76 || !f.s.MyTurn() {
		t.Fatalf("after bot turn: self=%d turn=%v", f.s.SelfHP(), f.s.MyTurn())
	}

	// PP runs out on the second spend.
	f.s.ExecuteMove(game.Move{Name: "Hit", Type: game.TypeChaos, Power: 50, PP: 2})
	f.sched.FireNext()
	f.s.ExecuteMove(game.Move{Name: "Hit", Type: game.TypeChaos, Power: 50, PP: 2})
	if !f.sink.hasLog("no PP left") {
		t.Error("missing PP rejection in bot match")
	}

	// Nothing in a bot match touches the network channel.
	if len(f.channel.events) != 0 {
		t.Errorf("bot match broadcast %d events", len(f.channel.events))
	}
}

func TestBotDefeatDeclaresWinner(t *testing.T) {
	sched := engine.NewManualScheduler()
	s := New(Config{
		RoomID:    "bot_session-2",
		PlayerID:  "alice",
		Channel:   &fakeChannel{},
		Scheduler: sched,
		RNG:       constRNG{},
		BotSelf: game.StreamerDef{
			ID: "glitch_queen", MaxHP: 100,
			Stats: game.Stats{Influence: 40, Chaos: 100, Charisma: 40, Rebellion: 40},
			Moves: []game.Move{{Name: "Hit", Type: game.TypeChaos, Power: 50, PP: 10}},
		},
		BotFoe: game.EnemyDef{ID: "netrunner-bot", MaxHP: 40, Stats: game.Stats{Chaos: 60}},
	})
	s.Subscribe()

	s.ExecuteMove(game.Move{Name: "Hit", Type: game.TypeChaos, Power: 50, PP: 10})
	if !s.IsComplete() || s.WinnerID() != "alice" {
		t.Errorf("complete=%v winner=%s", s.IsComplete(), s.WinnerID())
	}
}

func TestExecuteUseItemAuthoritativeHeal(t *testing.T) {
	m := baseMatch()
	m.DefenderHP = 50
	m.TurnPlayerID = "bob"
	f := newFixture("bob", m)
	f.s.Subscribe()
	f.items.res = &service.ItemResult{ItemID: "energy_drink", NewHP: 80, Applied: true, TurnPlayerID: "alice"}

	f.s.ExecuteUseItem("energy_drink")
	if f.items.calls != 1 {
		t.Fatalf("item validator calls = %d", f.items.calls)
	}
	if f.s.SelfHP() != 80 {
		t.Errorf("self HP = %d, want 80", f.s.SelfHP())
	}
	if f.s.MyTurn() {
		t.Error("item use did not cost the turn")
	}
	if f.channel.count(EventItemUse) != 1 {
		t.Error("item use not broadcast")
	}
	ev := f.channel.events[len(f.channel.events)-1].payload.(ItemUseEvent)
	if !ev.Applied || ev.NewHP != 80 {
		t.Errorf("broadcast = %+v", ev)
	}

	// The heal was committed server-side, so the opponent's next confirmed
	// move resolves from the healed HP.
	f.s.HandleAction(ActionEvent{SenderID: "alice", MoveName: "Static Surge", Damage: 10, TargetHP: 70})
	if got := f.s.SelfHP(); got != 70 {
		t.Errorf("bob HP after 10 damage = %d, want 70", got)
	}
}

func TestExecuteUseItemFailureRestoresTurn(t *testing.T) {
	f := newFixture("alice", baseMatch())
	f.s.Subscribe()

	f.items.err = service.ErrItemDepleted
	f.s.ExecuteUseItem("energy_drink")
	if !f.s.MyTurn() {
		t.Error("turn lost after failed item use")
	}
	if f.channel.count(EventItemUse) != 0 {
		t.Error("failed item use was broadcast")
	}

	// Unknown items never reach the server.
	f.s.ExecuteUseItem("mystery_box")
	if f.items.calls != 1 {
		t.Errorf("item validator calls = %d, want 1", f.items.calls)
	}
	if !f.sink.hasLog("unknown item") {
		t.Error("missing rejection log")
	}
}

func TestBotMatchItemLocal(t *testing.T) {
	sched := engine.NewManualScheduler()
	sink := &logSink{}
	channel := &fakeChannel{}
	items := &fakeItemValidator{}
	s := New(Config{
		RoomID:    "bot_session-3",
		PlayerID:  "alice",
		ItemUser:  items,
		Channel:   channel,
		Inventory: mapInventory{"energy_drink": 1},
		Scheduler: sched,
		RNG:       constRNG{},
		Sink:      sink,
		BotSelf: game.StreamerDef{
			ID: "glitch_queen", MaxHP: 100,
			Stats: game.Stats{Influence: 40, Chaos: 100, Charisma: 40, Rebellion: 40},
			Moves: []game.Move{{Name: "Hit", Type: game.TypeChaos, Power: 50, PP: 10}},
		},
		BotFoe: game.EnemyDef{
			ID: "netrunner-bot", Name: "Netrunner", MaxHP: 200,
			Stats: game.Stats{Influence: 30, Chaos: 60, Charisma: 30, Rebellion: 30},
			Moves: []game.Move{{Name: "Packet Storm", Type: game.TypeChaos, Power: 40, PP: 10}},
		},
	})
	s.Subscribe()

	// Take a hit first, then heal back up to the cap.
	s.ExecuteMove(game.Move{Name: "Hit", Type: game.TypeChaos, Power: 50, PP: 10})
	sched.FireNext() // bot answers for 24
	if s.SelfHP() != 76 {
		t.Fatalf("self HP = %d, want 76", s.SelfHP())
	}
	s.ExecuteUseItem("energy_drink")
	if s.SelfHP() != 100 {
		t.Errorf("healed HP = %d, want 100", s.SelfHP())
	}
	if s.MyTurn() {
		t.Error("item use did not hand the turn to the bot")
	}
	sched.FireNext() // bot answers again
	if !s.MyTurn() {
		t.Error("turn not returned after bot move")
	}

	// Bot rooms never touch the server or the network channel.
	if items.calls != 0 || len(channel.events) != 0 {
		t.Errorf("bot item use left the room: calls=%d events=%d", items.calls, len(channel.events))
	}
}

type mapInventory map[string]int

func (m mapInventory) Count(id string) int { return m[id] }
func (m mapInventory) Consume(id string) bool {
	if m[id] <= 0 {
		return false
	}
	m[id]--
	return true
}
func (m mapInventory) Add(id string, qty int) { m[id] += qty }
