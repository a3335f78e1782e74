package matchmaking

import (
	"errors"
	"strings"
	"testing"

	"github.com/1804crypto/protect-the-streams-sub000/internal/constants"
	"github.com/1804crypto/protect-the-streams-sub000/internal/engine"
	"github.com/1804crypto/protect-the-streams-sub000/internal/game"
	"github.com/1804crypto/protect-the-streams-sub000/internal/service"
)

type fakeLobby struct {
	tracked   []PresenceState
	proposals map[string][]MatchProposal
}

func newFakeLobby() *fakeLobby {
	return &fakeLobby{proposals: make(map[string][]MatchProposal)}
}

func (l *fakeLobby) Track(state PresenceState) error {
	l.tracked = append(l.tracked, state)
	return nil
}

func (l *fakeLobby) SendProposal(toPlayerID string, p MatchProposal) error {
	l.proposals[toPlayerID] = append(l.proposals[toPlayerID], p)
	return nil
}

type fakeInit struct {
	calls []service.InitMatchRequest
	err   error
}

func (i *fakeInit) InitializeMatch(req service.InitMatchRequest) (*game.PvPMatch, error) {
	i.calls = append(i.calls, req)
	if i.err != nil {
		return nil, i.err
	}
	return &game.PvPMatch{
		MatchUUID:     "match-1",
		AttackerID:    req.AttackerID,
		DefenderID:    req.DefenderID,
		WagerAmount:   req.WagerAmount,
		TurnPlayerID:  req.AttackerID,
		Status:        game.MatchStatusActive,
		AttackerStats: req.AttackerStats,
		DefenderStats: req.DefenderStats,
	}, nil
}

func newTestCoordinator(playerID string, wager int64) (*Coordinator, *fakeLobby, *fakeInit, *engine.ManualScheduler, *[]Found) {
	lobby := newFakeLobby()
	init := &fakeInit{}
	sched := engine.NewManualScheduler()
	found := &[]Found{}
	c := New(Config{
		PlayerID:  playerID,
		Wager:     wager,
		MaxHP:     100,
		Lobby:     lobby,
		Init:      init,
		Scheduler: sched,
		OnFound:   func(f Found) { *found = append(*found, f) },
	})
	return c, lobby, init, sched, found
}

func presenceOf(c *Coordinator, playerID string, wager int64) PresenceState {
	return PresenceState{
		PlayerID:  playerID,
		SessionID: c.SessionID(),
		Wager:     wager,
		MaxHP:     100,
		Status:    StatusSearching,
	}
}

func TestStartAnnouncesPresence(t *testing.T) {
	c, lobby, _, _, _ := newTestCoordinator("alice", 40)
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	if c.Status() != StatusSearching {
		t.Fatalf("status = %s", c.Status())
	}
	if len(lobby.tracked) != 1 || lobby.tracked[0].PlayerID != "alice" || lobby.tracked[0].Wager != 40 {
		t.Errorf("tracked = %+v", lobby.tracked)
	}
}

func TestHostElectionSingleInit(t *testing.T) {
	a, lobbyA, initA, _, foundA := newTestCoordinator("alice", 40)
	b, _, initB, _, foundB := newTestCoordinator("bob", 40)
	a.Start()
	b.Start()

	roster := []PresenceState{presenceOf(a, "alice", 40), presenceOf(b, "bob", 40)}
	a.HandlePresenceSync(roster)
	b.HandlePresenceSync(roster)

	// Exactly one side (the lexicographically lower session) issued init.
	inits := len(initA.calls) + len(initB.calls)
	if inits != 1 {
		t.Fatalf("init calls = %d, want 1", inits)
	}

	if a.SessionID() < b.SessionID() {
		if len(*foundA) != 1 || !(*foundA)[0].IsHost {
			t.Fatalf("host result = %+v", *foundA)
		}
		if (*foundA)[0].OpponentID != "bob" || (*foundA)[0].MatchUUID != "match-1" {
			t.Errorf("host found = %+v", (*foundA)[0])
		}
		if len(lobbyA.proposals["bob"]) != 1 {
			t.Error("host did not send the proposal to bob")
		}
		if !strings.HasPrefix((*foundA)[0].RoomID, "pvp_") {
			t.Errorf("room id = %q", (*foundA)[0].RoomID)
		}
		// Delivering the proposal completes the non-host side.
		b.HandleProposal(lobbyA.proposals["bob"][0])
		if len(*foundB) != 1 || (*foundB)[0].IsHost {
			t.Fatalf("non-host result = %+v", *foundB)
		}
		if b.Status() != StatusMatchFound {
			t.Errorf("non-host status = %s", b.Status())
		}
	} else {
		if len(*foundB) != 1 || !(*foundB)[0].IsHost {
			t.Fatalf("host result = %+v", *foundB)
		}
	}
}

func TestWagerMustMatchExactly(t *testing.T) {
	a, _, initA, _, foundA := newTestCoordinator("alice", 40)
	b, _, _, _, _ := newTestCoordinator("bob", 50)
	free, _, _, _, _ := newTestCoordinator("carol", 0)
	a.Start()

	roster := []PresenceState{
		presenceOf(a, "alice", 40),
		presenceOf(b, "bob", 50),
		presenceOf(free, "carol", 0),
	}
	a.HandlePresenceSync(roster)
	if len(initA.calls) != 0 || len(*foundA) != 0 {
		t.Error("matched despite differing wagers")
	}
}

func TestInitFailureSetsErrorState(t *testing.T) {
	lobby := newFakeLobby()
	init := &fakeInit{err: errors.New("INSUFFICIENT_FUNDS")}
	sched := engine.NewManualScheduler()
	var gotErr error
	a := New(Config{
		PlayerID:  "alice",
		Wager:     40,
		MaxHP:     100,
		Lobby:     lobby,
		Init:      init,
		Scheduler: sched,
		OnError:   func(err error) { gotErr = err },
	})
	a.Start()

	// Force alice to be host regardless of generated IDs.
	peer := PresenceState{PlayerID: "bob", SessionID: "zzzz", Wager: 40, MaxHP: 100, Status: StatusSearching}
	a.HandlePresenceSync([]PresenceState{peer})

	if a.Status() != StatusError {
		t.Fatalf("status = %s, want ERROR", a.Status())
	}
	if gotErr == nil {
		t.Fatal("OnError not invoked")
	}

	// Retry gets a fresh session and searches again.
	old := a.SessionID()
	if err := a.Retry(); err != nil {
		t.Fatal(err)
	}
	if a.Status() != StatusSearching {
		t.Errorf("status after retry = %s", a.Status())
	}
	if a.SessionID() == old {
		t.Error("retry reused the stale session id")
	}
}

func TestBotFallbackOnTimeout(t *testing.T) {
	a, _, init, sched, found := newTestCoordinator("alice", 40)
	a.Start()

	if sched.PendingCount() != 1 {
		t.Fatalf("pending timers = %d, want 1", sched.PendingCount())
	}
	sched.FireNext()

	if len(*found) != 1 {
		t.Fatalf("found = %+v", *found)
	}
	f := (*found)[0]
	if !f.IsBot || !f.IsHost || f.Wager != 0 || f.OpponentID != constants.BotOpponentID {
		t.Errorf("bot fallback = %+v", f)
	}
	if !strings.HasPrefix(f.RoomID, "bot_") {
		t.Errorf("bot room id = %q", f.RoomID)
	}
	if len(init.calls) != 0 {
		t.Error("bot fallback called the server init")
	}
}

func TestLateProposalOverridesBotFallback(t *testing.T) {
	a, _, _, sched, found := newTestCoordinator("alice", 40)
	a.Start()
	sched.FireNext() // search times out, bot fallback announced

	if len(*found) != 1 || !(*found)[0].IsBot {
		t.Fatalf("found = %+v", *found)
	}

	// The host already escrowed both wagers; its proposal landing inside the
	// grace window still wins over the bot fallback.
	a.HandleProposal(MatchProposal{MatchUUID: "match-9", RoomID: "pvp_match-9", HostID: "bob", Wager: 40})
	if len(*found) != 2 {
		t.Fatalf("late proposal ignored: %+v", *found)
	}
	f := (*found)[1]
	if f.IsBot || f.IsHost || f.MatchUUID != "match-9" || f.OpponentID != "bob" {
		t.Errorf("late found = %+v", f)
	}
	if a.Status() != StatusMatchFound {
		t.Errorf("status = %s", a.Status())
	}
	// Acceptance cleared the grace timer.
	if sched.PendingCount() != 0 {
		t.Errorf("pending timers = %d, want 0", sched.PendingCount())
	}
}

func TestProposalAfterGraceExpiryIgnored(t *testing.T) {
	a, _, _, sched, found := newTestCoordinator("alice", 40)
	a.Start()
	sched.FireNext() // search times out
	sched.FireNext() // grace window elapses

	a.HandleProposal(MatchProposal{MatchUUID: "match-9", RoomID: "pvp_match-9", HostID: "bob", Wager: 40})
	if len(*found) != 1 {
		t.Errorf("stale proposal accepted: %+v", *found)
	}
}

func TestTimeoutCanceledByMatch(t *testing.T) {
	a, lobbyA, _, schedA, _ := newTestCoordinator("alice", 40)
	b, _, _, schedB, foundB := newTestCoordinator("bob", 40)
	a.Start()
	b.Start()

	roster := []PresenceState{presenceOf(a, "alice", 40), presenceOf(b, "bob", 40)}
	a.HandlePresenceSync(roster)
	b.HandlePresenceSync(roster)
	if props := lobbyA.proposals["bob"]; len(props) == 1 {
		b.HandleProposal(props[0])
	}

	// Firing the leftover timers must not fabricate bot matches.
	schedA.FireAll()
	schedB.FireAll()
	for _, f := range *foundB {
		if f.IsBot {
			t.Fatal("timer fired after a real match was found")
		}
	}
}

func TestStopPreventsTimeout(t *testing.T) {
	a, _, _, sched, found := newTestCoordinator("alice", 40)
	a.Start()
	a.Stop()
	sched.FireAll()
	if len(*found) != 0 {
		t.Errorf("found after stop = %+v", *found)
	}
	if a.Status() != StatusIdle {
		t.Errorf("status = %s, want IDLE", a.Status())
	}
}
