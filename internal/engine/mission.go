package engine

import (
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/1804crypto/protect-the-streams-sub000/internal/constants"
	"github.com/1804crypto/protect-the-streams-sub000/internal/game"
)

// State is the mission engine's turn state.
type State string

const (
	StateAwaitingPlayer State = "AWAITING_PLAYER_INPUT"
	StateEnemyResolving State = "ENEMY_RESOLVING"
	StateComplete       State = "COMPLETE"
)

// Outcome is set once the mission reaches StateComplete.
type Outcome string

const (
	OutcomeNone    Outcome = ""
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
)

// Inventory is the externally owned item store. The engine never assumes
// success: Consume returns false when the player has none left.
type Inventory interface {
	Count(itemID string) int
	Consume(itemID string) bool
	Add(itemID string, qty int)
}

// MissionRecorder persists mission results (rank upgrades, cumulative XP).
type MissionRecorder interface {
	MarkMissionComplete(streamerID, rank string, xp int) error
}

// EventSink receives battle log lines and boss phase banners. Sinks are
// opaque: they never block or alter battle state.
type EventSink interface {
	BattleLog(msg string)
	PhaseBanner(name, message string)
}

type noopSink struct{}

func (noopSink) BattleLog(string)           {}
func (noopSink) PhaseBanner(string, string) {}

// MissionConfig wires a solo mission: the player's streamer, the ordered
// enemy waves (last wave is the boss when flagged), difficulty inputs and
// the injected collaborators.
type MissionConfig struct {
	Streamer             game.StreamerDef
	Waves                []game.EnemyDef
	ThreatLevel          int
	DifficultyMultiplier float64
	Items                *game.ItemCatalog
	Inventory            Inventory
	Recorder             MissionRecorder
	Sink                 EventSink
	Scheduler            Scheduler
	RNG                  RNG
	EnemyTurnDelay       time.Duration
	StageAdvanceDelay    time.Duration
}

// MissionEngine is the client-authoritative solo battle state machine. All
// mutation happens under one mutex; scheduler callbacks re-enter through the
// same guarded methods, so the machine behaves as a single-threaded
// event loop.
type MissionEngine struct {
	mu  sync.Mutex
	cfg MissionConfig

	player     game.CombatantState
	moves      *game.MoveSet
	charge     int
	atk        game.BoostEffect
	def        game.BoostEffect
	stage      int
	enemy      game.CombatantState
	enemyDef   game.EnemyDef
	enemyMoves *game.MoveSet
	phaseIdx   int
	turns      int
	state      State
	outcome    Outcome
	rank       string
	xp         int

	difficulty float64

	cancelEnemy func()
	cancelStage func()
}

// NewMissionEngine builds a mission from config and readies stage 1. The
// player acts first.
func NewMissionEngine(cfg MissionConfig) *MissionEngine {
	if cfg.Sink == nil {
		cfg.Sink = noopSink{}
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = NewScheduler()
	}
	if cfg.RNG == nil {
		cfg.RNG = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Items == nil {
		cfg.Items = game.NewItemCatalog(nil)
	}
	if cfg.DifficultyMultiplier <= 0 {
		cfg.DifficultyMultiplier = 1.0
	}
	if cfg.EnemyTurnDelay <= 0 {
		cfg.EnemyTurnDelay = constants.EnemyTurnDelay
	}
	if cfg.StageAdvanceDelay <= 0 {
		cfg.StageAdvanceDelay = constants.StageAdvanceDelay
	}
	e := &MissionEngine{
		cfg:        cfg,
		difficulty: cfg.DifficultyMultiplier,
		state:      StateAwaitingPlayer,
	}
	eff := cfg.Streamer.EffectiveStats()
	e.player = game.CombatantState{
		ID:          cfg.Streamer.ID,
		DisplayName: cfg.Streamer.Name,
		MaxHP:       cfg.Streamer.MaxHP,
		HP:          cfg.Streamer.MaxHP,
		Stats:       eff,
	}
	e.moves = game.NewMoveSet(cfg.Streamer.Moves)
	e.stage = 1
	e.spawnEnemyLocked()
	return e
}

func (e *MissionEngine) spawnEnemyLocked() {
	idx := e.stage - 1
	if idx >= len(e.cfg.Waves) {
		idx = len(e.cfg.Waves) - 1
	}
	e.enemyDef = e.cfg.Waves[idx]
	e.enemy = game.CombatantState{
		ID:          e.enemyDef.ID,
		DisplayName: e.enemyDef.Name,
		MaxHP:       e.enemyDef.MaxHP,
		HP:          e.enemyDef.MaxHP,
		Stats:       e.enemyDef.Stats,
	}
	e.enemyMoves = game.NewMoveSet(e.enemyDef.Moves)
	e.phaseIdx = 0
	e.cfg.Sink.BattleLog(e.enemyDef.Name + " enters the fight (stage " + strconv.Itoa(e.stage) + ")")
}

// SetDifficultyMultiplier adjusts the global difficulty (driven by external
// map events). Takes effect from the next enemy turn.
func (e *MissionEngine) SetDifficultyMultiplier(m float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if m > 0 {
		e.difficulty = m
	}
}

// ExecuteMove plays a named move for the player. Invalid attempts (not the
// player's turn, unknown move, no PP) are no-ops that only log a rejection.
func (e *MissionEngine) ExecuteMove(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateAwaitingPlayer {
		e.cfg.Sink.BattleLog("rejected: not your turn")
		return
	}
	move, ok := e.moves.Get(name)
	if !ok {
		e.cfg.Sink.BattleLog("rejected: unknown move " + name)
		return
	}
	if e.moves.Remaining(name) <= 0 {
		e.cfg.Sink.BattleLog("rejected: no PP left for " + name)
		return
	}
	e.moves.Spend(name)
	e.turns++

	if move.IsSupport() {
		e.applySupportLocked(move)
		e.endPlayerTurnLocked()
		return
	}

	res := ComputeDamage(move, e.player.Stats, e.enemy.Stats, e.atk.Factor(), e.cfg.RNG)
	e.enemy.ApplyDamage(res.Damage)
	e.charge += ChargeGain(res.Damage)
	if e.charge > 100 {
		e.charge = 100
	}
	e.logHitLocked(move.Name, res)
	e.checkBossPhasesLocked()
	if e.enemy.Defeated() {
		e.handleEnemyDownLocked()
		return
	}
	e.endPlayerTurnLocked()
}

// ExecuteUltimate fires the charged ultimate. Valid only at full charge;
// ultimates bypass PP and type effectiveness.
func (e *MissionEngine) ExecuteUltimate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateAwaitingPlayer {
		e.cfg.Sink.BattleLog("rejected: not your turn")
		return
	}
	if e.charge < 100 {
		e.cfg.Sink.BattleLog("rejected: ultimate not charged")
		return
	}
	e.charge = 0
	e.turns++
	dmg := ComputeUltimateDamage(e.cfg.Streamer.UltimatePower, e.cfg.RNG)
	e.enemy.ApplyDamage(dmg)
	e.cfg.Sink.BattleLog(e.cfg.Streamer.UltimateName + " hits for " + strconv.Itoa(dmg))
	e.checkBossPhasesLocked()
	if e.enemy.Defeated() {
		e.handleEnemyDownLocked()
		return
	}
	e.endPlayerTurnLocked()
}

// UseBattleItem consumes an item from the external inventory and applies its
// effect. Using an item always costs the player's action.
func (e *MissionEngine) UseBattleItem(itemID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateAwaitingPlayer {
		e.cfg.Sink.BattleLog("rejected: not your turn")
		return
	}
	item, ok := e.cfg.Items.Lookup(itemID)
	if !ok {
		e.cfg.Sink.BattleLog("rejected: unknown item " + itemID)
		return
	}
	if item.Effect.Kind == game.ItemEffectRevive {
		// Revives only matter once a streamer is down, and a downed streamer
		// ends the mission. Nothing to do mid-battle.
		e.cfg.Sink.BattleLog("rejected: " + item.Name + " cannot be used mid-battle")
		return
	}
	if e.cfg.Inventory == nil || !e.cfg.Inventory.Consume(itemID) {
		e.cfg.Sink.BattleLog("rejected: no " + item.Name + " left")
		return
	}
	e.turns++
	switch item.Effect.Kind {
	case game.ItemEffectHeal:
		e.player.Heal(item.Effect.Value)
		e.cfg.Sink.BattleLog(item.Name + " restores " + strconv.Itoa(item.Effect.Value) + " HP")
	case game.ItemEffectRestorePP:
		e.moves.RestoreAll(item.Effect.Value)
		e.cfg.Sink.BattleLog(item.Name + " restores PP")
	case game.ItemEffectBoostAttack:
		e.atk = game.BoostEffect{Multiplier: float64(item.Effect.Value) / 100.0, TurnsLeft: game.BoostTurns}
		e.cfg.Sink.BattleLog(item.Name + " raises attack")
	case game.ItemEffectBoostDefense:
		e.def = game.BoostEffect{Multiplier: float64(item.Effect.Value) / 100.0, TurnsLeft: game.BoostTurns}
		e.cfg.Sink.BattleLog(item.Name + " raises defense")
	}
	e.endPlayerTurnLocked()
}

func (e *MissionEngine) applySupportLocked(move game.Move) {
	switch move.Support.Kind {
	case game.SupportHeal:
		heal := move.Support.Value
		if heal <= 0 {
			heal = 30
		}
		e.player.Heal(heal)
		e.cfg.Sink.BattleLog(move.Name + " restores " + strconv.Itoa(heal) + " HP")
	default:
		e.cfg.Sink.BattleLog(move.Name + ": " + move.Description)
	}
}

func (e *MissionEngine) logHitLocked(moveName string, res DamageResult) {
	msg := moveName + " hits for " + strconv.Itoa(res.Damage)
	if res.IsCrit {
		msg += " (critical)"
	}
	if res.Effectiveness > 1.0 {
		msg += " (super effective)"
	} else if res.Effectiveness < 1.0 {
		msg += " (resisted)"
	}
	e.cfg.Sink.BattleLog(msg)
}

// checkBossPhasesLocked advances the phase index forward as HP thresholds
// are crossed. The index never regresses, even if the boss heals.
func (e *MissionEngine) checkBossPhasesLocked() {
	if !e.enemyDef.IsBoss {
		return
	}
	ratio := e.enemy.HPRatio()
	for e.phaseIdx < len(e.enemyDef.Phases) && ratio <= e.enemyDef.Phases[e.phaseIdx].Threshold {
		p := e.enemyDef.Phases[e.phaseIdx]
		e.cfg.Sink.PhaseBanner(p.Name, p.Message)
		e.phaseIdx++
	}
}

func (e *MissionEngine) handleEnemyDownLocked() {
	e.cfg.Sink.BattleLog(e.enemy.DisplayName + " is defeated")
	if e.enemyDef.IsBoss || e.stage >= len(e.cfg.Waves) {
		e.completeLocked(OutcomeSuccess)
		return
	}
	e.state = StateEnemyResolving
	e.stage++
	e.cancelStage = e.cfg.Scheduler.After(e.cfg.StageAdvanceDelay, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.state == StateComplete {
			return
		}
		e.spawnEnemyLocked()
		e.state = StateAwaitingPlayer
	})
}

func (e *MissionEngine) endPlayerTurnLocked() {
	e.state = StateEnemyResolving
	e.cancelEnemy = e.cfg.Scheduler.After(e.cfg.EnemyTurnDelay, func() {
		e.enemyTurn()
	})
}

func (e *MissionEngine) enemyTurn() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateEnemyResolving || e.enemy.Defeated() {
		return
	}
	dmg := e.enemyDamageLocked()
	if e.def.Active() {
		dmg = int(float64(dmg) / e.def.Factor())
	}
	e.player.ApplyDamage(dmg)
	e.cfg.Sink.BattleLog(e.enemy.DisplayName + " strikes back for " + strconv.Itoa(dmg))

	// Boost durations burn down at the end of every enemy turn.
	e.atk.Tick()
	e.def.Tick()

	if e.player.Defeated() {
		e.completeLocked(OutcomeFailure)
		return
	}
	e.state = StateAwaitingPlayer
}

// enemyDamageLocked produces the enemy's damage: bosses pick a random move
// from their kit, regular enemies use a generic attack. Both are scaled by
// threat level and the global difficulty multiplier.
func (e *MissionEngine) enemyDamageLocked() int {
	scale := (1.0 + 0.1*float64(e.cfg.ThreatLevel)) * e.difficulty
	if e.enemyDef.IsBoss && len(e.enemyDef.Moves) > 0 {
		pick := e.enemyDef.Moves[e.cfg.RNG.Intn(len(e.enemyDef.Moves))]
		res := ComputeDamage(pick, e.enemy.Stats, e.player.Stats, 1.0, e.cfg.RNG)
		return int(float64(res.Damage) * scale)
	}
	base := e.enemyDef.BaseAtk
	if base <= 0 {
		base = 10
	}
	jitter := jitterMin + e.cfg.RNG.Float64()*jitterSpan
	return int(float64(base) * scale * jitter)
}

func (e *MissionEngine) completeLocked(o Outcome) {
	e.state = StateComplete
	e.outcome = o
	if e.cancelEnemy != nil {
		e.cancelEnemy()
	}
	if e.cancelStage != nil {
		e.cancelStage()
	}
	if o == OutcomeSuccess {
		e.rank = RankForClear(e.player.HPRatio(), e.turns)
		e.xp = MissionXP(e.rank, e.enemyDef.IsBoss)
		e.cfg.Sink.BattleLog("mission complete, rank " + e.rank)
	} else {
		e.rank = game.RankF
		e.xp = MissionXP(game.RankF, false)
		e.cfg.Sink.BattleLog("mission failed")
	}
	if e.cfg.Recorder != nil {
		if err := e.cfg.Recorder.MarkMissionComplete(e.cfg.Streamer.ID, e.rank, e.xp); err != nil {
			e.cfg.Sink.BattleLog("failed to record mission result")
		}
	}
}

// Abandon tears down a mission that will not continue (the player started
// another one or disconnected). Pending timers are canceled and nothing is
// recorded.
func (e *MissionEngine) Abandon() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateComplete {
		return
	}
	e.state = StateComplete
	e.outcome = OutcomeFailure
	if e.cancelEnemy != nil {
		e.cancelEnemy()
	}
	if e.cancelStage != nil {
		e.cancelStage()
	}
}

// --- read-side accessors -------------------------------------------------

func (e *MissionEngine) State() State     { e.mu.Lock(); defer e.mu.Unlock(); return e.state }
func (e *MissionEngine) Outcome() Outcome { e.mu.Lock(); defer e.mu.Unlock(); return e.outcome }
func (e *MissionEngine) Rank() string     { e.mu.Lock(); defer e.mu.Unlock(); return e.rank }
func (e *MissionEngine) XP() int          { e.mu.Lock(); defer e.mu.Unlock(); return e.xp }
func (e *MissionEngine) Charge() int      { e.mu.Lock(); defer e.mu.Unlock(); return e.charge }
func (e *MissionEngine) Stage() int       { e.mu.Lock(); defer e.mu.Unlock(); return e.stage }
func (e *MissionEngine) Turns() int       { e.mu.Lock(); defer e.mu.Unlock(); return e.turns }
func (e *MissionEngine) PhaseIndex() int  { e.mu.Lock(); defer e.mu.Unlock(); return e.phaseIdx }

func (e *MissionEngine) PlayerHP() int { e.mu.Lock(); defer e.mu.Unlock(); return e.player.HP }
func (e *MissionEngine) EnemyHP() int  { e.mu.Lock(); defer e.mu.Unlock(); return e.enemy.HP }

func (e *MissionEngine) RemainingPP(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.moves.Remaining(name)
}
