package engine

import (
	"math"
	"math/rand"

	"github.com/1804crypto/protect-the-streams-sub000/internal/game"
)

// RNG is the randomness source used by damage calculations. *math/rand.Rand
// satisfies it; tests pin it to fixed values.
type RNG interface {
	Float64() float64
	Intn(n int) int
}

// globalRNG delegates to the package-level math/rand source, which is safe
// for concurrent callers.
type globalRNG struct{}

func (globalRNG) Float64() float64 { return rand.Float64() }
func (globalRNG) Intn(n int) int   { return rand.Intn(n) }

// DefaultRNG returns a concurrency-safe randomness source.
func DefaultRNG() RNG { return globalRNG{} }

const (
	jitterMin      = 0.8
	jitterSpan     = 0.4
	critChance     = 0.10
	critMultiplier = 1.5
	ultimateMin    = 1.5
	ultimateSpan   = 1.0
)

// DamageResult is the outcome of one damaging move.
type DamageResult struct {
	Damage        int     `json:"damage"`
	Effectiveness float64 `json:"effectiveness"`
	IsCrit        bool    `json:"is_crit"`
}

// ComputeDamage is the single damage formula shared by the solo mission
// engine, the PvP bot fallback and the authoritative PvP validator:
//
//	floor(power × stat/100 × jitter[0.8,1.2] × effectiveness × boost × crit)
//
// where crit is 1.5 with 10% probability. The attack boost factor is 1.0
// when no boost is active.
func ComputeDamage(move game.Move, attacker game.Stats, defender game.Stats, boostFactor float64, rng RNG) DamageResult {
	eff := game.Effectiveness(move.Type, game.DefenderType(defender))
	stat := game.StatForType(attacker, move.Type)
	jitter := jitterMin + rng.Float64()*jitterSpan
	crit := rng.Float64() < critChance
	critFactor := 1.0
	if crit {
		critFactor = critMultiplier
	}
	if boostFactor <= 0 {
		boostFactor = 1.0
	}
	raw := float64(move.Power) * (float64(stat) / 100.0) * jitter * eff * boostFactor * critFactor
	return DamageResult{
		Damage:        int(math.Floor(raw)),
		Effectiveness: eff,
		IsCrit:        crit,
	}
}

// ComputeUltimateDamage resolves an ultimate ability. Ultimates ignore PP,
// type effectiveness, boosts and crits:
//
//	floor(ultimatePower × random[1.5,2.5])
func ComputeUltimateDamage(ultimatePower int, rng RNG) int {
	return int(math.Floor(float64(ultimatePower) * (ultimateMin + rng.Float64()*ultimateSpan)))
}

// ChargeGain converts damage dealt into ultimate charge (one point per five
// damage).
func ChargeGain(damage int) int { return damage / 5 }
