package game

// MoveType is one of the five attack archetypes. Types form a directed
// 5-cycle where each type is super-effective against the next and resisted
// by the previous one.
type MoveType string

const (
	TypeChaos     MoveType = "CHAOS"
	TypeIntel     MoveType = "INTEL"
	TypeDisrupt   MoveType = "DISRUPT"
	TypeCharisma  MoveType = "CHARISMA"
	TypeRebellion MoveType = "REBELLION"
)

// cycle order: CHAOS -> INTEL -> DISRUPT -> CHARISMA -> REBELLION -> CHAOS
var typeCycle = []MoveType{TypeChaos, TypeIntel, TypeDisrupt, TypeCharisma, TypeRebellion}

const (
	EffectivenessResisted = 0.5
	EffectivenessNeutral  = 1.0
	EffectivenessSuper    = 1.5
)

// NextInCycle returns the type the given type is super-effective against.
func NextInCycle(t MoveType) MoveType {
	for i, c := range typeCycle {
		if c == t {
			return typeCycle[(i+1)%len(typeCycle)]
		}
	}
	return TypeChaos
}

// PrevInCycle returns the type that resists the given type.
func PrevInCycle(t MoveType) MoveType {
	for i, c := range typeCycle {
		if c == t {
			return typeCycle[(i+len(typeCycle)-1)%len(typeCycle)]
		}
	}
	return TypeChaos
}

// Effectiveness returns the damage multiplier for an attack of type attack
// against a defender of type defender: 1.5 when super-effective, 0.5 when
// resisted, 1.0 otherwise.
func Effectiveness(attack, defender MoveType) float64 {
	if NextInCycle(attack) == defender {
		return EffectivenessSuper
	}
	if PrevInCycle(attack) == defender {
		return EffectivenessResisted
	}
	return EffectivenessNeutral
}

// DefenderType derives a combatant's defensive type from its highest stat.
// Ties break in fixed check order (influence, chaos, charisma, rebellion);
// an all-zero stat line defaults to CHAOS.
func DefenderType(s Stats) MoveType {
	best := TypeChaos
	bestVal := 0
	check := func(v int, t MoveType) {
		if v > bestVal {
			bestVal = v
			best = t
		}
	}
	check(s.Influence, TypeIntel)
	check(s.Chaos, TypeChaos)
	check(s.Charisma, TypeCharisma)
	check(s.Rebellion, TypeRebellion)
	return best
}

// StatForType returns the attacker stat that scales moves of the given type.
// DISRUPT moves scale with chaos, the remaining types map to their namesake
// stat.
func StatForType(s Stats, t MoveType) int {
	switch t {
	case TypeIntel:
		return s.Influence
	case TypeCharisma:
		return s.Charisma
	case TypeRebellion:
		return s.Rebellion
	case TypeChaos, TypeDisrupt:
		return s.Chaos
	default:
		return s.Chaos
	}
}
