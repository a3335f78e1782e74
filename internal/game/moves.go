package game

// SupportKind classifies what a zero-power move does when used. Support
// effects are an explicit tagged field on the move definition; the engine
// never inspects move names to decide behavior.
type SupportKind string

const (
	SupportNone   SupportKind = ""
	SupportHeal   SupportKind = "heal"
	SupportFlavor SupportKind = "flavor"
)

// SupportEffect describes the effect of a support move (Power == 0).
type SupportEffect struct {
	Kind  SupportKind `json:"kind"`
	Value int         `json:"value"`
}

// Move is an immutable move definition. Remaining uses are tracked
// separately in a MoveSet so definitions can be shared between battles.
type Move struct {
	Name        string        `json:"name"`
	Type        MoveType      `json:"type"`
	Power       int           `json:"power"`
	PP          int           `json:"pp"`
	Description string        `json:"description"`
	Support     SupportEffect `json:"support"`
}

// IsSupport reports whether the move deals no direct damage.
func (m Move) IsSupport() bool { return m.Power == 0 }

// MoveSet tracks remaining PP per move for one battle. It is reset only at
// battle (re)start.
type MoveSet struct {
	moves map[string]Move
	pp    map[string]int
}

// NewMoveSet builds a fresh PP ledger with every move at full PP.
func NewMoveSet(moves []Move) *MoveSet {
	ms := &MoveSet{moves: make(map[string]Move, len(moves)), pp: make(map[string]int, len(moves))}
	for _, m := range moves {
		ms.moves[m.Name] = m
		ms.pp[m.Name] = m.PP
	}
	return ms
}

// Get returns the move definition by name.
func (ms *MoveSet) Get(name string) (Move, bool) {
	m, ok := ms.moves[name]
	return m, ok
}

// Remaining returns the PP left for a move (0 for unknown moves).
func (ms *MoveSet) Remaining(name string) int { return ms.pp[name] }

// Spend consumes one PP for the named move. It returns false, without any
// state change, when the move is unknown or depleted.
func (ms *MoveSet) Spend(name string) bool {
	if _, ok := ms.moves[name]; !ok {
		return false
	}
	if ms.pp[name] <= 0 {
		return false
	}
	ms.pp[name]--
	return true
}

// RestoreAll adds up to amount PP to every move, capped at each move's max.
func (ms *MoveSet) RestoreAll(amount int) {
	for name, m := range ms.moves {
		v := ms.pp[name] + amount
		if v > m.PP {
			v = m.PP
		}
		ms.pp[name] = v
	}
}
