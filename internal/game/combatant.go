package game

// CombatantState is the in-memory battle state for one combatant (player
// streamer, scripted enemy or PvP opponent mirror). HP is always clamped to
// [0, MaxHP]; HP == 0 marks the combatant defeated and terminal for that
// battle.
type CombatantState struct {
	ID          string
	DisplayName string
	MaxHP       int
	HP          int
	Stats       Stats
}

// ApplyDamage reduces HP by dmg, floored at 0, and returns the new HP.
func (c *CombatantState) ApplyDamage(dmg int) int {
	if dmg < 0 {
		dmg = 0
	}
	c.HP -= dmg
	if c.HP < 0 {
		c.HP = 0
	}
	return c.HP
}

// Heal raises HP by amount, capped at MaxHP, and returns the new HP.
func (c *CombatantState) Heal(amount int) int {
	if amount < 0 {
		amount = 0
	}
	c.HP += amount
	if c.HP > c.MaxHP {
		c.HP = c.MaxHP
	}
	return c.HP
}

// Defeated reports whether the combatant is out of the battle.
func (c *CombatantState) Defeated() bool { return c.HP <= 0 }

// HPRatio returns current HP as a fraction of max (0 when MaxHP is 0).
func (c *CombatantState) HPRatio() float64 {
	if c.MaxHP <= 0 {
		return 0
	}
	return float64(c.HP) / float64(c.MaxHP)
}

// BossPhase is one entry of a boss's ordered phase list. Phases trigger as
// the boss's HP ratio first crosses Threshold and never regress.
type BossPhase struct {
	Threshold float64 `json:"threshold"`
	Name      string  `json:"name"`
	Message   string  `json:"message"`
}

// BoostEffect is a temporary attack or defense modifier. TurnsLeft is
// decremented by one at the end of every enemy turn; a zero TurnsLeft means
// the multiplier is ignored.
type BoostEffect struct {
	Multiplier float64
	TurnsLeft  int
}

// Active reports whether the boost currently applies.
func (b BoostEffect) Active() bool { return b.TurnsLeft > 0 && b.Multiplier > 0 }

// Factor returns the multiplier to apply to damage (1.0 when inactive).
func (b BoostEffect) Factor() float64 {
	if !b.Active() {
		return 1.0
	}
	return b.Multiplier
}

// Tick decrements the remaining duration by one, stopping at zero.
func (b *BoostEffect) Tick() {
	if b.TurnsLeft > 0 {
		b.TurnsLeft--
	}
}
