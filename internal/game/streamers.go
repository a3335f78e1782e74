package game

// StreamerDef is a secured streamer's static definition: base stats, the
// permanently assigned nature and its move kit. Loaded from config.
type StreamerDef struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	MaxHP         int    `json:"max_hp"`
	Stats         Stats  `json:"stats"`
	Nature        Nature `json:"nature"`
	Moves         []Move `json:"moves"`
	UltimateName  string `json:"ultimate_name"`
	UltimatePower int    `json:"ultimate_power"`
}

// EffectiveStats returns the streamer's battle stats with its nature applied.
func (s StreamerDef) EffectiveStats() Stats { return ApplyNature(s.Stats, s.Nature) }

// EnemyDef is a scripted mission enemy. Non-boss enemies use a generic
// scaled attack; bosses carry their own move list and phase script.
type EnemyDef struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	MaxHP   int         `json:"max_hp"`
	Stats   Stats       `json:"stats"`
	Moves   []Move      `json:"moves"`
	IsBoss  bool        `json:"is_boss"`
	Phases  []BossPhase `json:"phases"`
	BaseAtk int         `json:"base_attack"`
}
