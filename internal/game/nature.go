package game

// Nature is a permanent stat-modifier archetype assigned once when a
// streamer is secured. It is never reassigned afterwards.
type Nature string

const (
	NatureHyped     Nature = "HYPED"
	NatureChill     Nature = "CHILL"
	NatureToxic     Nature = "TOXIC"
	NatureWholesome Nature = "WHOLESOME"
	NatureSnarky    Nature = "SNARKY"
	NatureCracked   Nature = "CRACKED"
	NatureSweaty    Nature = "SWEATY"
	NatureCasual    Nature = "CASUAL"
	NatureEdgy      Nature = "EDGY"
	NatureBased     Nature = "BASED"
)

// AllNatures lists the ten assignable natures.
var AllNatures = []Nature{
	NatureHyped, NatureChill, NatureToxic, NatureWholesome, NatureSnarky,
	NatureCracked, NatureSweaty, NatureCasual, NatureEdgy, NatureBased,
}

type natureMod struct {
	boost []statAxis
	nerf  []statAxis
}

type statAxis int

const (
	axisInfluence statAxis = iota
	axisChaos
	axisCharisma
	axisRebellion
)

var natureMods = map[Nature]natureMod{
	NatureHyped:     {boost: []statAxis{axisChaos}, nerf: []statAxis{axisInfluence}},
	NatureChill:     {boost: []statAxis{axisInfluence}, nerf: []statAxis{axisChaos}},
	NatureToxic:     {boost: []statAxis{axisChaos, axisRebellion}, nerf: []statAxis{axisCharisma}},
	NatureWholesome: {boost: []statAxis{axisCharisma}, nerf: []statAxis{axisRebellion}},
	NatureSnarky:    {boost: []statAxis{axisCharisma}, nerf: []statAxis{axisInfluence}},
	NatureCracked:   {boost: []statAxis{axisChaos}, nerf: []statAxis{axisCharisma}},
	NatureSweaty:    {boost: []statAxis{axisInfluence}, nerf: []statAxis{axisRebellion}},
	NatureCasual:    {boost: []statAxis{axisRebellion}, nerf: []statAxis{axisChaos}},
	NatureEdgy:      {boost: []statAxis{axisRebellion}, nerf: []statAxis{axisInfluence}},
	NatureBased:     {boost: []statAxis{axisInfluence, axisCharisma}, nerf: []statAxis{axisChaos}},
}

const (
	natureBoostFactor = 1.10
	natureNerfFactor  = 0.90
)

// ApplyNature derives effective battle stats from base stats. Boosted axes
// gain 10%, nerfed axes lose 10%; the result is clamped to [0,100]. Applied
// exactly once, at battle setup.
func ApplyNature(base Stats, n Nature) Stats {
	mod, ok := natureMods[n]
	if !ok {
		return base.Clamp()
	}
	vals := [4]int{base.Influence, base.Chaos, base.Charisma, base.Rebellion}
	for _, a := range mod.boost {
		vals[a] = int(float64(vals[a]) * natureBoostFactor)
	}
	for _, a := range mod.nerf {
		vals[a] = int(float64(vals[a]) * natureNerfFactor)
	}
	out := Stats{Influence: vals[axisInfluence], Chaos: vals[axisChaos], Charisma: vals[axisCharisma], Rebellion: vals[axisRebellion]}
	return out.Clamp()
}
