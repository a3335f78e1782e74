package game

// ItemEffectKind classifies what a battle item does when consumed.
type ItemEffectKind string

const (
	ItemEffectHeal         ItemEffectKind = "heal"
	ItemEffectRestorePP    ItemEffectKind = "restorePP"
	ItemEffectBoostAttack  ItemEffectKind = "boostAttack"
	ItemEffectBoostDefense ItemEffectKind = "boostDefense"
	ItemEffectRevive       ItemEffectKind = "revive"
)

// ItemEffect carries the effect kind plus its magnitude: HP for heal and
// revive, PP for restorePP, a multiplier in percent for the two boosts
// (150 means x1.5).
type ItemEffect struct {
	Kind  ItemEffectKind `json:"kind"`
	Value int            `json:"value"`
}

// Item is a static black-market item definition.
type Item struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Effect      ItemEffect `json:"effect"`
}

// BoostTurns is how many enemy turns an attack/defense boost lasts.
const BoostTurns = 3

// defaultItems is the built-in black-market catalog. The config file may
// override or extend it.
var defaultItems = []Item{
	{ID: "energy_drink", Name: "Energy Drink", Description: "Restores 30 HP.", Effect: ItemEffect{Kind: ItemEffectHeal, Value: 30}},
	{ID: "med_kit", Name: "Med Kit", Description: "Restores 60 HP.", Effect: ItemEffect{Kind: ItemEffectHeal, Value: 60}},
	{ID: "signal_repeater", Name: "Signal Repeater", Description: "Restores 5 PP to every move.", Effect: ItemEffect{Kind: ItemEffectRestorePP, Value: 5}},
	{ID: "overclock_chip", Name: "Overclock Chip", Description: "Boosts attack x1.5 for 3 turns.", Effect: ItemEffect{Kind: ItemEffectBoostAttack, Value: 150}},
	{ID: "firewall_module", Name: "Firewall Module", Description: "Boosts defense x1.5 for 3 turns.", Effect: ItemEffect{Kind: ItemEffectBoostDefense, Value: 150}},
	{ID: "defib_unit", Name: "Defib Unit", Description: "Revives a downed streamer at 50 HP.", Effect: ItemEffect{Kind: ItemEffectRevive, Value: 50}},
}

// ItemCatalog is a read-only lookup of item definitions.
type ItemCatalog struct {
	byID  map[string]Item
	order []string
}

// NewItemCatalog builds a catalog from the given definitions; passing nil
// yields the built-in default catalog.
func NewItemCatalog(items []Item) *ItemCatalog {
	if items == nil {
		items = defaultItems
	}
	c := &ItemCatalog{byID: make(map[string]Item, len(items)), order: make([]string, 0, len(items))}
	for _, it := range items {
		if _, dup := c.byID[it.ID]; dup {
			continue
		}
		c.byID[it.ID] = it
		c.order = append(c.order, it.ID)
	}
	return c
}

// Lookup returns the item definition for an ID.
func (c *ItemCatalog) Lookup(id string) (Item, bool) {
	it, ok := c.byID[id]
	return it, ok
}

// All returns the catalog in definition order.
func (c *ItemCatalog) All() []Item {
	out := make([]Item, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}
