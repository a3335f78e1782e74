package service

import "sync"

// MemoryInventory is an in-process implementation of the externally owned
// item store. The shop that fills it is out of scope; battles only ever
// count and consume.
type MemoryInventory struct {
	mu      sync.Mutex
	starter map[string]int
	counts  map[string]map[string]int
}

// NewMemoryInventory creates a store that grants each new player the given
// starter counts.
func NewMemoryInventory(starter map[string]int) *MemoryInventory {
	return &MemoryInventory{starter: starter, counts: make(map[string]map[string]int)}
}

func (s *MemoryInventory) playerLocked(playerID string) map[string]int {
	inv, ok := s.counts[playerID]
	if !ok {
		inv = make(map[string]int, len(s.starter))
		for id, n := range s.starter {
			inv[id] = n
		}
		s.counts[playerID] = inv
	}
	return inv
}

// Count returns how many of an item the player holds.
func (s *MemoryInventory) Count(playerID, itemID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerLocked(playerID)[itemID]
}

// Consume removes one of the item; false when none are left.
func (s *MemoryInventory) Consume(playerID, itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv := s.playerLocked(playerID)
	if inv[itemID] <= 0 {
		return false
	}
	inv[itemID]--
	return true
}

// Add grants qty of an item to the player.
func (s *MemoryInventory) Add(playerID, itemID string, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if qty <= 0 {
		return
	}
	s.playerLocked(playerID)[itemID] += qty
}

// boundInventory adapts the shared store to the engine's per-player
// Inventory collaborator.
type boundInventory struct {
	store    *MemoryInventory
	playerID string
}

func (b boundInventory) Count(itemID string) int    { return b.store.Count(b.playerID, itemID) }
func (b boundInventory) Consume(itemID string) bool { return b.store.Consume(b.playerID, itemID) }
func (b boundInventory) Add(itemID string, qty int) { b.store.Add(b.playerID, itemID, qty) }

// For binds the store to one player.
func (s *MemoryInventory) For(playerID string) boundInventory {
	return boundInventory{store: s, playerID: playerID}
}
