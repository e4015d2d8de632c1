package game

import (
	"fmt"
	"log/slog"
	"sync"
)

// Store is the authoritative container for one player's session state.
// All methods are safe for concurrent use and each one is atomic.
type Store struct {
	mu    sync.Mutex
	log   *slog.Logger
	state State
}

func NewStore(initial State, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{log: logger, state: initial.clone()}
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

func (s *Store) Creature(id string) (Creature, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.state.index(id)
	if i < 0 {
		return Creature{}, false
	}
	return s.state.Creatures[i], true
}

func (s *Store) AddCreature(c Creature) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(c)
}

func (s *Store) addLocked(c Creature) error {
	if c.ID == "" {
		s.log.Error("add creature contract violation", "err", ErrInvalidCreature, "name", c.Name)
		return ErrInvalidCreature
	}
	if s.state.index(c.ID) >= 0 {
		s.log.Error("add creature contract violation", "err", ErrDuplicateCreature, "creature_id", c.ID)
		return fmt.Errorf("%w: %s", ErrDuplicateCreature, c.ID)
	}
	c.Health = clampHealth(c.Health)
	if c.Level < 1 {
		c.Level = 1
	}
	s.state.Creatures = append([]Creature{c}, s.state.Creatures...)
	return nil
}

// RemoveCreature reports whether a creature was removed. Unknown ids are a no-op.
func (s *Store) RemoveCreature(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(id)
}

func (s *Store) removeLocked(id string) bool {
	i := s.state.index(id)
	if i < 0 {
		return false
	}
	s.state.Creatures = append(s.state.Creatures[:i:i], s.state.Creatures[i+1:]...)
	return true
}

// UpdateCreature merges p into the creature with the given id. Health is
// clamped to [0,100] and level to at least 1.
func (s *Store) UpdateCreature(id string, p CreaturePatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(id, p)
}

func (s *Store) updateLocked(id string, p CreaturePatch) bool {
	i := s.state.index(id)
	if i < 0 {
		return false
	}
	c := &s.state.Creatures[i]
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Brand != nil {
		c.Brand = *p.Brand
	}
	if p.Sector != nil {
		c.Sector = *p.Sector
	}
	if p.Level != nil {
		c.Level = max(1, *p.Level)
	}
	if p.Health != nil {
		c.Health = clampHealth(*p.Health)
	}
	if p.Mood != nil {
		c.Mood = *p.Mood
	}
	if p.AffectedByStorm != nil {
		c.AffectedByStorm = *p.AffectedByStorm
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	if p.Icon != nil {
		c.Icon = *p.Icon
	}
	return true
}

func (s *Store) Coins() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Coins
}

// SetCoins sets the wallet to max(0, v). Non-finite input counts as 0.
func (s *Store) SetCoins(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Coins = sanitizeCoins(v)
}

// AddCoins adds amount to the wallet, flooring the result at 0.
// A non-finite amount adds nothing.
func (s *Store) AddCoins(amount float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addCoinsLocked(amount)
}

func (s *Store) addCoinsLocked(amount float64) {
	s.state.Coins = sanitizeCoins(float64(s.state.Coins) + finiteOrZero(amount))
}

// Spend deducts cost only when the wallet covers it.
func (s *Store) Spend(cost int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spendLocked(cost)
}

func (s *Store) spendLocked(cost int64) error {
	if cost < 0 {
		return fmt.Errorf("negative cost %d", cost)
	}
	if s.state.Coins < cost {
		return ErrInsufficientFunds
	}
	s.state.Coins -= cost
	return nil
}

func (s *Store) Inventory() Inventory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Inventory
}

// UpdateInventory shallow-merges p. Callers guard decrements.
func (s *Store) UpdateInventory(p InventoryPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Potions != nil {
		s.state.Inventory.Potions = *p.Potions
	}
	if p.Snacks != nil {
		s.state.Inventory.Snacks = *p.Snacks
	}
}

func (s *Store) StormActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.StormActive
}

// SetStormActive only flips the flag; creature effects belong to the scheduler.
func (s *Store) SetStormActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.StormActive = active
}

// ApplyStormDamage hits every storm-vulnerable creature once and returns
// the ids it touched. It is not idempotent; the scheduler calls it once
// per storm.
func (s *Store) ApplyStormDamage() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.damageLocked()
}

// ClearStormEffects resets every creature, touched by the storm or not.
func (s *Store) ClearStormEffects() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearEffectsLocked()
}

// StartStorm raises the storm flag and damages vulnerable creatures in one
// critical section, so no reader sees the flag without the damage.
func (s *Store) StartStorm() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.StormActive = true
	return s.damageLocked()
}

// EndStorm lowers the flag and calms every creature atomically.
func (s *Store) EndStorm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.StormActive = false
	s.clearEffectsLocked()
}

func (s *Store) damageLocked() []string {
	var hit []string
	for i := range s.state.Creatures {
		c := &s.state.Creatures[i]
		if !c.Archetype.StormVulnerable() {
			continue
		}
		c.AffectedByStorm = true
		c.Mood = MoodNervous
		c.Health = max(MinStormHealth, c.Health-StormDamage)
		hit = append(hit, c.ID)
	}
	return hit
}

func (s *Store) clearEffectsLocked() {
	for i := range s.state.Creatures {
		s.state.Creatures[i].AffectedByStorm = false
		s.state.Creatures[i].Mood = MoodHappy
	}
}

func (s *Store) View() View {
	return NewView(s.State())
}

// locked runs fn with the lock held so multi-step actions stay atomic.
// fn may use the *Locked helpers and s.state directly.
func (s *Store) locked(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func (st *State) index(id string) int {
	for i := range st.Creatures {
		if st.Creatures[i].ID == id {
			return i
		}
	}
	return -1
}
