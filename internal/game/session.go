package game

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const maxIdempotencyKeys = 1024

// Scanner turns an image of a brand logo into a creature descriptor.
type Scanner interface {
	Scan(ctx context.Context, req ScanRequest) (Descriptor, error)
}

type ScanRequest struct {
	UserID   string
	Filename string
	Image    io.Reader
}

// Valuer prices a creature that is being sold.
type Valuer interface {
	Value(ctx context.Context, creatureID string) (Valuation, error)
}

// Session binds one player's Store to its Scheduler and collaborators and
// exposes the player actions.
type Session struct {
	ID string

	store   *Store
	storm   *Scheduler
	scanner Scanner
	valuer  Valuer
	log     *slog.Logger
	now     func() time.Time

	idemMu   sync.Mutex
	seen     map[string]struct{}
	seenKeys []string
}

type SessionOption func(*sessionOptions)

type sessionOptions struct {
	scanner   Scanner
	valuer    Valuer
	now       func() time.Time
	schedOpts []SchedulerOption
}

func WithScanner(sc Scanner) SessionOption {
	return func(o *sessionOptions) { o.scanner = sc }
}

func WithValuer(v Valuer) SessionOption {
	return func(o *sessionOptions) { o.valuer = v }
}

func WithClock(now func() time.Time) SessionOption {
	return func(o *sessionOptions) { o.now = now }
}

func WithSchedulerOptions(opts ...SchedulerOption) SessionOption {
	return func(o *sessionOptions) { o.schedOpts = append(o.schedOpts, opts...) }
}

func NewSession(id string, initial State, cfg StormConfig, logger *slog.Logger, opts ...SessionOption) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	o := sessionOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	logger = logger.With("session_id", id)
	store := NewStore(initial, logger)
	return &Session{
		ID:      id,
		store:   store,
		storm:   NewScheduler(store, cfg, logger, o.schedOpts...),
		scanner: o.scanner,
		valuer:  o.valuer,
		log:     logger,
		now:     o.now,
		seen:    make(map[string]struct{}),
	}
}

func (s *Session) Store() *Store {
	return s.store
}

func (s *Session) Scheduler() *Scheduler {
	return s.storm
}

func (s *Session) View() View {
	v := s.store.View()
	v.SessionID = s.ID
	return v
}

// Run drives the session's timers until ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	return s.storm.Run(ctx)
}

// Heal spends one potion to restore 50 health, capped at 100.
func (s *Session) Heal(id string) (Creature, error) {
	var out Creature
	err := s.store.locked(func() error {
		st := &s.store.state
		if st.Inventory.Potions <= 0 {
			return ErrNoPotions
		}
		i := st.index(id)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrCreatureNotFound, id)
		}
		st.Inventory.Potions--
		health := min(MaxHealth, st.Creatures[i].Health+HealAmount)
		mood := MoodHappy
		s.store.updateLocked(id, CreaturePatch{Health: &health, Mood: &mood})
		out = st.Creatures[i]
		return nil
	})
	if err != nil {
		return Creature{}, err
	}
	s.log.Info("creature healed", "creature_id", id, "health", out.Health)
	return out, nil
}

// Feed spends one snack to raise a creature one level.
func (s *Session) Feed(id string) (Creature, error) {
	var out Creature
	err := s.store.locked(func() error {
		st := &s.store.state
		if st.Inventory.Snacks <= 0 {
			return ErrNoSnacks
		}
		i := st.index(id)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrCreatureNotFound, id)
		}
		st.Inventory.Snacks--
		level := st.Creatures[i].Level + 1
		mood := MoodHappy
		s.store.updateLocked(id, CreaturePatch{Level: &level, Mood: &mood})
		out = st.Creatures[i]
		return nil
	})
	if err != nil {
		return Creature{}, err
	}
	s.log.Info("creature fed", "creature_id", id, "level", out.Level)
	return out, nil
}

// Purchase buys one catalog item. Nothing changes unless the wallet covers it.
func (s *Session) Purchase(kind string) (Inventory, error) {
	item, ok := LookupItem(kind)
	if !ok {
		return Inventory{}, fmt.Errorf("%w: %q", ErrUnknownItem, kind)
	}
	var inv Inventory
	err := s.store.locked(func() error {
		if err := s.store.spendLocked(item.Cost); err != nil {
			return err
		}
		s.store.state.Inventory.Potions += item.Potions
		s.store.state.Inventory.Snacks += item.Snacks
		inv = s.store.state.Inventory
		return nil
	})
	if err != nil {
		return Inventory{}, err
	}
	s.log.Info("store purchase", "item", item.Kind, "cost", item.Cost)
	return inv, nil
}

// Scan asks the scanner for a descriptor and adds the resulting creature.
// A failed scan changes nothing and may simply be retried.
func (s *Session) Scan(ctx context.Context, req ScanRequest) (Creature, error) {
	if s.scanner == nil {
		return Creature{}, fmt.Errorf("%w: no scanner configured", ErrScanFailed)
	}
	if req.UserID == "" {
		req.UserID = s.ID
	}
	d, err := s.scanner.Scan(ctx, req)
	if err != nil {
		s.log.Warn("scan failed", "err", err)
		return Creature{}, fmt.Errorf("%w: %w", ErrScanFailed, err)
	}
	return s.ScanComplete(d)
}

// ScanComplete turns a descriptor into a fresh, full-health creature.
func (s *Session) ScanComplete(d Descriptor) (Creature, error) {
	archetype := d.Archetype
	if !archetype.Valid() {
		s.log.Warn("scan descriptor archetype unknown", "archetype", d.Archetype)
		archetype = TrendChaser
	}
	info := archetype.Info()
	c := Creature{
		ID:         strings.TrimSpace(d.ID),
		Name:       strings.TrimSpace(d.Name),
		Brand:      strings.TrimSpace(d.Brand),
		Ticker:     strings.TrimSpace(d.Ticker),
		Sector:     strings.TrimSpace(d.Sector),
		Archetype:  archetype,
		Level:      max(1, d.Level),
		Health:     MaxHealth,
		Mood:       MoodHappy,
		Color:      info.Color,
		Icon:       info.Emoji,
		AcquiredAt: s.now().UTC(),
	}
	if c.Name == "" {
		c.Name = c.Brand
	}
	err := s.store.locked(func() error {
		if c.ID == "" || s.store.state.index(c.ID) >= 0 {
			c.ID = uuid.NewString()
		}
		return s.store.addLocked(c)
	})
	if err != nil {
		return Creature{}, err
	}
	s.log.Info("creature collected", "creature_id", c.ID, "brand", c.Brand, "archetype", c.Archetype)
	return c, nil
}

// Sell prices a creature through the valuer, then credits floor(value*10)
// coins and releases it. Bad valuations leave the state untouched.
func (s *Session) Sell(ctx context.Context, id string) (SellResult, error) {
	if _, ok := s.store.Creature(id); !ok {
		return SellResult{}, fmt.Errorf("%w: %s", ErrCreatureNotFound, id)
	}
	if s.valuer == nil {
		return SellResult{}, fmt.Errorf("%w: no valuer configured", ErrInvalidValuation)
	}
	v, err := s.valuer.Value(ctx, id)
	if err != nil {
		s.log.Error("sell valuation failed", "creature_id", id, "err", err)
		return SellResult{}, fmt.Errorf("%w: %w", ErrInvalidValuation, err)
	}
	if !v.Success {
		s.log.Error("sell valuation unsuccessful", "creature_id", id)
		return SellResult{}, fmt.Errorf("%w: backend reported failure", ErrInvalidValuation)
	}
	credit, err := SellCredit(v.Value)
	if err != nil {
		s.log.Error("sell valuation not finite", "creature_id", id, "value", v.Value)
		return SellResult{}, err
	}

	out := SellResult{CreatureID: id, Credited: credit, Warning: v.Warning}
	err = s.store.locked(func() error {
		if s.store.state.index(id) < 0 {
			return fmt.Errorf("%w: %s", ErrCreatureNotFound, id)
		}
		s.store.addCoinsLocked(float64(credit))
		s.store.removeLocked(id)
		out.Coins = s.store.state.Coins
		return nil
	})
	if err != nil {
		return SellResult{}, err
	}
	s.log.Info("creature sold", "creature_id", id, "credited", credit)
	return out, nil
}

// Once runs fn at most once per non-empty key. A failed fn releases the
// key so the caller can retry.
func (s *Session) Once(key string, fn func() error) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fn()
	}
	s.idemMu.Lock()
	if _, ok := s.seen[key]; ok {
		s.idemMu.Unlock()
		return ErrDuplicateIdempotency
	}
	s.seen[key] = struct{}{}
	s.seenKeys = append(s.seenKeys, key)
	if len(s.seenKeys) > maxIdempotencyKeys {
		delete(s.seen, s.seenKeys[0])
		s.seenKeys = s.seenKeys[1:]
	}
	s.idemMu.Unlock()

	if err := fn(); err != nil {
		s.idemMu.Lock()
		delete(s.seen, key)
		s.idemMu.Unlock()
		return err
	}
	return nil
}
