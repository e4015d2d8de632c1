package game

import (
	"context"
	"log/slog"
	mathrand "math/rand"
	"sync"
	"time"
)

type Phase string

const (
	PhaseCalm     Phase = "calm"
	PhaseStorming Phase = "storming"
)

type EventKind string

const (
	EventStormStarted EventKind = "storm_started"
	EventStormCleared EventKind = "storm_cleared"
	EventPayday       EventKind = "payday"
)

type Event struct {
	Kind     EventKind `json:"kind"`
	At       time.Time `json:"at"`
	Affected []string  `json:"affected,omitempty"`
	Coins    int64     `json:"coins"`
}

type StormConfig struct {
	PollEvery    time.Duration
	Threshold    float64
	Dwell        time.Duration
	IncomeEvery  time.Duration
	IncomeAmount int64
}

func DefaultStormConfig() StormConfig {
	return StormConfig{
		PollEvery:    DefaultPollEvery,
		Threshold:    DefaultStormThreshold,
		Dwell:        DefaultStormDwell,
		IncomeEvery:  DefaultIncomeEvery,
		IncomeAmount: DefaultIncomeAmount,
	}
}

func (c StormConfig) normalized() StormConfig {
	def := DefaultStormConfig()
	if c.PollEvery <= 0 {
		c.PollEvery = def.PollEvery
	}
	if c.Dwell <= 0 {
		c.Dwell = def.Dwell
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		c.Threshold = def.Threshold
	}
	return c
}

// Scheduler drives the Calm/Storming state machine and passive income for
// one Store. Poll, Clear and Payday are the transitions; Run wires them to
// timers.
type Scheduler struct {
	store *Store
	log   *slog.Logger
	cfg   StormConfig

	mu      sync.Mutex
	rand    func() float64
	phase   Phase
	endsAt  time.Time
	onEvent func(Event)
}

type SchedulerOption func(*Scheduler)

// WithRand replaces the uniform [0,1) source used for storm draws.
func WithRand(fn func() float64) SchedulerOption {
	return func(s *Scheduler) {
		if fn != nil {
			s.rand = fn
		}
	}
}

func WithObserver(fn func(Event)) SchedulerOption {
	return func(s *Scheduler) {
		s.onEvent = fn
	}
}

func NewScheduler(store *Store, cfg StormConfig, logger *slog.Logger, opts ...SchedulerOption) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	rng := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	s := &Scheduler{
		store: store,
		log:   logger,
		cfg:   cfg.normalized(),
		phase: PhaseCalm,
	}
	s.rand = rng.Float64
	for _, opt := range opts {
		opt(s)
	}
	if store.StormActive() {
		// Restored mid-storm: the dwell restarts when Run begins.
		s.phase = PhaseStorming
	}
	return s
}

func (s *Scheduler) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// StormEndsAt returns when the current storm clears, if one is running
// with a known deadline.
func (s *Scheduler) StormEndsAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseStorming || s.endsAt.IsZero() {
		return time.Time{}, false
	}
	return s.endsAt, true
}

// Poll is the periodic storm check. It never draws while a storm is
// running, so damage cannot stack.
func (s *Scheduler) Poll(now time.Time) bool {
	s.mu.Lock()
	if s.phase != PhaseCalm {
		s.mu.Unlock()
		return false
	}
	draw := s.rand()
	if draw <= s.cfg.Threshold {
		s.mu.Unlock()
		return false
	}
	s.phase = PhaseStorming
	s.endsAt = now.Add(s.cfg.Dwell)
	hit := s.store.StartStorm()
	s.mu.Unlock()

	s.log.Info("market storm started", "draw", draw, "affected", len(hit), "ends_at", now.Add(s.cfg.Dwell))
	s.emit(Event{Kind: EventStormStarted, At: now, Affected: hit})
	return true
}

// Clear ends a running storm. It is a no-op while calm.
func (s *Scheduler) Clear(now time.Time) bool {
	s.mu.Lock()
	if s.phase != PhaseStorming {
		s.mu.Unlock()
		return false
	}
	s.phase = PhaseCalm
	s.endsAt = time.Time{}
	s.store.EndStorm()
	s.mu.Unlock()

	s.log.Info("market storm cleared")
	s.emit(Event{Kind: EventStormCleared, At: now})
	return true
}

// Advance clears the storm once its dwell has elapsed at now.
func (s *Scheduler) Advance(now time.Time) bool {
	s.mu.Lock()
	due := s.phase == PhaseStorming && !s.endsAt.IsZero() && !now.Before(s.endsAt)
	s.mu.Unlock()
	if !due {
		return false
	}
	return s.Clear(now)
}

// Payday credits the passive income, independent of storm state.
func (s *Scheduler) Payday(now time.Time) {
	if s.cfg.IncomeAmount <= 0 {
		return
	}
	s.store.AddCoins(float64(s.cfg.IncomeAmount))
	coins := s.store.Coins()
	s.log.Debug("passive income", "amount", s.cfg.IncomeAmount, "coins", coins)
	s.emit(Event{Kind: EventPayday, At: now, Coins: coins})
}

// Run owns the poll ticker, the income ticker and the dwell timer. Every
// timer is stopped before Run returns, so no transition fires afterwards.
func (s *Scheduler) Run(ctx context.Context) error {
	poll := time.NewTicker(s.cfg.PollEvery)
	defer poll.Stop()

	var incomeC <-chan time.Time
	if s.cfg.IncomeEvery > 0 {
		income := time.NewTicker(s.cfg.IncomeEvery)
		defer income.Stop()
		incomeC = income.C
	}

	var dwell *time.Timer
	var dwellC <-chan time.Time
	arm := func(d time.Duration) {
		if dwell != nil {
			dwell.Stop()
		}
		dwell = time.NewTimer(max(d, 0))
		dwellC = dwell.C
	}
	defer func() {
		if dwell != nil {
			dwell.Stop()
		}
	}()

	if s.Phase() == PhaseStorming {
		if ends, ok := s.StormEndsAt(); ok {
			arm(time.Until(ends))
		} else {
			s.mu.Lock()
			s.endsAt = time.Now().Add(s.cfg.Dwell)
			s.mu.Unlock()
			arm(s.cfg.Dwell)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-poll.C:
			if s.Poll(now) {
				arm(s.cfg.Dwell)
			}
		case now := <-dwellC:
			dwell, dwellC = nil, nil
			s.Clear(now)
		case now := <-incomeC:
			s.Payday(now)
		}
	}
}

func (s *Scheduler) emit(ev Event) {
	s.mu.Lock()
	fn := s.onEvent
	s.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}
