package game

import (
	"context"
	"sync"
	"testing"
	"time"
)

func fixedDraws(draws ...float64) func() float64 {
	var mu sync.Mutex
	i := 0
	return func() float64 {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(draws) {
			return draws[len(draws)-1]
		}
		d := draws[i]
		i++
		return d
	}
}

func TestPollBelowThresholdStaysCalm(t *testing.T) {
	s := seededStore()
	sched := NewScheduler(s, DefaultStormConfig(), discardLogger(), WithRand(fixedDraws(0.7, 0.2)))
	now := time.Now()
	if sched.Poll(now) || sched.Poll(now) {
		t.Fatalf("draws at or below threshold must not trigger")
	}
	if sched.Phase() != PhaseCalm || s.StormActive() {
		t.Fatalf("expected calm")
	}
}

func TestPollWhileStormingIsSuppressed(t *testing.T) {
	s := seededStore()
	draws := 0
	sched := NewScheduler(s, DefaultStormConfig(), discardLogger(), WithRand(func() float64 {
		draws++
		return 0.99
	}))
	now := time.Now()
	if !sched.Poll(now) {
		t.Fatalf("expected storm to start")
	}
	for i := 0; i < 5; i++ {
		if sched.Poll(now.Add(time.Duration(i) * time.Second)) {
			t.Fatalf("poll %d re-triggered a running storm", i)
		}
	}
	if draws != 1 {
		t.Fatalf("expected a single draw, got %d", draws)
	}
	c, _ := s.Creature("2")
	if c.Health != 58 {
		t.Fatalf("damage stacked: health %d want 58", c.Health)
	}
}

func TestStormScenario(t *testing.T) {
	s := seededStore()
	var events []Event
	sched := NewScheduler(s, DefaultStormConfig(), discardLogger(),
		WithRand(fixedDraws(0.95)),
		WithObserver(func(ev Event) { events = append(events, ev) }),
	)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	before := s.State()

	if !sched.Poll(start) {
		t.Fatalf("expected storm")
	}
	if !s.StormActive() {
		t.Fatalf("storm flag not set")
	}
	for i, c := range s.State().Creatures {
		prev := before.Creatures[i]
		switch c.Archetype {
		case TrendChaser:
			if c.Health != max(MinStormHealth, prev.Health-StormDamage) || c.Mood != MoodNervous || !c.AffectedByStorm {
				t.Fatalf("trend chaser not hit: %+v", c)
			}
		default:
			if c.Health != prev.Health || c.Mood != prev.Mood || c.AffectedByStorm {
				t.Fatalf("%s should be untouched: %+v", c.Archetype, c)
			}
		}
	}

	if sched.Advance(start.Add(DefaultStormDwell - time.Second)) {
		t.Fatalf("storm cleared before dwell elapsed")
	}
	if !sched.Advance(start.Add(DefaultStormDwell)) {
		t.Fatalf("storm did not clear after dwell")
	}
	if s.StormActive() || sched.Phase() != PhaseCalm {
		t.Fatalf("expected calm after dwell")
	}
	for _, c := range s.State().Creatures {
		if c.Mood != MoodHappy || c.AffectedByStorm {
			t.Fatalf("creature %s not restored: %+v", c.ID, c)
		}
	}
	if len(events) != 2 || events[0].Kind != EventStormStarted || events[1].Kind != EventStormCleared {
		t.Fatalf("unexpected events: %+v", events)
	}
	if sched.Clear(start.Add(time.Hour)) {
		t.Fatalf("clearing while calm should be a no-op")
	}
}

func TestPaydayCreditsIncome(t *testing.T) {
	s := seededStore()
	sched := NewScheduler(s, DefaultStormConfig(), discardLogger())
	sched.Payday(time.Now())
	if got := s.Coins(); got != StarterCoins+DefaultIncomeAmount {
		t.Fatalf("got %d want %d", got, StarterCoins+DefaultIncomeAmount)
	}
}

func TestRestoredStormResumesStorming(t *testing.T) {
	st := SeedState(time.Now())
	st.StormActive = true
	s := NewStore(st, discardLogger())
	sched := NewScheduler(s, DefaultStormConfig(), discardLogger(), WithRand(fixedDraws(0.99)))
	if sched.Phase() != PhaseStorming {
		t.Fatalf("expected restored storm")
	}
	if sched.Poll(time.Now()) {
		t.Fatalf("restored storm must not be re-triggered")
	}
}

func TestRunStormCycleAndShutdown(t *testing.T) {
	s := seededStore()
	var mu sync.Mutex
	var kinds []EventKind
	cfg := StormConfig{
		PollEvery:    5 * time.Millisecond,
		Threshold:    0.5,
		Dwell:        20 * time.Millisecond,
		IncomeEvery:  time.Hour,
		IncomeAmount: 10,
	}
	cleared := make(chan struct{}, 1)
	sched := NewScheduler(s, cfg, discardLogger(),
		WithRand(fixedDraws(0.9, 0.1)),
		WithObserver(func(ev Event) {
			mu.Lock()
			kinds = append(kinds, ev.Kind)
			mu.Unlock()
			if ev.Kind == EventStormCleared {
				select {
				case cleared <- struct{}{}:
				default:
				}
			}
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	select {
	case <-cleared:
	case <-time.After(2 * time.Second):
		t.Fatalf("storm never cleared")
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop after cancel")
	}

	mu.Lock()
	n := len(kinds)
	mu.Unlock()
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(kinds) != n {
		t.Fatalf("events fired after shutdown: %v", kinds)
	}
	if kinds[0] != EventStormStarted {
		t.Fatalf("unexpected first event %q", kinds[0])
	}
	if s.StormActive() {
		t.Fatalf("storm flag left on after clear")
	}
}

func TestStormTransitionsAreAtomicForReaders(t *testing.T) {
	s := seededStore()
	sched := NewScheduler(s, DefaultStormConfig(), discardLogger(), WithRand(func() float64 { return 0.99 }))

	stop := make(chan struct{})
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		torn int
	)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				st := s.State()
				for _, c := range st.Creatures {
					want := st.StormActive && c.Archetype.StormVulnerable()
					if c.AffectedByStorm != want {
						mu.Lock()
						torn++
						mu.Unlock()
					}
				}
			}
		}()
	}

	now := time.Now()
	for i := 0; i < 2000; i++ {
		if !sched.Poll(now) {
			t.Fatalf("poll %d did not start a storm", i)
		}
		if !sched.Clear(now) {
			t.Fatalf("clear %d did not end the storm", i)
		}
	}
	close(stop)
	wg.Wait()
	if torn != 0 {
		t.Fatalf("readers saw %d half-applied storm states", torn)
	}
}

func TestStartAndEndStorm(t *testing.T) {
	s := seededStore()
	hit := s.StartStorm()
	st := s.State()
	if !st.StormActive || len(hit) == 0 {
		t.Fatalf("storm not started: active=%v hit=%v", st.StormActive, hit)
	}
	s.EndStorm()
	st = s.State()
	if st.StormActive {
		t.Fatalf("storm flag still set")
	}
	for _, c := range st.Creatures {
		if c.AffectedByStorm || c.Mood != MoodHappy {
			t.Fatalf("creature %s still storm-affected: %+v", c.ID, c)
		}
	}
}
