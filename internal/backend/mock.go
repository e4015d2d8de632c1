package backend

import (
	"context"
	mathrand "math/rand"
	"sync"
	"time"

	"wealthlings/internal/game"
)

var MockBrands = []string{"NIKE", "APPLE", "STARBUCKS", "TESLA", "DISNEY"}

// MockScanner stands in for the recognition backend: after a short delay it
// "detects" one of MockBrands and returns a level 1 Sprinter.
type MockScanner struct {
	MinDelay time.Duration
	MaxDelay time.Duration

	mu   sync.Mutex
	rand *mathrand.Rand
}

func NewMockScanner(minDelay, maxDelay time.Duration) *MockScanner {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &MockScanner{
		MinDelay: minDelay,
		MaxDelay: maxDelay,
		rand:     mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
	}
}

func (m *MockScanner) Scan(ctx context.Context, _ game.ScanRequest) (game.Descriptor, error) {
	m.mu.Lock()
	delay := m.MinDelay
	if span := m.MaxDelay - m.MinDelay; span > 0 {
		delay += time.Duration(m.rand.Int63n(int64(span)))
	}
	brand := MockBrands[m.rand.Intn(len(MockBrands))]
	m.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return game.Descriptor{}, ctx.Err()
		case <-t.C:
		}
	}
	return game.Descriptor{
		Name:      "Flash",
		Brand:     brand,
		Sector:    "Market DNA",
		Archetype: game.Sprinter,
		Level:     1,
	}, nil
}
