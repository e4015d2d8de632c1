package game

import (
	"errors"
	"math"
	"time"
)

const (
	MaxHealth       = 100
	MinStormHealth  = 10
	StormDamage     = 20
	HealAmount      = 50
	SellMultiplier  = 10
	MaxCoins        = int64(1_000_000_000_000)
	StarterCoins    = int64(2450)
	StarterPotions  = 2
	ShieldArchetype = 3 // unique archetypes needed for the team shield.
)

const (
	DefaultPollEvery      = 20 * time.Second
	DefaultStormThreshold = 0.7
	DefaultStormDwell     = 12 * time.Second
	DefaultIncomeEvery    = 60 * time.Second
	DefaultIncomeAmount   = int64(10)
)

var (
	ErrCreatureNotFound     = errors.New("creature not found")
	ErrDuplicateCreature    = errors.New("creature id already in collection")
	ErrInvalidCreature      = errors.New("creature id is required")
	ErrNoPotions            = errors.New("no potions left")
	ErrNoSnacks             = errors.New("no snacks left")
	ErrInsufficientFunds    = errors.New("insufficient coins")
	ErrUnknownItem          = errors.New("unknown store item")
	ErrScanFailed           = errors.New("scan failed")
	ErrInvalidValuation     = errors.New("invalid sell valuation")
	ErrSessionNotFound      = errors.New("session not found")
	ErrDuplicateIdempotency = errors.New("duplicate idempotency key")
)

// sanitizeCoins turns an arbitrary float into a legal wallet value.
// NaN and infinities count as zero.
func sanitizeCoins(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	v = math.Floor(v)
	if v <= 0 {
		return 0
	}
	if v >= float64(MaxCoins) {
		return MaxCoins
	}
	return int64(v)
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clampHealth(h int) int {
	if h < 0 {
		return 0
	}
	if h > MaxHealth {
		return MaxHealth
	}
	return h
}

// SellCredit converts a backend valuation into a signed coin delta. A
// negative valuation debits the wallet; the store floors the balance at 0.
func SellCredit(value float64) (int64, error) {
	credit := math.Floor(value * SellMultiplier)
	if math.IsNaN(credit) || math.IsInf(credit, 0) {
		return 0, ErrInvalidValuation
	}
	credit = max(-float64(MaxCoins), min(float64(MaxCoins), credit))
	return int64(credit), nil
}
