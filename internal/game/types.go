package game

import (
	"strings"
	"time"
)

type Archetype string

const (
	SteadyGuardian Archetype = "Steady Guardian"
	TrendChaser    Archetype = "Trend Chaser"
	Giant          Archetype = "Giant"
	Sprinter       Archetype = "Sprinter"
	Diversifier    Archetype = "Diversifier"
)

var Archetypes = []Archetype{SteadyGuardian, TrendChaser, Giant, Sprinter, Diversifier}

// StormVulnerable reports whether storms damage creatures of this archetype.
func (a Archetype) StormVulnerable() bool {
	return a == TrendChaser || a == Sprinter
}

func (a Archetype) Valid() bool {
	_, ok := archetypeInfo[a]
	return ok
}

// ParseArchetype accepts display names in any case, with or without spaces.
func ParseArchetype(s string) (Archetype, bool) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	for _, a := range Archetypes {
		if strings.ToLower(strings.ReplaceAll(string(a), " ", "")) == key {
			return a, true
		}
	}
	return "", false
}

type ArchetypeInfo struct {
	Archetype   Archetype `json:"archetype"`
	Description string    `json:"description"`
	Traits      []string  `json:"traits"`
	Emoji       string    `json:"emoji"`
	Color       string    `json:"color"`
	Volatility  float64   `json:"volatility"`
	Resilience  float64   `json:"resilience"`
}

var archetypeInfo = map[Archetype]ArchetypeInfo{
	SteadyGuardian: {
		Description: "Big, reliable companies like power companies or grocery stores. It will not zoom to the moon, but it grows strong, sturdy roots.",
		Traits:      []string{"Stable", "Protective"},
		Emoji:       "🐢",
		Color:       "#10B981",
		Volatility:  0.3,
		Resilience:  0.9,
	},
	TrendChaser: {
		Description: "Loves whatever is cool right now. When it is nervous, the hype might be fading.",
		Traits:      []string{"Fast", "Exciting"},
		Emoji:       "🦊",
		Color:       "#3B82F6",
		Volatility:  0.8,
		Resilience:  0.4,
	},
	Giant: {
		Description: "A massive company that has been around forever. It is not growing fast because it is already so big.",
		Traits:      []string{"Big", "Reliable"},
		Emoji:       "🐘",
		Color:       "#94A3B8",
		Volatility:  0.2,
		Resilience:  0.95,
	},
	Sprinter: {
		Description: "Small, new companies with big ideas. When it is happy its value is skyrocketing.",
		Traits:      []string{"Growth", "Agile"},
		Emoji:       "🐦",
		Color:       "#FFD700",
		Volatility:  0.9,
		Resilience:  0.3,
	},
	Diversifier: {
		Description: "A bundle of many different stocks, like an index fund. If one has a bad day the others help pick it up.",
		Traits:      []string{"Teamwork", "Balanced"},
		Emoji:       "🐙",
		Color:       "#9333EA",
		Volatility:  0.4,
		Resilience:  0.7,
	},
}

// Info returns the static metadata for an archetype.
func (a Archetype) Info() ArchetypeInfo {
	info := archetypeInfo[a]
	info.Archetype = a
	return info
}

type Mood string

const (
	MoodHappy   Mood = "happy"
	MoodTired   Mood = "tired"
	MoodNervous Mood = "nervous"
)

type Creature struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Brand           string    `json:"brand"`
	Ticker          string    `json:"ticker,omitempty"`
	Sector          string    `json:"sector"`
	Archetype       Archetype `json:"archetype"`
	Level           int       `json:"level"`
	Health          int       `json:"health"`
	Mood            Mood      `json:"mood"`
	AffectedByStorm bool      `json:"is_affected_by_storm"`
	Color           string    `json:"color"`
	Icon            string    `json:"icon"`
	AcquiredAt      time.Time `json:"acquired_at,omitempty"`
}

// CreaturePatch is a partial update. Nil fields are left alone.
type CreaturePatch struct {
	Name            *string
	Brand           *string
	Sector          *string
	Level           *int
	Health          *int
	Mood            *Mood
	AffectedByStorm *bool
	Color           *string
	Icon            *string
}

type Inventory struct {
	Potions int `json:"potions"`
	Snacks  int `json:"snacks"`
}

type InventoryPatch struct {
	Potions *int
	Snacks  *int
}

type State struct {
	Creatures   []Creature `json:"creatures"`
	Coins       int64      `json:"coins"`
	Inventory   Inventory  `json:"inventory"`
	StormActive bool       `json:"storm_active"`
}

func (s State) clone() State {
	out := s
	out.Creatures = append([]Creature(nil), s.Creatures...)
	if out.Creatures == nil {
		out.Creatures = []Creature{}
	}
	return out
}

// Descriptor is what a scan collaborator hands back for a recognised brand.
type Descriptor struct {
	ID             string    `json:"id,omitempty"`
	Name           string    `json:"name"`
	Brand          string    `json:"brand"`
	Ticker         string    `json:"ticker,omitempty"`
	Sector         string    `json:"sector"`
	Archetype      Archetype `json:"archetype"`
	Level          int       `json:"level"`
	AffectedSector bool      `json:"affected_sector"`
}

type Valuation struct {
	Success bool    `json:"success"`
	Value   float64 `json:"value"`
	Penalty float64 `json:"penalty,omitempty"`
	Warning string  `json:"warning,omitempty"`
}

type View struct {
	SessionID             string     `json:"session_id,omitempty"`
	Creatures             []Creature `json:"creatures"`
	Coins                 int64      `json:"coins"`
	Inventory             Inventory  `json:"inventory"`
	StormActive           bool       `json:"storm_active"`
	UniqueArchetypes      int        `json:"unique_archetypes"`
	DiversificationShield bool       `json:"diversification_shield"`
	ShieldPercent         float64    `json:"shield_percent"`
	GameOver              bool       `json:"game_over"`
	RecoveryTips          []string   `json:"recovery_tips,omitempty"`
}

type SellResult struct {
	CreatureID string `json:"creature_id"`
	Credited   int64  `json:"credited"`
	Coins      int64  `json:"coins"`
	Warning    string `json:"warning,omitempty"`
}
