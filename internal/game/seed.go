package game

import "time"

// SeedState is the roster every new session starts from.
func SeedState(now time.Time) State {
	return State{
		Creatures: []Creature{
			{
				ID:         "1",
				Name:       "Berty",
				Brand:      "GENERAL MILLS",
				Ticker:     "GIS",
				Sector:     "Consumer",
				Archetype:  SteadyGuardian,
				Level:      5,
				Health:     92,
				Mood:       MoodHappy,
				Color:      "#10B981",
				Icon:       "🥣",
				AcquiredAt: now,
			},
			{
				ID:         "2",
				Name:       "Glitch",
				Brand:      "ROBLOX",
				Ticker:     "RBLX",
				Sector:     "Gaming",
				Archetype:  TrendChaser,
				Level:      12,
				Health:     78,
				Mood:       MoodHappy,
				Color:      "#3B82F6",
				Icon:       "🎮",
				AcquiredAt: now,
			},
			{
				ID:         "3",
				Name:       "Titan",
				Brand:      "APPLE",
				Ticker:     "AAPL",
				Sector:     "Tech",
				Archetype:  Giant,
				Level:      3,
				Health:     95,
				Mood:       MoodHappy,
				Color:      "#94A3B8",
				Icon:       "🍎",
				AcquiredAt: now,
			},
		},
		Coins:     StarterCoins,
		Inventory: Inventory{Potions: StarterPotions},
	}
}
