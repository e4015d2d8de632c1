package game

import "math"

// NewView derives the dashboard fields from a state snapshot.
func NewView(st State) View {
	st = st.clone()
	archetypes := make(map[Archetype]struct{}, len(Archetypes))
	sectors := make(map[string]struct{})
	for _, c := range st.Creatures {
		archetypes[c.Archetype] = struct{}{}
		sectors[c.Sector] = struct{}{}
	}
	v := View{
		Creatures:             st.Creatures,
		Coins:                 st.Coins,
		Inventory:             st.Inventory,
		StormActive:           st.StormActive,
		UniqueArchetypes:      len(archetypes),
		DiversificationShield: len(archetypes) >= ShieldArchetype,
		ShieldPercent:         shieldPercent(len(st.Creatures), len(sectors)),
		GameOver:              st.Coins == 0,
	}
	if v.GameOver {
		v.RecoveryTips = recoveryTips(len(st.Creatures), len(archetypes))
	}
	return v
}

// shieldPercent scores sector spread: five distinct sectors is a full shield.
func shieldPercent(creatures, sectors int) float64 {
	if creatures <= 1 {
		return 0
	}
	pct := float64(sectors) / 5 * 100
	return math.Round(math.Min(100, pct)*10) / 10
}

func recoveryTips(creatures, archetypes int) []string {
	var tips []string
	switch {
	case creatures == 0:
		tips = append(tips, "Start small: scan your first Wealthling to begin rebuilding.")
	case creatures < 3:
		tips = append(tips, "Build your team: collect more Wealthlings to diversify your portfolio.")
	}
	if archetypes < ShieldArchetype {
		tips = append(tips, "Diversify: aim for 3+ different archetypes to unlock the Team Shield.")
	}
	if archetypes < len(Archetypes) {
		tips = append(tips, "Explore archetypes: complete your collection across all 5 archetypes.")
	}
	tips = append(tips, "Prevention: use potions strategically during market storms.")
	return tips
}
