package game

import "strings"

type ItemKind string

const (
	ItemHealing ItemKind = "healing"
	ItemXP      ItemKind = "xp"
	ItemBundle  ItemKind = "bundle"
)

type StoreItem struct {
	Kind        ItemKind `json:"kind"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Cost        int64    `json:"cost"`
	Potions     int      `json:"potions"`
	Snacks      int      `json:"snacks"`
}

var Catalog = []StoreItem{
	{Kind: ItemHealing, Name: "Healing Potion", Description: "Restore confidence to your Stocklings", Cost: 500, Potions: 1},
	{Kind: ItemXP, Name: "Super Snack", Description: "Boost XP gain for your team", Cost: 1200, Snacks: 1},
	{Kind: ItemBundle, Name: "Mega Bundle", Description: "3x Potions + 1x Snack", Cost: 2500, Potions: 3, Snacks: 1},
}

func LookupItem(kind string) (StoreItem, bool) {
	k := ItemKind(strings.ToLower(strings.TrimSpace(kind)))
	for _, item := range Catalog {
		if item.Kind == k {
			return item, true
		}
	}
	return StoreItem{}, false
}
