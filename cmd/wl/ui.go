package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	cl "wealthlings/internal/cli"
	"wealthlings/internal/game"

	"github.com/fatih/color"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptChoice(label string, options []string, defaultValue string) (string, error) {
	normalized := make(map[string]struct{}, len(options))
	for _, opt := range options {
		normalized[strings.ToLower(strings.TrimSpace(opt))] = struct{}{}
	}
	for {
		fmt.Printf("%s (%s) [%s]: ", label, strings.Join(options, "/"), defaultValue)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			text = strings.ToLower(strings.TrimSpace(defaultValue))
		}
		if _, ok := normalized[text]; ok {
			return text, nil
		}
		printWarn("Invalid option. Please pick one of the listed values.")
	}
}

func renderView(v game.View) {
	accent.Println("\n== WEALTHLINGS ==")
	fmt.Printf("Coins:     %s\n", coinText(v.Coins))
	fmt.Printf("Potions:   %d\n", v.Inventory.Potions)
	fmt.Printf("Snacks:    %d\n", v.Inventory.Snacks)
	if v.StormActive {
		danger.Println("Weather:   MARKET STORM! Trend Chasers and Sprinters are nervous.")
	} else {
		fmt.Println("Weather:   calm")
	}
	shield := neutral.Sprint("off")
	if v.DiversificationShield {
		shield = success.Sprint("ON")
	}
	fmt.Printf("Shield:    %s (%d/%d archetypes, %.1f%% diversified)\n", shield, v.UniqueArchetypes, game.ShieldArchetype, v.ShieldPercent)

	fmt.Println()
	accent.Println("Collection")
	if len(v.Creatures) == 0 {
		printInfo("No creatures yet. Run `wl scan` to find one.")
	} else {
		fmt.Printf("%-10s %-14s %-16s %-16s %5s %8s %-8s\n", "ID", "NAME", "BRAND", "ARCHETYPE", "LVL", "HEALTH", "MOOD")
		for _, c := range v.Creatures {
			fmt.Printf("%-10s %-14s %-16s %-16s %5d %8s %-8s\n",
				truncate(c.ID, 10),
				truncate(c.Name, 14),
				truncate(c.Brand, 16),
				truncate(c.Icon+" "+string(c.Archetype), 16),
				c.Level,
				healthText(c.Health),
				moodText(c.Mood),
			)
		}
	}
	if v.GameOver {
		fmt.Println()
		danger.Println("Wallet empty!")
		for _, tip := range v.RecoveryTips {
			fmt.Printf("  - %s\n", tip)
		}
	}
	fmt.Println()
}

func renderCreatureResult(verb string, out cl.HealResult) {
	c := out.Creature
	switch verb {
	case "heal":
		printSuccess(fmt.Sprintf("%s feels better: health %s.", c.Name, healthText(c.Health)))
	default:
		printSuccess(fmt.Sprintf("%s munched a snack: now level %d.", c.Name, c.Level))
	}
	fmt.Printf("Potions: %d  Snacks: %d\n", out.Inventory.Potions, out.Inventory.Snacks)
}

func renderPurchase(kind string, out cl.PurchaseResult) {
	item, _ := game.LookupItem(kind)
	printSuccess(fmt.Sprintf("Bought %s.", item.Name))
	fmt.Printf("Coins: %s  Potions: %d  Snacks: %d\n", coinText(out.Coins), out.Inventory.Potions, out.Inventory.Snacks)
}

func renderCollected(c game.Creature) {
	accent.Printf("\n%s You found %s!\n", c.Icon, c.Name)
	fmt.Printf("Brand:     %s\n", c.Brand)
	fmt.Printf("Archetype: %s\n", c.Archetype)
	fmt.Printf("Sector:    %s\n", c.Sector)
	fmt.Printf("Level:     %d\n", c.Level)
	fmt.Printf("ID:        %s\n", c.ID)
	fmt.Println()
}

func renderSell(out game.SellResult) {
	printSuccess(fmt.Sprintf("Released %s for %s coins.", out.CreatureID, comma(out.Credited)))
	if out.Warning != "" {
		printWarn(out.Warning)
	}
	fmt.Printf("Coins: %s\n", coinText(out.Coins))
}

func renderItems(items []game.StoreItem) {
	accent.Println("\n== STORE ==")
	fmt.Printf("%-8s %-16s %8s  %s\n", "KIND", "NAME", "COST", "DESCRIPTION")
	for _, item := range items {
		fmt.Printf("%-8s %-16s %8s  %s\n", item.Kind, item.Name, comma(item.Cost), item.Description)
	}
	fmt.Println()
}

func coinText(v int64) string {
	if v == 0 {
		return danger.Sprint("0")
	}
	return success.Sprint(comma(v))
}

func healthText(h int) string {
	text := strconv.Itoa(h)
	switch {
	case h >= 70:
		return success.Sprint(text)
	case h >= 40:
		return warn.Sprint(text)
	default:
		return danger.Sprint(text)
	}
}

func moodText(m game.Mood) string {
	switch m {
	case game.MoodNervous:
		return danger.Sprint(string(m))
	case game.MoodTired:
		return warn.Sprint(string(m))
	default:
		return string(m)
	}
}

func comma(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return sign + s
	}
	var b strings.Builder
	b.WriteString(sign)
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		b.WriteByte(',')
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
