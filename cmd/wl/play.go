package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"wealthlings/internal/backend"
	"wealthlings/internal/config"
	"wealthlings/internal/game"
	"wealthlings/internal/snapshot"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

const localSaveID = "local"

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFD700"))
	stormStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	calmStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	cursorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	paneStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("6")).
			Padding(0, 1)
)

func newPlayCmd(cfg config.CLIConfig) *cobra.Command {
	var fresh bool
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play offline in the terminal with a local save file",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := snapshot.OpenSQLite(cfg.SaveFile)
			if err != nil {
				return err
			}
			defer store.Close()

			st, err := loadLocalGame(cmd.Context(), store, fresh, time.Now())
			if err != nil {
				return err
			}

			events := make(chan game.Event, 16)
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			factory := backend.SessionFactory(backend.Options{
				BaseURL:       cfg.BackendURL,
				Timeout:       cfg.BackendTimeout,
				MockScanDelay: cfg.MockScanDelay,
				PerLevel:      cfg.SellValuePerLevel,
				Storm:         cfg.StormConfig(),
				SessionOpts: []game.SessionOption{game.WithSchedulerOptions(game.WithObserver(func(ev game.Event) {
					select {
					case events <- ev:
					default:
					}
				}))},
			}, logger)
			sess := factory(localSaveID, st)

			ctx, cancel := context.WithCancel(cmd.Context())
			done := make(chan struct{})
			go func() {
				defer close(done)
				_ = sess.Run(ctx)
			}()

			p := tea.NewProgram(newPlayModel(sess, events, cfg.BackendTimeout), tea.WithAltScreen())
			_, runErr := p.Run()
			cancel()
			<-done

			saveCtx, saveCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer saveCancel()
			if err := store.Save(saveCtx, localSaveID, sess.Store().State()); err != nil {
				return fmt.Errorf("save game: %w", err)
			}
			printSuccess("Game saved to " + cfg.SaveFile)
			return runErr
		},
	}
	cmd.Flags().BoolVar(&fresh, "new", false, "delete the save file and start over")
	return cmd
}

// loadLocalGame returns the saved game, or a seeded one when there is no
// save. fresh discards the save first.
func loadLocalGame(ctx context.Context, store snapshot.Store, fresh bool, now time.Time) (game.State, error) {
	if fresh {
		if err := store.Delete(ctx, localSaveID); err != nil && !errors.Is(err, snapshot.ErrNotFound) {
			return game.State{}, fmt.Errorf("discard save: %w", err)
		}
		return game.SeedState(now), nil
	}
	saved, err := store.Load(ctx, localSaveID)
	switch {
	case err == nil:
		return saved, nil
	case errors.Is(err, snapshot.ErrNotFound):
		return game.SeedState(now), nil
	default:
		return game.State{}, err
	}
}

type refreshMsg time.Time

type stormEventMsg game.Event

type actionDoneMsg struct {
	status string
	err    error
}

type playModel struct {
	sess    *game.Session
	events  <-chan game.Event
	timeout time.Duration

	view   game.View
	cursor int
	status string
	busy   bool
	width  int
}

func newPlayModel(sess *game.Session, events <-chan game.Event, timeout time.Duration) playModel {
	return playModel{
		sess:    sess,
		events:  events,
		timeout: timeout,
		view:    sess.View(),
		status:  "Welcome back, trainer.",
	}
}

func (m playModel) Init() tea.Cmd {
	return tea.Batch(refreshCmd(), waitForEvent(m.events))
}

func refreshCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func waitForEvent(ch <-chan game.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return stormEventMsg(ev)
	}
}

func (m playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.updateKeys(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case refreshMsg:
		m.view = m.sess.View()
		m.clampCursor()
		return m, refreshCmd()
	case stormEventMsg:
		m.status = describeEvent(game.Event(msg))
		m.view = m.sess.View()
		return m, waitForEvent(m.events)
	case actionDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Oops: " + msg.err.Error()
		} else {
			m.status = msg.status
		}
		m.view = m.sess.View()
		m.clampCursor()
		return m, nil
	}
	return m, nil
}

func (m playModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.view.Creatures)-1 {
			m.cursor++
		}
		return m, nil
	}
	if m.busy {
		return m, nil
	}

	selected, hasSelection := m.selected()
	switch msg.String() {
	case "h":
		if !hasSelection {
			return m, nil
		}
		return m.run(func() (string, error) {
			c, err := m.sess.Heal(selected.ID)
			return fmt.Sprintf("%s healed to %d.", c.Name, c.Health), err
		})
	case "f":
		if !hasSelection {
			return m, nil
		}
		return m.run(func() (string, error) {
			c, err := m.sess.Feed(selected.ID)
			return fmt.Sprintf("%s grew to level %d.", c.Name, c.Level), err
		})
	case "1", "2", "3":
		item := game.Catalog[int(msg.String()[0]-'1')]
		return m.run(func() (string, error) {
			_, err := m.sess.Purchase(string(item.Kind))
			return "Bought " + item.Name + ".", err
		})
	case "s":
		m.busy = true
		m.status = "Scanning..."
		sess, timeout := m.sess, m.timeout
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			c, err := sess.Scan(ctx, game.ScanRequest{})
			if err != nil {
				return actionDoneMsg{err: err}
			}
			return actionDoneMsg{status: fmt.Sprintf("%s You found %s (%s)!", c.Icon, c.Name, c.Brand)}
		}
	case "x":
		if !hasSelection {
			return m, nil
		}
		m.busy = true
		m.status = "Selling " + selected.Name + "..."
		sess, timeout := m.sess, m.timeout
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			res, err := sess.Sell(ctx, selected.ID)
			if err != nil {
				return actionDoneMsg{err: err}
			}
			return actionDoneMsg{status: fmt.Sprintf("Released %s for %d coins.", selected.Name, res.Credited)}
		}
	}
	return m, nil
}

// run applies a synchronous action; all of them are instant in-memory updates.
func (m playModel) run(fn func() (string, error)) (tea.Model, tea.Cmd) {
	status, err := fn()
	return m.Update(actionDoneMsg{status: status, err: err})
}

func (m playModel) selected() (game.Creature, bool) {
	if m.cursor < 0 || m.cursor >= len(m.view.Creatures) {
		return game.Creature{}, false
	}
	return m.view.Creatures[m.cursor], true
}

func (m *playModel) clampCursor() {
	if m.cursor >= len(m.view.Creatures) {
		m.cursor = len(m.view.Creatures) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m playModel) View() string {
	v := m.view
	var b strings.Builder

	header := titleStyle.Render("WEALTHLINGS")
	weather := calmStyle.Render("Market calm")
	if v.StormActive {
		weather = stormStyle.Render("MARKET STORM")
	}
	fmt.Fprintf(&b, "%s   %s\n", header, weather)
	fmt.Fprintf(&b, "Coins %d   Potions %d   Snacks %d   Shield %s (%.0f%%)\n\n",
		v.Coins, v.Inventory.Potions, v.Inventory.Snacks, shieldLabel(v.DiversificationShield), v.ShieldPercent)

	var rows strings.Builder
	if len(v.Creatures) == 0 {
		rows.WriteString(dimStyle.Render("No creatures. Press s to scan one."))
	}
	for i, c := range v.Creatures {
		line := fmt.Sprintf("%s %-12s %-16s lvl %-3d hp %-3d %s",
			c.Icon, truncate(c.Name, 12), truncate(string(c.Archetype), 16), c.Level, c.Health, c.Mood)
		if i == m.cursor {
			line = cursorStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		rows.WriteString(line)
		if i < len(v.Creatures)-1 {
			rows.WriteByte('\n')
		}
	}
	b.WriteString(paneStyle.Render(rows.String()))
	b.WriteString("\n\n")

	if v.GameOver {
		b.WriteString(stormStyle.Render("Wallet empty!"))
		b.WriteByte('\n')
		for _, tip := range v.RecoveryTips {
			b.WriteString(dimStyle.Render("  - " + tip))
			b.WriteByte('\n')
		}
	}
	b.WriteString(m.status)
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("j/k move  h heal  f feed  s scan  x sell  1 potion  2 snack  3 bundle  q quit"))
	return b.String()
}

func shieldLabel(on bool) string {
	if on {
		return calmStyle.Render("ON")
	}
	return dimStyle.Render("off")
}

func describeEvent(ev game.Event) string {
	switch ev.Kind {
	case game.EventStormStarted:
		return fmt.Sprintf("A market storm hit! %d creature(s) got nervous.", len(ev.Affected))
	case game.EventStormCleared:
		return "The storm passed. Everyone calms down."
	case game.EventPayday:
		return fmt.Sprintf("Payday! Wallet is now %d.", ev.Coins)
	default:
		return string(ev.Kind)
	}
}
