package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	cl "wealthlings/internal/cli"
	"wealthlings/internal/config"
	"wealthlings/internal/game"
	"wealthlings/internal/syncq"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	_ = config.LoadDotEnv()
	cfg, err := config.LoadCLIFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "wl",
		Short:        "Wealthlings CLI game client",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&apiBase, "api", apiBase, "game server base URL")

	root.AddCommand(
		newStartCmd(&apiBase),
		newDashCmd(&apiBase),
		newHealCmd(&apiBase),
		newFeedCmd(&apiBase),
		newBuyCmd(&apiBase),
		newScanCmd(&apiBase),
		newSellCmd(&apiBase),
		newEndCmd(&apiBase),
		newSyncCmd(&apiBase),
		newItemsCmd(&apiBase),
		newPlayCmd(cfg),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func loadSession() (cl.Session, error) {
	profile, err := cl.DefaultProfile()
	if err != nil {
		return cl.Session{}, err
	}
	sess, err := profile.LoadSession()
	if errors.Is(err, cl.ErrNoSession) {
		return cl.Session{}, fmt.Errorf("%w, run `wl start`", err)
	}
	return sess, err
}

func newStartCmd(apiBase *string) *cobra.Command {
	var (
		id     string
		resume bool
	)
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start (or resume) a game session",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := cl.DefaultProfile()
			if err != nil {
				return err
			}
			if id == "" && resume {
				if prev, err := profile.LoadSession(); err == nil {
					id = prev.SessionID
				}
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			view, err := newClient(apiBase).StartSession(ctx, id, resume)
			if err != nil {
				return err
			}
			if err := profile.SaveSession(cl.Session{
				SessionID:  view.SessionID,
				APIBaseURL: *apiBase,
				StartedAt:  time.Now().UTC(),
			}); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Session %s ready.", view.SessionID))
			renderView(view)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "session id to open")
	cmd.Flags().BoolVar(&resume, "resume", false, "restore the last saved snapshot")
	return cmd
}

func newDashCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "dash",
		Short: "Show your collection, wallet and the market weather",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			view, err := newClient(apiBase).Session(ctx, sess.SessionID)
			if err != nil {
				return err
			}
			renderView(view)
			return nil
		},
	}
}

func newHealCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "heal [creature_id]",
		Short: "Use a healing potion (+50 health)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return creatureActionCommand(cmd, apiBase, args, "heal", (*cl.Client).Heal)
		},
	}
}

func newFeedCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "feed [creature_id]",
		Short: "Feed a super snack (+1 level)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return creatureActionCommand(cmd, apiBase, args, "feed", (*cl.Client).Feed)
		},
	}
}

type creatureAction func(c *cl.Client, ctx context.Context, id, creatureID, idem string) (cl.HealResult, error)

func creatureActionCommand(cmd *cobra.Command, apiBase *string, args []string, verb string, action creatureAction) error {
	sess, err := loadSession()
	if err != nil {
		return err
	}
	creatureID, err := creatureIDFromArgsOrPrompt(args)
	if err != nil {
		return err
	}
	idem := uuid.NewString()
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	out, err := action(newClient(apiBase), ctx, sess.SessionID, creatureID, idem)
	if err != nil {
		return queueOnNetworkError(err, syncq.Command{
			Method:         http.MethodPost,
			Path:           "/v1/sessions/" + sess.SessionID + "/" + verb,
			Body:           map[string]any{"creature_id": creatureID},
			IdempotencyKey: idem,
		})
	}
	renderCreatureResult(verb, out)
	return nil
}

func newBuyCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "buy [healing|xp|bundle]",
		Short: "Buy an item from the store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadSession()
			if err != nil {
				return err
			}
			kind := ""
			if len(args) > 0 {
				kind = strings.ToLower(strings.TrimSpace(args[0]))
			} else {
				kinds := make([]string, 0, len(game.Catalog))
				for _, item := range game.Catalog {
					kinds = append(kinds, string(item.Kind))
				}
				kind, err = promptChoice("Item", kinds, string(game.ItemHealing))
				if err != nil {
					return err
				}
			}
			if _, ok := game.LookupItem(kind); !ok {
				return fmt.Errorf("%w: %q", game.ErrUnknownItem, kind)
			}

			idem := uuid.NewString()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Purchase(ctx, sess.SessionID, kind, idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         http.MethodPost,
					Path:           "/v1/sessions/" + sess.SessionID + "/purchase",
					Body:           map[string]any{"kind": kind},
					IdempotencyKey: idem,
				})
			}
			renderPurchase(kind, out)
			return nil
		},
	}
}

func newScanCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "scan [image]",
		Short: "Scan a brand logo to collect a new creature",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadSession()
			if err != nil {
				return err
			}
			var (
				filename string
				image    *os.File
			)
			if len(args) > 0 {
				image, err = os.Open(args[0])
				if err != nil {
					return err
				}
				defer image.Close()
				filename = filepath.Base(args[0])
			}
			printInfo("Scanning...")
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			client := newClient(apiBase)
			var c game.Creature
			if image != nil {
				c, err = client.Scan(ctx, sess.SessionID, filename, image, uuid.NewString())
			} else {
				c, err = client.Scan(ctx, sess.SessionID, "", nil, uuid.NewString())
			}
			if err != nil {
				return err
			}
			renderCollected(c)
			return nil
		},
	}
}

func newSellCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sell [creature_id]",
		Short: "Release a creature back to the market for coins",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadSession()
			if err != nil {
				return err
			}
			creatureID, err := creatureIDFromArgsOrPrompt(args)
			if err != nil {
				return err
			}
			idem := uuid.NewString()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Sell(ctx, sess.SessionID, creatureID, idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         http.MethodPost,
					Path:           "/v1/sessions/" + sess.SessionID + "/creatures/" + creatureID + "/sell",
					IdempotencyKey: idem,
				})
			}
			renderSell(out)
			return nil
		},
	}
}

func newEndCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "end",
		Short: "Stop the session on the server and save it",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).EndSession(ctx, sess.SessionID)
			if err != nil {
				return err
			}
			renderView(out.Session)
			if profile, err := cl.DefaultProfile(); err == nil {
				if err := profile.ClearSession(); err != nil {
					printWarn("Could not forget the local session: " + err.Error())
				}
			}
			if out.Saved {
				printSuccess(fmt.Sprintf("Session saved. Resume later with `wl start --resume --id %s`.", sess.SessionID))
			} else {
				printWarn("Session ended. The server keeps no snapshots, so this game is gone.")
			}
			return nil
		},
	}
}

func newSyncCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay locally queued offline writes",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := cl.DefaultProfile()
			if err != nil {
				return err
			}
			queue := profile.Queue()
			pending, err := queue.Load()
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				printInfo("Sync queue is empty.")
				return nil
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			delivered, remaining, err := queue.Drain(func(q syncq.Command) syncq.Outcome {
				_, err := client.Do(ctx, q.Method, q.Path, q.Body, q.IdempotencyKey)
				switch {
				case err == nil:
					return syncq.Delivered
				case cl.IsAPIError(err):
					// the server saw it; replaying again cannot succeed
					printWarn(fmt.Sprintf("Dropped %s %s: %v", q.Method, q.Path, err))
					return syncq.Rejected
				default:
					printError(fmt.Sprintf("Sync failed for %s %s: %v", q.Method, q.Path, err))
					return syncq.Retry
				}
			})
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Sync complete: replayed=%d remaining=%d", delivered, len(remaining)))
			return nil
		},
	}
}

func newItemsCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "items",
		Short: "List the store catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			items, err := newClient(apiBase).StoreItems(ctx)
			if err != nil {
				printWarn("Server unreachable, showing the built-in catalog.")
				items = game.Catalog
			}
			renderItems(items)
			return nil
		},
	}
}

func queueOnNetworkError(err error, cmd syncq.Command) error {
	if err == nil {
		return nil
	}
	if cl.IsAPIError(err) {
		return err
	}
	profile, perr := cl.DefaultProfile()
	if perr != nil {
		return fmt.Errorf("request failed (%v) and could not be queued: %w", err, perr)
	}
	added, qerr := profile.Queue().Push(cmd)
	if qerr != nil {
		return fmt.Errorf("request failed (%v) and could not be queued: %w", err, qerr)
	}
	if added {
		printWarn("Server unreachable. Queued for `wl sync`.")
	} else {
		printWarn("Server unreachable. This write is already queued.")
	}
	return nil
}

func creatureIDFromArgsOrPrompt(args []string) (string, error) {
	if len(args) > 0 {
		if id := strings.TrimSpace(args[0]); id != "" {
			return id, nil
		}
	}
	return promptRequired("Creature id")
}
