package backend

import (
	"log/slog"
	"time"

	"wealthlings/internal/game"
)

// Options selects the collaborators a session is built with. An empty
// BaseURL means the offline mock scanner and level-based valuer.
type Options struct {
	BaseURL       string
	Timeout       time.Duration
	MockScanDelay time.Duration
	PerLevel      float64
	Storm         game.StormConfig
	SessionOpts   []game.SessionOption
}

func SessionFactory(opts Options, logger *slog.Logger) game.SessionFactory {
	if logger == nil {
		logger = slog.Default()
	}
	var remote *Client
	if opts.BaseURL != "" {
		remote = NewClient(opts.BaseURL, opts.Timeout)
	}
	mock := NewMockScanner(opts.MockScanDelay/2, opts.MockScanDelay)

	return func(id string, st game.State) *game.Session {
		sessOpts := append([]game.SessionOption(nil), opts.SessionOpts...)
		if remote != nil {
			sessOpts = append(sessOpts,
				game.WithScanner(NewScanClient(remote)),
				game.WithValuer(NewValuationClient(remote)),
			)
			return game.NewSession(id, st, opts.Storm, logger, sessOpts...)
		}
		fixed := &FixedValuer{PerLevel: opts.PerLevel}
		sessOpts = append(sessOpts, game.WithScanner(mock), game.WithValuer(fixed))
		sess := game.NewSession(id, st, opts.Storm, logger, sessOpts...)
		fixed.Store = sess.Store()
		return sess
	}
}
