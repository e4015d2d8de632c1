// Package snapshot persists session state between server restarts and
// between local play runs.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"wealthlings/internal/game"
)

var (
	ErrNotFound  = errors.New("snapshot not found")
	ErrInvalidID = errors.New("session id is required")
)

// Store saves and loads one State per session id.
type Store interface {
	Save(ctx context.Context, id string, st game.State) error
	Load(ctx context.Context, id string) (game.State, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

func normalizeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrInvalidID
	}
	return id, nil
}

func encode(st game.State) ([]byte, error) {
	if st.Creatures == nil {
		st.Creatures = []game.Creature{}
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return raw, nil
}

func decode(raw []byte) (game.State, error) {
	var st game.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return game.State{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if st.Creatures == nil {
		st.Creatures = []game.Creature{}
	}
	return st, nil
}
