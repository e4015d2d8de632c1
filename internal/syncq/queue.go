// Package syncq keeps writes the CLI could not deliver so `wl sync` can
// replay them later under their original idempotency keys.
package syncq

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

const fileName = "queue.json"

// Command is one undelivered write.
type Command struct {
	Method         string         `json:"method"`
	Path           string         `json:"path"`
	Body           map[string]any `json:"body,omitempty"`
	IdempotencyKey string         `json:"idempotency_key"`
}

// Outcome tells Drain what to do with a replayed command.
type Outcome int

const (
	Delivered Outcome = iota
	Rejected
	Retry
)

type Queue struct {
	path string
}

// Open binds a queue to dir/queue.json. The file is created on first write.
func Open(dir string) *Queue {
	return &Queue{path: filepath.Join(dir, fileName)}
}

func (q *Queue) Path() string { return q.path }

func (q *Queue) Load() ([]Command, error) {
	raw, err := os.ReadFile(q.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return []Command{}, nil
	case err != nil:
		return nil, err
	case len(raw) == 0:
		return []Command{}, nil
	}
	var out []Command
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Replace overwrites the queue. The file is swapped in with a rename so a
// crash mid-write never leaves a truncated queue behind.
func (q *Queue) Replace(commands []Command) error {
	if commands == nil {
		commands = []Command{}
	}
	raw, err := json.MarshalIndent(commands, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(q.path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(q.path), fileName+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), q.path)
}

// Push appends cmd unless a command with the same idempotency key is
// already queued. It reports whether cmd was added.
func (q *Queue) Push(cmd Command) (bool, error) {
	commands, err := q.Load()
	if err != nil {
		return false, err
	}
	if cmd.IdempotencyKey != "" {
		for _, c := range commands {
			if c.IdempotencyKey == cmd.IdempotencyKey {
				return false, nil
			}
		}
	}
	return true, q.Replace(append(commands, cmd))
}

// Drain replays every queued command in order through send and keeps only
// the ones it answers Retry for.
func (q *Queue) Drain(send func(Command) Outcome) (delivered int, remaining []Command, err error) {
	commands, err := q.Load()
	if err != nil {
		return 0, nil, err
	}
	remaining = make([]Command, 0, len(commands))
	for _, c := range commands {
		switch send(c) {
		case Delivered:
			delivered++
		case Retry:
			remaining = append(remaining, c)
		}
	}
	if err := q.Replace(remaining); err != nil {
		return delivered, remaining, err
	}
	return delivered, remaining, nil
}
