package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"wealthlings/internal/syncq"
)

var ErrNoSession = errors.New("no game in progress")

// Session remembers which server-side game this machine is playing.
type Session struct {
	SessionID  string    `json:"session_id"`
	APIBaseURL string    `json:"api_base_url"`
	StartedAt  time.Time `json:"started_at"`
}

// Profile is the per-user state directory shared by the session pointer,
// the offline queue and the local save file.
type Profile struct {
	Dir string
}

// DefaultProfile lives in ~/.wealthlings.
func DefaultProfile() (Profile, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Profile{}, fmt.Errorf("locate home dir: %w", err)
	}
	return Profile{Dir: filepath.Join(home, ".wealthlings")}, nil
}

func (p Profile) sessionFile() string {
	return filepath.Join(p.Dir, "session.json")
}

func (p Profile) Queue() *syncq.Queue {
	return syncq.Open(p.Dir)
}

func (p Profile) SaveSession(s Session) error {
	s.SessionID = strings.TrimSpace(s.SessionID)
	if s.SessionID == "" {
		return fmt.Errorf("save session: empty session id")
	}
	if err := os.MkdirAll(p.Dir, 0o700); err != nil {
		return err
	}
	body, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p.sessionFile(), body, 0o600)
}

// LoadSession returns ErrNoSession when nothing has been started yet or
// the file has no usable id.
func (p Profile) LoadSession() (Session, error) {
	body, err := os.ReadFile(p.sessionFile())
	if errors.Is(err, fs.ErrNotExist) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, err
	}
	var s Session
	if err := json.Unmarshal(body, &s); err != nil {
		return Session{}, fmt.Errorf("read %s: %w", p.sessionFile(), err)
	}
	if strings.TrimSpace(s.SessionID) == "" {
		return Session{}, ErrNoSession
	}
	return s, nil
}

func (p Profile) ClearSession() error {
	err := os.Remove(p.sessionFile())
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
