package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hireloop/interview-cli/internal/interview"
)

// DefaultFreshness is how long a saved snapshot stays usable for resuming.
const DefaultFreshness = 30 * time.Minute

// ErrNoSnapshot is returned when no usable snapshot exists for a session.
var ErrNoSnapshot = errors.New("no usable session snapshot")

// Snapshot is the state persisted after every successful step so an
// interrupted run can resume where it left off.
type Snapshot struct {
	SavedAt          time.Time           `json:"saved_at"`
	CurrentQuestion  string              `json:"current_question"`
	CurrentTopic     string              `json:"current_topic"`
	Progress         *interview.Progress `json:"progress,omitempty"`
	RemainingSeconds int                 `json:"remaining_seconds"`
	Initialized      bool                `json:"initialized"`
}

// Store persists one JSON snapshot per session code under a state directory.
type Store struct {
	dir string
}

// NewStore creates the state directory if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("state directory is required")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	return &Store{dir: dir}, nil
}

func (s *Store) path(sessionID string) string {
	// Session codes are opaque; Base guards against path traversal anyway.
	return filepath.Join(s.dir, filepath.Base(sessionID)+".json")
}

// Save overwrites the snapshot for the session. SavedAt is stamped when zero.
func (s *Store) Save(sessionID string, snap Snapshot) error {
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	if err := os.WriteFile(s.path(sessionID), data, 0o600); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}

	return nil
}

// Load returns the snapshot for the session when it exists and is younger
// than maxAge. Missing, corrupt and stale snapshots all yield ErrNoSnapshot.
func (s *Store) Load(sessionID string, maxAge time.Duration) (*Snapshot, error) {
	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		return nil, ErrNoSnapshot
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, ErrNoSnapshot
	}

	if maxAge <= 0 {
		maxAge = DefaultFreshness
	}
	if snap.SavedAt.IsZero() || time.Since(snap.SavedAt) > maxAge {
		return nil, ErrNoSnapshot
	}

	return &snap, nil
}

// Delete removes the snapshot for the session. A missing file is not an error.
func (s *Store) Delete(sessionID string) error {
	err := os.Remove(s.path(sessionID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing snapshot: %w", err)
	}
	return nil
}
