package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hireloop/interview-cli/internal/interview"
)

func TestSnapshotRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	snap := Snapshot{
		CurrentQuestion:  "Describe your design process.",
		CurrentTopic:     "process",
		Progress:         &interview.Progress{QuestionsAsked: 2, MaxQuestions: 5},
		RemainingSeconds: 180,
		Initialized:      true,
	}

	if err := store.Save("abc123", snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load("abc123", DefaultFreshness)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.CurrentQuestion != snap.CurrentQuestion {
		t.Fatalf("question mismatch: %q", loaded.CurrentQuestion)
	}
	if loaded.CurrentTopic != snap.CurrentTopic {
		t.Fatalf("topic mismatch: %q", loaded.CurrentTopic)
	}
	if loaded.Progress == nil || loaded.Progress.QuestionsAsked != 2 {
		t.Fatalf("progress mismatch: %+v", loaded.Progress)
	}
	if loaded.RemainingSeconds != 180 {
		t.Fatalf("remaining mismatch: %d", loaded.RemainingSeconds)
	}
	if loaded.SavedAt.IsZero() {
		t.Fatalf("expected SavedAt to be stamped")
	}
}

func TestSnapshotStaleness(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	snap := Snapshot{
		SavedAt:          time.Now().Add(-time.Hour),
		CurrentQuestion:  "old question",
		RemainingSeconds: 100,
	}
	if err := store.Save("abc123", snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := store.Load("abc123", DefaultFreshness); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot for stale snapshot, got %v", err)
	}
}

func TestSnapshotMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	if _, err := store.Load("nope", DefaultFreshness); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot for missing file, got %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("writing corrupt file: %v", err)
	}
	if _, err := store.Load("bad", DefaultFreshness); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot for corrupt file, got %v", err)
	}
}

func TestSnapshotDelete(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	if err := store.Save("abc123", Snapshot{CurrentQuestion: "q"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete("abc123"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Load("abc123", DefaultFreshness); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected snapshot gone, got %v", err)
	}

	// Deleting again is fine.
	if err := store.Delete("abc123"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}
