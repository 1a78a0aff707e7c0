// Package testutil provides shared test helpers for databases, storage and
// event capture.
package testutil

import (
	"os"
	"sync"
	"testing"

	"github.com/starford/atrium/internal/search"
	"github.com/starford/atrium/internal/storage"
	"github.com/starford/atrium/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "atrium-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestIndex creates the search index on db.
func TestIndex(t *testing.T, db *store.DB) *search.Index {
	t.Helper()
	ix, err := search.New(db.SQL())
	if err != nil {
		t.Fatal(err)
	}
	return ix
}

// TestStorage creates a temporary data directory with a storage.FS.
func TestStorage(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dataDir := t.TempDir()
	fs, err := storage.NewFS(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	return dataDir, fs
}

// Event is one captured notification.
type Event struct {
	ProjectID string
	Name      string
	Payload   any
}

// Recorder is a notification sink that keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish records the event.
func (r *Recorder) Publish(projectID, event string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{ProjectID: projectID, Name: event, Payload: payload})
	return nil
}

// Events returns a copy of the captured events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns how many events named name were captured.
func (r *Recorder) Count(name string) int {
	n := 0
	for _, e := range r.Events() {
		if e.Name == name {
			n++
		}
	}
	return n
}

// Reset drops captured events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
