package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func makeEntry(id string) Entry {
	return Entry{
		AgentID:     id,
		AgentType:   "backend-engineer",
		SessionID:   "sess-1",
		Cwd:         "/home/user/project",
		ProjectName: "project",
		StartedAt:   time.Now().UTC(),
	}
}

func TestRegisterPopRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir(), nil)

	entry := makeEntry("a1")
	entry.GitBranch = "main"
	entry.TaskDescription = "implement the widget"

	if err := store.Register(entry); err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, err := store.Pop("a1")
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if got == nil {
		t.Fatal("Pop returned nil for registered agent")
	}
	if got.AgentID != "a1" || got.AgentType != "backend-engineer" ||
		got.GitBranch != "main" || got.TaskDescription != "implement the widget" {
		t.Errorf("popped entry = %+v, does not match registered entry", got)
	}

	// Second pop on the same ID is "already gone", not an error.
	again, err := store.Pop("a1")
	if err != nil {
		t.Fatalf("second Pop: %v", err)
	}
	if again != nil {
		t.Errorf("second Pop returned %+v, want nil", again)
	}
}

func TestPopUnknownAgent(t *testing.T) {
	store := NewStore(t.TempDir(), nil)

	got, err := store.Pop("never-registered")
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if got != nil {
		t.Errorf("Pop returned %+v, want nil", got)
	}
}

func TestRegisterSameIDLastWriteWins(t *testing.T) {
	store := NewStore(t.TempDir(), nil)

	first := makeEntry("a1")
	first.TaskDescription = "first attempt"
	second := makeEntry("a1")
	second.TaskDescription = "retried spawn"

	if err := store.Register(first); err != nil {
		t.Fatalf("Register first: %v", err)
	}
	if err := store.Register(second); err != nil {
		t.Fatalf("Register second: %v", err)
	}

	got, err := store.Pop("a1")
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if got == nil || got.TaskDescription != "retried spawn" {
		t.Errorf("popped entry = %+v, want the retried registration", got)
	}
}

func TestCleanupStale(t *testing.T) {
	store := NewStore(t.TempDir(), nil)

	stale := makeEntry("old")
	stale.StartedAt = time.Now().Add(-25 * time.Hour)
	fresh := makeEntry("new")

	if err := store.Register(stale); err != nil {
		t.Fatalf("Register stale: %v", err)
	}
	if err := store.Register(fresh); err != nil {
		t.Fatalf("Register fresh: %v", err)
	}

	removed, err := store.CleanupStale(24 * time.Hour)
	if err != nil {
		t.Fatalf("CleanupStale: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	if got, _ := store.Pop("old"); got != nil {
		t.Error("stale entry survived cleanup")
	}
	if got, _ := store.Pop("new"); got == nil {
		t.Error("fresh entry was evicted by cleanup")
	}
}

func TestCleanupStaleNothingToRemove(t *testing.T) {
	store := NewStore(t.TempDir(), nil)

	if err := store.Register(makeEntry("a1")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	removed, err := store.CleanupStale(24 * time.Hour)
	if err != nil {
		t.Fatalf("CleanupStale: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
}

func TestCorruptRegistryFileRecovers(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, nil)

	if err := os.WriteFile(store.StatePath(), []byte("{{{not json"), 0644); err != nil {
		t.Fatalf("write garbage: %v", err)
	}

	if err := store.Register(makeEntry("a1")); err != nil {
		t.Fatalf("Register after corruption: %v", err)
	}

	snap, err := store.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Agents) != 1 {
		t.Errorf("registry has %d entries, want exactly the new one", len(snap.Agents))
	}
	if _, ok := snap.Agents["a1"]; !ok {
		t.Error("newly registered entry missing after corruption recovery")
	}
}

func TestWrongShapeRegistryFileRecovers(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"array top level", `[1, 2, 3]`},
		{"agents is a string", `{"agents": "hello"}`},
		{"agents is an array", `{"agents": [{"agent_id": "a1"}]}`},
		{"agents is null", `{"agents": null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			store := NewStore(dir, nil)

			if err := os.WriteFile(store.StatePath(), []byte(tt.content), 0644); err != nil {
				t.Fatalf("write state file: %v", err)
			}

			snap, err := store.Snapshot()
			if err != nil {
				t.Fatalf("Snapshot: %v", err)
			}
			if len(snap.Agents) != 0 {
				t.Errorf("got %d agents from malformed file, want 0", len(snap.Agents))
			}
		})
	}
}

// TestConcurrentRegisterNoLostUpdates guards against the classic
// read-mutate-write race: each writer uses its own Store handle, as
// separate hook processes would, and every registration must survive.
func TestConcurrentRegisterNoLostUpdates(t *testing.T) {
	dir := t.TempDir()

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			store := NewStore(dir, nil)
			if err := store.Register(makeEntry(fmt.Sprintf("agent-%d", n))); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Register: %v", err)
	}

	snap, err := NewStore(dir, nil).Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Agents) != writers {
		t.Errorf("registry has %d entries after %d concurrent registers", len(snap.Agents), writers)
	}
}

func TestConcurrentPopRemovesExactlyOnce(t *testing.T) {
	dir := t.TempDir()
	setup := NewStore(dir, nil)
	if err := setup.Register(makeEntry("contested")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	const poppers = 8
	var wg sync.WaitGroup
	found := make(chan *Entry, poppers)

	for i := 0; i < poppers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store := NewStore(dir, nil)
			entry, err := store.Pop("contested")
			if err != nil {
				t.Errorf("Pop: %v", err)
				return
			}
			if entry != nil {
				found <- entry
			}
		}()
	}
	wg.Wait()
	close(found)

	winners := 0
	for range found {
		winners++
	}
	if winners != 1 {
		t.Errorf("%d poppers got the entry, want exactly 1", winners)
	}
}

func TestPersistedFileShape(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, nil)

	if err := store.Register(makeEntry("a1")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "agents.json"))
	if err != nil {
		t.Fatalf("read agents.json: %v", err)
	}

	// The file is meant to be human-inspectable; spot-check the layout.
	for _, want := range []string{`"agents"`, `"last_updated"`, `"agent_id": "a1"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("agents.json missing %s:\n%s", want, data)
		}
	}
}
