package sessionstate

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func TestWithTouchedDedupes(t *testing.T) {
	state := New().WithTouched("a.ts", "b.ts").WithTouched("a.ts", "c.ts")

	want := []string{"a.ts", "b.ts", "c.ts"}
	if len(state.FilesTouched) != len(want) {
		t.Fatalf("FilesTouched = %v, want %v", state.FilesTouched, want)
	}
	for i, f := range want {
		if state.FilesTouched[i] != f {
			t.Errorf("FilesTouched[%d] = %q, want %q", i, state.FilesTouched[i], f)
		}
	}
}

func TestTransitionsDoNotMutateReceiver(t *testing.T) {
	original := New()
	_ = original.WithTouched("a.ts")
	_ = original.WithPassing("a.test.ts")
	_ = original.WithFailure("b.test.ts", "boom")

	if len(original.FilesTouched) != 0 ||
		len(original.Tests.PassingFiles) != 0 ||
		len(original.Tests.FailingFiles) != 0 ||
		len(original.Tests.PendingFixes) != 0 {
		t.Errorf("receiver was mutated: %+v", original)
	}
}

func TestWithFailureTracksPendingFixOnce(t *testing.T) {
	state := New().
		WithFailure("x.test.ts", "assertion failed").
		WithFailure("x.test.ts", "assertion failed again")

	if len(state.Tests.FailingFiles) != 1 {
		t.Errorf("FailingFiles = %v, want one entry", state.Tests.FailingFiles)
	}
	if len(state.Tests.PendingFixes) != 1 {
		t.Fatalf("PendingFixes = %v, want one entry", state.Tests.PendingFixes)
	}

	fix := state.Tests.PendingFixes[0]
	if fix.TestFile != "x.test.ts" || fix.Error != "assertion failed" || fix.FixAttempts != 0 {
		t.Errorf("PendingFix = %+v, want first failure recorded with zero attempts", fix)
	}
}

func TestWithPassingMerges(t *testing.T) {
	state := New().WithPassing("a.test.ts").WithPassing("a.test.ts", "b.test.ts")

	if len(state.Tests.PassingFiles) != 2 {
		t.Errorf("PassingFiles = %v, want 2 entries", state.Tests.PassingFiles)
	}
}

func TestUnknownKeysRoundTrip(t *testing.T) {
	doc := `{
		"tests": {"passingFiles": ["a.test.ts"], "failingFiles": [], "pendingFixes": []},
		"filesTouched": ["a.ts"],
		"hostOwned": {"nested": [1, 2, 3]},
		"schemaVersion": 4
	}`

	var state State
	if err := json.Unmarshal([]byte(doc), &state); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	mutated := state.WithTouched("b.ts")
	out, err := json.Marshal(mutated)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var round map[string]json.RawMessage
	if err := json.Unmarshal(out, &round); err != nil {
		t.Fatalf("re-unmarshal: %v", err)
	}
	if _, ok := round["hostOwned"]; !ok {
		t.Error("hostOwned key was dropped on round-trip")
	}
	if string(round["schemaVersion"]) != "4" {
		t.Errorf("schemaVersion = %s, want 4", round["schemaVersion"])
	}
	if !strings.Contains(string(out), `"b.ts"`) {
		t.Error("mutation lost on round-trip")
	}
}

func TestStoreLoadMissingFile(t *testing.T) {
	store := NewStore(t.TempDir(), nil)

	state, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(state.FilesTouched) != 0 || len(state.Tests.PassingFiles) != 0 {
		t.Errorf("expected empty state, got %+v", state)
	}
}

func TestStoreLoadCorruptFile(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	if err := os.WriteFile(store.StatePath(), []byte("not json"), 0644); err != nil {
		t.Fatalf("write garbage: %v", err)
	}

	state, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(state.Tests.PendingFixes) != 0 {
		t.Errorf("expected empty state from corrupt file, got %+v", state)
	}
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir(), nil)

	state := New().
		WithTouched("src/x.ts").
		WithPassing("src/x.test.ts").
		WithFailure("src/y.test.ts", "timeout")

	if err := store.Save(state); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.FilesTouched) != 1 || loaded.FilesTouched[0] != "src/x.ts" {
		t.Errorf("FilesTouched = %v", loaded.FilesTouched)
	}
	if len(loaded.Tests.PassingFiles) != 1 || len(loaded.Tests.FailingFiles) != 1 {
		t.Errorf("Tests = %+v", loaded.Tests)
	}
	if len(loaded.Tests.PendingFixes) != 1 || loaded.Tests.PendingFixes[0].Error != "timeout" {
		t.Errorf("PendingFixes = %+v", loaded.Tests.PendingFixes)
	}
}

func TestStoreSavePreservesHostKeysWrittenMeanwhile(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, nil)

	ours, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Host runtime writes its own document between our load and save.
	host := `{"hostOwned": true, "tests": {"passingFiles": [], "failingFiles": [], "pendingFixes": []}}`
	if err := os.WriteFile(store.StatePath(), []byte(host), 0644); err != nil {
		t.Fatalf("host write: %v", err)
	}

	if err := store.Save(ours.WithTouched("z.ts")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(store.StatePath())
	if err != nil {
		t.Fatalf("read state: %v", err)
	}
	if !strings.Contains(string(data), `"hostOwned"`) {
		t.Error("host-owned key clobbered by Save")
	}
	if !strings.Contains(string(data), `"z.ts"`) {
		t.Error("engine-owned mutation missing after Save")
	}
}
