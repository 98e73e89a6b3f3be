package revisions

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestVersionLifecycle(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)

	history, err := svc.History("user-1", "blueprint", 10)
	if err != nil {
		t.Fatalf("History() on empty error = %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %d", len(history))
	}

	first, err := svc.SaveVersion("user-1", "blueprint", Snapshot{
		Form:       "blueprint",
		Completion: 20,
		Fields:     map[string]string{"purpose_statement": "Serve founders"},
	}, "Avery", "First pass")
	if err != nil {
		t.Fatalf("SaveVersion() error = %v", err)
	}
	if first.Hash == "" || first.Name != "First pass" || first.Author != "Avery" {
		t.Fatalf("unexpected version: %+v", first)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "user-1", "blueprint", ".git")); err != nil {
		t.Fatalf("repo directory missing: %v", err)
	}

	second, err := svc.SaveVersion("user-1", "blueprint", Snapshot{
		Form:       "blueprint",
		Completion: 40,
		Fields:     map[string]string{"purpose_statement": "Serve founders", "ideal_client": "Coaches"},
	}, "Avery", "With client")
	if err != nil {
		t.Fatalf("SaveVersion() error = %v", err)
	}

	history, err = svc.History("user-1", "blueprint", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 || history[0].Hash != second.Hash || history[1].Hash != first.Hash {
		t.Fatalf("unexpected history order: %+v", history)
	}

	snapshot, version, err := svc.Get("user-1", "blueprint", first.Hash)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if version.Name != "First pass" || snapshot.Completion != 20 || snapshot.Fields["purpose_statement"] != "Serve founders" {
		t.Fatalf("unexpected snapshot: %+v %+v", snapshot, version)
	}
	if _, ok := snapshot.Fields["ideal_client"]; ok {
		t.Fatal("older version must not contain later fields")
	}
}

func TestSaveUnchangedSnapshotStillRecordsVersion(t *testing.T) {
	svc := New(t.TempDir())
	snap := Snapshot{Form: "offers", Fields: map[string]string{"offer_name": "Reset"}}
	if _, err := svc.SaveVersion("u", "offers", snap, "Avery", "one"); err != nil {
		t.Fatalf("SaveVersion() error = %v", err)
	}
	if _, err := svc.SaveVersion("u", "offers", snap, "Avery", ""); err != nil {
		t.Fatalf("SaveVersion() unchanged error = %v", err)
	}
	history, err := svc.History("u", "offers", 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected two versions, got %d", len(history))
	}
	if history[0].Name == "" {
		t.Fatal("expected default name for unnamed version")
	}
}

func TestGetUnknownVersion(t *testing.T) {
	svc := New(t.TempDir())
	if _, _, err := svc.Get("u", "offers", "abc1234"); !errors.Is(err, ErrVersionNotFound) {
		t.Fatalf("expected ErrVersionNotFound without repo, got %v", err)
	}
	if _, err := svc.SaveVersion("u", "offers", Snapshot{Form: "offers"}, "Avery", "x"); err != nil {
		t.Fatalf("SaveVersion() error = %v", err)
	}
	if _, _, err := svc.Get("u", "offers", "deadbee"); !errors.Is(err, ErrVersionNotFound) {
		t.Fatalf("expected ErrVersionNotFound, got %v", err)
	}
}

func TestRejectsUnsafePaths(t *testing.T) {
	svc := New(t.TempDir())
	for _, pair := range [][2]string{{"../other", "blueprint"}, {"u", "../../etc"}, {"", "blueprint"}} {
		if _, err := svc.SaveVersion(pair[0], pair[1], Snapshot{}, "Avery", "x"); !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("SaveVersion(%q, %q): expected ErrInvalidPath, got %v", pair[0], pair[1], err)
		}
	}
}

func TestConcurrentSaves(t *testing.T) {
	svc := New(t.TempDir())

	const writers = 8
	var wg sync.WaitGroup
	errCh := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			snap := Snapshot{Form: "blueprint", Fields: map[string]string{"purpose_statement": fmt.Sprintf("p-%02d", idx)}}
			if _, err := svc.SaveVersion("u", "blueprint", snap, "Avery", fmt.Sprintf("v%02d", idx)); err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("SaveVersion() concurrent error = %v", err)
	}

	history, err := svc.History("u", "blueprint", 100)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != writers {
		t.Fatalf("expected %d versions, got %d", writers, len(history))
	}
}

func TestDiff(t *testing.T) {
	changes := Diff(
		map[string]string{"a": "1", "b": "2", "c": "3"},
		map[string]string{"a": "1", "b": "two", "d": "4"},
	)
	want := []FieldChange{
		{Key: "b", Before: "2", After: "two"},
		{Key: "c", Before: "3", After: ""},
		{Key: "d", Before: "", After: "4"},
	}
	if len(changes) != len(want) {
		t.Fatalf("unexpected changes: %+v", changes)
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Fatalf("change %d = %+v, want %+v", i, changes[i], want[i])
		}
	}
}

func TestSanitizeEmail(t *testing.T) {
	if got := sanitizeEmail("Avery Q-Smith!"); got != "Avery.Q.Smith" {
		t.Fatalf("unexpected sanitized value %q", got)
	}
	if got := sanitizeEmail("!!!"); got != "member" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
