package storage

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"rebootreminder/internal/models"
)

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := Open(path, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err != nil {
		t.Fatal(err)
	}
	return s, path
}

func TestOpenEmpty(t *testing.T) {
	s, _ := testStore(t)
	if _, ok := s.CurrentState(); ok {
		t.Fatal("expected no state in a fresh store")
	}
	if got := s.History(0); len(got) != 0 {
		t.Fatalf("expected empty history, got %d", len(got))
	}
}

func TestSaveStateRoundTrip(t *testing.T) {
	s, path := testStore(t)

	state := models.NewRebootState(true, false)
	state.Sources = []models.RebootSource{
		models.NewRebootSource("windows_update", "Windows Update requires a reboot", models.SeverityRequired),
	}
	state.RebootReason = "Windows Update requires a reboot"
	if err := s.SaveState(state); err != nil {
		t.Fatal(err)
	}

	// Re-open from disk to verify persistence.
	reopened, err := Open(path, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err != nil {
		t.Fatal(err)
	}
	got, ok := reopened.CurrentState()
	if !ok {
		t.Fatal("expected state after reopen")
	}
	if got.ID != state.ID || !got.RebootRequired || len(got.Sources) != 1 {
		t.Fatalf("reopened state = %+v", got)
	}
	if got.RebootRequiredSince == nil {
		t.Fatal("RebootRequiredSince lost on round trip")
	}
}

func TestCurrentStateReturnsCopy(t *testing.T) {
	s, _ := testStore(t)

	state := models.NewRebootState(true, false)
	state.Sources = []models.RebootSource{
		models.NewRebootSource("sccm", "SCCM requires a reboot", models.SeverityRequired),
	}
	if err := s.SaveState(state); err != nil {
		t.Fatal(err)
	}

	first, _ := s.CurrentState()
	first.RebootRequired = false
	first.Sources[0].Name = "mutated"

	second, _ := s.CurrentState()
	if !second.RebootRequired {
		t.Error("mutating a returned state leaked into the store")
	}
	if second.Sources[0].Name != "sccm" {
		t.Error("mutating a returned source list leaked into the store")
	}
}

func TestAppendAndLimit(t *testing.T) {
	s, _ := testStore(t)

	for i := 0; i < 5; i++ {
		h := models.NewRebootHistory(time.Now().UTC(), true)
		if err := s.AppendHistory(h); err != nil {
			t.Fatal(err)
		}
	}
	if got := s.History(0); len(got) != 5 {
		t.Fatalf("History(0) = %d records, want 5", len(got))
	}
	if got := s.History(2); len(got) != 2 {
		t.Fatalf("History(2) = %d records, want 2", len(got))
	}

	n := models.NewNotification("reboot_required", "please reboot", "alice")
	if err := s.AppendNotification(n); err != nil {
		t.Fatal(err)
	}
	i := models.NewNotificationInteraction(n.ID, "defer:1h")
	if err := s.AppendInteraction(i); err != nil {
		t.Fatal(err)
	}
	if got := s.Notifications(10); len(got) != 1 || got[0].ID != n.ID {
		t.Fatalf("Notifications = %+v", got)
	}
	if got := s.Interactions(10); len(got) != 1 || got[0].NotificationID != n.ID {
		t.Fatalf("Interactions = %+v", got)
	}
}

func TestPersistLeavesNoTempFile(t *testing.T) {
	s, path := testStore(t)
	if err := s.SaveState(models.NewRebootState(false, false)); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("store file missing: %v", err)
	}
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path, slog.New(slog.NewTextHandler(os.Stderr, nil))); err == nil {
		t.Fatal("expected error for corrupt store")
	}
}
