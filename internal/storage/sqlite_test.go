package storage

import (
	"errors"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

// TestMigrationsOrdered verifies migrations are applied in ascending numeric order.
func TestMigrationsOrdered(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(versions) == 0 {
		t.Fatal("expected at least one applied migration")
	}

	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Errorf("migrations not in ascending order: %v", versions)
			break
		}
	}
}

func TestSetAndGetItem(t *testing.T) {
	s := openTestStore(t)

	if err := s.SetItem("assignments", `[{"title":"essay"}]`); err != nil {
		t.Fatalf("SetItem: %v", err)
	}

	got, err := s.GetItem("assignments")
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got != `[{"title":"essay"}]` {
		t.Errorf("GetItem = %q, want %q", got, `[{"title":"essay"}]`)
	}
}

func TestSetItemOverwrites(t *testing.T) {
	s := openTestStore(t)

	if err := s.SetItem("theme", "light"); err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	if err := s.SetItem("theme", "dark"); err != nil {
		t.Fatalf("SetItem (overwrite): %v", err)
	}

	got, err := s.GetItem("theme")
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got != "dark" {
		t.Errorf("GetItem = %q, want %q", got, "dark")
	}
}

func TestGetItemNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetItem("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetItem(missing) error = %v, want ErrNotFound", err)
	}
}

func TestHasItem(t *testing.T) {
	s := openTestStore(t)

	ok, err := s.HasItem("x")
	if err != nil {
		t.Fatalf("HasItem: %v", err)
	}
	if ok {
		t.Error("HasItem(x) = true before set")
	}

	if err := s.SetItem("x", "1"); err != nil {
		t.Fatalf("SetItem: %v", err)
	}

	ok, err = s.HasItem("x")
	if err != nil {
		t.Fatalf("HasItem: %v", err)
	}
	if !ok {
		t.Error("HasItem(x) = false after set")
	}
}

func TestKeysAndItems(t *testing.T) {
	s := openTestStore(t)

	want := map[string]string{
		"assignments": `[]`,
		"settings":    `{"theme":"dark"}`,
		"motd":        "hello",
	}
	for k, v := range want {
		if err := s.SetItem(k, v); err != nil {
			t.Fatalf("SetItem(%q): %v", k, err)
		}
	}

	keys, err := s.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != len(want) {
		t.Fatalf("Keys returned %d keys, want %d", len(keys), len(want))
	}

	items, err := s.Items()
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	for k, v := range want {
		if items[k] != v {
			t.Errorf("Items[%q] = %q, want %q", k, items[k], v)
		}
	}
}

func TestRemoveItem(t *testing.T) {
	s := openTestStore(t)

	if err := s.SetItem("x", "1"); err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	if err := s.RemoveItem("x"); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if _, err := s.GetItem("x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetItem after remove error = %v, want ErrNotFound", err)
	}

	if err := s.RemoveItem("x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("RemoveItem(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSaveAndListBackupRecords(t *testing.T) {
	s := openTestStore(t)

	now := time.Now().UTC().Truncate(time.Second)
	recs := []BackupRecord{
		{ID: "b1", Kind: "export", KeysTotal: 3, CreatedAt: now.Add(-time.Minute)},
		{ID: "b2", Kind: "import", Policy: "add-only", KeysAdded: 1, KeysTotal: 2, CreatedAt: now},
	}
	for _, rec := range recs {
		if err := s.SaveBackupRecord(rec); err != nil {
			t.Fatalf("SaveBackupRecord(%s): %v", rec.ID, err)
		}
	}

	got, err := s.ListBackupRecords(10)
	if err != nil {
		t.Fatalf("ListBackupRecords: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListBackupRecords returned %d records, want 2", len(got))
	}

	// Newest first.
	if got[0].ID != "b2" {
		t.Errorf("first record ID = %q, want %q", got[0].ID, "b2")
	}
	if got[0].Policy != "add-only" {
		t.Errorf("Policy = %q, want %q", got[0].Policy, "add-only")
	}
	if got[0].KeysAdded != 1 {
		t.Errorf("KeysAdded = %d, want 1", got[0].KeysAdded)
	}
	if !got[0].CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", got[0].CreatedAt, now)
	}
}

func TestListBackupRecordsLimit(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 5; i++ {
		rec := BackupRecord{
			ID:        string(rune('a' + i)),
			Kind:      "export",
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		if err := s.SaveBackupRecord(rec); err != nil {
			t.Fatalf("SaveBackupRecord: %v", err)
		}
	}

	got, err := s.ListBackupRecords(3)
	if err != nil {
		t.Fatalf("ListBackupRecords: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("ListBackupRecords(3) returned %d records", len(got))
	}
}
