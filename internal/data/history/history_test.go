package history

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStore_SaveAndLoadBuilds(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	base := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	builds := []Build{
		{RunID: "r1", Root: "/proj", Timestamp: base, ModuleCount: 5, PackageCount: 2, CyclicGroups: 1, Duration: 40 * time.Millisecond},
		{RunID: "r2", Root: "/proj", Timestamp: base.Add(time.Hour), ModuleCount: 6, EdgeCount: 7, MaxLevel: 3},
		{RunID: "r3", Root: "/other", Timestamp: base.Add(2 * time.Hour), ModuleCount: 1},
	}
	for _, b := range builds {
		if err := store.SaveBuild(b); err != nil {
			t.Fatalf("save %s: %v", b.RunID, err)
		}
	}

	got, err := store.LoadBuilds("/proj", time.Time{}, 0)
	if err != nil {
		t.Fatalf("load builds: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 builds for /proj, got %d", len(got))
	}
	if got[0].RunID != "r2" || got[1].RunID != "r1" {
		t.Fatalf("expected newest first, got %s, %s", got[0].RunID, got[1].RunID)
	}
	if got[0].EdgeCount != 7 || got[0].MaxLevel != 3 {
		t.Fatalf("unexpected roundtrip: %+v", got[0])
	}
	if got[1].Duration != 40*time.Millisecond || got[1].CyclicGroups != 1 {
		t.Fatalf("unexpected roundtrip: %+v", got[1])
	}

	recent, err := store.LoadBuilds("/proj", base.Add(30*time.Minute), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 1 || recent[0].RunID != "r2" {
		t.Fatalf("since filter returned %+v", recent)
	}

	limited, err := store.LoadBuilds("/proj", time.Time{}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected limit 1, got %d", len(limited))
	}
}

func TestStore_SaveBuildUpserts(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if err := store.SaveBuild(Build{RunID: "r1", Root: "/p", ModuleCount: 1}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveBuild(Build{RunID: "r1", Root: "/p", ModuleCount: 9}); err != nil {
		t.Fatal(err)
	}
	got, err := store.LoadBuilds("/p", time.Time{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ModuleCount != 9 {
		t.Fatalf("expected single upserted row, got %+v", got)
	}

	if err := store.SaveBuild(Build{Root: "/p"}); err == nil {
		t.Fatal("expected error for empty run id")
	}
}

func TestStore_OpenRejectsDirectoryPath(t *testing.T) {
	_, err := Open(t.TempDir())
	if err == nil {
		t.Fatal("expected open error for directory path")
	}
	if !strings.Contains(err.Error(), "is a directory") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStore_OpenCorruptDBPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	if err := os.WriteFile(path, []byte("this is not sqlite"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(path)
	if err == nil {
		t.Fatal("expected sqlite open error")
	}
	lower := strings.ToLower(err.Error())
	if !strings.Contains(lower, "not a database") && !strings.Contains(lower, "schema") {
		t.Fatalf("expected schema/open error, got: %v", err)
	}
}

func TestEnsureSchema_DetectsNewerVersionDrift(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := store.db.Exec(`INSERT OR REPLACE INTO schema_migrations(version) VALUES (?)`, SchemaVersion+1); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open(driverName, "file:"+path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	err = EnsureSchema(db)
	if err == nil || !strings.Contains(err.Error(), "newer than supported") {
		t.Fatalf("expected drift error, got %v", err)
	}
}

func TestIsCorruptError(t *testing.T) {
	if !IsCorruptError(errors.New("database disk image is malformed")) {
		t.Fatal("expected malformed sqlite message to be treated as corrupt")
	}
	if IsCorruptError(nil) {
		t.Fatal("nil is not corrupt")
	}
}
