package preset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"clipforge/internal/services"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func userPreset(name string) *Preset {
	return &Preset{
		Name:          name,
		SchemaVersion: SchemaV2,
		Operations:    []Operation{{Name: "rotate", Params: map[string]any{"angle": 90}}},
	}
}

func TestSeedingIsIdempotent(t *testing.T) {
	root := t.TempDir()
	store, err := NewStore(root, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	// Edit a system file on disk, then re-open; seeding must not overwrite.
	path, err := store.pathFor("Vertical Short", NamespaceSystem)
	if err != nil {
		t.Fatalf("pathFor: %v", err)
	}
	marker := []byte(`{"name":"Vertical Short","schema_version":"2.0","operations":[]}`)
	if err := os.WriteFile(path, marker, 0o644); err != nil {
		t.Fatalf("write marker: %v", err)
	}

	if _, err := NewStore(root, nil); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != string(marker) {
		t.Error("re-seeding overwrote an existing system preset file")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save(userPreset("My Edit"), NamespaceUser); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load("My Edit", NamespaceUser)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Name != "My Edit" || len(loaded.Operations) != 1 {
		t.Errorf("loaded preset mismatch: %+v", loaded)
	}
	if loaded.CreatedAt.IsZero() || loaded.ModifiedAt.IsZero() {
		t.Error("save should stamp created/modified times")
	}
}

func TestLoadMissingIsNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Load("Nothing Here", NamespaceUser)
	if !errors.Is(err, services.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveIntoSystemRefused(t *testing.T) {
	store := newTestStore(t)
	err := store.Save(userPreset("Sneaky"), NamespaceSystem)
	if !errors.Is(err, services.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestDeleteSystemRefused(t *testing.T) {
	store := newTestStore(t)
	err := store.Delete("Vertical Short", NamespaceSystem)
	if !errors.Is(err, services.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestDeleteRemovesFromList(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save(userPreset("Short Lived"), NamespaceUser); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete("Short Lived", NamespaceUser); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	summaries, err := store.List(NamespaceUser)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, s := range summaries {
		if s.Name == "Short Lived" {
			t.Error("deleted preset still listed")
		}
	}
	if _, err := store.Load("Short Lived", NamespaceUser); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("deleted preset should be gone from cache too, got %v", err)
	}
}

func TestListAllNamespaces(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save(userPreset("Mine"), NamespaceUser); err != nil {
		t.Fatalf("Save: %v", err)
	}

	summaries, err := store.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var systemCount, userCount int
	for _, s := range summaries {
		switch s.Namespace {
		case NamespaceSystem:
			systemCount++
		case NamespaceUser:
			userCount++
		}
	}
	if systemCount != len(SystemTemplates()) {
		t.Errorf("system count = %d, want %d", systemCount, len(SystemTemplates()))
	}
	if userCount != 1 {
		t.Errorf("user count = %d, want 1", userCount)
	}
}

func TestDuplicateSystemLandsInUser(t *testing.T) {
	store := newTestStore(t)
	if err := store.Duplicate("Vertical Short", NamespaceSystem, "My Vertical"); err != nil {
		t.Fatalf("Duplicate: %v", err)
	}
	dup, err := store.Load("My Vertical", NamespaceUser)
	if err != nil {
		t.Fatalf("Load duplicate: %v", err)
	}
	if len(dup.Operations) != 2 {
		t.Errorf("duplicate should carry source operations, got %d", len(dup.Operations))
	}
	if dup.Author != DefaultAuthor {
		t.Errorf("duplicate author = %q, want %q", dup.Author, DefaultAuthor)
	}
}

func TestMoveRefusedForSystem(t *testing.T) {
	store := newTestStore(t)
	if err := store.Move("Vertical Short", NamespaceSystem, NamespaceUser); !errors.Is(err, services.ErrValidation) {
		t.Errorf("move from system should be refused, got %v", err)
	}
	if err := store.Move("x", NamespaceUser, NamespaceSystem); !errors.Is(err, services.ErrValidation) {
		t.Errorf("move into system should be refused, got %v", err)
	}
}

func TestMoveBetweenUserAndImported(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save(userPreset("Traveler"), NamespaceImported); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Move("Traveler", NamespaceImported, NamespaceUser); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, err := store.Load("Traveler", NamespaceUser); err != nil {
		t.Errorf("moved preset missing from target: %v", err)
	}
	if _, err := store.Load("Traveler", NamespaceImported); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("moved preset still present at origin: %v", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save(userPreset("Portable"), NamespaceUser); err != nil {
		t.Fatalf("Save: %v", err)
	}

	exportPath := filepath.Join(t.TempDir(), "portable.json")
	if err := store.ExportToFile("Portable", NamespaceUser, exportPath); err != nil {
		t.Fatalf("Export: %v", err)
	}

	name, err := store.ImportFromFile(exportPath, NamespaceImported)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if name != "Portable" {
		t.Errorf("import should keep the name when free, got %q", name)
	}
}

func TestImportCollisionGetsTimestampSuffix(t *testing.T) {
	store := newTestStore(t)
	store.now = func() time.Time { return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC) }

	if err := store.Save(userPreset("Clash"), NamespaceUser); err != nil {
		t.Fatalf("Save: %v", err)
	}
	exportPath := filepath.Join(t.TempDir(), "clash.json")
	if err := store.ExportToFile("Clash", NamespaceUser, exportPath); err != nil {
		t.Fatalf("Export: %v", err)
	}

	name, err := store.ImportFromFile(exportPath, NamespaceUser)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if name != "Clash 20260314-092653" {
		t.Errorf("collision name = %q, want timestamp suffix", name)
	}
	if _, err := store.Load(name, NamespaceUser); err != nil {
		t.Errorf("suffixed preset should load: %v", err)
	}
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"Plain Name":      "Plain Name",
		"slash/and:colon": "slashandcolon",
		"under_score-ok":  "under_score-ok",
		"  padded  ":      "padded",
	}
	for in, want := range cases {
		if got := SanitizeName(in); got != want {
			t.Errorf("SanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCacheSurvivesExternalDeletion(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save(userPreset("Cached"), NamespaceUser); err != nil {
		t.Fatalf("Save: %v", err)
	}
	path, err := store.pathFor("Cached", NamespaceUser)
	if err != nil {
		t.Fatalf("pathFor: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove file: %v", err)
	}

	// The cache is never invalidated by outside changes within a run.
	if _, err := store.Load("Cached", NamespaceUser); err != nil {
		t.Errorf("cached preset should load despite external deletion, got %v", err)
	}
}
