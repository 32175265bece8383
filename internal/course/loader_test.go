package course

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDefinition(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoader(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "sales.yaml", `id: sales-course
name: Sales Course
assistant_id: asst_1
sections:
  - title: Phase 1
    items:
      - title: The Funnel Doctor
        type: video
      - id: custom/frozen-id
        title: Renamed Later
`)
	writeDefinition(t, dir, "legacy.yml", `id: legacy-course
name: Legacy Course
assistant_id: asst_2
modules:
  - title: Old Module
`)
	writeDefinition(t, dir, "notes.yaml", `just: some other yaml file`)
	writeDefinition(t, dir, "broken.yaml", "\t- not yaml")

	l, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	if got := len(l.All()); got != 2 {
		t.Fatalf("len(All()) = %d, want 2", got)
	}

	def, ok := l.Get("sales-course")
	if !ok {
		t.Fatal("Get(sales-course) not found")
	}
	if def.Sections[0].ID != "phase-1" {
		t.Errorf("section id = %q, want %q", def.Sections[0].ID, "phase-1")
	}
	if def.Sections[0].Items[0].ID != "phase-1/the-funnel-doctor" {
		t.Errorf("item id = %q, want %q", def.Sections[0].Items[0].ID, "phase-1/the-funnel-doctor")
	}
	if def.Sections[0].Items[1].ID != "custom/frozen-id" {
		t.Errorf("authored id regenerated: %q", def.Sections[0].Items[1].ID)
	}

	m := def.CourseMap()
	if m.Shape != ShapeHierarchical {
		t.Errorf("Shape = %v, want hierarchical", m.Shape)
	}

	legacy, ok := l.Get("legacy-course")
	if !ok {
		t.Fatal("Get(legacy-course) not found")
	}
	if legacy.Modules[0].ID != "old-module" {
		t.Errorf("module id = %q, want %q", legacy.Modules[0].ID, "old-module")
	}
	if legacy.CourseMap().Shape != ShapeFlat {
		t.Errorf("legacy shape = %v, want flat", legacy.CourseMap().Shape)
	}
}

func TestLoader_MissingDir(t *testing.T) {
	l, err := NewLoader(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	if got := len(l.All()); got != 0 {
		t.Errorf("len(All()) = %d, want 0", got)
	}
}
