package course

import (
	"reflect"
	"testing"
)

func TestFlatten_Hierarchical(t *testing.T) {
	m := Map{
		Shape: ShapeHierarchical,
		Sections: []Section{
			{
				ID:    "phase-1",
				Title: "Phase 1",
				Items: []Item{
					{ID: "phase-1/a", Title: "A"},
					{ID: "", Title: "missing id"},
					{ID: "phase-1/no-title", Title: ""},
					{ID: "phase-1/b", Title: "B"},
				},
			},
			{
				ID:    "phase-2",
				Title: "Phase 2",
				Items: []Item{
					{ID: "phase-2/c", Title: "C"},
				},
			},
		},
	}

	got := m.Flatten()
	want := []FlatItem{
		{ID: "phase-1/a", Title: "A"},
		{ID: "phase-1/b", Title: "B"},
		{ID: "phase-2/c", Title: "C"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Flatten() = %v, want %v", got, want)
	}
}

func TestFlatten_Flat(t *testing.T) {
	m := Map{
		Shape: ShapeFlat,
		Modules: []Module{
			{ID: "intro", Title: "Intro"},
			{ID: "", Title: "skipped"},
			{ID: "closing", Title: "Closing"},
		},
	}

	got := m.Flatten()
	want := []FlatItem{
		{ID: "intro", Title: "Intro"},
		{ID: "closing", Title: "Closing"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Flatten() = %v, want %v", got, want)
	}
}

func TestFlatten_Empty(t *testing.T) {
	if got := (Map{}).Flatten(); len(got) != 0 {
		t.Errorf("Flatten() on empty map = %v, want empty", got)
	}
}

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		name string
		m    Map
		want bool
	}{
		{"zero value", Map{}, true},
		{"flat with modules", Map{Shape: ShapeFlat, Modules: []Module{{ID: "a", Title: "A"}}}, false},
		{"hierarchical no sections", Map{Shape: ShapeHierarchical}, true},
		{"hierarchical with section", Map{Shape: ShapeHierarchical, Sections: []Section{{ID: "s"}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.IsEmpty(); got != tt.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShapeString(t *testing.T) {
	if ShapeFlat.String() != "flat" || ShapeHierarchical.String() != "hierarchical" {
		t.Errorf("Shape.String() = %q/%q", ShapeFlat, ShapeHierarchical)
	}
}
