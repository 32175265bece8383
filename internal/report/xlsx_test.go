package report

import (
	"testing"
	"time"

	"github.com/contentcoach/coachbot/internal/agent"
	"github.com/contentcoach/coachbot/internal/course"
)

func TestBuildWorkbook(t *testing.T) {
	m := course.Map{
		Shape: course.ShapeHierarchical,
		Sections: []course.Section{
			{
				ID:    "phase-1",
				Title: "Phase 1",
				Items: []course.Item{
					{ID: "phase-1/a", Title: "A"},
					{ID: "phase-1/b", Title: "B"},
				},
			},
			{
				ID:    "phase-2",
				Title: "Phase 2",
				Items: []course.Item{
					{ID: "phase-2/c", Title: "C"},
				},
			},
		},
	}
	rows := []agent.Progress{
		{BotID: "bot", SessionID: "sess-1", CompletedIDs: []string{"phase-1/a"}, UpdatedAt: time.Now()},
		{BotID: "bot", SessionID: "sess-2", CompletedIDs: []string{"phase-1/a", "phase-1/b", "phase-2/c"}, UpdatedAt: time.Now()},
	}

	wb, err := BuildWorkbook(m, rows)
	if err != nil {
		t.Fatalf("BuildWorkbook() error = %v", err)
	}
	defer wb.Close()

	cell := func(ref string) string {
		t.Helper()
		v, err := wb.GetCellValue(sheetName, ref)
		if err != nil {
			t.Fatalf("GetCellValue(%s): %v", ref, err)
		}
		return v
	}

	if got := cell("A1"); got != "Session" {
		t.Errorf("A1 = %q, want Session", got)
	}
	if got := cell("E1"); got != "Phase 1" {
		t.Errorf("E1 = %q, want Phase 1", got)
	}
	if got := cell("F1"); got != "Phase 2" {
		t.Errorf("F1 = %q, want Phase 2", got)
	}

	if got := cell("A2"); got != "sess-1" {
		t.Errorf("A2 = %q, want sess-1", got)
	}
	if got := cell("B2"); got != "1" {
		t.Errorf("B2 = %q, want 1", got)
	}
	if got := cell("C2"); got != "3" {
		t.Errorf("C2 = %q, want 3", got)
	}
	if got := cell("E2"); got != "1/2" {
		t.Errorf("E2 = %q, want 1/2", got)
	}

	if got := cell("E3"); got != "2/2" {
		t.Errorf("E3 = %q, want 2/2", got)
	}
	if got := cell("F3"); got != "1/1" {
		t.Errorf("F3 = %q, want 1/1", got)
	}
}

func TestBuildWorkbook_EmptyCourse(t *testing.T) {
	wb, err := BuildWorkbook(course.Map{}, nil)
	if err != nil {
		t.Fatalf("BuildWorkbook() error = %v", err)
	}
	defer wb.Close()

	got, err := wb.GetCellValue(sheetName, "A1")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Session" {
		t.Errorf("A1 = %q, want header row even with no phases", got)
	}
}
