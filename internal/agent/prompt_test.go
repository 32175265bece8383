package agent

import (
	"strings"
	"testing"

	"github.com/contentcoach/coachbot/internal/course"
)

func TestBuildInstructions_PlaceholderReplaced(t *testing.T) {
	bot := testBot()
	bot.SystemPrompt = "Coach the student.\n\nProgress:\n{{COMPLETED_MODULES_LIST}}\n\nBe kind."

	got := buildInstructions(&bot, []string{"phase-1/a"})

	if strings.Contains(got, progressPlaceholder) {
		t.Error("placeholder survived replacement")
	}
	if strings.Contains(got, "[CONTEXT: USER PROGRESS]") {
		t.Error("appended heading used despite a placeholder being present")
	}
	if !strings.Contains(got, "Overall: 1/2 complete") {
		t.Errorf("progress summary missing:\n%s", got)
	}
	if !strings.Contains(got, "Be kind.") {
		t.Error("prompt text after the placeholder was lost")
	}
}

func TestBuildInstructions_NoPlaceholderAppends(t *testing.T) {
	bot := testBot()
	bot.SystemPrompt = "Coach the student."

	got := buildInstructions(&bot, nil)

	if !strings.HasPrefix(got, "Coach the student.") {
		t.Errorf("prompt not leading the instructions:\n%s", got)
	}
	if !strings.Contains(got, "[CONTEXT: USER PROGRESS]") {
		t.Errorf("appended progress heading missing:\n%s", got)
	}
	if !strings.Contains(got, "[PROGRESS REPORTING RULES]") {
		t.Errorf("reporting rules missing:\n%s", got)
	}
}

func TestBuildInstructions_EmptyPromptGetsDefault(t *testing.T) {
	bot := testBot()
	bot.SystemPrompt = ""

	got := buildInstructions(&bot, nil)
	if !strings.HasPrefix(got, defaultSystemPrompt) {
		t.Errorf("default prompt missing:\n%s", got)
	}
}

func TestBuildInstructions_EmptyCourse(t *testing.T) {
	bot := testBot()
	bot.CourseMap = course.Map{}
	bot.SystemPrompt = "Prompt with {{COMPLETED_MODULES_LIST}} inside."

	got := buildInstructions(&bot, nil)
	if !strings.Contains(got, noProgressText) {
		t.Errorf("empty course should inject %q:\n%s", noProgressText, got)
	}
	if strings.Contains(got, "[PROGRESS REPORTING RULES]") {
		t.Error("rules injected for a course with no modules")
	}
	if strings.Contains(got, "[CURRICULUM STRUCTURE MAP]") {
		t.Error("legend injected for an empty course")
	}
}

func TestBuildInstructions_AllCompleteNote(t *testing.T) {
	bot := testBot()

	got := buildInstructions(&bot, []string{"phase-1/a", "phase-1/b"})
	if !strings.Contains(got, allCompleteNote) {
		t.Errorf("all-complete note missing:\n%s", got)
	}
}

func TestBuildCurriculumLegend_Hierarchical(t *testing.T) {
	m := course.Map{
		Shape: course.ShapeHierarchical,
		Sections: []course.Section{
			{
				ID:    "phase-1",
				Title: "Phase 1",
				Items: []course.Item{
					{ID: "phase-1/welcome", Title: "Welcome", Type: course.ItemVideo, ContextFileID: "file_0_intro.pdf"},
					{ID: "phase-1/guide", Title: "Guide", Type: course.ItemFile, FileID: "file-abc"},
					{ID: "phase-1/quiz", Title: "Quiz", Type: course.ItemQuiz},
					{ID: "phase-1/ref", Title: "Reference", Type: course.ItemLink, ContextFileID: "provider-file-id"},
				},
			},
		},
	}

	got := buildCurriculumLegend(m)
	lines := strings.Split(got, "\n")
	want := []string{
		`> Sidebar Item "Welcome" is derived from file: "intro.pdf"`,
		`> Sidebar Item "Guide" is derived from file: "Guide"`,
		`> Sidebar Item "Reference" is derived from file: "Reference"`,
	}
	if len(lines) != len(want) {
		t.Fatalf("legend lines = %d, want %d:\n%s", len(lines), len(want), got)
	}
	for i, w := range want {
		if lines[i] != w {
			t.Errorf("line %d = %q, want %q", i, lines[i], w)
		}
	}
}

func TestBuildCurriculumLegend_Flat(t *testing.T) {
	m := course.Map{
		Shape: course.ShapeFlat,
		Modules: []course.Module{
			{ID: "intro", Title: "Intro"},
			{ID: "untitled", Title: ""},
		},
	}

	got := buildCurriculumLegend(m)
	if got != `> Sidebar Item "Intro" (module reference)` {
		t.Errorf("legend = %q", got)
	}
}

func TestItemSourceFile(t *testing.T) {
	tests := []struct {
		name string
		item course.Item
		want string
	}{
		{"temp context id", course.Item{Title: "Welcome", ContextFileID: "file_12_notes final.pdf"}, "notes final.pdf"},
		{"opaque context id", course.Item{Title: "Welcome", ContextFileID: "file-abc123"}, "Welcome"},
		{"file item", course.Item{Title: "Guide", Type: course.ItemFile, FileID: "file-1"}, "Guide"},
		{"file item without file id", course.Item{Title: "Guide", Type: course.ItemFile}, ""},
		{"plain video", course.Item{Title: "Clip", Type: course.ItemVideo}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := itemSourceFile(tt.item); got != tt.want {
				t.Errorf("itemSourceFile() = %q, want %q", got, tt.want)
			}
		})
	}
}
