package agent

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/contentcoach/coachbot/internal/course"
	"github.com/contentcoach/coachbot/internal/progress"
)

const (
	progressPlaceholder = "{{COMPLETED_MODULES_LIST}}"
	defaultSystemPrompt = "You are a helpful AI assistant."
	noProgressText      = "No modules completed yet."
)

// progressRules is the machine-readable contract telling the model how to
// report progress. It must agree with the grammar of progress.FormatSummary:
// in particular, both forbid enumerating items of a COMPLETE phase.
const progressRules = `[PROGRESS REPORTING RULES]
When the user asks about their progress:
1. ALWAYS use the phase summary format shown above.
2. For complete phases: Show "Phase X: ✅ Complete" (do NOT enumerate completed modules).
3. For incomplete phases: Show "Phase X: a/b complete" and list ONLY remaining modules (max 3) + "and N more" if applicable.
4. If all phases are complete: Respond "All phases complete (N/N)" and list phase names only (no module enumeration).
5. NEVER enumerate completed modules if the phase is marked as COMPLETE.`

const allCompleteNote = "🎉 ALL MODULES COMPLETE: The user has finished every single module. Congratulate them!"

// contextFilePattern matches temporary upload ids of the form
// "file_<n>_<original filename>"; the filename part survives into prompts so
// the model can attribute answers to source material.
var contextFilePattern = regexp.MustCompile(`^file_\d+_(.+)$`)

// buildInstructions assembles the per-turn system instructions: the bot's
// prompt with the progress block spliced in (placeholder replacement when the
// author used one, appended section otherwise), followed by the curriculum
// structure map.
func buildInstructions(bot *Bot, completedIDs []string) string {
	summary := progress.Compute(bot.CourseMap, completedIDs)

	instructions := bot.SystemPrompt
	if instructions == "" {
		instructions = defaultSystemPrompt
	}

	section := buildProgressSection(summary)
	if strings.Contains(instructions, progressPlaceholder) {
		instructions = strings.Replace(instructions, progressPlaceholder, section, 1)
	} else {
		instructions += "\n\n[CONTEXT: USER PROGRESS]\n" + section
	}

	if legend := buildCurriculumLegend(bot.CourseMap); legend != "" {
		instructions += "\n\n[CURRICULUM STRUCTURE MAP]\nUse this map to locate the correct source file for user questions:\n" + legend
	}

	return instructions
}

func buildProgressSection(summary progress.Summary) string {
	if summary.TotalModules == 0 {
		return noProgressText
	}

	section := progress.FormatSummary(summary) + "\n\n" + progressRules
	if summary.CompletedModules == summary.TotalModules {
		section += "\n\n" + allCompleteNote
	}
	return section
}

// buildCurriculumLegend lists, for every item backed by source material, a
// line mapping the sidebar title to the file it was derived from.
func buildCurriculumLegend(m course.Map) string {
	var lines []string

	switch m.Shape {
	case course.ShapeHierarchical:
		for _, section := range m.Sections {
			for _, item := range section.Items {
				if source := itemSourceFile(item); source != "" {
					lines = append(lines, fmt.Sprintf(`> Sidebar Item "%s" is derived from file: "%s"`, item.Title, source))
				}
			}
		}
	case course.ShapeFlat:
		for _, mod := range m.Modules {
			if mod.Title != "" {
				lines = append(lines, fmt.Sprintf(`> Sidebar Item "%s" (module reference)`, mod.Title))
			}
		}
	}

	return strings.Join(lines, "\n")
}

// itemSourceFile resolves the filename an item's content came from. Context
// references (transcripts and PDFs attached to external items) win over the
// item's own file, matching how material was attached at authoring time.
func itemSourceFile(item course.Item) string {
	if item.ContextFileID != "" {
		if m := contextFilePattern.FindStringSubmatch(item.ContextFileID); m != nil {
			return m[1]
		}
		// Not a temp-id format (likely a provider file id); the title is the
		// only human-readable reference left.
		return item.Title
	}
	if item.Type == course.ItemFile && item.FileID != "" {
		return item.Title
	}
	return ""
}
