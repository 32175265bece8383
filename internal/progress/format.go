package progress

import (
	"fmt"
	"strings"
)

// FormatSummary renders a summary as the fixed-grammar text block spliced
// into the LLM instructions. The exact structure matters: the behavioral
// rules appended alongside it reference this grammar, and completed items
// are never enumerated inside a phase marked COMPLETE so the two cannot
// contradict each other.
func FormatSummary(s Summary) string {
	if s.TotalModules == 0 {
		return "No modules in course."
	}

	allComplete := true
	for _, p := range s.Phases {
		if !p.IsComplete {
			allComplete = false
			break
		}
	}

	var b strings.Builder
	b.WriteString("COURSE PROGRESS (PHASE SUMMARY):\n")
	fmt.Fprintf(&b, "Overall: %d/%d complete\n\n", s.CompletedModules, s.TotalModules)

	for _, p := range s.Phases {
		if p.IsComplete {
			fmt.Fprintf(&b, "%s (%d/%d): ✅ COMPLETE\n", p.PhaseTitle, p.Completed, p.Total)
			continue
		}

		fmt.Fprintf(&b, "%s (%d/%d): IN PROGRESS", p.PhaseTitle, p.Completed, p.Total)
		if len(p.RemainingTitles) > 0 {
			remaining := p.Total - p.Completed
			shown := min(len(p.RemainingTitles), maxRemainingTitles)
			fmt.Fprintf(&b, "\nRemaining (top %d): %s", shown, strings.Join(p.RemainingTitles[:shown], ", "))
			if more := remaining - shown; more > 0 {
				fmt.Fprintf(&b, " (+%d more)", more)
			}
		}
		b.WriteString("\n")
	}

	if allComplete {
		fmt.Fprintf(&b, "\n🎉 All phases complete (%d/%d)", len(s.Phases), len(s.Phases))
	}

	return b.String()
}
