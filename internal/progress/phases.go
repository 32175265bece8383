package progress

import "github.com/contentcoach/coachbot/internal/course"

// maxRemainingTitles bounds how many next-up items a phase reports. The cap
// keeps the prompt-injected summary a fixed size regardless of course length.
const maxRemainingTitles = 3

// PhaseProgress is the completion state of one curriculum section.
type PhaseProgress struct {
	PhaseID         string   `json:"phaseId"`
	PhaseTitle      string   `json:"phaseTitle"`
	Total           int      `json:"total"`
	Completed       int      `json:"completed"`
	IsComplete      bool     `json:"isComplete"`
	RemainingTitles []string `json:"remainingTitles"`
}

// Summary is the phase-by-phase progress report for one student. It is
// recomputed fresh on every chat turn: both the curriculum and the completed
// set can change between turns, so caching it would serve stale state.
type Summary struct {
	TotalModules     int             `json:"totalModules"`
	CompletedModules int             `json:"completedModules"`
	Phases           []PhaseProgress `json:"phases"`
}

// Compute aggregates per-phase completion for the given completed-id set.
// Flat legacy maps become a single synthetic "All Modules" phase. Sections
// whose items were missing from the persisted record are skipped entirely;
// authored-but-empty sections appear with zero totals and are never complete.
func Compute(m course.Map, completedIDs []string) Summary {
	summary := Summary{Phases: []PhaseProgress{}}
	if m.IsEmpty() {
		return summary
	}

	completed := make(map[string]bool, len(completedIDs))
	for _, id := range completedIDs {
		completed[id] = true
	}

	if m.Shape == course.ShapeHierarchical {
		for _, section := range m.Sections {
			if section.Items == nil {
				continue
			}
			phase := computePhase(section.ID, section.Title, itemEntries(section.Items), completed)
			summary.Phases = append(summary.Phases, phase)
			summary.TotalModules += phase.Total
			summary.CompletedModules += phase.Completed
		}
		return summary
	}

	phase := computePhase("all", "All Modules", moduleEntries(m.Modules), completed)
	summary.Phases = append(summary.Phases, phase)
	summary.TotalModules = phase.Total
	summary.CompletedModules = phase.Completed
	return summary
}

type entry struct {
	id    string
	title string
}

func itemEntries(items []course.Item) []entry {
	entries := make([]entry, len(items))
	for i, item := range items {
		entries[i] = entry{id: item.ID, title: item.Title}
	}
	return entries
}

func moduleEntries(modules []course.Module) []entry {
	entries := make([]entry, len(modules))
	for i, mod := range modules {
		entries[i] = entry{id: mod.ID, title: mod.Title}
	}
	return entries
}

func computePhase(id, title string, entries []entry, completed map[string]bool) PhaseProgress {
	phase := PhaseProgress{
		PhaseID:         id,
		PhaseTitle:      title,
		Total:           len(entries),
		RemainingTitles: []string{},
	}
	if phase.PhaseTitle == "" {
		phase.PhaseTitle = "Unnamed Phase"
	}

	for _, e := range entries {
		if e.id == "" {
			continue
		}
		if completed[e.id] {
			phase.Completed++
			continue
		}
		// First incomplete items in section order, so the student always
		// sees the immediate next steps rather than a random sample.
		if len(phase.RemainingTitles) < maxRemainingTitles && e.title != "" {
			phase.RemainingTitles = append(phase.RemainingTitles, e.title)
		}
	}

	phase.IsComplete = phase.Total > 0 && phase.Completed == phase.Total
	return phase
}
