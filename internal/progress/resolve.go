// Package progress reconciles a student's completed-item set against a
// curriculum map and renders the result for system-prompt injection.
package progress

import "github.com/contentcoach/coachbot/internal/course"

// Resolved partitions client-supplied completed ids into titles found in the
// curriculum and ids that matched nothing.
type Resolved struct {
	Titles       []string
	UnmatchedIDs []string
}

// Resolve maps completed ids to item titles, preserving input order. Ids not
// present in the map are reported as unmatched, never as errors: the client's
// set is untrusted and the curriculum may have changed underneath it.
func Resolve(m course.Map, completedIDs []string) Resolved {
	resolved := Resolved{
		Titles:       []string{},
		UnmatchedIDs: []string{},
	}

	if len(completedIDs) == 0 {
		return resolved
	}
	if m.IsEmpty() {
		resolved.UnmatchedIDs = append(resolved.UnmatchedIDs, completedIDs...)
		return resolved
	}

	titleByID := make(map[string]string)
	for _, item := range m.Flatten() {
		titleByID[item.ID] = item.Title
	}

	for _, id := range completedIDs {
		if title, ok := titleByID[id]; ok {
			resolved.Titles = append(resolved.Titles, title)
		} else {
			resolved.UnmatchedIDs = append(resolved.UnmatchedIDs, id)
		}
	}

	return resolved
}
