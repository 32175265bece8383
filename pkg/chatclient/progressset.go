package chatclient

import (
	"sort"
	"sync"
)

// ProgressSet is the sovereign copy of the student's completed-module ids.
// The server holds a mirror that the set pushes to through OnChange; nothing
// flows back after initialization, so a stale or failed mirror write can
// never clobber local state.
type ProgressSet struct {
	mu       sync.Mutex
	ids      map[string]struct{}
	onChange func([]string)
}

// NewProgressSet seeds the set, typically from the server mirror at startup.
// onChange receives a snapshot after every mutation; nil disables
// notification.
func NewProgressSet(initial []string, onChange func([]string)) *ProgressSet {
	ids := make(map[string]struct{}, len(initial))
	for _, id := range initial {
		ids[id] = struct{}{}
	}
	return &ProgressSet{ids: ids, onChange: onChange}
}

// Toggle flips one module's completion and reports the new state.
func (p *ProgressSet) Toggle(id string) bool {
	p.mu.Lock()
	_, completed := p.ids[id]
	if completed {
		delete(p.ids, id)
	} else {
		p.ids[id] = struct{}{}
	}
	snapshot := p.snapshot()
	p.mu.Unlock()

	p.notify(snapshot)
	return !completed
}

// Has reports whether a module is marked complete.
func (p *ProgressSet) Has(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.ids[id]
	return ok
}

// IDs returns the completed ids sorted for stable wire encoding.
func (p *ProgressSet) IDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

func (p *ProgressSet) snapshot() []string {
	out := make([]string, 0, len(p.ids))
	for id := range p.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (p *ProgressSet) notify(snapshot []string) {
	if p.onChange != nil {
		p.onChange(snapshot)
	}
}
