package course

// ItemType classifies a curriculum item.
type ItemType string

const (
	ItemFile  ItemType = "file"
	ItemVideo ItemType = "video"
	ItemQuiz  ItemType = "quiz"
	ItemLink  ItemType = "link"
)

// Item is a single curriculum entry inside a section.
type Item struct {
	ID            string   `json:"id" yaml:"id"`
	Title         string   `json:"title" yaml:"title"`
	Type          ItemType `json:"type,omitempty" yaml:"type,omitempty"`
	FileID        string   `json:"file_id,omitempty" yaml:"file_id,omitempty"`
	ContextFileID string   `json:"context_file_id,omitempty" yaml:"context_file_id,omitempty"`
	ExternalURL   string   `json:"external_url,omitempty" yaml:"external_url,omitempty"`
}

// Section is a top-level phase of the curriculum. A nil Items slice marks a
// section whose items were missing in the persisted record, as opposed to an
// authored-but-empty section.
type Section struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
	Items []Item `json:"items" yaml:"items"`
}

// Module is the legacy flat record used by bots created before sections
// existed. Supporting it is a permanent compatibility requirement, not a
// migration leftover.
type Module struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
}

// Shape tags which of the two historical course-map schemas a Map holds.
type Shape int

const (
	ShapeFlat Shape = iota
	ShapeHierarchical
)

func (s Shape) String() string {
	switch s {
	case ShapeFlat:
		return "flat"
	case ShapeHierarchical:
		return "hierarchical"
	default:
		return "unknown"
	}
}

// Map is the curriculum for one bot. The shape is decided once at the parse
// boundary (see ParseMap); everything downstream switches on the tag instead
// of sniffing the structure again.
type Map struct {
	Shape    Shape
	Sections []Section // populated when Shape == ShapeHierarchical
	Modules  []Module  // populated when Shape == ShapeFlat
}

// FlatItem is the normalized view of one curriculum entry.
type FlatItem struct {
	ID    string
	Title string
}

// IsEmpty reports whether the map has no top-level elements.
func (m Map) IsEmpty() bool {
	if m.Shape == ShapeHierarchical {
		return len(m.Sections) == 0
	}
	return len(m.Modules) == 0
}

// Flatten returns every item in document order. Entries missing either an id
// or a title are skipped so one malformed persisted record does not fail the
// whole operation.
func (m Map) Flatten() []FlatItem {
	var items []FlatItem

	switch m.Shape {
	case ShapeHierarchical:
		for _, section := range m.Sections {
			for _, item := range section.Items {
				if item.ID == "" || item.Title == "" {
					continue
				}
				items = append(items, FlatItem{ID: item.ID, Title: item.Title})
			}
		}
	case ShapeFlat:
		for _, mod := range m.Modules {
			if mod.ID == "" || mod.Title == "" {
				continue
			}
			items = append(items, FlatItem{ID: mod.ID, Title: mod.Title})
		}
	}

	return items
}
