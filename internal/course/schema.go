package course

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// mapSchema is deliberately loose: it pins the structural shape (array of
// objects, items must be an array when present) and leaves per-entry
// tolerance to Flatten, which skips entries missing an id or title.
const mapSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"properties": {
			"id": {"type": ["string", "number"]},
			"title": {"type": "string"},
			"items": {
				"type": "array",
				"items": {"type": "object"}
			}
		}
	}
}`

var compiledMapSchema = gojsonschema.NewStringLoader(mapSchema)

// ParseMap validates a raw course-map document and tags it with its schema
// variant. The shape decision (does the first element carry an "items" field)
// happens exactly once, here at the storage boundary.
func ParseMap(raw []byte) (Map, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return Map{Shape: ShapeFlat}, nil
	}

	result, err := gojsonschema.Validate(compiledMapSchema, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return Map{}, fmt.Errorf("parse course map: %w", err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return Map{}, fmt.Errorf("course map failed schema validation: %s", strings.Join(details, "; "))
	}

	var elements []map[string]any
	if err := json.Unmarshal(raw, &elements); err != nil {
		return Map{}, fmt.Errorf("parse course map: %w", err)
	}
	if len(elements) == 0 {
		return Map{Shape: ShapeFlat}, nil
	}

	if _, hierarchical := elements[0]["items"]; hierarchical {
		sections := make([]Section, 0, len(elements))
		for _, el := range elements {
			sections = append(sections, parseSection(el))
		}
		return Map{Shape: ShapeHierarchical, Sections: sections}, nil
	}

	modules := make([]Module, 0, len(elements))
	for _, el := range elements {
		modules = append(modules, Module{
			ID:    coerceString(el["id"]),
			Title: coerceString(el["title"]),
		})
	}
	return Map{Shape: ShapeFlat, Modules: modules}, nil
}

func parseSection(el map[string]any) Section {
	section := Section{
		ID:    coerceString(el["id"]),
		Title: coerceString(el["title"]),
	}

	rawItems, ok := el["items"].([]any)
	if !ok {
		// Items missing or malformed: leave the slice nil so progress
		// computation can tell this apart from an authored-empty section.
		return section
	}

	section.Items = make([]Item, 0, len(rawItems))
	for _, rawItem := range rawItems {
		fields, ok := rawItem.(map[string]any)
		if !ok {
			section.Items = append(section.Items, Item{})
			continue
		}
		section.Items = append(section.Items, Item{
			ID:            coerceString(fields["id"]),
			Title:         coerceString(fields["title"]),
			Type:          ItemType(coerceString(fields["type"])),
			FileID:        coerceString(fields["file_id"]),
			ContextFileID: coerceString(fields["context_file_id"]),
			ExternalURL:   coerceString(fields["external_url"]),
		})
	}
	return section
}

// coerceString mirrors the historical behavior of stringifying ids: some old
// flat records carried numeric module ids.
func coerceString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case json.Number:
		return s.String()
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}

// EncodeMap renders a Map back to its persisted JSON form.
func EncodeMap(m Map) ([]byte, error) {
	if m.Shape == ShapeHierarchical {
		return json.Marshal(m.Sections)
	}
	if m.Modules == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(m.Modules)
}
