package course

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Definition is a bot authored as a YAML file. Used in development and for
// seeding: production bots live in the database.
type Definition struct {
	ID             string    `yaml:"id"`
	Name           string    `yaml:"name"`
	AssistantID    string    `yaml:"assistant_id"`
	SystemPrompt   string    `yaml:"system_prompt"`
	AccessCodeHash string    `yaml:"access_code_hash"`
	Sections       []Section `yaml:"sections"`
	Modules        []Module  `yaml:"modules"`
}

// CourseMap returns the definition's curriculum tagged with its shape.
func (d Definition) CourseMap() Map {
	if d.Sections != nil {
		return Map{Shape: ShapeHierarchical, Sections: d.Sections}
	}
	return Map{Shape: ShapeFlat, Modules: d.Modules}
}

// Loader loads and caches bot definitions from the filesystem.
type Loader struct {
	rootDir     string
	definitions map[string]Definition
	mu          sync.RWMutex
}

// NewLoader creates a loader and loads all definitions under rootDir.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{
		rootDir:     rootDir,
		definitions: make(map[string]Definition),
	}

	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading bot definitions: %w", err)
	}

	slog.Info("bot definitions loaded", "bots", len(l.definitions))
	return l, nil
}

// Get returns a definition by bot ID.
func (l *Loader) Get(id string) (Definition, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.definitions[id]
	return d, ok
}

// All returns all loaded definitions.
func (l *Loader) All() []Definition {
	l.mu.RLock()
	defer l.mu.RUnlock()
	defs := make([]Definition, 0, len(l.definitions))
	for _, d := range l.definitions {
		defs = append(defs, d)
	}
	return defs
}

func (l *Loader) loadAll() error {
	return filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
			return nil
		}
		return l.loadDefinition(path)
	})
}

func (l *Loader) loadDefinition(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		slog.Warn("skipping invalid bot YAML", "path", path, "error", err)
		return nil
	}

	if def.ID == "" {
		return nil // Not a bot definition file
	}

	stampIDs(&def)

	l.mu.Lock()
	l.definitions[def.ID] = def
	l.mu.Unlock()

	return nil
}

// stampIDs assigns slug-path identifiers to sections and items that were
// authored without one. Existing ids are never regenerated, even when the
// title they were derived from has since changed.
func stampIDs(def *Definition) {
	for si := range def.Sections {
		section := &def.Sections[si]
		if section.ID == "" {
			if id, err := MakeSectionID(section.Title); err == nil {
				section.ID = id
			}
		}
		for ii := range section.Items {
			item := &section.Items[ii]
			if item.ID == "" {
				if id, err := MakeItemID(section.Title, item.Title); err == nil {
					item.ID = id
				}
			}
		}
	}
	for mi := range def.Modules {
		mod := &def.Modules[mi]
		if mod.ID == "" {
			if id, err := MakeID(mod.Title); err == nil {
				mod.ID = id
			}
		}
	}
}
