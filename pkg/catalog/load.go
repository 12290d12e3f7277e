package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const rulesFileName = "skill-rules.json"

// DefaultRulesPath returns the catalog location under the project directory.
// CLAUDE_PROJECT_DIR takes precedence so the hook resolves the same catalog
// regardless of the working directory it runs from.
func DefaultRulesPath() string {
	projectDir := os.Getenv("CLAUDE_PROJECT_DIR")
	if projectDir == "" {
		projectDir = "."
	}
	return filepath.Join(projectDir, ".claude", "skills", rulesFileName)
}

// rulesFile mirrors the on-disk skill-rules.json schema.
type rulesFile struct {
	Version string               `json:"version"`
	Skills  map[string]ruleEntry `json:"skills"`
}

type ruleEntry struct {
	Description    string       `json:"description"`
	AutoInject     *bool        `json:"autoInject"`
	Affinity       []string     `json:"affinity"`
	PromptTriggers *ruleTrigger `json:"promptTriggers"`
}

type ruleTrigger struct {
	Keywords       []string `json:"keywords"`
	IntentPatterns []string `json:"intentPatterns"`
}

// Load reads and parses the catalog from the given path. A missing or
// unparseable catalog is a fatal configuration error for the pipeline.
func Load(path string) (*Catalog, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", rulesFileName)
	}

	var file rulesFile
	if err := json.Unmarshal(content, &file); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", rulesFileName)
	}

	skills := make(map[string]*Skill, len(file.Skills))
	for id, entry := range file.Skills {
		autoInject := true
		if entry.AutoInject != nil {
			autoInject = *entry.AutoInject
		}

		s := &Skill{
			Description: entry.Description,
			Affinity:    entry.Affinity,
			AutoInject:  autoInject,
		}
		if entry.PromptTriggers != nil {
			s.Keywords = entry.PromptTriggers.Keywords
			s.IntentPatterns = entry.PromptTriggers.IntentPatterns
		}
		skills[id] = s
	}

	return New(file.Version, skills), nil
}
