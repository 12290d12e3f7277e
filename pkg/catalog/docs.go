package catalog

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
)

const docFileName = "SKILL.md"

// Doc is the human-readable side of a skill: the SKILL.md document that
// actually gets injected into the assistant's context. The pipeline only
// decides which docs to surface; their content is never edited here.
type Doc struct {
	Name        string
	Description string
	Directory   string
}

// DefaultDocDirs returns the directories scanned for SKILL.md documents,
// repo-local first.
func DefaultDocDirs() []string {
	projectDir := os.Getenv("CLAUDE_PROJECT_DIR")
	if projectDir == "" {
		projectDir = "."
	}
	dirs := []string{filepath.Join(projectDir, ".claude", "skills")}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".claude", "skills"))
	}
	return dirs
}

// DiscoverDocs scans the given directories for skill documents. Each skill
// lives in its own subdirectory containing a SKILL.md with YAML frontmatter.
// Unreadable directories and malformed documents are skipped.
func DiscoverDocs(dirs ...string) map[string]*Doc {
	docs := make(map[string]*Doc)

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		for _, entry := range entries {
			entryPath := filepath.Join(dir, entry.Name())

			info, err := os.Stat(entryPath)
			if err != nil || !info.IsDir() {
				continue
			}

			doc, err := loadDoc(filepath.Join(entryPath, docFileName))
			if err != nil {
				continue
			}

			if _, exists := docs[doc.Name]; !exists {
				doc.Directory = entryPath
				docs[doc.Name] = doc
			}
		}
	}

	return docs
}

// EnrichDescriptions fills empty catalog descriptions from discovered skill
// documents so that the intent provider always sees a usable description.
// The catalog hash is recomputed when any description changes.
func (c *Catalog) EnrichDescriptions(docs map[string]*Doc) {
	changed := false
	for id, s := range c.Skills {
		if s.Description != "" {
			continue
		}
		if doc, ok := docs[id]; ok && doc.Description != "" {
			s.Description = doc.Description
			changed = true
		}
	}
	if changed {
		c.hash = c.computeHash()
	}
}

// loadDoc parses a single SKILL.md, extracting name and description from
// the YAML frontmatter.
func loadDoc(path string) (*Doc, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read skill document")
	}

	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()

	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return nil, errors.Wrap(err, "failed to parse markdown")
	}

	metaData := meta.Get(pctx)
	if metaData == nil {
		return nil, errors.New("missing frontmatter")
	}

	name, _ := metaData["name"].(string)
	description, _ := metaData["description"].(string)

	if name == "" {
		return nil, errors.New("skill name is required in frontmatter")
	}

	return &Doc{
		Name:        name,
		Description: description,
	}, nil
}
