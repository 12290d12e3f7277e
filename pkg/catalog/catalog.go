// Package catalog loads and models the skill catalog: the set of skill
// descriptors the pipeline selects from. Descriptors are loaded once per
// process from skill-rules.json and are immutable for the lifetime of a
// pipeline invocation.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"sort"
	"strings"
)

// Skill is a single skill descriptor from the catalog.
type Skill struct {
	ID             string
	Description    string
	Keywords       []string
	IntentPatterns []string
	Affinity       []string // identifiers of related skills, at most 2
	AutoInject     bool

	keywordsLower []string
	intentRegexps []*regexp.Regexp
}

// compileTriggers lowercases keywords once and precompiles intent patterns.
// Invalid patterns are skipped rather than failing the catalog load.
func (s *Skill) compileTriggers() {
	s.keywordsLower = make([]string, 0, len(s.Keywords))
	for _, kw := range s.Keywords {
		s.keywordsLower = append(s.keywordsLower, strings.ToLower(kw))
	}

	s.intentRegexps = make([]*regexp.Regexp, 0, len(s.IntentPatterns))
	for _, pattern := range s.IntentPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		s.intentRegexps = append(s.intentRegexps, re)
	}
}

// MatchesPrompt reports whether the prompt triggers this skill, either by
// case-insensitive keyword substring or by intent pattern.
func (s *Skill) MatchesPrompt(prompt string) bool {
	promptLower := strings.ToLower(prompt)
	for _, kw := range s.keywordsLower {
		if strings.Contains(promptLower, kw) {
			return true
		}
	}
	for _, re := range s.intentRegexps {
		if re.MatchString(prompt) {
			return true
		}
	}
	return false
}

// Catalog is the full set of skill descriptors keyed by identifier.
type Catalog struct {
	Version string
	Skills  map[string]*Skill

	hash string
}

// New builds a catalog from descriptors, compiling triggers and computing
// the content hash.
func New(version string, skills map[string]*Skill) *Catalog {
	for id, s := range skills {
		s.ID = id
		s.compileTriggers()
	}
	c := &Catalog{Version: version, Skills: skills}
	c.hash = c.computeHash()
	return c
}

// Get returns the descriptor for the given identifier, or nil.
func (c *Catalog) Get(id string) *Skill {
	return c.Skills[id]
}

// IDs returns all skill identifiers sorted lexicographically.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.Skills))
	for id := range c.Skills {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Hash returns a stable digest of the serialized catalog. Any edit to a
// skill definition changes the hash, which silently invalidates every
// cached intent analysis keyed on the previous catalog.
func (c *Catalog) Hash() string {
	return c.hash
}

// hashedSkill is the canonical serialization used for the catalog digest.
// Only fields that affect selection behavior participate.
type hashedSkill struct {
	ID             string   `json:"id"`
	Description    string   `json:"description"`
	Keywords       []string `json:"keywords,omitempty"`
	IntentPatterns []string `json:"intent_patterns,omitempty"`
	Affinity       []string `json:"affinity,omitempty"`
	AutoInject     bool     `json:"auto_inject"`
}

func (c *Catalog) computeHash() string {
	entries := make([]hashedSkill, 0, len(c.Skills))
	for _, id := range c.IDs() {
		s := c.Skills[id]
		entries = append(entries, hashedSkill{
			ID:             s.ID,
			Description:    s.Description,
			Keywords:       s.Keywords,
			IntentPatterns: s.IntentPatterns,
			Affinity:       s.Affinity,
			AutoInject:     s.AutoInject,
		})
	}

	serialized, err := json.Marshal(entries)
	if err != nil {
		// Only slices of plain strings are marshaled here.
		panic(err)
	}

	sum := sha256.Sum256(serialized)
	return hex.EncodeToString(sum[:])
}
