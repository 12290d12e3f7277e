package intent

import (
	"context"
	"sort"
	"strings"

	"github.com/skillgate/skillgate/pkg/catalog"
)

// KeywordProvider scores skills deterministically from the catalog's own
// trigger keywords and intent patterns: 1.0 on a match, 0.0 otherwise.
// It needs no network and never fails, which makes it both the default
// when AI analysis is disabled and the automatic fallback when the primary
// provider times out or errors.
type KeywordProvider struct{}

// NewKeywordProvider creates a keyword/regex scorer.
func NewKeywordProvider() *KeywordProvider {
	return &KeywordProvider{}
}

// Name identifies the provider in logs and banner output.
func (p *KeywordProvider) Name() string {
	return "keyword"
}

// Analyze matches the prompt against every skill's compiled triggers.
func (p *KeywordProvider) Analyze(_ context.Context, prompt string, cat *catalog.Catalog) (*Result, error) {
	result := &Result{Scores: make(map[string]float64)}

	var matched []string
	for _, id := range cat.IDs() {
		if cat.Get(id).MatchesPrompt(prompt) {
			result.Scores[id] = 1.0
			matched = append(matched, id)
		}
	}

	if len(matched) == 0 {
		result.PrimaryIntent = "no keyword matches"
		return result, nil
	}

	sort.Strings(matched)
	result.PrimaryIntent = "keyword match: " + strings.Join(matched, ", ")
	return result, nil
}
