// Package classify turns per-skill confidence scores into required and
// suggested sets using fixed thresholds, and implements the promotion
// policy that fills spare injection slots from the suggested set.
package classify

import (
	"sort"

	"github.com/skillgate/skillgate/pkg/intent"
)

const (
	// RequiredThreshold is exclusive: a score must exceed it to be required.
	RequiredThreshold = 0.65
	// SuggestedThreshold is inclusive: a score of exactly 0.50 is suggested.
	SuggestedThreshold = 0.50
)

// Classify buckets every scored skill. Ties at exact threshold boundaries
// resolve to the lower-confidence bucket, so 0.65 is suggested, not
// required. Output is sorted by identifier for reproducibility.
func Classify(result *intent.Result) (required, suggested []string) {
	for id, score := range result.Scores {
		switch {
		case score > RequiredThreshold:
			required = append(required, id)
		case score >= SuggestedThreshold:
			suggested = append(suggested, id)
		}
	}
	sort.Strings(required)
	sort.Strings(suggested)
	return required, suggested
}

// Promote elevates suggested skills into the injection set while direct
// slots remain. maxDirect bounds direct injections (required + promoted);
// affinity additions are free and never counted here. Candidates are taken
// by descending confidence, ties broken by identifier. The returned
// remaining slice holds the suggested skills left unpromoted.
func Promote(required, suggested []string, scores map[string]float64, maxDirect int) (promoted, remaining []string) {
	slots := maxDirect - len(required)
	if slots <= 0 || len(suggested) == 0 {
		return nil, suggested
	}

	candidates := make([]string, len(suggested))
	copy(candidates, suggested)
	sort.Slice(candidates, func(i, j int) bool {
		if scores[candidates[i]] != scores[candidates[j]] {
			return scores[candidates[i]] > scores[candidates[j]]
		}
		return candidates[i] < candidates[j]
	})

	if slots > len(candidates) {
		slots = len(candidates)
	}
	promoted = candidates[:slots]
	remaining = candidates[slots:]

	sort.Strings(promoted)
	sort.Strings(remaining)
	return promoted, remaining
}
