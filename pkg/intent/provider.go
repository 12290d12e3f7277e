// Package intent turns a (prompt, skill catalog) pair into per-skill
// confidence scores. Providers are polymorphic over one capability so the
// pipeline can swap a hosted LLM, a local model server, or the deterministic
// keyword scorer by configuration, and fall back between them at runtime.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/skillgate/skillgate/pkg/catalog"
)

// Result is a single intent analysis: per-skill confidence scores in
// [0.0, 1.0] plus a short free-text summary of the primary intent.
type Result struct {
	PrimaryIntent string             `json:"primary_intent"`
	Scores        map[string]float64 `json:"scores"`
}

// Provider analyzes a prompt against a catalog. The caller bounds the call
// with a context deadline; implementations must return promptly on
// cancellation.
type Provider interface {
	Name() string
	Analyze(ctx context.Context, prompt string, cat *catalog.Catalog) (*Result, error)
}

// ErrorKind classifies provider failures. All kinds are recoverable at the
// orchestrator level by falling back to the keyword scorer.
type ErrorKind int

const (
	ErrTimeout ErrorKind = iota
	ErrUnauthorized
	ErrServiceUnavailable
	ErrMalformedResponse
)

func (k ErrorKind) String() string {
	switch k {
	case ErrTimeout:
		return "timeout"
	case ErrUnauthorized:
		return "unauthorized"
	case ErrServiceUnavailable:
		return "service unavailable"
	case ErrMalformedResponse:
		return "malformed response"
	default:
		return "unknown"
	}
}

// ProviderError wraps an underlying failure with its classification.
type ProviderError struct {
	Kind ErrorKind
	Err  error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("provider error: %s", e.Kind)
	}
	return fmt.Sprintf("provider error (%s): %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError constructs a classified provider error.
func NewProviderError(kind ErrorKind, err error) *ProviderError {
	return &ProviderError{Kind: kind, Err: err}
}

// contractResponse is the JSON body both the hosted and local providers
// return: {primary_intent, skills: [{name, confidence}]}.
type contractResponse struct {
	PrimaryIntent string `json:"primary_intent"`
	Skills        []struct {
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
	} `json:"skills"`
}

// parseContractResponse decodes the shared provider JSON contract into a
// Result. Scores outside [0.0, 1.0] are clamped and skill names not present
// in the catalog are dropped silently; provider hallucination must not
// crash the pipeline.
func parseContractResponse(data []byte, cat *catalog.Catalog) (*Result, error) {
	var resp contractResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, NewProviderError(ErrMalformedResponse, err)
	}

	result := &Result{
		PrimaryIntent: resp.PrimaryIntent,
		Scores:        make(map[string]float64, len(resp.Skills)),
	}
	for _, s := range resp.Skills {
		if cat.Get(s.Name) == nil {
			continue
		}
		result.Scores[s.Name] = clamp01(s.Confidence)
	}
	return result, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// analysisPrompt renders the templated analysis request embedding the
// catalog's skill descriptions and the user's text.
func analysisPrompt(prompt string, cat *catalog.Catalog) string {
	var b strings.Builder
	b.WriteString("You route user prompts to pre-written skill documents for a coding assistant.\n")
	b.WriteString("Given the user prompt and the available skills, score each skill's relevance.\n\n")
	b.WriteString("Available skills:\n")
	for _, id := range cat.IDs() {
		s := cat.Get(id)
		fmt.Fprintf(&b, "- %s: %s\n", id, s.Description)
	}
	b.WriteString("\nUser prompt:\n")
	b.WriteString(prompt)
	b.WriteString("\n\nRespond with JSON only, no prose, in this exact shape:\n")
	b.WriteString(`{"primary_intent": "<one sentence>", "skills": [{"name": "<skill id>", "confidence": <0.0-1.0>}]}`)
	b.WriteString("\nInclude every skill with confidence above 0.1. Omit the rest.")
	return b.String()
}
