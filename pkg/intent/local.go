package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"github.com/skillgate/skillgate/pkg/catalog"
)

// LocalProvider calls a local model server speaking the plain JSON analysis
// contract: request {prompt, skills: [{id, description}]}, response
// {primary_intent, skills: [{name, confidence}]}.
type LocalProvider struct {
	endpoint string
	client   *http.Client
}

// NewLocalProvider creates a provider for the given endpoint URL. The HTTP
// client carries no timeout of its own: the caller's context deadline is
// the single bound on the call.
func NewLocalProvider(endpoint string) *LocalProvider {
	return &LocalProvider{
		endpoint: endpoint,
		client:   &http.Client{},
	}
}

// Name identifies the provider in logs and banner output.
func (p *LocalProvider) Name() string {
	return "local"
}

type contractRequest struct {
	Prompt string          `json:"prompt"`
	Skills []contractSkill `json:"skills"`
}

type contractSkill struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// Analyze posts the prompt and catalog to the local server and parses the
// contract response.
func (p *LocalProvider) Analyze(ctx context.Context, prompt string, cat *catalog.Catalog) (*Result, error) {
	req := contractRequest{Prompt: prompt}
	for _, id := range cat.IDs() {
		req.Skills = append(req.Skills, contractSkill{ID: id, Description: cat.Get(id).Description})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, NewProviderError(ErrMalformedResponse, errors.Wrap(err, "failed to marshal analysis request"))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, NewProviderError(ErrServiceUnavailable, errors.Wrap(err, "failed to build analysis request"))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, NewProviderError(ErrTimeout, ctx.Err())
		}
		return nil, NewProviderError(ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, NewProviderError(ErrUnauthorized, errors.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, NewProviderError(ErrServiceUnavailable, errors.Errorf("status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, NewProviderError(ErrTimeout, ctx.Err())
		}
		return nil, NewProviderError(ErrServiceUnavailable, errors.Wrap(err, "failed to read analysis response"))
	}

	return parseContractResponse(data, cat)
}
