package intent

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/pkg/errors"
	"github.com/skillgate/skillgate/pkg/catalog"
)

// AnthropicProvider scores skills with a hosted Claude model. The analysis
// uses a small fast model since the pipeline budget for the whole provider
// call is a few hundred milliseconds.
type AnthropicProvider struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// AnthropicOption configures an AnthropicProvider.
type AnthropicOption func(*AnthropicProvider)

// WithModel overrides the analysis model.
func WithModel(model anthropic.Model) AnthropicOption {
	return func(p *AnthropicProvider) {
		p.model = model
	}
}

// NewAnthropicProvider creates a hosted provider. Credentials come from the
// environment the same way the SDK resolves them everywhere else.
func NewAnthropicProvider(opts ...AnthropicOption) *AnthropicProvider {
	p := &AnthropicProvider{
		client:    anthropic.NewClient(),
		model:     anthropic.ModelClaudeHaiku4_5,
		maxTokens: 1024,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name identifies the provider in logs and banner output.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Analyze sends the templated analysis prompt and parses the model's JSON
// answer into per-skill scores.
func (p *AnthropicProvider) Analyze(ctx context.Context, prompt string, cat *catalog.Catalog) (*Result, error) {
	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(analysisPrompt(prompt, cat))),
		},
	})
	if err != nil {
		return nil, classifyAnthropicError(ctx, err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}

	body := extractJSONObject(text.String())
	if body == "" {
		return nil, NewProviderError(ErrMalformedResponse, errors.New("no JSON object in model response"))
	}

	return parseContractResponse([]byte(body), cat)
}

func classifyAnthropicError(ctx context.Context, err error) *ProviderError {
	if ctx.Err() != nil {
		return NewProviderError(ErrTimeout, ctx.Err())
	}

	var apierr *anthropic.Error
	if stderrors.As(err, &apierr) {
		switch apierr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return NewProviderError(ErrUnauthorized, err)
		default:
			return NewProviderError(ErrServiceUnavailable, err)
		}
	}

	return NewProviderError(ErrServiceUnavailable, err)
}

// extractJSONObject returns the outermost {...} region of the text, which
// tolerates models wrapping the answer in prose or code fences.
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return text[start : end+1]
}
