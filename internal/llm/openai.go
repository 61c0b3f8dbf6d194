package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIClient completes prompts with the OpenAI chat completions API or any
// endpoint compatible with it
type OpenAIClient struct {
	client openai.Client
	model  string
}

// NewOpenAIClient creates a client. baseURL may be empty for the public API.
func NewOpenAIClient(apiKey, baseURL, model string, opts ...ClientOption) *OpenAIClient {
	o := applyOptions(opts)

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(o.httpClient),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}

	return &OpenAIClient{
		client: openai.NewClient(reqOpts...),
		model:  model,
	}
}

// Model returns the configured model name
func (c *OpenAIClient) Model() string {
	return c.model
}

// Complete sends the system and user prompts and returns the first choice
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserPrompt),
		},
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCompletion, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: response contained no choices", ErrCompletion)
	}

	return completion.Choices[0].Message.Content, nil
}
