package gateway

import (
	"context"
	"errors"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Prompt carries the material for a single completion call.
type Prompt struct {
	System string
	User   string
}

// Client issues one completion request against a model provider. The
// gateway layers retry, timeout, and concurrency control on top; a
// Client implementation only needs to perform the raw call.
type Client interface {
	Complete(ctx context.Context, model string, prompt Prompt) (string, error)
}

// OpenAIClient implements Client using the official openai-go SDK
// (chat completions). A custom BaseURL makes it work against any
// OpenAI-compatible endpoint, which covers most hosted providers.
type OpenAIClient struct {
	opts []option.RequestOption
}

// NewOpenAIClient builds a client for the given credentials. baseURL
// may be empty to use the SDK default.
func NewOpenAIClient(apiKey, baseURL string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("gateway: api key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{opts: opts}, nil
}

// Complete performs one chat completion call.
func (c *OpenAIClient) Complete(ctx context.Context, model string, prompt Prompt) (string, error) {
	client := openai.NewClient(c.opts...)
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if prompt.System != "" {
		msgs = append(msgs, openai.SystemMessage(prompt.System))
	}
	msgs = append(msgs, openai.UserMessage(prompt.User))
	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: msgs,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("gateway: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}
