package answer

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
)

// Default models for the two composition stages. Classification is a
// cheap structured call; synthesis carries the full context window.
const (
	DefaultIntentModel = "gpt-4o-mini"
	DefaultAnswerModel = "gpt-4.1-mini"
)

// OpenAIChat implements ChatModel on the OpenAI chat completions API.
type OpenAIChat struct {
	client *openai.Client
}

// NewOpenAIChat wraps an existing OpenAI client, typically the one
// already used for embeddings.
func NewOpenAIChat(client *openai.Client) *OpenAIChat {
	return &OpenAIChat{client: client}
}

// Complete executes one chat completion and returns the first choice's
// message content.
func (o *OpenAIChat) Complete(ctx context.Context, req ChatRequest) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		Model: openai.ChatModel(req.Model),
	}
	if req.JSONObject {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{
				Type: "json_object",
			},
		}
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
