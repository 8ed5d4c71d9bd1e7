package llm

import (
	"context"
	"fmt"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/lokutor-ai/voiceturn/internal/turn"
)

// groqBaseURL is Groq's OpenAI-compatible chat completions endpoint.
const groqBaseURL = "https://api.groq.com/openai/v1/"

// GroqLLM generates turn replies via Groq's OpenAI-compatible streaming
// chat completions API. There is no dedicated Groq Go SDK in the retrieval
// pack, but Groq's wire protocol is OpenAI's, so this reuses openai-go
// pointed at Groq's base URL rather than hand-rolling an SSE client
// (see DESIGN.md).
type GroqLLM struct {
	client oai.Client
	model  string
}

func NewGroqLLM(apiKey, model string) *GroqLLM {
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}
	client := oai.NewClient(option.WithAPIKey(apiKey), option.WithBaseURL(groqBaseURL))
	return &GroqLLM{client: client, model: model}
}

func (l *GroqLLM) Name() string { return "groq" }

func (l *GroqLLM) Generate(ctx context.Context, userText string) (turn.TextStream, error) {
	params := oai.ChatCompletionNewParams{
		Model: l.model,
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.UserMessage(userText),
		},
	}

	stream := l.client.Chat.Completions.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("groq: start stream: %w", err)
	}

	return &openAIStream{stream: stream}, nil
}
