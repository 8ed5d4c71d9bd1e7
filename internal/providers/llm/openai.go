// Package llm hosts TextGenerator adapters for each supported LLM backend.
package llm

import (
	"context"
	"fmt"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"

	"github.com/lokutor-ai/voiceturn/internal/turn"
)

// OpenAILLM generates turn replies by streaming chat completions from the
// OpenAI API. Grounded on the streaming shape of
// MrWong99-glyphoxa/pkg/provider/llm/openai/openai.go, adapted from a
// channel-of-Chunk return into the turn.TextStream poll interface.
type OpenAILLM struct {
	client oai.Client
	model  string
}

func NewOpenAILLM(apiKey, model string) *OpenAILLM {
	if model == "" {
		model = "gpt-4o"
	}
	client := oai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAILLM{client: client, model: model}
}

func (l *OpenAILLM) Name() string { return "openai" }

func (l *OpenAILLM) Generate(ctx context.Context, userText string) (turn.TextStream, error) {
	params := oai.ChatCompletionNewParams{
		Model: l.model,
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.UserMessage(userText),
		},
	}

	stream := l.client.Chat.Completions.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("openai: start stream: %w", err)
	}

	return &openAIStream{stream: stream}, nil
}

type openAIStream struct {
	stream *ssestream.Stream[oai.ChatCompletionChunk]
}

func (s *openAIStream) Next(ctx context.Context) (string, bool, error) {
	if !s.stream.Next() {
		if err := s.stream.Err(); err != nil {
			return "", false, fmt.Errorf("openai: stream error: %w", err)
		}
		s.stream.Close()
		return "", false, nil
	}

	chunk := s.stream.Current()
	if len(chunk.Choices) == 0 {
		return "", true, nil
	}
	return chunk.Choices[0].Delta.Content, true, nil
}
