package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/lokutor-ai/voiceturn/internal/turn"
)

// AnthropicLLM generates turn replies by streaming Claude messages.
type AnthropicLLM struct {
	client anthropic.Client
	model  anthropic.Model
}

func NewAnthropicLLM(apiKey, model string) *AnthropicLLM {
	if model == "" {
		model = string(anthropic.ModelClaude3_5SonnetLatest)
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicLLM{client: client, model: anthropic.Model(model)}
}

func (l *AnthropicLLM) Name() string { return "anthropic" }

func (l *AnthropicLLM) Generate(ctx context.Context, userText string) (turn.TextStream, error) {
	stream := l.client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     l.model,
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userText)),
		},
	})
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("anthropic: start stream: %w", err)
	}
	return &anthropicStream{stream: stream}, nil
}

type anthropicStream struct {
	stream  *ssestream.Stream[anthropic.MessageStreamEventUnion]
	message anthropic.Message
}

func (s *anthropicStream) Next(ctx context.Context) (string, bool, error) {
	for s.stream.Next() {
		event := s.stream.Current()
		if err := s.message.Accumulate(event); err != nil {
			return "", false, fmt.Errorf("anthropic: accumulate event: %w", err)
		}

		if delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
			if text, ok := delta.Delta.AsAny().(anthropic.TextDelta); ok && text.Text != "" {
				return text.Text, true, nil
			}
		}
	}
	if err := s.stream.Err(); err != nil {
		return "", false, fmt.Errorf("anthropic: stream error: %w", err)
	}
	return "", false, nil
}
