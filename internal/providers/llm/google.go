package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/lokutor-ai/voiceturn/internal/turn"
)

// GoogleLLM generates turn replies by streaming Gemini content. Uses the
// unified google.golang.org/genai client, whose GenerateContentStream
// returns a Go 1.23 iter.Seq2 push-iterator — adapted here into a
// pull-based turn.TextStream via a background pump goroutine.
type GoogleLLM struct {
	client *genai.Client
	model  string
}

func NewGoogleLLM(ctx context.Context, apiKey, model string) (*GoogleLLM, error) {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("google: new client: %w", err)
	}
	return &GoogleLLM{client: client, model: model}, nil
}

func (l *GoogleLLM) Name() string { return "google" }

type googleChunk struct {
	text string
	err  error
}

func (l *GoogleLLM) Generate(ctx context.Context, userText string) (turn.TextStream, error) {
	ch := make(chan googleChunk, 8)

	go func() {
		defer close(ch)
		for resp, err := range l.client.Models.GenerateContentStream(ctx, l.model, genai.Text(userText), nil) {
			if err != nil {
				ch <- googleChunk{err: fmt.Errorf("google: stream error: %w", err)}
				return
			}
			if text := resp.Text(); text != "" {
				select {
				case ch <- googleChunk{text: text}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return &googleStream{ch: ch}, nil
}

type googleStream struct {
	ch <-chan googleChunk
}

func (s *googleStream) Next(ctx context.Context) (string, bool, error) {
	select {
	case c, ok := <-s.ch:
		if !ok {
			return "", false, nil
		}
		if c.err != nil {
			return "", false, c.err
		}
		return c.text, true, nil
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}
