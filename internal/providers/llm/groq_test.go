package llm

import (
	"context"
	"testing"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

func TestGroqLLMStreamsDeltas(t *testing.T) {
	server := newStreamingServer(t, []string{"hola", " groq"})
	defer server.Close()

	client := oai.NewClient(option.WithAPIKey("test-key"), option.WithBaseURL(server.URL))
	l := &GroqLLM{client: client, model: "llama-3.3-70b-versatile"}

	if l.Name() != "groq" {
		t.Errorf("expected name groq, got %s", l.Name())
	}

	stream, err := l.Generate(context.Background(), "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var full string
	for {
		delta, ok, err := stream.Next(context.Background())
		if err != nil {
			t.Fatalf("unexpected stream error: %v", err)
		}
		if !ok {
			break
		}
		full += delta
	}

	if full != "hola groq" {
		t.Errorf("expected accumulated deltas 'hola groq', got %q", full)
	}
}
