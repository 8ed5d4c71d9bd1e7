package llm

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"

	oai "github.com/openai/openai-go"

	"context"
)

func newStreamingServer(t *testing.T, deltas []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, d := range deltas {
			fmt.Fprintf(w, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"gpt-4o\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", d)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
}

func TestOpenAILLMStreamsDeltas(t *testing.T) {
	server := newStreamingServer(t, []string{"hello", " from", " openai"})
	defer server.Close()

	client := oai.NewClient(option.WithAPIKey("test-key"), option.WithBaseURL(server.URL))
	l := &OpenAILLM{client: client, model: "gpt-4o"}

	if l.Name() != "openai" {
		t.Errorf("expected name openai, got %s", l.Name())
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

	if full != "hello from openai" {
		t.Errorf("expected accumulated deltas 'hello from openai', got %q", full)
	}
}
