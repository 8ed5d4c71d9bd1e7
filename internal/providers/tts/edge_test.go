package tts

import (
	"context"
	"strings"
	"testing"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"net/http"
	"net/http/httptest"
)

func TestEdgeTTSSynthesizeStreamsChunks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "closing")

		var req map[string]interface{}
		if err := wsjson.Read(r.Context(), conn, &req); err != nil {
			return
		}

		conn.Write(r.Context(), websocket.MessageBinary, []byte{1, 2, 3})
		conn.Write(r.Context(), websocket.MessageBinary, []byte{4, 5, 6})
		conn.Write(r.Context(), websocket.MessageText, []byte("EOS"))
	}))
	defer server.Close()

	tts := NewEdgeTTS("test-key", strings.TrimPrefix(server.URL, "http://"))
	tts.scheme = "ws"

	stream, err := tts.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var audio []byte
	for {
		chunk, ok, err := stream.Next(context.Background())
		if err != nil {
			t.Fatalf("unexpected stream error: %v", err)
		}
		if !ok {
			break
		}
		audio = append(audio, chunk...)
	}

	if len(audio) != 6 {
		t.Errorf("expected 6 bytes, got %d", len(audio))
	}

	if tts.Name() != "edge" {
		t.Errorf("expected edge, got %s", tts.Name())
	}
	if tts.Mime() != "audio/L16" || tts.Format() != "pcm_s16le" || tts.SampleRate() != 24000 || tts.Channels() != 1 {
		t.Errorf("unexpected synth metadata")
	}

	tts.Close()
}
