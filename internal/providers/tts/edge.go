// Package tts hosts SpeechSynthesizer adapters for each supported voice
// backend.
package tts

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/lokutor-ai/voiceturn/internal/turn"
)

// EdgeTTS synthesizes speech over a persistent remote websocket connection,
// one JSON request per segment followed by a stream of binary PCM chunks
// terminated by a text "EOS" frame. Adapted from the teacher's lokutor.go,
// generalized from a single hardcoded provider into a remote-voice backend
// configurable per language/voice.
type EdgeTTS struct {
	apiKey string
	host   string
	scheme string

	mu   sync.Mutex
	conn *websocket.Conn

	mime       string
	format     string
	sampleRate int
	channels   int
}

func NewEdgeTTS(apiKey, host string) *EdgeTTS {
	return &EdgeTTS{
		apiKey:     apiKey,
		host:       host,
		scheme:     "wss",
		mime:       "audio/L16",
		format:     "pcm_s16le",
		sampleRate: 24000,
		channels:   1,
	}
}

func (t *EdgeTTS) getConn(ctx context.Context) (*websocket.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return t.conn, nil
	}

	u := url.URL{Scheme: t.scheme, Host: t.host, Path: "/ws", RawQuery: "api_key=" + t.apiKey}
	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("edge tts: failed to connect: %w", err)
	}

	t.conn = conn
	return conn, nil
}

// Synthesize sends one segment over the persistent connection and returns a
// SpeechStream that yields its PCM chunks as they arrive.
func (t *EdgeTTS) Synthesize(ctx context.Context, text string) (turn.SpeechStream, error) {
	conn, err := t.getConn(ctx)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	req := map[string]interface{}{
		"text":    text,
		"speed":   1.05,
		"steps":   5,
		"version": "versa-1.0",
	}

	if err := wsjson.Write(ctx, conn, req); err != nil {
		t.conn = nil
		conn.Close(websocket.StatusAbnormalClosure, "failed to write json")
		return nil, fmt.Errorf("edge tts: failed to send synthesis request: %w", err)
	}

	return &edgeStream{tts: t, conn: conn}, nil
}

func (t *EdgeTTS) Mime() string       { return t.mime }
func (t *EdgeTTS) Format() string     { return t.format }
func (t *EdgeTTS) SampleRate() int    { return t.sampleRate }
func (t *EdgeTTS) Channels() int      { return t.channels }
func (t *EdgeTTS) Name() string       { return "edge" }

func (t *EdgeTTS) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		err := t.conn.Close(websocket.StatusNormalClosure, "")
		t.conn = nil
		return err
	}
	return nil
}

// edgeStream reads one segment's binary chunks off the shared connection
// until the "EOS" text sentinel or an error.
type edgeStream struct {
	tts  *EdgeTTS
	conn *websocket.Conn
	done bool
}

func (s *edgeStream) Next(ctx context.Context) ([]byte, bool, error) {
	if s.done {
		return nil, false, nil
	}

	for {
		messageType, payload, err := s.conn.Read(ctx)
		if err != nil {
			s.tts.mu.Lock()
			s.tts.conn = nil
			s.tts.mu.Unlock()
			s.done = true
			return nil, false, fmt.Errorf("edge tts: failed to read: %w", err)
		}

		switch messageType {
		case websocket.MessageBinary:
			return payload, true, nil
		case websocket.MessageText:
			msg := string(payload)
			if msg == "EOS" {
				s.done = true
				return nil, false, nil
			}
			if len(msg) >= 4 && msg[:4] == "ERR:" {
				s.done = true
				return nil, false, fmt.Errorf("edge tts: %s", msg)
			}
		}
	}
}
