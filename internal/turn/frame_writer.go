package turn

import (
	"context"
	"encoding/json"
	"sync"
)

// Socket is the minimal transport surface the FrameWriter needs. A
// coder/websocket connection satisfies it via a thin adapter (see
// internal/transport); tests use an in-memory fake.
type Socket interface {
	WriteText(ctx context.Context, data []byte) error
	WriteBinary(ctx context.Context, data []byte) error
}

// FrameWriter is the single-writer wrapper around a connection's Socket.
// Every control message and audio frame goes through it, serialized by mu
// so JSON and binary frames never interleave mid-frame on the wire.
type FrameWriter struct {
	mu   sync.Mutex
	sock Socket
}

func NewFrameWriter(sock Socket) *FrameWriter {
	return &FrameWriter{sock: sock}
}

// SendControl JSON-encodes msg and sends it as a text frame.
func (w *FrameWriter) SendControl(ctx context.Context, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sock.WriteText(ctx, body)
}

// SendBinary sends payload as a single AUD0 binary frame for turnID/seq.
// Returns false if the write failed.
func (w *FrameWriter) SendBinary(ctx context.Context, turnID, seq uint32, payload []byte) bool {
	frame := EncodeAudioFrame(turnID, seq, payload)
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sock.WriteBinary(ctx, frame) == nil
}

// SafeSendControl is a best-effort variant that swallows transport errors.
// Used on cleanup paths (e.g. audio_cancel during shutdown) where there is
// no useful recovery from a write failure.
func (w *FrameWriter) SafeSendControl(ctx context.Context, msg any) {
	_ = w.SendControl(ctx, msg)
}
