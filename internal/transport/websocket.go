// Package transport adapts a coder/websocket connection to the narrow
// Socket/Reader interfaces internal/turn depends on, keeping the
// orchestrator core free of any websocket-specific import.
package transport

import (
	"context"
	"errors"

	"github.com/coder/websocket"

	"github.com/lokutor-ai/voiceturn/internal/turn"
)

// Conn wraps a *websocket.Conn to satisfy turn.Socket and turn.Reader.
type Conn struct {
	ws *websocket.Conn
}

func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

func (c *Conn) WriteText(ctx context.Context, data []byte) error {
	return c.ws.Write(ctx, websocket.MessageText, data)
}

func (c *Conn) WriteBinary(ctx context.Context, data []byte) error {
	return c.ws.Write(ctx, websocket.MessageBinary, data)
}

// ReadText reads the next text frame, translating any close/cancellation
// into turn.ErrConnectionClosed so Connection.Serve's read loop can exit
// cleanly. Binary frames are not expected inbound and are skipped.
func (c *Conn) ReadText(ctx context.Context) ([]byte, error) {
	for {
		msgType, data, err := c.ws.Read(ctx)
		if err != nil {
			if isCloseError(err) || ctx.Err() != nil {
				return nil, turn.ErrConnectionClosed
			}
			return nil, err
		}
		if msgType != websocket.MessageText {
			continue
		}
		return data, nil
	}
}

func (c *Conn) Close() error {
	return c.ws.Close(websocket.StatusNormalClosure, "closing")
}

func isCloseError(err error) bool {
	var closeErr websocket.CloseError
	return errors.As(err, &closeErr) || errors.Is(err, context.Canceled)
}
