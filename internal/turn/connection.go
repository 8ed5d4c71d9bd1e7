package turn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrConnectionClosed is returned by Reader.ReadText implementations (see
// internal/transport's websocket adapter) once the underlying connection is gone,
// so Connection.Serve can exit its read loop cleanly.
var ErrConnectionClosed = errors.New("turn: connection closed")

// Reader is the inbound half of a connection's transport, split out from
// Socket (the outbound half used by FrameWriter) so Connection can be
// exercised in tests without a real websocket.
type Reader interface {
	ReadText(ctx context.Context) ([]byte, error)
}

// Connection is the per-websocket Connection Handler: it owns a Session,
// announces itself with hello, and dispatches inbound user_text/interrupt
// messages to the Orchestrator. Grounded on the Python ancestor's
// ws_endpoint (original_source/apps/old/ws——piper-中文模型版本.py).
type Connection struct {
	Session      *Session
	Reader       Reader
	Writer       *FrameWriter
	Orchestrator *Orchestrator
	Logger       Logger

	instanceID string
}

func NewConnection(session *Session, reader Reader, writer *FrameWriter, orch *Orchestrator, logger Logger) *Connection {
	if logger == nil {
		logger = NoOpLogger{}
	}
	return &Connection{
		Session:      session,
		Reader:       reader,
		Writer:       writer,
		Orchestrator: orch,
		Logger:       logger,
		instanceID:   uuid.New().String(),
	}
}

// Serve announces hello and then loops reading inbound messages until the
// connection closes or ctx is cancelled. Each user_text dispatch runs the
// orchestrator synchronously within its own goroutine so Serve's read loop
// is never blocked waiting on a turn to finish — a second user_text or
// interrupt must be able to supersede it immediately.
func (c *Connection) Serve(ctx context.Context) error {
	if err := c.Writer.SendControl(ctx, helloMessage(c.Session.ID, c.instanceID)); err != nil {
		return fmt.Errorf("turn: failed to send hello: %w", err)
	}

	for {
		raw, err := c.Reader.ReadText(ctx)
		if err != nil {
			if errors.Is(err, ErrConnectionClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.Logger.Warn("dropping malformed inbound message", "error", err)
			continue
		}

		switch msg.Type {
		case inUserText:
			c.handleUserText(ctx, msg.Text)
		case inInterrupt:
			c.handleInterrupt(ctx)
		default:
			c.Logger.Warn("unknown inbound message type", "type", msg.Type)
		}
	}
}

func (c *Connection) handleUserText(ctx context.Context, text string) {
	if text == "" {
		c.Writer.SafeSendControl(ctx, errorMessage(0, ErrEmptyUserText.Error()))
		return
	}

	t := c.Session.StartTurn(text)
	go func() {
		c.Orchestrator.Run(ctx, t)
		t.MarkStopped()
		c.Session.FinishTurn(t)
	}()
}

// handleInterrupt implements spec.md §4.1's explicit interrupt handling:
// the session's turn id always advances (even with nothing active), any
// active turn is strong-cancelled (which itself emits audio_cancel), and
// the client is told the new turn id has settled into idle — so an
// interrupt can never leave the client hanging in thinking/speaking with
// no further state_update (invariant 7).
func (c *Connection) handleInterrupt(ctx context.Context) {
	go func() {
		newID, hadActive := c.Session.Interrupt(ctx)
		if !hadActive {
			c.Logger.Debug(ErrNoActiveTurn.Error(), "session_id", c.Session.ID)
		}
		c.Writer.SafeSendControl(ctx, stateUpdateMessage(newID, StateIdle))
	}()
}
