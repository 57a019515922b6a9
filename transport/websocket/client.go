package websocket

import (
	"context"
	"log/slog"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/rocketscienceinc/tictactoe-arena/internal/usecase"
)

const (
	outboundBuffer = 64
	writeTimeout   = 10 * time.Second
)

// client is one websocket connection with its buffered outbound queue.
type client struct {
	id  string
	ws  *websocket.Conn
	out chan usecase.Message
}

func newClient(id string, ws *websocket.Conn) *client {
	return &client{
		id:  id,
		ws:  ws,
		out: make(chan usecase.Message, outboundBuffer),
	}
}

// send - queues a message without blocking; a client that cannot keep up
// loses messages rather than stalling the room.
func (that *client) send(msg usecase.Message) {
	select {
	case that.out <- msg:
	default:
	}
}

// writeLoop - drains the outbound queue until the context is canceled or
// the connection dies.
func (that *client) writeLoop(ctx context.Context, logger *slog.Logger) {
	log := logger.With("method", "writeLoop", "connID", that.id)

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-that.out:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, that.ws, msg)
			cancel()

			if err != nil {
				log.Debug("failed to write message", "error", err)
				return
			}
		}
	}
}
