package websocket

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arena/internal/usecase"
)

type recordingPublisher struct {
	mu        sync.Mutex
	published []usecase.Message
}

func (that *recordingPublisher) Publish(_ context.Context, _ string, msg usecase.Message) error {
	that.mu.Lock()
	defer that.mu.Unlock()
	that.published = append(that.published, msg)
	return nil
}

func newTestServer(statePublisher publisher) *Server {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), statePublisher)
}

// registerClient wires a bare client into the server maps, standing in for
// an accepted connection.
func registerClient(server *Server, connID string) *client {
	cl := newClient(connID, nil)
	server.mu.Lock()
	server.conns[connID] = cl
	server.mu.Unlock()

	return cl
}

func takeMessage(t *testing.T, cl *client) usecase.Message {
	t.Helper()

	select {
	case msg := <-cl.out:
		return msg
	default:
		t.Fatalf("no message queued for %s", cl.id)
		return usecase.Message{}
	}
}

func TestServer_SendTo(t *testing.T) {
	t.Run("Queues the message for the addressed connection only", func(t *testing.T) {
		// Given: two registered connections
		server := newTestServer(nil)
		first := registerClient(server, "conn-1")
		second := registerClient(server, "conn-2")

		// When: sending to the first
		msg := usecase.NewMessage(usecase.ActionError, usecase.ErrorPayload{Message: "nope"})
		server.SendTo("conn-1", msg)

		// Then: only the first connection has it queued
		assert.Equal(t, msg, takeMessage(t, first))
		assert.Empty(t, second.out)
	})

	t.Run("Unknown connection is a no-op", func(t *testing.T) {
		server := newTestServer(nil)

		server.SendTo("conn-404", usecase.NewMessage(usecase.ActionError, usecase.ErrorPayload{}))
	})

	t.Run("A full outbound queue drops instead of blocking", func(t *testing.T) {
		// Given: a connection whose queue is saturated
		server := newTestServer(nil)
		cl := registerClient(server, "conn-1")
		msg := usecase.NewMessage(usecase.ActionGameState, struct{}{})
		for i := 0; i < outboundBuffer; i++ {
			server.SendTo("conn-1", msg)
		}

		// When: one more message arrives
		server.SendTo("conn-1", msg)

		// Then: the queue stayed at capacity and nothing blocked
		assert.Len(t, cl.out, outboundBuffer)
	})
}

func TestServer_Broadcast(t *testing.T) {
	t.Run("Reaches every member of the room and nobody else", func(t *testing.T) {
		// Given: two members of ABC and an outsider
		server := newTestServer(nil)
		first := registerClient(server, "conn-1")
		second := registerClient(server, "conn-2")
		outsider := registerClient(server, "conn-3")
		server.JoinRoom("conn-1", "ABC")
		server.JoinRoom("conn-2", "ABC")
		server.JoinRoom("conn-3", "XYZ")

		// When: broadcasting to ABC
		msg := usecase.NewMessage(usecase.ActionGameState, struct{}{})
		server.Broadcast(context.Background(), "ABC", msg)

		// Then: both members got it, the outsider did not
		assert.Equal(t, msg, takeMessage(t, first))
		assert.Equal(t, msg, takeMessage(t, second))
		assert.Empty(t, outsider.out)
	})

	t.Run("Mirrors the broadcast to the publisher", func(t *testing.T) {
		// Given: a server with a publisher
		statePublisher := &recordingPublisher{}
		server := newTestServer(statePublisher)
		registerClient(server, "conn-1")
		server.JoinRoom("conn-1", "ABC")

		// When: broadcasting
		msg := usecase.NewMessage(usecase.ActionGameState, struct{}{})
		server.Broadcast(context.Background(), "ABC", msg)

		// Then: the publisher saw it once
		require.Len(t, statePublisher.published, 1)
		assert.Equal(t, msg, statePublisher.published[0])
	})

	t.Run("DeliverLocal fans out without republishing", func(t *testing.T) {
		// Given: a server with a publisher and one room member
		statePublisher := &recordingPublisher{}
		server := newTestServer(statePublisher)
		cl := registerClient(server, "conn-1")
		server.JoinRoom("conn-1", "ABC")

		// When: a remote instance's message is delivered
		msg := usecase.NewMessage(usecase.ActionGameState, struct{}{})
		server.DeliverLocal("ABC", msg)

		// Then: the member got it and nothing went back to the bus
		assert.Equal(t, msg, takeMessage(t, cl))
		assert.Empty(t, statePublisher.published)
	})
}

func TestServer_RoomGroups(t *testing.T) {
	t.Run("Leaving the room stops deliveries", func(t *testing.T) {
		// Given: a member who then leaves
		server := newTestServer(nil)
		cl := registerClient(server, "conn-1")
		server.JoinRoom("conn-1", "ABC")
		server.LeaveRoom("conn-1", "ABC")

		// When: broadcasting to the room
		server.Broadcast(context.Background(), "ABC", usecase.NewMessage(usecase.ActionGameState, struct{}{}))

		// Then: nothing is queued and the empty group is gone
		assert.Empty(t, cl.out)
		server.mu.RLock()
		_, ok := server.rooms["ABC"]
		server.mu.RUnlock()
		assert.False(t, ok)
	})

	t.Run("Joining before registration is a no-op", func(t *testing.T) {
		server := newTestServer(nil)

		server.JoinRoom("conn-404", "ABC")

		server.mu.RLock()
		_, ok := server.rooms["ABC"]
		server.mu.RUnlock()
		assert.False(t, ok)
	})
}
