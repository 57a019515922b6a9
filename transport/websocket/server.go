package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/rocketscienceinc/tictactoe-arena/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-arena/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-arena/pkg/metrics"
)

// engine handles the decoded inbound events; the coordinator implements it.
type engine interface {
	HandleJoin(ctx context.Context, connID string, req usecase.JoinRequest)
	HandleMove(ctx context.Context, connID string, req usecase.TurnRequest)
	HandleRematch(ctx context.Context, connID string, req usecase.RematchRequest)
	HandleDisconnect(ctx context.Context, connID string)
}

// publisher mirrors room broadcasts to other gateway instances; nil when the
// server runs standalone.
type publisher interface {
	Publish(ctx context.Context, roomCode string, msg usecase.Message) error
}

// Server owns the physical connections and the room-scoped connection
// groups. It implements usecase.Messenger for the coordinator.
type Server struct {
	logger    *slog.Logger
	engine    engine
	publisher publisher

	mu    sync.RWMutex
	conns map[string]*client
	rooms map[string]map[string]*client
}

func New(logger *slog.Logger, statePublisher publisher) *Server {
	return &Server{
		logger:    logger,
		publisher: statePublisher,

		conns: make(map[string]*client),
		rooms: make(map[string]map[string]*client),
	}
}

// AttachEngine - binds the event engine. The server is the coordinator's
// messenger and the coordinator is the server's engine, so one side attaches
// after construction. Must be called before Start.
func (that *Server) AttachEngine(gameEngine engine) {
	that.engine = gameEngine
}

// Start - starts the WebSocket server and blocks until the listener fails
// or the context is canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.handleConnection(ctx, w, r)
	})

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  0, // websocket connections are long-lived
		WriteTimeout: 0,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// handleConnection - upgrades the connection and pumps its messages until it
// disconnects. The disconnect handling runs on the server context, so a
// departure is processed even when it happens mid-operation.
func (that *Server) handleConnection(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "handleConnection")

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Error("failed to accept websocket connection", "error", err)
		return
	}

	connID := pkg.GenerateNewSessionID()
	cl := newClient(connID, conn)

	that.mu.Lock()
	that.conns[connID] = cl
	that.mu.Unlock()

	metrics.OpenConnections.Inc()
	log = log.With("connID", connID)
	log.Info("websocket connection established")

	go cl.writeLoop(ctx, that.logger)

	that.readLoop(ctx, cl)

	that.engine.HandleDisconnect(ctx, connID)

	that.mu.Lock()
	delete(that.conns, connID)
	that.mu.Unlock()

	metrics.OpenConnections.Dec()
	_ = conn.Close(websocket.StatusNormalClosure, "")
	log.Info("websocket connection closed")
}

// readLoop - decodes inbound envelopes and dispatches them until the
// connection fails or the context is canceled.
func (that *Server) readLoop(ctx context.Context, cl *client) {
	log := that.logger.With("method", "readLoop", "connID", cl.id)

	for {
		var msg usecase.Message
		if err := wsjson.Read(ctx, cl.ws, &msg); err != nil {
			log.Debug("connection read finished", "error", err)
			return
		}

		that.dispatch(ctx, cl, msg)
	}
}

func (that *Server) dispatch(ctx context.Context, cl *client, msg usecase.Message) {
	log := that.logger.With("method", "dispatch", "connID", cl.id, "action", msg.Action)

	switch msg.Action {
	case usecase.ActionJoinRoom:
		var req usecase.JoinRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			log.Error("failed to unmarshal payload", "error", err)
			return
		}
		that.engine.HandleJoin(ctx, cl.id, req)

	case usecase.ActionGameTurn:
		var req usecase.TurnRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			log.Error("failed to unmarshal payload", "error", err)
			return
		}
		that.engine.HandleMove(ctx, cl.id, req)

	case usecase.ActionRematch:
		var req usecase.RematchRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			log.Error("failed to unmarshal payload", "error", err)
			return
		}
		that.engine.HandleRematch(ctx, cl.id, req)

	default:
		log.Warn("unknown action")
	}
}

// SendTo - delivers a message to one connection.
func (that *Server) SendTo(connID string, msg usecase.Message) {
	that.mu.RLock()
	cl, ok := that.conns[connID]
	that.mu.RUnlock()

	if ok {
		cl.send(msg)
	}
}

// Broadcast - delivers a message to every local connection in the room and
// mirrors it to other instances through the publisher.
func (that *Server) Broadcast(ctx context.Context, roomCode string, msg usecase.Message) {
	that.broadcastLocal(roomCode, msg)

	if that.publisher == nil {
		return
	}

	if err := that.publisher.Publish(ctx, roomCode, msg); err != nil {
		that.logger.Error("failed to publish broadcast", "roomCode", roomCode, "error", err)
	}
}

// DeliverLocal - fans a remote instance's broadcast out to local members
// only; it is never republished.
func (that *Server) DeliverLocal(roomCode string, msg usecase.Message) {
	that.broadcastLocal(roomCode, msg)
}

func (that *Server) broadcastLocal(roomCode string, msg usecase.Message) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	for _, cl := range that.rooms[roomCode] {
		cl.send(msg)
	}
}

// JoinRoom - adds the connection to the room's broadcast group.
func (that *Server) JoinRoom(connID, roomCode string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	cl, ok := that.conns[connID]
	if !ok {
		return
	}

	group, ok := that.rooms[roomCode]
	if !ok {
		group = make(map[string]*client)
		that.rooms[roomCode] = group
	}

	group[connID] = cl
}

// LeaveRoom - removes the connection from the room's broadcast group.
func (that *Server) LeaveRoom(connID, roomCode string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	group, ok := that.rooms[roomCode]
	if !ok {
		return
	}

	delete(group, connID)
	if len(group) == 0 {
		delete(that.rooms, roomCode)
	}
}
