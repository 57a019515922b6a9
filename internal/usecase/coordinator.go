package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/room"
	"github.com/rocketscienceinc/tictactoe-arena/pkg/metrics"
)

const minNameLength = 3

// Messenger delivers outbound messages; the websocket gateway implements it.
// JoinRoom/LeaveRoom maintain the transport-side connection groups that
// Broadcast fans out to, kept separate from the Room's own membership.
type Messenger interface {
	SendTo(connID string, msg Message)
	Broadcast(ctx context.Context, roomCode string, msg Message)
	JoinRoom(connID, roomCode string)
	LeaveRoom(connID, roomCode string)
}

// membership is the connection-identity side table entry consulted on
// disconnect; the transport carries no payload with a disconnect signal.
type membership struct {
	roomCode  string
	name      string
	spectator bool
}

// Coordinator routes inbound connection events to rooms and turns the
// results into outbound messages. Rooms serialize their own mutation, so
// the coordinator only guards its session table.
type Coordinator struct {
	logger    *slog.Logger
	registry  *room.Registry
	messenger Messenger

	mu       sync.RWMutex
	sessions map[string]membership
}

func NewCoordinator(logger *slog.Logger, registry *room.Registry, messenger Messenger) *Coordinator {
	return &Coordinator{
		logger:    logger,
		registry:  registry,
		messenger: messenger,

		sessions: make(map[string]membership),
	}
}

// HandleJoin - admits a connection into a room as a player or a spectator.
// Validation failures never create a room.
func (that *Coordinator) HandleJoin(ctx context.Context, connID string, req JoinRequest) {
	log := that.logger.With("method", "HandleJoin", "connID", connID)

	name := strings.TrimSpace(req.PlayerName)
	if utf8.RuneCountInString(name) < minNameLength {
		that.reject(connID, apperror.ErrNameTooShort.Error())
		return
	}

	if req.RoomCode == "" {
		that.reject(connID, apperror.ErrRoomCodeRequired.Error())
		return
	}

	log = log.With("roomCode", req.RoomCode)

	currentRoom := that.registry.GetOrCreate(req.RoomCode)

	if req.AsSpectator || currentRoom.PlayerCount() >= 2 {
		that.admitSpectator(ctx, connID, name, req, currentRoom)
		log.Info("spectator joined room")
		return
	}

	mark, err := currentRoom.AddPlayer(connID, name)
	if err != nil {
		// lost the admission race; spectator mode must be requested explicitly
		that.reject(connID, err.Error())
		return
	}

	that.setSession(connID, membership{roomCode: req.RoomCode, name: name})
	that.messenger.JoinRoom(connID, req.RoomCode)

	that.messenger.SendTo(connID, NewMessage(ActionRoomJoined, RoomJoinedPayload{
		RoomCode: req.RoomCode,
		Mark:     mark,
		Players:  currentRoom.Roster(),
		Status:   currentRoom.PublicState().Status,
	}))
	that.messenger.Broadcast(ctx, req.RoomCode, NewMessage(ActionGameState, currentRoom.PublicState()))

	log.Info("player joined room", "mark", mark)
}

// admitSpectator - spectator admission, including the demotion notice for a
// player-intent join into a full room.
func (that *Coordinator) admitSpectator(_ context.Context, connID, name string, req JoinRequest, currentRoom *room.Room) {
	if !req.AsSpectator {
		that.messenger.SendTo(connID, NewMessage(ActionError, ErrorPayload{
			Message:       "room is full, you joined as a spectator",
			SpectatorMode: true,
		}))
	}

	currentRoom.AddSpectator(connID, name)
	that.setSession(connID, membership{roomCode: req.RoomCode, name: name, spectator: true})
	that.messenger.JoinRoom(connID, req.RoomCode)

	that.messenger.SendTo(connID, NewMessage(ActionRoomJoined, RoomJoinedPayload{
		RoomCode:  req.RoomCode,
		Players:   currentRoom.Roster(),
		Status:    currentRoom.PublicState().Status,
		Spectator: true,
	}))
	that.messenger.SendTo(connID, NewMessage(ActionGameState, currentRoom.PublicState()))
}

// HandleMove - applies a move and broadcasts the new state; every rejection
// goes back to the mover only and leaves the room untouched.
func (that *Coordinator) HandleMove(ctx context.Context, connID string, req TurnRequest) {
	log := that.logger.With("method", "HandleMove", "connID", connID, "roomCode", req.RoomCode)

	currentRoom, ok := that.registry.Get(req.RoomCode)
	if !ok {
		that.reject(connID, apperror.ErrRoomNotFound.Error())
		return
	}

	if err := currentRoom.MakeMove(connID, req.Cell); err != nil {
		log.Debug("move rejected", "cell", req.Cell, "error", err)
		that.reject(connID, err.Error())
		return
	}

	metrics.MovesTotal.Inc()
	that.messenger.Broadcast(ctx, req.RoomCode, NewMessage(ActionGameState, currentRoom.PublicState()))

	log.Info("player made a move", "cell", req.Cell)
}

// HandleRematch - records rematch consent. An unknown room code is dropped
// silently, unlike a move; callers rely on that asymmetry.
func (that *Coordinator) HandleRematch(ctx context.Context, connID string, req RematchRequest) {
	log := that.logger.With("method", "HandleRematch", "connID", connID, "roomCode", req.RoomCode)

	currentRoom, ok := that.registry.Get(req.RoomCode)
	if !ok {
		return
	}

	ready, started := currentRoom.AddRematchReady(connID)

	that.messenger.Broadcast(ctx, req.RoomCode, NewMessage(ActionRematchStatus, RematchStatusPayload{ReadyCount: ready}))

	if started {
		that.messenger.Broadcast(ctx, req.RoomCode, NewMessage(ActionGameState, currentRoom.PublicState()))
		log.Info("rematch started")
	}
}

// HandleDisconnect - the only cancellation signal; it carries nothing but
// the connection identity. A departing player resets the game for whoever
// stays, and an emptied room is reclaimed immediately.
func (that *Coordinator) HandleDisconnect(ctx context.Context, connID string) {
	log := that.logger.With("method", "HandleDisconnect", "connID", connID)

	session, ok := that.takeSession(connID)
	if !ok {
		return
	}

	log = log.With("roomCode", session.roomCode)

	currentRoom, ok := that.registry.Get(session.roomCode)
	if !ok {
		return
	}

	wasPlayer := currentRoom.RemovePlayer(connID)
	that.messenger.LeaveRoom(connID, session.roomCode)

	if wasPlayer {
		that.messenger.Broadcast(ctx, session.roomCode, NewMessage(ActionOpponentLeft, OpponentLeftPayload{
			Message: "your opponent left the room",
		}))
		that.messenger.Broadcast(ctx, session.roomCode, NewMessage(ActionGameState, currentRoom.PublicState()))
	}

	that.registry.ReleaseIfEmpty(session.roomCode)

	log.Info("connection left room", "wasPlayer", wasPlayer)
}

func (that *Coordinator) reject(connID, message string) {
	metrics.RejectedEventsTotal.Inc()
	that.messenger.SendTo(connID, NewMessage(ActionError, ErrorPayload{Message: message}))
}

func (that *Coordinator) setSession(connID string, session membership) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.sessions[connID] = session
}

func (that *Coordinator) takeSession(connID string) (membership, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, ok := that.sessions[connID]
	if ok {
		delete(that.sessions, connID)
	}

	return session, ok
}
